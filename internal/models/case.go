package models

// MinPersonas is the smallest cast a playable case may have.
const MinPersonas = 4

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps user input to a Difficulty. Unknown or empty values fall back to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s)
	default:
		return DifficultyMedium
	}
}

// Case is the immutable content of one mystery. It is created once by the scenario generator or loaded from the
// canonical quick-start case and shared read-only by every session playing it.
type Case struct {
	ID              string     `json:"id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Difficulty      Difficulty `json:"difficulty" yaml:"difficulty"`
	Victim          Victim     `json:"victim" yaml:"victim"`
	Location        string     `json:"location" yaml:"location"`
	TimeOfIncident  string     `json:"time_of_incident" yaml:"time_of_incident"`
	Setting         string     `json:"setting" yaml:"setting"`
	Timeline        string     `json:"timeline" yaml:"timeline"`
	SharedKnowledge string     `json:"shared_knowledge" yaml:"shared_knowledge"`
	IntroMessage    string     `json:"intro_message" yaml:"intro_message"`
	Personas        []Persona  `json:"personas" yaml:"personas"`
	Clues           []Clue     `json:"clues" yaml:"clues"`
	Solution        Solution   `json:"solution" yaml:"solution"`
}

type Victim struct {
	Name        string `json:"name" yaml:"name"`
	Role        string `json:"role" yaml:"role"`
	Description string `json:"description" yaml:"description"`
}

// Persona is one interrogable character. Knowledge is plain data so that generated and authored characters go
// through the same dialogue routine.
type Persona struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	Role              string `json:"role" yaml:"role"`
	PublicDescription string `json:"public_description" yaml:"public_description"`
	Personality       string `json:"personality" yaml:"personality"`
	// PrivateKnowledge is only ever put into this persona's own generation context.
	PrivateKnowledge string `json:"private_knowledge" yaml:"private_knowledge"`
	KnowsAboutOthers string `json:"knows_about_others" yaml:"knows_about_others"`
	Emoji            string `json:"emoji,omitempty" yaml:"emoji,omitempty"`
}

// PublicPersona is the player-facing part of a Persona.
type PublicPersona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
}

// Public strips everything the player must not see.
func (p Persona) Public() PublicPersona {
	emoji := p.Emoji
	if emoji == "" {
		emoji = "👤"
	}
	return PublicPersona{
		ID:          p.ID,
		Name:        p.Name,
		Role:        p.Role,
		Description: p.PublicDescription,
		Emoji:       emoji,
	}
}

// Clue is a discrete fact owned by one persona. It is revealed at most once per session when any of its keywords
// shows up in an exchange with its owner.
type Clue struct {
	ID        string   `json:"id" yaml:"id"`
	PersonaID string   `json:"persona_id" yaml:"persona_id"`
	Text      string   `json:"text" yaml:"text"`
	Keywords  []string `json:"keywords" yaml:"keywords"`
}

// Solution is the ground truth of a case.
type Solution struct {
	CulpritID     string   `json:"culprit_id" yaml:"culprit_id"`
	Motive        string   `json:"motive" yaml:"motive"`
	Weapon        string   `json:"weapon" yaml:"weapon"`
	CriticalClues []string `json:"critical_clues" yaml:"critical_clues"`
}

// Persona returns the persona with id, if it is part of the roster.
func (c *Case) Persona(id string) (*Persona, bool) {
	for i := range c.Personas {
		if c.Personas[i].ID == id {
			return &c.Personas[i], true
		}
	}
	return nil, false
}

// PublicPersonas lists the roster in case order with public fields only.
func (c *Case) PublicPersonas() []PublicPersona {
	personas := make([]PublicPersona, len(c.Personas))
	for i, p := range c.Personas {
		personas[i] = p.Public()
	}
	return personas
}

// PersonaKnowledge is everything a persona works from when answering. It is exposed for debugging only.
type PersonaKnowledge struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	Personality      string   `json:"personality"`
	PrivateKnowledge string   `json:"private_knowledge"`
	SharedKnowledge  string   `json:"shared_knowledge"`
	KnowsAboutOthers string   `json:"knows_about_others"`
	ClueKeywords     []string `json:"clue_keywords"`
}

// Knowledge lists the full knowledge of every persona in roster order.
func (c *Case) Knowledge() []PersonaKnowledge {
	knowledge := make([]PersonaKnowledge, len(c.Personas))
	for i, p := range c.Personas {
		var keywords []string
		for _, clue := range c.CluesFor(p.ID) {
			keywords = append(keywords, clue.Keywords...)
		}
		knowledge[i] = PersonaKnowledge{
			ID:               p.ID,
			Name:             p.Name,
			Role:             p.Role,
			Personality:      p.Personality,
			PrivateKnowledge: p.PrivateKnowledge,
			SharedKnowledge:  c.SharedKnowledge,
			KnowsAboutOthers: p.KnowsAboutOthers,
			ClueKeywords:     keywords,
		}
	}
	return knowledge
}

// CluesFor returns the clues owned by personaID in case order.
func (c *Case) CluesFor(personaID string) []Clue {
	var clues []Clue
	for _, clue := range c.Clues {
		if clue.PersonaID == personaID {
			clues = append(clues, clue)
		}
	}
	return clues
}

// Summary is the player-facing overview of a case returned by generation and quick-start.
type Summary struct {
	CaseID         string          `json:"case_id"`
	Name           string          `json:"scenario_name"`
	Setting        string          `json:"setting"`
	Location       string          `json:"location"`
	TimeOfIncident string          `json:"time_of_incident"`
	Victim         Victim          `json:"victim"`
	Personas       []PublicPersona `json:"personas"`
	IntroMessage   string          `json:"intro_message"`
}

func (c *Case) Summary() Summary {
	return Summary{
		CaseID:         c.ID,
		Name:           c.Name,
		Setting:        c.Setting,
		Location:       c.Location,
		TimeOfIncident: c.TimeOfIncident,
		Victim:         c.Victim,
		Personas:       c.PublicPersonas(),
		IntroMessage:   c.IntroMessage,
	}
}
