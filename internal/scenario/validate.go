package scenario

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
)

const maxLocationLength = 80

// Validate checks the structural rules every playable case follows. The error message is written so that it can be
// handed back to the backend as corrective feedback.
func Validate(c *models.Case) error {
	var problems []string
	require := func(value, what string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, "missing "+what)
		}
	}

	require(c.Name, "name")
	require(c.Setting, "setting")
	require(c.Victim.Name, "victim name")
	require(c.Victim.Role, "victim role")
	require(c.SharedKnowledge, "shared_knowledge")
	require(c.Timeline, "timeline")
	require(c.IntroMessage, "intro_message")

	if len(c.Personas) < models.MinPersonas {
		problems = append(problems, fmt.Sprintf("only %d personas returned, at least %d are required",
			len(c.Personas), models.MinPersonas))
	}
	ids := make(map[string]bool, len(c.Personas))
	for i, p := range c.Personas {
		label := fmt.Sprintf("persona %d", i+1)
		if p.ID != "" {
			label = fmt.Sprintf("persona %q", p.ID)
		}
		require(p.ID, label+" id")
		require(p.Name, label+" name")
		require(p.Role, label+" role")
		require(p.Personality, label+" personality")
		require(p.PrivateKnowledge, label+" private_knowledge")
		if p.ID == "" {
			continue
		}
		if ids[p.ID] {
			problems = append(problems, fmt.Sprintf("duplicate persona id %q", p.ID))
		}
		ids[p.ID] = true
	}

	if c.Solution.CulpritID == "" {
		problems = append(problems, "missing solution culprit_id")
	} else if !ids[c.Solution.CulpritID] {
		problems = append(problems, fmt.Sprintf("culprit %q is not one of the personas", c.Solution.CulpritID))
	}
	require(c.Solution.Motive, "solution motive")
	require(c.Solution.Weapon, "solution weapon")

	clueIDs := make(map[string]bool, len(c.Clues))
	for i, clue := range c.Clues {
		label := fmt.Sprintf("clue %d", i+1)
		if clue.ID != "" {
			label = fmt.Sprintf("clue %q", clue.ID)
			if clueIDs[clue.ID] {
				problems = append(problems, fmt.Sprintf("duplicate clue id %q", clue.ID))
			}
			clueIDs[clue.ID] = true
		}
		require(clue.Text, label+" text")
		if !ids[clue.PersonaID] {
			problems = append(problems, fmt.Sprintf("%s belongs to unknown persona %q", label, clue.PersonaID))
		}
		if !hasKeyword(clue.Keywords) {
			problems = append(problems, label+" has no keywords")
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func hasKeyword(keywords []string) bool {
	for _, k := range keywords {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}

// Complete fills in the optional fields of a validated case: clue ids, location and time of incident.
func Complete(c *models.Case) {
	taken := make(map[string]bool, len(c.Clues))
	for _, clue := range c.Clues {
		taken[clue.ID] = true
	}
	for i := range c.Clues {
		if c.Clues[i].ID != "" {
			continue
		}
		id := fmt.Sprintf("%s-clue-%d", c.Clues[i].PersonaID, i+1)
		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s-clue-%d-%d", c.Clues[i].PersonaID, i+1, n)
		}
		taken[id] = true
		c.Clues[i].ID = id
	}

	if strings.TrimSpace(c.Location) == "" {
		c.Location = LocationFromSetting(c.Setting)
	}
	if strings.TrimSpace(c.TimeOfIncident) == "" {
		c.TimeOfIncident = TimeFromTimeline(c.Timeline)
	}
}

// LocationFromSetting takes the first sentence of the setting, which by convention names the place.
func LocationFromSetting(setting string) string {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(setting), "\n")
	firstLine = strings.TrimSpace(firstLine)
	if firstLine == "" {
		return "Unknown location"
	}
	if sentence, _, found := strings.Cut(firstLine, "."); found && sentence != "" {
		return sentence
	}
	if runes := []rune(firstLine); len(runes) > maxLocationLength {
		return string(runes[:maxLocationLength])
	}
	return firstLine
}

var timeRange = regexp.MustCompile(`\d{1,2}(?::\d{2})?\s*(?:[ap]\.?m\.?)?\s*[-–]\s*\d{1,2}(?::\d{2})?\s*(?:[ap]\.?m\.?)?`)

// TimeFromTimeline finds the time of incident in the timeline: a line mentioning the time of death or the crime, or
// else the first time range.
func TimeFromTimeline(timeline string) string {
	for _, line := range strings.Split(timeline, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "time of death") || strings.Contains(lower, "time of the crime") ||
			strings.Contains(lower, "time of incident") {
			return strings.Trim(strings.TrimSpace(line), "- ")
		}
	}
	if match := timeRange.FindString(strings.ToLower(timeline)); match != "" {
		return "Estimated: " + strings.TrimSpace(match)
	}
	return "Time unknown"
}
