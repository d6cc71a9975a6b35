// Package scenario writes new murder mystery cases with the text generation backend and provides the canonical
// quick-start case.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/myrjola/sheerluck-engine/internal/progress"
	"github.com/sashabaranov/go-openai"
)

// ErrGenerationValidation means the backend kept producing unusable cases until the retries ran out.
var ErrGenerationValidation = errors.NewSentinel("generated case failed validation")

const (
	// DefaultMaxRetries is how many additional attempts follow a rejected case.
	DefaultMaxRetries = 2
	temperature       = 0.9
)

const directive = `You are a creative author of murder mystery games. Write one self-contained murder case that a
player solves by questioning the people involved.

Rules:
- Create AT LEAST 4 personas. Exactly one of them is the murderer.
- Every persona needs a unique lowercase id (a slug of the first name), a name, a role, a public description, a
  personality directive written in the second person ("You speak ...") and private knowledge only they have.
- The murderer's private knowledge contains the truth and a cover story with small contradictions.
- Give every persona 1 to 3 clues. A clue belongs to one persona and has trigger keywords: short lowercase words or
  phrases the detective is likely to use when asking about it, e.g. "9 pm", "camera", "guest house".
- The solution names the murderer by persona id and lists the ids of the clues that prove the case.

Respond with a single JSON object and nothing else, using this structure:
{
  "name": "The ... Case",
  "setting": "A few sentences. The first sentence names the location.",
  "location": "...",
  "time_of_incident": "...",
  "victim": {"name": "...", "role": "...", "description": "..."},
  "shared_knowledge": "Facts every persona knows, one per line.",
  "timeline": "Known timeline, one event per line, with clock times.",
  "intro_message": "Welcome text for the detective.",
  "personas": [{"id": "...", "name": "...", "role": "...", "public_description": "...", "personality": "...",
    "private_knowledge": "...", "knows_about_others": "...", "emoji": "..."}],
  "clues": [{"id": "...", "persona_id": "...", "text": "...", "keywords": ["..."]}],
  "solution": {"culprit_id": "...", "motive": "...", "weapon": "...", "critical_clues": ["clue id"]}
}`

var difficultyGuidance = map[models.Difficulty]string{
	models.DifficultyEasy: "Easy: the murderer is nervous and contradicts themselves quickly. " +
		"Clues are plentiful and point clearly at the murderer.",
	models.DifficultyMedium: "Medium: the murderer stays calm but makes small mistakes under pressure. " +
		"At least one other persona has a convincing motive.",
	models.DifficultyHard: "Hard: the murderer has a strong cover story and several personas have motives and " +
		"secrets of their own. Only careful questioning reveals the contradictions.",
}

type Generator struct {
	completer  ai.Completer
	logger     *slog.Logger
	maxRetries int
}

func NewGenerator(completer ai.Completer, logger *slog.Logger) *Generator {
	return &Generator{
		completer:  completer,
		logger:     logger.With(slog.String("source", "scenario.Generator")),
		maxRetries: DefaultMaxRetries,
	}
}

// Generate writes a case from premise. An empty premise lets the backend choose freely. Cases that fail validation
// are regenerated up to DefaultMaxRetries more times, each time telling the backend what was wrong. Backend failures
// are returned immediately as ai.ErrUpstreamUnavailable.
func (g *Generator) Generate(
	ctx context.Context,
	premise string,
	difficulty models.Difficulty,
	reporter progress.Reporter,
) (*models.Case, error) {
	if reporter == nil {
		reporter = progress.Discard{}
	}
	difficulty = models.ParseDifficulty(string(difficulty))
	userPrompt := UserPrompt(premise, difficulty)
	logger := g.logger.With(slog.String("difficulty", string(difficulty)))
	progress.Started(reporter)

	var reason string
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		prompt := userPrompt
		if reason != "" {
			prompt += fmt.Sprintf("\n\nprevious attempt failed: %s\nFix this and make sure there are at least %d "+
				"complete personas.", reason, models.MinPersonas)
		}
		progress.GeneratingScenario(reporter, attempt)

		content, err := g.completer.Complete(ctx, ai.Request{
			Purpose:     ai.PurposeScenario,
			Messages:    []openai.ChatCompletionMessage{ai.System(directive), ai.User(prompt)},
			Temperature: temperature,
			JSON:        true,
		})
		if err != nil {
			progress.Error(reporter, err)
			return nil, errors.Wrap(err, "generate scenario", slog.Int("attempt", attempt))
		}

		c, err := Parse(content)
		if err == nil {
			err = Validate(c)
		}
		if err != nil {
			reason = err.Error()
			logger.LogAttrs(ctx, slog.LevelWarn, "generated case rejected",
				slog.Int("attempt", attempt+1), slog.String("reason", reason))
			continue
		}

		c.ID = uuid.NewString()
		c.Difficulty = difficulty
		Complete(c)
		progress.ScenarioComplete(reporter)
		progress.GeneratingPersonas(reporter, len(c.Personas))
		for i, p := range c.Personas {
			progress.PersonaComplete(reporter, p.Name, i, len(c.Personas))
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "generated case",
			slog.String("case_id", c.ID),
			slog.String("name", c.Name),
			slog.Int("personas", len(c.Personas)),
			slog.Int("attempts", attempt+1))
		return c, nil
	}

	err := errors.Wrap(errors.Join(ErrGenerationValidation, errors.New(reason)), "generate scenario",
		slog.Int("attempts", g.maxRetries+1))
	progress.Error(reporter, err)
	return nil, err
}

// UserPrompt turns the player's premise and the difficulty into the generation request.
func UserPrompt(premise string, difficulty models.Difficulty) string {
	var b strings.Builder
	if premise = strings.TrimSpace(premise); premise != "" {
		fmt.Fprintf(&b, "The player wants this scenario:\n\n%s\n\n", premise)
	} else {
		b.WriteString("Create a random, original murder mystery. Surprise me!\n\n")
	}
	fmt.Fprintf(&b, "Difficulty: %s\n%s\n\n", difficulty, difficultyGuidance[difficulty])
	fmt.Fprintf(&b, "IMPORTANT: create %d or more personas, never fewer.", models.MinPersonas)
	return b.String()
}

// Parse decodes the backend's JSON answer. Text around the outermost JSON object, such as a markdown fence, is
// ignored.
func Parse(content string) (*models.Case, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end < start {
		return nil, errors.New("response does not contain a JSON object")
	}
	var c models.Case
	if err := json.Unmarshal([]byte(content[start:end+1]), &c); err != nil {
		return nil, errors.Wrap(err, "response is not a valid case")
	}
	return &c, nil
}
