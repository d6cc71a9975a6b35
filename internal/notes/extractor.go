// Package notes distills investigation notes from the answers personas give.
//
// Extraction is best effort. A failing backend call or a malformed response yields zero notes together with the
// error, and callers are expected to log it and carry on.
package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/sashabaranov/go-openai"
)

var ErrExtractionParse = errors.NewSentinel("could not parse extracted notes")

const temperature = 0.2

const directive = `You help a detective keep notes during a murder investigation.
Read the detective's question and the answer of the person being questioned. Extract at most 3 short, factual notes
that could matter for solving the case. Write each note in the third person and name the person.

Every note has exactly one category:
- alibi: where someone was or what they did at a given time
- motive: a reason someone could have wanted to harm the victim
- relationship: how people relate to each other or to the victim
- observation: something someone saw, heard or found
- contradiction: a statement that conflicts with something said before

If the answer contains nothing worth noting, return an empty list.
Respond with a JSON object and nothing else: {"notes":[{"text":"...","category":"..."}]}`

// Result is the outcome of one extraction. Notes is empty when Err is set.
type Result struct {
	Notes []models.AutoNote
	Err   error
}

type Extractor struct {
	completer ai.Completer
	logger    *slog.Logger
	now       func() time.Time
}

func NewExtractor(completer ai.Completer, logger *slog.Logger) *Extractor {
	return &Extractor{
		completer: completer,
		logger:    logger.With(slog.String("source", "notes.Extractor")),
		now:       time.Now,
	}
}

// Extract derives up to models.MaxNotesPerTurn notes from one exchange with personaID.
func (e *Extractor) Extract(ctx context.Context, personaID, personaName, question, answer string) Result {
	prompt := fmt.Sprintf("Person questioned: %s\nDetective: %s\n%s: %s", personaName, question, personaName, answer)
	content, err := e.completer.Complete(ctx, ai.Request{
		Purpose:     ai.PurposeNotes,
		Messages:    []openai.ChatCompletionMessage{ai.System(directive), ai.User(prompt)},
		Temperature: temperature,
		JSON:        true,
	})
	if err != nil {
		return Result{Notes: nil, Err: errors.Wrap(err, "extract notes", slog.String("persona_id", personaID))}
	}

	drafts, err := Parse(content)
	if err != nil {
		return Result{Notes: nil, Err: errors.Wrap(err, "extract notes", slog.String("persona_id", personaID))}
	}

	now := e.now()
	notes := make([]models.AutoNote, 0, len(drafts))
	for _, d := range drafts {
		notes = append(notes, models.AutoNote{
			ID:        uuid.NewString(),
			PersonaID: personaID,
			Text:      d.Text,
			Category:  d.Category,
			CreatedAt: now,
			Source:    answer,
		})
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "extracted notes",
		slog.String("persona_id", personaID), slog.Int("count", len(notes)))
	return Result{Notes: notes, Err: nil}
}

// Draft is a parsed note before it is attached to a persona.
type Draft struct {
	Text     string              `json:"text"`
	Category models.NoteCategory `json:"category"`
}

// Parse reads the backend's answer. It accepts {"notes":[...]}, a bare array and either of those wrapped in a
// markdown code fence. Drafts with empty text or an unknown category are dropped and at most models.MaxNotesPerTurn
// are kept.
func Parse(content string) ([]Draft, error) {
	content = stripFence(strings.TrimSpace(content))
	if content == "" {
		return nil, errors.Wrap(ErrExtractionParse, "empty response")
	}

	var drafts []Draft
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &drafts); err != nil {
			return nil, errors.Wrap(errors.Join(ErrExtractionParse, err), "unmarshal note array")
		}
	} else {
		var envelope struct {
			Notes []Draft `json:"notes"`
		}
		if err := json.Unmarshal([]byte(content), &envelope); err != nil {
			return nil, errors.Wrap(errors.Join(ErrExtractionParse, err), "unmarshal note object")
		}
		drafts = envelope.Notes
	}

	kept := make([]Draft, 0, models.MaxNotesPerTurn)
	for _, d := range drafts {
		d.Text = strings.TrimSpace(d.Text)
		d.Category = models.NoteCategory(strings.ToLower(strings.TrimSpace(string(d.Category))))
		if d.Text == "" || !d.Category.Valid() {
			continue
		}
		kept = append(kept, d)
		if len(kept) == models.MaxNotesPerTurn {
			break
		}
	}
	return kept, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string, e.g. "json".
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
