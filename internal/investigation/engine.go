// Package investigation drives murder-mystery games: it generates cases, routes the player's questions to personas,
// reveals clues, collects notes and settles the final accusation.
package investigation

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/clues"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/logging"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/myrjola/sheerluck-engine/internal/notes"
	"github.com/myrjola/sheerluck-engine/internal/persona"
	"github.com/myrjola/sheerluck-engine/internal/progress"
	"github.com/myrjola/sheerluck-engine/internal/repositories"
	"github.com/myrjola/sheerluck-engine/internal/scenario"
	"github.com/myrjola/sheerluck-engine/internal/session"
	"golang.org/x/sync/singleflight"
)

// CaseStore persists immutable case definitions.
type CaseStore interface {
	Create(ctx context.Context, c *models.Case) error
	UpsertCanonical(ctx context.Context, c *models.Case) error
	Get(ctx context.Context, id string) (*models.Case, error)
	List(ctx context.Context, limit int) ([]repositories.CaseListing, error)
}

type Config struct {
	GenerationTimeout time.Duration
	ChatTimeout       time.Duration
}

// DefaultConfig mirrors the defaults of the service configuration.
func DefaultConfig() Config {
	return Config{
		GenerationTimeout: 90 * time.Second,
		ChatTimeout:       30 * time.Second,
	}
}

// ChatRequest is one message from the player to a persona.
type ChatRequest struct {
	SessionID string
	PersonaID string
	Message   string
	// History is the conversation as the caller remembers it. It is only used as context when the engine has no
	// history of its own for the persona, e.g. after a client reconnects to a fresh session.
	History []models.ChatMessage
}

// ChatResponse is the outcome of one chat turn.
type ChatResponse struct {
	PersonaID    string                       `json:"persona_id"`
	PersonaName  string                       `json:"persona_name"`
	Reply        string                       `json:"reply"`
	RevealedClue *models.Clue                 `json:"revealed_clue"`
	NewNotes     []models.AutoNote            `json:"new_notes"`
	Notes        map[string][]models.AutoNote `json:"notes"`
}

type Engine struct {
	generator *scenario.Generator
	agent     *persona.Agent
	extractor *notes.Extractor
	cases     CaseStore
	sessions  *session.Store
	reporter  progress.Reporter
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	quickStart singleflight.Group
	// canonical is set once the canonical case has been stored.
	canonical atomic.Pointer[models.Case]
}

// NewEngine wires the engine. reporter receives generation progress and may be nil.
func NewEngine(
	completer ai.Completer,
	cases CaseStore,
	sessions *session.Store,
	reporter progress.Reporter,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if reporter == nil {
		reporter = progress.Discard{}
	}
	return &Engine{ //nolint:exhaustruct // zero values of the quick-start fields are ready to use
		generator: scenario.NewGenerator(completer, logger),
		agent:     persona.NewAgent(completer, logger),
		extractor: notes.NewExtractor(completer, logger),
		cases:     cases,
		sessions:  sessions,
		reporter:  reporter,
		cfg:       cfg,
		logger:    logger.With(slog.String("source", "investigation.Engine")),
		now:       time.Now,
	}
}

// GenerateScenario writes and stores a new case. Updates are published under progressID when it is not empty.
func (e *Engine) GenerateScenario(
	ctx context.Context,
	premise string,
	difficulty models.Difficulty,
	progressID string,
) (models.Summary, error) {
	ctx = logging.WithAttrs(ctx, slog.String("progress_id", progressID))
	if e.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.GenerationTimeout)
		defer cancel()
	}
	reporter := progress.For(e.reporter, progressID)

	c, err := e.generator.Generate(ctx, premise, difficulty, reporter)
	if err != nil {
		return models.Summary{}, errors.Wrap(err, "generate scenario")
	}

	progress.InitializingGame(reporter)
	if err = e.cases.Create(ctx, c); err != nil {
		progress.Error(reporter, err)
		return models.Summary{}, errors.Wrap(err, "store generated case", slog.String("case_id", c.ID))
	}
	progress.Complete(reporter)

	return c.Summary(), nil
}

// QuickStart returns the canonical case without calling the text generation backend. The case is stored once per
// process; concurrent callers share that write.
func (e *Engine) QuickStart(ctx context.Context) (models.Summary, error) {
	if c := e.canonical.Load(); c != nil {
		return c.Summary(), nil
	}
	v, err, _ := e.quickStart.Do(scenario.CanonicalCaseID, func() (any, error) {
		if c := e.canonical.Load(); c != nil {
			return c, nil
		}
		c, err := scenario.QuickStart()
		if err != nil {
			return nil, errors.Wrap(err, "load canonical case")
		}
		if err = e.cases.UpsertCanonical(context.WithoutCancel(ctx), c); err != nil {
			return nil, errors.Wrap(err, "store canonical case")
		}
		e.canonical.Store(c)
		e.logger.LogAttrs(ctx, slog.LevelInfo, "canonical case ready", slog.String("case_id", c.ID))
		return c, nil
	})
	if err != nil {
		return models.Summary{}, err //nolint:wrapcheck // wrapped inside the singleflight function
	}
	c, _ := v.(*models.Case)
	return c.Summary(), nil
}

// Cases lists the stored cases, newest first.
func (e *Engine) Cases(ctx context.Context, limit int) ([]repositories.CaseListing, error) {
	listings, err := e.cases.List(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list cases")
	}
	return listings, nil
}

// StartSession begins a new game of the stored case caseID and returns the session id.
func (e *Engine) StartSession(ctx context.Context, caseID string) (string, error) {
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return "", errors.Wrap(err, "start session")
	}
	id := e.sessions.Create(c)
	e.logger.LogAttrs(ctx, slog.LevelInfo, "session started",
		slog.String("session_id", id), slog.String("case_id", caseID))
	return id, nil
}

// Chat sends the player's message to one persona.
//
// The backend is called without holding the session lock. Session state only changes once a reply exists, so a
// failed turn leaves the session exactly as it was. Note extraction is best effort and never fails the turn.
func (e *Engine) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	ctx = logging.WithAttrs(ctx, slog.String("session_id", req.SessionID), slog.String("persona_id", req.PersonaID))
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return ChatResponse{}, errors.Wrap(ErrEmptyMessage, "chat")
	}

	// Update rather than View: the turn counts as activity so that the reaper leaves the session alone while the
	// backend is busy.
	var turn persona.Turn
	err := e.sessions.Update(req.SessionID, func(s *models.Session) error {
		p, err := Route(s, req.PersonaID)
		if err != nil {
			return err
		}
		history := append([]models.ChatMessage(nil), s.History[p.ID]...)
		if len(history) == 0 {
			history = append(history, req.History...)
		}
		turn = persona.Turn{
			Case:     s.Case,
			Persona:  p,
			State:    s.Personas[p.ID],
			History:  history,
			Question: question,
		}
		return nil
	})
	if err != nil {
		return ChatResponse{}, errors.Wrap(err, "prepare chat turn")
	}

	if e.cfg.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ChatTimeout)
		defer cancel()
	}

	reply, err := e.agent.Respond(ctx, turn)
	if err != nil {
		return ChatResponse{}, errors.Wrap(err, "persona reply")
	}

	extracted := e.extractor.Extract(ctx, turn.Persona.ID, turn.Persona.Name, question, reply)
	if extracted.Err != nil {
		e.logger.LogAttrs(ctx, slog.LevelWarn, "note extraction failed", errors.SlogError(extracted.Err))
	}

	response := ChatResponse{
		PersonaID:    turn.Persona.ID,
		PersonaName:  turn.Persona.Name,
		Reply:        reply,
		RevealedClue: nil,
		NewNotes:     extracted.Notes,
		Notes:        nil,
	}
	if response.NewNotes == nil {
		response.NewNotes = []models.AutoNote{}
	}
	err = e.sessions.Update(req.SessionID, func(s *models.Session) error {
		now := e.now()
		id := turn.Persona.ID
		response.RevealedClue = clues.Evaluate(s, id, clues.Exchange(question, reply), now)
		s.History[id] = append(s.History[id],
			models.ChatMessage{Role: models.ChatRoleUser, Content: question, At: now},
			models.ChatMessage{Role: models.ChatRoleAssistant, Content: reply, At: now},
		)
		s.Notes[id] = append(s.Notes[id], response.NewNotes...)

		state := s.Personas[id]
		state.InterrogationCount++
		state.Pressure = max(state.Pressure, persona.Pressure(state.InterrogationCount))
		s.Personas[id] = state

		response.Notes = s.NotesCopy()
		return nil
	})
	if err != nil {
		return ChatResponse{}, errors.Wrap(err, "record chat turn")
	}

	attrs := []slog.Attr{slog.Int("new_notes", len(response.NewNotes))}
	if response.RevealedClue != nil {
		attrs = append(attrs, slog.String("clue_id", response.RevealedClue.ID))
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "chat turn recorded", attrs...)
	return response, nil
}

// Personas lists the public roster of a stored case.
func (e *Engine) Personas(ctx context.Context, caseID string) ([]models.PublicPersona, error) {
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "list personas")
	}
	return c.PublicPersonas(), nil
}

// SessionSnapshot returns a detached copy of a session's state.
func (e *Engine) SessionSnapshot(sessionID string) (models.SessionSnapshot, error) {
	snapshot, err := e.sessions.Snapshot(sessionID)
	if err != nil {
		return models.SessionSnapshot{}, errors.Wrap(err, "session snapshot")
	}
	return snapshot, nil
}

// Solution reveals the ground truth of a stored case. It exists for debugging and must not reach players.
func (e *Engine) Solution(ctx context.Context, caseID string) (models.Solution, error) {
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return models.Solution{}, errors.Wrap(err, "solution")
	}
	return c.Solution, nil
}

// PersonaKnowledge returns what every persona of caseID knows, secrets included.
func (e *Engine) PersonaKnowledge(ctx context.Context, caseID string) ([]models.PersonaKnowledge, error) {
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "persona knowledge")
	}
	return c.Knowledge(), nil
}

// Accuse settles the game of sessionID by naming accusedID as the murderer.
func (e *Engine) Accuse(ctx context.Context, sessionID, accusedID string) (Verdict, error) {
	var verdict Verdict
	err := e.sessions.Update(sessionID, func(s *models.Session) error {
		var err error
		verdict, err = Resolve(s, accusedID)
		return err
	})
	if err != nil {
		return Verdict{}, errors.Wrap(err, "accuse", slog.String("session_id", sessionID))
	}
	e.logger.LogAttrs(ctx, slog.LevelInfo, "accusation resolved",
		slog.String("session_id", sessionID),
		slog.String("accused_id", accusedID),
		slog.Bool("correct", verdict.Correct))
	return verdict, nil
}

// ResetSession discards a session. Starting a new session for the same case begins the game from scratch.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) error {
	if err := e.sessions.Delete(sessionID); err != nil {
		return errors.Wrap(err, "reset session")
	}
	e.logger.LogAttrs(ctx, slog.LevelInfo, "session reset", slog.String("session_id", sessionID))
	return nil
}
