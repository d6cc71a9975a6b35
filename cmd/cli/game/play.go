package game

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/investigation"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/spf13/cobra"
)

const replHelp = `Commands:
  /talk <persona-id>    question someone else
  /who                  list the suspects
  /notes                show your notes
  /clues                show the clues you found
  /accuse <persona-id>  name the murderer and end the game
  /quit                 leave
Anything else is asked to the person you are talking to.`

var Play = &cobra.Command{
	Use:     "play [case-id]",
	GroupID: "game",
	Short:   "Investigate a case in the terminal",
	Long:    `Starts a game of the given case. Without a case id the built-in quick-start case is played.`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment(cmd, nil)
		if err != nil {
			return err
		}
		defer env.close()

		ctx := cmd.Context()
		var caseID string
		if len(args) == 1 {
			caseID = args[0]
		} else {
			var summary models.Summary
			if summary, err = env.engine.QuickStart(ctx); err != nil {
				return errors.Wrap(err, "quick-start")
			}
			printSummary(cmd.OutOrStdout(), summary)
			caseID = summary.CaseID
		}

		r, err := newREPL(ctx, env.engine, caseID, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return r.run(ctx, cmd.InOrStdin())
	},
}

// repl is an interactive investigation over a line-oriented terminal.
type repl struct {
	engine    *investigation.Engine
	sessionID string
	personas  []models.PublicPersona
	current   *models.PublicPersona
	out       io.Writer
}

func newREPL(ctx context.Context, engine *investigation.Engine, caseID string, out io.Writer) (*repl, error) {
	personas, err := engine.Personas(ctx, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "list personas")
	}
	sessionID, err := engine.StartSession(ctx, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "start session")
	}
	return &repl{
		engine:    engine,
		sessionID: sessionID,
		personas:  personas,
		current:   &personas[0],
		out:       out,
	}, nil
}

func (r *repl) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// run reads commands from in until it is exhausted, the player quits or the game ends with an accusation.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	r.printf("\n%s\n\nYou are talking to %s.\n", replHelp, r.current.Name)
	scanner := bufio.NewScanner(in)
	for {
		r.printf("%s> ", r.current.ID)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		done, err := r.handle(ctx, line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return errors.Wrap(scanner.Err(), "read input")
}

// handle executes one input line. It returns true when the game is over.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		r.printf("%s\n", replHelp)
	case "/who":
		for _, p := range r.personas {
			r.printf("  %s %s (%s): %s\n", p.Emoji, p.Name, p.ID, p.Description)
		}
	case "/talk":
		p, ok := r.persona(arg)
		if !ok {
			r.printf("Nobody called %q is here. Try /who.\n", arg)
			return false, nil
		}
		r.current = p
		r.printf("You are talking to %s.\n", p.Name)
	case "/notes":
		return false, r.printNotes()
	case "/clues":
		return false, r.printClues()
	case "/accuse":
		return r.accuse(ctx, arg)
	default:
		if strings.HasPrefix(command, "/") {
			r.printf("Unknown command %s. Try /help.\n", command)
			return false, nil
		}
		return false, r.chat(ctx, line)
	}
	return false, nil
}

func (r *repl) persona(id string) (*models.PublicPersona, bool) {
	for i := range r.personas {
		if r.personas[i].ID == id {
			return &r.personas[i], true
		}
	}
	return nil, false
}

func (r *repl) chat(ctx context.Context, message string) error {
	response, err := r.engine.Chat(ctx, investigation.ChatRequest{
		SessionID: r.sessionID,
		PersonaID: r.current.ID,
		Message:   message,
		History:   nil,
	})
	if errors.Is(err, investigation.ErrUpstreamUnavailable) {
		r.printf("%s does not answer right now. Try again.\n", r.current.Name)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "chat", slog.String("persona_id", r.current.ID))
	}
	r.printf("%s %s: %s\n", r.current.Emoji, response.PersonaName, response.Reply)
	if response.RevealedClue != nil {
		r.printf("\n🔎 Clue found: %s\n", response.RevealedClue.Text)
	}
	for _, n := range response.NewNotes {
		r.printf("📝 [%s] %s\n", n.Category, n.Text)
	}
	return nil
}

func (r *repl) accuse(ctx context.Context, personaID string) (bool, error) {
	verdict, err := r.engine.Accuse(ctx, r.sessionID, personaID)
	switch {
	case errors.Is(err, investigation.ErrUnknownPersona):
		r.printf("Nobody called %q is here. Try /who.\n", personaID)
		return false, nil
	case errors.Is(err, investigation.ErrSessionAlreadyResolved):
		r.printf("This case is already closed.\n")
		return true, nil
	case err != nil:
		return false, errors.Wrap(err, "accuse")
	}
	r.printf("\n%s\n", verdict.Message)
	return true, nil
}

func (r *repl) printNotes() error {
	snapshot, err := r.engine.SessionSnapshot(r.sessionID)
	if err != nil {
		return errors.Wrap(err, "snapshot")
	}
	for _, p := range r.personas {
		notes := snapshot.Notes[p.ID]
		if len(notes) == 0 {
			continue
		}
		r.printf("%s %s\n", p.Emoji, p.Name)
		for _, n := range notes {
			r.printf("  [%s] %s\n", n.Category, n.Text)
		}
	}
	return nil
}

func (r *repl) printClues() error {
	snapshot, err := r.engine.SessionSnapshot(r.sessionID)
	if err != nil {
		return errors.Wrap(err, "snapshot")
	}
	if len(snapshot.Revealed) == 0 {
		r.printf("No clues yet. Keep asking.\n")
	}
	for _, c := range snapshot.Revealed {
		r.printf("  %s (from %s)\n", c.Text, c.PersonaID)
	}
	return nil
}
