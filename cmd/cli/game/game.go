// Package game holds the commands that generate, inspect and play cases.
package game

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/envstruct"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/investigation"
	"github.com/myrjola/sheerluck-engine/internal/logging"
	"github.com/myrjola/sheerluck-engine/internal/progress"
	"github.com/myrjola/sheerluck-engine/internal/repositories"
	"github.com/myrjola/sheerluck-engine/internal/session"
	"github.com/myrjola/sheerluck-engine/internal/sqlite"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "game",
	Title: "Investigations",
}

type config struct {
	SqliteURL         string        `env:"SHEERLUCK_SQLITE_URL" envDefault:"./sheerluck.sqlite3"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL     string        `env:"SHEERLUCK_OPENAI_BASE_URL" envDefault:""`
	Model             string        `env:"SHEERLUCK_MODEL" envDefault:"gpt-4o-mini"`
	GenerationTimeout time.Duration `env:"SHEERLUCK_GENERATION_TIMEOUT" envDefault:"90s"`
	ChatTimeout       time.Duration `env:"SHEERLUCK_CHAT_TIMEOUT" envDefault:"30s"`
}

// environment is everything a command needs to drive the engine.
type environment struct {
	engine *investigation.Engine
	logger *slog.Logger
	close  func()
}

// newEnvironment opens the case database and wires the engine. reporter receives generation progress and may be nil.
func newEnvironment(cmd *cobra.Command, reporter progress.Reporter) (*environment, error) {
	ctx := cmd.Context()
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(cmd.ErrOrStderr(), level)

	var cfg config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		return nil, errors.Wrap(err, "populate config")
	}
	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}

	completer := ai.NewClient(ai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.Model}, logger)
	engine := investigation.NewEngine(
		completer,
		repositories.NewCaseRepository(db, logger),
		// A terminal game lives as long as the process.
		session.NewStore(0, logger),
		reporter,
		investigation.Config{GenerationTimeout: cfg.GenerationTimeout, ChatTimeout: cfg.ChatTimeout},
		logger,
	)
	return &environment{
		engine: engine,
		logger: logger,
		close: func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.LogAttrs(context.Background(), slog.LevelError, "failed to close db", errors.SlogError(closeErr))
			}
		},
	}, nil
}
