package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/envstruct"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/investigation"
	"github.com/myrjola/sheerluck-engine/internal/logging"
	"github.com/myrjola/sheerluck-engine/internal/pprofserver"
	"github.com/myrjola/sheerluck-engine/internal/progress"
	"github.com/myrjola/sheerluck-engine/internal/repositories"
	"github.com/myrjola/sheerluck-engine/internal/session"
	"github.com/myrjola/sheerluck-engine/internal/sqlite"
)

type application struct {
	logger         *slog.Logger
	engine         *investigation.Engine
	progress       *progress.Tracker
	sessionManager *scs.SessionManager
	cfg            config
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"SHEERLUCK_ADDR" envDefault:"localhost:4000"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL     string `env:"SHEERLUCK_SQLITE_URL" envDefault:"./sheerluck.sqlite3"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL string `env:"SHEERLUCK_OPENAI_BASE_URL" envDefault:""`
	Model         string `env:"SHEERLUCK_MODEL" envDefault:"gpt-4o-mini"`
	// GenerationTimeout bounds a whole scenario generation including retries.
	GenerationTimeout time.Duration `env:"SHEERLUCK_GENERATION_TIMEOUT" envDefault:"90s"`
	ChatTimeout       time.Duration `env:"SHEERLUCK_CHAT_TIMEOUT" envDefault:"30s"`
	// SessionLifetime is how long an idle investigation is kept in memory.
	SessionLifetime time.Duration `env:"SHEERLUCK_SESSION_LIFETIME" envDefault:"2h"`
	// Debug exposes the solution endpoint. Never enable it for players.
	Debug bool `env:"SHEERLUCK_DEBUG" envDefault:"false"`
	// PprofAddr starts the pprof server on the given loopback address when set, e.g. ":6060".
	PprofAddr string `env:"SHEERLUCK_PPROF_ADDR" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
		db  *sqlite.Database
	)

	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if cfg.OpenAIAPIKey == "" {
		logger.LogAttrs(ctx, slog.LevelWarn, "OPENAI_API_KEY not set, only the quick-start case will be playable")
	}

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	go db.StartOptimizer(ctx, 24*time.Hour) //nolint:mnd // daily

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, time.Hour)
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Name = "sheerluck_session"
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	sessions := session.NewStore(cfg.SessionLifetime, logger)
	go sessions.StartReaper(ctx, time.Minute)

	tracker := progress.NewTracker(logger)
	go tracker.Start(ctx)

	completer := ai.NewClient(ai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.Model,
	}, logger)
	engine := investigation.NewEngine(
		completer,
		repositories.NewCaseRepository(db, logger),
		sessions,
		tracker,
		investigation.Config{
			GenerationTimeout: cfg.GenerationTimeout,
			ChatTimeout:       cfg.ChatTimeout,
		},
		logger,
	)

	app := application{
		logger:         logger,
		engine:         engine,
		progress:       tracker,
		sessionManager: sessionManager,
		cfg:            cfg,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}

	return nil
}

func main() {
	ctx := context.Background()
	logger := logging.New(os.Stdout, slog.LevelDebug)

	// .env is optional, the environment always wins.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
