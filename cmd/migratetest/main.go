package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/logging"
	"github.com/myrjola/sheerluck-engine/internal/repositories"
	"github.com/myrjola/sheerluck-engine/internal/sqlite"
)

// migratetest opens a copy of the production database, which runs the pending migrations, and checks that the stored
// cases survived.
func main() {
	logger := logging.New(os.Stdout, slog.LevelDebug)
	var (
		err       error
		start     = time.Now()
		sqliteURL string
		ok        bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd // 5 seconds
	defer cancel()

	if sqliteURL, ok = os.LookupEnv("SHEERLUCK_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "SHEERLUCK_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	cases := repositories.NewCaseRepository(db, logger)
	count, err := cases.Count(ctx)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error counting cases", errors.SlogError(err))
		os.Exit(1) //nolint:gocritic // the database is discarded anyway
	}
	if count == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no cases found, something is likely wrong")
		os.Exit(1)
	}
	// Reading a case back exercises the JSON definitions as well as the schema.
	listings, err := cases.List(ctx, 1)
	if err != nil || len(listings) == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "error listing cases", errors.SlogError(err))
		os.Exit(1)
	}
	if _, err = cases.Get(ctx, listings[0].ID); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error reading case", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "case count", slog.Int("count", count))

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
}
