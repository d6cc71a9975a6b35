package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/errors"
)

// Optimize runs PRAGMA optimize. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) Optimize(ctx context.Context) error {
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return errors.Wrap(err, "optimize database")
	}
	return nil
}

// StartOptimizer runs Optimize every interval until ctx is cancelled. It blocks, so call it in a goroutine.
func (db *Database) StartOptimizer(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		start := time.Now()
		if err := db.Optimize(ctx); err != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database",
			slog.Duration("duration", time.Since(start)))
	}
}
