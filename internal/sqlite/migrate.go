package sqlite

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/sheerluck-engine/internal/errors"
)

// loadMigrations reads the migration scripts from fsys in file name order.
func loadMigrations(fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "glob migrations")
	}
	sort.Strings(names)
	migrations := make([]string, 0, len(names))
	for _, name := range names {
		var script []byte
		if script, err = fs.ReadFile(fsys, name); err != nil {
			return nil, errors.Wrap(err, "read migration", slog.String("name", name))
		}
		migrations = append(migrations, string(script))
	}
	return migrations, nil
}

// migrate applies the migrations the database has not seen yet.
//
// The schema version is tracked in PRAGMA user_version: migration i (zero based) brings the database to version i+1.
// Each migration runs in its own transaction together with the version bump so that a failing script leaves the
// database at the previous version.
func (db *Database) migrate(ctx context.Context, migrations []string) error {
	var (
		version int
		err     error
	)
	if err = db.ReadWrite.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return errors.Wrap(err, "read schema version")
	}
	if version > len(migrations) {
		return errors.New("database schema is newer than this binary",
			slog.Int("version", version), slog.Int("known", len(migrations)))
	}

	for i := version; i < len(migrations); i++ {
		if err = db.applyMigration(ctx, i+1, migrations[i]); err != nil {
			return errors.Wrap(err, "apply migration", slog.Int("version", i+1))
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "applied migration", slog.Int("version", i+1))
	}
	return nil
}

func (db *Database) applyMigration(ctx context.Context, version int, script string) error {
	var (
		tx  *sqlx.Tx
		err error
	)
	if tx, err = db.ReadWrite.BeginTxx(ctx, nil); err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		// Rollback after a successful commit returns sql.ErrTxDone, which is expected.
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, script); err != nil {
		return errors.Wrap(err, "execute script")
	}
	// PRAGMA does not accept bound parameters.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return errors.Wrap(err, "bump schema version")
	}
	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}
