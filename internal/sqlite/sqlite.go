package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/random"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Database struct {
	ReadWrite *sqlx.DB
	ReadOnly  *sqlx.DB
	logger    *slog.Logger
}

// NewDatabase connects to the database and applies pending migrations.
//
// It establishes two connection pools, one for read/write operations and one for read-only operations.
// This is a best practice mentioned in https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	var (
		err         error
		readWriteDB *sqlx.DB
		readDB      *sqlx.DB
	)

	// In-memory databases need shared cache mode so that both pools see the same data. Every in-memory database
	// gets a random name so that parallel tests stay isolated. See https://www.sqlite.org/inmemorydb.html.
	inMemoryConfig := ""
	if strings.Contains(url, ":memory:") {
		var (
			randomID     string
			dbNameLength uint = 20
		)
		if randomID, err = random.Letters(dbNameLength); err != nil {
			return nil, errors.Wrap(err, "generate random ID")
		}
		url = randomID
		inMemoryConfig = "&mode=memory&cache=shared"
	}
	commonConfig := strings.Join([]string{
		// Write-ahead logging enables concurrent readers.
		"_journal_mode=wal",
		// Avoids SQLITE_BUSY errors when the database is under load.
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
		"_temp_store=memory",
	}, "&")

	// The options prefixed with underscore '_' are SQLite pragmas documented at https://www.sqlite.org/pragma.html.
	// The options without leading underscore are SQLite URI parameters documented at https://www.sqlite.org/uri.html.
	readWriteConfig := fmt.Sprintf("file:%s?_txlock=immediate&%s%s", url, commonConfig, inMemoryConfig)
	readConfig := fmt.Sprintf("file:%s?_txlock=deferred&_query_only=true&%s%s", url, commonConfig, inMemoryConfig)
	if inMemoryConfig == "" {
		readWriteConfig += "&mode=rwc"
		readConfig += "&mode=ro"
	}

	if readWriteDB, err = sqlx.ConnectContext(ctx, "sqlite3", readWriteConfig); err != nil {
		return nil, errors.Wrap(err, "connect read-write database")
	}
	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)

	db := Database{
		ReadWrite: readWriteDB,
		ReadOnly:  nil,
		logger:    logger.With(slog.String("source", "sqlite.Database")),
	}

	// Migrate before opening the read-only pool, mode=ro fails on a database file that does not exist yet.
	var migrations []string
	if migrations, err = loadMigrations(migrationFS); err != nil {
		return nil, errors.Wrap(err, "load migrations")
	}
	if err = db.migrate(ctx, migrations); err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}

	if readDB, err = sqlx.ConnectContext(ctx, "sqlite3", readConfig); err != nil {
		return nil, errors.Wrap(err, "connect read database")
	}
	maxReadConns := 10
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(time.Hour)
	readDB.SetConnMaxIdleTime(time.Hour)
	db.ReadOnly = readDB

	return &db, nil
}

func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
