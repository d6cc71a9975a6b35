package sqlite

import (
	"context"
	"io"
	"testing"
	"testing/fstest"

	"github.com/myrjola/sheerluck-engine/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		runs           [][]string
		testQueries    []string
		failQueries    []string
		wantVersion    int
		wantMigrateErr bool
	}{
		{
			name:        "no migrations",
			runs:        [][]string{{}},
			testQueries: []string{"SELECT * FROM sqlite_schema"},
			wantVersion: 0,
		},
		{
			name:        "create table",
			runs:        [][]string{{"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"}},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')", "SELECT * FROM test"},
			wantVersion: 1,
		},
		{
			name: "only pending migrations run",
			runs: [][]string{
				{"CREATE TABLE test (id INTEGER PRIMARY KEY)"},
				// Rerunning the first script would fail because the table exists.
				{"CREATE TABLE test (id INTEGER PRIMARY KEY)", "ALTER TABLE test ADD COLUMN name TEXT"},
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantVersion: 2,
		},
		{
			name: "failing migration is rolled back",
			runs: [][]string{
				{"CREATE TABLE test (id INTEGER PRIMARY KEY)", "CREATE TABLE half (id INTEGER); SELECT * FROM missing"},
			},
			testQueries:    []string{"SELECT * FROM test"},
			failQueries:    []string{"SELECT * FROM half"},
			wantVersion:    1,
			wantMigrateErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, db.Close()) })

			// Start from an empty schema to test the migration mechanism in isolation.
			_, err = db.ReadWrite.ExecContext(ctx, "DROP TABLE cases; DROP TABLE sessions; PRAGMA user_version = 0")
			require.NoError(t, err)

			var migrateErr error
			for _, migrations := range tt.runs {
				if migrateErr = db.migrate(ctx, migrations); migrateErr != nil {
					break
				}
			}
			if tt.wantMigrateErr {
				require.Error(t, migrateErr)
			} else {
				require.NoError(t, migrateErr)
			}

			var version int
			require.NoError(t, db.ReadWrite.GetContext(ctx, &version, "PRAGMA user_version"))
			require.Equal(t, tt.wantVersion, version)

			for _, query := range tt.testQueries {
				_, err = db.ReadWrite.ExecContext(ctx, query)
				require.NoError(t, err, query)
			}
			for _, query := range tt.failQueries {
				_, err = db.ReadWrite.ExecContext(ctx, query)
				require.Error(t, err, query)
			}
		})
	}
}

func TestDatabase_migrate_newerSchema(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	require.Error(t, db.migrate(ctx, []string{"SELECT 1"}), "embedded schema has more than one migration")
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte("second")},
		"migrations/0001_a.sql": {Data: []byte("first")},
		"migrations/README.md":  {Data: []byte("ignored")},
	}
	migrations, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, migrations)

	embedded, err := loadMigrations(migrationFS)
	require.NoError(t, err)
	require.Len(t, embedded, 2)
}

func TestNewDatabase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	var tables []string
	require.NoError(t, db.ReadOnly.SelectContext(ctx, &tables,
		"SELECT name FROM sqlite_schema WHERE type = 'table' ORDER BY name"))
	require.Equal(t, []string{"cases", "sessions"}, tables)

	_, err = db.ReadOnly.ExecContext(ctx, "DELETE FROM cases")
	require.Error(t, err, "read-only pool accepted a write")

	require.NoError(t, db.Optimize(ctx))
}
