package repositories_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/myrjola/sheerluck-engine/internal/sqlite"
	"github.com/myrjola/sheerluck-engine/internal/testhelpers"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	db, err := sqlite.NewDatabase(context.Background(), ":memory:", testhelpers.NewLogger(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Fatal(err)
		}
	})
	return db
}

// newBenchmarkDB creates a file backed database for benchmarking purposes.
func newBenchmarkDB(b *testing.B) *sqlite.Database {
	b.Helper()
	path := filepath.Join(b.TempDir(), "benchmark.sqlite")
	db, err := sqlite.NewDatabase(context.Background(), path, testhelpers.NewLogger(io.Discard))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() {
		if err = db.Close(); err != nil {
			b.Fatal(err)
		}
		_ = os.Remove(fmt.Sprintf("%s-shm", path))
		_ = os.Remove(fmt.Sprintf("%s-wal", path))
	})
	return db
}
