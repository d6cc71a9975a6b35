package repositories_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/myrjola/sheerluck-engine/internal/repositories"
	"github.com/myrjola/sheerluck-engine/internal/scenario"
	"github.com/myrjola/sheerluck-engine/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestCaseRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := repositories.NewCaseRepository(db, testhelpers.NewLogger(io.Discard))

	canonical, err := scenario.QuickStart()
	require.NoError(t, err)

	t.Run("canonical upsert is idempotent", func(t *testing.T) {
		require.NoError(t, repo.UpsertCanonical(ctx, canonical))
		require.NoError(t, repo.UpsertCanonical(ctx, canonical))

		got, err := repo.Get(ctx, scenario.CanonicalCaseID)
		require.NoError(t, err)
		if diff := cmp.Diff(canonical, got); diff != "" {
			t.Fatalf("stored case mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("create and get", func(t *testing.T) {
		generated := *canonical
		generated.ID = "generated-1"
		generated.Name = "A Generated Case"
		require.NoError(t, repo.Create(ctx, &generated))
		require.Error(t, repo.Create(ctx, &generated), "duplicate id accepted")

		got, err := repo.Get(ctx, "generated-1")
		require.NoError(t, err)
		require.Equal(t, "A Generated Case", got.Name)
		require.Len(t, got.Personas, len(canonical.Personas))
	})

	t.Run("unknown case", func(t *testing.T) {
		got, err := repo.Get(ctx, "nonexistent")
		require.ErrorIs(t, err, repositories.ErrUnknownCase)
		require.Nil(t, got)
	})

	t.Run("list and count", func(t *testing.T) {
		count, err := repo.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, count)

		listings, err := repo.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, listings, 2)
		byID := map[string]repositories.CaseListing{}
		for _, l := range listings {
			byID[l.ID] = l
		}
		require.True(t, byID[scenario.CanonicalCaseID].Canonical)
		require.False(t, byID["generated-1"].Canonical)
		require.Equal(t, models.DifficultyMedium, byID["generated-1"].Difficulty)
		require.NotEmpty(t, byID["generated-1"].Created)

		listings, err = repo.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, listings, 1)
	})
}

func Benchmark_CaseRepository(b *testing.B) {
	db := newBenchmarkDB(b)
	repo := repositories.NewCaseRepository(db, testhelpers.NewLogger(io.Discard))
	canonical, err := scenario.QuickStart()
	require.NoError(b, err)

	b.ResetTimer()
	for i := range b.N {
		c := *canonical
		c.ID = fmt.Sprintf("case-%d", i)
		require.NoError(b, repo.Create(context.Background(), &c))
		_, err = repo.Get(context.Background(), c.ID)
		require.NoError(b, err)
	}
}
