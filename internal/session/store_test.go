package session_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/myrjola/sheerluck-engine/internal/session"
	"github.com/myrjola/sheerluck-engine/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCase() *models.Case {
	return &models.Case{
		ID: "case",
		Personas: []models.Persona{
			{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"},
		},
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStore(t *testing.T, lifetime time.Duration) (*session.Store, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := session.NewStore(lifetime, testhelpers.NewLogger(io.Discard))
	store.SetClock(c.Now)
	return store, c
}

func TestStore_lifecycle(t *testing.T) {
	store, _ := newStore(t, time.Hour)

	id := store.Create(testCase())
	require.NotEmpty(t, id)
	require.Equal(t, 1, store.Len())

	snapshot, err := store.Snapshot(id)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusActive, snapshot.Status)
	require.Equal(t, "case", snapshot.CaseID)
	require.Len(t, snapshot.Personas, 4)

	require.NoError(t, store.Delete(id))
	require.Equal(t, 0, store.Len())

	_, err = store.Snapshot(id)
	require.ErrorIs(t, err, session.ErrUnknownSession)
	require.ErrorIs(t, store.Delete(id), session.ErrUnknownSession)
	require.ErrorIs(t, store.Update(id, func(*models.Session) error { return nil }), session.ErrUnknownSession)
}

func TestStore_Update(t *testing.T) {
	store, c := newStore(t, time.Hour)
	id := store.Create(testCase())

	c.Advance(time.Minute)
	errBoom := errors.New("boom")
	err := store.Update(id, func(s *models.Session) error {
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	snapshot, err := store.Snapshot(id)
	require.NoError(t, err)
	require.Equal(t, snapshot.CreatedAt, snapshot.LastActivity, "failed update must not refresh activity")

	err = store.Update(id, func(s *models.Session) error {
		s.History["a"] = append(s.History["a"], models.ChatMessage{Role: models.ChatRoleUser, Content: "hi", At: c.Now()})
		return nil
	})
	require.NoError(t, err)
	snapshot, err = store.Snapshot(id)
	require.NoError(t, err)
	require.Equal(t, c.Now(), snapshot.LastActivity)
	require.Equal(t, 1, snapshot.MessageCount)
}

func TestStore_concurrentUpdatesAreSerialized(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	id := store.Create(testCase())

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(id, func(s *models.Session) error {
				state := s.Personas["a"]
				state.InterrogationCount++
				s.Personas["a"] = state
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snapshot, err := store.Snapshot(id)
	require.NoError(t, err)
	require.Equal(t, 100, snapshot.Personas["a"].InterrogationCount)
}

func TestStore_Reap(t *testing.T) {
	store, c := newStore(t, 30*time.Minute)
	idle := store.Create(testCase())
	c.Advance(20 * time.Minute)
	busy := store.Create(testCase())

	c.Advance(15 * time.Minute)
	require.Equal(t, 1, store.Reap())

	_, err := store.Snapshot(idle)
	require.ErrorIs(t, err, session.ErrUnknownSession)
	_, err = store.Snapshot(busy)
	require.NoError(t, err)
}

func TestStore_Reap_disabled(t *testing.T) {
	store, c := newStore(t, 0)
	store.Create(testCase())
	c.Advance(24 * time.Hour)
	require.Equal(t, 0, store.Reap())
	require.Equal(t, 1, store.Len())
}

func TestStore_StartReaper(t *testing.T) {
	store, c := newStore(t, time.Minute)
	store.Create(testCase())
	c.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.StartReaper(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
