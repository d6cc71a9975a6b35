// Package session keeps the in-memory state of every running investigation.
//
// Each session has its own mutex. All reads and writes of a session go through [Store.Update] or [Store.View], which
// hold that mutex for the duration of the callback, so chat turns and accusations for one session are serialized while
// different sessions proceed in parallel.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
)

var ErrUnknownSession = errors.NewSentinel("unknown session")

type entry struct {
	mu      sync.Mutex
	session *models.Session
	// deleted is set under mu when the entry is removed so that callers that looked it up before removal notice.
	deleted bool
}

type Store struct {
	logger   *slog.Logger
	lifetime time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewStore creates a store that expires sessions idle for longer than lifetime. A zero lifetime disables expiry.
func NewStore(lifetime time.Duration, logger *slog.Logger) *Store {
	return &Store{
		logger:   logger.With(slog.String("source", "session.Store")),
		lifetime: lifetime,
		now:      time.Now,
		sessions: map[string]*entry{},
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Create starts a new active session for c and returns its id.
func (s *Store) Create(c *models.Case) string {
	id := uuid.NewString()
	e := &entry{session: models.NewSession(id, c, s.now())}

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	return id
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(ErrUnknownSession, "lookup session", slog.String("session_id", id))
	}
	return e, nil
}

// Update runs fn with exclusive access to the session. The session's last activity is refreshed when fn succeeds.
// The error returned by fn is passed through unchanged.
func (s *Store) Update(id string, fn func(*models.Session) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return errors.Wrap(ErrUnknownSession, "session removed", slog.String("session_id", id))
	}
	if err = fn(e.session); err != nil {
		return err
	}
	e.session.LastActivity = s.now()
	return nil
}

// View runs fn with exclusive access to the session without touching its activity time. fn must not mutate the
// session.
func (s *Store) View(id string, fn func(*models.Session) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return errors.Wrap(ErrUnknownSession, "session removed", slog.String("session_id", id))
	}
	return fn(e.session)
}

// Snapshot returns a detached copy of the session.
func (s *Store) Snapshot(id string) (models.SessionSnapshot, error) {
	var snapshot models.SessionSnapshot
	err := s.View(id, func(session *models.Session) error {
		snapshot = session.Snapshot()
		return nil
	})
	return snapshot, err
}

// Delete removes the session. Deleting an unknown session returns ErrUnknownSession.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return errors.Wrap(ErrUnknownSession, "delete session", slog.String("session_id", id))
	}
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap removes sessions that have been idle for longer than the store's lifetime and returns how many were removed.
func (s *Store) Reap() int {
	if s.lifetime <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.lifetime)

	s.mu.RLock()
	var expired []string
	for id, e := range s.sessions {
		// TryLock skips sessions that are busy with a chat turn; they are active by definition.
		if !e.mu.TryLock() {
			continue
		}
		if e.session.LastActivity.Before(cutoff) {
			expired = append(expired, id)
		}
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		if err := s.Delete(id); err == nil {
			removed++
		}
	}
	return removed
}

// StartReaper removes idle sessions every interval until ctx is cancelled. It blocks, so call it in a goroutine.
func (s *Store) StartReaper(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			if removed := s.Reap(); removed > 0 {
				s.logger.LogAttrs(ctx, slog.LevelInfo, "expired idle sessions",
					slog.Int("removed", removed), slog.Int("remaining", s.Len()))
			}
		}
	}
}
