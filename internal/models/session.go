package models

import "time"

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusSolved SessionStatus = "solved"
	SessionStatusFailed SessionStatus = "failed"
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one line of a conversation with a single persona.
type ChatMessage struct {
	Role    ChatRole  `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// PersonaState holds the dynamic attributes of a persona within one session.
type PersonaState struct {
	InterrogationCount int `json:"interrogation_count"`
	// Pressure grows with the interrogation count and never decreases.
	Pressure float64 `json:"pressure"`
}

// RevealedClue records when a clue was disclosed and through which persona.
type RevealedClue struct {
	ClueID     string    `json:"clue_id"`
	PersonaID  string    `json:"persona_id"`
	Text       string    `json:"text"`
	RevealedAt time.Time `json:"revealed_at"`
}

// Session is the mutable state of one playthrough. It is owned by the session store and must only be touched while
// the store holds the session's lock.
type Session struct {
	ID           string
	CaseID       string
	Case         *Case
	Status       SessionStatus
	AccusedID    string
	History      map[string][]ChatMessage
	Revealed     map[string]bool
	RevealLog    []RevealedClue
	Notes        map[string][]AutoNote
	Personas     map[string]PersonaState
	CreatedAt    time.Time
	LastActivity time.Time
}

// NewSession initializes an active session for c.
func NewSession(id string, c *Case, now time.Time) *Session {
	personas := make(map[string]PersonaState, len(c.Personas))
	for _, p := range c.Personas {
		personas[p.ID] = PersonaState{}
	}
	return &Session{
		ID:           id,
		CaseID:       c.ID,
		Case:         c,
		Status:       SessionStatusActive,
		History:      map[string][]ChatMessage{},
		Revealed:     map[string]bool{},
		Notes:        map[string][]AutoNote{},
		Personas:     personas,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// SessionSnapshot is a detached copy of a session for diagnostics and API responses.
type SessionSnapshot struct {
	ID           string                   `json:"session_id"`
	CaseID       string                   `json:"case_id"`
	Status       SessionStatus            `json:"status"`
	AccusedID    string                   `json:"accused_id,omitempty"`
	History      map[string][]ChatMessage `json:"history"`
	Revealed     []RevealedClue           `json:"revealed_clues"`
	Notes        map[string][]AutoNote    `json:"notes"`
	Personas     map[string]PersonaState  `json:"persona_states"`
	MessageCount int                      `json:"message_count"`
	CreatedAt    time.Time                `json:"created_at"`
	LastActivity time.Time                `json:"last_activity"`
}

// Snapshot deep-copies s so that the result can be used after the session lock is released.
func (s *Session) Snapshot() SessionSnapshot {
	history := make(map[string][]ChatMessage, len(s.History))
	messageCount := 0
	for id, messages := range s.History {
		history[id] = append([]ChatMessage(nil), messages...)
		messageCount += len(messages)
	}
	personas := make(map[string]PersonaState, len(s.Personas))
	for id, state := range s.Personas {
		personas[id] = state
	}
	return SessionSnapshot{
		ID:           s.ID,
		CaseID:       s.CaseID,
		Status:       s.Status,
		AccusedID:    s.AccusedID,
		History:      history,
		Revealed:     append([]RevealedClue(nil), s.RevealLog...),
		Notes:        s.NotesCopy(),
		Personas:     personas,
		MessageCount: messageCount,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

// NotesCopy returns the notes of every persona without aliasing the session's slices.
func (s *Session) NotesCopy() map[string][]AutoNote {
	notes := make(map[string][]AutoNote, len(s.Notes))
	for id, n := range s.Notes {
		notes[id] = append([]AutoNote(nil), n...)
	}
	return notes
}
