package models

import "time"

// MaxNotesPerTurn caps how many notes one exchange may produce.
const MaxNotesPerTurn = 3

type NoteCategory string

const (
	NoteCategoryAlibi         NoteCategory = "alibi"
	NoteCategoryMotive        NoteCategory = "motive"
	NoteCategoryRelationship  NoteCategory = "relationship"
	NoteCategoryObservation   NoteCategory = "observation"
	NoteCategoryContradiction NoteCategory = "contradiction"
)

// NoteCategories lists every valid category in display order.
var NoteCategories = []NoteCategory{
	NoteCategoryAlibi,
	NoteCategoryMotive,
	NoteCategoryRelationship,
	NoteCategoryObservation,
	NoteCategoryContradiction,
}

// Valid reports whether c is one of the fixed categories.
func (c NoteCategory) Valid() bool {
	switch c {
	case NoteCategoryAlibi, NoteCategoryMotive, NoteCategoryRelationship, NoteCategoryObservation,
		NoteCategoryContradiction:
		return true
	default:
		return false
	}
}

// AutoNote is an investigation note distilled from one exchange with a persona.
type AutoNote struct {
	ID        string       `json:"id"`
	PersonaID string       `json:"persona_id"`
	Text      string       `json:"text"`
	Category  NoteCategory `json:"category"`
	CreatedAt time.Time    `json:"created_at"`
	// Source is the persona answer the note was derived from.
	Source string `json:"source"`
}
