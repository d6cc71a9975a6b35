// Package clues decides when a persona lets a clue slip.
//
// Matching is literal: a clue fires when any of its keywords is contained in the normalized text of the exchange
// (the player's question followed by the persona's reply). Normalization applies Unicode NFKC, full case folding and
// whitespace collapsing so that "9 PM", "9 pm" and "9 pm" all match the keyword "9 pm". Paraphrases do not match.
package clues

import (
	"strings"
	"time"

	"github.com/myrjola/sheerluck-engine/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize prepares text for keyword containment checks.
func Normalize(s string) string {
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}

// Matches reports whether any non-blank keyword is contained in the already normalized exchange.
func Matches(normalizedExchange string, keywords []string) bool {
	for _, keyword := range keywords {
		k := Normalize(keyword)
		if k == "" {
			continue
		}
		if strings.Contains(normalizedExchange, k) {
			return true
		}
	}
	return false
}

// Exchange joins a question and the reply into the text clue triggers are tested against.
func Exchange(question, reply string) string {
	return question + "\n" + reply
}

// Evaluate tests the hidden clues of personaID against exchange and reveals the first one that matches.
//
// It mutates s and must run while the session lock is held. A clue that is already revealed is skipped, so calling
// Evaluate any number of times with the same exchange reveals a clue at most once. Returns nil when nothing new was
// revealed.
func Evaluate(s *models.Session, personaID, exchange string, now time.Time) *models.Clue {
	normalized := Normalize(exchange)
	for _, clue := range s.Case.CluesFor(personaID) {
		if s.Revealed[clue.ID] {
			continue
		}
		if !Matches(normalized, clue.Keywords) {
			continue
		}
		s.Revealed[clue.ID] = true
		s.RevealLog = append(s.RevealLog, models.RevealedClue{
			ClueID:     clue.ID,
			PersonaID:  personaID,
			Text:       clue.Text,
			RevealedAt: now,
		})
		revealed := clue
		return &revealed
	}
	return nil
}
