package investigation

import (
	"fmt"
	"log/slog"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
)

// Verdict is the outcome of an accusation.
type Verdict struct {
	Correct bool                 `json:"correct"`
	Status  models.SessionStatus `json:"status"`
	Message string               `json:"message"`
}

// Resolve settles the case by comparing accusedID with the culprit and moves the session to its terminal state.
//
// It mutates s and must run while the session lock is held. Sessions that already left the active state are never
// resolved again, whoever is named.
func Resolve(s *models.Session, accusedID string) (Verdict, error) {
	if s.Status != models.SessionStatusActive {
		return Verdict{}, errors.Wrap(ErrSessionAlreadyResolved, "resolve accusation",
			slog.String("session_id", s.ID), slog.String("status", string(s.Status)))
	}
	accused, ok := s.Case.Persona(accusedID)
	if !ok {
		return Verdict{}, errors.Wrap(ErrUnknownPersona, "resolve accusation", slog.String("persona_id", accusedID))
	}

	solution := s.Case.Solution
	culpritName := solution.CulpritID
	if culprit, found := s.Case.Persona(solution.CulpritID); found {
		culpritName = culprit.Name
	}

	s.AccusedID = accusedID
	if accusedID == solution.CulpritID {
		s.Status = models.SessionStatusSolved
		return Verdict{
			Correct: true,
			Status:  s.Status,
			Message: fmt.Sprintf("Case solved! %s murdered %s.\n\nMotive: %s\n\nWeapon: %s",
				accused.Name, s.Case.Victim.Name, solution.Motive, solution.Weapon),
		}, nil
	}

	s.Status = models.SessionStatusFailed
	return Verdict{
		Correct: false,
		Status:  s.Status,
		Message: fmt.Sprintf("Wrong! %s is innocent. The murderer was %s.\n\nMotive: %s\n\nWeapon: %s",
			accused.Name, culpritName, solution.Motive, solution.Weapon),
	}, nil
}
