package investigation

import (
	"log/slog"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
)

// Route looks up the persona a message is addressed to. The caller names the persona explicitly, nothing is inferred.
func Route(s *models.Session, personaID string) (*models.Persona, error) {
	p, ok := s.Case.Persona(personaID)
	if !ok {
		return nil, errors.Wrap(ErrUnknownPersona, "route message",
			slog.String("persona_id", personaID), slog.String("case_id", s.CaseID))
	}
	return p, nil
}
