package investigation

import (
	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/repositories"
	"github.com/myrjola/sheerluck-engine/internal/scenario"
	"github.com/myrjola/sheerluck-engine/internal/session"
)

var (
	ErrUnknownPersona         = errors.NewSentinel("unknown persona")
	ErrSessionAlreadyResolved = errors.NewSentinel("session already resolved")
	ErrEmptyMessage           = errors.NewSentinel("message must not be empty")

	// Errors raised by the components the engine drives, re-exported so that callers only import this package.
	ErrUnknownSession       = session.ErrUnknownSession
	ErrUnknownCase          = repositories.ErrUnknownCase
	ErrGenerationValidation = scenario.ErrGenerationValidation
	ErrUpstreamUnavailable  = ai.ErrUpstreamUnavailable
)
