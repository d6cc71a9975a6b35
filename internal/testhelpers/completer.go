package testhelpers

import (
	"context"
	"sync"

	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/errors"
)

var ErrNoScriptedResponse = errors.NewSentinel("no scripted response")

type scriptedResponse struct {
	content string
	err     error
}

// ScriptedCompleter is an [ai.Completer] that replays canned responses per request purpose. When the queue of a
// purpose is empty, Handler is consulted and failing that ErrNoScriptedResponse is returned.
type ScriptedCompleter struct {
	// Handler answers requests that have no queued response. It may be nil.
	Handler func(req ai.Request) (string, error)

	mu        sync.Mutex
	responses map[string][]scriptedResponse
	requests  []ai.Request
}

func NewScriptedCompleter() *ScriptedCompleter {
	return &ScriptedCompleter{
		Handler:   nil,
		responses: map[string][]scriptedResponse{},
	}
}

// Push queues content as the next reply for requests with purpose.
func (s *ScriptedCompleter) Push(purpose string, contents ...string) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, content := range contents {
		s.responses[purpose] = append(s.responses[purpose], scriptedResponse{content: content, err: nil})
	}
	return s
}

// PushErr queues err as the next result for requests with purpose.
func (s *ScriptedCompleter) PushErr(purpose string, err error) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[purpose] = append(s.responses[purpose], scriptedResponse{content: "", err: err})
	return s
}

func (s *ScriptedCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	queue := s.responses[req.Purpose]
	if len(queue) > 0 {
		next := queue[0]
		s.responses[req.Purpose] = queue[1:]
		s.mu.Unlock()
		return next.content, next.err
	}
	handler := s.Handler
	s.mu.Unlock()

	if handler != nil {
		return handler(req)
	}
	return "", errors.Wrap(ErrNoScriptedResponse, req.Purpose)
}

// Requests returns every request received so far, optionally filtered by purpose.
func (s *ScriptedCompleter) Requests(purpose string) []ai.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var requests []ai.Request
	for _, req := range s.requests {
		if purpose == "" || req.Purpose == purpose {
			requests = append(requests, req)
		}
	}
	return requests
}
