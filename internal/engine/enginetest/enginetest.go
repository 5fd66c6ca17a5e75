// Package enginetest provides in-memory backends for tests.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tatianab/game-builder/internal/engine"
)

// Scripted replies with a fixed sequence of responses and records every
// request it receives. It is safe for concurrent use.
type Scripted struct {
	mu       sync.Mutex
	replies  []string
	requests []engine.Request
}

// NewScripted returns a backend that answers with replies in order.
func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Send(_ context.Context, req engine.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.replies) {
		return "", fmt.Errorf("enginetest: unexpected request %d: %q", len(s.requests), req.Message)
	}
	return s.replies[len(s.requests)-1], nil
}

// Requests returns a copy of the requests received so far.
func (s *Scripted) Requests() []engine.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]engine.Request(nil), s.requests...)
}

// Calls returns the number of requests received.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Func adapts a function to engine.Backend.
type Func func(ctx context.Context, req engine.Request) (string, error)

func (f Func) Send(ctx context.Context, req engine.Request) (string, error) {
	return f(ctx, req)
}
