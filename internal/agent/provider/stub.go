package provider

import (
	"context"
	"sync"
)

// Stub is a deterministic local provider for offline runs and tests:
// it replays a fixed script of replies and repeats the last one once
// the script is exhausted. Safe for concurrent use.
type Stub struct {
	Replies []string

	mu   sync.Mutex
	next int
}

// NewStub returns a stub that replays the given replies in order.
func NewStub(replies ...string) *Stub {
	if len(replies) == 0 {
		replies = []string{"Let me think about your offer."}
	}
	return &Stub{Replies: replies}
}

func (s *Stub) Name() string { return "stub" }

func (s *Stub) Run(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.next
	if i >= len(s.Replies) {
		i = len(s.Replies) - 1
	} else {
		s.next++
	}
	return s.Replies[i], nil
}
