package memory

import (
	"context"
	"sync"

	audit "zerotrust/pkg/platform/audit"
)

// InMemoryStore is an audit sink that keeps events in process so tests can
// inspect what the publisher delivered.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	err    error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Name() string { return "memory" }

// Deliver appends the event, or returns the configured failure.
func (s *InMemoryStore) Deliver(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

// FailWith makes subsequent deliveries fail with err (nil restores success).
func (s *InMemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ListAll returns a copy of every delivered event in arrival order.
func (s *InMemoryStore) ListAll() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}

// ListByDecision returns delivered events with the given decision.
func (s *InMemoryStore) ListByDecision(decision audit.Decision) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Decision == decision {
			out = append(out, e)
		}
	}
	return out
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
