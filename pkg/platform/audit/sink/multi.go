package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	audit "zerotrust/pkg/platform/audit"
)

// Multi fans an event out to every sink. One sink failing does not stop the
// others; all failures are joined.
type Multi struct {
	sinks []audit.Sink
}

func NewMulti(sinks ...audit.Sink) *Multi {
	var live []audit.Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return &Multi{sinks: live}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

// Len returns the number of fan-out targets.
func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Deliver(ctx context.Context, event audit.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Deliver(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
