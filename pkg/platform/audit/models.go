// Package audit records access decisions. Records are write-once and
// delivered best-effort: a broken sink never fails the request that produced
// the record.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Decision is the outcome being audited.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// Event is one audit record. Payload is the exact object the policy engine
// was asked about, carried unchanged.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Decision  Decision  `json:"decision"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with a fresh ID.
func NewEvent(decision Decision, payload any, requestID string, at time.Time) Event {
	return Event{
		ID:        uuid.New(),
		Timestamp: at,
		RequestID: requestID,
		Decision:  decision,
		Payload:   payload,
	}
}

// Sink delivers events to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}
