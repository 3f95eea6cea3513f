package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Clients return these (optionally
// wrapped) so callers can tell a down collaborator from a bad input.
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	// ErrUnavailable: a collaborator is unreachable or answered with a failure status.
	ErrUnavailable = errors.New("unavailable")
)
