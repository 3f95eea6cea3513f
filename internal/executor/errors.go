package executor

import (
	"errors"
	"fmt"
)

// ErrUnknownDatabase is returned for a database identifier with no DSN.
var ErrUnknownDatabase = errors.New("unknown database")

// ExecutionError reports that both the resolved statement and the fallback
// failed. Its message is the primary failure's, which is the actionable one.
type ExecutionError struct {
	DatabaseID string
	SQL        string
	Primary    error
	Fallback   error
}

func (e *ExecutionError) Error() string {
	return e.Primary.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Primary
}

// Detail includes the fallback failure for logs.
func (e *ExecutionError) Detail() string {
	if e.Fallback == nil {
		return e.Primary.Error()
	}
	return fmt.Sprintf("%s (fallback: %s)", e.Primary, e.Fallback)
}
