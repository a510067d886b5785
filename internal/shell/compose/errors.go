package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrCommandFailed = errors.New("compose command failed")
)

// ComposeError wraps errors with the compose operation that failed.
type ComposeError struct {
	Op      string // Operation that failed (down, pull, up)
	Message string // Tool stderr for diagnostics
	Err     error
}

func (e *ComposeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("compose %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("compose %s: %v", e.Op, e.Err)
}

func (e *ComposeError) Unwrap() error {
	return e.Err
}

// NewComposeError creates a new ComposeError.
func NewComposeError(op, message string, err error) *ComposeError {
	return &ComposeError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}
