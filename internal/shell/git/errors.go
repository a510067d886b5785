package git

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrCommandFailed = errors.New("git command failed")
	ErrNoRemote      = errors.New("no remote configured")
)

// GitError wraps errors with the git operation that failed. Message holds
// the tool's stderr with any credential material already redacted.
type GitError struct {
	Op      string // Operation that failed (stage, commit, push, ...)
	Message string
	Err     error
}

func (e *GitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("git %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("git %s: %v", e.Op, e.Err)
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// NewGitError creates a new GitError.
func NewGitError(op, message string, err error) *GitError {
	return &GitError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}
