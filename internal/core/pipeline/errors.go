package pipeline

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Stage failure sentinels. Every fatal pipeline outcome wraps exactly
	// one of these.
	ErrManifestUpdateFailed = errors.New("manifest update failed")
	ErrVersionControlFailed = errors.New("version control failed")
	ErrDeploymentFailed     = errors.New("deployment failed")
	ErrHealthCheckExhausted = errors.New("health check exhausted")

	// ErrCancelled reports that the pipeline was aborted by its context
	// before reaching a terminal stage outcome.
	ErrCancelled = errors.New("pipeline cancelled")
)

// StageError wraps a stage failure with the stage that produced it.
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(stage Stage, message string, err error) *StageError {
	return &StageError{
		Stage:   stage,
		Message: message,
		Err:     err,
	}
}
