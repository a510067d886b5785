package manifest

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Input validation errors
	ErrEmptyManifest    = errors.New("manifest is empty")
	ErrEmptyPlaceholder = errors.New("placeholder image reference is empty")
	ErrEmptyImage       = errors.New("target image reference is empty")

	// Compose structure errors
	ErrInvalidYAML        = errors.New("invalid YAML syntax")
	ErrNoServices         = errors.New("manifest must define at least one service")
	ErrImageNotReferenced = errors.New("target image is not referenced by any service")
)

// ValidationError wraps errors with context about what failed to validate.
type ValidationError struct {
	Field   string // e.g., "services"
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
