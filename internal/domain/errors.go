package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the reorder core. Callers match with errors.Is and
// map to transport-level responses in the API layer.
var (
	// ErrValidation marks caller-fixable parameter problems.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown product, supplier, suggestion, or job.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an action on a suggestion that already left pending.
	ErrConflict = errors.New("conflict")
)

// ValidationErrorf wraps ErrValidation with a formatted detail.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFoundErrorf wraps ErrNotFound with a formatted detail.
func NotFoundErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// ConflictErrorf wraps ErrConflict with a formatted detail.
func ConflictErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}
