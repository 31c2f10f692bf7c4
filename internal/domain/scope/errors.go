package scope

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input rejected before any event exists.
	ErrValidation = errors.New("scope validation")
	// ErrStateConflict marks a command that contradicts current state. Callers
	// recover by reloading and deciding again.
	ErrStateConflict = errors.New("scope state conflict")
	ErrNotFound      = errors.New("scope not found")

	ErrTitleEmpty         = fmt.Errorf("%w: title is empty", ErrValidation)
	ErrTitleTooLong       = fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	ErrTitleInvalid       = fmt.Errorf("%w: title contains control characters", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	ErrDescriptionInvalid = fmt.Errorf("%w: description contains invalid characters", ErrValidation)
	ErrParentIsSelf       = fmt.Errorf("%w: scope cannot be its own parent", ErrValidation)
	ErrParentCycle        = fmt.Errorf("%w: parent would create a cycle", ErrValidation)
	ErrForeignEvent       = fmt.Errorf("%w: event belongs to another aggregate", ErrValidation)
	ErrUnknownCommand     = fmt.Errorf("%w: unknown command", ErrValidation)
	ErrUnknownEvent       = fmt.Errorf("%w: unknown event", ErrValidation)
	ErrAlreadyExists      = fmt.Errorf("%w: scope already exists", ErrStateConflict)
	ErrScopeDeleted       = fmt.Errorf("%w: scope is deleted", ErrStateConflict)
	ErrAlreadyDeleted     = fmt.Errorf("%w: scope already deleted", ErrStateConflict)
	ErrAlreadyArchived    = fmt.Errorf("%w: scope already archived", ErrStateConflict)
	ErrNotArchived        = fmt.Errorf("%w: scope is not archived", ErrStateConflict)
	ErrVersionMismatch    = fmt.Errorf("%w: version mismatch", ErrStateConflict)
)

// VersionMismatchError reports an optimistic concurrency failure.
type VersionMismatchError struct {
	Expected int64
	Actual   int64
}

// Actual is negative when the stream head could not be determined.
func (e *VersionMismatchError) Error() string {
	if e.Actual < 0 {
		return fmt.Sprintf("scope version mismatch: expected=%d actual=unknown", e.Expected)
	}
	return fmt.Sprintf("scope version mismatch: expected=%d actual=%d", e.Expected, e.Actual)
}

func (e *VersionMismatchError) Unwrap() error { return ErrVersionMismatch }
