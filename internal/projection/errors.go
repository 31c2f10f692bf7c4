package projection

import (
	"errors"
	"fmt"
)

// ErrConsistency marks read-model failures that mean the projection no longer
// matches the event log. The remedy is Rebuild, not a retry.
var ErrConsistency = errors.New("projection consistency")

var ErrProjectionTargetNotFound = fmt.Errorf("%w: projection target not found", ErrConsistency)

// TargetNotFoundError names the row a non-creation handler expected.
type TargetNotFoundError struct {
	EventType string
	Table     string
	ID        string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("project %s: %s row %q not found", e.EventType, e.Table, e.ID)
}

func (e *TargetNotFoundError) Unwrap() error { return ErrProjectionTargetNotFound }

const (
	StepDemote  = "demote"
	StepPromote = "promote"
)

// CanonicalSwapError reports which half of a canonical alias swap failed. It
// is a consistency error only when its cause is a missing target row.
type CanonicalSwapError struct {
	Step    string
	ScopeID string
	Err     error
}

func (e *CanonicalSwapError) Error() string {
	return fmt.Sprintf("canonical alias swap for scope %s failed at %s: %v", e.ScopeID, e.Step, e.Err)
}

func (e *CanonicalSwapError) Unwrap() error { return e.Err }
