package aggregates

import (
	"context"

	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
)

var ScopeAggregateContract = Contract{
	Name:             "Scopes.ScopeAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns decide, append and projection of one scope stream under an optimistic " +
		"version check. Creation also assigns the generated canonical alias.",
}

// ScopeAggregate owns scope lifecycle invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeConsistency, CodeRetryable, CodeInternal.
type ScopeAggregate interface {
	Aggregate

	Create(ctx context.Context, in CreateScopeInput) (ScopeWriteResult, error)
	UpdateTitle(ctx context.Context, in UpdateScopeTitleInput) (ScopeWriteResult, error)
	UpdateDescription(ctx context.Context, in UpdateScopeDescriptionInput) (ScopeWriteResult, error)
	ChangeParent(ctx context.Context, in ChangeScopeParentInput) (ScopeWriteResult, error)
	Delete(ctx context.Context, in ScopeLifecycleInput) (ScopeWriteResult, error)
	Archive(ctx context.Context, in ScopeLifecycleInput) (ScopeWriteResult, error)
	Restore(ctx context.Context, in ScopeLifecycleInput) (ScopeWriteResult, error)

	// Load replays the stream. A stream that was never created fails CodeNotFound.
	Load(ctx context.Context, id scope.ID) (scope.Scope, error)
}

// CreateScopeInput always expects an empty stream. A zero ScopeID is minted
// by the aggregate.
type CreateScopeInput struct {
	ScopeID     scope.ID
	Title       string
	Description string
	ParentID    scope.ID
}

type UpdateScopeTitleInput struct {
	ScopeID         scope.ID
	ExpectedVersion *int64
	Title           string
}

type UpdateScopeDescriptionInput struct {
	ScopeID         scope.ID
	ExpectedVersion *int64
	Description     string
}

type ChangeScopeParentInput struct {
	ScopeID         scope.ID
	ExpectedVersion *int64
	ParentID        scope.ID
}

// ScopeLifecycleInput drives Delete, Archive and Restore. As on the update
// inputs, a nil ExpectedVersion skips the optimistic check.
type ScopeLifecycleInput struct {
	ScopeID         scope.ID
	ExpectedVersion *int64
}

// ScopeWriteResult carries the new state and every event committed by the
// write, alias events included.
type ScopeWriteResult struct {
	Scope  scope.Scope
	Events []events.Event
}
