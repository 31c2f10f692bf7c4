package aggregates

import (
	"context"

	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
)

var AliasAggregateContract = Contract{
	Name:             "Scopes.AliasAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns the global alias namespace: uniqueness check then insert, canonical " +
		"transfer and removal, all appended to the per-scope alias stream.",
}

// AliasAggregate owns alias namespace invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeConsistency, CodeRetryable, CodeInternal.
type AliasAggregate interface {
	Aggregate

	AddCustomAlias(ctx context.Context, in AddAliasInput) (AliasWriteResult, error)
	SetCanonical(ctx context.Context, in SetCanonicalAliasInput) (AliasWriteResult, error)
	RemoveAlias(ctx context.Context, in RemoveAliasInput) (AliasWriteResult, error)
	RenameAlias(ctx context.Context, in RenameAliasInput) (AliasWriteResult, error)
}

type AddAliasInput struct {
	ScopeID scope.ID
	Name    string
}

type SetCanonicalAliasInput struct {
	ScopeID scope.ID
	Name    string
}

type RemoveAliasInput struct {
	Name string
}

type RenameAliasInput struct {
	OldName string
	NewName string
}

type AliasWriteResult struct {
	Alias  alias.Alias
	Events []events.Event
}
