package aggregates

import (
	"context"
	"fmt"

	domainagg "github.com/yungbote/scopes-backend/internal/domain/aggregates"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

// maxHierarchyDepth bounds the ancestor walk of parent validation.
const maxHierarchyDepth = 256

type scopeAggregate struct {
	deps StreamDeps
	log  *logger.Logger
}

func NewScopeAggregate(deps StreamDeps) domainagg.ScopeAggregate {
	deps = deps.withDefaults()
	return &scopeAggregate{deps: deps, log: deps.Base.Log.With("aggregate", "ScopeAggregate")}
}

func (a *scopeAggregate) Contract() domainagg.Contract {
	return domainagg.ScopeAggregateContract
}

// Create appends Created to an empty stream and assigns the generated
// canonical alias in the same transaction.
func (a *scopeAggregate) Create(ctx context.Context, in domainagg.CreateScopeInput) (domainagg.ScopeWriteResult, error) {
	const op = "Scopes.Scope.Create"
	var out domainagg.ScopeWriteResult
	id := in.ScopeID
	if id.IsZero() {
		id = scope.NewID()
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		state, err := loadScope(dbc, a.deps.Store, id)
		if err != nil {
			return err
		}
		if err := a.validateParent(dbc, id, in.ParentID); err != nil {
			return err
		}
		decided, err := scope.Decide(state, scope.Create{
			Title:       in.Title,
			Description: in.Description,
			ParentID:    in.ParentID,
		}, a.deps.scopeEnv())
		if err != nil {
			return err
		}
		evs := scopeEvents(decided)
		if err := appendScope(dbc, a.deps.Store, id, state.Version, evs); err != nil {
			return err
		}
		if state, err = scope.Evolve(state, decided...); err != nil {
			return err
		}

		assigned, err := a.assignCanonical(dbc, id)
		if err != nil {
			return err
		}
		evs = append(evs, assigned)
		if err := a.deps.Projector.ProjectEvents(dbc, evs); err != nil {
			return err
		}
		out = domainagg.ScopeWriteResult{Scope: state, Events: evs}
		return nil
	})
	if err != nil {
		return domainagg.ScopeWriteResult{}, err
	}
	a.log.Debug("scope created", "scope_id", id.String(), "events", len(out.Events))
	publishCommitted(ctx, a.log, a.deps.Publisher, out.Events)
	return out, nil
}

// assignCanonical generates a free name and appends it to the scope's alias
// stream as the canonical alias.
func (a *scopeAggregate) assignCanonical(dbc dbctx.Context, id scope.ID) (events.Event, error) {
	set, err := loadAliasSet(dbc, a.deps.Store, id)
	if err != nil {
		return nil, err
	}
	name, err := alias.Generate(id, a.deps.MaxGenerationAttempts, func(n alias.Name) (bool, error) {
		return nameTaken(dbc, a.deps.Aliases, n)
	})
	if err != nil {
		return nil, err
	}
	assigned, err := set.Assign(name, true, a.deps.aliasEnv())
	if err != nil {
		return nil, err
	}
	if _, err := a.deps.Store.Append(dbc, aliasKey(id), set.Version, []events.Event{assigned}); err != nil {
		return nil, err
	}
	return assigned, nil
}

func (a *scopeAggregate) UpdateTitle(ctx context.Context, in domainagg.UpdateScopeTitleInput) (domainagg.ScopeWriteResult, error) {
	return a.mutate(ctx, "Scopes.Scope.UpdateTitle", in.ScopeID, in.ExpectedVersion, scope.UpdateTitle{Title: in.Title})
}

func (a *scopeAggregate) UpdateDescription(ctx context.Context, in domainagg.UpdateScopeDescriptionInput) (domainagg.ScopeWriteResult, error) {
	return a.mutate(ctx, "Scopes.Scope.UpdateDescription", in.ScopeID, in.ExpectedVersion, scope.UpdateDescription{Description: in.Description})
}

func (a *scopeAggregate) ChangeParent(ctx context.Context, in domainagg.ChangeScopeParentInput) (domainagg.ScopeWriteResult, error) {
	return a.mutate(ctx, "Scopes.Scope.ChangeParent", in.ScopeID, in.ExpectedVersion, scope.ChangeParent{ParentID: in.ParentID})
}

func (a *scopeAggregate) Delete(ctx context.Context, in domainagg.ScopeLifecycleInput) (domainagg.ScopeWriteResult, error) {
	return a.mutate(ctx, "Scopes.Scope.Delete", in.ScopeID, in.ExpectedVersion, scope.Delete{})
}

func (a *scopeAggregate) Archive(ctx context.Context, in domainagg.ScopeLifecycleInput) (domainagg.ScopeWriteResult, error) {
	return a.mutate(ctx, "Scopes.Scope.Archive", in.ScopeID, in.ExpectedVersion, scope.Archive{})
}

func (a *scopeAggregate) Restore(ctx context.Context, in domainagg.ScopeLifecycleInput) (domainagg.ScopeWriteResult, error) {
	return a.mutate(ctx, "Scopes.Scope.Restore", in.ScopeID, in.ExpectedVersion, scope.Restore{})
}

// mutate is the shared load, check, decide, append, project path. A command
// that decides no events commits nothing and publishes nothing.
func (a *scopeAggregate) mutate(ctx context.Context, op string, id scope.ID, expected *int64, cmd scope.Command) (domainagg.ScopeWriteResult, error) {
	var out domainagg.ScopeWriteResult
	if id.IsZero() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing scope_id", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		state, err := loadScope(dbc, a.deps.Store, id)
		if err != nil {
			return err
		}
		if !state.Exists() {
			return fmt.Errorf("%w: %s", scope.ErrNotFound, id)
		}
		if expected != nil {
			if err := state.ValidateVersion(*expected); err != nil {
				return err
			}
		}
		if c, ok := cmd.(scope.ChangeParent); ok && !state.IsDeleted && c.ParentID != state.ParentID {
			if err := a.validateParent(dbc, id, c.ParentID); err != nil {
				return err
			}
		}
		decided, err := scope.Decide(state, cmd, a.deps.scopeEnv())
		if err != nil {
			return err
		}
		if len(decided) == 0 {
			out = domainagg.ScopeWriteResult{Scope: state}
			return nil
		}
		evs := scopeEvents(decided)
		if err := appendScope(dbc, a.deps.Store, id, state.Version, evs); err != nil {
			return err
		}
		if state, err = scope.Evolve(state, decided...); err != nil {
			return err
		}
		if err := a.deps.Projector.ProjectEvents(dbc, evs); err != nil {
			return err
		}
		out = domainagg.ScopeWriteResult{Scope: state, Events: evs}
		return nil
	})
	if err != nil {
		return domainagg.ScopeWriteResult{}, err
	}
	publishCommitted(ctx, a.log, a.deps.Publisher, out.Events)
	return out, nil
}

// validateParent requires a live parent that is not id itself or one of
// its descendants.
func (a *scopeAggregate) validateParent(dbc dbctx.Context, id, parent scope.ID) error {
	if parent.IsZero() {
		return nil
	}
	if parent == id {
		return scope.ErrParentIsSelf
	}
	row, err := a.deps.Scopes.GetByID(dbc, parent.String())
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("%w: parent %s", scope.ErrNotFound, parent)
	}
	if row.IsDeleted {
		return fmt.Errorf("%w: parent %s", scope.ErrScopeDeleted, parent)
	}
	for depth := 0; row != nil && row.ParentID != nil; depth++ {
		if depth >= maxHierarchyDepth {
			return fmt.Errorf("%w: hierarchy deeper than %d", scope.ErrValidation, maxHierarchyDepth)
		}
		if *row.ParentID == id.String() {
			return scope.ErrParentCycle
		}
		if row, err = a.deps.Scopes.GetByID(dbc, *row.ParentID); err != nil {
			return err
		}
	}
	return nil
}

// Load replays the scope stream outside any write transaction.
func (a *scopeAggregate) Load(ctx context.Context, id scope.ID) (scope.Scope, error) {
	const op = "Scopes.Scope.Load"
	if id.IsZero() {
		return scope.Scope{}, domainagg.NewError(domainagg.CodeValidation, op, "missing scope_id", nil)
	}
	state, err := loadScope(dbctx.Background(ctx), a.deps.Store, id)
	if err != nil {
		return scope.Scope{}, MapError(op, err)
	}
	if !state.Exists() {
		return scope.Scope{}, MapError(op, fmt.Errorf("%w: %s", scope.ErrNotFound, id))
	}
	return state, nil
}
