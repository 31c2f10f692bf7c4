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

type aliasAggregate struct {
	deps StreamDeps
	log  *logger.Logger
}

func NewAliasAggregate(deps StreamDeps) domainagg.AliasAggregate {
	deps = deps.withDefaults()
	return &aliasAggregate{deps: deps, log: deps.Base.Log.With("aggregate", "AliasAggregate")}
}

func (a *aliasAggregate) Contract() domainagg.Contract {
	return domainagg.AliasAggregateContract
}

// AddCustomAlias adds a non-canonical alias. The name must be free across
// every scope, including the target scope itself.
func (a *aliasAggregate) AddCustomAlias(ctx context.Context, in domainagg.AddAliasInput) (domainagg.AliasWriteResult, error) {
	const op = "Scopes.Alias.AddCustomAlias"
	name, err := alias.ParseName(in.Name)
	if err != nil {
		return domainagg.AliasWriteResult{}, MapError(op, err)
	}
	if in.ScopeID.IsZero() {
		return domainagg.AliasWriteResult{}, domainagg.NewError(domainagg.CodeValidation, op, "missing scope_id", nil)
	}
	return a.write(ctx, op, func(dbc dbctx.Context) (alias.Alias, []events.Event, error) {
		if err := a.requireLiveScope(dbc, in.ScopeID); err != nil {
			return alias.Alias{}, nil, err
		}
		if err := a.requireFree(dbc, name); err != nil {
			return alias.Alias{}, nil, err
		}
		set, err := loadAliasSet(dbc, a.deps.Store, in.ScopeID)
		if err != nil {
			return alias.Alias{}, nil, err
		}
		assigned, err := set.Assign(name, false, a.deps.aliasEnv())
		if err != nil {
			return alias.Alias{}, nil, err
		}
		return a.commit(dbc, set, name, assigned)
	})
}

// SetCanonical makes name the scope's canonical alias. The previous canonical
// alias stays as a custom alias. A name the scope does not own yet is added.
func (a *aliasAggregate) SetCanonical(ctx context.Context, in domainagg.SetCanonicalAliasInput) (domainagg.AliasWriteResult, error) {
	const op = "Scopes.Alias.SetCanonical"
	name, err := alias.ParseName(in.Name)
	if err != nil {
		return domainagg.AliasWriteResult{}, MapError(op, err)
	}
	if in.ScopeID.IsZero() {
		return domainagg.AliasWriteResult{}, domainagg.NewError(domainagg.CodeValidation, op, "missing scope_id", nil)
	}
	return a.write(ctx, op, func(dbc dbctx.Context) (alias.Alias, []events.Event, error) {
		if err := a.requireLiveScope(dbc, in.ScopeID); err != nil {
			return alias.Alias{}, nil, err
		}
		set, err := loadAliasSet(dbc, a.deps.Store, in.ScopeID)
		if err != nil {
			return alias.Alias{}, nil, err
		}
		if _, owned := set.Find(name); !owned {
			if err := a.requireFree(dbc, name); err != nil {
				return alias.Alias{}, nil, err
			}
		}
		replaced, changed, err := set.Promote(name, a.deps.aliasEnv())
		if err != nil {
			return alias.Alias{}, nil, err
		}
		if !changed {
			current, _ := set.Canonical()
			return current, nil, nil
		}
		return a.commit(dbc, set, name, replaced)
	})
}

// RemoveAlias deletes a custom alias. Canonical aliases can only be replaced.
func (a *aliasAggregate) RemoveAlias(ctx context.Context, in domainagg.RemoveAliasInput) (domainagg.AliasWriteResult, error) {
	const op = "Scopes.Alias.RemoveAlias"
	name, err := alias.ParseName(in.Name)
	if err != nil {
		return domainagg.AliasWriteResult{}, MapError(op, err)
	}
	return a.write(ctx, op, func(dbc dbctx.Context) (alias.Alias, []events.Event, error) {
		owner, err := a.ownerOf(dbc, name)
		if err != nil {
			return alias.Alias{}, nil, err
		}
		set, err := loadAliasSet(dbc, a.deps.Store, owner)
		if err != nil {
			return alias.Alias{}, nil, err
		}
		removed, ok := set.Find(name)
		if !ok {
			return alias.Alias{}, nil, fmt.Errorf("%w: %s", alias.ErrAliasNotFound, name)
		}
		ev, err := set.Remove(name, a.deps.aliasEnv())
		if err != nil {
			return alias.Alias{}, nil, err
		}
		if _, _, err := a.commit(dbc, set, name, ev); err != nil {
			return alias.Alias{}, nil, err
		}
		return removed, []events.Event{ev}, nil
	})
}

// RenameAlias changes an alias name in place, keeping its id and canonical flag.
func (a *aliasAggregate) RenameAlias(ctx context.Context, in domainagg.RenameAliasInput) (domainagg.AliasWriteResult, error) {
	const op = "Scopes.Alias.RenameAlias"
	oldName, err := alias.ParseName(in.OldName)
	if err != nil {
		return domainagg.AliasWriteResult{}, MapError(op, err)
	}
	newName, err := alias.ParseName(in.NewName)
	if err != nil {
		return domainagg.AliasWriteResult{}, MapError(op, err)
	}
	return a.write(ctx, op, func(dbc dbctx.Context) (alias.Alias, []events.Event, error) {
		owner, err := a.ownerOf(dbc, oldName)
		if err != nil {
			return alias.Alias{}, nil, err
		}
		if oldName == newName {
			set, err := loadAliasSet(dbc, a.deps.Store, owner)
			if err != nil {
				return alias.Alias{}, nil, err
			}
			current, _ := set.Find(oldName)
			return current, nil, nil
		}
		if err := a.requireFree(dbc, newName); err != nil {
			return alias.Alias{}, nil, err
		}
		set, err := loadAliasSet(dbc, a.deps.Store, owner)
		if err != nil {
			return alias.Alias{}, nil, err
		}
		changed, err := set.Rename(oldName, newName, a.deps.aliasEnv())
		if err != nil {
			return alias.Alias{}, nil, err
		}
		return a.commit(dbc, set, newName, changed)
	})
}

type aliasWrite func(dbc dbctx.Context) (alias.Alias, []events.Event, error)

func (a *aliasAggregate) write(ctx context.Context, op string, fn aliasWrite) (domainagg.AliasWriteResult, error) {
	var out domainagg.AliasWriteResult
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		got, evs, err := fn(dbc)
		if err != nil {
			return err
		}
		out = domainagg.AliasWriteResult{Alias: got, Events: evs}
		return nil
	})
	if err != nil {
		return domainagg.AliasWriteResult{}, err
	}
	publishCommitted(ctx, a.log, a.deps.Publisher, out.Events)
	return out, nil
}

// commit appends ev to the scope's alias stream, projects it and returns the
// alias called name in the resulting set.
func (a *aliasAggregate) commit(dbc dbctx.Context, set alias.Set, name alias.Name, ev alias.Event) (alias.Alias, []events.Event, error) {
	evs := []events.Event{ev}
	if _, err := a.deps.Store.Append(dbc, aliasKey(set.ScopeID), set.Version, evs); err != nil {
		return alias.Alias{}, nil, err
	}
	next, err := alias.ApplyEvent(set, ev)
	if err != nil {
		return alias.Alias{}, nil, err
	}
	if err := a.deps.Projector.ProjectEvents(dbc, evs); err != nil {
		return alias.Alias{}, nil, err
	}
	got, _ := next.Find(name)
	return got, evs, nil
}

func (a *aliasAggregate) requireFree(dbc dbctx.Context, name alias.Name) error {
	taken, err := nameTaken(dbc, a.deps.Aliases, name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", alias.ErrDuplicateAlias, name)
	}
	return nil
}

func (a *aliasAggregate) ownerOf(dbc dbctx.Context, name alias.Name) (scope.ID, error) {
	row, err := a.deps.Aliases.GetByName(dbc, name.String())
	if err != nil {
		return scope.ID{}, err
	}
	if row == nil {
		return scope.ID{}, fmt.Errorf("%w: %s", alias.ErrAliasNotFound, name)
	}
	return scope.ParseID(row.ScopeID)
}

func (a *aliasAggregate) requireLiveScope(dbc dbctx.Context, id scope.ID) error {
	state, err := loadScope(dbc, a.deps.Store, id)
	if err != nil {
		return err
	}
	if !state.Exists() {
		return fmt.Errorf("%w: %s", scope.ErrNotFound, id)
	}
	if state.IsDeleted {
		return scope.ErrScopeDeleted
	}
	return nil
}
