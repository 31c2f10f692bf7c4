package projection

import (
	"fmt"

	types "github.com/yungbote/scopes-backend/internal/domain"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

const aliasTable = "scope_alias"

func (p *Projector) registerAliasHandlers() {
	p.handlers[alias.TypeAssigned] = aliasHandler(p.onAliasAssigned)
	p.handlers[alias.TypeNameChanged] = aliasHandler(p.onAliasNameChanged)
	p.handlers[alias.TypeRemoved] = aliasHandler(p.onAliasRemoved)
	p.handlers[alias.TypeCanonicalReplaced] = aliasHandler(p.onCanonicalReplaced)
}

func aliasHandler[E alias.Event](fn func(dbc dbctx.Context, e E) error) handler {
	return func(dbc dbctx.Context, ev events.Event) error {
		e, ok := ev.(E)
		if !ok {
			return fmt.Errorf("project %s: unexpected payload %T", ev.EventType(), ev)
		}
		return fn(dbc, e)
	}
}

// onAliasAssigned inserts the row, or overwrites it when the same alias id
// was already projected.
func (p *Projector) onAliasAssigned(dbc dbctx.Context, e alias.AliasAssigned) error {
	meta := e.EventMeta()
	row, err := p.aliases.GetByID(dbc, e.AliasID.String())
	if err != nil {
		return err
	}
	if row != nil {
		row.AliasName = e.Name.String()
		row.ScopeID = e.ScopeID.String()
		row.IsCanonical = e.IsCanonical
		row.UpdatedAt = meta.OccurredAt
		return p.aliases.Update(dbc, row)
	}
	return p.aliases.Create(dbc, &types.ScopeAlias{
		ID:          e.AliasID.String(),
		AliasName:   e.Name.String(),
		ScopeID:     e.ScopeID.String(),
		IsCanonical: e.IsCanonical,
		CreatedAt:   meta.OccurredAt,
		UpdatedAt:   meta.OccurredAt,
	})
}

func (p *Projector) onAliasNameChanged(dbc dbctx.Context, e alias.AliasNameChanged) error {
	row, err := p.aliases.GetByID(dbc, e.AliasID.String())
	if err != nil {
		return err
	}
	if row == nil {
		return &TargetNotFoundError{EventType: e.EventType(), Table: aliasTable, ID: e.AliasID.String()}
	}
	row.AliasName = e.NewName.String()
	row.UpdatedAt = e.EventMeta().OccurredAt
	return p.aliases.Update(dbc, row)
}

func (p *Projector) onAliasRemoved(dbc dbctx.Context, e alias.AliasRemoved) error {
	deleted, err := p.aliases.DeleteByID(dbc, e.AliasID.String())
	if err != nil {
		return err
	}
	if !deleted {
		return &TargetNotFoundError{EventType: e.EventType(), Table: aliasTable, ID: e.AliasID.String()}
	}
	return nil
}

// onCanonicalReplaced demotes the old canonical alias, then promotes the new
// one, inserting it when it has no row yet.
func (p *Projector) onCanonicalReplaced(dbc dbctx.Context, e alias.CanonicalAliasReplaced) error {
	at := e.EventMeta().OccurredAt
	scopeID := e.ScopeID.String()

	if !e.OldAliasID.IsZero() {
		old, err := p.aliases.GetByID(dbc, e.OldAliasID.String())
		if err == nil && old == nil {
			err = &TargetNotFoundError{EventType: e.EventType(), Table: aliasTable, ID: e.OldAliasID.String()}
		}
		if err == nil {
			old.IsCanonical = false
			old.UpdatedAt = at
			err = p.aliases.Update(dbc, old)
		}
		if err != nil {
			return &CanonicalSwapError{Step: StepDemote, ScopeID: scopeID, Err: err}
		}
	}

	row, err := p.aliases.GetByID(dbc, e.NewAliasID.String())
	if err == nil {
		if row == nil {
			err = p.aliases.Create(dbc, &types.ScopeAlias{
				ID:          e.NewAliasID.String(),
				AliasName:   e.NewName.String(),
				ScopeID:     scopeID,
				IsCanonical: true,
				CreatedAt:   at,
				UpdatedAt:   at,
			})
		} else {
			row.AliasName = e.NewName.String()
			row.IsCanonical = true
			row.UpdatedAt = at
			err = p.aliases.Update(dbc, row)
		}
	}
	if err != nil {
		return &CanonicalSwapError{Step: StepPromote, ScopeID: scopeID, Err: err}
	}
	return nil
}
