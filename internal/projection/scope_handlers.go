package projection

import (
	"fmt"

	types "github.com/yungbote/scopes-backend/internal/domain"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

const scopeTable = "scope_projection"

func (p *Projector) registerScopeHandlers() {
	p.handlers[scope.TypeCreated] = p.onScopeCreated
	p.handlers[scope.TypeTitleUpdated] = updateScope(p, func(row *types.ScopeProjection, e scope.TitleUpdated) {
		row.Title = e.NewTitle
	})
	p.handlers[scope.TypeDescriptionUpdated] = updateScope(p, func(row *types.ScopeProjection, e scope.DescriptionUpdated) {
		row.Description = e.NewDescription
	})
	p.handlers[scope.TypeParentChanged] = updateScope(p, func(row *types.ScopeProjection, e scope.ParentChanged) {
		row.ParentID = parentRef(e.NewParentID)
	})
	p.handlers[scope.TypeDeleted] = updateScope(p, func(row *types.ScopeProjection, _ scope.Deleted) {
		row.IsDeleted = true
	})
	p.handlers[scope.TypeArchived] = updateScope(p, func(row *types.ScopeProjection, _ scope.Archived) {
		row.IsArchived = true
	})
	p.handlers[scope.TypeRestored] = updateScope(p, func(row *types.ScopeProjection, _ scope.Restored) {
		row.IsArchived = false
	})
}

// onScopeCreated writes the full row. Re-projecting it overwrites the row
// with the same values.
func (p *Projector) onScopeCreated(dbc dbctx.Context, ev events.Event) error {
	e, ok := ev.(scope.Created)
	if !ok {
		return fmt.Errorf("project %s: unexpected payload %T", ev.EventType(), ev)
	}
	meta := e.EventMeta()
	return p.scopes.Upsert(dbc, &types.ScopeProjection{
		ID:          meta.AggregateID,
		Title:       e.Title,
		Description: e.Description,
		ParentID:    parentRef(e.ParentID),
		Version:     meta.AggregateVersion,
		LastEventID: meta.EventID,
		CreatedAt:   meta.OccurredAt,
		UpdatedAt:   meta.OccurredAt,
	})
}

// updateScope loads the row, lets mutate change the event's field and stamps
// version bookkeeping. Field values are absolute, so applying the same event
// twice leaves the row unchanged.
func updateScope[E scope.Event](p *Projector, mutate func(row *types.ScopeProjection, e E)) handler {
	return func(dbc dbctx.Context, ev events.Event) error {
		e, ok := ev.(E)
		if !ok {
			return fmt.Errorf("project %s: unexpected payload %T", ev.EventType(), ev)
		}
		meta := e.EventMeta()
		row, err := p.scopes.GetByID(dbc, meta.AggregateID)
		if err != nil {
			return err
		}
		if row == nil {
			return &TargetNotFoundError{EventType: e.EventType(), Table: scopeTable, ID: meta.AggregateID}
		}
		mutate(row, e)
		row.Version = meta.AggregateVersion
		row.LastEventID = meta.EventID
		row.UpdatedAt = meta.OccurredAt
		return p.scopes.Save(dbc, row)
	}
}

func parentRef(id scope.ID) *string {
	if id.IsZero() {
		return nil
	}
	s := id.String()
	return &s
}
