package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/repos/readmodel"
	types "github.com/yungbote/scopes-backend/internal/domain"
	domainagg "github.com/yungbote/scopes-backend/internal/domain/aggregates"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

// ScopeService is the command and query surface for scopes. Writes go
// through the scope aggregate; Get and ListChildren read the projection.
type ScopeService interface {
	Create(ctx context.Context, in CreateScopeRequest) (scope.Scope, []events.Event, error)
	UpdateTitle(ctx context.Context, id scope.ID, expectedVersion *int64, title string) (scope.Scope, []events.Event, error)
	UpdateDescription(ctx context.Context, id scope.ID, expectedVersion *int64, description string) (scope.Scope, []events.Event, error)
	ChangeParent(ctx context.Context, id scope.ID, expectedVersion *int64, parentID scope.ID) (scope.Scope, []events.Event, error)
	Delete(ctx context.Context, id scope.ID, expectedVersion *int64) (scope.Scope, []events.Event, error)
	Archive(ctx context.Context, id scope.ID, expectedVersion *int64) (scope.Scope, []events.Event, error)
	Restore(ctx context.Context, id scope.ID, expectedVersion *int64) (scope.Scope, []events.Event, error)

	Get(ctx context.Context, id scope.ID) (*types.ScopeProjection, error)
	Load(ctx context.Context, id scope.ID) (scope.Scope, error)
	ListChildren(ctx context.Context, parentID scope.ID, includeDeleted bool) ([]*types.ScopeProjection, error)
}

type CreateScopeRequest struct {
	Title       string
	Description string
	ParentID    scope.ID
}

type scopeService struct {
	db   *gorm.DB
	log  *logger.Logger
	agg  domainagg.ScopeAggregate
	rows readmodel.ScopeRowRepo
}

func NewScopeService(db *gorm.DB, baseLog *logger.Logger, agg domainagg.ScopeAggregate, rows readmodel.ScopeRowRepo) ScopeService {
	return &scopeService{
		db:   db,
		log:  baseLog.With("service", "ScopeService"),
		agg:  agg,
		rows: rows,
	}
}

func (s *scopeService) Create(ctx context.Context, in CreateScopeRequest) (scope.Scope, []events.Event, error) {
	return unpack(s.agg.Create(ctx, domainagg.CreateScopeInput{
		Title:       in.Title,
		Description: in.Description,
		ParentID:    in.ParentID,
	}))
}

func (s *scopeService) UpdateTitle(ctx context.Context, id scope.ID, expectedVersion *int64, title string) (scope.Scope, []events.Event, error) {
	return unpack(s.agg.UpdateTitle(ctx, domainagg.UpdateScopeTitleInput{ScopeID: id, ExpectedVersion: expectedVersion, Title: title}))
}

func (s *scopeService) UpdateDescription(ctx context.Context, id scope.ID, expectedVersion *int64, description string) (scope.Scope, []events.Event, error) {
	return unpack(s.agg.UpdateDescription(ctx, domainagg.UpdateScopeDescriptionInput{ScopeID: id, ExpectedVersion: expectedVersion, Description: description}))
}

func (s *scopeService) ChangeParent(ctx context.Context, id scope.ID, expectedVersion *int64, parentID scope.ID) (scope.Scope, []events.Event, error) {
	return unpack(s.agg.ChangeParent(ctx, domainagg.ChangeScopeParentInput{ScopeID: id, ExpectedVersion: expectedVersion, ParentID: parentID}))
}

func (s *scopeService) Delete(ctx context.Context, id scope.ID, expectedVersion *int64) (scope.Scope, []events.Event, error) {
	return unpack(s.agg.Delete(ctx, domainagg.ScopeLifecycleInput{ScopeID: id, ExpectedVersion: expectedVersion}))
}

func (s *scopeService) Archive(ctx context.Context, id scope.ID, expectedVersion *int64) (scope.Scope, []events.Event, error) {
	return unpack(s.agg.Archive(ctx, domainagg.ScopeLifecycleInput{ScopeID: id, ExpectedVersion: expectedVersion}))
}

func (s *scopeService) Restore(ctx context.Context, id scope.ID, expectedVersion *int64) (scope.Scope, []events.Event, error) {
	return unpack(s.agg.Restore(ctx, domainagg.ScopeLifecycleInput{ScopeID: id, ExpectedVersion: expectedVersion}))
}

// Get returns the projected row. A missing row fails CodeNotFound.
func (s *scopeService) Get(ctx context.Context, id scope.ID) (*types.ScopeProjection, error) {
	const op = "Scopes.ScopeService.Get"
	if id.IsZero() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing scope_id", nil)
	}
	row, err := s.rows.GetByID(dbctx.Context{Ctx: ctx, Tx: s.db}, id.String())
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row == nil {
		return nil, domainagg.Wrap(domainagg.CodeNotFound, op, fmt.Errorf("%w: %s", scope.ErrNotFound, id))
	}
	return row, nil
}

func (s *scopeService) Load(ctx context.Context, id scope.ID) (scope.Scope, error) {
	return s.agg.Load(ctx, id)
}

func (s *scopeService) ListChildren(ctx context.Context, parentID scope.ID, includeDeleted bool) ([]*types.ScopeProjection, error) {
	const op = "Scopes.ScopeService.ListChildren"
	if parentID.IsZero() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing parent scope_id", nil)
	}
	rows, err := s.rows.ListChildren(dbctx.Context{Ctx: ctx, Tx: s.db}, parentID.String(), includeDeleted)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

func unpack(res domainagg.ScopeWriteResult, err error) (scope.Scope, []events.Event, error) {
	if err != nil {
		return scope.Scope{}, nil, err
	}
	return res.Scope, res.Events, nil
}
