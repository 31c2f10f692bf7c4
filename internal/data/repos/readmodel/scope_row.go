package readmodel

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/scopes-backend/internal/domain"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

type ScopeRowRepo interface {
	// GetByID returns nil without error when the row does not exist.
	GetByID(dbc dbctx.Context, id string) (*types.ScopeProjection, error)
	// Upsert writes the full row, overwriting an existing one with the same id.
	Upsert(dbc dbctx.Context, row *types.ScopeProjection) error
	Save(dbc dbctx.Context, row *types.ScopeProjection) error
	ListChildren(dbc dbctx.Context, parentID string, includeDeleted bool) ([]*types.ScopeProjection, error)
	Count(dbc dbctx.Context) (int64, error)
	DeleteAll(dbc dbctx.Context) error
}

type scopeRowRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScopeRowRepo(db *gorm.DB, baseLog *logger.Logger) ScopeRowRepo {
	repoLog := baseLog.With("repo", "ScopeRowRepo")
	return &scopeRowRepo{db: db, log: repoLog}
}

func (r *scopeRowRepo) GetByID(dbc dbctx.Context, id string) (*types.ScopeProjection, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var row types.ScopeProjection
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *scopeRowRepo) Upsert(dbc dbctx.Context, row *types.ScopeProjection) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(row).Error
}

func (r *scopeRowRepo) Save(dbc dbctx.Context, row *types.ScopeProjection) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.ScopeProjection{}).
		Where("id = ?", row.ID).
		Select("*").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *scopeRowRepo) ListChildren(dbc dbctx.Context, parentID string, includeDeleted bool) ([]*types.ScopeProjection, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.ScopeProjection
	q := t.WithContext(dbc.Ctx).Where("parent_id = ?", parentID)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *scopeRowRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	err := t.WithContext(dbc.Ctx).Model(&types.ScopeProjection{}).Count(&n).Error
	return n, err
}

func (r *scopeRowRepo) DeleteAll(dbc dbctx.Context) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&types.ScopeProjection{}).Error
}
