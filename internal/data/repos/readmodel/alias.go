package readmodel

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/db"
	types "github.com/yungbote/scopes-backend/internal/domain"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

// AliasRepo is the alias namespace. Names are stored lowercase and are
// unique across every scope.
type AliasRepo interface {
	GetByName(dbc dbctx.Context, name string) (*types.ScopeAlias, error)
	GetByID(dbc dbctx.Context, id string) (*types.ScopeAlias, error)
	ListByScope(dbc dbctx.Context, scopeID string) ([]*types.ScopeAlias, error)
	// ListByPrefix returns names starting with prefix in ascending order.
	// limit <= 0 means no limit.
	ListByPrefix(dbc dbctx.Context, prefix string, limit int) ([]*types.ScopeAlias, error)
	// ListAll returns every alias ordered by name.
	ListAll(dbc dbctx.Context) ([]*types.ScopeAlias, error)
	// Create fails with alias.ErrDuplicateAlias when the name is taken.
	Create(dbc dbctx.Context, row *types.ScopeAlias) error
	Update(dbc dbctx.Context, row *types.ScopeAlias) error
	DeleteByID(dbc dbctx.Context, id string) (bool, error)
	DeleteAll(dbc dbctx.Context) error
}

type aliasRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAliasRepo(gdb *gorm.DB, baseLog *logger.Logger) AliasRepo {
	repoLog := baseLog.With("repo", "AliasRepo")
	return &aliasRepo{db: gdb, log: repoLog}
}

func (r *aliasRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *aliasRepo) getOne(q *gorm.DB) (*types.ScopeAlias, error) {
	var row types.ScopeAlias
	err := q.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *aliasRepo) GetByName(dbc dbctx.Context, name string) (*types.ScopeAlias, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}
	return r.getOne(r.tx(dbc).Where("alias_name = ?", name))
}

func (r *aliasRepo) GetByID(dbc dbctx.Context, id string) (*types.ScopeAlias, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return r.getOne(r.tx(dbc).Where("id = ?", id))
}

func (r *aliasRepo) ListByScope(dbc dbctx.Context, scopeID string) ([]*types.ScopeAlias, error) {
	var rows []*types.ScopeAlias
	if err := r.tx(dbc).
		Where("scope_id = ?", scopeID).
		Order("is_canonical DESC, alias_name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *aliasRepo) ListByPrefix(dbc dbctx.Context, prefix string, limit int) ([]*types.ScopeAlias, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var rows []*types.ScopeAlias
	if prefix == "" {
		return rows, nil
	}
	q := r.tx(dbc).Where("alias_name >= ?", prefix)
	if upper, ok := prefixUpperBound(prefix); ok {
		q = q.Where("alias_name < ?", upper)
	}
	q = q.Where("alias_name LIKE ? ESCAPE '!'", escapeLike(prefix)+"%").Order("alias_name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *aliasRepo) ListAll(dbc dbctx.Context) ([]*types.ScopeAlias, error) {
	var rows []*types.ScopeAlias
	if err := r.tx(dbc).Order("alias_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *aliasRepo) Create(dbc dbctx.Context, row *types.ScopeAlias) error {
	if row == nil {
		return nil
	}
	if err := r.tx(dbc).Create(row).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", alias.ErrDuplicateAlias, row.AliasName)
		}
		return err
	}
	return nil
}

func (r *aliasRepo) Update(dbc dbctx.Context, row *types.ScopeAlias) error {
	res := r.tx(dbc).
		Model(&types.ScopeAlias{}).
		Where("id = ?", row.ID).
		Select("alias_name", "scope_id", "is_canonical", "updated_at").
		Updates(row)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error) {
			return fmt.Errorf("%w: %s", alias.ErrDuplicateAlias, row.AliasName)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *aliasRepo) DeleteByID(dbc dbctx.Context, id string) (bool, error) {
	res := r.tx(dbc).Where("id = ?", id).Delete(&types.ScopeAlias{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *aliasRepo) DeleteAll(dbc dbctx.Context) error {
	return r.tx(dbc).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&types.ScopeAlias{}).Error
}

// prefixUpperBound returns the smallest string greater than every string
// with the given prefix. Alias names are ASCII, so bumping the last byte is
// enough.
func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0x7f {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
