package aggregates

import (
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/eventstore"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

// CASGuard provides optimistic/concurrency guard helpers for aggregate writes.
type CASGuard struct {
	db *gorm.DB
}

var _ eventstore.HeadGuard = CASGuard{}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByVersion updates a row only when every key column and the version
// column match. It is the compare-and-set used to advance stream heads.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, keys map[string]any, expectedVersion int64, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || len(keys) == 0 {
		return false, ValidationError("table and keys are required for UpdateByVersion")
	}
	if expectedVersion < 0 {
		return false, ValidationError("expectedVersion must be >= 0")
	}
	q := db.Table(table)
	cols := make([]string, 0, len(keys))
	for col := range keys {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		q = q.Where(col+" = ?", keys[col])
	}
	res := q.Where("version = ?", expectedVersion).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
