// Package aliasindex is an in-process alias namespace backed by an immutable
// radix tree. Prefix lookups walk only the matching subtree.
package aliasindex

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/repos/readmodel"
	types "github.com/yungbote/scopes-backend/internal/domain"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

// Index ignores dbc.Tx: writes are visible immediately and are not rolled
// back with a surrounding transaction.
type Index struct {
	mu     sync.RWMutex
	byName *iradix.Tree[types.ScopeAlias]
	nameOf map[string]string
}

var _ readmodel.AliasRepo = (*Index)(nil)

func New() *Index {
	return &Index{byName: iradix.New[types.ScopeAlias](), nameOf: map[string]string{}}
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.byName.Len()
}

func (x *Index) GetByName(_ dbctx.Context, name string) (*types.ScopeAlias, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	x.mu.RLock()
	defer x.mu.RUnlock()
	row, ok := x.byName.Get([]byte(name))
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (x *Index) GetByID(_ dbctx.Context, id string) (*types.ScopeAlias, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	name, ok := x.nameOf[id]
	if !ok {
		return nil, nil
	}
	row, _ := x.byName.Get([]byte(name))
	return &row, nil
}

func (x *Index) ListByScope(_ dbctx.Context, scopeID string) ([]*types.ScopeAlias, error) {
	x.mu.RLock()
	tree := x.byName
	x.mu.RUnlock()

	var out []*types.ScopeAlias
	tree.Root().Walk(func(_ []byte, v types.ScopeAlias) bool {
		if v.ScopeID == scopeID {
			row := v
			out = append(out, &row)
		}
		return false
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsCanonical != out[j].IsCanonical {
			return out[i].IsCanonical
		}
		return out[i].AliasName < out[j].AliasName
	})
	return out, nil
}

func (x *Index) ListByPrefix(_ dbctx.Context, prefix string, limit int) ([]*types.ScopeAlias, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var out []*types.ScopeAlias
	if prefix == "" {
		return out, nil
	}
	x.mu.RLock()
	tree := x.byName
	x.mu.RUnlock()

	tree.Root().WalkPrefix([]byte(prefix), func(_ []byte, v types.ScopeAlias) bool {
		row := v
		out = append(out, &row)
		return limit > 0 && len(out) >= limit
	})
	return out, nil
}

func (x *Index) ListAll(_ dbctx.Context) ([]*types.ScopeAlias, error) {
	x.mu.RLock()
	tree := x.byName
	x.mu.RUnlock()

	out := make([]*types.ScopeAlias, 0, tree.Len())
	tree.Root().Walk(func(_ []byte, v types.ScopeAlias) bool {
		row := v
		out = append(out, &row)
		return false
	})
	return out, nil
}

// Create checks and inserts under one lock, so concurrent adds of the same
// name yield exactly one winner.
func (x *Index) Create(_ dbctx.Context, row *types.ScopeAlias) error {
	if row == nil {
		return nil
	}
	key := strings.ToLower(row.AliasName)
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, taken := x.byName.Get([]byte(key)); taken {
		return fmt.Errorf("%w: %s", alias.ErrDuplicateAlias, key)
	}
	if _, taken := x.nameOf[row.ID]; taken {
		return fmt.Errorf("%w: alias id %s", alias.ErrDuplicateAlias, row.ID)
	}
	stored := *row
	stored.AliasName = key
	x.byName, _, _ = x.byName.Insert([]byte(key), stored)
	x.nameOf[row.ID] = key
	return nil
}

func (x *Index) Update(_ dbctx.Context, row *types.ScopeAlias) error {
	key := strings.ToLower(row.AliasName)
	x.mu.Lock()
	defer x.mu.Unlock()
	oldName, ok := x.nameOf[row.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if oldName != key {
		if _, taken := x.byName.Get([]byte(key)); taken {
			return fmt.Errorf("%w: %s", alias.ErrDuplicateAlias, key)
		}
	}
	existing, _ := x.byName.Get([]byte(oldName))
	stored := *row
	stored.AliasName = key
	stored.CreatedAt = existing.CreatedAt

	txn := x.byName.Txn()
	txn.Delete([]byte(oldName))
	txn.Insert([]byte(key), stored)
	x.byName = txn.Commit()
	x.nameOf[row.ID] = key
	return nil
}

func (x *Index) DeleteByID(_ dbctx.Context, id string) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	name, ok := x.nameOf[id]
	if !ok {
		return false, nil
	}
	x.byName, _, _ = x.byName.Delete([]byte(name))
	delete(x.nameOf, id)
	return true, nil
}

func (x *Index) DeleteAll(_ dbctx.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byName = iradix.New[types.ScopeAlias]()
	x.nameOf = map[string]string{}
	return nil
}

// Load replaces the index contents, e.g. from the SQL read model at boot.
func (x *Index) Load(rows []*types.ScopeAlias) {
	txn := iradix.New[types.ScopeAlias]().Txn()
	nameOf := make(map[string]string, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		key := strings.ToLower(r.AliasName)
		stored := *r
		stored.AliasName = key
		txn.Insert([]byte(key), stored)
		nameOf[r.ID] = key
	}
	x.mu.Lock()
	x.byName = txn.Commit()
	x.nameOf = nameOf
	x.mu.Unlock()
}
