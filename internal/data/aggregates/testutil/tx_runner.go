package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/aggregates"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

// InjectedTxRunner runs aggregate writes with injectable begin and commit
// failures. With DB set the body runs in a real transaction (a savepoint when
// DB is itself a transaction), so an injected commit failure rolls back every
// append and projection the body made. Without DB the body gets no Tx.
type InjectedTxRunner struct {
	DB         *gorm.DB
	FailBegin  error
	FailCommit error

	mu            sync.Mutex
	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.bump(&r.BeginCalls)
	if r.FailBegin != nil {
		return r.FailBegin
	}
	body := func(tx *gorm.DB) error {
		if fn != nil {
			if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
				return err
			}
		}
		return r.FailCommit
	}

	var err error
	if r.DB != nil {
		err = r.DB.WithContext(ctx).Transaction(body)
	} else {
		err = body(nil)
	}
	if err != nil {
		r.bump(&r.RollbackCalls)
		return err
	}
	r.bump(&r.CommitCalls)
	return nil
}

// Counts returns begin, commit and rollback totals.
func (r *InjectedTxRunner) Counts() (begin, commit, rollback int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.BeginCalls, r.CommitCalls, r.RollbackCalls
}

func (r *InjectedTxRunner) bump(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
