package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	repotest "github.com/yungbote/scopes-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scopes-backend/internal/domain"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

func TestInjectedTxRunnerCommitsWithoutDB(t *testing.T) {
	r := &InjectedTxRunner{}
	called := false
	err := r.InTx(context.Background(), func(dbc dbctx.Context) error {
		called = dbc.Tx == nil
		return nil
	})
	if err != nil || !called {
		t.Fatalf("body: called=%v err=%v", called, err)
	}
	if b, c, rb := r.Counts(); b != 1 || c != 1 || rb != 0 {
		t.Fatalf("counts: begin=%d commit=%d rollback=%d", b, c, rb)
	}
}

func TestInjectedTxRunnerFailBeginSkipsBody(t *testing.T) {
	beginErr := errors.New("no connection")
	r := &InjectedTxRunner{FailBegin: beginErr}
	err := r.InTx(context.Background(), func(dbctx.Context) error {
		t.Fatalf("body must not run")
		return nil
	})
	if !errors.Is(err, beginErr) {
		t.Fatalf("want begin error, got %v", err)
	}
}

func TestInjectedTxRunnerFailCommitRollsBackWrites(t *testing.T) {
	tx := repotest.Tx(t, repotest.DB(t))
	commitErr := errors.New("commit failed")
	r := &InjectedTxRunner{DB: tx, FailCommit: commitErr}

	err := r.InTx(context.Background(), func(dbc dbctx.Context) error {
		if dbc.Tx == nil {
			t.Fatalf("body should run inside a transaction")
		}
		return dbc.Tx.Create(&types.ScopeStream{StreamType: "scope", AggregateID: "01HZYROLLBACK", Version: 1, UpdatedAt: time.Now().UTC()}).Error
	})
	if !errors.Is(err, commitErr) {
		t.Fatalf("want commit error, got %v", err)
	}
	var n int64
	if err := tx.Model(&types.ScopeStream{}).Where("aggregate_id = ?", "01HZYROLLBACK").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("stream head survived a failed commit: %d rows", n)
	}
	if b, c, rb := r.Counts(); b != 1 || c != 0 || rb != 1 {
		t.Fatalf("counts: begin=%d commit=%d rollback=%d", b, c, rb)
	}
}

func TestInjectedTxRunnerBodyErrorRollsBack(t *testing.T) {
	bodyErr := errors.New("title must not be blank")
	r := &InjectedTxRunner{}
	if err := r.InTx(context.Background(), func(dbctx.Context) error { return bodyErr }); !errors.Is(err, bodyErr) {
		t.Fatalf("want body error, got %v", err)
	}
	if _, c, rb := r.Counts(); c != 0 || rb != 1 {
		t.Fatalf("counts: commit=%d rollback=%d", c, rb)
	}
}
