package readmodel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scopes-backend/internal/domain"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

func TestScopeRowRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewScopeRowRepo(db, testutil.Logger(t))

	parent := testutil.SeedScopeRow(t, ctx, tx, "parent")
	now := time.Now().UTC()
	child := &types.ScopeProjection{
		ID:          ulid.Make().String(),
		Title:       "child",
		ParentID:    &parent.ID,
		Version:     1,
		LastEventID: uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Upsert(dbc, child); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	// Upserting the same row again overwrites instead of failing.
	if err := repo.Upsert(dbc, child); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	kids, err := repo.ListChildren(dbc, parent.ID, false)
	if err != nil || len(kids) != 1 || kids[0].ID != child.ID {
		t.Fatalf("ListChildren: rows=%d err=%v", len(kids), err)
	}

	child.Title = "renamed"
	child.IsDeleted = true
	child.Version = 2
	if err := repo.Save(dbc, child); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.GetByID(dbc, child.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: row=%v err=%v", got, err)
	}
	if got.Title != "renamed" || !got.IsDeleted || got.Version != 2 {
		t.Fatalf("saved row mismatch: %+v", got)
	}
	if kids, _ := repo.ListChildren(dbc, parent.ID, false); len(kids) != 0 {
		t.Fatalf("deleted child should be hidden")
	}

	missing := &types.ScopeProjection{ID: ulid.Make().String(), Title: "x", CreatedAt: now, UpdatedAt: now}
	if err := repo.Save(dbc, missing); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Save missing: want ErrRecordNotFound got %v", err)
	}

	if err := repo.DeleteAll(dbc); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n, _ := repo.Count(dbc); n != 0 {
		t.Fatalf("Count after DeleteAll: %d", n)
	}
}
