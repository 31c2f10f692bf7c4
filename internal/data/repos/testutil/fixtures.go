package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	types "github.com/yungbote/scopes-backend/internal/domain"
)

func SeedScopeRow(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.ScopeProjection {
	tb.Helper()
	now := time.Now().UTC()
	row := &types.ScopeProjection{
		ID:          ulid.Make().String(),
		Title:       title,
		Version:     1,
		LastEventID: uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed scope row: %v", err)
	}
	return row
}

func SeedAliasRow(tb testing.TB, ctx context.Context, tx *gorm.DB, scopeID, name string, canonical bool) *types.ScopeAlias {
	tb.Helper()
	now := time.Now().UTC()
	row := &types.ScopeAlias{
		ID:          ulid.Make().String(),
		AliasName:   name,
		ScopeID:     scopeID,
		IsCanonical: canonical,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed alias row: %v", err)
	}
	return row
}
