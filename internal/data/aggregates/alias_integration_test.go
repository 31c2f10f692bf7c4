package aggregates

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	repotest "github.com/yungbote/scopes-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/scopes-backend/internal/domain/aggregates"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
)

func TestAliasAggregateCanonicalTransfer(t *testing.T) {
	h := newHarness(t, repotest.Tx(t, repotest.DB(t)))
	ctx := context.Background()
	id := h.create(t, "Implement auth").Scope.ID
	generated := h.canonicalOf(t, id)

	added, err := h.aliases.AddCustomAlias(ctx, domainagg.AddAliasInput{ScopeID: id, Name: "Auth-Feature"})
	if err != nil {
		t.Fatalf("add custom: %v", err)
	}
	if added.Alias.Name != "auth-feature" || added.Alias.IsCanonical {
		t.Fatalf("custom alias: %+v", added.Alias)
	}

	promoted, err := h.aliases.SetCanonical(ctx, domainagg.SetCanonicalAliasInput{ScopeID: id, Name: "auth-feature"})
	if err != nil {
		t.Fatalf("set canonical: %v", err)
	}
	if !promoted.Alias.IsCanonical || promoted.Alias.ID != added.Alias.ID {
		t.Fatalf("promoted alias: %+v", promoted.Alias)
	}
	if got := h.canonicalOf(t, id); got != "auth-feature" {
		t.Fatalf("canonical row: want=auth-feature got=%s", got)
	}
	old, _ := h.aliasRows.GetByName(h.dbc(), generated)
	if old == nil || old.IsCanonical {
		t.Fatalf("previous canonical should stay as custom: %+v", old)
	}

	again, err := h.aliases.SetCanonical(ctx, domainagg.SetCanonicalAliasInput{ScopeID: id, Name: "auth-feature"})
	if err != nil || len(again.Events) != 0 {
		t.Fatalf("repeat set canonical should be a no-op: events=%d err=%v", len(again.Events), err)
	}

	_, err = h.aliases.RemoveAlias(ctx, domainagg.RemoveAliasInput{Name: "auth-feature"})
	if !errors.Is(err, alias.ErrCannotRemoveCanonical) || !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("remove canonical: %v", err)
	}
	removed, err := h.aliases.RemoveAlias(ctx, domainagg.RemoveAliasInput{Name: generated})
	if err != nil || removed.Alias.Name.String() != generated {
		t.Fatalf("remove old canonical: %+v err=%v", removed.Alias, err)
	}
	if row, _ := h.aliasRows.GetByName(h.dbc(), generated); row != nil {
		t.Fatalf("removed alias still projected: %+v", row)
	}
}

func TestAliasAggregateRejectsDuplicates(t *testing.T) {
	h := newHarness(t, repotest.Tx(t, repotest.DB(t)))
	ctx := context.Background()
	first := h.create(t, "First").Scope.ID
	second := h.create(t, "Second").Scope.ID

	if _, err := h.aliases.AddCustomAlias(ctx, domainagg.AddAliasInput{ScopeID: first, Name: "shared"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	cases := []struct {
		name  string
		scope scope.ID
	}{
		{name: "same owner", scope: first},
		{name: "other scope", scope: second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.aliases.AddCustomAlias(ctx, domainagg.AddAliasInput{ScopeID: tc.scope, Name: "SHARED"})
			if !errors.Is(err, alias.ErrDuplicateAlias) || !domainagg.IsCode(err, domainagg.CodeConflict) {
				t.Fatalf("want duplicate conflict, got %v", err)
			}
		})
	}

	_, err := h.aliases.SetCanonical(ctx, domainagg.SetCanonicalAliasInput{ScopeID: second, Name: "shared"})
	if !errors.Is(err, alias.ErrDuplicateAlias) {
		t.Fatalf("set canonical to a foreign alias: %v", err)
	}
	_, err = h.aliases.RenameAlias(ctx, domainagg.RenameAliasInput{OldName: h.canonicalOf(t, second), NewName: "shared"})
	if !errors.Is(err, alias.ErrDuplicateAlias) {
		t.Fatalf("rename onto a taken name: %v", err)
	}
}

func TestAliasAggregateValidation(t *testing.T) {
	h := newHarness(t, repotest.Tx(t, repotest.DB(t)))
	ctx := context.Background()
	id := h.create(t, "Validated").Scope.ID

	for _, raw := range []string{"", "a", "1abc", "ends-", "double--dash", "has space"} {
		_, err := h.aliases.AddCustomAlias(ctx, domainagg.AddAliasInput{ScopeID: id, Name: raw})
		if !errors.Is(err, alias.ErrInvalidName) || !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("name %q: want validation, got %v", raw, err)
		}
	}
	_, err := h.aliases.AddCustomAlias(ctx, domainagg.AddAliasInput{ScopeID: scope.NewID(), Name: "orphan"})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown scope: %v", err)
	}
	_, err = h.aliases.RemoveAlias(ctx, domainagg.RemoveAliasInput{Name: "missing"})
	if !errors.Is(err, alias.ErrAliasNotFound) || !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("remove unknown: %v", err)
	}
}

func TestAliasAggregateRenameKeepsIdentity(t *testing.T) {
	h := newHarness(t, repotest.Tx(t, repotest.DB(t)))
	ctx := context.Background()
	id := h.create(t, "Renamed").Scope.ID
	added, err := h.aliases.AddCustomAlias(ctx, domainagg.AddAliasInput{ScopeID: id, Name: "before"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := h.aliases.RenameAlias(ctx, domainagg.RenameAliasInput{OldName: "before", NewName: "after"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if res.Alias.ID != added.Alias.ID || res.Alias.Name != "after" {
		t.Fatalf("renamed alias: %+v", res.Alias)
	}
	if row, _ := h.aliasRows.GetByName(h.dbc(), "before"); row != nil {
		t.Fatalf("old name still projected")
	}
	row, _ := h.aliasRows.GetByName(h.dbc(), "after")
	if row == nil || row.ID != added.Alias.ID.String() {
		t.Fatalf("new name row: %+v", row)
	}

	same, err := h.aliases.RenameAlias(ctx, domainagg.RenameAliasInput{OldName: "after", NewName: "after"})
	if err != nil || len(same.Events) != 0 {
		t.Fatalf("rename to same name: events=%d err=%v", len(same.Events), err)
	}
}

func TestAliasAggregateSetCanonicalAddsUnknownName(t *testing.T) {
	h := newHarness(t, repotest.Tx(t, repotest.DB(t)))
	id := h.create(t, "Fresh name").Scope.ID

	res, err := h.aliases.SetCanonical(context.Background(), domainagg.SetCanonicalAliasInput{ScopeID: id, Name: "brand-new"})
	if err != nil {
		t.Fatalf("set canonical: %v", err)
	}
	if !res.Alias.IsCanonical || res.Alias.Name != "brand-new" {
		t.Fatalf("alias: %+v", res.Alias)
	}
	rows, _ := h.aliasRows.ListByScope(h.dbc(), id.String())
	canonical := 0
	for _, r := range rows {
		if r.IsCanonical {
			canonical++
		}
	}
	if len(rows) != 2 || canonical != 1 {
		t.Fatalf("alias rows: total=%d canonical=%d", len(rows), canonical)
	}
}

func TestAliasAggregateDeletedScope(t *testing.T) {
	h := newHarness(t, repotest.Tx(t, repotest.DB(t)))
	ctx := context.Background()
	id := h.create(t, "Gone").Scope.ID
	if _, err := h.scopes.Delete(ctx, domainagg.ScopeLifecycleInput{ScopeID: id}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := h.aliases.AddCustomAlias(ctx, domainagg.AddAliasInput{ScopeID: id, Name: "late"})
	if !errors.Is(err, scope.ErrScopeDeleted) {
		t.Fatalf("alias on deleted scope: %v", err)
	}
	if h.canonicalOf(t, id) == "" {
		t.Fatalf("deleting a scope keeps its aliases")
	}
}

func TestConcurrentAddSameNameAcrossScopesHasOneWinner(t *testing.T) {
	h := newHarness(t, repotest.DB(t))
	ctx := context.Background()

	owners := make([]scope.ID, 4)
	for i := range owners {
		owners[i] = h.create(t, "Contender").Scope.ID
	}
	name := "shared-" + strings.ToLower(scope.NewID().String()[16:])

	errs := make([]error, len(owners))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, id := range owners {
		wg.Add(1)
		go func(i int, id scope.ID) {
			defer wg.Done()
			<-start
			_, errs[i] = h.aliases.AddCustomAlias(ctx, domainagg.AddAliasInput{ScopeID: id, Name: name})
		}(i, id)
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		switch {
		case err == nil:
			if winner >= 0 {
				t.Fatalf("two winners: %d and %d", winner, i)
			}
			winner = i
		case errors.Is(err, alias.ErrDuplicateAlias) && domainagg.IsCode(err, domainagg.CodeConflict):
		default:
			t.Fatalf("loser %d: want duplicate conflict, got %v", i, err)
		}
	}
	if winner < 0 {
		t.Fatalf("no winner: %v", errs)
	}
	row, err := h.aliasRows.GetByName(h.dbc(), name)
	if err != nil || row == nil || row.ScopeID != owners[winner].String() {
		t.Fatalf("alias row: want owner=%s got=%+v err=%v", owners[winner], row, err)
	}
}
