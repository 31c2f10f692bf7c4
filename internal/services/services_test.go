package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/scopes-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/scopes-backend/internal/data/aliasindex"
	"github.com/yungbote/scopes-backend/internal/data/eventstore"
	"github.com/yungbote/scopes-backend/internal/data/repos/readmodel"
	repotest "github.com/yungbote/scopes-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/scopes-backend/internal/domain/aggregates"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/events/publisher"
	"github.com/yungbote/scopes-backend/internal/projection"
)

type fixture struct {
	scopes   ScopeService
	resolver AliasResolver
	hooks    *aggtest.HooksRecorder
	sink     *sink
}

type fixtureOptions struct {
	runner aggregates.TxRunner
	// index serves alias reads from memory, kept current by a Follower.
	index *aliasindex.Index
}

func newFixture(t *testing.T, db *gorm.DB, opts fixtureOptions) *fixture {
	t.Helper()
	log := repotest.Logger(t)
	registry := events.NewRegistry()
	scope.RegisterEvents(registry)
	alias.RegisterEvents(registry)

	guard := aggregates.NewCASGuard(db)
	rows := readmodel.NewScopeRowRepo(db, log)
	sqlAliases := readmodel.NewAliasRepo(db, log)
	var reads readmodel.AliasRepo = sqlAliases
	f := &fixture{hooks: &aggtest.HooksRecorder{}, sink: &sink{}}
	var pub publisher.Publisher = f.sink
	if opts.index != nil {
		reads = opts.index
		pub = publisher.Multi{f.sink, aliasindex.NewFollower(opts.index, nil, log)}
	}
	runner := opts.runner
	if runner == nil {
		runner = aggregates.NewGormTxRunner(db)
	}

	deps := aggregates.StreamDeps{
		Base:      aggregates.BaseDeps{DB: db, Log: log, Runner: runner, Hooks: f.hooks, CASGuard: guard},
		Store:     eventstore.NewGormStore(db, registry, guard, log),
		Projector: projection.NewProjector(projection.Deps{Scopes: rows, Aliases: sqlAliases, Log: log}),
		Scopes:    rows,
		Aliases:   sqlAliases,
		Publisher: pub,
	}
	f.scopes = NewScopeService(db, log, aggregates.NewScopeAggregate(deps), rows)
	f.resolver = NewAliasResolver(db, log, aggregates.NewAliasAggregate(deps), reads)
	return f
}

type sink struct {
	mu  sync.Mutex
	evs []events.Event
}

func (s *sink) Publish(_ context.Context, ev events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evs = append(s.evs, ev)
	return nil
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.evs)
}

func canonical(t *testing.T, r AliasResolver, id scope.ID) alias.Alias {
	t.Helper()
	list, err := r.ListAliases(context.Background(), id)
	if err != nil {
		t.Fatalf("list aliases: %v", err)
	}
	if len(list) == 0 || !list[0].IsCanonical {
		t.Fatalf("scope %s: canonical alias missing from %+v", id, list)
	}
	return list[0]
}

func runScenario(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()

	created, evs, err := f.scopes.Create(ctx, CreateScopeRequest{Title: "Implement auth"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 || len(evs) != 2 {
		t.Fatalf("create: version=%d events=%d", created.Version, len(evs))
	}
	generated := canonical(t, f.resolver, created.ID)

	if _, err := f.resolver.AddCustomAlias(ctx, created.ID, "auth-feature"); err != nil {
		t.Fatalf("add custom alias: %v", err)
	}
	got, err := f.resolver.Resolve(ctx, "auth")
	if err != nil || got != created.ID {
		t.Fatalf("resolve unique prefix: got=%s err=%v", got, err)
	}

	promoted, err := f.resolver.SetCanonical(ctx, created.ID, "auth-feature")
	if err != nil || !promoted.IsCanonical {
		t.Fatalf("set canonical: %+v err=%v", promoted, err)
	}
	if now := canonical(t, f.resolver, created.ID); now.Name != "auth-feature" {
		t.Fatalf("canonical after swap: %s", now.Name)
	}

	got, err = f.resolver.Resolve(ctx, generated.Name.String())
	if err != nil || got != created.ID {
		t.Fatalf("old alias should still resolve: got=%s err=%v", got, err)
	}
	list, _ := f.resolver.ListAliases(ctx, created.ID)
	for _, a := range list {
		if a.Name == generated.Name && a.IsCanonical {
			t.Fatalf("old alias should now be custom")
		}
	}

	removed, err := f.resolver.RemoveAlias(ctx, generated.Name.String())
	if err != nil || removed.Name != generated.Name {
		t.Fatalf("remove old alias: %+v err=%v", removed, err)
	}
	_, err = f.resolver.Resolve(ctx, generated.Name.String())
	if !errors.Is(err, alias.ErrAliasNotFound) {
		t.Fatalf("removed alias resolved: %v", err)
	}
}

func TestScenarioWithSQLNamespace(t *testing.T) {
	f := newFixture(t, repotest.Tx(t, repotest.DB(t)), fixtureOptions{})
	runScenario(t, f)
	if len(f.hooks.Operations) == 0 {
		t.Fatalf("aggregate hooks were not called")
	}
}

func TestScenarioWithIndexedNamespace(t *testing.T) {
	index := aliasindex.New()
	f := newFixture(t, repotest.Tx(t, repotest.DB(t)), fixtureOptions{index: index})
	runScenario(t, f)
	if index.Len() != 1 {
		t.Fatalf("index should hold only auth-feature, has %d names", index.Len())
	}
}

func TestResolveAmbiguousPrefix(t *testing.T) {
	f := newFixture(t, repotest.Tx(t, repotest.DB(t)), fixtureOptions{})
	ctx := context.Background()
	a, _, err := f.scopes.Create(ctx, CreateScopeRequest{Title: "A"})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, _, err := f.scopes.Create(ctx, CreateScopeRequest{Title: "B"})
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	if _, err := f.resolver.AddCustomAlias(ctx, b.ID, "proj-beta"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.resolver.AddCustomAlias(ctx, a.ID, "proj-alpha"); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err = f.resolver.Resolve(ctx, "PROJ")
	var amb *alias.AmbiguousAliasError
	if !errors.As(err, &amb) {
		t.Fatalf("want ambiguous error, got %v", err)
	}
	if len(amb.Candidates) != 2 || amb.Candidates[0].Name != "proj-alpha" || amb.Candidates[1].Name != "proj-beta" {
		t.Fatalf("candidates: %+v", amb.Candidates)
	}
	if amb.Candidates[0].ScopeID != a.ID || amb.Candidates[1].ScopeID != b.ID {
		t.Fatalf("candidate scopes: %+v", amb.Candidates)
	}
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("ambiguous code: %s", domainagg.CodeOf(err))
	}

	got, err := f.resolver.Resolve(ctx, "proj-al")
	if err != nil || got != a.ID {
		t.Fatalf("longer prefix: got=%s err=%v", got, err)
	}
}

func TestResolvePrefixOnOneScopeIsStillAmbiguous(t *testing.T) {
	f := newFixture(t, repotest.Tx(t, repotest.DB(t)), fixtureOptions{})
	ctx := context.Background()
	s, _, err := f.scopes.Create(ctx, CreateScopeRequest{Title: "Only"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, n := range []string{"docs-api", "docs-guide"} {
		if _, err := f.resolver.AddCustomAlias(ctx, s.ID, n); err != nil {
			t.Fatalf("add %s: %v", n, err)
		}
	}
	got, err := f.resolver.Resolve(ctx, "docs")
	var amb *alias.AmbiguousAliasError
	if !errors.As(err, &amb) {
		t.Fatalf("resolve: got=%s err=%v, want AmbiguousAliasError", got, err)
	}
	if len(amb.Candidates) != 2 || amb.Candidates[0].Name != "docs-api" || amb.Candidates[1].Name != "docs-guide" {
		t.Fatalf("candidates: %+v", amb.Candidates)
	}
	if got, err := f.resolver.Resolve(ctx, "docs-g"); err != nil || got != s.ID {
		t.Fatalf("unique prefix: got=%s err=%v", got, err)
	}
	if _, err := f.resolver.Resolve(ctx, "   "); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("blank input: %v", err)
	}
	if _, err := f.resolver.Resolve(ctx, "nothing-here"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown input: %v", err)
	}
	names, err := f.resolver.Complete(ctx, "docs-", 1)
	if err != nil || len(names) != 1 || names[0].Name != "docs-api" {
		t.Fatalf("complete: %+v err=%v", names, err)
	}
}

func TestScopeServiceQueries(t *testing.T) {
	f := newFixture(t, repotest.Tx(t, repotest.DB(t)), fixtureOptions{})
	ctx := context.Background()
	parent, _, err := f.scopes.Create(ctx, CreateScopeRequest{Title: "Parent"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, _, err := f.scopes.Create(ctx, CreateScopeRequest{Title: "Child", ParentID: parent.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	v := child.Version
	if _, _, err := f.scopes.UpdateDescription(ctx, child.ID, &v, "details"); err != nil {
		t.Fatalf("update description: %v", err)
	}

	row, err := f.scopes.Get(ctx, child.ID)
	if err != nil || row.Description != "details" || row.Version != 2 {
		t.Fatalf("get: %+v err=%v", row, err)
	}
	loaded, err := f.scopes.Load(ctx, child.ID)
	if err != nil || loaded.Version != row.Version || loaded.Description != row.Description {
		t.Fatalf("load and projection disagree: %+v vs %+v err=%v", loaded, row, err)
	}
	kids, err := f.scopes.ListChildren(ctx, parent.ID, false)
	if err != nil || len(kids) != 1 || kids[0].ID != child.ID.String() {
		t.Fatalf("children: %+v err=%v", kids, err)
	}
	if _, err := f.scopes.Get(ctx, scope.NewID()); !errors.Is(err, scope.ErrNotFound) {
		t.Fatalf("get unknown: %v", err)
	}
}

func TestScopeServiceFailedCommitPublishesNothing(t *testing.T) {
	commitErr := errors.New("commit failed")
	tx := repotest.Tx(t, repotest.DB(t))
	runner := &aggtest.InjectedTxRunner{DB: tx, FailCommit: commitErr}
	f := newFixture(t, tx, fixtureOptions{runner: runner})

	_, _, err := f.scopes.Create(context.Background(), CreateScopeRequest{Title: "Never visible"})
	if !errors.Is(err, commitErr) {
		t.Fatalf("want commit error, got %v", err)
	}
	if f.sink.count() != 0 {
		t.Fatalf("events published for a failed commit: %d", f.sink.count())
	}
	if _, _, rollbacks := runner.Counts(); rollbacks != 1 {
		t.Fatalf("rollback calls: want=1 got=%d", rollbacks)
	}
	var rows int64
	if err := tx.Table("scope_projection").Where("title = ?", "Never visible").Count(&rows).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 0 {
		t.Fatalf("projection rows survived a failed commit: %d", rows)
	}
	if got := f.hooks.Statuses("Scopes.Scope.Create"); len(got) != 1 || got[0] == "success" {
		t.Fatalf("hooks: %+v", got)
	}
}
