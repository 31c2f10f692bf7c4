package aggregates

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/eventstore"
	"github.com/yungbote/scopes-backend/internal/data/repos/readmodel"
	repotest "github.com/yungbote/scopes-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/scopes-backend/internal/domain/aggregates"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/projection"
)

type harness struct {
	db        *gorm.DB
	scopes    domainagg.ScopeAggregate
	aliases   domainagg.AliasAggregate
	rows      readmodel.ScopeRowRepo
	aliasRows readmodel.AliasRepo
	store     eventstore.Store
	published *recordingPublisher
	hooks     Hooks
}

type harnessOption func(*StreamDeps)

func withProjector(p Projector) harnessOption {
	return func(d *StreamDeps) { d.Projector = p }
}

func withHooks(h Hooks) harnessOption {
	return func(d *StreamDeps) { d.Base.Hooks = h }
}

// newHarness wires both aggregates over db. Pass a repotest.Tx handle for
// isolation; aggregate transactions then run as savepoints.
func newHarness(t *testing.T, db *gorm.DB, opts ...harnessOption) *harness {
	t.Helper()
	log := repotest.Logger(t)
	registry := events.NewRegistry()
	scope.RegisterEvents(registry)
	alias.RegisterEvents(registry)

	guard := NewCASGuard(db)
	h := &harness{
		db:        db,
		rows:      readmodel.NewScopeRowRepo(db, log),
		aliasRows: readmodel.NewAliasRepo(db, log),
		store:     eventstore.NewGormStore(db, registry, guard, log),
		published: &recordingPublisher{},
	}
	deps := StreamDeps{
		Base: BaseDeps{
			DB:       db,
			Log:      log,
			Runner:   NewGormTxRunner(db),
			CASGuard: guard,
		},
		Store:     h.store,
		Projector: projection.NewProjector(projection.Deps{Scopes: h.rows, Aliases: h.aliasRows, Log: log}),
		Scopes:    h.rows,
		Aliases:   h.aliasRows,
		Publisher: h.published,
	}
	for _, o := range opts {
		o(&deps)
	}
	h.hooks = deps.Base.Hooks
	h.scopes = NewScopeAggregate(deps)
	h.aliases = NewAliasAggregate(deps)
	return h
}

func (h *harness) dbc() dbctx.Context {
	return dbctx.Context{Ctx: context.Background(), Tx: h.db}
}

func (h *harness) create(t *testing.T, title string) domainagg.ScopeWriteResult {
	t.Helper()
	res, err := h.scopes.Create(context.Background(), domainagg.CreateScopeInput{Title: title})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return res
}

func (h *harness) canonicalOf(t *testing.T, id scope.ID) string {
	t.Helper()
	rows, err := h.aliasRows.ListByScope(h.dbc(), id.String())
	if err != nil {
		t.Fatalf("list aliases: %v", err)
	}
	for _, r := range rows {
		if r.IsCanonical {
			return r.AliasName
		}
	}
	t.Fatalf("scope %s has no canonical alias", id)
	return ""
}

type recordingPublisher struct {
	mu  sync.Mutex
	evs []events.Event
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.evs))
	for _, ev := range p.evs {
		out = append(out, ev.EventType())
	}
	return out
}

type failingProjector struct{ err error }

func (f failingProjector) ProjectEvents(dbctx.Context, []events.Event) error { return f.err }

func int64p(v int64) *int64 { return &v }
