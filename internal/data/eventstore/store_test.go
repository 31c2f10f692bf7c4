package eventstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/aggregates"
	"github.com/yungbote/scopes-backend/internal/data/eventstore"
	repotest "github.com/yungbote/scopes-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scopes-backend/internal/domain"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

type storeCase struct {
	name string
	open func(t *testing.T) (eventstore.Store, dbctx.Context)
}

func storeCases() []storeCase {
	return []storeCase{
		{name: "gorm", open: func(t *testing.T) (eventstore.Store, dbctx.Context) {
			tx := repotest.Tx(t, repotest.DB(t))
			return newGormStore(t, tx), dbctx.Context{Ctx: context.Background(), Tx: tx}
		}},
		{name: "memory", open: func(t *testing.T) (eventstore.Store, dbctx.Context) {
			return eventstore.NewMemoryStore(), dbctx.Background(context.Background())
		}},
	}
}

func newGormStore(t *testing.T, db *gorm.DB) eventstore.Store {
	t.Helper()
	registry := events.NewRegistry()
	scope.RegisterEvents(registry)
	return eventstore.NewGormStore(db, registry, aggregates.NewCASGuard(db), repotest.Logger(t))
}

func meta(id scope.ID, version int64) events.Meta {
	return events.Meta{
		EventID:          uuid.New(),
		AggregateType:    scope.AggregateType,
		AggregateID:      id.String(),
		AggregateVersion: version,
		OccurredAt:       time.Now().UTC().Truncate(time.Millisecond),
	}
}

func streamOf(id scope.ID) eventstore.StreamKey {
	return eventstore.StreamKey{Type: scope.AggregateType, ID: id.String()}
}

func TestStoreAppendAndLoad(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			store, dbc := tc.open(t)
			id := scope.NewID()
			key := streamOf(id)

			if v, err := store.Version(dbc, key); err != nil || v != 0 {
				t.Fatalf("missing stream version: v=%d err=%v", v, err)
			}
			if evs, err := store.Load(dbc, key); err != nil || len(evs) != 0 {
				t.Fatalf("missing stream load: n=%d err=%v", len(evs), err)
			}

			head, err := store.Append(dbc, key, 0, []events.Event{
				scope.Created{Meta: meta(id, 1), Title: "first"},
				scope.TitleUpdated{Meta: meta(id, 2), OldTitle: "first", NewTitle: "second"},
			})
			if err != nil || head != 2 {
				t.Fatalf("append: head=%d err=%v", head, err)
			}
			evs, err := store.Load(dbc, key)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(evs) != 2 {
				t.Fatalf("loaded events: want=2 got=%d", len(evs))
			}
			created, ok := evs[0].(scope.Created)
			if !ok || created.Title != "first" || created.EventMeta().AggregateVersion != 1 {
				t.Fatalf("first event: %#v", evs[0])
			}
			if _, ok := evs[1].(scope.TitleUpdated); !ok {
				t.Fatalf("second event: %#v", evs[1])
			}
			state, err := scope.Replay(id, scopeEvents(t, evs))
			if err != nil || state.Title != "second" || state.Version != 2 {
				t.Fatalf("replay: %+v err=%v", state, err)
			}
		})
	}
}

func TestStoreAppendRejectsStaleHead(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			store, dbc := tc.open(t)
			id := scope.NewID()
			key := streamOf(id)
			if _, err := store.Append(dbc, key, 0, []events.Event{scope.Created{Meta: meta(id, 1), Title: "t"}}); err != nil {
				t.Fatalf("append: %v", err)
			}

			for _, expected := range []int64{0, 3} {
				_, err := store.Append(dbc, key, expected, []events.Event{scope.Archived{Meta: meta(id, 2)}})
				var conflict *eventstore.ConflictError
				if !errors.As(err, &conflict) || !errors.Is(err, eventstore.ErrConflict) {
					t.Fatalf("expected=%d: want conflict, got %v", expected, err)
				}
				if conflict.Expected != expected || conflict.Actual != 1 {
					t.Fatalf("conflict details: %+v", conflict)
				}
			}
			if v, _ := store.Version(dbc, key); v != 1 {
				t.Fatalf("head moved after conflicts: %d", v)
			}
		})
	}
}

func TestStoreReadAllInCommitOrder(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			store, dbc := tc.open(t)
			a, b := scope.NewID(), scope.NewID()
			steps := []struct {
				id       scope.ID
				expected int64
				ev       events.Event
			}{
				{a, 0, scope.Created{Meta: meta(a, 1), Title: "a"}},
				{b, 0, scope.Created{Meta: meta(b, 1), Title: "b"}},
				{a, 1, scope.Archived{Meta: meta(a, 2)}},
			}
			var want []uuid.UUID
			for _, s := range steps {
				if _, err := store.Append(dbc, streamOf(s.id), s.expected, []events.Event{s.ev}); err != nil {
					t.Fatalf("append: %v", err)
				}
				want = append(want, s.ev.EventMeta().EventID)
			}

			var got []uuid.UUID
			err := store.ReadAll(dbc, func(ev events.Event) error {
				got = append(got, ev.EventMeta().EventID)
				return nil
			})
			if err != nil {
				t.Fatalf("read all: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("read all count: want=%d got=%d", len(want), len(got))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("position %d: want=%s got=%s", i, want[i], got[i])
				}
			}
		})
	}
}

func TestGormStoreAppendRollsBackWithTransaction(t *testing.T) {
	db := repotest.Tx(t, repotest.DB(t))
	store := newGormStore(t, db)
	id := scope.NewID()
	boom := errors.New("projection failed")

	err := db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
		if _, err := store.Append(dbc, streamOf(id), 0, []events.Event{scope.Created{Meta: meta(id, 1), Title: "t"}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("transaction: %v", err)
	}
	dbc := dbctx.Context{Ctx: context.Background(), Tx: db}
	if v, err := store.Version(dbc, streamOf(id)); err != nil || v != 0 {
		t.Fatalf("rolled back append left head=%d err=%v", v, err)
	}
}

func TestGormStoreEventIndexBackstopReportsUnknownHead(t *testing.T) {
	db := repotest.Tx(t, repotest.DB(t))
	store := newGormStore(t, db)
	id := scope.NewID()
	// A stray version-1 row without a stream head: the head CAS passes and
	// only the unique (stream, version) index catches the clash.
	stray := &types.ScopeEvent{
		EventID: uuid.New(), StreamType: scope.AggregateType, AggregateID: id.String(), AggregateVersion: 1,
		EventType: scope.TypeCreated, Payload: datatypes.JSON(`{}`), OccurredAt: time.Now().UTC(), RecordedAt: time.Now().UTC(),
	}
	if err := db.Create(stray).Error; err != nil {
		t.Fatalf("seed stray row: %v", err)
	}

	dbc := dbctx.Context{Ctx: context.Background(), Tx: db}
	_, err := store.Append(dbc, streamOf(id), 0, []events.Event{scope.Created{Meta: meta(id, 1), Title: "t"}})
	var conflict *eventstore.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if conflict.Expected != 0 || conflict.Actual != eventstore.UnknownVersion {
		t.Fatalf("conflict: %+v", conflict)
	}
}

type unregistered struct{ events.Meta }

func (unregistered) EventType() string { return "scope.unregistered" }

func TestGormStoreRejectsUnregisteredEvents(t *testing.T) {
	db := repotest.Tx(t, repotest.DB(t))
	store := newGormStore(t, db)
	id := scope.NewID()
	dbc := dbctx.Context{Ctx: context.Background(), Tx: db}

	_, err := store.Append(dbc, streamOf(id), 0, []events.Event{unregistered{Meta: meta(id, 1)}})
	if !errors.Is(err, events.ErrUnregisteredEventType) {
		t.Fatalf("want unregistered error, got %v", err)
	}
}

func scopeEvents(t *testing.T, evs []events.Event) []scope.Event {
	t.Helper()
	out := make([]scope.Event, 0, len(evs))
	for _, ev := range evs {
		se, ok := ev.(scope.Event)
		if !ok {
			t.Fatalf("not a scope event: %T", ev)
		}
		out = append(out, se)
	}
	return out
}
