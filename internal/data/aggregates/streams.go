package aggregates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/scopes-backend/internal/data/eventstore"
	"github.com/yungbote/scopes-backend/internal/data/repos/readmodel"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/events/publisher"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

// Projector applies committed-to-be events to the read model inside the
// write transaction.
type Projector interface {
	ProjectEvents(dbc dbctx.Context, evs []events.Event) error
}

// StreamDeps wires the event-sourced aggregates. Scopes and Aliases are read
// for invariant checks only; the projector owns their writes.
type StreamDeps struct {
	Base BaseDeps

	Store     eventstore.Store
	Projector Projector
	Scopes    readmodel.ScopeRowRepo
	Aliases   readmodel.AliasRepo
	// Publisher receives events after commit. Failures are logged, never
	// returned: the write already happened.
	Publisher publisher.Publisher

	Now                   func() time.Time
	NewEventID            func() uuid.UUID
	NewAliasID            func() alias.ID
	MaxGenerationAttempts int
}

func (d StreamDeps) withDefaults() StreamDeps {
	d.Base = d.Base.withDefaults()
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewEventID == nil {
		d.NewEventID = uuid.New
	}
	if d.NewAliasID == nil {
		d.NewAliasID = alias.NewID
	}
	if d.MaxGenerationAttempts <= 0 {
		d.MaxGenerationAttempts = alias.DefaultMaxGenerationAttempts
	}
	return d
}

func (d StreamDeps) scopeEnv() scope.Env {
	return scope.Env{Now: d.Now(), NewEventID: d.NewEventID}
}

func (d StreamDeps) aliasEnv() alias.Env {
	return alias.Env{Now: d.Now(), NewEventID: d.NewEventID, NewAliasID: d.NewAliasID}
}

func scopeKey(id scope.ID) eventstore.StreamKey {
	return eventstore.StreamKey{Type: scope.AggregateType, ID: id.String()}
}

func aliasKey(id scope.ID) eventstore.StreamKey {
	return eventstore.StreamKey{Type: alias.AggregateType, ID: id.String()}
}

func loadScope(dbc dbctx.Context, store eventstore.Store, id scope.ID) (scope.Scope, error) {
	stored, err := store.Load(dbc, scopeKey(id))
	if err != nil {
		return scope.Scope{}, err
	}
	state := scope.New(id)
	for _, ev := range stored {
		se, ok := ev.(scope.Event)
		if !ok {
			return scope.Scope{}, fmt.Errorf("%w: %s in scope stream %s", scope.ErrUnknownEvent, ev.EventType(), id)
		}
		if state, err = scope.ApplyEvent(state, se); err != nil {
			return scope.Scope{}, err
		}
	}
	return state, nil
}

func loadAliasSet(dbc dbctx.Context, store eventstore.Store, id scope.ID) (alias.Set, error) {
	stored, err := store.Load(dbc, aliasKey(id))
	if err != nil {
		return alias.Set{}, err
	}
	set := alias.NewSet(id)
	for _, ev := range stored {
		ae, ok := ev.(alias.Event)
		if !ok {
			return alias.Set{}, fmt.Errorf("%w: %s in alias stream %s", alias.ErrUnknownEvent, ev.EventType(), id)
		}
		if set, err = alias.ApplyEvent(set, ae); err != nil {
			return alias.Set{}, err
		}
	}
	return set, nil
}

// appendScope appends to a scope stream, reporting a lost race as the
// domain's version mismatch.
func appendScope(dbc dbctx.Context, store eventstore.Store, id scope.ID, expected int64, evs []events.Event) error {
	_, err := store.Append(dbc, scopeKey(id), expected, evs)
	var conflict *eventstore.ConflictError
	if errors.As(err, &conflict) {
		return &scope.VersionMismatchError{Expected: conflict.Expected, Actual: conflict.Actual}
	}
	return err
}

// nameTaken reports whether name is held by any scope.
func nameTaken(dbc dbctx.Context, aliases readmodel.AliasRepo, name alias.Name) (bool, error) {
	row, err := aliases.GetByName(dbc, name.String())
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func scopeEvents(in []scope.Event) []events.Event {
	out := make([]events.Event, 0, len(in))
	for _, e := range in {
		out = append(out, e)
	}
	return out
}

// publishCommitted fans committed events out to subscribers, one at a time
// and in commit order.
func publishCommitted(ctx context.Context, log *logger.Logger, pub publisher.Publisher, evs []events.Event) {
	if pub == nil {
		return
	}
	for _, ev := range evs {
		if err := pub.Publish(ctx, ev); err != nil {
			meta := ev.EventMeta()
			log.Warn("publish after commit failed",
				"event_type", ev.EventType(),
				"event_id", meta.EventID,
				"aggregate_id", meta.AggregateID,
				"kind", string(publisher.KindOf(err)),
				"error", err,
			)
		}
	}
}
