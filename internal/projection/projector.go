// Package projection keeps the relational read model in step with the event
// log. It runs inside the write transaction of the aggregate that produced
// the events.
package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/scopes-backend/internal/data/eventstore"
	"github.com/yungbote/scopes-backend/internal/data/repos/readmodel"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/observability"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

// Hooks receives projection signals. observability.Metrics satisfies it.
type Hooks interface {
	ObserveProjection(eventType, status string, dur time.Duration)
	IncProjectionSkipped(eventType string)
	ObserveRebuild(status string, replayed int, dur time.Duration)
}

type noopHooks struct{}

func (noopHooks) ObserveProjection(string, string, time.Duration) {}
func (noopHooks) IncProjectionSkipped(string)                     {}
func (noopHooks) ObserveRebuild(string, int, time.Duration)       {}

// TxRunner opens the transaction a rebuild runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type Deps struct {
	Scopes  readmodel.ScopeRowRepo
	Aliases readmodel.AliasRepo
	// Store and Runner are only needed for Rebuild.
	Store  eventstore.Store
	Runner TxRunner
	Hooks  Hooks
	Log    *logger.Logger
}

type handler func(dbc dbctx.Context, ev events.Event) error

type Projector struct {
	scopes   readmodel.ScopeRowRepo
	aliases  readmodel.AliasRepo
	store    eventstore.Store
	runner   TxRunner
	hooks    Hooks
	log      *logger.Logger
	handlers map[string]handler
}

func NewProjector(deps Deps) *Projector {
	p := &Projector{
		scopes:  deps.Scopes,
		aliases: deps.Aliases,
		store:   deps.Store,
		runner:  deps.Runner,
		hooks:   deps.Hooks,
		log:     deps.Log.With("service", "Projector"),
	}
	if p.hooks == nil {
		p.hooks = noopHooks{}
	}
	p.handlers = map[string]handler{}
	p.registerScopeHandlers()
	p.registerAliasHandlers()
	return p
}

// Handles reports whether eventType has a handler.
func (p *Projector) Handles(eventType string) bool {
	_, ok := p.handlers[eventType]
	return ok
}

// ProjectEvents applies evs in order and stops at the first failure. The
// caller's transaction decides whether earlier writes survive.
func (p *Projector) ProjectEvents(dbc dbctx.Context, evs []events.Event) (err error) {
	if len(evs) == 0 {
		return nil
	}
	ctx, span := observability.Tracer().Start(dbc.Ctx, "projection.ProjectEvents")
	span.SetAttributes(attribute.Int("events", len(evs)))
	defer func() { observability.EndSpan(span, err) }()
	dbc.Ctx = ctx

	for i, ev := range evs {
		if err := p.Project(dbc, ev); err != nil {
			return fmt.Errorf("project event %d of %d (%s): %w", i+1, len(evs), ev.EventType(), err)
		}
	}
	return nil
}

// Project applies one event. Event types without a handler are logged and
// skipped so newer producers do not break older projectors.
func (p *Projector) Project(dbc dbctx.Context, ev events.Event) error {
	if ev == nil {
		return nil
	}
	eventType := ev.EventType()
	h, ok := p.handlers[eventType]
	if !ok {
		p.log.Warn("no projection handler, skipping event", "event_type", eventType, "event_id", ev.EventMeta().EventID)
		p.hooks.IncProjectionSkipped(eventType)
		return nil
	}
	start := time.Now()
	err := h(dbc, ev)
	status := "success"
	if err != nil {
		status = "failure"
		if errors.Is(err, ErrConsistency) {
			status = "consistency"
		}
	}
	p.hooks.ObserveProjection(eventType, status, time.Since(start))
	return err
}

// Rebuild truncates the read model and replays the whole event log in commit
// order within a single transaction. It returns the number of events replayed.
func (p *Projector) Rebuild(ctx context.Context) (replayed int, err error) {
	if p.store == nil || p.runner == nil {
		return 0, errors.New("projection: rebuild needs an event store and tx runner")
	}
	ctx, span := observability.Tracer().Start(ctx, "projection.Rebuild")
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		p.hooks.ObserveRebuild(status, replayed, time.Since(start))
		span.SetAttributes(attribute.Int("events", replayed))
		observability.EndSpan(span, err)
	}()

	err = p.runner.InTx(ctx, func(dbc dbctx.Context) error {
		replayed = 0
		if err := p.aliases.DeleteAll(dbc); err != nil {
			return fmt.Errorf("truncate aliases: %w", err)
		}
		if err := p.scopes.DeleteAll(dbc); err != nil {
			return fmt.Errorf("truncate scopes: %w", err)
		}
		return p.store.ReadAll(dbc, func(ev events.Event) error {
			if err := p.Project(dbc, ev); err != nil {
				return fmt.Errorf("replay %s %s: %w", ev.EventType(), ev.EventMeta().EventID, err)
			}
			replayed++
			return nil
		})
	})
	if err != nil {
		p.log.Error("projection rebuild failed", "error", err, "replayed", replayed)
		return 0, err
	}
	p.log.Info("projection rebuilt", "replayed", replayed, "took", time.Since(start))
	return replayed, nil
}
