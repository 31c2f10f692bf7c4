package publisher

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/observability"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay is the un-jittered wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// AttemptObserver receives one call per attempt. Optional.
type AttemptObserver interface {
	ObservePublishAttempt(eventType string, attempt int, kind string, dur time.Duration)
}

type Option func(*Resilient)

// WithRand replaces the jitter source; it must return values in [0, 1).
func WithRand(f func() float64) Option { return func(r *Resilient) { r.rand = f } }

func WithSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Resilient) { r.sleep = f }
}

func WithObserver(o AttemptObserver) Option { return func(r *Resilient) { r.observer = o } }

// Resilient retries retryable failures of next with capped exponential
// backoff and 50-100% multiplicative jitter. It adds no deadline of its own.
type Resilient struct {
	next     Publisher
	policy   Policy
	log      *logger.Logger
	rand     func() float64
	sleep    func(ctx context.Context, d time.Duration) error
	observer AttemptObserver
}

var _ Publisher = (*Resilient)(nil)

func NewResilient(next Publisher, policy Policy, log *logger.Logger, opts ...Option) *Resilient {
	r := &Resilient{
		next:   next,
		policy: policy.withDefaults(),
		log:    log.With("service", "ResilientPublisher"),
		rand:   rand.Float64,
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Resilient) Policy() Policy { return r.policy }

// Publish returns nil on the first success. After a non-retryable failure or
// the last attempt it returns that attempt's error unchanged.
func (r *Resilient) Publish(ctx context.Context, ev events.Event) (err error) {
	var lastErr error
	eventType := ""
	if ev != nil {
		eventType = ev.EventType()
	}
	ctx, span := observability.Tracer().Start(ctx, "publisher.Publish",
		trace.WithAttributes(attribute.String("event.type", eventType)))
	defer func() {
		if err != nil {
			span.SetAttributes(attribute.String("publish.kind", string(KindOf(err))))
		}
		observability.EndSpan(span, err)
	}()
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		start := time.Now()
		err := r.next.Publish(ctx, ev)
		kind := KindOf(err)
		if r.observer != nil {
			r.observer.ObservePublishAttempt(eventType, attempt, string(kind), time.Since(start))
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if !kind.Retryable() {
			r.log.Warn("publish failed, not retryable", "event_type", eventType, "kind", string(kind), "attempt", attempt, "error", err)
			return err
		}
		if attempt == r.policy.MaxAttempts {
			break
		}
		wait := r.jittered(attempt)
		r.log.Debug("publish failed, retrying", "event_type", eventType, "kind", string(kind), "attempt", attempt, "wait", wait, "error", err)
		if r.sleep(ctx, wait) != nil {
			return lastErr
		}
	}
	r.log.Warn("publish attempts exhausted", "event_type", eventType, "attempts", r.policy.MaxAttempts, "error", lastErr)
	return lastErr
}

func (r *Resilient) jittered(attempt int) time.Duration {
	factor := 0.5 + 0.5*r.rand()
	return time.Duration(float64(r.policy.Delay(attempt)) * factor)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
