// Package publisher dispatches committed domain events to subscribers.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/yungbote/scopes-backend/internal/domain/events"
)

type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Func adapts a function to Publisher.
type Func func(ctx context.Context, ev events.Event) error

func (f Func) Publish(ctx context.Context, ev events.Event) error { return f(ctx, ev) }

// Kind classifies publish failures for retry decisions.
type Kind string

const (
	KindSerialization         Kind = "serialization"
	KindUnregisteredEventType Kind = "unregistered_event_type"
	KindStorage               Kind = "storage"
	KindDistribution          Kind = "distribution"
	KindTimeout               Kind = "timeout"
	KindUnknown               Kind = "unknown"
)

// Retryable reports whether another attempt could succeed without a code or
// configuration change.
func (k Kind) Retryable() bool {
	switch k {
	case KindStorage, KindDistribution, KindTimeout:
		return true
	default:
		return false
	}
}

type Error struct {
	Kind      Kind
	EventType string
	Err       error
}

func (e *Error) Error() string {
	if e.EventType != "" {
		return fmt.Sprintf("publish %s: %s: %v", e.EventType, e.Kind, e.Err)
	}
	return fmt.Sprintf("publish: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, eventType string, err error) error {
	return &Error{Kind: kind, EventType: eventType, Err: err}
}

// KindOf classifies err. An explicit *Error wins; otherwise well-known causes
// are recognized and anything else is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, events.ErrUnregisteredEventType):
		return KindUnregisteredEventType
	case errors.Is(err, events.ErrSerialization):
		return KindSerialization
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindUnknown
}

func IsRetryable(err error) bool { return KindOf(err).Retryable() }
