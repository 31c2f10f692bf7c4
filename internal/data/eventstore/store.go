// Package eventstore persists domain event streams with optimistic
// concurrency on the stream head.
package eventstore

import (
	"errors"
	"fmt"

	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

// ErrConflict reports that a stream moved past the expected version.
var ErrConflict = errors.New("event stream conflict")

// UnknownVersion is ConflictError.Actual when the head could not be read back.
const UnknownVersion int64 = -1

// StreamKey names one stream, e.g. ("scope", <ulid>) or ("alias", <ulid>).
type StreamKey struct {
	Type string
	ID   string
}

func (k StreamKey) String() string { return k.Type + "/" + k.ID }

type ConflictError struct {
	Stream   StreamKey
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	if e.Actual == UnknownVersion {
		return fmt.Sprintf("stream %s: expected version %d, head unknown", e.Stream, e.Expected)
	}
	return fmt.Sprintf("stream %s: expected version %d, found %d", e.Stream, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Store is the append-only event log.
type Store interface {
	// Load returns the stream in version order. A missing stream is empty.
	Load(dbc dbctx.Context, key StreamKey) ([]events.Event, error)
	// Version returns the head of the stream, zero when it does not exist.
	Version(dbc dbctx.Context, key StreamKey) (int64, error)
	// Append writes evs after expectedVersion and returns the new head.
	Append(dbc dbctx.Context, key StreamKey, expectedVersion int64, evs []events.Event) (int64, error)
	// ReadAll visits every event of every stream in commit order.
	ReadAll(dbc dbctx.Context, fn func(events.Event) error) error
}
