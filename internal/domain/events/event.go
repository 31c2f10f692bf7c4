// Package events defines the envelope shared by every domain event and the
// registry used to move events in and out of their serialized form.
//
// Concrete event sets (scope lifecycle, aliases) live next to the aggregate
// that emits them; this package only knows about their metadata.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Meta is the envelope every persisted or published event carries.
//
// AggregateVersion is the version stamped by the emitting aggregate. Folding
// code never trusts it; the fold counts events instead.
type Meta struct {
	EventID          uuid.UUID `json:"event_id"`
	AggregateType    string    `json:"aggregate_type"`
	AggregateID      string    `json:"aggregate_id"`
	AggregateVersion int64     `json:"aggregate_version"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func (m Meta) EventMeta() Meta { return m }

// SetEventMeta lets the registry restore the envelope after decoding a payload.
func (m *Meta) SetEventMeta(v Meta) { *m = v }

// Event is the sink contract toward persistence, projection and publication.
type Event interface {
	EventMeta() Meta
	EventType() string
}

// Record is the serialized form of an event.
type Record struct {
	Meta
	Type    string
	Payload []byte
}
