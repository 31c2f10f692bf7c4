package events

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type noteAdded struct {
	Meta `json:"-"`
	Text string `json:"text"`
}

func (noteAdded) EventType() string { return "test.note_added" }

type unknownEvent struct {
	Meta
}

func (unknownEvent) EventType() string { return "test.unknown" }

func TestRegistryEncodeDecode(t *testing.T) {
	r := NewRegistry()
	Register[noteAdded](r, "test.note_added")

	in := noteAdded{
		Meta: Meta{EventID: uuid.New(), AggregateType: "note", AggregateID: "n1", AggregateVersion: 3, OccurredAt: time.Unix(10, 0).UTC()},
		Text: "hello",
	}
	raw, err := r.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := r.Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, ok := out.(noteAdded)
	if !ok {
		t.Fatalf("want noteAdded got %T", out)
	}
	if got != in {
		t.Fatalf("mismatch: want %+v got %+v", in, got)
	}
}

func TestRegistryUnregistered(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Encode(unknownEvent{}); !errors.Is(err, ErrUnregisteredEventType) {
		t.Fatalf("Encode: want ErrUnregisteredEventType got %v", err)
	}
	if _, err := r.Decode(Record{Type: "nope"}); !errors.Is(err, ErrUnregisteredEventType) {
		t.Fatalf("Decode: want ErrUnregisteredEventType got %v", err)
	}
}

func TestRegistryBadPayload(t *testing.T) {
	r := NewRegistry()
	Register[noteAdded](r, "test.note_added")
	_, err := r.Decode(Record{Type: "test.note_added", Payload: []byte("{")})
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("want ErrSerialization got %v", err)
	}
	if got := r.Types(); len(got) != 1 || got[0] != "test.note_added" {
		t.Fatalf("Types: got %v", got)
	}
}
