package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnregisteredEventType is returned for types with no decoder.
	ErrUnregisteredEventType = errors.New("unregistered event type")
	// ErrSerialization wraps payload encode/decode failures.
	ErrSerialization = errors.New("event serialization")
)

type decodeFunc func(meta Meta, payload []byte) (Event, error)

// Registry maps event type names to decoders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]decodeFunc
}

func NewRegistry() *Registry {
	return &Registry{decoders: map[string]decodeFunc{}}
}

type metaSetter[E any] interface {
	*E
	SetEventMeta(Meta)
}

// Register adds a decoder for eventType producing values of E.
func Register[E Event, P metaSetter[E]](r *Registry, eventType string) {
	eventType = strings.TrimSpace(eventType)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[eventType] = func(meta Meta, payload []byte) (Event, error) {
		var e E
		p := P(&e)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, p); err != nil {
				return nil, fmt.Errorf("%w: decode %s: %v", ErrSerialization, eventType, err)
			}
		}
		p.SetEventMeta(meta)
		return e, nil
	}
}

func (r *Registry) Has(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.decoders[eventType]
	return ok
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.decoders))
	for k := range r.decoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Encode serializes e. The envelope is excluded from the payload; concrete
// events embed Meta with a `json:"-"` tag.
func (r *Registry) Encode(e Event) (Record, error) {
	if e == nil {
		return Record{}, fmt.Errorf("%w: nil event", ErrSerialization)
	}
	typ := e.EventType()
	if !r.Has(typ) {
		return Record{}, fmt.Errorf("%w: %q", ErrUnregisteredEventType, typ)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("%w: encode %s: %v", ErrSerialization, typ, err)
	}
	return Record{Meta: e.EventMeta(), Type: typ, Payload: payload}, nil
}

func (r *Registry) Decode(rec Record) (Event, error) {
	r.mu.RLock()
	dec, ok := r.decoders[rec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregisteredEventType, rec.Type)
	}
	return dec(rec.Meta, rec.Payload)
}

// Envelope is the JSON shape used on distribution buses.
type Envelope struct {
	Meta
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (r *Registry) Marshal(e Event) ([]byte, error) {
	rec, err := r.Encode(e)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(Envelope{Meta: rec.Meta, Type: rec.Type, Payload: rec.Payload})
	if err != nil {
		return nil, fmt.Errorf("%w: envelope %s: %v", ErrSerialization, rec.Type, err)
	}
	return raw, nil
}

func (r *Registry) Unmarshal(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrSerialization, err)
	}
	return r.Decode(Record{Meta: env.Meta, Type: env.Type, Payload: env.Payload})
}
