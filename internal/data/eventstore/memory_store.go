package eventstore

import (
	"sync"

	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

// MemoryStore keeps streams in process. It ignores dbc.Tx, so writes are not
// rolled back with a surrounding transaction.
type MemoryStore struct {
	mu      sync.RWMutex
	streams map[StreamKey][]events.Event
	log     []events.Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{streams: map[StreamKey][]events.Event{}}
}

func (m *MemoryStore) Load(_ dbctx.Context, key StreamKey) ([]events.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]events.Event(nil), m.streams[key]...), nil
}

func (m *MemoryStore) Version(_ dbctx.Context, key StreamKey) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.streams[key])), nil
}

func (m *MemoryStore) Append(_ dbctx.Context, key StreamKey, expectedVersion int64, evs []events.Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	actual := int64(len(m.streams[key]))
	if actual != expectedVersion {
		return 0, &ConflictError{Stream: key, Expected: expectedVersion, Actual: actual}
	}
	m.streams[key] = append(m.streams[key], evs...)
	m.log = append(m.log, evs...)
	return actual + int64(len(evs)), nil
}

func (m *MemoryStore) ReadAll(_ dbctx.Context, fn func(events.Event) error) error {
	m.mu.RLock()
	all := append([]events.Event(nil), m.log...)
	m.mu.RUnlock()
	for _, ev := range all {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}
