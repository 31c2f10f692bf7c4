package publisher

import (
	"context"
	"errors"

	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/events/bus"
)

// BusPublisher serializes events through the registry and sends them on a bus.
type BusPublisher struct {
	registry *events.Registry
	bus      bus.Bus
}

func NewBusPublisher(registry *events.Registry, b bus.Bus) *BusPublisher {
	return &BusPublisher{registry: registry, bus: b}
}

func (p *BusPublisher) Publish(ctx context.Context, ev events.Event) error {
	if ev == nil {
		return NewError(KindSerialization, "", errors.New("nil event"))
	}
	typ := ev.EventType()
	raw, err := p.registry.Marshal(ev)
	if err != nil {
		if errors.Is(err, events.ErrUnregisteredEventType) {
			return NewError(KindUnregisteredEventType, typ, err)
		}
		return NewError(KindSerialization, typ, err)
	}
	msg := bus.Message{Key: ev.EventMeta().AggregateID, Type: typ, Payload: raw}
	if err := p.bus.Send(ctx, msg); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || KindOf(err) == KindTimeout {
			return NewError(KindTimeout, typ, err)
		}
		return NewError(KindDistribution, typ, err)
	}
	return nil
}
