package publisher

import (
	"context"

	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

// LogPublisher writes an audit line per event. It never fails.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.With("service", "EventAudit")}
}

func (p *LogPublisher) Publish(_ context.Context, ev events.Event) error {
	if ev == nil {
		return nil
	}
	m := ev.EventMeta()
	p.log.Info("domain event",
		"event_type", ev.EventType(),
		"event_id", m.EventID.String(),
		"aggregate_type", m.AggregateType,
		"aggregate_id", m.AggregateID,
		"aggregate_version", m.AggregateVersion,
		"occurred_at", m.OccurredAt,
	)
	return nil
}
