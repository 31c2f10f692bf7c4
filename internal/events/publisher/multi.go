package publisher

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/scopes-backend/internal/domain/events"
)

// Multi fans one event out to every publisher concurrently and returns the
// first failure. One member failing does not cancel the others; wrap each
// member in Resilient to retry it independently.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev events.Event) error {
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0].Publish(ctx, ev)
	}
	var g errgroup.Group
	for _, p := range m {
		p := p
		g.Go(func() error { return p.Publish(ctx, ev) })
	}
	return g.Wait()
}

// PublishAll publishes evs in order, stopping at the first error.
func PublishAll(ctx context.Context, p Publisher, evs []events.Event) error {
	for _, ev := range evs {
		if err := p.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
