package aliasindex

import (
	"context"

	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/events/publisher"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
	"github.com/yungbote/scopes-backend/internal/projection"
)

// SizeObserver is told the index size after every applied event.
type SizeObserver interface {
	SetAliasIndexSize(n int)
}

// Follower applies committed alias events to an Index using the same handlers
// that maintain the SQL alias table. Other events are ignored.
type Follower struct {
	index    *Index
	proj     *projection.Projector
	observer SizeObserver
}

var _ publisher.Publisher = (*Follower)(nil)

func NewFollower(index *Index, observer SizeObserver, log *logger.Logger) *Follower {
	return &Follower{
		index:    index,
		proj:     projection.NewProjector(projection.Deps{Aliases: index, Log: log.With("index", "alias")}),
		observer: observer,
	}
}

func (f *Follower) Publish(ctx context.Context, ev events.Event) error {
	if _, ok := ev.(alias.Event); !ok {
		return nil
	}
	if err := f.proj.Project(dbctx.Background(ctx), ev); err != nil {
		return err
	}
	if f.observer != nil {
		f.observer.SetAliasIndexSize(f.index.Len())
	}
	return nil
}
