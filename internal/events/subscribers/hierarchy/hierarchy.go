// Package hierarchy mirrors the scope parent tree into Neo4j as
// (:Scope)-[:CHILD_OF]->(:Scope) so ancestry queries can run as graph walks.
package hierarchy

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/events/publisher"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
	"github.com/yungbote/scopes-backend/internal/platform/neo4jdb"
)

// Schema is applied once at startup.
var Schema = []string{
	`CREATE CONSTRAINT scope_id_unique IF NOT EXISTS FOR (s:Scope) REQUIRE s.id IS UNIQUE`,
}

// Writer executes a batch of statements atomically. *neo4jdb.Client satisfies it.
type Writer interface {
	Write(ctx context.Context, stmts []neo4jdb.Statement) error
}

type Subscriber struct {
	writer Writer
	log    *logger.Logger
	now    func() time.Time
}

var _ publisher.Publisher = (*Subscriber)(nil)

func NewSubscriber(w Writer, log *logger.Logger) *Subscriber {
	return &Subscriber{writer: w, log: log.With("subscriber", "ScopeHierarchy"), now: time.Now}
}

// Publish applies scope events to the graph. Alias and unknown events are
// ignored. Graph failures are distribution failures, so a resilient wrapper
// retries them.
func (s *Subscriber) Publish(ctx context.Context, ev events.Event) error {
	se, ok := ev.(scope.Event)
	if !ok {
		return nil
	}
	stmts := Statements(se, s.now().UTC())
	if len(stmts) == 0 {
		return nil
	}
	if err := s.writer.Write(ctx, stmts); err != nil {
		kind := publisher.KindDistribution
		if errors.Is(err, context.DeadlineExceeded) {
			kind = publisher.KindTimeout
		}
		return publisher.NewError(kind, ev.EventType(), err)
	}
	s.log.Debug("hierarchy synced", "event_type", ev.EventType(), "scope_id", ev.EventMeta().AggregateID)
	return nil
}

const (
	mergeScope = `
MERGE (s:Scope {id: $id})
SET s.title = $title, s.description = $description, s.is_archived = false, s.is_deleted = false,
    s.version = $version, s.synced_at = $synced_at`
	linkParent = `
MATCH (s:Scope {id: $id})
MERGE (p:Scope {id: $parent_id})
MERGE (s)-[e:CHILD_OF]->(p)
SET e.synced_at = $synced_at`
	unlinkParent = `
MATCH (s:Scope {id: $id})-[e:CHILD_OF]->(:Scope)
DELETE e`
	deleteScope = `
MATCH (s:Scope {id: $id})
SET s.is_deleted = true, s.version = $version, s.synced_at = $synced_at
WITH s
OPTIONAL MATCH (s)-[e:CHILD_OF]->(:Scope)
DELETE e`
)

// Statements translates one scope event into Cypher. Deleted scopes keep
// their node (children may still point at it) but lose their parent edge.
func Statements(ev scope.Event, at time.Time) []neo4jdb.Statement {
	meta := ev.EventMeta()
	syncedAt := at.Format(time.RFC3339Nano)
	base := func(extra map[string]any) map[string]any {
		p := map[string]any{"id": meta.AggregateID, "version": meta.AggregateVersion, "synced_at": syncedAt}
		for k, v := range extra {
			p[k] = v
		}
		return p
	}
	set := func(property string, value any) neo4jdb.Statement {
		return neo4jdb.Statement{
			Cypher: "MATCH (s:Scope {id: $id}) SET s." + property + " = $value, s.version = $version, s.synced_at = $synced_at",
			Params: base(map[string]any{"value": value}),
		}
	}

	switch e := ev.(type) {
	case scope.Created:
		stmts := []neo4jdb.Statement{{
			Cypher: mergeScope,
			Params: base(map[string]any{"title": e.Title, "description": e.Description}),
		}}
		if !e.ParentID.IsZero() {
			stmts = append(stmts, neo4jdb.Statement{Cypher: linkParent, Params: base(map[string]any{"parent_id": e.ParentID.String()})})
		}
		return stmts
	case scope.TitleUpdated:
		return []neo4jdb.Statement{set("title", e.NewTitle)}
	case scope.DescriptionUpdated:
		return []neo4jdb.Statement{set("description", e.NewDescription)}
	case scope.ParentChanged:
		stmts := []neo4jdb.Statement{{Cypher: unlinkParent, Params: base(nil)}}
		if !e.NewParentID.IsZero() {
			stmts = append(stmts, neo4jdb.Statement{Cypher: linkParent, Params: base(map[string]any{"parent_id": e.NewParentID.String()})})
		}
		return stmts
	case scope.Archived:
		return []neo4jdb.Statement{set("is_archived", true)}
	case scope.Restored:
		return []neo4jdb.Statement{set("is_archived", false)}
	case scope.Deleted:
		return []neo4jdb.Statement{{Cypher: deleteScope, Params: base(nil)}}
	default:
		return nil
	}
}
