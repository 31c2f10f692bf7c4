package eventstore

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/scopes-backend/internal/data/db"
	types "github.com/yungbote/scopes-backend/internal/domain"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

const streamTable = "scope_stream"

// HeadGuard advances a row only when its version column still matches.
type HeadGuard interface {
	UpdateByVersion(dbc dbctx.Context, table string, keys map[string]any, expectedVersion int64, updates map[string]any) (bool, error)
}

type gormStore struct {
	db       *gorm.DB
	log      *logger.Logger
	registry *events.Registry
	guard    HeadGuard
	now      func() time.Time
}

func NewGormStore(db *gorm.DB, registry *events.Registry, guard HeadGuard, baseLog *logger.Logger) Store {
	return &gormStore{
		db:       db,
		log:      baseLog.With("repo", "EventStore"),
		registry: registry,
		guard:    guard,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *gormStore) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = s.db
	}
	return t.WithContext(dbc.Ctx)
}

func (s *gormStore) Load(dbc dbctx.Context, key StreamKey) ([]events.Event, error) {
	var rows []*types.ScopeEvent
	if err := s.tx(dbc).
		Where("stream_type = ? AND aggregate_id = ?", key.Type, key.ID).
		Order("aggregate_version ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]events.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := s.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *gormStore) Version(dbc dbctx.Context, key StreamKey) (int64, error) {
	var head types.ScopeStream
	err := s.tx(dbc).
		Where("stream_type = ? AND aggregate_id = ?", key.Type, key.ID).
		Limit(1).
		Find(&head).Error
	if err != nil {
		return 0, err
	}
	return head.Version, nil
}

func (s *gormStore) Append(dbc dbctx.Context, key StreamKey, expectedVersion int64, evs []events.Event) (int64, error) {
	if strings.TrimSpace(key.Type) == "" || strings.TrimSpace(key.ID) == "" {
		return 0, fmt.Errorf("eventstore: stream key is required")
	}
	if expectedVersion < 0 {
		return 0, fmt.Errorf("eventstore: expected version must be >= 0")
	}
	if len(evs) == 0 {
		return expectedVersion, nil
	}
	if dbc.Tx == nil {
		var head int64
		err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			head, err = s.Append(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, key, expectedVersion, evs)
			return err
		})
		return head, err
	}

	recordedAt := s.now()
	next := expectedVersion + int64(len(evs))
	if err := s.advanceHead(dbc, key, expectedVersion, next, recordedAt); err != nil {
		return 0, err
	}

	rows := make([]*types.ScopeEvent, 0, len(evs))
	for i, ev := range evs {
		rec, err := s.registry.Encode(ev)
		if err != nil {
			return 0, err
		}
		rows = append(rows, &types.ScopeEvent{
			EventID:          rec.EventID,
			StreamType:       key.Type,
			AggregateID:      key.ID,
			AggregateVersion: expectedVersion + int64(i) + 1,
			EventType:        rec.Type,
			Payload:          datatypes.JSON(rec.Payload),
			OccurredAt:       rec.OccurredAt,
			RecordedAt:       recordedAt,
		})
	}
	if err := s.tx(dbc).Create(&rows).Error; err != nil {
		if db.IsUniqueViolation(err) {
			// Postgres aborts the transaction on the violation; the head
			// cannot be read back here.
			return 0, &ConflictError{Stream: key, Expected: expectedVersion, Actual: UnknownVersion}
		}
		return 0, err
	}
	s.log.Debug("events appended", "stream", key.String(), "count", len(rows), "version", next)
	return next, nil
}

func (s *gormStore) advanceHead(dbc dbctx.Context, key StreamKey, expected, next int64, at time.Time) error {
	if expected == 0 {
		res := s.tx(dbc).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&types.ScopeStream{StreamType: key.Type, AggregateID: key.ID, Version: next, UpdatedAt: at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	} else {
		ok, err := s.guard.UpdateByVersion(dbc, streamTable,
			map[string]any{"stream_type": key.Type, "aggregate_id": key.ID},
			expected,
			map[string]any{"version": next, "updated_at": at},
		)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	actual, err := s.Version(dbc, key)
	if err != nil {
		return err
	}
	return &ConflictError{Stream: key, Expected: expected, Actual: actual}
}

func (s *gormStore) ReadAll(dbc dbctx.Context, fn func(events.Event) error) error {
	var batch []*types.ScopeEvent
	res := s.tx(dbc).Order("seq ASC").FindInBatches(&batch, 500, func(_ *gorm.DB, _ int) error {
		for _, row := range batch {
			ev, err := s.decode(row)
			if err != nil {
				return err
			}
			if err := fn(ev); err != nil {
				return err
			}
		}
		return nil
	})
	return res.Error
}

func (s *gormStore) decode(row *types.ScopeEvent) (events.Event, error) {
	return s.registry.Decode(events.Record{
		Meta: events.Meta{
			EventID:          row.EventID,
			AggregateType:    row.StreamType,
			AggregateID:      row.AggregateID,
			AggregateVersion: row.AggregateVersion,
			OccurredAt:       row.OccurredAt,
		},
		Type:    row.EventType,
		Payload: row.Payload,
	})
}
