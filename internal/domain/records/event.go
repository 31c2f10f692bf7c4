package records

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScopeEvent is one row of the append-only event log. Seq gives a global
// replay order; (stream_type, aggregate_id, aggregate_version) is unique.
type ScopeEvent struct {
	Seq              int64          `gorm:"column:seq;primaryKey;autoIncrement" json:"seq"`
	EventID          uuid.UUID      `gorm:"column:event_id;type:uuid;not null;uniqueIndex" json:"event_id"`
	StreamType       string         `gorm:"column:stream_type;not null;size:32;uniqueIndex:idx_scope_event_stream_version,priority:1" json:"stream_type"`
	AggregateID      string         `gorm:"column:aggregate_id;not null;size:26;uniqueIndex:idx_scope_event_stream_version,priority:2" json:"aggregate_id"`
	AggregateVersion int64          `gorm:"column:aggregate_version;not null;uniqueIndex:idx_scope_event_stream_version,priority:3" json:"aggregate_version"`
	EventType        string         `gorm:"column:event_type;not null;size:64;index" json:"event_type"`
	Payload          datatypes.JSON `gorm:"column:payload" json:"payload"`
	OccurredAt       time.Time      `gorm:"column:occurred_at;not null" json:"occurred_at"`
	RecordedAt       time.Time      `gorm:"column:recorded_at;not null;index" json:"recorded_at"`
}

func (ScopeEvent) TableName() string { return "scope_event" }

// ScopeStream is the compare-and-set head of one stream.
type ScopeStream struct {
	StreamType  string    `gorm:"column:stream_type;primaryKey;size:32" json:"stream_type"`
	AggregateID string    `gorm:"column:aggregate_id;primaryKey;size:26" json:"aggregate_id"`
	Version     int64     `gorm:"column:version;not null" json:"version"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (ScopeStream) TableName() string { return "scope_stream" }
