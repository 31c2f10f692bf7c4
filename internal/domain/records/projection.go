package records

import (
	"time"

	"github.com/google/uuid"
)

// ScopeProjection is the denormalized scope row. Only the projector writes it.
type ScopeProjection struct {
	ID          string    `gorm:"column:id;primaryKey;size:26" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	ParentID    *string   `gorm:"column:parent_id;size:26;index" json:"parent_id,omitempty"`
	IsDeleted   bool      `gorm:"column:is_deleted;not null;default:false;index" json:"is_deleted"`
	IsArchived  bool      `gorm:"column:is_archived;not null;default:false;index" json:"is_archived"`
	Version     int64     `gorm:"column:version;not null" json:"version"`
	LastEventID uuid.UUID `gorm:"column:last_event_id;type:uuid" json:"last_event_id"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updated_at"`
}

func (ScopeProjection) TableName() string { return "scope_projection" }

// ScopeAlias is one alias row. alias_name carries a unique b-tree index that
// also serves prefix range scans.
type ScopeAlias struct {
	ID          string    `gorm:"column:id;primaryKey;size:26" json:"id"`
	AliasName   string    `gorm:"column:alias_name;not null;size:64;uniqueIndex" json:"alias_name"`
	ScopeID     string    `gorm:"column:scope_id;not null;size:26;index" json:"scope_id"`
	IsCanonical bool      `gorm:"column:is_canonical;not null;default:false" json:"is_canonical"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updated_at"`
}

func (ScopeAlias) TableName() string { return "scope_alias" }
