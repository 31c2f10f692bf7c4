package alias

import (
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
)

// AggregateType names the per-scope alias stream.
const AggregateType = "alias"

const (
	TypeAssigned          = "alias.assigned"
	TypeNameChanged       = "alias.name_changed"
	TypeRemoved           = "alias.removed"
	TypeCanonicalReplaced = "alias.canonical_replaced"
)

// Event is the closed set of alias events.
type Event interface {
	events.Event
	aliasEvent()
}

type AliasAssigned struct {
	events.Meta `json:"-"`
	AliasID     ID       `json:"alias_id"`
	Name        Name     `json:"name"`
	ScopeID     scope.ID `json:"scope_id"`
	IsCanonical bool     `json:"is_canonical"`
}

type AliasNameChanged struct {
	events.Meta `json:"-"`
	AliasID     ID       `json:"alias_id"`
	ScopeID     scope.ID `json:"scope_id"`
	OldName     Name     `json:"old_name"`
	NewName     Name     `json:"new_name"`
}

type AliasRemoved struct {
	events.Meta `json:"-"`
	AliasID     ID       `json:"alias_id"`
	ScopeID     scope.ID `json:"scope_id"`
	Name        Name     `json:"name"`
}

// CanonicalAliasReplaced demotes the old canonical alias and promotes the
// new one. NewAliasID may not exist yet, in which case it is inserted.
type CanonicalAliasReplaced struct {
	events.Meta `json:"-"`
	ScopeID     scope.ID `json:"scope_id"`
	OldAliasID  ID       `json:"old_alias_id"`
	OldName     Name     `json:"old_name"`
	NewAliasID  ID       `json:"new_alias_id"`
	NewName     Name     `json:"new_name"`
}

func (AliasAssigned) EventType() string          { return TypeAssigned }
func (AliasNameChanged) EventType() string       { return TypeNameChanged }
func (AliasRemoved) EventType() string           { return TypeRemoved }
func (CanonicalAliasReplaced) EventType() string { return TypeCanonicalReplaced }

func (AliasAssigned) aliasEvent()          {}
func (AliasNameChanged) aliasEvent()       {}
func (AliasRemoved) aliasEvent()           {}
func (CanonicalAliasReplaced) aliasEvent() {}

func RegisterEvents(r *events.Registry) {
	events.Register[AliasAssigned](r, TypeAssigned)
	events.Register[AliasNameChanged](r, TypeNameChanged)
	events.Register[AliasRemoved](r, TypeRemoved)
	events.Register[CanonicalAliasReplaced](r, TypeCanonicalReplaced)
}
