package scope

import (
	"github.com/yungbote/scopes-backend/internal/domain/events"
)

const AggregateType = "scope"

const (
	TypeCreated            = "scope.created"
	TypeTitleUpdated       = "scope.title_updated"
	TypeDescriptionUpdated = "scope.description_updated"
	TypeParentChanged      = "scope.parent_changed"
	TypeDeleted            = "scope.deleted"
	TypeArchived           = "scope.archived"
	TypeRestored           = "scope.restored"
)

// Event is the closed set of scope lifecycle events.
type Event interface {
	events.Event
	scopeEvent()
}

type Created struct {
	events.Meta `json:"-"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ParentID    ID     `json:"parent_id"`
}

type TitleUpdated struct {
	events.Meta `json:"-"`
	OldTitle    string `json:"old_title"`
	NewTitle    string `json:"new_title"`
}

type DescriptionUpdated struct {
	events.Meta    `json:"-"`
	OldDescription string `json:"old_description,omitempty"`
	NewDescription string `json:"new_description,omitempty"`
}

type ParentChanged struct {
	events.Meta `json:"-"`
	OldParentID ID `json:"old_parent_id"`
	NewParentID ID `json:"new_parent_id"`
}

type Deleted struct {
	events.Meta `json:"-"`
}

type Archived struct {
	events.Meta `json:"-"`
}

type Restored struct {
	events.Meta `json:"-"`
}

func (Created) EventType() string            { return TypeCreated }
func (TitleUpdated) EventType() string       { return TypeTitleUpdated }
func (DescriptionUpdated) EventType() string { return TypeDescriptionUpdated }
func (ParentChanged) EventType() string      { return TypeParentChanged }
func (Deleted) EventType() string            { return TypeDeleted }
func (Archived) EventType() string           { return TypeArchived }
func (Restored) EventType() string           { return TypeRestored }

func (Created) scopeEvent()            {}
func (TitleUpdated) scopeEvent()       {}
func (DescriptionUpdated) scopeEvent() {}
func (ParentChanged) scopeEvent()      {}
func (Deleted) scopeEvent()            {}
func (Archived) scopeEvent()           {}
func (Restored) scopeEvent()           {}

// RegisterEvents adds every scope event decoder to r.
func RegisterEvents(r *events.Registry) {
	events.Register[Created](r, TypeCreated)
	events.Register[TitleUpdated](r, TypeTitleUpdated)
	events.Register[DescriptionUpdated](r, TypeDescriptionUpdated)
	events.Register[ParentChanged](r, TypeParentChanged)
	events.Register[Deleted](r, TypeDeleted)
	events.Register[Archived](r, TypeArchived)
	events.Register[Restored](r, TypeRestored)
}
