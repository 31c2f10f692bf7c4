package scope

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/scopes-backend/internal/domain/events"
)

// Command is the closed set of scope commands.
type Command interface {
	scopeCommand()
}

type Create struct {
	Title       string
	Description string
	ParentID    ID
}

type UpdateTitle struct{ Title string }

type UpdateDescription struct{ Description string }

// ChangeParent moves the scope. A zero ParentID detaches it.
type ChangeParent struct{ ParentID ID }

type Delete struct{}

type Archive struct{}

type Restore struct{}

func (Create) scopeCommand()            {}
func (UpdateTitle) scopeCommand()       {}
func (UpdateDescription) scopeCommand() {}
func (ChangeParent) scopeCommand()      {}
func (Delete) scopeCommand()            {}
func (Archive) scopeCommand()           {}
func (Restore) scopeCommand()           {}

// Env carries the non-deterministic inputs of Decide so the step stays pure
// for a fixed Env.
type Env struct {
	Now        time.Time
	NewEventID func() uuid.UUID
}

func (e Env) withDefaults() Env {
	if e.Now.IsZero() {
		e.Now = time.Now().UTC()
	}
	if e.NewEventID == nil {
		e.NewEventID = uuid.New
	}
	return e
}

// Decide validates cmd against s and returns the events it produces. A nil
// slice with a nil error means the command was a no-op.
func Decide(s Scope, cmd Command, env Env) ([]Event, error) {
	env = env.withDefaults()
	if c, ok := cmd.(Create); ok {
		return decideCreate(s, c, env)
	}
	if !s.Exists() {
		return nil, ErrNotFound
	}
	switch c := cmd.(type) {
	case UpdateTitle:
		if s.IsDeleted {
			return nil, ErrScopeDeleted
		}
		title, err := normalizeTitle(c.Title)
		if err != nil {
			return nil, err
		}
		if title == s.Title {
			return nil, nil
		}
		return []Event{TitleUpdated{Meta: stamp(s, env, 1), OldTitle: s.Title, NewTitle: title}}, nil
	case UpdateDescription:
		if s.IsDeleted {
			return nil, ErrScopeDeleted
		}
		desc, err := normalizeDescription(c.Description)
		if err != nil {
			return nil, err
		}
		if desc == s.Description {
			return nil, nil
		}
		return []Event{DescriptionUpdated{Meta: stamp(s, env, 1), OldDescription: s.Description, NewDescription: desc}}, nil
	case ChangeParent:
		if s.IsDeleted {
			return nil, ErrScopeDeleted
		}
		if c.ParentID == s.ID {
			return nil, ErrParentIsSelf
		}
		if c.ParentID == s.ParentID {
			return nil, nil
		}
		return []Event{ParentChanged{Meta: stamp(s, env, 1), OldParentID: s.ParentID, NewParentID: c.ParentID}}, nil
	case Delete:
		if s.IsDeleted {
			return nil, ErrAlreadyDeleted
		}
		return []Event{Deleted{Meta: stamp(s, env, 1)}}, nil
	case Archive:
		if s.IsDeleted {
			return nil, ErrScopeDeleted
		}
		if s.IsArchived {
			return nil, ErrAlreadyArchived
		}
		return []Event{Archived{Meta: stamp(s, env, 1)}}, nil
	case Restore:
		if s.IsDeleted {
			return nil, ErrScopeDeleted
		}
		if !s.IsArchived {
			return nil, ErrNotArchived
		}
		return []Event{Restored{Meta: stamp(s, env, 1)}}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func decideCreate(s Scope, c Create, env Env) ([]Event, error) {
	if s.Exists() {
		return nil, ErrAlreadyExists
	}
	if s.ID.IsZero() {
		return nil, fmt.Errorf("%w: scope id is required", ErrValidation)
	}
	title, err := normalizeTitle(c.Title)
	if err != nil {
		return nil, err
	}
	desc, err := normalizeDescription(c.Description)
	if err != nil {
		return nil, err
	}
	if c.ParentID == s.ID {
		return nil, ErrParentIsSelf
	}
	return []Event{Created{Meta: stamp(s, env, 1), Title: title, Description: desc, ParentID: c.ParentID}}, nil
}

func stamp(s Scope, env Env, offset int64) events.Meta {
	return events.Meta{
		EventID:          env.NewEventID(),
		AggregateType:    AggregateType,
		AggregateID:      s.ID.String(),
		AggregateVersion: s.Version + offset,
		OccurredAt:       env.Now,
	}
}
