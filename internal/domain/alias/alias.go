package alias

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
)

type Alias struct {
	ID          ID
	Name        Name
	ScopeID     scope.ID
	IsCanonical bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Set is the folded alias stream of one scope. Version counts folded events.
type Set struct {
	ScopeID scope.ID
	Version int64
	Aliases []Alias
}

func NewSet(scopeID scope.ID) Set { return Set{ScopeID: scopeID} }

func (s Set) Find(name Name) (Alias, bool) {
	for _, a := range s.Aliases {
		if a.Name == name {
			return a, true
		}
	}
	return Alias{}, false
}

func (s Set) Canonical() (Alias, bool) {
	for _, a := range s.Aliases {
		if a.IsCanonical {
			return a, true
		}
	}
	return Alias{}, false
}

// Env carries the non-deterministic inputs of the decide helpers.
type Env struct {
	Now        time.Time
	NewEventID func() uuid.UUID
	NewAliasID func() ID
}

func (e Env) withDefaults() Env {
	if e.Now.IsZero() {
		e.Now = time.Now().UTC()
	}
	if e.NewEventID == nil {
		e.NewEventID = uuid.New
	}
	if e.NewAliasID == nil {
		e.NewAliasID = NewID
	}
	return e
}

func (s Set) stamp(env Env) events.Meta {
	return events.Meta{
		EventID:          env.NewEventID(),
		AggregateType:    AggregateType,
		AggregateID:      s.ScopeID.String(),
		AggregateVersion: s.Version + 1,
		OccurredAt:       env.Now,
	}
}

// Assign adds a new alias. Global uniqueness is the caller's check; Assign
// only guards the names this scope already owns.
func (s Set) Assign(name Name, canonical bool, env Env) (AliasAssigned, error) {
	env = env.withDefaults()
	if _, ok := s.Find(name); ok {
		return AliasAssigned{}, fmt.Errorf("%w: %s", ErrDuplicateAlias, name)
	}
	if _, ok := s.Canonical(); ok && canonical {
		return AliasAssigned{}, ErrCanonicalExists
	}
	return AliasAssigned{
		Meta:        s.stamp(env),
		AliasID:     env.NewAliasID(),
		Name:        name,
		ScopeID:     s.ScopeID,
		IsCanonical: canonical,
	}, nil
}

// Promote makes name canonical. An unknown name becomes a new alias. The
// second return is false when name is already canonical.
func (s Set) Promote(name Name, env Env) (CanonicalAliasReplaced, bool, error) {
	env = env.withDefaults()
	old, ok := s.Canonical()
	if !ok {
		return CanonicalAliasReplaced{}, false, fmt.Errorf("%w: scope %s has no canonical alias", ErrAliasNotFound, s.ScopeID)
	}
	if old.Name == name {
		return CanonicalAliasReplaced{}, false, nil
	}
	newID := env.NewAliasID()
	if existing, ok := s.Find(name); ok {
		newID = existing.ID
	}
	return CanonicalAliasReplaced{
		Meta:       s.stamp(env),
		ScopeID:    s.ScopeID,
		OldAliasID: old.ID,
		OldName:    old.Name,
		NewAliasID: newID,
		NewName:    name,
	}, true, nil
}

func (s Set) Remove(name Name, env Env) (AliasRemoved, error) {
	env = env.withDefaults()
	a, ok := s.Find(name)
	if !ok {
		return AliasRemoved{}, fmt.Errorf("%w: %s", ErrAliasNotFound, name)
	}
	if a.IsCanonical {
		return AliasRemoved{}, fmt.Errorf("%w: %s", ErrCannotRemoveCanonical, name)
	}
	return AliasRemoved{Meta: s.stamp(env), AliasID: a.ID, ScopeID: s.ScopeID, Name: a.Name}, nil
}

func (s Set) Rename(oldName, newName Name, env Env) (AliasNameChanged, error) {
	env = env.withDefaults()
	a, ok := s.Find(oldName)
	if !ok {
		return AliasNameChanged{}, fmt.Errorf("%w: %s", ErrAliasNotFound, oldName)
	}
	if _, taken := s.Find(newName); taken {
		return AliasNameChanged{}, fmt.Errorf("%w: %s", ErrDuplicateAlias, newName)
	}
	return AliasNameChanged{Meta: s.stamp(env), AliasID: a.ID, ScopeID: s.ScopeID, OldName: oldName, NewName: newName}, nil
}

// ApplyEvent folds e into a copy of s.
func ApplyEvent(s Set, e Event) (Set, error) {
	if e == nil {
		return s, fmt.Errorf("%w: nil", ErrUnknownEvent)
	}
	next := Set{ScopeID: s.ScopeID, Version: s.Version + 1, Aliases: append([]Alias(nil), s.Aliases...)}
	at := e.EventMeta().OccurredAt
	switch ev := e.(type) {
	case AliasAssigned:
		if next.ScopeID.IsZero() {
			next.ScopeID = ev.ScopeID
		}
		next.Aliases = append(next.Aliases, Alias{
			ID: ev.AliasID, Name: ev.Name, ScopeID: ev.ScopeID, IsCanonical: ev.IsCanonical,
			CreatedAt: at, UpdatedAt: at,
		})
	case AliasNameChanged:
		for i := range next.Aliases {
			if next.Aliases[i].ID == ev.AliasID {
				next.Aliases[i].Name = ev.NewName
				next.Aliases[i].UpdatedAt = at
			}
		}
	case AliasRemoved:
		kept := next.Aliases[:0]
		for _, a := range next.Aliases {
			if a.ID != ev.AliasID {
				kept = append(kept, a)
			}
		}
		next.Aliases = kept
	case CanonicalAliasReplaced:
		promoted := false
		for i := range next.Aliases {
			switch next.Aliases[i].ID {
			case ev.OldAliasID:
				next.Aliases[i].IsCanonical = false
				next.Aliases[i].UpdatedAt = at
			case ev.NewAliasID:
				next.Aliases[i].IsCanonical = true
				next.Aliases[i].UpdatedAt = at
				promoted = true
			}
		}
		if !promoted {
			next.Aliases = append(next.Aliases, Alias{
				ID: ev.NewAliasID, Name: ev.NewName, ScopeID: ev.ScopeID, IsCanonical: true,
				CreatedAt: at, UpdatedAt: at,
			})
		}
	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownEvent, e)
	}
	return next, nil
}

func Evolve(s Set, evs ...Event) (Set, error) {
	var err error
	for _, e := range evs {
		if s, err = ApplyEvent(s, e); err != nil {
			return s, err
		}
	}
	return s, nil
}
