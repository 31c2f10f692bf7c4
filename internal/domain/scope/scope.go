// Package scope holds the event-sourced scope aggregate: its state, the
// closed set of events it emits, and the pure decide/evolve steps.
package scope

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// Scope is the folded state of one stream. It is a value: ApplyEvent and
// Evolve return copies and never touch the receiver.
type Scope struct {
	ID          ID
	Version     int64
	Title       string
	Description string
	ParentID    ID
	IsDeleted   bool
	IsArchived  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New returns the empty state of a stream that has not been created yet.
func New(id ID) Scope { return Scope{ID: id} }

func (s Scope) Exists() bool    { return s.Version > 0 }
func (s Scope) HasParent() bool { return !s.ParentID.IsZero() }

// ValidateVersion compares the folded version with a caller expectation.
func (s Scope) ValidateVersion(expected int64) error {
	if s.Version != expected {
		return &VersionMismatchError{Expected: expected, Actual: s.Version}
	}
	return nil
}

// ApplyEvent folds one event. The version always moves by exactly one; the
// version stamped on the event is not consulted.
func ApplyEvent(s Scope, e Event) (Scope, error) {
	if e == nil {
		return s, fmt.Errorf("%w: nil", ErrUnknownEvent)
	}
	meta := e.EventMeta()
	if !s.ID.IsZero() && meta.AggregateID != "" && meta.AggregateID != s.ID.String() {
		return s, fmt.Errorf("%w: %s on %s", ErrForeignEvent, meta.AggregateID, s.ID)
	}
	next := s
	switch ev := e.(type) {
	case Created:
		if next.ID.IsZero() && meta.AggregateID != "" {
			id, err := ParseID(meta.AggregateID)
			if err != nil {
				return s, err
			}
			next.ID = id
		}
		next.Title = ev.Title
		next.Description = ev.Description
		next.ParentID = ev.ParentID
		next.IsDeleted = false
		next.IsArchived = false
		next.CreatedAt = meta.OccurredAt
	case TitleUpdated:
		next.Title = ev.NewTitle
	case DescriptionUpdated:
		next.Description = ev.NewDescription
	case ParentChanged:
		next.ParentID = ev.NewParentID
	case Deleted:
		next.IsDeleted = true
	case Archived:
		next.IsArchived = true
	case Restored:
		next.IsArchived = false
	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownEvent, e.EventType())
	}
	next.UpdatedAt = meta.OccurredAt
	next.Version = s.Version + 1
	return next, nil
}

// Evolve folds evs into s in order.
func Evolve(s Scope, evs ...Event) (Scope, error) {
	var err error
	for _, e := range evs {
		if s, err = ApplyEvent(s, e); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Replay rebuilds a stream from scratch.
func Replay(id ID, evs []Event) (Scope, error) {
	return Evolve(New(id), evs...)
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", ErrTitleEmpty
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", ErrTitleTooLong
	}
	for _, r := range title {
		if r == utf8.RuneError || unicode.IsControl(r) || !unicode.IsPrint(r) {
			return "", ErrTitleInvalid
		}
	}
	return title, nil
}

func normalizeDescription(raw string) (string, error) {
	desc := strings.TrimSpace(raw)
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return "", ErrDescriptionTooLong
	}
	for _, r := range desc {
		if r == utf8.RuneError {
			return "", ErrDescriptionInvalid
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return "", ErrDescriptionInvalid
		}
	}
	return desc, nil
}
