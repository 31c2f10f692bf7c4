// Package alias models the human-readable names that point at scopes.
package alias

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	MinNameLength = 2
	MaxNameLength = 64
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9\-_]*[a-z0-9]$`)

// Name is a validated, lowercase alias name.
type Name string

// ParseName trims and lowercases raw, then validates it.
func ParseName(raw string) (Name, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case len(s) < MinNameLength:
		return "", fmt.Errorf("%w: %q is shorter than %d characters", ErrInvalidName, s, MinNameLength)
	case len(s) > MaxNameLength:
		return "", fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidName, s, MaxNameLength)
	case !namePattern.MatchString(s):
		return "", fmt.Errorf("%w: %q must start with a letter, end alphanumeric and use [a-z0-9-_]", ErrInvalidName, s)
	case strings.Contains(s, "--") || strings.Contains(s, "__"):
		return "", fmt.Errorf("%w: %q contains consecutive separators", ErrInvalidName, s)
	}
	return Name(s), nil
}

func (n Name) String() string { return string(n) }

// ID identifies one alias row. It survives renames and canonical swaps.
type ID struct {
	ulid.ULID
}

func NewID() ID { return ID{ulid.Make()} }

func ParseID(s string) (ID, error) {
	u, err := ulid.ParseStrict(strings.TrimSpace(s))
	if err != nil {
		return ID{}, fmt.Errorf("%w: alias id %q: %v", ErrInvalidName, s, err)
	}
	return ID{u}, nil
}

func (id ID) IsZero() bool { return id.ULID == (ulid.ULID{}) }
