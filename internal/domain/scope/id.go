package scope

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ID identifies a scope stream. The zero value means "no scope".
type ID struct {
	ulid.ULID
}

func NewID() ID { return ID{ulid.Make()} }

func ParseID(s string) (ID, error) {
	u, err := ulid.ParseStrict(strings.TrimSpace(s))
	if err != nil {
		return ID{}, fmt.Errorf("%w: scope id %q: %v", ErrValidation, s, err)
	}
	return ID{u}, nil
}

func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) IsZero() bool { return id.ULID == (ulid.ULID{}) }

// Key is the string used as aggregate id and in the read model. Empty for the
// zero ID so optional parents map to NULL columns.
func (id ID) Key() string {
	if id.IsZero() {
		return ""
	}
	return id.String()
}
