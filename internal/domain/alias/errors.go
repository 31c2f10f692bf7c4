package alias

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/scopes-backend/internal/domain/scope"
)

var (
	ErrInvalidName           = errors.New("invalid alias")
	ErrAliasNotFound         = errors.New("alias not found")
	ErrDuplicateAlias        = errors.New("alias already exists")
	ErrCannotRemoveCanonical = errors.New("cannot remove canonical alias")
	ErrGenerationExhausted   = errors.New("alias generation exhausted")
	ErrAmbiguousAlias        = errors.New("ambiguous alias")
	ErrWrongScope            = errors.New("alias belongs to another scope")
	ErrCanonicalExists       = errors.New("scope already has a canonical alias")
	ErrUnknownEvent          = errors.New("unknown alias event")
)

// Candidate is one match of an ambiguous prefix.
type Candidate struct {
	Name    Name
	ScopeID scope.ID
}

// AmbiguousAliasError lists every alias sharing the requested prefix,
// sorted by name.
type AmbiguousAliasError struct {
	Input      string
	Candidates []Candidate
}

func (e *AmbiguousAliasError) Error() string {
	names := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		names = append(names, string(c.Name))
	}
	return fmt.Sprintf("ambiguous alias %q: candidates %s", e.Input, strings.Join(names, ", "))
}

func (e *AmbiguousAliasError) Unwrap() error { return ErrAmbiguousAlias }
