package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/eventstore"
	domainagg "github.com/yungbote/scopes-backend/internal/domain/aggregates"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/projection"
)

// ErrValidation tags failures of the write plumbing's own argument checks.
var ErrValidation = errors.New("aggregate validation")

// ValidationError tags an error as validation failure.
func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

// MapError maps infrastructure/domain failures into aggregate error codes.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	if code, ok := domainCode(err); ok {
		return domainagg.Wrap(code, op, err)
	}
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // unique_violation
		case "23503":
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return domainagg.Wrap(domainagg.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "already exists"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

// domainCode classifies the sentinels of the scope, alias, event store and
// projection packages. Order matters: stored-event decode failures wrap
// scope.ErrValidation but are not the caller's fault.
func domainCode(err error) (domainagg.ErrorCode, bool) {
	switch {
	case errors.Is(err, projection.ErrConsistency):
		return domainagg.CodeConsistency, true
	case errors.Is(err, events.ErrSerialization),
		errors.Is(err, events.ErrUnregisteredEventType),
		errors.Is(err, scope.ErrUnknownEvent),
		errors.Is(err, scope.ErrForeignEvent),
		errors.Is(err, alias.ErrUnknownEvent):
		return domainagg.CodeInternal, true
	case errors.Is(err, scope.ErrNotFound), errors.Is(err, alias.ErrAliasNotFound):
		return domainagg.CodeNotFound, true
	case errors.Is(err, scope.ErrValidation),
		errors.Is(err, alias.ErrInvalidName),
		errors.Is(err, alias.ErrAmbiguousAlias):
		return domainagg.CodeValidation, true
	case errors.Is(err, scope.ErrStateConflict),
		errors.Is(err, eventstore.ErrConflict),
		errors.Is(err, alias.ErrDuplicateAlias),
		errors.Is(err, alias.ErrCannotRemoveCanonical),
		errors.Is(err, alias.ErrCanonicalExists),
		errors.Is(err, alias.ErrWrongScope):
		return domainagg.CodeConflict, true
	case errors.Is(err, alias.ErrGenerationExhausted):
		return domainagg.CodeInvariantViolation, true
	}
	return "", false
}
