package domain

import (
	"github.com/yungbote/scopes-backend/internal/domain/records"
)

type ScopeEvent = records.ScopeEvent
type ScopeStream = records.ScopeStream
type ScopeProjection = records.ScopeProjection
type ScopeAlias = records.ScopeAlias

// Models lists every table the service migrates.
func Models() []any {
	return []any{
		&ScopeEvent{},
		&ScopeStream{},
		&ScopeProjection{},
		&ScopeAlias{},
	}
}
