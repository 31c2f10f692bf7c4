package aggregates

import (
	"time"

	"github.com/yungbote/scopes-backend/internal/observability"
)

// Hooks receives one ObserveOperation per aggregate write, keyed by operation
// name such as "Scopes.Scope.UpdateTitle". Lost version races and duplicate
// aliases also bump IncConflict; transient storage failures bump IncRetry.
type Hooks interface {
	ObserveOperation(op, status string, dur time.Duration)
	IncConflict(op string)
	IncRetry(op string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type metricsHooks struct {
	m *observability.Metrics
}

// NewObservabilityHooks forwards aggregate signals to the process metrics.
func NewObservabilityHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return noopHooks{}
	}
	return metricsHooks{m: m}
}

func (h metricsHooks) ObserveOperation(op, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(op, status, dur)
}

func (h metricsHooks) IncConflict(op string) { h.m.IncAggregateConflict(op) }

func (h metricsHooks) IncRetry(op string) { h.m.IncAggregateRetry(op) }
