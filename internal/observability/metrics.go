package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

type Metrics struct {
	aggregateOps      *CounterVec
	aggregateLatency  *HistogramVec
	aggregateConflict *CounterVec
	aggregateRetry    *CounterVec

	projectionEvents  *CounterVec
	projectionLatency *HistogramVec
	projectionSkipped *CounterVec
	rebuilds          *CounterVec
	rebuildEvents     *Gauge

	publishAttempts *CounterVec
	publishLatency  *HistogramVec

	aliasIndexSize *Gauge
	dbStats        *GaugeVec
	redisUp        *Gauge
	redisPing      *Gauge

	scrapeInterval time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

// New builds an unregistered metrics set. Most callers want Init.
func New() *Metrics {
	return &Metrics{
		aggregateOps: NewCounterVec("scopes_aggregate_operations_total", "Aggregate write operations by op/status.", []string{"op", "status"}),
		aggregateLatency: NewHistogramVec(
			"scopes_aggregate_operation_duration_seconds",
			"Aggregate write latency in seconds by op/status.",
			[]string{"op", "status"},
			nil,
		),
		aggregateConflict: NewCounterVec("scopes_aggregate_conflicts_total", "Optimistic concurrency conflicts by op.", []string{"op"}),
		aggregateRetry:    NewCounterVec("scopes_aggregate_retryable_total", "Retryable aggregate failures by op.", []string{"op"}),

		projectionEvents: NewCounterVec("scopes_projection_events_total", "Projected events by type/status.", []string{"event_type", "status"}),
		projectionLatency: NewHistogramVec(
			"scopes_projection_event_duration_seconds",
			"Projection handler latency in seconds by event type.",
			[]string{"event_type"},
			nil,
		),
		projectionSkipped: NewCounterVec("scopes_projection_skipped_total", "Events without a projection handler.", []string{"event_type"}),
		rebuilds:          NewCounterVec("scopes_projection_rebuilds_total", "Full read-model rebuilds by status.", []string{"status"}),
		rebuildEvents:     NewGauge("scopes_projection_rebuild_events", "Events replayed by the last rebuild."),

		publishAttempts: NewCounterVec("scopes_publish_attempts_total", "Publish attempts by event type and outcome kind.", []string{"event_type", "kind"}),
		publishLatency: NewHistogramVec(
			"scopes_publish_attempt_duration_seconds",
			"Single publish attempt latency in seconds.",
			[]string{"event_type"},
			nil,
		),

		aliasIndexSize: NewGauge("scopes_alias_index_size", "Aliases held by the in-memory index."),
		dbStats:        NewGaugeVec("scopes_db_stats", "database/sql pool statistics.", []string{"stat"}),
		redisUp:        NewGauge("scopes_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:      NewGauge("scopes_redis_ping_seconds", "Redis ping latency in seconds."),

		scrapeInterval: 10 * time.Second,
	}
}

// Init returns the process-wide metrics set, or nil when metrics are off.
// Every method is nil-safe so callers never need to branch.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func Current() *Metrics {
	return instance
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.aggregateOps, m.aggregateLatency, m.aggregateConflict, m.aggregateRetry,
		m.projectionEvents, m.projectionLatency, m.projectionSkipped, m.rebuilds, m.rebuildEvents,
		m.publishAttempts, m.publishLatency,
		m.aliasIndexSize, m.dbStats, m.redisUp, m.redisPing,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op, status)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflict.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetry.Inc(op)
}

func (m *Metrics) ObserveProjection(eventType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.projectionEvents.Inc(eventType, status)
	m.projectionLatency.Observe(dur.Seconds(), eventType)
}

func (m *Metrics) IncProjectionSkipped(eventType string) {
	if m == nil {
		return
	}
	m.projectionSkipped.Inc(eventType)
}

func (m *Metrics) ObserveRebuild(status string, replayed int, _ time.Duration) {
	if m == nil {
		return
	}
	m.rebuilds.Inc(status)
	m.rebuildEvents.Set(float64(replayed))
}

// ObservePublishAttempt records one attempt under its failure kind; a
// successful attempt has an empty kind and is counted as "ok".
func (m *Metrics) ObservePublishAttempt(eventType string, attempt int, kind string, dur time.Duration) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	m.publishAttempts.Inc(eventType, kind)
	m.publishLatency.Observe(dur.Seconds(), eventType)
}

func (m *Metrics) SetAliasIndexSize(n int) {
	if m == nil {
		return
	}
	m.aliasIndexSize.Set(float64(n))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
