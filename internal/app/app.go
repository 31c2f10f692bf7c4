package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/aggregates"
	"github.com/yungbote/scopes-backend/internal/data/aliasindex"
	"github.com/yungbote/scopes-backend/internal/data/db"
	"github.com/yungbote/scopes-backend/internal/data/eventstore"
	"github.com/yungbote/scopes-backend/internal/data/repos/readmodel"
	domainagg "github.com/yungbote/scopes-backend/internal/domain/aggregates"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/events"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/events/bus"
	"github.com/yungbote/scopes-backend/internal/events/publisher"
	"github.com/yungbote/scopes-backend/internal/events/subscribers/hierarchy"
	"github.com/yungbote/scopes-backend/internal/observability"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
	"github.com/yungbote/scopes-backend/internal/platform/neo4jdb"
	"github.com/yungbote/scopes-backend/internal/projection"
	"github.com/yungbote/scopes-backend/internal/services"
)

type App struct {
	Log     *logger.Logger
	DB      *gorm.DB
	Cfg     Config
	Metrics *observability.Metrics

	Scopes    services.ScopeService
	Aliases   services.AliasResolver
	Projector *projection.Projector

	dbService    *db.Service
	index        *aliasindex.Index
	aliasRows    readmodel.AliasRepo
	buses        []bus.Bus
	graph        *neo4jdb.Client
	shutdownOtel func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Log: log, Cfg: cfg}
	a.shutdownOtel = observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OtelEndpoint,
		Headers:     observability.ParseHeaders(cfg.OtelHeaders),
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})
	a.Metrics = observability.Init(log, cfg.MetricsEnabled)

	dbService, err := db.NewService(db.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN}, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.dbService = dbService
	if err := db.AutoMigrateAll(dbService.DB()); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	a.DB = dbService.DB()

	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	log, cfg := a.Log, a.Cfg

	registry := events.NewRegistry()
	scope.RegisterEvents(registry)
	alias.RegisterEvents(registry)

	guard := aggregates.NewCASGuard(a.DB)
	runner := aggregates.NewGormTxRunner(a.DB)
	store := eventstore.NewGormStore(a.DB, registry, guard, log)
	scopeRows := readmodel.NewScopeRowRepo(a.DB, log)
	a.aliasRows = readmodel.NewAliasRepo(a.DB, log)

	var projHooks projection.Hooks
	var aggHooks aggregates.Hooks
	if a.Metrics != nil {
		projHooks = a.Metrics
		aggHooks = aggregates.NewObservabilityHooks(a.Metrics)
	}
	a.Projector = projection.NewProjector(projection.Deps{
		Scopes:  scopeRows,
		Aliases: a.aliasRows,
		Store:   store,
		Runner:  runner,
		Hooks:   projHooks,
		Log:     log,
	})
	if cfg.RebuildProjections {
		if _, err := a.Projector.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild projections: %w", err)
		}
	}

	var aliasReads readmodel.AliasRepo = a.aliasRows
	if cfg.AliasIndex == AliasIndexMemory {
		a.index = aliasindex.New()
		if err := a.reloadIndex(ctx); err != nil {
			return err
		}
		aliasReads = a.index
	}

	pub, err := a.wirePublishers(registry)
	if err != nil {
		return err
	}

	deps := aggregates.StreamDeps{
		Base: aggregates.BaseDeps{
			DB:       a.DB,
			Log:      log,
			Runner:   runner,
			Hooks:    aggHooks,
			CASGuard: guard,
		},
		Store:                 store,
		Projector:             a.Projector,
		Scopes:                scopeRows,
		Aliases:               a.aliasRows,
		Publisher:             pub,
		MaxGenerationAttempts: cfg.AliasMaxGenerationAttempts,
	}
	scopeAgg, aliasAgg := aggregates.NewScopeAggregate(deps), aggregates.NewAliasAggregate(deps)
	if err := checkContracts(log, scopeAgg, aliasAgg); err != nil {
		return err
	}
	a.Scopes = services.NewScopeService(a.DB, log, scopeAgg, scopeRows)
	a.Aliases = services.NewAliasResolver(a.DB, log, aliasAgg, aliasReads)
	return nil
}

// checkContracts rejects aggregates that expect a caller-owned transaction;
// the services never open one.
func checkContracts(log *logger.Logger, aggs ...domainagg.Aggregate) error {
	for _, agg := range aggs {
		c := agg.Contract()
		if !c.RequiresAggregateOwnedTx() {
			return fmt.Errorf("aggregate %s: write transaction must be aggregate-owned, got %q", c.Name, c.WriteTxOwnership)
		}
		log.Debug("Aggregate wired", "name", c.Name, "reads", c.ReadPolicy)
	}
	return nil
}

// wirePublishers fans committed events out to the audit log, the in-memory
// alias index, every configured bus and the hierarchy graph. Remote sinks are
// wrapped in Resilient.
func (a *App) wirePublishers(registry *events.Registry) (publisher.Publisher, error) {
	log, cfg := a.Log, a.Cfg
	resilient := func(p publisher.Publisher) publisher.Publisher {
		return publisher.NewResilient(p, cfg.Publish, log, publisher.WithObserver(a.Metrics))
	}

	pubs := publisher.Multi{publisher.NewLogPublisher(log)}
	if a.index != nil {
		pubs = append(pubs, aliasindex.NewFollower(a.index, a.Metrics, log))
	}

	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisBus(bus.RedisOptions{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel}, log)
		if err != nil {
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
		a.buses = append(a.buses, b)
		pubs = append(pubs, resilient(publisher.NewBusPublisher(registry, b)))
	}
	if len(cfg.KafkaBrokers) > 0 {
		b, err := bus.NewKafkaBus(bus.KafkaOptions{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.ServiceName}, log)
		if err != nil {
			return nil, fmt.Errorf("init kafka bus: %w", err)
		}
		a.buses = append(a.buses, b)
		pubs = append(pubs, resilient(publisher.NewBusPublisher(registry, b)))
	}

	graph, err := neo4jdb.New(neo4jdb.Config{
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init neo4j: %w", err)
	}
	if graph != nil {
		a.graph = graph
		graph.EnsureSchema(context.Background(), hierarchy.Schema)
		pubs = append(pubs, resilient(hierarchy.NewSubscriber(graph, log)))
	}

	log.Info("Event publishers wired", "count", len(pubs), "buses", len(a.buses), "graph", graph != nil)
	return pubs, nil
}

func (a *App) reloadIndex(ctx context.Context) error {
	if a.index == nil {
		return nil
	}
	rows, err := a.aliasRows.ListAll(dbctx.Background(ctx))
	if err != nil {
		return fmt.Errorf("load alias index: %w", err)
	}
	a.index.Load(rows)
	a.Metrics.SetAliasIndexSize(a.index.Len())
	a.Log.Info("Alias index loaded", "aliases", len(rows))
	return nil
}

// Rebuild replays the event log into the read model and refreshes the
// in-memory alias index.
func (a *App) Rebuild(ctx context.Context) (int, error) {
	n, err := a.Projector.Rebuild(ctx)
	if err != nil {
		return 0, err
	}
	return n, a.reloadIndex(ctx)
}

// Start launches background collectors and the metrics endpoint.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	if a.Metrics == nil {
		return
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	for _, b := range a.buses {
		if err := b.Close(); err != nil {
			a.Log.Warn("bus close failed", "error", err)
		}
	}
	if a.graph != nil {
		_ = a.graph.Close(context.Background())
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.shutdownOtel != nil {
		_ = a.shutdownOtel(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
