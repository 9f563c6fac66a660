package aegisinsight

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ghalamif/AegisInsight/internal/adapters/cache"
	"github.com/ghalamif/AegisInsight/internal/adapters/httpapi"
	"github.com/ghalamif/AegisInsight/internal/adapters/journal"
	"github.com/ghalamif/AegisInsight/internal/adapters/observability"
	"github.com/ghalamif/AegisInsight/internal/adapters/opcua"
	"github.com/ghalamif/AegisInsight/internal/adapters/store"
	"github.com/ghalamif/AegisInsight/internal/app/fastpath"
	"github.com/ghalamif/AegisInsight/internal/app/orchestrator"
	"github.com/ghalamif/AegisInsight/internal/app/pipeline"
	"github.com/ghalamif/AegisInsight/internal/classifier"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

// EngineOption customizes the dependencies used by Engine.
type EngineOption func(*engineOverrides)

type engineOverrides struct {
	store         ports.Store
	catalog       ports.CatalogStore
	observability ports.Observability
	cache         ports.ResultCache
	status        ports.StatusReader
	sinks         []ports.ResultSink
	clock         func() time.Time
	logger        *zap.Logger
}

// WithStore injects the fact and catalog store, replacing the configured
// Timescale connection or fixture.
func WithStore(s Store) EngineOption {
	return func(o *engineOverrides) {
		o.store = s
	}
}

// WithCatalog serves fast path lookups from a different store than facts.
func WithCatalog(c CatalogStore) EngineOption {
	return func(o *engineOverrides) {
		o.catalog = c
	}
}

// WithObservability plugs in a custom metrics and logging backend.
func WithObservability(obs Observability) EngineOption {
	return func(o *engineOverrides) {
		o.observability = obs
	}
}

// WithResultCache replaces the configured redis cache.
func WithResultCache(c ResultCache) EngineOption {
	return func(o *engineOverrides) {
		o.cache = c
	}
}

// WithStatusReader replaces the configured OPC UA status reader.
func WithStatusReader(r StatusReader) EngineOption {
	return func(o *engineOverrides) {
		o.status = r
	}
}

// WithResultSink adds a consumer for every finished result. May be repeated.
func WithResultSink(s ResultSink) EngineOption {
	return func(o *engineOverrides) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithClock sets the reference time used by Process.
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOverrides) {
		o.clock = now
	}
}

func WithLogger(l *zap.Logger) EngineOption {
	return func(o *engineOverrides) {
		o.logger = l
	}
}

// Engine wires the classifier, both tiers and the adapters behind a single
// Process call and exposes lifecycle hooks for embedding.
type Engine struct {
	cfg      *Config
	log      *zap.Logger
	obs      ports.Observability
	registry *prometheus.Registry
	pipe     *pipeline.QueryPipeline
	clock    func() time.Time
	closers  []func(context.Context) error
}

// NewEngine bootstraps the default adapters: Timescale or fixture store, redis
// cache when enabled, OPC UA status and the result journal when configured, and
// Prometheus observability. EngineOption values override any of them.
func NewEngine(cfg *Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides engineOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	e := &Engine{cfg: cfg, clock: overrides.clock, registry: prometheus.NewRegistry()}
	if e.clock == nil {
		e.clock = time.Now
	}

	e.log = overrides.logger
	if e.log == nil {
		l, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
		if err != nil {
			return nil, err
		}
		e.log = l
	}

	e.obs = overrides.observability
	if e.obs == nil {
		e.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		e.obs = observability.NewPromObs(e.registry, e.log)
	}

	facts, err := e.openStore(overrides.store)
	if err != nil {
		return nil, err
	}
	catalog := overrides.catalog
	if catalog == nil {
		catalog = facts
	}

	status := overrides.status
	if status == nil && cfg.OPCUA.Enabled() {
		reader, err := opcua.NewStatusReader(cfg.OPCUA)
		if err != nil {
			e.closeAll(context.Background())
			return nil, err
		}
		e.closers = append(e.closers, reader.Close)
		status = reader
	}

	resultCache := overrides.cache
	if resultCache == nil && cfg.Cache.Enabled {
		rc, err := cache.NewRedisCache(context.Background(), cfg.Cache)
		if err != nil {
			e.log.Warn("result cache unavailable", zap.Error(err))
		} else {
			e.closers = append(e.closers, func(context.Context) error { return rc.Close() })
			resultCache = rc
		}
	}

	sinks := overrides.sinks
	if cfg.Journal.Dir != "" {
		j, err := journal.Open(cfg.Journal.Dir)
		if err != nil {
			e.closeAll(context.Background())
			return nil, fmt.Errorf("result journal: %w", err)
		}
		e.closers = append(e.closers, func(context.Context) error { return j.Close() })
		sinks = append(sinks, j)
	}

	pol := cfg.Policy.WithDefaults()
	cls := classifier.New(nil, pol.RoutingThreshold)
	fast := fastpath.New(catalog, status, pol, e.obs)
	agent := orchestrator.New(facts, cls, pol, e.obs)
	e.pipe = pipeline.NewQueryPipeline(cls, fast, agent, resultCache, sinks, e.obs)
	return e, nil
}

func (e *Engine) openStore(override ports.Store) (ports.Store, error) {
	if override != nil {
		return override, nil
	}
	pol := e.cfg.Policy.WithDefaults()
	if e.cfg.Fixture != "" {
		m, err := store.LoadFixture(e.cfg.Fixture)
		if err != nil {
			return nil, err
		}
		m.SetRowLimit(pol.RowLimit)
		return m, nil
	}
	if e.cfg.Timescale.ConnString == "" {
		return nil, fmt.Errorf("no store configured: set timescale.conn_string, fixture or WithStore")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := store.Open(ctx, e.cfg.Timescale.Driver, e.cfg.Timescale.ConnString, e.cfg.Timescale.Pool)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func(context.Context) error { return db.Close() })
	return store.NewTimescaleStore(db, pol.RowLimit, e.cfg.Timescale.QueryTimeout), nil
}

// Process answers query relative to the engine clock. It never returns an
// error; failures surface as low-confidence results with warnings.
func (e *Engine) Process(ctx context.Context, query string) Result {
	return e.pipe.Process(ctx, query, e.clock())
}

// ProcessAt answers query relative to now.
func (e *Engine) ProcessAt(ctx context.Context, query string, now time.Time) Result {
	return e.pipe.Process(ctx, query, now)
}

// Handle answers a request with explicit overrides. A zero Now uses the engine clock.
func (e *Engine) Handle(ctx context.Context, req Request) Result {
	if req.Now.IsZero() {
		req.Now = e.clock()
	}
	return e.pipe.Handle(ctx, req)
}

// Classify reports the analysis type and tier a query would take.
func (e *Engine) Classify(query string) (Classification, Tier) {
	return e.pipe.Classify(query)
}

// Gatherer exposes the engine's metrics registry.
func (e *Engine) Gatherer() prometheus.Gatherer { return e.registry }

// Run serves the HTTP API and, on a separate address, /metrics until ctx is
// cancelled, then shuts down gracefully.
func (e *Engine) Run(ctx context.Context) error {
	api, err := httpapi.NewServer(e.pipe, e.registry, e.log, e.cfg.HTTP)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.ListenAndServe(gctx) })
	if e.cfg.Metrics.Addr != "" && e.cfg.Metrics.Addr != e.cfg.HTTP.Addr {
		g.Go(func() error { return e.serveMetrics(gctx) })
	}
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(runErr, e.Shutdown(shutdownCtx))
}

func (e *Engine) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: e.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Shutdown closes every adapter the engine opened, newest first.
func (e *Engine) Shutdown(ctx context.Context) error {
	err := e.closeAll(ctx)
	_ = e.log.Sync()
	return err
}

func (e *Engine) closeAll(ctx context.Context) error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
