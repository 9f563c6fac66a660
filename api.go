package aegisinsight

import (
	"context"

	base "github.com/ghalamif/AegisInsight/pkg/aegisinsight"
)

// Re-exported errors for convenience.
var (
	ErrStoreUnavailable  = base.ErrStoreUnavailable
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/AegisInsight directly.
type (
	Config          = base.Config
	Policy          = base.Policy
	TimescaleConfig = base.TimescaleConfig
	HTTPConfig      = base.HTTPConfig
	MetricsConfig   = base.MetricsConfig
	CacheConfig     = base.CacheConfig
	OPCUAConfig     = base.OPCUAConfig
	OPCUANodeConfig = base.OPCUANodeConfig
	JournalConfig   = base.JournalConfig
	LoggingConfig   = base.LoggingConfig
	Engine          = base.Engine
	EngineOption    = base.EngineOption
	Request         = base.Request
	Result          = base.Result
	AnalysisType    = base.AnalysisType
	Tier            = base.Tier
	Classification  = base.Classification
	Store           = base.Store
	FactStore       = base.FactStore
	CatalogStore    = base.CatalogStore
	EquipmentScope  = base.EquipmentScope
	StatusReader    = base.StatusReader
	ResultCache     = base.ResultCache
	ResultSink      = base.ResultSink
	ResultHandler   = base.ResultHandler
	Observability   = base.Observability
	Field           = base.Field
	MemoryStore     = base.MemoryStore
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Engine and options.
func NewEngine(cfg *Config, opts ...EngineOption) (*Engine, error) {
	return base.NewEngine(cfg, opts...)
}

func WithStore(s Store) EngineOption {
	return base.WithStore(s)
}

func WithCatalog(c CatalogStore) EngineOption {
	return base.WithCatalog(c)
}

func WithObservability(obs Observability) EngineOption {
	return base.WithObservability(obs)
}

func WithResultCache(c ResultCache) EngineOption {
	return base.WithResultCache(c)
}

func WithStatusReader(r StatusReader) EngineOption {
	return base.WithStatusReader(r)
}

func WithResultSink(s ResultSink) EngineOption {
	return base.WithResultSink(s)
}

// Process answers one query with a throwaway engine. Long-lived callers
// should keep an Engine instead.
func Process(ctx context.Context, cfg *Config, query string, opts ...EngineOption) (Result, error) {
	e, err := base.NewEngine(cfg, opts...)
	if err != nil {
		return Result{}, err
	}
	defer e.Shutdown(ctx)
	return e.Process(ctx, query), nil
}

// Sink adapters.
func NewCallbackSink(name string, fn ResultHandler) ResultSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (ResultSink, <-chan Result, func()) {
	return base.NewChannelSink(name, buffer)
}

// Stores.
func NewMemoryStore() *MemoryStore {
	return base.NewMemoryStore()
}

func LoadFixture(path string) (*MemoryStore, error) {
	return base.LoadFixture(path)
}
