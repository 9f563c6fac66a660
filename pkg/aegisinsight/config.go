package aegisinsight

import (
	"github.com/ghalamif/AegisInsight/internal/adapters/cache"
	"github.com/ghalamif/AegisInsight/internal/adapters/httpapi"
	"github.com/ghalamif/AegisInsight/internal/adapters/journal"
	"github.com/ghalamif/AegisInsight/internal/adapters/opcua"
	"github.com/ghalamif/AegisInsight/internal/app/config"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls routing, fetch timeouts and row limits.
	Policy = ports.Policy
	// TimescaleConfig configures the fact store connection.
	TimescaleConfig = config.TimescaleConfig
	// HTTPConfig configures the JSON query API.
	HTTPConfig = httpapi.Config
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// CacheConfig configures the redis result cache.
	CacheConfig = cache.Config
	// OPCUAConfig holds connection and node details for live status.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig maps a state tag to equipment.
	OPCUANodeConfig = opcua.NodeConfig
	// JournalConfig enables the on-disk result journal.
	JournalConfig = journal.Config
	// LoggingConfig selects the zap level and encoder.
	LoggingConfig = config.LoggingConfig
)

// LoadConfig loads YAML from disk and applies AEGIS_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a config with every default applied and no store
// configured; pair it with WithStore.
func DefaultConfig() *Config {
	return config.Default()
}
