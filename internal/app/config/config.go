package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ghalamif/AegisInsight/internal/adapters/cache"
	"github.com/ghalamif/AegisInsight/internal/adapters/httpapi"
	"github.com/ghalamif/AegisInsight/internal/adapters/journal"
	"github.com/ghalamif/AegisInsight/internal/adapters/opcua"
	"github.com/ghalamif/AegisInsight/internal/adapters/store"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

type Config struct {
	Policy    ports.Policy    `yaml:"policy"`
	Timescale TimescaleConfig `yaml:"timescale"`
	HTTP      httpapi.Config  `yaml:"http"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Cache     cache.Config    `yaml:"cache"`
	OPCUA     opcua.Config    `yaml:"opcua"`
	Journal   journal.Config  `yaml:"journal"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Fixture serves facts from a YAML file instead of Timescale.
	Fixture string `yaml:"fixture" env:"AEGIS_FIXTURE, overwrite"`
}

type TimescaleConfig struct {
	ConnString   string           `yaml:"conn_string" env:"AEGIS_TIMESCALE_CONN_STRING, overwrite"`
	Driver       string           `yaml:"driver" env:"AEGIS_TIMESCALE_DRIVER, overwrite"`
	QueryTimeout time.Duration    `yaml:"query_timeout" env:"AEGIS_TIMESCALE_QUERY_TIMEOUT, overwrite"`
	Pool         store.PoolConfig `yaml:"pool"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"AEGIS_METRICS_ADDR, overwrite"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" env:"AEGIS_LOG_LEVEL, overwrite"`
	Development bool   `yaml:"development" env:"AEGIS_LOG_DEVELOPMENT, overwrite"`
}

// Load reads path, applies AEGIS_* environment overrides, then defaults and
// validation.
func Load(path string) (*Config, error) {
	return LoadWith(context.Background(), path, envconfig.OsLookuper())
}

func LoadWith(ctx context.Context, path string, env envconfig.Lookuper) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: env}); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a validated-shape config for embedding without a file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	c.Policy = c.Policy.WithDefaults()
	if c.Timescale.Driver == "" {
		c.Timescale.Driver = store.DriverPQ
	}
	if c.Timescale.QueryTimeout == 0 {
		c.Timescale.QueryTimeout = c.Policy.FetchTimeout
	}
	if c.Timescale.Pool.MaxOpenConns == 0 {
		c.Timescale.Pool.MaxOpenConns = 8
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = 30 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Cache.Addr == "" {
		c.Cache.Addr = "localhost:6379"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = cache.DefaultTTL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	c.OPCUA.ApplyDefaults()
}

func (c *Config) validate() error {
	if c.Timescale.ConnString == "" && c.Fixture == "" {
		return fmt.Errorf("timescale.conn_string or fixture is required")
	}
	switch c.Timescale.Driver {
	case store.DriverPQ, store.DriverPGX:
	default:
		return fmt.Errorf("timescale.driver %q must be %s or %s", c.Timescale.Driver, store.DriverPQ, store.DriverPGX)
	}
	if c.OPCUA.Enabled() {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache is enabled")
	}
	if c.Policy.RoutingThreshold < 1 {
		return fmt.Errorf("policy.routing_threshold must be positive")
	}
	return nil
}
