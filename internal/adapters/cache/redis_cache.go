package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

const DefaultTTL = 5 * time.Minute

type Config struct {
	Enabled  bool          `yaml:"enabled" env:"AEGIS_CACHE_ENABLED, overwrite"`
	Addr     string        `yaml:"addr" env:"AEGIS_CACHE_ADDR, overwrite"`
	Password string        `yaml:"password" env:"AEGIS_CACHE_PASSWORD, overwrite"`
	DB       int           `yaml:"db" env:"AEGIS_CACHE_DB, overwrite"`
	TTL      time.Duration `yaml:"ttl" env:"AEGIS_CACHE_TTL, overwrite"`
}

// kv is the slice of the redis client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache stores results as JSON with a fixed TTL.
type RedisCache struct {
	client  kv
	closer  func() error
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisCache connects and pings before returning.
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	c := newRedisCache(client, cfg.TTL)
	c.closer = client.Close
	return c, nil
}

func newRedisCache(client kv, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, timeout: 250 * time.Millisecond}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.AnalysisResult, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AnalysisResult{}, false, nil
	}
	if err != nil {
		return domain.AnalysisResult{}, false, fmt.Errorf("redis get: %w", err)
	}
	var r domain.AnalysisResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.AnalysisResult{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return r, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, r domain.AnalysisResult) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

var _ ports.ResultCache = (*RedisCache)(nil)
