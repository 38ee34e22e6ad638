package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightpath/campaign-monitor/internal/config"
	"github.com/brightpath/campaign-monitor/internal/pkg/logger"
)

// AlertCache is a short-TTL Redis cache in front of the alert listing.
// It is strictly best-effort: a nil cache or any Redis failure degrades to
// a direct database read.
type AlertCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertCache connects to Redis per config. Returns nil when the cache
// is disabled; callers treat a nil cache as a permanent miss.
func NewAlertCache(cfg config.RedisConfig) (*AlertCache, error) {
	if !cfg.Enabled || cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &AlertCache{client: redis.NewClient(opts), ttl: cfg.CacheTTL()}, nil
}

// Get returns the cached payload for key, if any.
func (c *AlertCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warn("alert cache read failed", "key", key, "error", err)
		return nil, false
	}
	return data, true
}

// Set stores payload under key for the configured TTL.
func (c *AlertCache) Set(ctx context.Context, key string, payload []byte) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger.Warn("alert cache write failed", "key", key, "error", err)
	}
}

// Ping reports cache reachability for health checks.
func (c *AlertCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not configured")
	}
	return c.client.Ping(ctx).Err()
}
