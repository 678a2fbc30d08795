// Package cache keeps filter options in Redis between writes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/config"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
)

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 10 * time.Minute

const keyPrefix = "papers:filter_options:"

// Interface is the subset of the Redis client the cache needs.
type Interface interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// FilterCache caches filter options per store. Lookup and store failures are
// logged and treated as misses; the stores stay the source of truth.
type FilterCache struct {
	client  Interface
	ttl     time.Duration
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewClient opens a Redis client for the configured address.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewFilterCache wraps client. A zero ttl uses DefaultTTL.
func NewFilterCache(client Interface, ttl time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *FilterCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FilterCache{
		client:  client,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.With().Str("component", "filter_cache").Logger(),
	}
}

func filterKey(store domain.Store) string {
	return keyPrefix + string(store)
}

// GetFilterOptions returns the cached options for store.
func (c *FilterCache) GetFilterOptions(ctx context.Context, store domain.Store) (*domain.FilterOptions, bool) {
	raw, err := c.client.Get(ctx, filterKey(store)).Bytes()
	if err == redis.Nil {
		c.metrics.RecordCacheLookup("miss")
		return nil, false
	}
	if err != nil {
		c.metrics.RecordCacheLookup("error")
		c.logger.Warn().Err(err).Str("store", string(store)).Msg("filter options cache lookup failed")
		return nil, false
	}

	var opts domain.FilterOptions
	if err := json.Unmarshal(raw, &opts); err != nil {
		c.metrics.RecordCacheLookup("error")
		c.logger.Warn().Err(err).Str("store", string(store)).Msg("discarding unreadable filter options")
		return nil, false
	}
	c.metrics.RecordCacheLookup("hit")
	return &opts, true
}

// SetFilterOptions stores opts for store.
func (c *FilterCache) SetFilterOptions(ctx context.Context, store domain.Store, opts *domain.FilterOptions) {
	raw, err := json.Marshal(opts)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to marshal filter options")
		return
	}
	if err := c.client.Set(ctx, filterKey(store), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("store", string(store)).Msg("failed to cache filter options")
	}
}

// Invalidate drops the cached options of both stores.
func (c *FilterCache) Invalidate(ctx context.Context) error {
	keys := []string{filterKey(domain.StoreRelational), filterKey(domain.StoreDocument)}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate filter options: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *FilterCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
