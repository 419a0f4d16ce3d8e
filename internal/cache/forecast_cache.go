package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockpilot/backend-go/internal/config"
	"github.com/stockpilot/backend-go/internal/domain"
)

const forecastKeyPrefix = "reorder:forecast"

// ForecastOptions identify one memoizable forecast variant.
type ForecastOptions struct {
	HorizonDays                int
	IncludeConfidenceIntervals bool
	IncludeSeasonality         bool
	IncludeExternalFactors     bool
}

// ForecastCache memoizes generated forecasts per (product, option set).
// Concurrent writers for the same key may both compute; last write wins.
type ForecastCache interface {
	Get(ctx context.Context, productID string, opts ForecastOptions) (*domain.DemandForecast, bool, error)
	Set(ctx context.Context, productID string, opts ForecastOptions, forecast *domain.DemandForecast) error
	Invalidate(ctx context.Context, productID string) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

// NewForecastCache returns a redis-backed cache, or a noop cache when
// caching is disabled.
func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{client: client, ttl: forecastTTL(cfg)}, nil
}

// NewNoopForecastCache returns a cache that never hits.
func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, productID string, opts ForecastOptions) (*domain.DemandForecast, bool, error) {
	payload, err := c.client.Get(ctx, buildForecastKey(productID, opts)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var forecast domain.DemandForecast
	if err := json.Unmarshal(payload, &forecast); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}

	return &forecast, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, productID string, opts ForecastOptions, forecast *domain.DemandForecast) error {
	payload, err := json.Marshal(forecast)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, buildForecastKey(productID, opts), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) Invalidate(ctx context.Context, productID string) error {
	return deleteKeysWithPrefix(ctx, c.client, fmt.Sprintf("%s:%s:", forecastKeyPrefix, productID), 100)
}

func (n *noopForecastCache) Get(ctx context.Context, productID string, opts ForecastOptions) (*domain.DemandForecast, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) Set(ctx context.Context, productID string, opts ForecastOptions, forecast *domain.DemandForecast) error {
	return nil
}

func (n *noopForecastCache) Invalidate(ctx context.Context, productID string) error {
	return nil
}

func buildForecastKey(productID string, opts ForecastOptions) string {
	return fmt.Sprintf("%s:%s:%s", forecastKeyPrefix, productID, forecastOptionsHash(opts))
}

func forecastOptionsHash(opts ForecastOptions) string {
	parts := []string{
		fmt.Sprintf("horizon=%d", opts.HorizonDays),
		fmt.Sprintf("ci=%t", opts.IncludeConfidenceIntervals),
		fmt.Sprintf("seasonality=%t", opts.IncludeSeasonality),
		fmt.Sprintf("external=%t", opts.IncludeExternalFactors),
	}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func deleteKeysWithPrefix(ctx context.Context, client *redis.Client, prefix string, batchSize int64) error {
	var cursor uint64
	pattern := prefix + "*"
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, pattern, batchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}

		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}
