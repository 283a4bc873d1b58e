// Package cache handles Redis caching of run reports.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robotarm/armsuite/internal/config"
	"github.com/robotarm/armsuite/internal/suite"
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for caching operations.
type Cache interface {
	// Get retrieves a value from the cache.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Ping checks if the cache is healthy.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client.
func NewRedisCache(ctx context.Context, cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get failed: %w", err)
	}
	return val, nil
}

// Set stores a value in the cache with a TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Ping checks if the cache is healthy.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the cache connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for advanced operations.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// ReportCache stores encoded reports by ID plus a pointer to the latest run.
type ReportCache struct {
	mu         sync.Mutex
	cache      Cache
	keyPrefix  string
	defaultTTL time.Duration
}

// NewReportCache creates a report cache on top of a generic Cache.
func NewReportCache(cache Cache, keyPrefix string, defaultTTL time.Duration) *ReportCache {
	if keyPrefix == "" {
		keyPrefix = "armsuite:report:"
	}
	if defaultTTL == 0 {
		defaultTTL = 24 * time.Hour
	}
	return &ReportCache{
		cache:      cache,
		keyPrefix:  keyPrefix,
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached report with the given ID.
func (c *ReportCache) Get(ctx context.Context, id string) (*suite.Report, error) {
	data, err := c.cache.Get(ctx, c.key(id))
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// Latest returns the most recently stored report.
func (c *ReportCache) Latest(ctx context.Context) (*suite.Report, error) {
	data, err := c.cache.Get(ctx, c.latestKey())
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// Set stores a report under its ID. The latest pointer moves to the report
// unless the cached latest started after it.
func (c *ReportCache) Set(ctx context.Context, report *suite.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := c.cache.Set(ctx, c.key(report.ID.String()), data, c.defaultTTL); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// An unreadable pointer is overwritten.
	if current, err := c.Latest(ctx); err == nil && current.StartedAt.After(report.StartedAt) {
		return nil
	}
	return c.cache.Set(ctx, c.latestKey(), data, c.defaultTTL)
}

// Ping checks the underlying cache.
func (c *ReportCache) Ping(ctx context.Context) error {
	return c.cache.Ping(ctx)
}

func (c *ReportCache) key(id string) string {
	return c.keyPrefix + id
}

func (c *ReportCache) latestKey() string {
	return c.keyPrefix + "latest"
}

func decode(data []byte) (*suite.Report, error) {
	var report suite.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}
	return &report, nil
}
