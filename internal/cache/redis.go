// Package cache keeps resolved principals in Redis so authenticated
// requests skip the user lookup.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tallyhub/tallyhub/internal/metrics"
)

// Cache provides Redis cache access methods.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics metrics.Recorder
}

// New connects to Redis. Principals are cached for ttl.
func New(ctx context.Context, redisURL string, ttl time.Duration, recorder metrics.Recorder) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewWithClient(client, ttl, recorder), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration, recorder metrics.Recorder) *Cache {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if ttl <= 0 {
		ttl = DefaultPrincipalTTL
	}
	return &Cache{client: client, ttl: ttl, metrics: recorder}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client. The event publisher
// shares it.
func (c *Cache) Client() *redis.Client {
	return c.client
}
