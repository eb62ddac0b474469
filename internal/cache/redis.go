// Package cache holds the Redis-backed rate limiter and tracking target cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the shared Redis pool. Zero fields take the value
// from DefaultOptions.
type Options struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

// DefaultOptions sizes the pool for the tracking routes plus one stream
// worker.
func DefaultOptions(url string) Options {
	return Options{
		URL:          url,
		PoolSize:     20,
		MinIdleConns: 2,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	}
}

// Cache is the Redis handle shared by the rate limiter, the tracking target
// cache and the tracking stream.
type Cache struct {
	client *redis.Client
}

// New connects with opts and pings once. The client is closed again when
// the ping fails.
func New(ctx context.Context, opts Options) (*Cache, error) {
	ro, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client}, nil
}

func clientOptions(opts Options) (*redis.Options, error) {
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	def := DefaultOptions(opts.URL)
	ro.PoolSize = pick(opts.PoolSize, def.PoolSize)
	ro.MinIdleConns = pick(opts.MinIdleConns, def.MinIdleConns)
	ro.PoolTimeout = pick(opts.PoolTimeout, def.PoolTimeout)
	ro.ConnMaxIdleTime = pick(opts.IdleTimeout, def.IdleTimeout)
	if ro.MinIdleConns > ro.PoolSize {
		ro.MinIdleConns = ro.PoolSize
	}
	return ro, nil
}

func pick[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping backs the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the pool to the tracking publisher and worker.
func (c *Cache) Client() *redis.Client {
	return c.client
}
