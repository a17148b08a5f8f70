// Package cache is the Redis layer: published job lookups, cached auth
// contexts and the token bucket rate limiters.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Cache wraps a go-redis client.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL and waits, with exponential backoff, for Redis to
// answer a PING. Pool settings in the URL query (pool_size, min_idle_conns)
// take precedence over the defaults below.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	applyPoolDefaults(opt)

	client := redis.NewClient(opt)
	if err := waitForRedis(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Cache{client: client}, nil
}

func applyPoolDefaults(opt *redis.Options) {
	if opt.PoolSize == 0 {
		opt.PoolSize = 10
	}
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = 2
	}
	if opt.PoolTimeout == 0 {
		opt.PoolTimeout = 4 * time.Second
	}
	if opt.ConnMaxIdleTime == 0 {
		opt.ConnMaxIdleTime = 5 * time.Minute
	}
}

func waitForRedis(ctx context.Context, client *redis.Client) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 15 * time.Second

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return client.Ping(ctx).Err()
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("ping redis after %d attempts: %w", attempts, err)
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.client.Close() }

// Client exposes the raw client for stream consumers and publishers.
func (c *Cache) Client() *redis.Client { return c.client }
