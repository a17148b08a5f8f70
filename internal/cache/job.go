package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hireline/hireline/internal/model"
)

// Cache key prefixes and TTLs.
const (
	jobKeyPrefix      = "job:"
	negCacheKeySuffix = ":neg"

	// DefaultJobTTL is the TTL for cached job data.
	DefaultJobTTL = time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

func jobKey(id string) string {
	return jobKeyPrefix + id
}

// GetJob retrieves a published job from cache.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetJob(ctx context.Context, id string) (*model.Job, error) {
	res := c.client.HGetAll(ctx, jobKey(id))
	fields, err := res.Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrCacheMiss
	}

	var cached model.CachedJob
	if err := res.Scan(&cached); err != nil {
		return nil, fmt.Errorf("decode cached job: %w", err)
	}
	return cached.ToJob(), nil
}

// SetJob stores a job in cache. Only publicly visible jobs are cached, and
// the entry never outlives the job's closing date.
func (c *Cache) SetJob(ctx context.Context, job *model.Job) error {
	key := jobKey(job.ID)
	if !job.IsPublic() {
		return c.DeleteJob(ctx, job.ID)
	}

	ttl := DefaultJobTTL
	if job.ClosesAt != nil {
		if closesIn := time.Until(*job.ClosesAt); closesIn < ttl {
			ttl = closesIn
		}
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key, key+negCacheKeySuffix)
	pipe.HSet(ctx, key, job.ToCachedJob())
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache job: %w", err)
	}
	return nil
}

// DeleteJob removes a job and its negative entry from cache.
func (c *Cache) DeleteJob(ctx context.Context, id string) error {
	key := jobKey(id)
	if err := c.client.Del(ctx, key, key+negCacheKeySuffix).Err(); err != nil {
		return fmt.Errorf("failed to delete job from cache: %w", err)
	}
	return nil
}

// IsNegativelyCached checks if a job ID is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, id string) (bool, error) {
	exists, err := c.client.Exists(ctx, jobKey(id)+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}
	return exists > 0, nil
}

// SetNegativeCache marks a job ID as not publicly visible.
func (c *Cache) SetNegativeCache(ctx context.Context, id string) error {
	if err := c.client.SetEx(ctx, jobKey(id)+negCacheKeySuffix, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}
