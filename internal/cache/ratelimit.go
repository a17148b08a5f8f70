package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientBucketPrefix = "ratelimit:client:"
	ipBucketPrefix     = "ratelimit:ip:"
)

// RateLimitResult is the outcome of taking one token from a bucket.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucket describes a token bucket: perSecond tokens are added continuously
// up to burst.
type bucket struct {
	key       string
	perSecond float64
	burst     int
}

// idleTTL is how long an untouched bucket survives: the time to refill from
// empty, plus slack. A refilled bucket is indistinguishable from a new one.
func (b bucket) idleTTL() time.Duration {
	refill := time.Duration(float64(b.burst) / b.perSecond * float64(time.Second))
	return refill + 10*time.Second
}

// takeTokenScript refills and consumes atomically. Time is in milliseconds.
// Returns {allowed, retry_after_ms, remaining, reset_ms}.
var takeTokenScript = redis.NewScript(`
local rate = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
  tokens = math.min(burst, tokens + (now - ts) * rate)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ARGV[4])

local full = math.ceil((burst - tokens) / rate)
return {allowed, wait, math.floor(tokens), full}
`)

// CheckClientRateLimit takes a token from the bucket of an authenticated
// caller, keyed by model.AuthContext.LimiterKey. ratePerMinute 0 means
// unlimited and does not touch Redis.
func (c *Cache) CheckClientRateLimit(ctx context.Context, limiterKey string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute == 0 {
		return &RateLimitResult{
			Allowed:   true,
			Remaining: int64(burst),
			ResetAt:   time.Now().Add(time.Minute),
		}, nil
	}
	return c.take(ctx, bucket{
		key:       clientBucketPrefix + limiterKey,
		perSecond: float64(ratePerMinute) / 60,
		burst:     burst,
	})
}

// CheckIPRateLimit takes a token from the bucket of a client address. The
// address is stored hashed.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.take(ctx, bucket{
		key:       ipBucketPrefix + hashIP(ip),
		perSecond: float64(ratePerSecond),
		burst:     burst,
	})
}

// take returns an error when Redis is unavailable; callers decide whether
// to fail open.
func (c *Cache) take(ctx context.Context, b bucket) (*RateLimitResult, error) {
	if b.perSecond <= 0 || b.burst <= 0 {
		return nil, fmt.Errorf("invalid bucket %s: rate %.3f/s burst %d", b.key, b.perSecond, b.burst)
	}

	now := time.Now()
	vals, err := takeTokenScript.Run(ctx, c.client, []string{b.key},
		b.perSecond, b.burst, now.UnixMilli(), b.idleTTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", b.key, err)
	}
	if len(vals) != 4 {
		return nil, fmt.Errorf("rate limit %s: unexpected reply %v", b.key, vals)
	}

	return &RateLimitResult{
		Allowed:    vals[0] == 1,
		RetryAfter: time.Duration(vals[1]) * time.Millisecond,
		Remaining:  vals[2],
		ResetAt:    now.Add(time.Duration(vals[3]) * time.Millisecond),
	}, nil
}

// hashIP truncates a SHA-256 of the address to 16 hex characters.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
