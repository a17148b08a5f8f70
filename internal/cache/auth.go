package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hireline/hireline/internal/model"
)

// Auth contexts are keyed by auth.QuickHash of the credential, never the
// credential itself. Each user has a set of their keys so that a role change
// or key revocation can drop them all.
const (
	authCachePrefix     = "auth:ctx:"
	authUserIndexPrefix = "auth:user:"
	authCacheTTL        = 5 * time.Minute
)

// authEntry is the stored form of model.AuthContext.
type authEntry struct {
	Method    model.AuthMethod `json:"m"`
	KeyID     string           `json:"kid,omitempty"`
	KeyPrefix string           `json:"kp,omitempty"`
	UserID    string           `json:"uid"`
	Role      model.Role       `json:"role"`
	Scopes    []string         `json:"scp"`
	Tier      string           `json:"tier"`
}

// GetAuthContext returns the cached caller for cacheKey, or nil on a miss.
// An undecodable entry is deleted and reported as a miss.
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	key := authCachePrefix + cacheKey
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth context: %w", err)
	}

	var e authEntry
	if err := json.Unmarshal(data, &e); err != nil || e.UserID == "" {
		_ = c.client.Del(ctx, key).Err()
		return nil, nil
	}
	return &model.AuthContext{
		Method:        e.Method,
		KeyID:         e.KeyID,
		KeyPrefix:     e.KeyPrefix,
		UserID:        e.UserID,
		Role:          e.Role,
		Scopes:        e.Scopes,
		RateLimitTier: e.Tier,
	}, nil
}

// SetAuthContext stores ac for authCacheTTL and records cacheKey in the
// user's index.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, ac *model.AuthContext) error {
	data, err := json.Marshal(authEntry{
		Method:    ac.Method,
		KeyID:     ac.KeyID,
		KeyPrefix: ac.KeyPrefix,
		UserID:    ac.UserID,
		Role:      ac.Role,
		Scopes:    ac.Scopes,
		Tier:      ac.RateLimitTier,
	})
	if err != nil {
		return fmt.Errorf("encode auth context: %w", err)
	}

	index := authUserIndexPrefix + ac.UserID
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, authCachePrefix+cacheKey, data, authCacheTTL)
		pipe.SAdd(ctx, index, cacheKey)
		pipe.Expire(ctx, index, authCacheTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set auth context: %w", err)
	}
	return nil
}

// InvalidateUserAuthContexts drops every cached context of userID.
func (c *Cache) InvalidateUserAuthContexts(ctx context.Context, userID string) error {
	index := authUserIndexPrefix + userID
	members, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("read auth index: %w", err)
	}

	keys := make([]string, len(members), len(members)+1)
	for i, m := range members {
		keys[i] = authCachePrefix + m
	}
	if err := c.client.Del(ctx, append(keys, index)...).Err(); err != nil {
		return fmt.Errorf("invalidate auth contexts: %w", err)
	}
	return nil
}
