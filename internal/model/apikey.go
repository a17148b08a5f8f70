package model

import (
	"slices"
	"time"
)

const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin" // implies every other scope
)

// ValidScopes lists the scopes an API key may carry.
var ValidScopes = []string{ScopeRead, ScopeWrite, ScopeAdmin}

// Rate limit tiers. New keys start on the free tier.
const (
	TierFree      = "free"
	TierPro       = "pro"
	TierUnlimited = "unlimited"
)

// RateLimitConfig is a tier's token bucket. RequestsPerMinute 0 disables
// limiting.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

var tierLimits = map[string]RateLimitConfig{
	TierFree:      {RequestsPerMinute: 60, Burst: 10},
	TierPro:       {RequestsPerMinute: 600, Burst: 50},
	TierUnlimited: {},
}

// TierConfigFor returns the limits of tier, falling back to the free tier
// for unknown names.
func TierConfigFor(tier string) RateLimitConfig {
	if cfg, ok := tierLimits[tier]; ok {
		return cfg
	}
	return tierLimits[TierFree]
}

// ScopesForRole returns the scopes granted to a session token.
func ScopesForRole(role Role) []string {
	if role == RoleAdmin {
		return []string{ScopeRead, ScopeWrite, ScopeAdmin}
	}
	return []string{ScopeRead, ScopeWrite}
}

func grants(held []string, scope string) bool {
	return slices.Contains(held, ScopeAdmin) || slices.Contains(held, scope)
}

// APIKey is an integration credential, typically used by an employer's ATS.
// Only KeyHash is stored; the plaintext is shown once at creation.
type APIKey struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	KeyHash       string     `json:"-"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	Name          string     `json:"name,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (k *APIKey) IsRevoked() bool { return k.RevokedAt != nil }

func (k *APIKey) HasScope(scope string) bool { return grants(k.Scopes, scope) }

// ToResponse drops the hash and owner.
func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:            k.ID,
		Name:          k.Name,
		KeyPrefix:     k.KeyPrefix,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
		CreatedAt:     k.CreatedAt,
		LastUsedAt:    k.LastUsedAt,
		Revoked:       k.IsRevoked(),
	}
}

// AuthMethod identifies how a request was authenticated.
type AuthMethod string

const (
	AuthMethodToken  AuthMethod = "token"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// AuthContext is the authenticated caller, set on the request context by
// the auth middleware. KeyID and KeyPrefix are empty for token sessions.
type AuthContext struct {
	Method        AuthMethod
	KeyID         string
	KeyPrefix     string
	UserID        string
	Role          Role
	Scopes        []string
	RateLimitTier string
}

func (a *AuthContext) HasScope(scope string) bool { return grants(a.Scopes, scope) }

func (a *AuthContext) IsAdmin() bool { return a.Role == RoleAdmin }

// LimiterKey names the caller's rate limit bucket: one per API key, or one
// per user for all of their sessions.
func (a *AuthContext) LimiterKey() string {
	if a.KeyID != "" {
		return "key:" + a.KeyID
	}
	return "user:" + a.UserID
}

type APIKeyCreateRequest struct {
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes"`
}

type APIKeyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	Revoked       bool       `json:"revoked"`
}

// APIKeyCreateResponse carries the plaintext key. It is never retrievable
// again.
type APIKeyCreateResponse struct {
	ID            string    `json:"id"`
	Key           string    `json:"key"`
	Name          string    `json:"name,omitempty"`
	KeyPrefix     string    `json:"key_prefix"`
	Scopes        []string  `json:"scopes"`
	RateLimitTier string    `json:"rate_limit_tier"`
	CreatedAt     time.Time `json:"created_at"`
}

type APIKeyRotateResponse struct {
	OldKeyID        string               `json:"old_key_id"`
	OldKeyRevokedAt time.Time            `json:"old_key_revoked_at"`
	NewKey          APIKeyCreateResponse `json:"new_key"`
}
