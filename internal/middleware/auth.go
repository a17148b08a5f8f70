package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/model"
)

const (
	// minAuthFailureDuration pads failed authentications so that response
	// time does not reveal which check failed.
	minAuthFailureDuration = 200 * time.Millisecond
	// lastUsedTimeout bounds the background last_used_at update.
	lastUsedTimeout = 5 * time.Second
)

// CredentialStore loads the records needed to authenticate a request.
type CredentialStore interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// AuthCache caches resolved credentials.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Store  CredentialStore
	Cache  AuthCache
	Tokens *auth.TokenManager
}

// Auth returns a middleware that requires a valid access token or API key.
// The credential is read from "Authorization: Bearer" or "X-API-Key".
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return authenticate(cfg, true)
}

// OptionalAuth authenticates the request when credentials are present and
// lets anonymous requests through. Invalid credentials are still rejected.
func OptionalAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return authenticate(cfg, false)
}

func authenticate(cfg AuthConfig, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := extractCredential(r)
			if credential == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				cfg.fail(w, r, time.Now(), "missing_credentials")
				return
			}

			start := time.Now()
			cacheKey := auth.QuickHash(credential)
			authCtx, err := cfg.Cache.GetAuthContext(r.Context(), cacheKey)
			if err != nil {
				cfg.Logger.Warn("auth cache read failed", "error", err)
			}
			cacheHit := authCtx != nil

			if authCtx == nil {
				var reason string
				if auth.LooksLikeJWT(credential) {
					authCtx, reason = cfg.resolveToken(r.Context(), credential)
				} else {
					authCtx, reason = cfg.resolveAPIKey(r.Context(), credential)
				}
				if authCtx == nil {
					cfg.fail(w, r, start, reason)
					return
				}
				if err := cfg.Cache.SetAuthContext(r.Context(), cacheKey, authCtx); err != nil {
					cfg.Logger.Warn("auth cache write failed", "error", err)
				}
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("method", string(authCtx.Method)),
				slog.String("key_id", authCtx.KeyID),
				slog.String("user_id", authCtx.UserID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Bool("cache_hit", cacheHit),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			AddLogAttrs(r.Context(),
				slog.String("user_id", authCtx.UserID),
				slog.String("auth_method", string(authCtx.Method)),
			)
			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveToken validates a JWT and reloads the user so that deactivation
// and role changes apply once the cached context is invalidated.
func (cfg AuthConfig) resolveToken(ctx context.Context, token string) (*model.AuthContext, string) {
	if cfg.Tokens == nil {
		return nil, "tokens_disabled"
	}
	claims, err := cfg.Tokens.Parse(token)
	if err != nil {
		return nil, "invalid_token"
	}

	user, err := cfg.Store.GetUserByID(ctx, claims.Subject)
	if err != nil || !user.IsActive {
		return nil, "inactive_user"
	}

	return &model.AuthContext{
		Method:        model.AuthMethodToken,
		UserID:        user.ID,
		Role:          user.Role,
		Scopes:        model.ScopesForRole(user.Role),
		RateLimitTier: model.TierPro,
	}, ""
}

// resolveAPIKey looks up candidate keys by prefix and verifies the secret.
func (cfg AuthConfig) resolveAPIKey(ctx context.Context, key string) (*model.AuthContext, string) {
	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, "invalid_format"
	}

	keys, err := cfg.Store.GetAPIKeysByPrefix(ctx, parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("database error during auth",
			slog.String("error", err.Error()),
		)
		return nil, "lookup_failed"
	}

	// Several keys may share a prefix; verify against each.
	var matched *model.APIKey
	for _, k := range keys {
		if ok, err := auth.VerifyPassword(key, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, "invalid_key"
	}

	user, err := cfg.Store.GetUserByID(ctx, matched.UserID)
	if err != nil || !user.IsActive {
		return nil, "inactive_user"
	}

	go func(id string) {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), lastUsedTimeout)
		defer cancel()
		if err := cfg.Store.UpdateAPIKeyLastUsed(bg, id); err != nil {
			cfg.Logger.Warn("failed to update API key last used", slog.String("key_id", id), slog.String("error", err.Error()))
		}
	}(matched.ID)

	return &model.AuthContext{
		Method:        model.AuthMethodAPIKey,
		KeyID:         matched.ID,
		KeyPrefix:     matched.KeyPrefix,
		UserID:        user.ID,
		Role:          user.Role,
		Scopes:        matched.Scopes,
		RateLimitTier: matched.RateLimitTier,
	}, ""
}

// fail logs the failure, pads the response time and writes a 401.
func (cfg AuthConfig) fail(w http.ResponseWriter, r *http.Request, start time.Time, reason string) {
	cfg.Logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", remoteIP(r)),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	if elapsed := time.Since(start); elapsed < minAuthFailureDuration {
		time.Sleep(minAuthFailureDuration - elapsed)
	}
	writeAuthError(w)
}

// extractCredential reads the bearer credential from the request.
// Supports both "Authorization: Bearer <credential>" and "X-API-Key: <key>".
func extractCredential(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
}
