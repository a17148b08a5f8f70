package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/cache"
	"github.com/hireline/hireline/internal/model"
)

// RateLimiter is the token bucket backend. Satisfied by *cache.Cache.
type RateLimiter interface {
	CheckClientRateLimit(ctx context.Context, limiterKey string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig configures both limiters. Authenticated callers are limited
// per LimiterKey at their tier's rate; anonymous callers per address.
type RateLimitConfig struct {
	Logger     *slog.Logger
	Limiter    RateLimiter
	APIEnabled bool
	IPEnabled  bool
	IPRPS      int
	IPBurst    int
}

// RateLimitAPI limits authenticated requests by tier. Requests without an
// auth context go through RateLimitIP instead. Limiter errors fail open.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.APIEnabled {
			return next
		}
		anonymous := RateLimitIP(cfg)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := auth.AuthFromContext(r.Context())
			if ac == nil {
				anonymous.ServeHTTP(w, r)
				return
			}

			tier := model.TierConfigFor(ac.RateLimitTier)
			if tier.RequestsPerMinute == 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := ac.LimiterKey()
			res, err := cfg.Limiter.CheckClientRateLimit(r.Context(), key, tier.RequestsPerMinute, tier.Burst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed", "error", err, "limiter_key", key)
				next.ServeHTTP(w, r)
				return
			}

			hdr := w.Header()
			hdr.Set("X-RateLimit-Limit", strconv.Itoa(tier.RequestsPerMinute))
			hdr.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			hdr.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				reject(cfg.Logger, w, r, res.RetryAfter, slog.String("type", "client"), slog.String("limiter_key", key))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP limits requests per client address. The public auth routes use
// it directly.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.IPEnabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r)
			res, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.IPRPS, cfg.IPBurst)
			if err != nil {
				cfg.Logger.Error("ip rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				reject(cfg.Logger, w, r, res.RetryAfter, slog.String("type", "ip"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// reject answers 429. Retry-After is whole seconds, rounded up, at least 1.
func reject(logger *slog.Logger, w http.ResponseWriter, r *http.Request, wait time.Duration, attrs ...slog.Attr) {
	seconds := int((wait + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	attrs = append(attrs,
		slog.String("ip", remoteIP(r)),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int("retry_after_seconds", seconds),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	logger.LogAttrs(r.Context(), slog.LevelWarn, "rate limit exceeded", attrs...)

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("rate limit exceeded, retry after %d seconds", seconds))
}

// remoteIP is the caller address without its port. chi's RealIP runs first
// in the router and has already applied X-Forwarded-For and X-Real-IP.
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
