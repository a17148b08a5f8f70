package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/cache"
	"github.com/hireline/hireline/internal/model"
)

type fakeLimiter struct {
	result *cache.RateLimitResult
	err    error

	clientKeys []string
	clientRPM  []int
	ips        []string
}

func (f *fakeLimiter) CheckClientRateLimit(_ context.Context, limiterKey string, ratePerMinute, _ int) (*cache.RateLimitResult, error) {
	f.clientKeys = append(f.clientKeys, limiterKey)
	f.clientRPM = append(f.clientRPM, ratePerMinute)
	return f.result, f.err
}

func (f *fakeLimiter) CheckIPRateLimit(_ context.Context, ip string, _, _ int) (*cache.RateLimitResult, error) {
	f.ips = append(f.ips, ip)
	return f.result, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAPI_UsesTierAndLimiterKey(t *testing.T) {
	limiter := &fakeLimiter{result: &cache.RateLimitResult{Allowed: true, Remaining: 59, ResetAt: time.Unix(1700000000, 0)}}
	handler := RateLimitAPI(RateLimitConfig{Logger: discardLogger(), Limiter: limiter, APIEnabled: true})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req = req.WithContext(auth.ContextWithAuth(req.Context(), &model.AuthContext{
		Method:        model.AuthMethodAPIKey,
		KeyID:         "k1",
		UserID:        "u1",
		RateLimitTier: model.TierFree,
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(limiter.clientKeys) != 1 || limiter.clientKeys[0] != "key:k1" {
		t.Errorf("limiter keys = %v, want [key:k1]", limiter.clientKeys)
	}
	if limiter.clientRPM[0] != 60 {
		t.Errorf("rpm = %d, want 60", limiter.clientRPM[0])
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("X-RateLimit-Limit = %q, want 60", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "59" {
		t.Errorf("X-RateLimit-Remaining = %q, want 59", got)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got != "1700000000" {
		t.Errorf("X-RateLimit-Reset = %q, want 1700000000", got)
	}
}

func TestRateLimitAPI_Rejects(t *testing.T) {
	limiter := &fakeLimiter{result: &cache.RateLimitResult{Allowed: false, RetryAfter: 3 * time.Second}}
	handler := RateLimitAPI(RateLimitConfig{Logger: discardLogger(), Limiter: limiter, APIEnabled: true})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req = req.WithContext(auth.ContextWithAuth(req.Context(), &model.AuthContext{
		Method:        model.AuthMethodToken,
		UserID:        "u1",
		RateLimitTier: model.TierPro,
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "3" {
		t.Errorf("Retry-After = %q, want 3", got)
	}
	if !strings.Contains(rec.Body.String(), `"code":"RATE_LIMITED"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if limiter.clientKeys[0] != "user:u1" {
		t.Errorf("limiter key = %q, want user:u1", limiter.clientKeys[0])
	}
}

func TestRateLimitAPI_UnlimitedTierSkipsLimiter(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimitAPI(RateLimitConfig{Logger: discardLogger(), Limiter: limiter, APIEnabled: true})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req = req.WithContext(auth.ContextWithAuth(req.Context(), &model.AuthContext{
		UserID:        "u1",
		RateLimitTier: model.TierUnlimited,
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(limiter.clientKeys) != 0 {
		t.Errorf("limiter should not be called, got %v", limiter.clientKeys)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("unlimited tier should not set rate limit headers")
	}
}

func TestRateLimitAPI_FailsOpen(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	handler := RateLimitAPI(RateLimitConfig{Logger: discardLogger(), Limiter: limiter, APIEnabled: true})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req = req.WithContext(auth.ContextWithAuth(req.Context(), &model.AuthContext{UserID: "u1", RateLimitTier: model.TierFree}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected fail-open 200, got %d", rec.Code)
	}
}

func TestRateLimitAPI_AnonymousFallsBackToIP(t *testing.T) {
	limiter := &fakeLimiter{result: &cache.RateLimitResult{Allowed: true}}
	handler := RateLimitAPI(RateLimitConfig{
		Logger:     discardLogger(),
		Limiter:    limiter,
		APIEnabled: true,
		IPEnabled:  true,
		IPRPS:      10,
		IPBurst:    20,
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(limiter.clientKeys) != 0 {
		t.Errorf("client limiter called for anonymous request: %v", limiter.clientKeys)
	}
	if len(limiter.ips) != 1 || limiter.ips[0] != "203.0.113.7" {
		t.Errorf("ips = %v, want [203.0.113.7]", limiter.ips)
	}
}

func TestRateLimitIP_Disabled(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimitIP(RateLimitConfig{Logger: discardLogger(), Limiter: limiter})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(limiter.ips) != 0 {
		t.Error("disabled limiter should not be consulted")
	}
}

func TestRateLimitIP_Rejects(t *testing.T) {
	limiter := &fakeLimiter{result: &cache.RateLimitResult{Allowed: false, RetryAfter: 200 * time.Millisecond}}
	handler := RateLimitIP(RateLimitConfig{Logger: discardLogger(), Limiter: limiter, IPEnabled: true, IPRPS: 1, IPBurst: 1})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	// Sub-second waits round up.
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
}

func TestRemoteIP(t *testing.T) {
	t.Parallel()

	for addr, want := range map[string]string{
		"192.168.1.1:12345": "192.168.1.1",
		"[2001:db8::1]:443": "2001:db8::1",
		"203.0.113.7":       "203.0.113.7",
		"":                  "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		if got := remoteIP(req); got != want {
			t.Errorf("remoteIP(%q) = %q, want %q", addr, got, want)
		}
	}
}
