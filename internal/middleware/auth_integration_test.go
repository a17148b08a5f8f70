//go:build integration

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/cache"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
	"github.com/hireline/hireline/internal/testutil"
)

// TestIntegrationAuth_APIKeyRevocation authenticates a real key through
// Postgres and Redis, then checks that invalidating the user's cached
// contexts makes a revoked key stop working.
func TestIntegrationAuth_APIKeyRevocation(t *testing.T) {
	ctx := context.Background()

	repo, err := repository.New(ctx, testutil.RequireEnv(t, "DATABASE_URL"), repository.DefaultConnectWait)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	testutil.PrepareDatabase(ctx, t, repo.Pool())

	c, err := cache.New(ctx, testutil.RequireEnv(t, "REDIS_URL"))
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	testutil.CleanRedis(ctx, t, c.Client())

	user := testutil.NewTestUser(t, model.RoleEmployer)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	generated, err := auth.GenerateAPIKey(auth.EnvTest)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	key := testutil.NewTestAPIKey(t, user.ID)
	key.KeyHash = generated.Hash
	key.KeyPrefix = generated.Prefix
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	handler := Auth(AuthConfig{Logger: discardLogger(), Store: repo, Cache: c})(okHandler())
	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set("X-API-Key", generated.Plaintext)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call(); code != http.StatusOK {
		t.Fatalf("first call: expected 200, got %d", code)
	}
	if cached, _ := c.GetAuthContext(ctx, auth.QuickHash(generated.Plaintext)); cached == nil {
		t.Fatal("expected auth context to be cached")
	}

	if err := repo.RevokeAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("RevokeAPIKey: %v", err)
	}
	if err := c.InvalidateUserAuthContexts(ctx, user.ID); err != nil {
		t.Fatalf("InvalidateUserAuthContexts: %v", err)
	}

	if code := call(); code != http.StatusUnauthorized {
		t.Fatalf("after revoke: expected 401, got %d", code)
	}
}
