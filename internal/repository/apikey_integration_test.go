//go:build integration

package repository

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/testutil"
)

func TestIntegrationAPIKey_CreateAndGet(t *testing.T) {
	ctx, repo := newDomainTestEnv(t)
	owner := seedUserWithRole(t, ctx, repo, model.RoleEmployer)

	for _, tier := range []string{model.TierFree, model.TierPro, model.TierUnlimited} {
		t.Run(tier, func(t *testing.T) {
			key := testutil.NewTestAPIKey(t, owner.ID)
			key.RateLimitTier = tier
			key.Scopes = []string{model.ScopeRead}
			if err := repo.CreateAPIKey(ctx, key); err != nil {
				t.Fatalf("CreateAPIKey: %v", err)
			}

			got, err := repo.GetAPIKeyByID(ctx, key.ID)
			if err != nil {
				t.Fatalf("GetAPIKeyByID: %v", err)
			}
			if got.UserID != owner.ID || got.KeyHash != key.KeyHash || got.KeyPrefix != key.KeyPrefix {
				t.Errorf("stored key = %+v, want %+v", got, key)
			}
			if got.RateLimitTier != tier {
				t.Errorf("tier = %q, want %q", got.RateLimitTier, tier)
			}
			if !slices.Equal(got.Scopes, []string{model.ScopeRead}) {
				t.Errorf("scopes = %v", got.Scopes)
			}
			if got.HasScope(model.ScopeWrite) {
				t.Error("read-only key reports write scope")
			}
			if got.RevokedAt != nil || got.LastUsedAt != nil {
				t.Error("new key has revoked_at or last_used_at set")
			}
		})
	}
}

func TestIntegrationAPIKey_UnknownOwner(t *testing.T) {
	ctx, repo := newDomainTestEnv(t)

	key := testutil.NewTestAPIKey(t, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	if err := repo.CreateAPIKey(ctx, key); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("CreateAPIKey() error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetAPIKeyByID(ctx, key.ID); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Errorf("GetAPIKeyByID() error = %v, want ErrAPIKeyNotFound", err)
	}
}

func TestIntegrationAPIKey_PrefixLookupSkipsRevoked(t *testing.T) {
	ctx, repo := newDomainTestEnv(t)
	owner := seedUserWithRole(t, ctx, repo, model.RoleEmployer)

	const prefix = "c0ffee"
	var ids []string
	for i := 0; i < 3; i++ {
		key := testutil.NewTestAPIKey(t, owner.ID)
		key.KeyPrefix = prefix
		if err := repo.CreateAPIKey(ctx, key); err != nil {
			t.Fatalf("CreateAPIKey %d: %v", i, err)
		}
		ids = append(ids, key.ID)
	}
	other := testutil.NewTestAPIKey(t, owner.ID)
	other.KeyPrefix = "beef00"
	if err := repo.CreateAPIKey(ctx, other); err != nil {
		t.Fatalf("CreateAPIKey other: %v", err)
	}

	if err := repo.RevokeAPIKey(ctx, ids[0]); err != nil {
		t.Fatalf("RevokeAPIKey: %v", err)
	}

	keys, err := repo.GetAPIKeysByPrefix(ctx, prefix)
	if err != nil {
		t.Fatalf("GetAPIKeysByPrefix: %v", err)
	}
	var got []string
	for _, k := range keys {
		got = append(got, k.ID)
	}
	slices.Sort(got)
	want := slices.Clone(ids[1:])
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("active keys = %v, want %v", got, want)
	}
}

func TestIntegrationAPIKey_ListNewestFirst(t *testing.T) {
	ctx, repo := newDomainTestEnv(t)
	owner := seedUserWithRole(t, ctx, repo, model.RoleEmployer)
	stranger := seedUserWithRole(t, ctx, repo, model.RoleEmployer)

	base := time.Now().UTC().Add(-time.Hour)
	var want []string
	for i := 0; i < 3; i++ {
		key := testutil.NewTestAPIKey(t, owner.ID)
		key.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.CreateAPIKey(ctx, key); err != nil {
			t.Fatalf("CreateAPIKey %d: %v", i, err)
		}
		want = append([]string{key.ID}, want...)
	}
	if err := repo.CreateAPIKey(ctx, testutil.NewTestAPIKey(t, stranger.ID)); err != nil {
		t.Fatalf("CreateAPIKey stranger: %v", err)
	}

	keys, err := repo.ListAPIKeysByUserID(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListAPIKeysByUserID: %v", err)
	}
	var got []string
	for _, k := range keys {
		got = append(got, k.ID)
	}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestIntegrationAPIKey_RevokeOnce(t *testing.T) {
	ctx, repo := newDomainTestEnv(t)
	owner := seedUserWithRole(t, ctx, repo, model.RoleEmployer)

	key := testutil.NewTestAPIKey(t, owner.ID)
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	if err := repo.RevokeAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := repo.RevokeAPIKey(ctx, key.ID); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Errorf("second revoke error = %v, want ErrAPIKeyNotFound", err)
	}

	got, err := repo.GetAPIKeyByID(ctx, key.ID)
	if err != nil {
		t.Fatalf("GetAPIKeyByID: %v", err)
	}
	if !got.IsRevoked() {
		t.Error("revoked key still active")
	}
}

func TestIntegrationAPIKey_LastUsedThrottled(t *testing.T) {
	ctx, repo := newDomainTestEnv(t)
	owner := seedUserWithRole(t, ctx, repo, model.RoleEmployer)

	key := testutil.NewTestAPIKey(t, owner.ID)
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	if err := repo.UpdateAPIKeyLastUsed(ctx, key.ID); err != nil {
		t.Fatalf("first touch: %v", err)
	}
	first, err := repo.GetAPIKeyByID(ctx, key.ID)
	if err != nil || first.LastUsedAt == nil {
		t.Fatalf("last_used_at not set: %v", err)
	}

	if err := repo.UpdateAPIKeyLastUsed(ctx, key.ID); err != nil {
		t.Fatalf("second touch: %v", err)
	}
	second, _ := repo.GetAPIKeyByID(ctx, key.ID)
	if !second.LastUsedAt.Equal(*first.LastUsedAt) {
		t.Errorf("last_used_at moved within %v: %v -> %v", lastUsedResolution, first.LastUsedAt, second.LastUsedAt)
	}

	// Age the stamp past the resolution; the next touch must move it.
	if _, err := repo.Pool().Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() - INTERVAL '2 minutes' WHERE id = $1`, key.ID); err != nil {
		t.Fatalf("age last_used_at: %v", err)
	}
	if err := repo.UpdateAPIKeyLastUsed(ctx, key.ID); err != nil {
		t.Fatalf("third touch: %v", err)
	}
	third, _ := repo.GetAPIKeyByID(ctx, key.ID)
	if time.Since(*third.LastUsedAt) > time.Minute {
		t.Errorf("stale last_used_at not refreshed: %v", third.LastUsedAt)
	}
}
