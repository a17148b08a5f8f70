// Package testutil holds helpers shared by the integration tests: environment
// gating, schema resets against the SQL migrations and model factories.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hireline/hireline/internal/model"
)

// RequireEnv returns the variable or skips the test when it is unset. Short
// mode skips too, so `go test -short -tags integration` stays offline.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// Packages run their tests in parallel processes against one database; the
// advisory lock serializes them.
const schemaLockID int64 = 420420

// PrepareDatabase takes the schema lock for the rest of the test and rebuilds
// the schema from migrations/.
func PrepareDatabase(ctx context.Context, t testing.TB, pool *pgxpool.Pool) {
	t.Helper()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", schemaLockID); err != nil {
		conn.Release()
		t.Fatalf("take schema lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", schemaLockID)
		conn.Release()
	})

	if err := ResetSchema(ctx, pool); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
}

// CleanRedis empties the current Redis database.
func CleanRedis(ctx context.Context, t testing.TB, client *redis.Client) {
	t.Helper()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
}

// ResetSchema runs every down migration, newest first, then every up
// migration.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	downs, err := migrationFiles(".down.sql")
	if err != nil {
		return err
	}
	ups, err := migrationFiles(".up.sql")
	if err != nil {
		return err
	}
	slices.Reverse(downs)

	for _, path := range append(downs, ups...) {
		if err := ApplyMigration(ctx, pool, path); err != nil {
			return err
		}
	}
	return nil
}

// ApplyMigration executes one migration file.
func ApplyMigration(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply %s: %w", filepath.Base(path), err)
	}
	return nil
}

// MigrationPath returns the absolute path of migrations/name.
func MigrationPath(name string) (string, error) {
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("cannot locate testutil source")
	}
	return filepath.Join(filepath.Dir(self), "..", "..", "migrations", name), nil
}

func migrationFiles(suffix string) ([]string, error) {
	dir, err := MigrationPath("")
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s migrations in %s", suffix, dir)
	}
	slices.Sort(files)
	return files, nil
}

var uniqueSeq atomic.Int64

// UniqueID returns prefix with a suffix unique within the test binary and
// unlikely to repeat across runs.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), uniqueSeq.Add(1))
}

func UniqueEmail(prefix string) string {
	return UniqueID(prefix) + "@example.test"
}

// NewTestUser returns an active user. PasswordHash is well formed but
// matches no password; tests that log in set their own.
func NewTestUser(t testing.TB, role model.Role) *model.User {
	t.Helper()
	now := time.Now().UTC()
	return &model.User{
		ID:           ulid.Make().String(),
		Email:        UniqueEmail(string(role)),
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdHNhbHQ$aGFzaGhhc2g",
		FullName:     "Test " + string(role),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NewTestCompany(t testing.TB, ownerID string) *model.Company {
	t.Helper()
	now := time.Now().UTC()
	name := UniqueID("Company")
	return &model.Company{
		ID:        ulid.Make().String(),
		OwnerID:   ownerID,
		Name:      name,
		Slug:      model.Slugify(name),
		Location:  "Remote",
		Size:      model.CompanySizeSmall,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestJob returns a job already published.
func NewTestJob(t testing.TB, companyID string) *model.Job {
	t.Helper()
	now := time.Now().UTC()
	return &model.Job{
		ID:             ulid.Make().String(),
		CompanyID:      companyID,
		Title:          "Go Engineer",
		Description:    "Build APIs in Go",
		Location:       "Berlin",
		EmploymentType: model.EmploymentFullTime,
		Currency:       "EUR",
		Status:         model.JobStatusPublished,
		PublishedAt:    &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewTestAPIKey returns a read/write free-tier key. KeyHash is a placeholder
// unless the test replaces it with a generated one.
func NewTestAPIKey(t testing.TB, userID string) *model.APIKey {
	t.Helper()
	return &model.APIKey{
		ID:            ulid.Make().String(),
		UserID:        userID,
		KeyHash:       UniqueID("hash"),
		KeyPrefix:     "a1b2c3",
		Scopes:        []string{model.ScopeRead, model.ScopeWrite},
		RateLimitTier: model.TierFree,
		Name:          "Test Key",
		CreatedAt:     time.Now().UTC(),
	}
}
