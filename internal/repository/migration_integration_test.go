//go:build integration

package repository

import (
	"context"
	"slices"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hireline/hireline/internal/testutil"
)

func migratedPool(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, testutil.RequireEnv(t, "DATABASE_URL"))
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)
	testutil.PrepareDatabase(ctx, t, pool)
	return ctx, pool
}

func publicColumns(ctx context.Context, t *testing.T, pool *pgxpool.Pool) map[string][]string {
	t.Helper()
	rows, err := pool.Query(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position
	`)
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}
	cols := make(map[string][]string)
	var table, column string
	_, err = pgx.ForEachRow(rows, []any{&table, &column}, func() error {
		cols[table] = append(cols[table], column)
		return nil
	})
	if err != nil {
		t.Fatalf("scan catalog: %v", err)
	}
	return cols
}

func TestIntegrationMigration_Schema(t *testing.T) {
	ctx, pool := migratedPool(t)
	cols := publicColumns(ctx, t, pool)

	want := map[string][]string{
		"users":           {"id", "email", "password_hash", "role", "is_active"},
		"user_profiles":   {"user_id"},
		"companies":       {"id", "owner_id", "name", "slug"},
		"jobs":            {"id", "company_id", "posted_by", "title", "employment_type", "remote", "salary_min", "salary_max", "status", "published_at", "closes_at", "view_count", "created_at", "updated_at"},
		"resumes":         {"id", "user_id", "title", "is_primary"},
		"applications":    {"id"},
		"api_keys":        {"id", "user_id", "key_hash", "key_prefix", "scopes", "rate_limit_tier", "revoked_at", "last_used_at"},
		"job_view_events": {"id"},
		"daily_job_stats": {"job_id"},
		"email_logs":      {"id"},
		"folders":         {"id"},
		"folder_items":    {"folder_id"},
		"recent_searches": {"user_id"},
		"saved_searches":  {"id", "user_id", "name", "frequency"},
		"invoices":        {"id", "company_id", "number", "amount_cents"},
	}

	for table, columns := range want {
		got, ok := cols[table]
		if !ok {
			t.Errorf("table %s missing", table)
			continue
		}
		for _, c := range columns {
			if !slices.Contains(got, c) {
				t.Errorf("%s.%s missing", table, c)
			}
		}
	}
}

func TestIntegrationMigration_CheckConstraints(t *testing.T) {
	ctx, pool := migratedPool(t)

	seed := `
		INSERT INTO users (id, email, password_hash, role) VALUES ('u1', 'owner@example.test', 'x', 'employer');
		INSERT INTO companies (id, owner_id, name, slug) VALUES ('c1', 'u1', 'Acme', 'acme');
	`
	if _, err := pool.Exec(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rejected := map[string]string{
		"unknown role":            `INSERT INTO users (id, email, password_hash, role) VALUES ('u2', 'b@example.test', 'x', 'root')`,
		"duplicate email":         `INSERT INTO users (id, email, password_hash) VALUES ('u3', 'owner@example.test', 'x')`,
		"unknown job status":      `INSERT INTO jobs (id, company_id, title, status) VALUES ('j1', 'c1', 'T', 'archived')`,
		"inverted salary":         `INSERT INTO jobs (id, company_id, title, salary_min, salary_max) VALUES ('j2', 'c1', 'T', 200, 100)`,
		"job of missing company":  `INSERT INTO jobs (id, company_id, title) VALUES ('j3', 'missing', 'T')`,
		"zero invoice":            `INSERT INTO invoices (id, company_id, number, amount_cents) VALUES ('i1', 'c1', 'INV-1', 0)`,
		"unknown alert frequency": `INSERT INTO saved_searches (id, user_id, name, frequency) VALUES ('s1', 'u1', 'n', 'hourly')`,
	}
	for name, stmt := range rejected {
		t.Run(name, func(t *testing.T) {
			if _, err := pool.Exec(ctx, stmt); err == nil {
				t.Errorf("accepted: %s", stmt)
			}
		})
	}
}

func TestIntegrationMigration_SinglePrimaryResume(t *testing.T) {
	ctx, pool := migratedPool(t)

	if _, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES ('u1', 'c@example.test', 'x');
		INSERT INTO resumes (id, user_id, title, is_primary) VALUES ('r1', 'u1', 'A', TRUE);
		INSERT INTO resumes (id, user_id, title, is_primary) VALUES ('r2', 'u1', 'B', FALSE);
	`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := pool.Exec(ctx, `UPDATE resumes SET is_primary = TRUE WHERE id = 'r2'`)
	if !isUniqueViolation(err) {
		t.Errorf("second primary resume: err = %v, want unique violation", err)
	}
}

func TestIntegrationMigration_DownThenUp(t *testing.T) {
	ctx, pool := migratedPool(t)

	for _, step := range []struct {
		file        string
		wantInvoice bool
	}{
		{"000008_invoices.down.sql", false},
		{"000008_invoices.up.sql", true},
		{"000004_api_keys.up.sql", true}, // reapplying an up migration is a no-op
	} {
		path, err := testutil.MigrationPath(step.file)
		if err != nil {
			t.Fatalf("MigrationPath(%s): %v", step.file, err)
		}
		if err := testutil.ApplyMigration(ctx, pool, path); err != nil {
			t.Fatalf("apply %s: %v", step.file, err)
		}

		_, hasInvoices := publicColumns(ctx, t, pool)["invoices"]
		if hasInvoices != step.wantInvoice {
			t.Errorf("after %s: invoices present = %v, want %v", step.file, hasInvoices, step.wantInvoice)
		}
	}
}
