//go:build e2e

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

const e2ePassword = "e2e-password-123"

type authResponse struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"access_token"`
}

type idResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

func TestE2EHiringFlow(t *testing.T) {
	baseURL := envOrDefault("HIRELINE_BASE_URL", "http://localhost:8080")
	suffix := time.Now().UnixNano()

	employer := register(t, baseURL, fmt.Sprintf("employer-%d@e2e.hireline.local", suffix), model.RoleEmployer)
	candidate := register(t, baseURL, fmt.Sprintf("candidate-%d@e2e.hireline.local", suffix), model.RoleCandidate)

	var company idResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/v1/companies", employer.AccessToken, map[string]any{
		"name":     fmt.Sprintf("E2E Corp %d", suffix),
		"location": "Berlin",
	}, &company)
	if status != http.StatusCreated || company.ID == "" {
		t.Fatalf("company create: status %d", status)
	}

	var job idResponse
	status = doJSON(t, http.MethodPost, baseURL+"/api/v1/jobs", employer.AccessToken, map[string]any{
		"company_id":      company.ID,
		"title":           "Backend Engineer",
		"description":     "Build the hiring pipeline.",
		"location":        "Berlin",
		"employment_type": "full_time",
		"remote":          true,
		"status":          "published",
	}, &job)
	if status != http.StatusCreated || job.ID == "" {
		t.Fatalf("job create: status %d", status)
	}

	// Anonymous views from two addresses.
	viewJob(t, baseURL, job.ID, "203.0.113.10")
	viewJob(t, baseURL, job.ID, "203.0.113.11")

	var application idResponse
	status = doJSON(t, http.MethodPost, baseURL+"/api/v1/applications", candidate.AccessToken, map[string]any{
		"job_id":       job.ID,
		"cover_letter": "I would love to join.",
	}, &application)
	if status != http.StatusCreated || application.ID == "" {
		t.Fatalf("apply: status %d", status)
	}

	status = doJSON(t, http.MethodPost, baseURL+"/api/v1/applications", candidate.AccessToken, map[string]any{
		"job_id": job.ID,
	}, nil)
	if status != http.StatusConflict {
		t.Fatalf("duplicate apply: status %d, want 409", status)
	}

	var changed idResponse
	status = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/v1/applications/%s/status", baseURL, application.ID), employer.AccessToken, map[string]any{
		"status": "reviewing",
	}, &changed)
	if status != http.StatusOK || changed.Status != string(model.ApplicationReviewing) {
		t.Fatalf("status change: status %d, application status %q", status, changed.Status)
	}

	waitForAnalytics(t, baseURL, employer.AccessToken, job.ID)
	waitForStatusEmail(t, baseURL, candidate.AccessToken)
}

func TestE2EAdminStats(t *testing.T) {
	baseURL := envOrDefault("HIRELINE_BASE_URL", "http://localhost:8080")
	adminKey := bootstrapKey(t, model.RoleAdmin, model.ScopesForRole(model.RoleAdmin), model.TierUnlimited)

	var stats map[string]any
	status := doJSON(t, http.MethodGet, baseURL+"/api/v1/admin/stats", adminKey, nil, &stats)
	if status != http.StatusOK {
		t.Fatalf("admin stats: status %d", status)
	}
	if stats["service"] != "hireline" {
		t.Fatalf("admin stats service = %v", stats["service"])
	}

	candidate := register(t, baseURL, fmt.Sprintf("not-admin-%d@e2e.hireline.local", time.Now().UnixNano()), model.RoleCandidate)
	status = doJSON(t, http.MethodGet, baseURL+"/api/v1/admin/stats", candidate.AccessToken, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("admin stats as candidate: status %d, want 403", status)
	}
}

// TestE2ERateLimiting checks that a free-tier key is throttled with headers.
func TestE2ERateLimiting(t *testing.T) {
	baseURL := envOrDefault("HIRELINE_BASE_URL", "http://localhost:8080")
	key := bootstrapKey(t, model.RoleEmployer, []string{model.ScopeRead}, model.TierFree)

	client := &http.Client{Timeout: 10 * time.Second}
	var limited *http.Response

	// Free tier bursts at 10.
	for i := 0; i < 20; i++ {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/companies", nil)
		if err != nil {
			t.Fatalf("create request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+key)

		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = resp
			break
		}
		resp.Body.Close()
	}

	if limited == nil {
		t.Fatalf("expected 429 after burst")
	}
	defer limited.Body.Close()

	if limited.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("missing X-RateLimit-Limit header")
	}
	if got := limited.Header.Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if limited.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	var errResp map[string]any
	if err := json.NewDecoder(limited.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode 429 response: %v", err)
	}
	if errResp["code"] == nil {
		t.Error("429 response missing code")
	}
}

// TestE2ENoSecretsInResponses checks that credentials are never echoed.
func TestE2ENoSecretsInResponses(t *testing.T) {
	baseURL := envOrDefault("HIRELINE_BASE_URL", "http://localhost:8080")
	key := bootstrapKey(t, model.RoleEmployer, model.ScopesForRole(model.RoleEmployer), model.TierUnlimited)

	fake := "hl_live_abcdef_" + strings.Repeat("0", 32)
	for _, credential := range []string{fake, key} {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/users/me", nil)
		if err != nil {
			t.Fatalf("create request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+credential)

		resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if strings.Contains(string(body), credential) {
			t.Errorf("response with status %d echoed the credential", resp.StatusCode)
		}
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func register(t *testing.T, baseURL, email string, role model.Role) authResponse {
	t.Helper()

	var resp authResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/v1/auth/register", "", map[string]any{
		"email":     email,
		"password":  e2ePassword,
		"full_name": "E2E " + string(role),
		"role":      role,
	}, &resp)
	if status != http.StatusCreated || resp.AccessToken == "" {
		t.Fatalf("register %s: status %d", role, status)
	}
	return resp
}

// bootstrapKey creates a user directly in the database and issues an API
// key for it. Admin accounts cannot be registered through the API.
func bootstrapKey(t *testing.T, role model.Role, scopes []string, tier string) string {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, dbURL, repository.DefaultConnectWait)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer repo.Close()

	hash, err := auth.HashPassword(e2ePassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        fmt.Sprintf("%s-%d@e2e.hireline.local", role, now.UnixNano()),
		PasswordHash: hash,
		FullName:     "E2E " + string(role),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	generated, err := auth.GenerateAPIKey(auth.EnvTest)
	if err != nil {
		t.Fatalf("generate api key: %v", err)
	}
	apiKey := &model.APIKey{
		ID:            ulid.Make().String(),
		UserID:        user.ID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: tier,
		Name:          "e2e-" + string(role),
		CreatedAt:     now,
	}
	if err := repo.CreateAPIKey(ctx, apiKey); err != nil {
		t.Fatalf("create api key: %v", err)
	}
	return generated.Plaintext
}

func viewJob(t *testing.T, baseURL, jobID, ip string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/jobs/%s", baseURL, jobID), nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("X-Real-IP", ip)
	req.Header.Set("Referer", "https://news.example.com/jobs")

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("view job: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("view job: status %d", resp.StatusCode)
	}
}

func waitForAnalytics(t *testing.T, baseURL, token, jobID string) {
	t.Helper()

	day := time.Now().UTC().Format("2006-01-02")
	endpoint := fmt.Sprintf("%s/api/v1/jobs/%s/analytics?from=%s&to=%s", baseURL, jobID, day, day)

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var resp model.AnalyticsResponse
		status := doJSON(t, http.MethodGet, endpoint, token, nil, &resp)
		if status == http.StatusOK && resp.Summary.TotalViews >= 2 && resp.Summary.Applications >= 1 {
			return
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("analytics did not report views in time")
}

func waitForStatusEmail(t *testing.T, baseURL, token string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var resp listResponse[model.EmailLog]
		status := doJSON(t, http.MethodGet, baseURL+"/api/v1/emails", token, nil, &resp)
		if status == http.StatusOK {
			for _, e := range resp.Data {
				if e.Template == model.TemplateApplicationStatus {
					return
				}
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("status change email was not queued")
}

func doJSON(t *testing.T, method, url, credential string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		buf = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(credential) != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := (&http.Client{Timeout: 15 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.ContentLength != 0 {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}
