package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/metrics"
	"github.com/hireline/hireline/internal/middleware"
	"github.com/hireline/hireline/internal/model"
)

// stubAuthCache resolves fixed credentials so routing tests never reach a
// credential store.
type stubAuthCache map[string]*model.AuthContext

func (s stubAuthCache) GetAuthContext(_ context.Context, cacheKey string) (*model.AuthContext, error) {
	return s[cacheKey], nil
}

func (s stubAuthCache) SetAuthContext(context.Context, string, *model.AuthContext) error {
	return nil
}

const (
	candidateCredential = "candidate-session"
	employerCredential  = "employer-session"
)

// newTestRouter wires handlers without services. Only requests rejected
// before a service call may be sent through it.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := stubAuthCache{
		auth.QuickHash(candidateCredential): {
			Method: model.AuthMethodToken, UserID: "user-candidate",
			Role: model.RoleCandidate, Scopes: model.ScopesForRole(model.RoleCandidate),
			RateLimitTier: model.TierPro,
		},
		auth.QuickHash(employerCredential): {
			Method: model.AuthMethodToken, UserID: "user-employer",
			Role: model.RoleEmployer, Scopes: model.ScopesForRole(model.RoleEmployer),
			RateLimitTier: model.TierPro,
		},
	}

	return NewRouter(RouterConfig{
		Logger:       logger,
		Auth:         middleware.AuthConfig{Logger: logger, Cache: cache},
		RateLimit:    middleware.RateLimitConfig{Logger: logger},
		Security:     middleware.SecurityConfig{IsDevelopment: true},
		CORS:         middleware.DefaultCORSConfig(),
		Health:       NewHealthHandler(nil, nil),
		Metrics:      NewMetricsHandler(metrics.NewInMemory()),
		Users:        NewUserHandler(nil, logger),
		Companies:    NewCompanyHandler(nil, logger),
		Jobs:         NewJobHandler(nil, nil, logger),
		Analytics:    NewAnalyticsHandler(nil, logger),
		Applications: NewApplicationHandler(nil, logger),
		Resumes:      NewResumeHandler(nil, logger),
		Folders:      NewFolderHandler(nil, logger),
		Searches:     NewSearchHandler(nil, logger),
		Emails:       NewEmailHandler(nil, logger),
		Invoices:     NewInvoiceHandler(nil, logger),
		APIKeys:      NewAPIKeyHandler(nil, logger),
		Admin:        NewAdminHandler(nil, nil, "test", logger),
	})
}

func TestRouter_AppHealth(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	for _, app := range Apps {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/"+app+"/health", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", app, rec.Code)
			continue
		}
		var body dto.AppHealthResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", app, err)
		}
		if body.App != app {
			t.Errorf("app = %q, want %q", body.App, app)
		}
	}
}

func TestRouter_Responses(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		credential string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "liveness",
			method:     http.MethodGet,
			path:       "/healthz",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/v2/jobs",
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "wrong method",
			method:     http.MethodPost,
			path:       "/healthz",
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   "METHOD_NOT_ALLOWED",
		},
		{
			name:       "protected route without credentials",
			method:     http.MethodGet,
			path:       "/api/v1/users/me",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "admin route for candidate",
			method:     http.MethodGet,
			path:       "/api/v1/admin/stats",
			credential: candidateCredential,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "user listing for employer",
			method:     http.MethodGet,
			path:       "/api/v1/users",
			credential: employerCredential,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "email retry for candidate",
			method:     http.MethodPost,
			path:       "/api/v1/emails/01J9ZX3Q5N6ZKQ8Y2V4W7T1R0S/retry",
			credential: candidateCredential,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "malformed id",
			method:     http.MethodGet,
			path:       "/api/v1/resumes/not-an-id",
			credential: candidateCredential,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "malformed public job id",
			method:     http.MethodGet,
			path:       "/api/v1/jobs/not-a-valid-id",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "public job list rejects bad limit",
			method:     http.MethodGet,
			path:       "/api/v1/jobs?limit=500",
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "public job list rejects bad remote flag",
			method:     http.MethodGet,
			path:       "/api/v1/jobs?remote=sometimes",
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "job creation needs credentials",
			method:     http.MethodPost,
			path:       "/api/v1/jobs",
			body:       `{}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed company body",
			method:     http.MethodPost,
			path:       "/api/v1/companies",
			credential: employerCredential,
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "empty register body",
			method:     http.MethodPost,
			path:       "/api/v1/auth/register",
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "analytics with bad date",
			method:     http.MethodGet,
			path:       "/api/v1/jobs/01J9ZX3Q5N6ZKQ8Y2V4W7T1R0S/analytics?from=yesterday",
			credential: employerCredential,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "admin key listing without user",
			method:     http.MethodGet,
			path:       "/api/v1/admin/api-keys",
			credential: candidateCredential,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.credential != "" {
				req.Header.Set("Authorization", "Bearer "+tt.credential)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				var resp dto.ErrorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestRouter_GlobalHeaders(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request ID header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hireline_jobs_published_total 0") {
		t.Errorf("unexpected metrics output: %s", rec.Body.String())
	}
}
