package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsRequest(cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/api/v1/jobs", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOriginPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		allowed     []string
		credentials bool
		origin      string
		want        bool
	}{
		{"nothing configured", nil, false, "https://hireline.dev", false},
		{"exact", []string{"https://hireline.dev"}, false, "https://hireline.dev", true},
		{"exact other scheme", []string{"https://hireline.dev"}, false, "http://hireline.dev", false},
		{"case folded", []string{" HTTPS://Hireline.DEV "}, false, "https://hireline.dev", true},
		{"subdomain", []string{"*.hireline.dev"}, false, "https://jobs.hireline.dev", true},
		{"nested subdomain", []string{"*.hireline.dev"}, false, "https://eu.jobs.hireline.dev", true},
		{"apex not a subdomain", []string{"*.hireline.dev"}, false, "https://hireline.dev", false},
		{"lookalike", []string{"*.hireline.dev"}, false, "https://evilhireline.dev", false},
		{"star", []string{"*"}, false, "https://careers.example.org", true},
		{"star with credentials", []string{"*"}, true, "https://careers.example.org", false},
		{"no scheme", []string{"*.hireline.dev"}, false, "jobs.hireline.dev", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newOriginPolicy(tt.allowed, tt.credentials)
			if got := p.allows(tt.origin); got != tt.want {
				t.Errorf("allows(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://hireline.dev"}

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"same origin", http.MethodGet, "", http.StatusOK, ""},
		{"allowed simple", http.MethodGet, "https://hireline.dev", http.StatusOK, "https://hireline.dev"},
		{"allowed preflight", http.MethodOptions, "https://hireline.dev", http.StatusNoContent, "https://hireline.dev"},
		{"denied simple", http.MethodPost, "https://evil.example", http.StatusOK, ""},
		{"denied preflight", http.MethodOptions, "https://evil.example", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := corsRequest(cfg, tt.method, tt.origin)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	t.Parallel()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://hireline.dev"}
	cfg.AllowCredentials = true

	h := corsRequest(cfg, http.MethodOptions, "https://hireline.dev").Header()
	want := map[string]string{
		"Access-Control-Allow-Methods":     "GET, POST, PATCH, DELETE, OPTIONS",
		"Access-Control-Max-Age":           "86400",
		"Access-Control-Allow-Credentials": "true",
		"Vary":                             "Origin",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if h.Get("Access-Control-Allow-Headers") == "" {
		t.Error("Allow-Headers missing")
	}
}

func TestCORS_SimpleRequestExposesHeaders(t *testing.T) {
	t.Parallel()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}

	h := corsRequest(cfg, http.MethodGet, "https://careers.example.org").Header()
	if h.Get("Access-Control-Expose-Headers") == "" {
		t.Error("Expose-Headers missing")
	}
	if h.Get("Access-Control-Allow-Methods") != "" {
		t.Error("preflight headers set on a simple request")
	}
	if h.Get("Access-Control-Allow-Credentials") != "" {
		t.Error("credentials allowed without AllowCredentials")
	}
}
