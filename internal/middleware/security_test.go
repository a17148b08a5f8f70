package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func securedHeaders(cfg SecurityConfig) http.Header {
	h := Security(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "leaky/1.0")
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	return rec.Header()
}

func TestSecurity_Headers(t *testing.T) {
	t.Parallel()

	got := securedHeaders(SecurityConfig{})
	for _, kv := range apiHeaders {
		if v := got.Get(kv[0]); v != kv[1] {
			t.Errorf("%s = %q, want %q", kv[0], v, kv[1])
		}
	}
	if v := got.Get("Strict-Transport-Security"); v != hstsValue {
		t.Errorf("HSTS = %q, want %q", v, hstsValue)
	}
}

func TestSecurity_NoHSTSInDevelopment(t *testing.T) {
	t.Parallel()

	got := securedHeaders(SecurityConfig{IsDevelopment: true})
	if v := got.Get("Strict-Transport-Security"); v != "" {
		t.Errorf("HSTS = %q in development", v)
	}
	if got.Get("Cache-Control") != "no-store" {
		t.Error("development responses lost Cache-Control")
	}
}

func TestSecurity_DoesNotShareHeaderTable(t *testing.T) {
	t.Parallel()

	before := len(apiHeaders)
	_ = Security(SecurityConfig{})
	_ = Security(SecurityConfig{})
	if len(apiHeaders) != before {
		t.Fatalf("apiHeaders grew from %d to %d", before, len(apiHeaders))
	}
}

func TestMaxBodySize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		limit    int64
		body     string
		declared int64
		want     int
	}{
		{"within limit", 64, `{"title":"Go engineer"}`, 23, http.StatusOK},
		{"declared too large", 8, `{"title":"Go engineer"}`, 23, http.StatusRequestEntityTooLarge},
		{"exactly at limit", 4, "abcd", 4, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := MaxBodySize(tt.limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(tt.body))
			req.ContentLength = tt.declared
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusRequestEntityTooLarge && !strings.Contains(rec.Body.String(), "PAYLOAD_TOO_LARGE") {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestMaxBodySize_ChunkedBodyCutOff(t *testing.T) {
	t.Parallel()

	var readErr error
	h := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !IsBodyTooLarge(readErr) {
		t.Errorf("IsBodyTooLarge(%v) = false", readErr)
	}
	if IsBodyTooLarge(io.ErrUnexpectedEOF) {
		t.Error("unrelated error reported as too large")
	}
}
