package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

func TestHandler_AppHealth(t *testing.T) {
	t.Parallel()

	h := New()
	for _, app := range Apps {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/"+app+"/health", nil)
		rec := httptest.NewRecorder()

		h.AppHealth(app)(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", app, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s: expected Content-Type application/json, got %s", app, ct)
		}

		var response dto.AppHealthResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("%s: failed to decode response: %v", app, err)
		}
		if response.Status != "ok" || response.App != app {
			t.Errorf("unexpected response: %+v", response)
		}
	}
}

func TestHandler_NotFound(t *testing.T) {
	t.Parallel()

	h := New()

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()

	h.NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	var response dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Error != "resource not found" || response.Code != "NOT_FOUND" {
		t.Errorf("unexpected error body: %+v", response)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := New()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()

	h.MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}

	var response dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("unexpected code: %s", response.Code)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantValid bool
	}{
		{name: "valid", body: `{"email":"a@example.com"}`},
		{name: "empty body", body: "", wantErr: true, wantValid: true},
		{name: "malformed", body: `{"email":`, wantErr: true, wantValid: true},
		{name: "wrong type", body: `{"email":42}`, wantErr: true, wantValid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst dto.LoginRequest
			err := decodeJSON(req, &dst)

			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantValid && !errors.Is(err, service.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 64)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var dst dto.LoginRequest
	if err := decodeJSON(req, &dst); !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("expected errBodyTooLarge, got %v", err)
	}
}

func TestPageRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query     string
		wantLimit int
		wantErr   bool
	}{
		{query: "", wantLimit: 0},
		{query: "limit=1", wantLimit: 1},
		{query: "limit=100&cursor=abc", wantLimit: 100},
		{query: "limit=0", wantErr: true},
		{query: "limit=101", wantErr: true},
		{query: "limit=ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			page, err := pageRequest(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pageRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, service.ErrValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if page.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", page.Limit, tt.wantLimit)
			}
		})
	}
}

func TestJobQuery(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet,
		"/?q=golang&location=Berlin&employment_type=full_time&remote=true&salary_min=50000", nil)
	q, err := jobQuery(req)
	if err != nil {
		t.Fatalf("jobQuery() error = %v", err)
	}
	if q.Q != "golang" || q.Location != "Berlin" {
		t.Errorf("unexpected text filters: %+v", q)
	}
	if q.EmploymentType != model.EmploymentFullTime {
		t.Errorf("EmploymentType = %q", q.EmploymentType)
	}
	if q.Remote == nil || !*q.Remote {
		t.Errorf("Remote = %v, want true", q.Remote)
	}
	if q.SalaryMin == nil || *q.SalaryMin != 50000 {
		t.Errorf("SalaryMin = %v, want 50000", q.SalaryMin)
	}

	for _, bad := range []string{"remote=maybe", "salary_min=lots"} {
		req := httptest.NewRequest(http.MethodGet, "/?"+bad, nil)
		if _, err := jobQuery(req); !errors.Is(err, service.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", bad, err)
		}
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"203.0.113.10:52000", "203.0.113.10"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"203.0.113.10", "203.0.113.10"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
