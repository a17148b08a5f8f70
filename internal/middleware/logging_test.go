package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// serveLogged runs h behind Logger and returns the decoded log line.
func serveLogged(t *testing.T, h http.Handler, req *http.Request) (map[string]any, string) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	Logger(logger)(h).ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not one JSON line: %v\n%s", err, buf.String())
	}
	return line, buf.String()
}

func TestLogger_Fields(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"x"}`))
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", nil)
	req.Header.Set("User-Agent", "hireline-cli/1.2")

	line, _ := serveLogged(t, h, req)

	want := map[string]any{
		"msg":         "http request",
		"method":      "POST",
		"path":        "/api/v1/applications",
		"status_code": float64(201),
		"bytes":       float64(10),
		"user_agent":  "hireline-cli/1.2",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
	if _, ok := line["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}
}

func TestLogger_NeverLogsCredentials(t *testing.T) {
	t.Parallel()

	secrets := []string{
		"Bearer hl_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b",
		"Bearer eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ1MSJ9.c2ln",
	}
	for _, secret := range secrets {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set("Authorization", secret)
		req.Header.Set("Cookie", "session=abc")

		_, raw := serveLogged(t, http.NotFoundHandler(), req)
		token := strings.TrimPrefix(secret, "Bearer ")
		if strings.Contains(raw, token) || strings.Contains(raw, "Bearer") || strings.Contains(raw, "session=abc") {
			t.Errorf("credential leaked into log: %s", raw)
		}
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNoContent, "INFO"},
		{http.StatusConflict, "WARN"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(tt.status) })
			line, _ := serveLogged(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
			if line["level"] != tt.want {
				t.Errorf("level = %v, want %s", line["level"], tt.want)
			}
		})
	}
}

func TestLogger_ImplicitOK(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	line, _ := serveLogged(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if line["status_code"] != float64(200) {
		t.Errorf("status_code = %v, want 200", line["status_code"])
	}
}

func TestLogger_RouteAndInnerAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(Logger(slog.New(slog.NewJSONHandler(&buf, nil))))
	r.Get("/api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		AddLogAttrs(r.Context(), slog.String("user_id", "01HZUSER"))
		_, _ = w.Write([]byte("{}"))
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/jobs/01HZX3", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if line["route"] != "/api/v1/jobs/{id}" {
		t.Errorf("route = %v", line["route"])
	}
	if line["user_id"] != "01HZUSER" {
		t.Errorf("user_id = %v", line["user_id"])
	}
}

func TestAddLogAttrs_OutsideLogger(t *testing.T) {
	t.Parallel()

	// Must not panic without a Logger in the chain.
	AddLogAttrs(httptest.NewRequest(http.MethodGet, "/", nil).Context(), slog.Int("n", 1))
}
