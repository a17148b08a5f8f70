package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/model"
)

// guarded runs mw around a 200 handler for the given caller (nil means
// anonymous) and returns the recorder.
func guarded(mw func(http.Handler) http.Handler, ac *model.AuthContext) *httptest.ResponseRecorder {
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	if ac != nil {
		req = req.WithContext(auth.ContextWithAuth(req.Context(), ac))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func keyCaller(role model.Role, scopes ...string) *model.AuthContext {
	return &model.AuthContext{
		Method:    model.AuthMethodAPIKey,
		KeyID:     "01HZKEY",
		KeyPrefix: "a1b2c3",
		UserID:    "01HZUSER",
		Role:      role,
		Scopes:    scopes,
	}
}

func TestRequireScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		held     []string
		required []string
		want     int
	}{
		{"read has read", []string{model.ScopeRead}, []string{model.ScopeRead}, http.StatusOK},
		{"write has write", []string{model.ScopeRead, model.ScopeWrite}, []string{model.ScopeWrite}, http.StatusOK},
		{"admin implies read", []string{model.ScopeAdmin}, []string{model.ScopeRead}, http.StatusOK},
		{"admin implies write", []string{model.ScopeAdmin}, []string{model.ScopeWrite}, http.StatusOK},
		{"any of several", []string{model.ScopeWrite}, []string{model.ScopeAdmin, model.ScopeWrite}, http.StatusOK},
		{"read lacks write", []string{model.ScopeRead}, []string{model.ScopeWrite}, http.StatusForbidden},
		{"write lacks admin", []string{model.ScopeWrite}, []string{model.ScopeAdmin}, http.StatusForbidden},
		{"no scopes", nil, []string{model.ScopeRead}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := guarded(RequireScope(tt.required...), keyCaller(model.RoleEmployer, tt.held...))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireScope_ForbiddenBody(t *testing.T) {
	t.Parallel()

	rec := guarded(RequireScope(model.ScopeAdmin, model.ScopeWrite), keyCaller(model.RoleCandidate, model.ScopeRead))

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "FORBIDDEN" || !strings.Contains(body.Error, "admin or write") {
		t.Errorf("body = %+v", body)
	}
}

func TestGuards_Anonymous(t *testing.T) {
	t.Parallel()

	guards := map[string]func(http.Handler) http.Handler{
		"read":  RequireRead(),
		"write": RequireWrite(),
		"admin": RequireAdmin(),
		"role":  RequireRole(model.RoleEmployer),
	}
	for name, mw := range guards {
		if rec := guarded(mw, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ac   *model.AuthContext
		want int
	}{
		{"admin session", &model.AuthContext{Method: model.AuthMethodToken, UserID: "u", Role: model.RoleAdmin, Scopes: model.ScopesForRole(model.RoleAdmin)}, http.StatusOK},
		{"admin read-only key", keyCaller(model.RoleAdmin, model.ScopeRead), http.StatusForbidden},
		{"employer with admin scope", keyCaller(model.RoleEmployer, model.ScopeAdmin), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if rec := guarded(RequireAdmin(), tt.ac); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	employerOnly := RequireRole(model.RoleEmployer, model.RoleAdmin)
	for role, want := range map[model.Role]int{
		model.RoleEmployer:  http.StatusOK,
		model.RoleAdmin:     http.StatusOK,
		model.RoleCandidate: http.StatusForbidden,
	} {
		if rec := guarded(employerOnly, keyCaller(role, model.ScopeWrite)); rec.Code != want {
			t.Errorf("%s: status = %d, want %d", role, rec.Code, want)
		}
	}
}
