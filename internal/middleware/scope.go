package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/model"
)

// guard admits a request when allow returns "" for the authenticated caller
// and answers 403 with the returned message otherwise. Anonymous callers get
// 401. It must run after Auth.
func guard(allow func(ac *model.AuthContext) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := auth.AuthFromContext(r.Context())
			if ac == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if msg := allow(ac); msg != "" {
				writeError(w, http.StatusForbidden, "FORBIDDEN", msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireScope admits callers holding any of the scopes. Admin implies every
// scope.
func RequireScope(anyOf ...string) func(http.Handler) http.Handler {
	msg := "insufficient permissions, required scope: " + strings.Join(anyOf, " or ")
	return guard(func(ac *model.AuthContext) string {
		if slices.ContainsFunc(anyOf, ac.HasScope) {
			return ""
		}
		return msg
	})
}

func RequireRead() func(http.Handler) http.Handler  { return RequireScope(model.ScopeRead) }
func RequireWrite() func(http.Handler) http.Handler { return RequireScope(model.ScopeWrite) }

// RequireAdmin needs the admin role and the admin scope, so a read-only key
// owned by an admin stays out of admin endpoints.
func RequireAdmin() func(http.Handler) http.Handler {
	role, scope := RequireRole(model.RoleAdmin), RequireScope(model.ScopeAdmin)
	return func(next http.Handler) http.Handler { return role(scope(next)) }
}

// RequireRole admits only the listed roles.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return guard(func(ac *model.AuthContext) string {
		if slices.Contains(roles, ac.Role) {
			return ""
		}
		return "this action is not available for your role"
	})
}
