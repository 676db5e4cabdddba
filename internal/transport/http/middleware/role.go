package middleware

import (
	"log/slog"
	"net/http"
	"slices"
)

// RequireRole lets a request through only when the access token's role is one
// of roles. Must run after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				unauthorized(w, "", "unauthorized")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				slog.Info("role denied", "user_id", claims.UserID, "role", claims.Role, "path", r.URL.Path)
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
