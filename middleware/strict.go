package middleware

import "net/http"

// RequireActive is RequireBearer plus a server-side check, for backends that revoke
// tokens before they expire.
func RequireActive(v Verifier, active ActiveFunc) func(http.Handler) http.Handler {
	return Guard(v, active)
}

// RequireRole wraps next so that it only runs for claims carrying role; others get 403.
// It must be mounted inside a guard.
func RequireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.HasRole(role) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
