package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/goAuthClient/jwt"
)

// Verifier checks a bearer token and returns its claims. [jwt.Issuer] implements it.
type Verifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// ActiveFunc reports whether a verified token is still accepted server-side.
type ActiveFunc func(ctx context.Context, token string, claims *jwt.Claims) bool

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return c, ok
}

// Guard verifies the bearer token with v and, when active is non-nil, asks it whether
// the token is still accepted. Any failure answers 401 with a WWW-Authenticate header.
func Guard(v Verifier, active ActiveFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				unauthorized(w)
				return
			}
			if active != nil && !active(r.Context(), token, claims) {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
