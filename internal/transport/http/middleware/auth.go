package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/go-api-users/internal/infrastructure/jwt"
)

type contextKey string

const (
	claimsKey        contextKey = "claims"
	refreshClaimsKey contextKey = "refresh_claims"
)

type accessParser interface {
	ParseAccess(token string) (*jwtinfra.Claims, error)
}

type refreshParser interface {
	ParseRefresh(token string) (*jwtinfra.RefreshClaims, error)
}

// Auth returns middleware that validates the Bearer access token and injects
// its claims into the request context.
func Auth(p accessParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearer(r)
			if !ok {
				unauthorized(w, "", "missing or invalid authorization header")
				return
			}
			claims, err := p.ParseAccess(tokenStr)
			if err != nil {
				unauthorized(w, "invalid_token", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RefreshAuth is Auth for the refresh endpoint: the bearer must be a refresh token.
func RefreshAuth(p refreshParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearer(r)
			if !ok {
				unauthorized(w, "", "missing or invalid authorization header")
				return
			}
			claims, err := p.ParseRefresh(tokenStr)
			if err != nil {
				unauthorized(w, "invalid_token", "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), refreshClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// WithClaims returns ctx carrying access claims.
func WithClaims(ctx context.Context, c *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext extracts access token claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

func RefreshClaimsFromContext(ctx context.Context) (*jwtinfra.RefreshClaims, bool) {
	c, ok := ctx.Value(refreshClaimsKey).(*jwtinfra.RefreshClaims)
	return c, ok
}
