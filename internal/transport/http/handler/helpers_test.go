package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/domain"
	jwtinfra "github.com/go-api-users/internal/infrastructure/jwt"
	"github.com/go-api-users/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	p, err := jwtinfra.NewProvider(config.Auth{
		AccessSecret: "access", AccessTTL: time.Hour,
		RefreshSecret: "refresh", RefreshTTL: time.Hour,
		ConfirmEmailSecret: "confirm", ConfirmEmailTTL: time.Hour,
		ForgotSecret: "forgot", ForgotTTL: time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed access token for userID/role on session "sess1".
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID, role string, body []byte) *http.Request {
	t.Helper()
	token, _, err := p.IssueAccess(userID, role, "sess1")
	require.NoError(t, err)
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	return withChiParam(r, "id", id)
}

func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

// stubPhotos resolves every photo to a fixed CDN path.
type stubPhotos struct{}

func (stubPhotos) URL(_ context.Context, u *domain.User) string {
	if u.Image == nil {
		return "avatar:" + u.Initials()
	}
	return "https://cdn.test/" + *u.Image
}
