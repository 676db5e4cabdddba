package http

import (
	"log/slog"

	"github.com/go-api-users/internal/application/auth"
	"github.com/go-api-users/internal/application/photo"
	"github.com/go-api-users/internal/application/session"
	"github.com/go-api-users/internal/application/user"
	jwtinfra "github.com/go-api-users/internal/infrastructure/jwt"
	"github.com/go-api-users/internal/transport/http/handler"
)

// TokenParser validates bearer tokens for the auth middleware.
type TokenParser interface {
	ParseAccess(token string) (*jwtinfra.Claims, error)
	ParseRefresh(token string) (*jwtinfra.RefreshClaims, error)
}

// Deps holds the application services the router serves.
type Deps struct {
	Sessions session.Service
	Auth     auth.Service
	Users    user.Service
	Photos   photo.Service
	Tokens   TokenParser
	Logger   *slog.Logger

	// Checks back the readiness probe, keyed by dependency name.
	Checks map[string]handler.Check
}
