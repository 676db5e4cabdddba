package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/pkg/logging"
	"github.com/go-api-users/internal/transport/http/handler"
	appmiddleware "github.com/go-api-users/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// multipartOverhead is added to the photo size limit to leave room for the
// multipart envelope around the file.
const multipartOverhead = 64 << 10

// NewRouter builds and returns the application router. ctx bounds the
// background work of the rate limiter.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(logging.Requests(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Tokens)
	refreshMw := appmiddleware.RefreshAuth(deps.Tokens)

	// 5 requests/second, burst of 10, for credential and mail-sending endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler(deps.Checks)
	authH := handler.NewAuthHandler(deps.Sessions, deps.Auth, deps.Photos, cfg.Photo.MaxBytes+multipartOverhead)
	userH := handler.NewUserHandler(deps.Users, deps.Photos)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Route("/auth", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/email/login", authH.Login)
			r.With(sensitiveRL.Limit).Post("/email/register", authH.Register)
			r.Post("/email/confirm", authH.ConfirmEmail)
			r.Post("/email/confirm/new", authH.ConfirmNewEmail)
			r.With(sensitiveRL.Limit).Post("/forgot/password", authH.ForgotPassword)
			r.With(sensitiveRL.Limit).Post("/reset/password", authH.ResetPassword)

			r.With(refreshMw).Post("/refresh", authH.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authMw)

				r.Get("/me", authH.Me)
				r.Patch("/me", authH.UpdateMe)
				r.Get("/session", authH.Session)
				r.Post("/logout", authH.Logout)
				r.Post("/me/photo", authH.UploadPhoto)
				r.Delete("/me/photo", authH.DeletePhoto)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authMw)
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

			r.Post("/", userH.Create)
			r.Get("/", userH.List)
			r.Get("/{id}", userH.Get)
			r.Patch("/{id}", userH.Update)
			r.Delete("/{id}", userH.Delete)
		})
	})

	return r
}
