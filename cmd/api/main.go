package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-api-users/internal/application/auth"
	"github.com/go-api-users/internal/application/credential"
	"github.com/go-api-users/internal/application/mail"
	"github.com/go-api-users/internal/application/photo"
	"github.com/go-api-users/internal/application/session"
	"github.com/go-api-users/internal/application/user"
	"github.com/go-api-users/internal/config"
	jwtinfra "github.com/go-api-users/internal/infrastructure/jwt"
	s3infra "github.com/go-api-users/internal/infrastructure/s3"
	"github.com/go-api-users/internal/pkg/logging"
	"github.com/go-api-users/internal/pkg/password"
	transporthttp "github.com/go-api-users/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	tokens, err := jwtinfra.NewProvider(cfg.Auth)
	if err != nil {
		return err
	}

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	objects := s3infra.NewStore(s3Client, cfg.S3BucketName)
	st.checks["s3"] = objects.Ping

	sender, err := newMailSender(ctx, cfg, logger)
	if err != nil {
		return err
	}
	mailSvc, err := mail.NewService(mail.ServiceDeps{
		Sender:         sender,
		AppName:        cfg.AppName,
		FrontendDomain: cfg.FrontendDomain,
	})
	if err != nil {
		return err
	}

	hasher := password.NewHasher(cfg.Auth.BcryptCost)
	userSvc := user.NewService(user.ServiceDeps{UserRepo: st.users, SessionRepo: st.sessions, Hasher: hasher})
	if cfg.SeedAdminEmail != "" {
		if err := user.SeedAdmin(ctx, userSvc, cfg.SeedAdminEmail, cfg.SeedAdminPassword, cfg.AppName); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	sessionSvc := session.NewService(session.ServiceDeps{
		Store:      st.sessions,
		UserRepo:   st.users,
		Verifier:   credential.NewVerifier(st.users, hasher),
		Tokens:     tokens,
		SessionTTL: cfg.Auth.RefreshTTL,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo: st.users,
		Users:    userSvc,
		Sessions: sessionSvc,
		Tokens:   tokens,
		Mail:     mailSvc,
		Hasher:   hasher,
	})
	photoSvc := photo.NewService(photo.ServiceDeps{
		Objects:    objects,
		UserRepo:   st.users,
		Limits:     cfg.Photo,
		PublicURL:  cfg.S3PublicURL,
		PresignTTL: cfg.S3PresignTTL,
	})

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Sessions: sessionSvc,
		Auth:     authSvc,
		Users:    userSvc,
		Photos:   photoSvc,
		Tokens:   tokens,
		Logger:   logger,
		Checks:   st.checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
