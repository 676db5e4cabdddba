// Command migrate applies the PostgreSQL schema and optionally seeds an admin
// account from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD. The api binary seeds the
// same account on startup for every storage driver.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-api-users/internal/application/user"
	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/infrastructure/postgres"
	"github.com/go-api-users/internal/pkg/logging"
	"github.com/go-api-users/internal/pkg/password"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}
	slog.Info("migrations applied")

	if cfg.SeedAdminEmail == "" {
		return
	}
	if err := seedAdmin(ctx, cfg); err != nil {
		slog.Error("seeding admin failed", "email", cfg.SeedAdminEmail, "err", err)
		os.Exit(1)
	}
}

func seedAdmin(ctx context.Context, cfg *config.Config) error {
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := user.NewService(user.ServiceDeps{
		UserRepo:    postgres.NewUserRepo(pool),
		SessionRepo: postgres.NewSessionRepo(pool),
		Hasher:      password.NewHasher(cfg.Auth.BcryptCost),
	})
	return user.SeedAdmin(ctx, svc, cfg.SeedAdminEmail, cfg.SeedAdminPassword, cfg.AppName)
}
