package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-api-users/internal/application/mail"
	"github.com/go-api-users/internal/application/session"
	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/infrastructure/dynamo"
	"github.com/go-api-users/internal/infrastructure/memory"
	"github.com/go-api-users/internal/infrastructure/postgres"
	"github.com/go-api-users/internal/infrastructure/redisstore"
	"github.com/go-api-users/internal/infrastructure/smtp"
	"github.com/go-api-users/internal/infrastructure/sns"
	"github.com/go-api-users/internal/transport/http/handler"
)

// userRepo is implemented by every storage driver.
type userRepo interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]any) error
	SoftDelete(ctx context.Context, userID string) error
	List(ctx context.Context, f domain.UserFilter) ([]domain.User, int, error)
}

type stores struct {
	users    userRepo
	sessions session.Store
	checks   map[string]handler.Check
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured storage driver, prepares its schema and
// optionally moves sessions to Redis.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{checks: map[string]handler.Check{}}
	switch cfg.StorageDriver {
	case config.DriverDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := dynamo.Bootstrap(ctx, client, cfg.DynamoTables); err != nil {
			return nil, err
		}
		s.checks["dynamodb"] = func(ctx context.Context) error {
			return dynamo.Ping(ctx, client, cfg.DynamoTables)
		}
		s.users = dynamo.NewUserRepo(client, cfg.DynamoTables.Users)
		s.sessions = dynamo.NewSessionRepo(client, cfg.DynamoTables.Sessions)
	case config.DriverPostgres:
		if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.checks["postgres"] = pool.Ping
		s.users = postgres.NewUserRepo(pool)
		s.sessions = postgres.NewSessionRepo(pool)
	case config.DriverMemory:
		slog.Warn("using in-memory storage, data is lost on restart")
		s.users = memory.NewUserRepo()
		s.sessions = memory.NewSessionRepo()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.SessionStore == "redis" {
		rdb, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = rdb.Close() })
		s.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		s.sessions = redisstore.NewSessionRepo(rdb)
	}
	return s, nil
}

func newMailSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (mail.Sender, error) {
	switch cfg.MailTransport {
	case "smtp":
		return smtp.NewMailer(cfg), nil
	case "sns":
		return sns.NewSender(ctx, cfg)
	case "log":
		return mail.LogSender{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
}
