package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/pkg/id"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

type Service interface {
	Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	List(ctx context.Context, f domain.UserFilter) ([]domain.User, int, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]any) error
	SoftDelete(ctx context.Context, userID string) error
	List(ctx context.Context, f domain.UserFilter) ([]domain.User, int, error)
}

type sessionStore interface {
	DeleteByUser(ctx context.Context, userID, exceptSessionID string) error
}

type passwordHasher interface {
	Hash(plain string) (string, error)
}

type ServiceDeps struct {
	UserRepo    userStore
	SessionRepo sessionStore
	Hasher      passwordHasher
}

type service struct {
	repo        userStore
	sessionRepo sessionStore
	hasher      passwordHasher
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:        deps.UserRepo,
		sessionRepo: deps.SessionRepo,
		hasher:      deps.Hasher,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email := domain.NormalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInternal)
	}
	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Bio:          req.Bio,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	return s.repo.List(ctx, Paginate(f))
}

// Paginate applies the default page and page size and caps the limit.
func Paginate(f domain.UserFilter) domain.UserFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return f
}

// Get returns an active user. Soft-deleted users are reported as not found.
func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Active() {
		return nil, fmt.Errorf("user deleted: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := make(map[string]any)
	if req.Email != nil {
		email := domain.NormalizeEmail(*req.Email)
		if email != u.Email {
			if err := s.ensureEmailFree(ctx, email, userID); err != nil {
				return nil, err
			}
			updates[domain.FieldEmail] = email
		}
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, domain.ErrInternal)
		}
		updates[domain.FieldPasswordHash] = hash
	}
	if req.FirstName != nil {
		updates[domain.FieldFirstName] = *req.FirstName
	}
	if req.LastName != nil {
		updates[domain.FieldLastName] = *req.LastName
	}
	if req.Bio != nil {
		updates[domain.FieldBio] = *req.Bio
	}
	if req.Role != nil {
		updates[domain.FieldRole] = *req.Role
	}
	if len(updates) == 0 {
		return u, nil
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

// Delete soft-deletes the user and ends all of their sessions.
func (s *service) Delete(ctx context.Context, userID string) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByUser(ctx, userID, ""); err != nil {
		slog.Warn("failed to remove sessions of deleted user", "user_id", userID, "err", err)
	}
	return nil
}

// ensureEmailFree fails with ErrConflict when email belongs to a user other than ownerID.
func (s *service) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.UserID != ownerID {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	return nil
}
