package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-api-users/internal/domain"
)

// UserRepo is a mutex-guarded in-memory user store. It backs STORAGE_DRIVER=memory
// and the service tests.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]domain.User)}
}

func (r *UserRepo) Put(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.users {
		if other.Email == u.Email && other.UserID != u.UserID {
			return fmt.Errorf("email taken: %w", domain.ErrConflict)
		}
	}
	r.users[u.UserID] = *u
	return nil
}

func (r *UserRepo) Get(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

func (r *UserRepo) Update(_ context.Context, userID string, updates map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err := domain.ApplyUserUpdates(&u, updates); err != nil {
		return err
	}
	if email, ok := updates[domain.FieldEmail]; ok {
		for id, other := range r.users {
			if id != userID && other.Email == email {
				return fmt.Errorf("email taken: %w", domain.ErrConflict)
			}
		}
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[userID] = u
	return nil
}

func (r *UserRepo) SoftDelete(ctx context.Context, userID string) error {
	return r.Update(ctx, userID, map[string]any{domain.FieldDeletedAt: time.Now().UTC()})
}

func (r *UserRepo) List(_ context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	r.mu.RLock()
	all := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	r.mu.RUnlock()
	page, total := domain.FilterUsers(all, f)
	return page, total, nil
}
