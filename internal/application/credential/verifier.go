package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/pkg/password"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type passwordComparer interface {
	Compare(hash, plain string) error
}

// Verifier checks an email/password pair against the stored bcrypt hash.
type Verifier struct {
	users  userStore
	hasher passwordComparer
}

func NewVerifier(users userStore, hasher passwordComparer) *Verifier {
	return &Verifier{users: users, hasher: hasher}
}

// Verify returns the user owning email when password matches.
// Unknown or soft-deleted users yield domain.ErrNotFound; a missing or
// mismatching hash yields domain.ErrInvalidCredential.
func (v *Verifier) Verify(ctx context.Context, email, plain string) (*domain.User, error) {
	u, err := v.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if !u.Active() {
		return nil, fmt.Errorf("user deleted: %w", domain.ErrNotFound)
	}
	if err := v.hasher.Compare(u.PasswordHash, plain); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, fmt.Errorf("wrong password: %w", domain.ErrInvalidCredential)
		}
		return nil, fmt.Errorf("compare password: %v: %w", err, domain.ErrInvalidCredential)
	}
	return u, nil
}
