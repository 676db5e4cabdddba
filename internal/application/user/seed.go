package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-api-users/internal/domain"
)

// SeedAdmin creates the first admin account. An email that is already
// registered is left untouched and is not an error.
func SeedAdmin(ctx context.Context, svc Service, email, password, lastName string) error {
	u, err := svc.Create(ctx, domain.CreateUserRequest{
		Email:     email,
		Password:  password,
		FirstName: "Admin",
		LastName:  lastName,
		Role:      domain.RoleAdmin,
	})
	if errors.Is(err, domain.ErrConflict) {
		slog.Info("admin seed skipped, email already registered", "email", domain.NormalizeEmail(email))
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("admin seeded", "user_id", u.UserID, "email", u.Email)
	return nil
}
