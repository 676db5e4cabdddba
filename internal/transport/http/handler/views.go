package handler

import (
	"context"
	"time"

	"github.com/go-api-users/internal/domain"
)

// photoURLs resolves the public URL of a user's photo.
type photoURLs interface {
	URL(ctx context.Context, u *domain.User) string
}

// UserView is the client-facing projection of a user. Secrets and storage
// keys never leave the service.
type UserView struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Bio             *string    `json:"bio"`
	Role            string     `json:"role"`
	Image           string     `json:"image"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	Created         time.Time  `json:"created"`
	Updated         time.Time  `json:"updated"`
}

func toUserView(ctx context.Context, photos photoURLs, u *domain.User) *UserView {
	if u == nil {
		return nil
	}
	v := &UserView{
		ID:              u.UserID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Bio:             u.Bio,
		Role:            u.Role,
		EmailVerifiedAt: u.EmailVerifiedAt,
		Created:         u.CreatedAt,
		Updated:         u.UpdatedAt,
	}
	if photos != nil {
		v.Image = photos.URL(ctx, u)
	}
	return v
}
