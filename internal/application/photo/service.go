package photo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/pkg/imaging"
	"github.com/google/uuid"
)

const keyPrefix = "profile-photos/"

type Service interface {
	Upload(ctx context.Context, userID string, r io.Reader) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
	URL(ctx context.Context, u *domain.User) string
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]any) error
}

type ServiceDeps struct {
	Objects    objectStore
	UserRepo   userStore
	Limits     config.Photo
	PublicURL  string
	PresignTTL time.Duration
}

type service struct {
	objects    objectStore
	users      userStore
	limits     config.Photo
	publicURL  string
	presignTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		objects:    deps.Objects,
		users:      deps.UserRepo,
		limits:     deps.Limits,
		publicURL:  deps.PublicURL,
		presignTTL: deps.PresignTTL,
	}
}

// Upload validates, optionally recompresses and stores a new profile photo,
// then replaces the user's previous one.
func (s *service) Upload(ctx context.Context, userID string, r io.Reader) (*domain.User, error) {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.limits.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %v: %w", err, domain.ErrBadRequest)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty photo: %w", domain.ErrBadRequest)
	}
	if int64(len(data)) > s.limits.MaxBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes: %w", s.limits.MaxBytes, domain.ErrBadRequest)
	}
	mt := mimetype.Detect(data)
	if !s.allowed(mt) {
		return nil, fmt.Errorf("photo type %s not allowed: %w", mt.String(), domain.ErrBadRequest)
	}
	contentType, ext := mt.String(), mt.Extension()
	if s.limits.Compress {
		compressed, err := imaging.CompressJPEG(data, s.limits.Quality)
		if err != nil {
			slog.Warn("photo compression failed, storing original", "user_id", userID, "type", contentType, "err", err)
		} else {
			data, contentType, ext = compressed, "image/jpeg", ".jpg"
		}
	}

	key := keyPrefix + uuid.NewString() + ext
	if _, err := s.objects.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, userID, map[string]any{domain.FieldImage: key}); err != nil {
		s.removeObject(ctx, key)
		return nil, err
	}
	if u.Image != nil && *u.Image != "" {
		s.removeObject(ctx, *u.Image)
	}
	u.Image = &key
	return u, nil
}

// Delete removes the user's photo. Users without a photo are left untouched.
func (s *service) Delete(ctx context.Context, userID string) error {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.Image == nil || *u.Image == "" {
		return nil
	}
	if err := s.users.Update(ctx, userID, map[string]any{domain.FieldImage: nil}); err != nil {
		return err
	}
	s.removeObject(ctx, *u.Image)
	return nil
}

// URL resolves the public URL of a user's photo, falling back to a generated avatar.
func (s *service) URL(ctx context.Context, u *domain.User) string {
	if u.Image == nil || *u.Image == "" {
		return AvatarURL(u)
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + *u.Image
	}
	signed, err := s.objects.PresignedURL(ctx, *u.Image, s.presignTTL)
	if err != nil {
		slog.Warn("failed to presign photo url", "user_id", u.UserID, "err", err)
		return AvatarURL(u)
	}
	return signed
}

// AvatarURL builds an initials avatar for users without a photo.
func AvatarURL(u *domain.User) string {
	q := url.Values{}
	q.Set("name", u.Initials())
	q.Set("color", "7F9CF5")
	q.Set("background", "EBF4FF")
	return "https://ui-avatars.com/api/?" + q.Encode()
}

func (s *service) allowed(mt *mimetype.MIME) bool {
	for _, t := range s.limits.AllowedTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

func (s *service) activeUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Active() {
		return nil, fmt.Errorf("user deleted: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (s *service) removeObject(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete photo object", "key", key, "err", err)
	}
}
