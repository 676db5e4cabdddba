package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/pkg/password"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type HashRequest struct {
	Hash string `json:"hash" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Hash     string `json:"hash" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type UpdateMeRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,min=1"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Password    *string `json:"password" validate:"omitempty,min=6,max=72"`
	OldPassword *string `json:"old_password"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) error
	ConfirmEmail(ctx context.Context, hash string) error
	ConfirmNewEmail(ctx context.Context, hash string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, hash, newPassword string) error
	Me(ctx context.Context, userID string) (*domain.User, error)
	UpdateMe(ctx context.Context, userID, sessionID string, req UpdateMeRequest) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]any) error
}

type userCreator interface {
	Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
}

type sessionInvalidator interface {
	InvalidateOthers(ctx context.Context, userID, keepSessionID string) error
}

type verificationSigner interface {
	IssueVerification(v domain.Verification) (string, time.Time, error)
	ParseVerification(purpose, token string) (*domain.Verification, error)
}

type mailer interface {
	UserSignUp(ctx context.Context, to, hash string) error
	ForgotPassword(ctx context.Context, to, hash string, expires time.Time) error
	ConfirmNewEmail(ctx context.Context, to, hash string) error
}

type passwordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

type ServiceDeps struct {
	UserRepo userStore
	Users    userCreator
	Sessions sessionInvalidator
	Tokens   verificationSigner
	Mail     mailer
	Hasher   passwordHasher
	Now      func() time.Time
}

type service struct {
	repo     userStore
	users    userCreator
	sessions sessionInvalidator
	tokens   verificationSigner
	mail     mailer
	hasher   passwordHasher
	now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     deps.UserRepo,
		users:    deps.Users,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		mail:     deps.Mail,
		hasher:   deps.Hasher,
		now:      now,
	}
}

// Register creates an unverified user and mails the activation link.
func (s *service) Register(ctx context.Context, req RegisterRequest) error {
	u, err := s.users.Create(ctx, domain.CreateUserRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.RoleUser,
	})
	if err != nil {
		return err
	}
	return s.sendActivation(ctx, u.UserID, u.Email)
}

func (s *service) ConfirmEmail(ctx context.Context, hash string) error {
	v, err := s.tokens.ParseVerification(domain.PurposeConfirmEmail, hash)
	if err != nil {
		return err
	}
	if v.NewEmail != "" {
		return fmt.Errorf("email change token used for activation: %w", domain.ErrInvalidOrExpiredToken)
	}
	u, err := s.activeUser(ctx, v.UserID)
	if err != nil {
		return err
	}
	if u.EmailVerifiedAt != nil {
		return fmt.Errorf("email already verified: %w", domain.ErrNotFound)
	}
	return s.repo.Update(ctx, u.UserID, map[string]any{domain.FieldEmailVerifiedAt: s.now()})
}

// ConfirmNewEmail applies a pending email change. The new address starts
// unverified and receives a fresh activation link.
func (s *service) ConfirmNewEmail(ctx context.Context, hash string) error {
	v, err := s.tokens.ParseVerification(domain.PurposeConfirmEmail, hash)
	if err != nil {
		return err
	}
	if v.NewEmail == "" {
		return fmt.Errorf("token carries no new email: %w", domain.ErrInvalidOrExpiredToken)
	}
	u, err := s.activeUser(ctx, v.UserID)
	if err != nil {
		return err
	}
	email := domain.NormalizeEmail(v.NewEmail)
	if err := s.ensureEmailFree(ctx, email, u.UserID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, u.UserID, map[string]any{
		domain.FieldEmail:           email,
		domain.FieldEmailVerifiedAt: nil,
	}); err != nil {
		return err
	}
	return s.sendActivation(ctx, u.UserID, email)
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if !u.Active() {
		return fmt.Errorf("user deleted: %w", domain.ErrNotFound)
	}
	token, expires, err := s.tokens.IssueVerification(domain.Verification{
		Purpose: domain.PurposeResetPassword,
		UserID:  u.UserID,
	})
	if err != nil {
		return err
	}
	return s.mail.ForgotPassword(ctx, u.Email, token, expires)
}

// ResetPassword stores the new password hash and ends every session of the user.
func (s *service) ResetPassword(ctx context.Context, hash, newPassword string) error {
	v, err := s.tokens.ParseVerification(domain.PurposeResetPassword, hash)
	if err != nil {
		return err
	}
	u, err := s.activeUser(ctx, v.UserID)
	if err != nil {
		return err
	}
	pwHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInternal)
	}
	if err := s.repo.Update(ctx, u.UserID, map[string]any{domain.FieldPasswordHash: pwHash}); err != nil {
		return err
	}
	return s.sessions.InvalidateOthers(ctx, u.UserID, "")
}

func (s *service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.activeUser(ctx, userID)
}

// UpdateMe applies a self-service profile update. A password change needs the
// old password and ends every other session; an email change is only mailed
// for confirmation.
func (s *service) UpdateMe(ctx context.Context, userID, sessionID string, req UpdateMeRequest) (*domain.User, error) {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := make(map[string]any)

	passwordChanged := false
	if req.Password != nil {
		if req.OldPassword == nil || *req.OldPassword == "" {
			return nil, fmt.Errorf("old password required: %w", domain.ErrInvalidCredential)
		}
		if err := s.hasher.Compare(u.PasswordHash, *req.OldPassword); err != nil {
			if errors.Is(err, password.ErrMismatch) {
				return nil, fmt.Errorf("incorrect old password: %w", domain.ErrInvalidCredential)
			}
			return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidCredential)
		}
		pwHash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, domain.ErrInternal)
		}
		updates[domain.FieldPasswordHash] = pwHash
		passwordChanged = true
	}

	if req.Email != nil {
		email := domain.NormalizeEmail(*req.Email)
		if email != u.Email {
			if err := s.ensureEmailFree(ctx, email, u.UserID); err != nil {
				return nil, err
			}
			token, _, err := s.tokens.IssueVerification(domain.Verification{
				Purpose:  domain.PurposeConfirmEmail,
				UserID:   u.UserID,
				NewEmail: email,
			})
			if err != nil {
				return nil, err
			}
			if err := s.mail.ConfirmNewEmail(ctx, email, token); err != nil {
				return nil, err
			}
		}
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
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, u.UserID, updates); err != nil {
			return nil, err
		}
	}
	if passwordChanged {
		if err := s.sessions.InvalidateOthers(ctx, u.UserID, sessionID); err != nil {
			return nil, err
		}
	}
	return s.activeUser(ctx, u.UserID)
}

func (s *service) sendActivation(ctx context.Context, userID, email string) error {
	token, _, err := s.tokens.IssueVerification(domain.Verification{
		Purpose: domain.PurposeConfirmEmail,
		UserID:  userID,
	})
	if err != nil {
		return err
	}
	return s.mail.UserSignUp(ctx, email, token)
}

func (s *service) activeUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Active() {
		return nil, fmt.Errorf("user deleted: %w", domain.ErrNotFound)
	}
	return u, nil
}

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
