package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/pkg/id"
	"github.com/go-api-users/internal/pkg/token"
)

// Store persists sessions. Get, Update and Delete report domain.ErrNotFound
// for unknown ids. DeleteByUser removes every session of userID except
// exceptSessionID (empty = all).
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]any) error
	Delete(ctx context.Context, sessionID string) error
	DeleteByUser(ctx context.Context, userID, exceptSessionID string) error
}

type credentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type tokenIssuer interface {
	IssueAccess(userID, role, sessionID string) (string, time.Time, error)
	IssueRefresh(sessionID, hash string) (string, error)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Tokens is the pair handed to clients. ExpiresIn is the absolute access
// token expiry in Unix milliseconds.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type LoginResult struct {
	Tokens
	Session *domain.Session
	User    *domain.User
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Refresh(ctx context.Context, sessionID, hash string) (*Tokens, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	InvalidateOthers(ctx context.Context, userID, keepSessionID string) error
}

type ServiceDeps struct {
	Store      Store
	UserRepo   userStore
	Verifier   credentialVerifier
	Tokens     tokenIssuer
	SessionTTL time.Duration
	Now        func() time.Time
}

type service struct {
	store      Store
	users      userStore
	verifier   credentialVerifier
	tokens     tokenIssuer
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		store:      deps.Store,
		users:      deps.UserRepo,
		verifier:   deps.Verifier,
		tokens:     deps.Tokens,
		sessionTTL: deps.SessionTTL,
		now:        now,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.verifier.Verify(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	hash, err := token.NewSessionHash()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInternal)
	}
	now := s.now()
	sess := &domain.Session{
		SessionID: id.New(),
		UserID:    u.UserID,
		Hash:      hash,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	tokens, err := s.issue(u, sess.SessionID, hash)
	if err == nil {
		err = s.store.Update(ctx, sess.SessionID, map[string]any{
			domain.FieldAccessToken:  tokens.AccessToken,
			domain.FieldRefreshToken: tokens.RefreshToken,
		})
	}
	if err != nil {
		s.discard(ctx, sess.SessionID)
		return nil, err
	}
	sess.AccessToken = tokens.AccessToken
	sess.RefreshToken = tokens.RefreshToken
	sess.User = u
	return &LoginResult{Tokens: *tokens, Session: sess, User: u}, nil
}

func (s *service) Refresh(ctx context.Context, sessionID, hash string) (*Tokens, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session gone: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	now := s.now()
	if sess.Expired(now) {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	if !token.Equal(sess.Hash, hash) {
		return nil, fmt.Errorf("session hash mismatch: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session owner gone: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !u.Active() {
		return nil, fmt.Errorf("session owner deleted: %w", domain.ErrUnauthorized)
	}

	newHash, err := token.NewSessionHash()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInternal)
	}
	tokens, err := s.issue(u, sess.SessionID, newHash)
	if err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, sess.SessionID, map[string]any{
		domain.FieldHash:         newHash,
		domain.FieldAccessToken:  tokens.AccessToken,
		domain.FieldRefreshToken: tokens.RefreshToken,
		domain.FieldExpiresAt:    now.Add(s.sessionTTL),
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Logout deletes the session. Logging out an already removed session succeeds.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session gone: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if sess.Expired(s.now()) {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Active() {
		return nil, fmt.Errorf("user deleted: %w", domain.ErrNotFound)
	}
	sess.User = u
	return sess, nil
}

func (s *service) InvalidateOthers(ctx context.Context, userID, keepSessionID string) error {
	return s.store.DeleteByUser(ctx, userID, keepSessionID)
}

func (s *service) issue(u *domain.User, sessionID, hash string) (*Tokens, error) {
	access, exp, err := s.tokens.IssueAccess(u.UserID, u.Role, sessionID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(sessionID, hash)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh, ExpiresIn: exp.UnixMilli()}, nil
}

// discard removes a session that never received its tokens.
func (s *service) discard(ctx context.Context, sessionID string) {
	if err := s.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("failed to remove incomplete session", "session_id", sessionID, "err", err)
	}
}
