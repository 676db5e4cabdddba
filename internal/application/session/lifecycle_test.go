package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-api-users/internal/application/credential"
	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/domain"
	jwtinfra "github.com/go-api-users/internal/infrastructure/jwt"
	"github.com/go-api-users/internal/infrastructure/memory"
	"github.com/go-api-users/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// These tests run the coordinator against the in-memory stores and the real
// token provider.

type lifecycle struct {
	svc      Service
	sessions *memory.SessionRepo
	tokens   *jwtinfra.Provider
}

func newLifecycle(t *testing.T) *lifecycle {
	t.Helper()
	hasher := password.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("Secret123")
	require.NoError(t, err)

	users := memory.NewUserRepo()
	require.NoError(t, users.Put(context.Background(), &domain.User{
		UserID: "u1", Email: "a@x.com", PasswordHash: hash, Role: domain.RoleUser,
	}))
	provider, err := jwtinfra.NewProvider(config.Auth{
		AccessSecret: "a", AccessTTL: time.Minute,
		RefreshSecret: "r", RefreshTTL: time.Hour,
		ConfirmEmailSecret: "c", ConfirmEmailTTL: time.Hour,
		ForgotSecret: "f", ForgotTTL: time.Hour,
	})
	require.NoError(t, err)
	sessions := memory.NewSessionRepo()
	return &lifecycle{
		svc: NewService(ServiceDeps{
			Store:      sessions,
			UserRepo:   users,
			Verifier:   credential.NewVerifier(users, hasher),
			Tokens:     provider,
			SessionTTL: time.Hour,
		}),
		sessions: sessions,
		tokens:   provider,
	}
}

func (l *lifecycle) refresh(t *testing.T, refreshToken string) (*Tokens, error) {
	t.Helper()
	claims, err := l.tokens.ParseRefresh(refreshToken)
	require.NoError(t, err)
	return l.svc.Refresh(context.Background(), claims.SessionID, claims.Hash)
}

func TestLifecycle_RefreshTokenPointsAtStoredHash(t *testing.T) {
	l := newLifecycle(t)
	res, err := l.svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "Secret123"})
	require.NoError(t, err)

	claims, err := l.tokens.ParseRefresh(res.RefreshToken)
	require.NoError(t, err)
	stored, err := l.sessions.Get(context.Background(), claims.SessionID)
	require.NoError(t, err)
	assert.Equal(t, stored.Hash, claims.Hash)
	assert.Equal(t, res.RefreshToken, stored.RefreshToken)
}

func TestLifecycle_WrongPasswordCreatesNoSession(t *testing.T) {
	l := newLifecycle(t)
	_, err := l.svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "nope"})

	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
	assert.Empty(t, l.sessions.ListByUser("u1"))
}

func TestLifecycle_RotationInvalidatesPreviousRefreshToken(t *testing.T) {
	l := newLifecycle(t)
	res, err := l.svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "Secret123"})
	require.NoError(t, err)

	rotated, err := l.refresh(t, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, rotated.RefreshToken)

	_, err = l.refresh(t, res.RefreshToken)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = l.refresh(t, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestLifecycle_LogoutThenRefreshFails(t *testing.T) {
	l := newLifecycle(t)
	res, err := l.svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "Secret123"})
	require.NoError(t, err)

	require.NoError(t, l.svc.Logout(context.Background(), res.Session.SessionID))
	_, err = l.refresh(t, res.RefreshToken)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLifecycle_InvalidateOthersKeepsCurrent(t *testing.T) {
	l := newLifecycle(t)
	ctx := context.Background()
	var results []*LoginResult
	for i := 0; i < 3; i++ {
		res, err := l.svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "Secret123"})
		require.NoError(t, err)
		results = append(results, res)
	}

	require.NoError(t, l.svc.InvalidateOthers(ctx, "u1", results[1].Session.SessionID))

	assert.Equal(t, []string{results[1].Session.SessionID}, l.sessions.ListByUser("u1"))
	_, err := l.refresh(t, results[0].RefreshToken)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	_, err = l.refresh(t, results[1].RefreshToken)
	assert.NoError(t, err)
}
