package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-api-users/internal/application/session"
	"github.com/go-api-users/internal/application/user"
	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/domain"
	jwtinfra "github.com/go-api-users/internal/infrastructure/jwt"
	"github.com/go-api-users/internal/infrastructure/memory"
	"github.com/go-api-users/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// outbox records the last token mailed to each address.
type outbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (o *outbox) put(to, hash string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last[to] = hash
	return nil
}

func (o *outbox) UserSignUp(_ context.Context, to, hash string) error { return o.put(to, hash) }
func (o *outbox) ForgotPassword(_ context.Context, to, hash string, _ time.Time) error {
	return o.put(to, hash)
}
func (o *outbox) ConfirmNewEmail(_ context.Context, to, hash string) error { return o.put(to, hash) }

func (o *outbox) token(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last[to]
}

type workflow struct {
	svc      Service
	users    *memory.UserRepo
	sessions *memory.SessionRepo
	mail     *outbox
	hasher   *password.Hasher
}

func authConfig(confirmTTL time.Duration) config.Auth {
	return config.Auth{
		AccessSecret: "a", AccessTTL: time.Minute,
		RefreshSecret: "r", RefreshTTL: time.Hour,
		ConfirmEmailSecret: "c", ConfirmEmailTTL: confirmTTL,
		ForgotSecret: "f", ForgotTTL: time.Hour,
	}
}

func newWorkflow(t *testing.T, cfg config.Auth) *workflow {
	t.Helper()
	provider, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)
	w := &workflow{
		users:    memory.NewUserRepo(),
		sessions: memory.NewSessionRepo(),
		mail:     &outbox{last: make(map[string]string)},
		hasher:   password.NewHasher(bcrypt.MinCost),
	}
	w.svc = NewService(ServiceDeps{
		UserRepo: w.users,
		Users:    user.NewService(user.ServiceDeps{UserRepo: w.users, SessionRepo: w.sessions, Hasher: w.hasher}),
		Sessions: session.NewService(session.ServiceDeps{Store: w.sessions}),
		Tokens:   provider,
		Mail:     w.mail,
		Hasher:   w.hasher,
	})
	return w
}

func (w *workflow) register(t *testing.T, email string) *domain.User {
	t.Helper()
	require.NoError(t, w.svc.Register(context.Background(), RegisterRequest{
		Email: email, Password: "Secret123", FirstName: "Ada", LastName: "Lovelace",
	}))
	u, err := w.users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

func TestWorkflow_ConfirmEmailSetsVerifiedAt(t *testing.T) {
	w := newWorkflow(t, authConfig(time.Hour))
	u := w.register(t, "a@x.com")
	assert.Nil(t, u.EmailVerifiedAt)

	require.NoError(t, w.svc.ConfirmEmail(context.Background(), w.mail.token("a@x.com")))

	got, err := w.users.Get(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.NotNil(t, got.EmailVerifiedAt)

	err = w.svc.ConfirmEmail(context.Background(), w.mail.token("a@x.com"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestWorkflow_ExpiredConfirmToken(t *testing.T) {
	w := newWorkflow(t, authConfig(-time.Minute))
	w.register(t, "a@x.com")

	err := w.svc.ConfirmEmail(context.Background(), w.mail.token("a@x.com"))
	assert.True(t, errors.Is(err, domain.ErrInvalidOrExpiredToken))
}

func TestWorkflow_ResetTokenCannotConfirmEmail(t *testing.T) {
	w := newWorkflow(t, authConfig(time.Hour))
	w.register(t, "a@x.com")
	require.NoError(t, w.svc.ForgotPassword(context.Background(), "a@x.com"))

	err := w.svc.ConfirmEmail(context.Background(), w.mail.token("a@x.com"))
	assert.True(t, errors.Is(err, domain.ErrInvalidOrExpiredToken))
}

func TestWorkflow_ResetPasswordReplacesHashAndDropsSessions(t *testing.T) {
	w := newWorkflow(t, authConfig(time.Hour))
	ctx := context.Background()
	u := w.register(t, "a@x.com")
	require.NoError(t, w.sessions.Create(ctx, &domain.Session{SessionID: "s1", UserID: u.UserID}))

	require.NoError(t, w.svc.ForgotPassword(ctx, "a@x.com"))
	require.NoError(t, w.svc.ResetPassword(ctx, w.mail.token("a@x.com"), "Brand-new1"))

	got, err := w.users.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.NoError(t, w.hasher.Compare(got.PasswordHash, "Brand-new1"))
	assert.Empty(t, w.sessions.ListByUser(u.UserID))
}

func TestWorkflow_EmailChangeRoundTrip(t *testing.T) {
	w := newWorkflow(t, authConfig(time.Hour))
	ctx := context.Background()
	u := w.register(t, "a@x.com")
	require.NoError(t, w.svc.ConfirmEmail(ctx, w.mail.token("a@x.com")))

	newEmail := "b@x.com"
	_, err := w.svc.UpdateMe(ctx, u.UserID, "", UpdateMeRequest{Email: &newEmail})
	require.NoError(t, err)

	require.NoError(t, w.svc.ConfirmNewEmail(ctx, w.mail.token(newEmail)))
	got, err := w.users.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, newEmail, got.Email)
	assert.Nil(t, got.EmailVerifiedAt)

	// the activation link mailed to the new address verifies it again
	require.NoError(t, w.svc.ConfirmEmail(ctx, w.mail.token(newEmail)))
}
