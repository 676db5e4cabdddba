package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-api-users/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*SessionRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSessionRepo(rdb), mr
}

func session(id, userID string) *domain.Session {
	return &domain.Session{
		SessionID: id,
		UserID:    userID,
		Hash:      "h-" + id,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestCreateGet_RoundTripKeepsSecrets(t *testing.T) {
	repo, mr := newRepo(t)
	ctx := context.Background()
	s := session("s1", "u1")
	s.RefreshToken = "rt"

	require.NoError(t, repo.Create(ctx, s))
	got, err := repo.Get(ctx, "s1")

	require.NoError(t, err)
	assert.Equal(t, "h-s1", got.Hash)
	assert.Equal(t, "rt", got.RefreshToken)
	assert.True(t, mr.TTL(sessionKey("s1")) > 59*time.Minute)
}

func TestCreate_Duplicate(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, session("s1", "u1")))

	err := repo.Create(ctx, session("s1", "u1"))
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestGet_ExpiresWithTTL(t *testing.T) {
	repo, mr := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, session("s1", "u1")))

	mr.FastForward(2 * time.Hour)

	_, err := repo.Get(ctx, "s1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	ids, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUpdate_RotatesHashAndExtendsTTL(t *testing.T) {
	repo, mr := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, session("s1", "u1")))

	require.NoError(t, repo.Update(ctx, "s1", map[string]any{
		domain.FieldHash:      "rotated",
		domain.FieldExpiresAt: time.Now().Add(48 * time.Hour),
	}))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Hash)
	assert.True(t, mr.TTL(sessionKey("s1")) > 47*time.Hour)
}

func TestUpdate_Unknown(t *testing.T) {
	repo, _ := newRepo(t)
	err := repo.Update(context.Background(), "nope", map[string]any{domain.FieldHash: "x"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDelete(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, session("s1", "u1")))

	require.NoError(t, repo.Delete(ctx, "s1"))
	assert.True(t, errors.Is(repo.Delete(ctx, "s1"), domain.ErrNotFound))
}

func TestDeleteByUser_KeepsException(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, repo.Create(ctx, session(id, "u1")))
	}
	require.NoError(t, repo.Create(ctx, session("other", "u2")))

	require.NoError(t, repo.DeleteByUser(ctx, "u1", "s2"))

	ids, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, ids)
	_, err = repo.Get(ctx, "other")
	assert.NoError(t, err)
}
