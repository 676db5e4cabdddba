package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_JWT_SECRET", "access")
	t.Setenv("AUTH_REFRESH_SECRET", "refresh")
	t.Setenv("AUTH_CONFIRM_EMAIL_SECRET", "confirm")
	t.Setenv("AUTH_FORGOT_SECRET", "forgot")
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"15m": 15 * time.Minute,
		"1h":  time.Hour,
		"10d": 240 * time.Hour,
		" 3d": 72 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDuration("xd")
	assert.Error(t, err)
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_REFRESH_SECRET", "")
	t.Setenv("AUTH_CONFIRM_EMAIL_SECRET", "")
	t.Setenv("AUTH_FORGOT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "AUTH_JWT_SECRET is required")
	assert.ErrorContains(t, err, "AUTH_FORGOT_SECRET is required")
}

func TestLoad_Defaults(t *testing.T) {
	setSecrets(t)
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("AUTH_JWT_TOKEN_EXPIRES_IN", "30m")
	t.Setenv("FRONTEND_DOMAIN", "https://app.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverDynamo, cfg.StorageDriver)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, "https://app.example.com", cfg.FrontendDomain)
	assert.Equal(t, int64(2*1024*1024), cfg.Photo.MaxBytes)
	assert.Equal(t, []string{"image/jpeg", "image/png"}, cfg.Photo.AllowedTypes)
}

func TestLoad_PostgresRequiresURL(t *testing.T) {
	setSecrets(t)
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_UnknownSessionStore(t *testing.T) {
	setSecrets(t)
	t.Setenv("SESSION_STORE", "memcached")

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_STORE")
}

func TestLoad_SeedAdminNeedsBothValues(t *testing.T) {
	setSecrets(t)
	t.Setenv("SEED_ADMIN_EMAIL", "root@example.com")
	t.Setenv("SEED_ADMIN_PASSWORD", "")

	_, err := Load()
	assert.ErrorContains(t, err, "SEED_ADMIN_PASSWORD")

	t.Setenv("SEED_ADMIN_PASSWORD", "Secret123")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", cfg.SeedAdminEmail)
}
