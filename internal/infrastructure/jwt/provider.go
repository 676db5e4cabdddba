package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access token payload.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// RefreshClaims is the refresh token payload. Hash must equal the session's
// current secret for the token to be honoured.
type RefreshClaims struct {
	SessionID string `json:"session_id"`
	Hash      string `json:"hash"`
	jwt.RegisteredClaims
}

type verificationClaims struct {
	UserID   string `json:"user_id"`
	NewEmail string `json:"new_email,omitempty"`
	jwt.RegisteredClaims
}

type key struct {
	secret []byte
	ttl    time.Duration
}

// Provider signs and verifies HS256 JWTs. Access, refresh, email confirmation
// and password reset tokens each use their own secret.
type Provider struct {
	access  key
	refresh key
	confirm key
	forgot  key
}

func NewProvider(cfg config.Auth) (*Provider, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.ConfirmEmailSecret == "" || cfg.ForgotSecret == "" {
		return nil, errors.New("jwt: all token secrets must be set")
	}
	return &Provider{
		access:  key{[]byte(cfg.AccessSecret), cfg.AccessTTL},
		refresh: key{[]byte(cfg.RefreshSecret), cfg.RefreshTTL},
		confirm: key{[]byte(cfg.ConfirmEmailSecret), cfg.ConfirmEmailTTL},
		forgot:  key{[]byte(cfg.ForgotSecret), cfg.ForgotTTL},
	}, nil
}

// IssueAccess returns a signed access token and its absolute expiry.
func (p *Provider) IssueAccess(userID, role, sessionID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(p.access.ttl)
	claims := Claims{
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: registered(now, exp),
	}
	signed, err := sign(claims, p.access.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh returns a signed refresh token bound to a session secret.
func (p *Provider) IssueRefresh(sessionID, hash string) (string, error) {
	now := time.Now()
	return sign(RefreshClaims{
		SessionID:        sessionID,
		Hash:             hash,
		RegisteredClaims: registered(now, now.Add(p.refresh.ttl)),
	}, p.refresh.secret)
}

// ParseAccess verifies an access token.
func (p *Provider) ParseAccess(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenStr, claims, p.access.secret); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("access token missing subject: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token.
func (p *Provider) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(tokenStr, claims, p.refresh.secret); err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.Hash == "" {
		return nil, fmt.Errorf("refresh token missing session: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}

// IssueVerification signs a single-purpose verification token. The purpose is
// carried as the audience and selects the secret and lifetime.
func (p *Provider) IssueVerification(v domain.Verification) (string, time.Time, error) {
	k, err := p.purposeKey(v.Purpose)
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	exp := now.Add(k.ttl)
	rc := registered(now, exp)
	rc.Audience = jwt.ClaimStrings{v.Purpose}
	signed, err := sign(verificationClaims{UserID: v.UserID, NewEmail: v.NewEmail, RegisteredClaims: rc}, k.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseVerification verifies a token issued for purpose. Any failure is
// reported as domain.ErrInvalidOrExpiredToken.
func (p *Provider) ParseVerification(purpose, tokenStr string) (*domain.Verification, error) {
	k, err := p.purposeKey(purpose)
	if err != nil {
		return nil, err
	}
	claims := &verificationClaims{}
	_, err = jwt.ParseWithClaims(tokenStr, claims, keyFunc(k.secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(purpose),
	)
	if err != nil || claims.UserID == "" {
		return nil, fmt.Errorf("%s token: %w", purpose, domain.ErrInvalidOrExpiredToken)
	}
	v := &domain.Verification{Purpose: purpose, UserID: claims.UserID, NewEmail: claims.NewEmail}
	if claims.ExpiresAt != nil {
		v.ExpiresAt = claims.ExpiresAt.Time
	}
	return v, nil
}

func (p *Provider) purposeKey(purpose string) (key, error) {
	switch purpose {
	case domain.PurposeConfirmEmail:
		return p.confirm, nil
	case domain.PurposeResetPassword:
		return p.forgot, nil
	}
	return key{}, fmt.Errorf("unknown token purpose %q: %w", purpose, domain.ErrInternal)
}

func registered(now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        id.New(),
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %v: %w", err, domain.ErrInternal)
	}
	return signed, nil
}

func parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrUnauthorized)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	return nil
}

func keyFunc(secret []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}
}
