package domain

import "time"

// Storage attribute names used in session update maps.
const (
	FieldHash         = "hash"
	FieldAccessToken  = "access_token"
	FieldRefreshToken = "refresh_token"
	FieldExpiresAt    = "expires_at"
)

// Session is one logged-in device. Hash is the opaque secret embedded in the
// refresh token; rotating it invalidates every refresh token issued before.
type Session struct {
	SessionID    string    `json:"id" dynamodbav:"session_id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	Hash         string    `json:"-" dynamodbav:"hash"`
	AccessToken  string    `json:"-" dynamodbav:"access_token"`
	RefreshToken string    `json:"-" dynamodbav:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" dynamodbav:"expires_at"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
	User         *User     `json:"user,omitempty" dynamodbav:"-"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
