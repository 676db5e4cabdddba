package domain

import "time"

// Purposes of signed verification tokens. A token is only accepted for the
// purpose it was issued for.
const (
	PurposeConfirmEmail  = "confirm-email"
	PurposeResetPassword = "reset-password"
)

// Verification is the payload of a signed, stateless verification token.
// NewEmail is set only for email-change confirmations.
type Verification struct {
	Purpose   string
	UserID    string
	NewEmail  string
	ExpiresAt time.Time
}
