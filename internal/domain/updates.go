package domain

import (
	"fmt"
	"time"
)

// ApplyUserUpdates copies an update map onto u. Stores that keep whole records
// (memory, Redis) use it so every backend accepts the same field names.
func ApplyUserUpdates(u *User, updates map[string]any) error {
	for k, v := range updates {
		var ok bool
		switch k {
		case FieldEmail:
			u.Email, ok = v.(string)
		case FieldPasswordHash:
			u.PasswordHash, ok = v.(string)
		case FieldFirstName:
			u.FirstName, ok = v.(string)
		case FieldLastName:
			u.LastName, ok = v.(string)
		case FieldRole:
			u.Role, ok = v.(string)
		case FieldBio:
			u.Bio, ok = stringPtr(v)
		case FieldImage:
			u.Image, ok = stringPtr(v)
		case FieldEmailVerifiedAt:
			u.EmailVerifiedAt, ok = timePtr(v)
		case FieldDeletedAt:
			u.DeletedAt, ok = timePtr(v)
		case FieldUpdatedAt:
			var t *time.Time
			if t, ok = timePtr(v); ok && t != nil {
				u.UpdatedAt = *t
			}
		default:
			return fmt.Errorf("unknown user field %q: %w", k, ErrBadRequest)
		}
		if !ok {
			return fmt.Errorf("invalid value for user field %q: %w", k, ErrBadRequest)
		}
	}
	return nil
}

// ApplySessionUpdates copies an update map onto s.
func ApplySessionUpdates(s *Session, updates map[string]any) error {
	for k, v := range updates {
		var ok bool
		switch k {
		case FieldHash:
			s.Hash, ok = v.(string)
		case FieldAccessToken:
			s.AccessToken, ok = v.(string)
		case FieldRefreshToken:
			s.RefreshToken, ok = v.(string)
		case FieldExpiresAt, FieldUpdatedAt:
			var t *time.Time
			if t, ok = timePtr(v); ok && t != nil {
				if k == FieldExpiresAt {
					s.ExpiresAt = *t
				} else {
					s.UpdatedAt = *t
				}
			}
		default:
			return fmt.Errorf("unknown session field %q: %w", k, ErrBadRequest)
		}
		if !ok {
			return fmt.Errorf("invalid value for session field %q: %w", k, ErrBadRequest)
		}
	}
	return nil
}

func stringPtr(v any) (*string, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case string:
		return &x, true
	case *string:
		return x, true
	}
	return nil, false
}

func timePtr(v any) (*time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case time.Time:
		return &x, true
	case *time.Time:
		return x, true
	}
	return nil, false
}
