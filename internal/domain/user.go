package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Storage attribute names used in user update maps. The same names are used as
// DynamoDB attributes and PostgreSQL columns.
const (
	FieldEmail           = "email"
	FieldPasswordHash    = "password_hash"
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldBio             = "bio"
	FieldRole            = "role"
	FieldImage           = "image"
	FieldEmailVerifiedAt = "email_verified_at"
	FieldDeletedAt       = "deleted_at"
	FieldUpdatedAt       = "updated_at"
)

type User struct {
	UserID          string     `json:"id" dynamodbav:"user_id"`
	Email           string     `json:"email" dynamodbav:"email"`
	PasswordHash    string     `json:"-" dynamodbav:"password_hash"`
	FirstName       string     `json:"first_name" dynamodbav:"first_name"`
	LastName        string     `json:"last_name" dynamodbav:"last_name"`
	Bio             *string    `json:"bio" dynamodbav:"bio,omitempty"`
	Role            string     `json:"role" dynamodbav:"role"`
	Image           *string    `json:"-" dynamodbav:"image,omitempty"` // object key of the profile photo
	EmailVerifiedAt *time.Time `json:"email_verified_at" dynamodbav:"email_verified_at,omitempty"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Active reports whether the user has not been soft-deleted.
func (u *User) Active() bool { return u.DeletedAt == nil }

// Initials returns the first letter of the first and last name, used for generated avatars.
func (u *User) Initials() string {
	var b strings.Builder
	for _, s := range []string{u.FirstName, u.LastName} {
		if r := []rune(strings.TrimSpace(s)); len(r) > 0 {
			b.WriteRune(r[0])
		}
	}
	return strings.ToUpper(b.String())
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type CreateUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=6,max=72"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Role      string  `json:"role" validate:"omitempty,oneof=admin user"`
}

type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=6,max=72"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Role      *string `json:"role" validate:"omitempty,oneof=admin user"`
}

// UserFilter selects users for the admin listing.
type UserFilter struct {
	ExcludeUserID string
	Query         string
	Page          int
	Limit         int
}

// Match reports whether u passes the filter, ignoring pagination.
// Soft-deleted users never match.
func (f UserFilter) Match(u *User) bool {
	if !u.Active() || (f.ExcludeUserID != "" && u.UserID == f.ExcludeUserID) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, s := range []string{u.Email, u.FirstName, u.LastName} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// Offset returns the number of matching users to skip. It saturates at
// math.MaxInt instead of overflowing for absurd page numbers.
func (f UserFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// FilterUsers applies f to an unordered set of users: matching, newest first,
// then paginated. It returns the page and the total number of matches.
func FilterUsers(all []User, f UserFilter) ([]User, int) {
	matched := make([]User, 0, len(all))
	for i := range all {
		if f.Match(&all[i]) {
			matched = append(matched, all[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	start := f.Offset()
	if start >= total {
		return []User{}, total
	}
	end := total
	if f.Limit > 0 && f.Limit < total-start {
		end = start + f.Limit
	}
	return matched[start:end], total
}
