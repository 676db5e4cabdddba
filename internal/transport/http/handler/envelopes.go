package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-api-users/internal/application/session"
	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"errors,omitempty"`
}

// LoginEnvelope wraps the token pair together with the logged-in user.
type LoginEnvelope struct {
	session.Tokens
	User *UserView `json:"user"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	ID        string    `json:"id"`
	ExpiresAt int64     `json:"expires_at"`
	User      *UserView `json:"user"`
}

// UsersPage wraps paginated user list responses.
type UsersPage struct {
	Data        []*UserView `json:"data"`
	Total       int         `json:"total"`
	Page        int         `json:"page"`
	Limit       int         `json:"limit"`
	HasNextPage bool        `json:"has_next_page"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	return validate.Struct(dst)
}
