package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-users/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var sessionColumns = map[string]bool{
	domain.FieldHash:         true,
	domain.FieldAccessToken:  true,
	domain.FieldRefreshToken: true,
	domain.FieldExpiresAt:    true,
}

type SessionRepo struct {
	db *pgxpool.Pool
}

func NewSessionRepo(db *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, hash, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, s.SessionID, s.UserID, s.Hash, s.AccessToken, s.RefreshToken, nullTime(s.ExpiresAt), s.CreatedAt, s.UpdatedAt)
	return mapError(err, "session")
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s domain.Session
	var expires *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT session_id, user_id, hash, access_token, refresh_token, expires_at, created_at, updated_at
		FROM sessions WHERE session_id = $1
	`, sessionID).Scan(&s.SessionID, &s.UserID, &s.Hash, &s.AccessToken, &s.RefreshToken, &expires, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if expires != nil {
		s.ExpiresAt = *expires
	}
	return &s, nil
}

func (r *SessionRepo) Update(ctx context.Context, sessionID string, updates map[string]any) error {
	q, args, err := buildUpdateSQL("sessions", "session_id", sessionColumns, updates, sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *SessionRepo) DeleteByUser(ctx context.Context, userID, exceptSessionID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND session_id <> $2`, userID, exceptSessionID)
	return err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
