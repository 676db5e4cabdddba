// Package redisstore keeps sessions in Redis. Selected with SESSION_STORE=redis
// so sessions expire on their own while users stay in the primary store.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-users/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix     = "session:"
	userSessionPrefix = "user_sessions:"
)

// SessionRepo stores each session as JSON under session:<id> and indexes the
// ids of a user in the set user_sessions:<user id>.
type SessionRepo struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewSessionRepo(rdb redis.UniversalClient) *SessionRepo {
	return &SessionRepo{rdb: rdb, now: time.Now}
}

// Connect parses url, connects and pings within 5 seconds.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func sessionKey(id string) string     { return sessionPrefix + id }
func userSessionsKey(id string) string { return userSessionPrefix + id }

// ttl returns the key lifetime for s. Zero means no expiry.
func (r *SessionRepo) ttl(s *domain.Session) (time.Duration, error) {
	if s.ExpiresAt.IsZero() {
		return 0, nil
	}
	d := s.ExpiresAt.Sub(r.now())
	if d <= 0 {
		return 0, fmt.Errorf("session already expired: %w", domain.ErrBadRequest)
	}
	return d, nil
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	cp := *s
	cp.User = nil
	data, err := json.Marshal(record(cp))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl, err := r.ttl(&cp)
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetNX(ctx, sessionKey(cp.SessionID), data, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session exists: %w", domain.ErrConflict)
	}
	return r.rdb.SAdd(ctx, userSessionsKey(cp.UserID), cp.SessionID).Err()
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return r.get(ctx, r.rdb, sessionID)
}

// Update applies updates under WATCH so concurrent writers cannot interleave
// a read-modify-write of the same session.
func (r *SessionRepo) Update(ctx context.Context, sessionID string, updates map[string]any) error {
	key := sessionKey(sessionID)
	return r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		s, err := r.get(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := domain.ApplySessionUpdates(s, updates); err != nil {
			return err
		}
		s.UpdatedAt = r.now().UTC()
		data, err := json.Marshal(record(*s))
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		ttl, err := r.ttl(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)
}

func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	s, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, userSessionsKey(s.UserID), sessionID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *SessionRepo) DeleteByUser(ctx context.Context, userID, exceptSessionID string) error {
	setKey := userSessionsKey(userID)
	ids, err := r.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	for _, id := range ids {
		if id == exceptSessionID {
			continue
		}
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, setKey, id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// ListByUser returns the ids of the user's live sessions and prunes index
// entries whose session key has expired.
func (r *SessionRepo) ListByUser(ctx context.Context, userID string) ([]string, error) {
	setKey := userSessionsKey(userID)
	ids, err := r.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, err
	}
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := r.rdb.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			r.rdb.SRem(ctx, setKey, id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

func (r *SessionRepo) get(ctx context.Context, c redis.Cmdable, sessionID string) (*domain.Session, error) {
	data, err := c.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s := rec.session()
	return &s, nil
}

// sessionRecord is the stored form. domain.Session hides its secrets from JSON.
type sessionRecord struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Hash         string    `json:"hash"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func record(s domain.Session) sessionRecord {
	return sessionRecord{
		SessionID:    s.SessionID,
		UserID:       s.UserID,
		Hash:         s.Hash,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (rec sessionRecord) session() domain.Session {
	return domain.Session{
		SessionID:    rec.SessionID,
		UserID:       rec.UserID,
		Hash:         rec.Hash,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}
