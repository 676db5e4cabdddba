package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-api-users/internal/domain"
)

// SessionRepo is a mutex-guarded in-memory session store.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]domain.Session)}
}

func (r *SessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.SessionID]; ok {
		return fmt.Errorf("session exists: %w", domain.ErrConflict)
	}
	cp := *s
	cp.User = nil
	r.sessions[s.SessionID] = cp
	return nil
}

func (r *SessionRepo) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return &s, nil
}

func (r *SessionRepo) Update(_ context.Context, sessionID string, updates map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if err := domain.ApplySessionUpdates(&s, updates); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()
	r.sessions[sessionID] = s
	return nil
}

func (r *SessionRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *SessionRepo) DeleteByUser(_ context.Context, userID, exceptSessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID && id != exceptSessionID {
			delete(r.sessions, id)
		}
	}
	return nil
}

// ListByUser returns the ids of the user's sessions. Used by tests.
func (r *SessionRepo) ListByUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, s := range r.sessions {
		if s.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids
}
