// Package session provides chat session stores. Sessions are
// self-contained JSON documents; every store round-trips them through
// their canonical JSON form.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/recallware/memspace/internal/domain"
)

// MemoryStore is a mutex-guarded in-memory session store. It is the
// default store and the one used in tests; sessions do not survive a
// restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ChatSession
}

// NewMemoryStore creates a new MemoryStore instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.ChatSession),
	}
}

// Get retrieves a session by ID
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return cloneSession(stored)
}

// Put stores a session, replacing any previous version
func (s *MemoryStore) Put(ctx context.Context, sess *domain.ChatSession) error {
	clone, err := cloneSession(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = clone
	return nil
}

// Delete removes a session; the bool reports whether it existed.
func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok, nil
}

// ListBySpace retrieves all sessions belonging to a space
func (s *MemoryStore) ListBySpace(ctx context.Context, spaceID string) ([]*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*domain.ChatSession
	for _, stored := range s.sessions {
		if stored.SpaceID != spaceID {
			continue
		}
		clone, err := cloneSession(stored)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, clone)
	}
	return sessions, nil
}

// PruneIdle removes sessions whose last update is older than the
// cutoff and returns how many were removed.
func (s *MemoryStore) PruneIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, stored := range s.sessions {
		if stored.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned
}

// cloneSession deep-copies a session through its canonical JSON form
// so callers never share message slices with the store.
func cloneSession(sess *domain.ChatSession) (*domain.ChatSession, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	var clone domain.ChatSession
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &clone, nil
}
