package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/telemetry"
)

// SessionStoreInterface defines the storage interface for chat
// sessions. Implementations live in internal/session.
type SessionStoreInterface interface {
	Get(ctx context.Context, id string) (*domain.ChatSession, error)
	Put(ctx context.Context, sess *domain.ChatSession) error
	Delete(ctx context.Context, id string) (bool, error)
	ListBySpace(ctx context.Context, spaceID string) ([]*domain.ChatSession, error)
}

// SessionService manages the chat session lifecycle: non-existent,
// active, renamed, deleted. A deleted session id is never resurrected;
// referencing one simply starts a fresh session.
type SessionService struct {
	store   SessionStoreInterface
	uuidGen UUIDGenerator
	now     func() time.Time
}

// NewSessionService creates a new SessionService instance
func NewSessionService(store SessionStoreInterface) *SessionService {
	return &SessionService{
		store:   store,
		uuidGen: &DefaultUUIDGenerator{},
		now:     time.Now,
	}
}

// NewSessionServiceWithDeps creates a SessionService with explicit dependencies (for testing)
func NewSessionServiceWithDeps(store SessionStoreInterface, uuidGen UUIDGenerator, now func() time.Time) *SessionService {
	return &SessionService{
		store:   store,
		uuidGen: uuidGen,
		now:     now,
	}
}

// CreateSession starts a new empty session in a space
func (s *SessionService) CreateSession(ctx context.Context, spaceID string) (*domain.ChatSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.CreateSession", telemetry.SpanAttributes{
		SpaceID:   spaceID,
		Operation: "create",
	})
	defer span.End()

	now := s.now().UTC()
	sess := &domain.ChatSession{
		ID:        s.uuidGen.NewString(),
		SpaceID:   spaceID,
		Messages:  []domain.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := domain.ValidateChatSession(sess); err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

// GetSession retrieves a session by ID
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	return s.store.Get(ctx, id)
}

// GetOrCreateSession resolves the session for a chat turn. An empty
// id, an unknown id, or an id belonging to a different space all yield
// a fresh session; a stale client reference must never read another
// space's history.
func (s *SessionService) GetOrCreateSession(ctx context.Context, spaceID, sessionID string) (*domain.ChatSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.GetOrCreateSession", telemetry.SpanAttributes{
		SpaceID:   spaceID,
		SessionID: sessionID,
		Operation: "get_or_create",
	})
	defer span.End()

	if sessionID == "" {
		return s.CreateSession(ctx, spaceID)
	}

	sess, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return s.CreateSession(ctx, spaceID)
	}
	if err != nil {
		return nil, err
	}

	if sess.SpaceID != spaceID {
		return s.CreateSession(ctx, spaceID)
	}

	return sess, nil
}

// ListSessions retrieves all sessions in a space, most recently
// updated first.
func (s *SessionService) ListSessions(ctx context.Context, spaceID string) ([]*domain.ChatSession, error) {
	sessions, err := s.store.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	return sessions, nil
}

// UpdateSession renames a session
func (s *SessionService) UpdateSession(ctx context.Context, sessionID, name string) (*domain.ChatSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.UpdateSession", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "update",
	})
	defer span.End()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Name = name
	sess.UpdatedAt = s.now().UTC()

	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

// DeleteSession removes a session. Deleting an unknown id is not an
// error; the bool reports whether anything was removed.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.DeleteSession", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "delete",
	})
	defer span.End()

	return s.store.Delete(ctx, sessionID)
}

// AppendMessage appends one turn to a session and persists it. The
// message id and timestamp are filled in when absent.
func (s *SessionService) AppendMessage(ctx context.Context, sessionID string, msg domain.ChatMessage) (*domain.ChatSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.AppendMessage", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "append_message",
	})
	defer span.End()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !domain.IsValidMessageRole(msg.Role) {
		return nil, domain.ErrInvalidMessageRole
	}

	now := s.now().UTC()
	if msg.ID == "" {
		msg.ID = s.uuidGen.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}

	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = now

	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

// GetChatHistory returns the ordered messages of a session
func (s *SessionService) GetChatHistory(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// ExportSession returns the canonical JSON document of a session.
// Importing that document elsewhere reproduces the session exactly.
func (s *SessionService) ExportSession(ctx context.Context, sessionID string) ([]byte, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to export session: %w", err)
	}
	return data, nil
}
