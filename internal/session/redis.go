package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/recallware/memspace/internal/domain"
)

const (
	sessionKeyPrefix = "session:"
	spaceIndexPrefix = "space_sessions:"
)

// RedisStore persists sessions as JSON documents in Redis, one key per
// session plus a per-space index set. An optional idle TTL lets Redis
// expire abandoned sessions on its own.
type RedisStore struct {
	client  *redis.Client
	idleTTL time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	IdleTTL  time.Duration
}

// NewRedisStore creates a new RedisStore and verifies the connection
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client:  client,
		idleTTL: cfg.IdleTTL,
	}, nil
}

// NewRedisStoreWithClient creates a RedisStore around an existing client (for testing)
func NewRedisStoreWithClient(client *redis.Client, idleTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		idleTTL: idleTTL,
	}
}

// Close closes the underlying Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get retrieves a session by ID
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess domain.ChatSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Put stores a session and registers it in its space's index set
func (s *RedisStore) Put(ctx context.Context, sess *domain.ChatSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+sess.ID, data, s.idleTTL)
	pipe.SAdd(ctx, spaceIndexPrefix+sess.SpaceID, sess.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete removes a session; the bool reports whether it existed.
func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+id)
	pipe.SRem(ctx, spaceIndexPrefix+sess.SpaceID, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return true, nil
}

// ListBySpace retrieves all live sessions belonging to a space.
// Index members whose session key has expired are removed from the
// index as they are encountered.
func (s *RedisStore) ListBySpace(ctx context.Context, spaceID string) ([]*domain.ChatSession, error) {
	ids, err := s.client.SMembers(ctx, spaceIndexPrefix+spaceID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read space index: %w", err)
	}

	var sessions []*domain.ChatSession
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.client.SRem(ctx, spaceIndexPrefix+spaceID, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}
