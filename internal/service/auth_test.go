package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recallware/memspace/internal/domain"
)

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestIsValidAPIToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid", "mem_" + strings.Repeat("ab", 32), true},
		{"valid uppercase hex", "mem_" + strings.Repeat("AB", 32), true},
		{"wrong prefix", "ntx_" + strings.Repeat("ab", 32), false},
		{"too short", "mem_abcd", false},
		{"too long", "mem_" + strings.Repeat("ab", 33), false},
		{"non hex", "mem_" + strings.Repeat("zz", 32), false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAPIToken(tt.token))
		})
	}
}

func TestCreateAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("creates key and returns plaintext token once", func(t *testing.T) {
		repo := new(MockAPIKeyRepository)
		var storedHash string
		repo.On("Create", mock.Anything, mock.MatchedBy(func(key *domain.APIKey) bool {
			storedHash = key.KeyHash
			return key.OwnerID == "owner-1" && key.Name == "laptop"
		})).Return(nil)

		svc := NewAuthService(repo)
		token, key, err := svc.CreateAPIKey(ctx, "owner-1", "laptop")
		require.NoError(t, err)
		require.NotNil(t, key)

		assert.True(t, IsValidAPIToken(token))
		assert.Equal(t, hashToken(token), storedHash)
		assert.NotContains(t, storedHash, token)
		repo.AssertExpectations(t)
	})

	t.Run("requires owner and name", func(t *testing.T) {
		svc := NewAuthService(new(MockAPIKeyRepository))

		_, _, err := svc.CreateAPIKey(ctx, "", "laptop")
		require.Error(t, err)

		_, _, err = svc.CreateAPIKey(ctx, "owner-1", "")
		require.Error(t, err)
	})
}

func TestCreateAPIKeyWithToken(t *testing.T) {
	ctx := context.Background()
	token := "mem_" + strings.Repeat("cd", 32)

	t.Run("registers supplied token", func(t *testing.T) {
		repo := new(MockAPIKeyRepository)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(key *domain.APIKey) bool {
			return key.KeyHash == hashToken(token)
		})).Return(nil)

		svc := NewAuthService(repo)
		require.NoError(t, svc.CreateAPIKeyWithToken(ctx, "owner-1", "bootstrap", token))
		repo.AssertExpectations(t)
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		svc := NewAuthService(new(MockAPIKeyRepository))
		err := svc.CreateAPIKeyWithToken(ctx, "owner-1", "bootstrap", "not-a-token")
		require.Error(t, err)
	})
}

func TestValidateAPIKey(t *testing.T) {
	ctx := context.Background()
	token := "mem_" + strings.Repeat("ef", 32)

	t.Run("resolves owner for live key", func(t *testing.T) {
		repo := new(MockAPIKeyRepository)
		repo.On("GetByHash", mock.Anything, hashToken(token)).Return(&domain.APIKey{
			ID:      "key-1",
			OwnerID: "owner-1",
			KeyHash: hashToken(token),
		}, nil)

		svc := NewAuthService(repo)
		ownerID, err := svc.ValidateAPIKey(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "owner-1", ownerID)
	})

	t.Run("malformed token", func(t *testing.T) {
		svc := NewAuthService(new(MockAPIKeyRepository))
		_, err := svc.ValidateAPIKey(ctx, "garbage")
		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
	})

	t.Run("unknown token looks the same as malformed", func(t *testing.T) {
		repo := new(MockAPIKeyRepository)
		repo.On("GetByHash", mock.Anything, hashToken(token)).Return(nil, domain.ErrAPIKeyNotFound)

		svc := NewAuthService(repo)
		_, err := svc.ValidateAPIKey(ctx, token)
		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
	})

	t.Run("revoked key", func(t *testing.T) {
		revokedAt := time.Now().UTC()
		repo := new(MockAPIKeyRepository)
		repo.On("GetByHash", mock.Anything, hashToken(token)).Return(&domain.APIKey{
			ID:        "key-1",
			OwnerID:   "owner-1",
			KeyHash:   hashToken(token),
			RevokedAt: &revokedAt,
		}, nil)

		svc := NewAuthService(repo)
		_, err := svc.ValidateAPIKey(ctx, token)
		assert.ErrorIs(t, err, domain.ErrAPIKeyRevoked)
	})
}
