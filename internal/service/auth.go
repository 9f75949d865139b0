package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/recallware/memspace/internal/domain"
)

const apiKeyPrefix = "mem_"

// APIKeyRepositoryInterface defines the repository interface for API key persistence
type APIKeyRepositoryInterface interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// AuthService issues and validates bearer API keys. Only the sha256
// hash of a token is stored; the plaintext is shown once at creation.
type AuthService struct {
	keyRepo APIKeyRepositoryInterface
	uuidGen UUIDGenerator
}

// NewAuthService creates a new AuthService instance
func NewAuthService(keyRepo APIKeyRepositoryInterface) *AuthService {
	return &AuthService{
		keyRepo: keyRepo,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewAuthServiceWithUUIDGen creates a new AuthService with custom UUID generator (for testing)
func NewAuthServiceWithUUIDGen(keyRepo APIKeyRepositoryInterface, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		keyRepo: keyRepo,
		uuidGen: uuidGen,
	}
}

// CreateAPIKey mints a new key for an owner and returns the plaintext
// token. This is the only time the token is available.
func (s *AuthService) CreateAPIKey(ctx context.Context, ownerID, name string) (string, *domain.APIKey, error) {
	if ownerID == "" {
		return "", nil, domain.NewDomainError(domain.ErrCodeValidation, "owner ID is required")
	}
	if name == "" {
		return "", nil, domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		KeyHash:   hashToken(token),
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return "", nil, err
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return "", nil, err
	}

	return token, key, nil
}

// CreateAPIKeyWithToken registers a caller-supplied token, used to
// bootstrap a deployment from configuration.
func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, ownerID, name, token string) error {
	if ownerID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "owner ID is required")
	}
	if name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected mem_<64 hex chars>)")
	}

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		KeyHash:   hashToken(token),
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return err
	}

	return s.keyRepo.Create(ctx, key)
}

// ValidateAPIKey resolves a bearer token to its owner id. Unknown and
// malformed tokens are indistinguishable to the caller.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if !IsValidAPIToken(token) {
		return "", domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return "", domain.ErrInvalidAPIKey
		}
		return "", err
	}

	if key.IsRevoked() {
		return "", domain.ErrAPIKeyRevoked
	}

	return key.OwnerID, nil
}

// GetAPIKey retrieves a key by ID
func (s *AuthService) GetAPIKey(ctx context.Context, keyID string) (*domain.APIKey, error) {
	return s.keyRepo.GetByID(ctx, keyID)
}

// RevokeAPIKey marks a key as revoked; subsequent validation fails
func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keyRepo.Revoke(ctx, keyID)
}

// ListAPIKeys retrieves all keys belonging to an owner
func (s *AuthService) ListAPIKeys(ctx context.Context, ownerID string) ([]*domain.APIKey, error) {
	if ownerID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "owner ID is required")
	}

	return s.keyRepo.ListByOwner(ctx, ownerID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// IsValidAPIToken checks the mem_<64 hex chars> token format
func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
