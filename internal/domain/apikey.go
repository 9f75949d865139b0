package domain

import (
	"fmt"
	"time"
)

// APIKey authenticates an owner against the HTTP API. The raw token is
// never stored; only its SHA-256 hash is.
type APIKey struct {
	ID        string
	OwnerID   string
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// ValidateAPIKey validates an APIKey instance
func ValidateAPIKey(k *APIKey) error {
	if k == nil {
		return fmt.Errorf("api key cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("api key ID is required")
	}

	if k.OwnerID == "" {
		return fmt.Errorf("api key OwnerID is required")
	}

	if k.Name == "" {
		return fmt.Errorf("api key Name is required")
	}

	if k.KeyHash == "" {
		return fmt.Errorf("api key KeyHash is required")
	}

	return nil
}
