package domain

import (
	"fmt"
	"time"
)

// SpaceRules controls space-level behavior of the assistant.
type SpaceRules struct {
	AllowHealthData    bool   `json:"allowHealthData"`
	CustomInstructions string `json:"customInstructions,omitempty"`
}

// Space is a tenant/topic boundary; all knowledge entities live inside one.
type Space struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Rules       SpaceRules
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSpace creates a new Space instance
func NewSpace(id, ownerID, name, description string, rules SpaceRules, createdAt time.Time) *Space {
	return &Space{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Rules:       rules,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// ValidateSpace validates a Space instance
func ValidateSpace(s *Space) error {
	if s == nil {
		return fmt.Errorf("space cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("space ID is required")
	}

	if s.OwnerID == "" {
		return fmt.Errorf("space OwnerID is required")
	}

	if s.Name == "" {
		return fmt.Errorf("space Name is required")
	}

	return nil
}
