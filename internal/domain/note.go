package domain

import (
	"fmt"
	"time"
)

// Importance represents how important an unverified note is
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// ImportanceRank orders importance levels for context selection; lower
// is more important.
func ImportanceRank(i Importance) int {
	switch i {
	case ImportanceHigh:
		return 0
	case ImportanceMedium:
		return 1
	default:
		return 2
	}
}

// Note represents an unverified observation. A note may be promoted to
// a Fact exactly once; a promoted note is superseded by its fact and
// must never be treated as active again.
type Note struct {
	ID               string
	SpaceID          string
	Content          string
	Category         string
	Importance       Importance
	Source           Source
	Tags             []string
	FactCandidate    bool
	PromotedToFactID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsPromoted reports whether the note has been promoted to a fact.
func (n *Note) IsPromoted() bool {
	return n.PromotedToFactID != ""
}

// ValidateNote validates a Note instance
func ValidateNote(n *Note) error {
	if n == nil {
		return fmt.Errorf("note cannot be nil")
	}

	if n.ID == "" {
		return fmt.Errorf("note ID is required")
	}

	if n.SpaceID == "" {
		return fmt.Errorf("note SpaceID is required")
	}

	if n.Content == "" {
		return fmt.Errorf("note Content is required")
	}

	if !IsValidImportance(n.Importance) {
		return fmt.Errorf("note Importance is invalid: %s", n.Importance)
	}

	if !isValidSourceType(n.Source.Type) {
		return fmt.Errorf("note source type is invalid: %s", n.Source.Type)
	}

	return nil
}

// IsValidImportance checks if an Importance is valid
func IsValidImportance(i Importance) bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	}
	return false
}
