package domain

import (
	"fmt"
	"time"
)

// Confidence represents how strongly a fact is believed
type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVerified Confidence = "verified"
)

// ConfidenceRank orders confidence levels for context selection;
// lower is stronger so verified facts always survive truncation.
func ConfidenceRank(c Confidence) int {
	switch c {
	case ConfidenceVerified:
		return 0
	case ConfidenceHigh:
		return 1
	case ConfidenceMedium:
		return 2
	default:
		return 3
	}
}

// Fact represents a verified or inferred statement about the space
// owner. Identity is immutable; statement, confidence, and tags may
// change.
type Fact struct {
	ID             string
	SpaceID        string
	Category       string
	Statement      string
	Confidence     Confidence
	Source         Source
	Tags           []string
	RelatedFactIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidateFact validates a Fact instance
func ValidateFact(f *Fact) error {
	if f == nil {
		return fmt.Errorf("fact cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("fact ID is required")
	}

	if f.SpaceID == "" {
		return fmt.Errorf("fact SpaceID is required")
	}

	if f.Category == "" {
		return fmt.Errorf("fact Category is required")
	}

	if f.Statement == "" {
		return fmt.Errorf("fact Statement is required")
	}

	if !IsValidConfidence(f.Confidence) {
		return fmt.Errorf("fact Confidence is invalid: %s", f.Confidence)
	}

	if !isValidSourceType(f.Source.Type) {
		return fmt.Errorf("fact source type is invalid: %s", f.Source.Type)
	}

	return nil
}

// IsValidConfidence checks if a Confidence is valid
func IsValidConfidence(c Confidence) bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh, ConfidenceVerified:
		return true
	}
	return false
}
