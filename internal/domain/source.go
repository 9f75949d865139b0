package domain

import "time"

// SourceType describes how a piece of knowledge entered the system.
type SourceType string

const (
	SourceTypeManual    SourceType = "manual"
	SourceTypeInference SourceType = "inference"
	SourceTypeImport    SourceType = "import"
)

// Source records the provenance of a knowledge entity.
type Source struct {
	Type      SourceType `json:"type"`
	Reference string     `json:"reference,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// isValidSourceType checks if a SourceType is valid
func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeManual, SourceTypeInference, SourceTypeImport:
		return true
	}
	return false
}
