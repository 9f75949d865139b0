package domain

// ExtractedFact is a fact volunteered by the model inside a
// memory_extract block.
type ExtractedFact struct {
	Category   string     `json:"category"`
	Statement  string     `json:"statement"`
	Confidence Confidence `json:"confidence"`
	Tags       []string   `json:"tags,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// ExtractedNote is an observation volunteered by the model.
type ExtractedNote struct {
	Content    string     `json:"content"`
	Category   string     `json:"category,omitempty"`
	Importance Importance `json:"importance"`
	Tags       []string   `json:"tags,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// ExtractedProfileUpdate is a profile change volunteered by the model.
type ExtractedProfileUpdate struct {
	Category string       `json:"category"`
	Key      string       `json:"key"`
	Value    ProfileValue `json:"value"`
	Reason   string       `json:"reason,omitempty"`
}

// ExtractedMemory is the transient payload parsed from a model reply.
// It is consumed immediately to produce real Fact/Note/ProfileEntry
// records and retained only as ExtractedData on the triggering message
// for audit.
type ExtractedMemory struct {
	Facts          []ExtractedFact          `json:"facts"`
	Notes          []ExtractedNote          `json:"notes"`
	ProfileUpdates []ExtractedProfileUpdate `json:"profileUpdates"`
}

// IsEmpty reports whether the extraction carries no items at all.
func (m *ExtractedMemory) IsEmpty() bool {
	if m == nil {
		return true
	}
	return len(m.Facts) == 0 && len(m.Notes) == 0 && len(m.ProfileUpdates) == 0
}
