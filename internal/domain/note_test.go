package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportanceRank(t *testing.T) {
	tests := []struct {
		name       string
		importance Importance
		expected   int
	}{
		{"High", ImportanceHigh, 0},
		{"Medium", ImportanceMedium, 1},
		{"Low", ImportanceLow, 2},
		{"Unknown treated as low", Importance("mild"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ImportanceRank(tt.importance))
		})
	}
}

func TestNoteIsPromoted(t *testing.T) {
	note := &Note{ID: "n1"}
	assert.False(t, note.IsPromoted())

	note.PromotedToFactID = "f1"
	assert.True(t, note.IsPromoted())
}

func TestValidateNote(t *testing.T) {
	now := time.Now().UTC()
	valid := &Note{
		ID:         "n1",
		SpaceID:    "sp1",
		Content:    "mentioned an upcoming trip to Lisbon",
		Importance: ImportanceMedium,
		Source:     Source{Type: SourceTypeInference, Timestamp: now},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	require.NoError(t, ValidateNote(valid))

	tests := []struct {
		name   string
		mutate func(n *Note)
	}{
		{"missing ID", func(n *Note) { n.ID = "" }},
		{"missing SpaceID", func(n *Note) { n.SpaceID = "" }},
		{"missing Content", func(n *Note) { n.Content = "" }},
		{"invalid importance", func(n *Note) { n.Importance = "critical" }},
		{"invalid source type", func(n *Note) { n.Source.Type = "guesswork" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := *valid
			tt.mutate(&n)
			assert.Error(t, ValidateNote(&n))
		})
	}
}
