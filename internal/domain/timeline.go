package domain

import (
	"fmt"
	"time"
)

// TimelineEventType identifies what kind of change a timeline entry records
type TimelineEventType string

const (
	TimelineEventFactAdded      TimelineEventType = "fact_added"
	TimelineEventFactUpdated    TimelineEventType = "fact_updated"
	TimelineEventFactDeleted    TimelineEventType = "fact_deleted"
	TimelineEventNoteAdded      TimelineEventType = "note_added"
	TimelineEventNoteUpdated    TimelineEventType = "note_updated"
	TimelineEventNoteDeleted    TimelineEventType = "note_deleted"
	TimelineEventNotePromoted   TimelineEventType = "note_promoted"
	TimelineEventProfileAdded   TimelineEventType = "profile_added"
	TimelineEventProfileUpdated TimelineEventType = "profile_updated"
	TimelineEventProfileDeleted TimelineEventType = "profile_deleted"
	TimelineEventCustom         TimelineEventType = "custom"
)

// TimelineEntry is an append-only audit record. One is written as a
// side effect of every fact/note/profile mutation performed through
// the service layer.
type TimelineEntry struct {
	ID                string
	SpaceID           string
	Timestamp         time.Time
	EventType         TimelineEventType
	Title             string
	Description       string
	RelatedEntityID   string
	RelatedEntityType string
	Metadata          map[string]string
	Tags              []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ValidateTimelineEntry validates a TimelineEntry instance
func ValidateTimelineEntry(e *TimelineEntry) error {
	if e == nil {
		return fmt.Errorf("timeline entry cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("timeline entry ID is required")
	}

	if e.SpaceID == "" {
		return fmt.Errorf("timeline entry SpaceID is required")
	}

	if e.EventType == "" {
		return fmt.Errorf("timeline entry EventType is required")
	}

	if e.Title == "" {
		return fmt.Errorf("timeline entry Title is required")
	}

	if e.Timestamp.IsZero() {
		return fmt.Errorf("timeline entry Timestamp is required")
	}

	return nil
}
