package service

import (
	"context"
	"log"
	"time"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/pagination"
	"github.com/recallware/memspace/internal/telemetry"
	"github.com/google/uuid"
)

// TimelineRepositoryInterface defines the repository interface for timeline persistence
type TimelineRepositoryInterface interface {
	Create(ctx context.Context, entry *domain.TimelineEntry) error
	GetByID(ctx context.Context, id string) (*domain.TimelineEntry, error)
	ListBySpace(ctx context.Context, spaceID string) ([]*domain.TimelineEntry, error)
	ListBySpaceWithCursor(ctx context.Context, spaceID string, cursor *pagination.Cursor, limit int) (*TimelinePageResult, error)
	Delete(ctx context.Context, id string) error
}

type TimelinePageResult struct {
	Items      []*domain.TimelineEntry
	NextCursor string
	HasMore    bool
}

// TimelineRecorderInterface is the append surface the other services
// use to record their mutation side effects.
type TimelineRecorderInterface interface {
	Append(ctx context.Context, input AppendTimelineInput) (*domain.TimelineEntry, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// TimelineService handles the append-only activity log of a space.
// Entries are never updated after creation.
type TimelineService struct {
	timelineRepo TimelineRepositoryInterface
	uuidGen      UUIDGenerator
}

// NewTimelineService creates a new TimelineService instance
func NewTimelineService(timelineRepo TimelineRepositoryInterface) *TimelineService {
	return &TimelineService{
		timelineRepo: timelineRepo,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// NewTimelineServiceWithUUIDGen creates a new TimelineService with custom UUID generator (for testing)
func NewTimelineServiceWithUUIDGen(timelineRepo TimelineRepositoryInterface, uuidGen UUIDGenerator) *TimelineService {
	return &TimelineService{
		timelineRepo: timelineRepo,
		uuidGen:      uuidGen,
	}
}

// AppendTimelineInput represents the input for appending a timeline entry
type AppendTimelineInput struct {
	SpaceID           string
	EventType         domain.TimelineEventType
	Title             string
	Description       string
	RelatedEntityID   string
	RelatedEntityType string
	Metadata          map[string]string
	Tags              []string
	Timestamp         time.Time
}

type ListTimelineInput struct {
	SpaceID string
	Cursor  string
	Limit   int
}

type ListTimelineOutput struct {
	Items   []*domain.TimelineEntry
	Cursor  string
	HasMore bool
}

// Append records a new timeline entry. A zero timestamp defaults to
// the current time.
func (s *TimelineService) Append(ctx context.Context, input AppendTimelineInput) (*domain.TimelineEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "TimelineService.Append", telemetry.SpanAttributes{
		SpaceID:   input.SpaceID,
		Operation: "append",
	})
	defer span.End()

	now := time.Now().UTC()
	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}

	eventType := input.EventType
	if eventType == "" {
		eventType = domain.TimelineEventCustom
	}

	entry := &domain.TimelineEntry{
		ID:                s.uuidGen.NewString(),
		SpaceID:           input.SpaceID,
		Timestamp:         timestamp,
		EventType:         eventType,
		Title:             input.Title,
		Description:       input.Description,
		RelatedEntityID:   input.RelatedEntityID,
		RelatedEntityType: input.RelatedEntityType,
		Metadata:          input.Metadata,
		Tags:              input.Tags,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := domain.ValidateTimelineEntry(entry); err != nil {
		return nil, err
	}

	if err := s.timelineRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetByID retrieves a timeline entry by ID
func (s *TimelineService) GetByID(ctx context.Context, id string) (*domain.TimelineEntry, error) {
	return s.timelineRepo.GetByID(ctx, id)
}

// ListBySpace retrieves all timeline entries for a space
func (s *TimelineService) ListBySpace(ctx context.Context, spaceID string) ([]*domain.TimelineEntry, error) {
	return s.timelineRepo.ListBySpace(ctx, spaceID)
}

// ListTimeline retrieves a page of timeline entries for a space
func (s *TimelineService) ListTimeline(ctx context.Context, input ListTimelineInput) (*ListTimelineOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "TimelineService.ListTimeline", telemetry.SpanAttributes{
		SpaceID:   input.SpaceID,
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.timelineRepo.ListBySpaceWithCursor(ctx, input.SpaceID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListTimelineOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// recordTimeline appends a mutation side-effect entry best-effort.
// Timeline failures never fail the primary write.
func recordTimeline(ctx context.Context, recorder TimelineRecorderInterface, input AppendTimelineInput) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Append(ctx, input); err != nil {
		log.Printf("timeline: failed to record %s for space %s: %v", input.EventType, input.SpaceID, err)
	}
}

// Delete removes a timeline entry
func (s *TimelineService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "TimelineService.Delete", telemetry.SpanAttributes{
		Operation: "delete",
	})
	defer span.End()

	if _, err := s.timelineRepo.GetByID(ctx, id); err != nil {
		return err
	}

	return s.timelineRepo.Delete(ctx, id)
}
