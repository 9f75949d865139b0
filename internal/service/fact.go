package service

import (
	"context"
	"time"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/pagination"
	"github.com/recallware/memspace/internal/telemetry"
)

// FactRepositoryInterface defines the repository interface for fact persistence
type FactRepositoryInterface interface {
	Create(ctx context.Context, fact *domain.Fact) error
	GetByID(ctx context.Context, id string) (*domain.Fact, error)
	ListBySpace(ctx context.Context, spaceID string) ([]*domain.Fact, error)
	ListBySpaceWithCursor(ctx context.Context, spaceID string, cursor *pagination.Cursor, limit int) (*FactPageResult, error)
	Update(ctx context.Context, fact *domain.Fact) error
	Delete(ctx context.Context, id string) error
}

type FactPageResult struct {
	Items      []*domain.Fact
	NextCursor string
	HasMore    bool
}

// FactService handles business logic for facts
type FactService struct {
	factRepo FactRepositoryInterface
	timeline TimelineRecorderInterface
	uuidGen  UUIDGenerator
}

// NewFactService creates a new FactService instance
func NewFactService(factRepo FactRepositoryInterface, timeline TimelineRecorderInterface) *FactService {
	return &FactService{
		factRepo: factRepo,
		timeline: timeline,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewFactServiceWithUUIDGen creates a new FactService with custom UUID generator (for testing)
func NewFactServiceWithUUIDGen(factRepo FactRepositoryInterface, timeline TimelineRecorderInterface, uuidGen UUIDGenerator) *FactService {
	return &FactService{
		factRepo: factRepo,
		timeline: timeline,
		uuidGen:  uuidGen,
	}
}

// CreateFactInput represents the input for creating a fact
type CreateFactInput struct {
	SpaceID        string
	OwnerID        string
	Category       string
	Statement      string
	Confidence     domain.Confidence
	Tags           []string
	RelatedFactIDs []string
	Source         domain.Source
}

// UpdateFactInput represents the input for updating a fact.
// Nil fields are left unchanged.
type UpdateFactInput struct {
	FactID         string
	Category       *string
	Statement      *string
	Confidence     *domain.Confidence
	Tags           *[]string
	RelatedFactIDs *[]string
}

type ListFactsInput struct {
	SpaceID string
	Cursor  string
	Limit   int
}

type ListFactsOutput struct {
	Items   []*domain.Fact
	Cursor  string
	HasMore bool
}

// Create creates a new fact and records it on the timeline
func (s *FactService) Create(ctx context.Context, input CreateFactInput) (*domain.Fact, error) {
	ctx, span := telemetry.StartSpan(ctx, "FactService.Create", telemetry.SpanAttributes{
		SpaceID:   input.SpaceID,
		OwnerID:   input.OwnerID,
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()

	source := input.Source
	if source.Type == "" {
		source = domain.Source{Type: domain.SourceTypeManual, Timestamp: now}
	}

	fact := &domain.Fact{
		ID:             s.uuidGen.NewString(),
		SpaceID:        input.SpaceID,
		Category:       input.Category,
		Statement:      input.Statement,
		Confidence:     input.Confidence,
		Source:         source,
		Tags:           input.Tags,
		RelatedFactIDs: input.RelatedFactIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := domain.ValidateFact(fact); err != nil {
		return nil, err
	}

	if err := s.factRepo.Create(ctx, fact); err != nil {
		return nil, err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           fact.SpaceID,
		EventType:         domain.TimelineEventFactAdded,
		Title:             "Fact added",
		Description:       fact.Statement,
		RelatedEntityID:   fact.ID,
		RelatedEntityType: "fact",
	})

	return fact, nil
}

// GetByID retrieves a fact by ID
func (s *FactService) GetByID(ctx context.Context, id string) (*domain.Fact, error) {
	return s.factRepo.GetByID(ctx, id)
}

// ListBySpace retrieves all facts for a space
func (s *FactService) ListBySpace(ctx context.Context, spaceID string) ([]*domain.Fact, error) {
	return s.factRepo.ListBySpace(ctx, spaceID)
}

// ListFacts retrieves a page of facts for a space
func (s *FactService) ListFacts(ctx context.Context, input ListFactsInput) (*ListFactsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "FactService.ListFacts", telemetry.SpanAttributes{
		SpaceID:   input.SpaceID,
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.factRepo.ListBySpaceWithCursor(ctx, input.SpaceID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListFactsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// Update applies the provided fields to a fact
func (s *FactService) Update(ctx context.Context, input UpdateFactInput) (*domain.Fact, error) {
	ctx, span := telemetry.StartSpan(ctx, "FactService.Update", telemetry.SpanAttributes{
		Operation: "update",
	})
	defer span.End()

	fact, err := s.factRepo.GetByID(ctx, input.FactID)
	if err != nil {
		return nil, err
	}

	if input.Category != nil {
		fact.Category = *input.Category
	}
	if input.Statement != nil {
		fact.Statement = *input.Statement
	}
	if input.Confidence != nil {
		fact.Confidence = *input.Confidence
	}
	if input.Tags != nil {
		fact.Tags = *input.Tags
	}
	if input.RelatedFactIDs != nil {
		fact.RelatedFactIDs = *input.RelatedFactIDs
	}
	fact.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateFact(fact); err != nil {
		return nil, err
	}

	if err := s.factRepo.Update(ctx, fact); err != nil {
		return nil, err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           fact.SpaceID,
		EventType:         domain.TimelineEventFactUpdated,
		Title:             "Fact updated",
		Description:       fact.Statement,
		RelatedEntityID:   fact.ID,
		RelatedEntityType: "fact",
	})

	return fact, nil
}

// Delete removes a fact and records the deletion on the timeline
func (s *FactService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "FactService.Delete", telemetry.SpanAttributes{
		Operation: "delete",
	})
	defer span.End()

	fact, err := s.factRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.factRepo.Delete(ctx, id); err != nil {
		return err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           fact.SpaceID,
		EventType:         domain.TimelineEventFactDeleted,
		Title:             "Fact deleted",
		Description:       fact.Statement,
		RelatedEntityID:   fact.ID,
		RelatedEntityType: "fact",
	})

	return nil
}
