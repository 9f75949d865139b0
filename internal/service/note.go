package service

import (
	"context"
	"time"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/pagination"
	"github.com/recallware/memspace/internal/telemetry"
)

// NoteRepositoryInterface defines the repository interface for note persistence
type NoteRepositoryInterface interface {
	Create(ctx context.Context, note *domain.Note) error
	GetByID(ctx context.Context, id string) (*domain.Note, error)
	ListBySpace(ctx context.Context, spaceID string) ([]*domain.Note, error)
	ListBySpaceWithCursor(ctx context.Context, spaceID string, cursor *pagination.Cursor, limit int) (*NotePageResult, error)
	Update(ctx context.Context, note *domain.Note) error
	Delete(ctx context.Context, id string) error
}

type NotePageResult struct {
	Items      []*domain.Note
	NextCursor string
	HasMore    bool
}

// NoteService handles business logic for notes, including the one-way
// promotion of a note into a fact.
type NoteService struct {
	noteRepo NoteRepositoryInterface
	factRepo FactRepositoryInterface
	timeline TimelineRecorderInterface
	uuidGen  UUIDGenerator
}

// NewNoteService creates a new NoteService instance
func NewNoteService(noteRepo NoteRepositoryInterface, factRepo FactRepositoryInterface, timeline TimelineRecorderInterface) *NoteService {
	return &NoteService{
		noteRepo: noteRepo,
		factRepo: factRepo,
		timeline: timeline,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewNoteServiceWithUUIDGen creates a new NoteService with custom UUID generator (for testing)
func NewNoteServiceWithUUIDGen(noteRepo NoteRepositoryInterface, factRepo FactRepositoryInterface, timeline TimelineRecorderInterface, uuidGen UUIDGenerator) *NoteService {
	return &NoteService{
		noteRepo: noteRepo,
		factRepo: factRepo,
		timeline: timeline,
		uuidGen:  uuidGen,
	}
}

// CreateNoteInput represents the input for creating a note
type CreateNoteInput struct {
	SpaceID       string
	OwnerID       string
	Content       string
	Category      string
	Importance    domain.Importance
	Tags          []string
	FactCandidate bool
	Source        domain.Source
}

// UpdateNoteInput represents the input for updating a note.
// Nil fields are left unchanged.
type UpdateNoteInput struct {
	NoteID        string
	Content       *string
	Category      *string
	Importance    *domain.Importance
	Tags          *[]string
	FactCandidate *bool
}

// PromoteNoteInput represents the input for promoting a note to a fact
type PromoteNoteInput struct {
	NoteID     string
	Category   string
	Confidence domain.Confidence
}

type ListNotesInput struct {
	SpaceID string
	Cursor  string
	Limit   int
}

type ListNotesOutput struct {
	Items   []*domain.Note
	Cursor  string
	HasMore bool
}

// Create creates a new note and records it on the timeline
func (s *NoteService) Create(ctx context.Context, input CreateNoteInput) (*domain.Note, error) {
	ctx, span := telemetry.StartSpan(ctx, "NoteService.Create", telemetry.SpanAttributes{
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

	note := &domain.Note{
		ID:            s.uuidGen.NewString(),
		SpaceID:       input.SpaceID,
		Content:       input.Content,
		Category:      input.Category,
		Importance:    input.Importance,
		Source:        source,
		Tags:          input.Tags,
		FactCandidate: input.FactCandidate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := domain.ValidateNote(note); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           note.SpaceID,
		EventType:         domain.TimelineEventNoteAdded,
		Title:             "Note added",
		Description:       note.Content,
		RelatedEntityID:   note.ID,
		RelatedEntityType: "note",
	})

	return note, nil
}

// GetByID retrieves a note by ID
func (s *NoteService) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	return s.noteRepo.GetByID(ctx, id)
}

// ListBySpace retrieves all notes for a space
func (s *NoteService) ListBySpace(ctx context.Context, spaceID string) ([]*domain.Note, error) {
	return s.noteRepo.ListBySpace(ctx, spaceID)
}

// ListNotes retrieves a page of notes for a space
func (s *NoteService) ListNotes(ctx context.Context, input ListNotesInput) (*ListNotesOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "NoteService.ListNotes", telemetry.SpanAttributes{
		SpaceID:   input.SpaceID,
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.noteRepo.ListBySpaceWithCursor(ctx, input.SpaceID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListNotesOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// Update applies the provided fields to a note. A promoted note can no
// longer be edited.
func (s *NoteService) Update(ctx context.Context, input UpdateNoteInput) (*domain.Note, error) {
	ctx, span := telemetry.StartSpan(ctx, "NoteService.Update", telemetry.SpanAttributes{
		Operation: "update",
	})
	defer span.End()

	note, err := s.noteRepo.GetByID(ctx, input.NoteID)
	if err != nil {
		return nil, err
	}

	if note.IsPromoted() {
		return nil, domain.ErrNoteAlreadyPromoted
	}

	if input.Content != nil {
		note.Content = *input.Content
	}
	if input.Category != nil {
		note.Category = *input.Category
	}
	if input.Importance != nil {
		note.Importance = *input.Importance
	}
	if input.Tags != nil {
		note.Tags = *input.Tags
	}
	if input.FactCandidate != nil {
		note.FactCandidate = *input.FactCandidate
	}
	note.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateNote(note); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           note.SpaceID,
		EventType:         domain.TimelineEventNoteUpdated,
		Title:             "Note updated",
		Description:       note.Content,
		RelatedEntityID:   note.ID,
		RelatedEntityType: "note",
	})

	return note, nil
}

// Promote turns a note into a fact. The note is marked with the new
// fact's id and leaves the active set; promoting it again is an
// invalid operation.
func (s *NoteService) Promote(ctx context.Context, input PromoteNoteInput) (*domain.Fact, error) {
	ctx, span := telemetry.StartSpan(ctx, "NoteService.Promote", telemetry.SpanAttributes{
		Operation: "promote",
	})
	defer span.End()

	note, err := s.noteRepo.GetByID(ctx, input.NoteID)
	if err != nil {
		return nil, err
	}

	if note.IsPromoted() {
		return nil, domain.ErrNoteAlreadyPromoted
	}

	now := time.Now().UTC()

	category := input.Category
	if category == "" {
		category = note.Category
	}
	if category == "" {
		category = "general"
	}

	confidence := input.Confidence
	if confidence == "" {
		confidence = domain.ConfidenceMedium
	}

	fact := &domain.Fact{
		ID:         s.uuidGen.NewString(),
		SpaceID:    note.SpaceID,
		Category:   category,
		Statement:  note.Content,
		Confidence: confidence,
		Source:     note.Source,
		Tags:       note.Tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := domain.ValidateFact(fact); err != nil {
		return nil, err
	}

	if err := s.factRepo.Create(ctx, fact); err != nil {
		return nil, err
	}

	note.PromotedToFactID = fact.ID
	note.FactCandidate = false
	note.UpdatedAt = now

	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           note.SpaceID,
		EventType:         domain.TimelineEventNotePromoted,
		Title:             "Note promoted to fact",
		Description:       note.Content,
		RelatedEntityID:   fact.ID,
		RelatedEntityType: "fact",
	})

	return fact, nil
}

// Delete removes a note and records the deletion on the timeline
func (s *NoteService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "NoteService.Delete", telemetry.SpanAttributes{
		Operation: "delete",
	})
	defer span.End()

	note, err := s.noteRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.noteRepo.Delete(ctx, id); err != nil {
		return err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           note.SpaceID,
		EventType:         domain.TimelineEventNoteDeleted,
		Title:             "Note deleted",
		Description:       note.Content,
		RelatedEntityID:   note.ID,
		RelatedEntityType: "note",
	})

	return nil
}
