package service

import (
	"context"
	"time"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/telemetry"
)

// ProfileRepositoryInterface defines the repository interface for profile persistence
type ProfileRepositoryInterface interface {
	Create(ctx context.Context, entry *domain.ProfileEntry) error
	GetByID(ctx context.Context, id string) (*domain.ProfileEntry, error)
	ListBySpace(ctx context.Context, spaceID string) ([]*domain.ProfileEntry, error)
	Update(ctx context.Context, entry *domain.ProfileEntry) error
	Delete(ctx context.Context, id string) error
}

// ProfileService handles business logic for profile entries
type ProfileService struct {
	profileRepo ProfileRepositoryInterface
	timeline    TimelineRecorderInterface
	uuidGen     UUIDGenerator
}

// NewProfileService creates a new ProfileService instance
func NewProfileService(profileRepo ProfileRepositoryInterface, timeline TimelineRecorderInterface) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		timeline:    timeline,
		uuidGen:     &DefaultUUIDGenerator{},
	}
}

// NewProfileServiceWithUUIDGen creates a new ProfileService with custom UUID generator (for testing)
func NewProfileServiceWithUUIDGen(profileRepo ProfileRepositoryInterface, timeline TimelineRecorderInterface, uuidGen UUIDGenerator) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		timeline:    timeline,
		uuidGen:     uuidGen,
	}
}

// CreateProfileEntryInput represents the input for creating a profile entry
type CreateProfileEntryInput struct {
	SpaceID    string
	OwnerID    string
	Category   string
	Key        string
	Value      domain.ProfileValue
	Source     domain.Source
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

// UpdateProfileEntryInput represents the input for updating a profile
// entry. Nil fields are left unchanged.
type UpdateProfileEntryInput struct {
	EntryID    string
	Category   *string
	Key        *string
	Value      *domain.ProfileValue
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

// Create creates a new profile entry. When the new entry is valid
// immediately, any previously valid entry for the same (category, key)
// gets its validity window closed so the newest value wins.
func (s *ProfileService) Create(ctx context.Context, input CreateProfileEntryInput) (*domain.ProfileEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Create", telemetry.SpanAttributes{
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

	entry := &domain.ProfileEntry{
		ID:         s.uuidGen.NewString(),
		SpaceID:    input.SpaceID,
		Category:   input.Category,
		Key:        input.Key,
		Value:      input.Value,
		Source:     source,
		ValidFrom:  input.ValidFrom,
		ValidUntil: input.ValidUntil,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := domain.ValidateProfileEntry(entry); err != nil {
		return nil, err
	}

	if entry.ValidAt(now) {
		if err := s.supersedeExisting(ctx, entry, now); err != nil {
			return nil, err
		}
	}

	if err := s.profileRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           entry.SpaceID,
		EventType:         domain.TimelineEventProfileAdded,
		Title:             "Profile updated",
		Description:       entry.Category + "." + entry.Key + " set",
		RelatedEntityID:   entry.ID,
		RelatedEntityType: "profile_entry",
	})

	return entry, nil
}

// supersedeExisting closes the validity window of currently valid
// entries sharing the new entry's (category, key).
func (s *ProfileService) supersedeExisting(ctx context.Context, entry *domain.ProfileEntry, now time.Time) error {
	existing, err := s.profileRepo.ListBySpace(ctx, entry.SpaceID)
	if err != nil {
		return err
	}

	for _, e := range existing {
		if e.Category != entry.Category || e.Key != entry.Key || !e.ValidAt(now) {
			continue
		}
		until := now
		e.ValidUntil = &until
		e.UpdatedAt = now
		if err := s.profileRepo.Update(ctx, e); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a profile entry by ID
func (s *ProfileService) GetByID(ctx context.Context, id string) (*domain.ProfileEntry, error) {
	return s.profileRepo.GetByID(ctx, id)
}

// ListBySpace retrieves all profile entries for a space, including
// entries outside their validity window.
func (s *ProfileService) ListBySpace(ctx context.Context, spaceID string) ([]*domain.ProfileEntry, error) {
	return s.profileRepo.ListBySpace(ctx, spaceID)
}

// ListValid retrieves the profile entries currently inside their
// validity window.
func (s *ProfileService) ListValid(ctx context.Context, spaceID string) ([]*domain.ProfileEntry, error) {
	entries, err := s.profileRepo.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	valid := make([]*domain.ProfileEntry, 0, len(entries))
	for _, e := range entries {
		if e.ValidAt(now) {
			valid = append(valid, e)
		}
	}
	return valid, nil
}

// Update applies the provided fields to a profile entry
func (s *ProfileService) Update(ctx context.Context, input UpdateProfileEntryInput) (*domain.ProfileEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Update", telemetry.SpanAttributes{
		Operation: "update",
	})
	defer span.End()

	entry, err := s.profileRepo.GetByID(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}

	if input.Category != nil {
		entry.Category = *input.Category
	}
	if input.Key != nil {
		entry.Key = *input.Key
	}
	if input.Value != nil {
		entry.Value = *input.Value
	}
	if input.ValidFrom != nil {
		entry.ValidFrom = input.ValidFrom
	}
	if input.ValidUntil != nil {
		entry.ValidUntil = input.ValidUntil
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateProfileEntry(entry); err != nil {
		return nil, err
	}

	if err := s.profileRepo.Update(ctx, entry); err != nil {
		return nil, err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           entry.SpaceID,
		EventType:         domain.TimelineEventProfileUpdated,
		Title:             "Profile updated",
		Description:       entry.Category + "." + entry.Key + " changed",
		RelatedEntityID:   entry.ID,
		RelatedEntityType: "profile_entry",
	})

	return entry, nil
}

// Delete removes a profile entry and records the deletion on the timeline
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "ProfileService.Delete", telemetry.SpanAttributes{
		Operation: "delete",
	})
	defer span.End()

	entry, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.profileRepo.Delete(ctx, id); err != nil {
		return err
	}

	recordTimeline(ctx, s.timeline, AppendTimelineInput{
		SpaceID:           entry.SpaceID,
		EventType:         domain.TimelineEventProfileDeleted,
		Title:             "Profile entry removed",
		Description:       entry.Category + "." + entry.Key + " removed",
		RelatedEntityID:   entry.ID,
		RelatedEntityType: "profile_entry",
	})

	return nil
}
