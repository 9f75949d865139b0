package service

import (
	"context"
	"time"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/telemetry"
)

// SpaceRepositoryInterface defines the repository interface for space persistence
type SpaceRepositoryInterface interface {
	Create(ctx context.Context, space *domain.Space) error
	GetByID(ctx context.Context, id string) (*domain.Space, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Space, error)
	Update(ctx context.Context, space *domain.Space) error
	Delete(ctx context.Context, id string) error
}

// SpaceService handles business logic for spaces
type SpaceService struct {
	spaceRepo SpaceRepositoryInterface
	uuidGen   UUIDGenerator
}

// NewSpaceService creates a new SpaceService instance
func NewSpaceService(spaceRepo SpaceRepositoryInterface) *SpaceService {
	return &SpaceService{
		spaceRepo: spaceRepo,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewSpaceServiceWithUUIDGen creates a new SpaceService with custom UUID generator (for testing)
func NewSpaceServiceWithUUIDGen(spaceRepo SpaceRepositoryInterface, uuidGen UUIDGenerator) *SpaceService {
	return &SpaceService{
		spaceRepo: spaceRepo,
		uuidGen:   uuidGen,
	}
}

// CreateSpaceInput represents the input for creating a space
type CreateSpaceInput struct {
	OwnerID     string
	Name        string
	Description string
	Rules       domain.SpaceRules
}

// UpdateSpaceInput represents the input for updating a space.
// Nil fields are left unchanged.
type UpdateSpaceInput struct {
	SpaceID     string
	Name        *string
	Description *string
	Rules       *domain.SpaceRules
}

// Create creates a new space. Space names are unique per owner.
func (s *SpaceService) Create(ctx context.Context, input CreateSpaceInput) (*domain.Space, error) {
	ctx, span := telemetry.StartSpan(ctx, "SpaceService.Create", telemetry.SpanAttributes{
		OwnerID:   input.OwnerID,
		Operation: "create",
	})
	defer span.End()

	existing, err := s.spaceRepo.ListByOwner(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}
	for _, sp := range existing {
		if sp.Name == input.Name {
			return nil, domain.ErrSpaceAlreadyExists
		}
	}

	now := time.Now().UTC()
	space := &domain.Space{
		ID:          s.uuidGen.NewString(),
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		Description: input.Description,
		Rules:       input.Rules,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := domain.ValidateSpace(space); err != nil {
		return nil, err
	}

	if err := s.spaceRepo.Create(ctx, space); err != nil {
		return nil, err
	}

	return space, nil
}

// GetByID retrieves a space by ID
func (s *SpaceService) GetByID(ctx context.Context, id string) (*domain.Space, error) {
	return s.spaceRepo.GetByID(ctx, id)
}

// GetOwned retrieves a space by ID and verifies ownership. A space
// owned by someone else is reported as not found so ids do not leak
// across owners.
func (s *SpaceService) GetOwned(ctx context.Context, spaceID, ownerID string) (*domain.Space, error) {
	space, err := s.spaceRepo.GetByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if space.OwnerID != ownerID {
		return nil, domain.ErrSpaceNotFound
	}
	return space, nil
}

// ListByOwner retrieves all spaces for an owner
func (s *SpaceService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Space, error) {
	return s.spaceRepo.ListByOwner(ctx, ownerID)
}

// Update applies the provided fields to a space
func (s *SpaceService) Update(ctx context.Context, input UpdateSpaceInput) (*domain.Space, error) {
	ctx, span := telemetry.StartSpan(ctx, "SpaceService.Update", telemetry.SpanAttributes{
		SpaceID:   input.SpaceID,
		Operation: "update",
	})
	defer span.End()

	space, err := s.spaceRepo.GetByID(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		space.Name = *input.Name
	}
	if input.Description != nil {
		space.Description = *input.Description
	}
	if input.Rules != nil {
		space.Rules = *input.Rules
	}
	space.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateSpace(space); err != nil {
		return nil, err
	}

	if err := s.spaceRepo.Update(ctx, space); err != nil {
		return nil, err
	}

	return space, nil
}

// Delete removes a space and, via the schema's cascades, all knowledge
// stored in it. Chat sessions are pruned separately by their store.
func (s *SpaceService) Delete(ctx context.Context, spaceID string) error {
	ctx, span := telemetry.StartSpan(ctx, "SpaceService.Delete", telemetry.SpanAttributes{
		SpaceID:   spaceID,
		Operation: "delete",
	})
	defer span.End()

	if _, err := s.spaceRepo.GetByID(ctx, spaceID); err != nil {
		return err
	}

	return s.spaceRepo.Delete(ctx, spaceID)
}
