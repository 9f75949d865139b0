package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/pagination"
)

type MockFactRepository struct {
	mock.Mock
}

func (m *MockFactRepository) Create(ctx context.Context, fact *domain.Fact) error {
	args := m.Called(ctx, fact)
	return args.Error(0)
}

func (m *MockFactRepository) GetByID(ctx context.Context, id string) (*domain.Fact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Fact), args.Error(1)
}

func (m *MockFactRepository) ListBySpace(ctx context.Context, spaceID string) ([]*domain.Fact, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Fact), args.Error(1)
}

func (m *MockFactRepository) ListBySpaceWithCursor(ctx context.Context, spaceID string, cursor *pagination.Cursor, limit int) (*FactPageResult, error) {
	args := m.Called(ctx, spaceID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FactPageResult), args.Error(1)
}

func (m *MockFactRepository) Update(ctx context.Context, fact *domain.Fact) error {
	args := m.Called(ctx, fact)
	return args.Error(0)
}

func (m *MockFactRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockTimelineRecorder struct {
	mock.Mock
}

func (m *MockTimelineRecorder) Append(ctx context.Context, input AppendTimelineInput) (*domain.TimelineEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TimelineEntry), args.Error(1)
}

func TestFactServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates fact with manual source default and timeline entry", func(t *testing.T) {
		repo := new(MockFactRepository)
		timeline := new(MockTimelineRecorder)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.Fact) bool {
			return f.SpaceID == "space-1" &&
				f.Statement == "runs marathons" &&
				f.Source.Type == domain.SourceTypeManual &&
				!f.CreatedAt.IsZero()
		})).Return(nil)
		timeline.On("Append", mock.Anything, mock.MatchedBy(func(input AppendTimelineInput) bool {
			return input.EventType == domain.TimelineEventFactAdded && input.SpaceID == "space-1"
		})).Return(&domain.TimelineEntry{ID: "t1"}, nil)

		svc := NewFactService(repo, timeline)
		fact, err := svc.Create(ctx, CreateFactInput{
			SpaceID:    "space-1",
			OwnerID:    "owner-1",
			Category:   "fitness",
			Statement:  "runs marathons",
			Confidence: domain.ConfidenceHigh,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, fact.ID)
		repo.AssertExpectations(t)
		timeline.AssertExpectations(t)
	})

	t.Run("explicit source is preserved", func(t *testing.T) {
		repo := new(MockFactRepository)
		timeline := new(MockTimelineRecorder)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.Fact) bool {
			return f.Source.Type == domain.SourceTypeInference &&
				f.Source.Reference == "volunteered during chat"
		})).Return(nil)
		timeline.On("Append", mock.Anything, mock.Anything).Return(&domain.TimelineEntry{ID: "t1"}, nil)

		svc := NewFactService(repo, timeline)
		_, err := svc.Create(ctx, CreateFactInput{
			SpaceID:    "space-1",
			Category:   "work",
			Statement:  "works at Acme",
			Confidence: domain.ConfidenceMedium,
			Source:     domain.Source{Type: domain.SourceTypeInference, Reference: "volunteered during chat"},
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("timeline failure does not fail the create", func(t *testing.T) {
		repo := new(MockFactRepository)
		timeline := new(MockTimelineRecorder)

		repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		timeline.On("Append", mock.Anything, mock.Anything).Return(nil, errors.New("timeline down"))

		svc := NewFactService(repo, timeline)
		_, err := svc.Create(ctx, CreateFactInput{
			SpaceID:    "space-1",
			Category:   "c",
			Statement:  "s",
			Confidence: domain.ConfidenceLow,
		})
		assert.NoError(t, err)
	})

	t.Run("rejects invalid confidence", func(t *testing.T) {
		svc := NewFactService(new(MockFactRepository), new(MockTimelineRecorder))
		_, err := svc.Create(ctx, CreateFactInput{
			SpaceID:    "space-1",
			Category:   "c",
			Statement:  "s",
			Confidence: "certain",
		})
		require.Error(t, err)
	})
}

func TestFactServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only provided fields", func(t *testing.T) {
		repo := new(MockFactRepository)
		timeline := new(MockTimelineRecorder)

		existing := &domain.Fact{
			ID:         "f1",
			SpaceID:    "space-1",
			Category:   "work",
			Statement:  "old statement",
			Confidence: domain.ConfidenceLow,
			Source:     domain.Source{Type: domain.SourceTypeManual},
			Tags:       []string{"keep"},
		}
		repo.On("GetByID", mock.Anything, "f1").Return(existing, nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(f *domain.Fact) bool {
			return f.Statement == "new statement" &&
				f.Confidence == domain.ConfidenceVerified &&
				f.Category == "work" &&
				len(f.Tags) == 1
		})).Return(nil)
		timeline.On("Append", mock.Anything, mock.MatchedBy(func(input AppendTimelineInput) bool {
			return input.EventType == domain.TimelineEventFactUpdated
		})).Return(&domain.TimelineEntry{ID: "t1"}, nil)

		statement := "new statement"
		confidence := domain.ConfidenceVerified

		svc := NewFactService(repo, timeline)
		updated, err := svc.Update(ctx, UpdateFactInput{
			FactID:     "f1",
			Statement:  &statement,
			Confidence: &confidence,
		})
		require.NoError(t, err)
		assert.Equal(t, "new statement", updated.Statement)
		repo.AssertExpectations(t)
	})

	t.Run("unknown fact", func(t *testing.T) {
		repo := new(MockFactRepository)
		repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrFactNotFound)

		svc := NewFactService(repo, new(MockTimelineRecorder))
		_, err := svc.Update(ctx, UpdateFactInput{FactID: "missing"})
		assert.ErrorIs(t, err, domain.ErrFactNotFound)
	})
}

func TestFactServiceDelete(t *testing.T) {
	ctx := context.Background()

	repo := new(MockFactRepository)
	timeline := new(MockTimelineRecorder)

	repo.On("GetByID", mock.Anything, "f1").Return(&domain.Fact{
		ID:        "f1",
		SpaceID:   "space-1",
		Statement: "gone soon",
	}, nil)
	repo.On("Delete", mock.Anything, "f1").Return(nil)
	timeline.On("Append", mock.Anything, mock.MatchedBy(func(input AppendTimelineInput) bool {
		return input.EventType == domain.TimelineEventFactDeleted && input.RelatedEntityID == "f1"
	})).Return(&domain.TimelineEntry{ID: "t1"}, nil)

	svc := NewFactService(repo, timeline)
	require.NoError(t, svc.Delete(ctx, "f1"))
	repo.AssertExpectations(t)
	timeline.AssertExpectations(t)
}

func TestFactServiceListFacts(t *testing.T) {
	ctx := context.Background()

	repo := new(MockFactRepository)
	repo.On("ListBySpaceWithCursor", mock.Anything, "space-1", (*pagination.Cursor)(nil), 20).Return(&FactPageResult{
		Items:      []*domain.Fact{{ID: "f1"}},
		NextCursor: "cursor-1",
		HasMore:    true,
	}, nil)

	svc := NewFactService(repo, new(MockTimelineRecorder))
	out, err := svc.ListFacts(ctx, ListFactsInput{SpaceID: "space-1"})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, "cursor-1", out.Cursor)
	assert.True(t, out.HasMore)
}
