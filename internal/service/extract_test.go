package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recallware/memspace/internal/domain"
)

func TestParseMemoryExtract(t *testing.T) {
	t.Run("no block returns trimmed text", func(t *testing.T) {
		clean, memory := ParseMemoryExtract("  just a normal reply  ")
		assert.Equal(t, "just a normal reply", clean)
		assert.Nil(t, memory)
	})

	t.Run("empty block is stripped and yields nil", func(t *testing.T) {
		input := "Hello ```memory_extract\n{\"facts\":[],\"notes\":[],\"profileUpdates\":[]}\n``` bye"
		clean, memory := ParseMemoryExtract(input)
		assert.Equal(t, "Hello  bye", clean)
		assert.Nil(t, memory)
	})

	t.Run("valid block is parsed and stripped", func(t *testing.T) {
		input := "Noted!\n\n```memory_extract\n" +
			`{"facts": [{"category": "work", "statement": "works at Acme", "confidence": "high", "tags": ["career"], "reason": "user said so"}],` +
			`"notes": [{"content": "thinking about a sabbatical", "importance": "medium"}],` +
			`"profileUpdates": [{"category": "identity", "key": "city", "value": "Lisbon"}]}` +
			"\n```"

		clean, memory := ParseMemoryExtract(input)
		assert.Equal(t, "Noted!", clean)
		require.NotNil(t, memory)

		require.Len(t, memory.Facts, 1)
		assert.Equal(t, "works at Acme", memory.Facts[0].Statement)
		assert.Equal(t, domain.ConfidenceHigh, memory.Facts[0].Confidence)
		assert.Equal(t, []string{"career"}, memory.Facts[0].Tags)
		assert.Equal(t, "user said so", memory.Facts[0].Reason)

		require.Len(t, memory.Notes, 1)
		assert.Equal(t, "thinking about a sabbatical", memory.Notes[0].Content)
		assert.Equal(t, domain.ImportanceMedium, memory.Notes[0].Importance)

		require.Len(t, memory.ProfileUpdates, 1)
		assert.Equal(t, "city", memory.ProfileUpdates[0].Key)
		assert.Equal(t, "Lisbon", memory.ProfileUpdates[0].Value.String())
	})

	t.Run("invalid items are dropped, valid ones kept", func(t *testing.T) {
		input := "```memory_extract\n" +
			`{"facts": [` +
			`{"category": "work", "statement": "valid fact", "confidence": "medium"},` +
			`{"category": "work", "confidence": "medium"},` +
			`{"category": 3, "statement": "numeric category", "confidence": "medium"},` +
			`{"category": "work", "statement": "bad confidence", "confidence": "certain"},` +
			`"not an object"` +
			`]}` +
			"\n```"

		clean, memory := ParseMemoryExtract(input)
		assert.Empty(t, clean)
		require.NotNil(t, memory)
		require.Len(t, memory.Facts, 1)
		assert.Equal(t, "valid fact", memory.Facts[0].Statement)
	})

	t.Run("all items invalid yields nil", func(t *testing.T) {
		input := "reply ```memory_extract\n" +
			`{"facts": [{"statement": "missing category"}], "notes": [{"content": "no importance"}]}` +
			"\n```"

		clean, memory := ParseMemoryExtract(input)
		assert.Equal(t, "reply", clean)
		assert.Nil(t, memory)
	})

	t.Run("malformed json yields nil but still strips", func(t *testing.T) {
		clean, memory := ParseMemoryExtract("before ```memory_extract\n{not json\n``` after")
		assert.Equal(t, "before  after", clean)
		assert.Nil(t, memory)
	})

	t.Run("only first block is honored", func(t *testing.T) {
		input := "a ```memory_extract\n{\"facts\":[{\"category\":\"c\",\"statement\":\"s\",\"confidence\":\"low\"}]}\n``` b " +
			"```memory_extract\n{\"facts\":[{\"category\":\"c2\",\"statement\":\"s2\",\"confidence\":\"low\"}]}\n```"

		clean, memory := ParseMemoryExtract(input)
		require.NotNil(t, memory)
		require.Len(t, memory.Facts, 1)
		assert.Equal(t, "s", memory.Facts[0].Statement)
		assert.Contains(t, clean, "memory_extract")
	})

	t.Run("idempotent on clean text", func(t *testing.T) {
		clean, memory := ParseMemoryExtract("Hello ```memory_extract\n{\"facts\":[]}\n``` bye")
		require.Nil(t, memory)

		again, memory := ParseMemoryExtract(clean)
		assert.Equal(t, clean, again)
		assert.Nil(t, memory)
	})

	t.Run("profile update value variants", func(t *testing.T) {
		input := "```memory_extract\n" +
			`{"profileUpdates": [` +
			`{"category": "c", "key": "k1", "value": 42},` +
			`{"category": "c", "key": "k2", "value": true},` +
			`{"category": "c", "key": "k3", "value": ["a", "b"]},` +
			`{"category": "c", "key": "k4", "value": {"nested": "object"}},` +
			`{"category": "c", "key": "k5"}` +
			`]}` +
			"\n```"

		_, memory := ParseMemoryExtract(input)
		require.NotNil(t, memory)
		require.Len(t, memory.ProfileUpdates, 3)
		assert.Equal(t, "42", memory.ProfileUpdates[0].Value.String())
		assert.Equal(t, "true", memory.ProfileUpdates[1].Value.String())
		assert.Equal(t, "a, b", memory.ProfileUpdates[2].Value.String())
	})
}

func TestRequiresConfirmation(t *testing.T) {
	tests := []struct {
		name   string
		memory *domain.ExtractedMemory
		want   bool
	}{
		{"nil extraction", nil, false},
		{"empty extraction", &domain.ExtractedMemory{}, false},
		{
			"any fact",
			&domain.ExtractedMemory{Facts: []domain.ExtractedFact{{Statement: "s", Confidence: domain.ConfidenceLow}}},
			true,
		},
		{
			"any profile update",
			&domain.ExtractedMemory{ProfileUpdates: []domain.ExtractedProfileUpdate{{Key: "k"}}},
			true,
		},
		{
			"low importance note only",
			&domain.ExtractedMemory{Notes: []domain.ExtractedNote{{Content: "c", Importance: domain.ImportanceLow}}},
			false,
		},
		{
			"high importance note",
			&domain.ExtractedMemory{Notes: []domain.ExtractedNote{
				{Content: "c", Importance: domain.ImportanceLow},
				{Content: "d", Importance: domain.ImportanceHigh},
			}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresConfirmation(tt.memory))
		})
	}
}

type MockFactWriter struct {
	mock.Mock
}

func (m *MockFactWriter) Create(ctx context.Context, input CreateFactInput) (*domain.Fact, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Fact), args.Error(1)
}

type MockNoteWriter struct {
	mock.Mock
}

func (m *MockNoteWriter) Create(ctx context.Context, input CreateNoteInput) (*domain.Note, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

type MockProfileWriter struct {
	mock.Mock
}

func (m *MockProfileWriter) Create(ctx context.Context, input CreateProfileEntryInput) (*domain.ProfileEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProfileEntry), args.Error(1)
}

func TestSaveExtractedMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("saves all item kinds with inference source", func(t *testing.T) {
		facts := new(MockFactWriter)
		notes := new(MockNoteWriter)
		profile := new(MockProfileWriter)

		facts.On("Create", mock.Anything, mock.MatchedBy(func(input CreateFactInput) bool {
			return input.SpaceID == "space-1" &&
				input.Statement == "works at Acme" &&
				input.Source.Type == domain.SourceTypeInference &&
				input.Source.Reference == "volunteered during chat: user said so"
		})).Return(&domain.Fact{ID: "f1"}, nil)

		notes.On("Create", mock.Anything, mock.MatchedBy(func(input CreateNoteInput) bool {
			return input.Content == "considering a move" &&
				input.FactCandidate &&
				input.Source.Type == domain.SourceTypeInference
		})).Return(&domain.Note{ID: "n1"}, nil)

		profile.On("Create", mock.Anything, mock.MatchedBy(func(input CreateProfileEntryInput) bool {
			return input.Key == "city" && input.Source.Type == domain.SourceTypeInference
		})).Return(&domain.ProfileEntry{ID: "p1"}, nil)

		extractor := NewMemoryExtractor(facts, notes, profile)
		result := extractor.SaveExtractedMemory(ctx, "space-1", "owner-1", &domain.ExtractedMemory{
			Facts: []domain.ExtractedFact{
				{Category: "work", Statement: "works at Acme", Confidence: domain.ConfidenceHigh, Reason: "user said so"},
			},
			Notes: []domain.ExtractedNote{
				{Content: "considering a move", Importance: domain.ImportanceHigh},
			},
			ProfileUpdates: []domain.ExtractedProfileUpdate{
				{Category: "identity", Key: "city", Value: domain.StringValue("Lisbon")},
			},
		})

		assert.Equal(t, SaveResult{SavedFacts: 1, SavedNotes: 1, SavedProfileUpdates: 1}, result)
		facts.AssertExpectations(t)
		notes.AssertExpectations(t)
		profile.AssertExpectations(t)
	})

	t.Run("one failure does not abort the rest", func(t *testing.T) {
		facts := new(MockFactWriter)
		notes := new(MockNoteWriter)
		profile := new(MockProfileWriter)

		facts.On("Create", mock.Anything, mock.MatchedBy(func(input CreateFactInput) bool {
			return input.Statement == "first"
		})).Return(nil, errors.New("db down"))
		facts.On("Create", mock.Anything, mock.MatchedBy(func(input CreateFactInput) bool {
			return input.Statement == "second"
		})).Return(&domain.Fact{ID: "f2"}, nil)

		extractor := NewMemoryExtractor(facts, notes, profile)
		result := extractor.SaveExtractedMemory(ctx, "space-1", "owner-1", &domain.ExtractedMemory{
			Facts: []domain.ExtractedFact{
				{Category: "c", Statement: "first", Confidence: domain.ConfidenceLow},
				{Category: "c", Statement: "second", Confidence: domain.ConfidenceLow},
			},
		})

		assert.Equal(t, SaveResult{SavedFacts: 1}, result)
		facts.AssertExpectations(t)
	})

	t.Run("nil extraction is a no-op", func(t *testing.T) {
		extractor := NewMemoryExtractor(new(MockFactWriter), new(MockNoteWriter), new(MockProfileWriter))
		assert.Equal(t, SaveResult{}, extractor.SaveExtractedMemory(ctx, "space-1", "owner-1", nil))
	})
}
