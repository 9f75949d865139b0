package service

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/telemetry"
)

// memoryExtractRe locates the first fenced memory_extract block.
// Only the first block in a reply is honored; additional blocks are
// left in the clean text untouched.
var memoryExtractRe = regexp.MustCompile("(?s)```memory_extract\\s*(.*?)```")

// ParseMemoryExtract locates an embedded memory_extract block in raw
// model output, strips it, and returns the cleaned text plus the
// validated extraction. A missing, malformed, or effectively empty
// block yields a nil extraction and never an error: the model's
// failure to emit a well-formed optional block must not break the
// user-visible reply.
func ParseMemoryExtract(responseText string) (string, *domain.ExtractedMemory) {
	loc := memoryExtractRe.FindStringSubmatchIndex(responseText)
	if loc == nil {
		return strings.TrimSpace(responseText), nil
	}

	clean := strings.TrimSpace(responseText[:loc[0]] + responseText[loc[1]:])
	inner := responseText[loc[2]:loc[3]]

	var raw struct {
		Facts          []json.RawMessage `json:"facts"`
		Notes          []json.RawMessage `json:"notes"`
		ProfileUpdates []json.RawMessage `json:"profileUpdates"`
	}
	if err := json.Unmarshal([]byte(inner), &raw); err != nil {
		log.Printf("memory extract: discarding malformed block: %v", err)
		return clean, nil
	}

	memory := &domain.ExtractedMemory{
		Facts:          filterExtractedFacts(raw.Facts),
		Notes:          filterExtractedNotes(raw.Notes),
		ProfileUpdates: filterExtractedProfileUpdates(raw.ProfileUpdates),
	}

	if memory.IsEmpty() {
		return clean, nil
	}

	return clean, memory
}

// Items that do not match the expected shape are silently dropped;
// the payload originates from a non-deterministic model.

func filterExtractedFacts(items []json.RawMessage) []domain.ExtractedFact {
	facts := make([]domain.ExtractedFact, 0, len(items))
	for _, item := range items {
		fields, ok := objectFields(item)
		if !ok {
			continue
		}
		category, okCat := stringField(fields, "category")
		statement, okStmt := stringField(fields, "statement")
		confidence, okConf := stringField(fields, "confidence")
		if !okCat || !okStmt || !okConf || !domain.IsValidConfidence(domain.Confidence(confidence)) {
			continue
		}
		facts = append(facts, domain.ExtractedFact{
			Category:   category,
			Statement:  statement,
			Confidence: domain.Confidence(confidence),
			Tags:       stringListField(fields, "tags"),
			Reason:     optionalStringField(fields, "reason"),
		})
	}
	return facts
}

func filterExtractedNotes(items []json.RawMessage) []domain.ExtractedNote {
	notes := make([]domain.ExtractedNote, 0, len(items))
	for _, item := range items {
		fields, ok := objectFields(item)
		if !ok {
			continue
		}
		content, okContent := stringField(fields, "content")
		importance, okImp := stringField(fields, "importance")
		if !okContent || !okImp || !domain.IsValidImportance(domain.Importance(importance)) {
			continue
		}
		notes = append(notes, domain.ExtractedNote{
			Content:    content,
			Category:   optionalStringField(fields, "category"),
			Importance: domain.Importance(importance),
			Tags:       stringListField(fields, "tags"),
			Reason:     optionalStringField(fields, "reason"),
		})
	}
	return notes
}

func filterExtractedProfileUpdates(items []json.RawMessage) []domain.ExtractedProfileUpdate {
	updates := make([]domain.ExtractedProfileUpdate, 0, len(items))
	for _, item := range items {
		fields, ok := objectFields(item)
		if !ok {
			continue
		}
		category, okCat := stringField(fields, "category")
		key, okKey := stringField(fields, "key")
		rawValue, okVal := fields["value"]
		if !okCat || !okKey || !okVal {
			continue
		}
		var value domain.ProfileValue
		if err := json.Unmarshal(rawValue, &value); err != nil {
			continue
		}
		updates = append(updates, domain.ExtractedProfileUpdate{
			Category: category,
			Key:      key,
			Value:    value,
			Reason:   optionalStringField(fields, "reason"),
		})
	}
	return updates
}

func objectFields(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, fields != nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func optionalStringField(fields map[string]json.RawMessage, key string) string {
	s, _ := stringField(fields, key)
	return s
}

func stringListField(fields map[string]json.RawMessage, key string) []string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// RequiresConfirmation reports whether the extraction should be
// surfaced to the user for confirmation: any fact, any high-importance
// note, or any profile update. Pure predicate, no side effects.
func RequiresConfirmation(memory *domain.ExtractedMemory) bool {
	if memory == nil {
		return false
	}
	if len(memory.Facts) > 0 || len(memory.ProfileUpdates) > 0 {
		return true
	}
	for _, note := range memory.Notes {
		if note.Importance == domain.ImportanceHigh {
			return true
		}
	}
	return false
}

// ExtractorFactService is the fact write surface used during extraction
type ExtractorFactService interface {
	Create(ctx context.Context, input CreateFactInput) (*domain.Fact, error)
}

// ExtractorNoteService is the note write surface used during extraction
type ExtractorNoteService interface {
	Create(ctx context.Context, input CreateNoteInput) (*domain.Note, error)
}

// ExtractorProfileService is the profile write surface used during extraction
type ExtractorProfileService interface {
	Create(ctx context.Context, input CreateProfileEntryInput) (*domain.ProfileEntry, error)
}

// MemoryExtractor persists validated extractions through the service
// layer, which also records the timeline side effects.
type MemoryExtractor struct {
	facts   ExtractorFactService
	notes   ExtractorNoteService
	profile ExtractorProfileService
}

// NewMemoryExtractor creates a new MemoryExtractor instance
func NewMemoryExtractor(facts ExtractorFactService, notes ExtractorNoteService, profile ExtractorProfileService) *MemoryExtractor {
	return &MemoryExtractor{
		facts:   facts,
		notes:   notes,
		profile: profile,
	}
}

// SaveResult reports how many extracted items were persisted per kind.
type SaveResult struct {
	SavedFacts          int
	SavedNotes          int
	SavedProfileUpdates int
}

// SaveExtractedMemory persists each extracted item independently and
// best-effort: a failure saving one item is logged and does not abort
// the rest. Partial success is expected and reflected in the counts.
func (e *MemoryExtractor) SaveExtractedMemory(ctx context.Context, spaceID, ownerID string, memory *domain.ExtractedMemory) SaveResult {
	ctx, span := telemetry.StartSpan(ctx, "MemoryExtractor.SaveExtractedMemory", telemetry.SpanAttributes{
		SpaceID:   spaceID,
		OwnerID:   ownerID,
		Operation: "save_extracted",
	})
	defer span.End()

	var result SaveResult
	if memory == nil {
		return result
	}

	now := time.Now().UTC()

	for _, fact := range memory.Facts {
		_, err := e.facts.Create(ctx, CreateFactInput{
			SpaceID:    spaceID,
			OwnerID:    ownerID,
			Category:   fact.Category,
			Statement:  fact.Statement,
			Confidence: fact.Confidence,
			Tags:       fact.Tags,
			Source:     inferenceSource(fact.Reason, now),
		})
		if err != nil {
			log.Printf("memory extract: failed to save fact: %v", err)
			continue
		}
		result.SavedFacts++
	}

	for _, note := range memory.Notes {
		_, err := e.notes.Create(ctx, CreateNoteInput{
			SpaceID:       spaceID,
			OwnerID:       ownerID,
			Content:       note.Content,
			Category:      note.Category,
			Importance:    note.Importance,
			Tags:          note.Tags,
			FactCandidate: note.Importance == domain.ImportanceHigh,
			Source:        inferenceSource(note.Reason, now),
		})
		if err != nil {
			log.Printf("memory extract: failed to save note: %v", err)
			continue
		}
		result.SavedNotes++
	}

	for _, update := range memory.ProfileUpdates {
		_, err := e.profile.Create(ctx, CreateProfileEntryInput{
			SpaceID:  spaceID,
			OwnerID:  ownerID,
			Category: update.Category,
			Key:      update.Key,
			Value:    update.Value,
			Source:   inferenceSource(update.Reason, now),
		})
		if err != nil {
			log.Printf("memory extract: failed to save profile update: %v", err)
			continue
		}
		result.SavedProfileUpdates++
	}

	return result
}

// inferenceSource builds provenance for model-volunteered knowledge.
func inferenceSource(reason string, now time.Time) domain.Source {
	reference := "volunteered during chat"
	if reason != "" {
		reference = "volunteered during chat: " + reason
	}
	return domain.Source{
		Type:      domain.SourceTypeInference,
		Reference: reference,
		Timestamp: now,
	}
}
