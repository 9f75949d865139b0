package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/telemetry"
)

const (
	// MaxFactsInContext caps the facts section; confidence-first
	// ordering guarantees higher-confidence facts are never truncated
	// out in favor of lower-confidence ones.
	MaxFactsInContext = 30
	// MaxNotesInContext caps the notes section.
	MaxNotesInContext = 15
	// MaxTimelineInContext caps the timeline section.
	MaxTimelineInContext = 10

	// tokenEstimateDivisor approximates tokens from character count.
	// Observability only; the section caps are the real token control.
	tokenEstimateDivisor = 4
)

// Confidence and importance glyphs used as line prefixes. The chat
// response usage counts re-scan the rendered prompt for these.
var (
	confidenceGlyphs = map[domain.Confidence]string{
		domain.ConfidenceVerified: "[✓]",
		domain.ConfidenceHigh:     "[+]",
		domain.ConfidenceMedium:   "[~]",
		domain.ConfidenceLow:      "[?]",
	}
	importanceGlyphs = map[domain.Importance]string{
		domain.ImportanceHigh:   "[!]",
		domain.ImportanceMedium: "[-]",
		domain.ImportanceLow:    "[.]",
	}
)

// ContextStoreInterface is the read surface of the knowledge store
// consumed during prompt assembly.
type ContextStoreInterface interface {
	GetSpace(ctx context.Context, spaceID string) (*domain.Space, error)
	ListProfile(ctx context.Context, spaceID string) ([]*domain.ProfileEntry, error)
	ListFacts(ctx context.Context, spaceID string) ([]*domain.Fact, error)
	ListNotes(ctx context.Context, spaceID string) ([]*domain.Note, error)
	ListTimeline(ctx context.Context, spaceID string) ([]*domain.TimelineEntry, error)
}

// ContextParts holds the independently rendered sections of the system
// prompt.
type ContextParts struct {
	BaseInstructions       string
	SpaceContext           string
	ProfileSection         string
	FactsSection           string
	NotesSection           string
	TimelineSection        string
	ExtractionInstructions string
}

// ContextBuilder assembles a bounded system prompt from the stored
// knowledge of a space. It holds no mutable state; the prompt is a
// pure function of the store's current snapshot.
type ContextBuilder struct {
	store ContextStoreInterface
	now   func() time.Time
}

// NewContextBuilder creates a new ContextBuilder instance
func NewContextBuilder(store ContextStoreInterface) *ContextBuilder {
	return &ContextBuilder{
		store: store,
		now:   time.Now,
	}
}

// NewContextBuilderWithClock creates a ContextBuilder with a custom clock (for testing)
func NewContextBuilderWithClock(store ContextStoreInterface, now func() time.Time) *ContextBuilder {
	return &ContextBuilder{
		store: store,
		now:   now,
	}
}

// BuildSystemPrompt renders the full system prompt for a space.
// A missing space is fatal for the whole build; there is no partial
// prompt fallback.
func (b *ContextBuilder) BuildSystemPrompt(ctx context.Context, spaceID string) (string, error) {
	parts, err := b.BuildContextParts(ctx, spaceID)
	if err != nil {
		return "", err
	}
	return parts.Join(), nil
}

// Join concatenates the non-empty sections with blank lines.
func (p *ContextParts) Join() string {
	sections := []string{
		p.BaseInstructions,
		p.SpaceContext,
		p.ProfileSection,
		p.FactsSection,
		p.NotesSection,
		p.TimelineSection,
		p.ExtractionInstructions,
	}

	nonEmpty := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

// BuildContextParts reads the knowledge containers for the space and
// renders each prompt section.
func (b *ContextBuilder) BuildContextParts(ctx context.Context, spaceID string) (*ContextParts, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContextBuilder.BuildContextParts", telemetry.SpanAttributes{
		SpaceID:   spaceID,
		Operation: "build_context",
	})
	defer span.End()

	space, err := b.store.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	profile, err := b.store.ListProfile(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	facts, err := b.store.ListFacts(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	notes, err := b.store.ListNotes(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	timeline, err := b.store.ListTimeline(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	return &ContextParts{
		BaseInstructions:       renderBaseInstructions(space),
		SpaceContext:           renderSpaceContext(space),
		ProfileSection:         renderProfileSection(profile, b.now()),
		FactsSection:           renderFactsSection(facts),
		NotesSection:           renderNotesSection(notes),
		TimelineSection:        renderTimelineSection(timeline),
		ExtractionInstructions: extractionInstructions,
	}, nil
}

func renderBaseInstructions(space *domain.Space) string {
	var b strings.Builder
	b.WriteString("You are a personal assistant with persistent memory for this space.\n")
	b.WriteString("\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Never ask the user for information already present in the memory sections below.\n")
	b.WriteString("- Treat facts as reliable knowledge. Treat notes as unverified observations and say so when you rely on one.\n")
	b.WriteString("- When you detect new lasting information in the conversation, tell the user you have noted it.")

	if space.Rules.AllowHealthData {
		b.WriteString("\n- Health topics may be discussed in this space. Use advisory language only and never present anything as a diagnosis.")
	}

	if space.Rules.CustomInstructions != "" {
		b.WriteString("\n\nAdditional instructions for this space:\n")
		b.WriteString(space.Rules.CustomInstructions)
	}

	return b.String()
}

func renderSpaceContext(space *domain.Space) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Space: %s", space.Name)
	if space.Description != "" {
		b.WriteString("\n")
		b.WriteString(space.Description)
	}
	return b.String()
}

// renderProfileSection keeps only currently valid entries, grouped by
// category. An empty profile renders an explicit placeholder so the
// model never infers emptiness from silence.
func renderProfileSection(entries []*domain.ProfileEntry, now time.Time) string {
	valid := make([]*domain.ProfileEntry, 0, len(entries))
	for _, e := range entries {
		if e.ValidAt(now) {
			valid = append(valid, e)
		}
	}

	var b strings.Builder
	b.WriteString("## User profile")

	if len(valid) == 0 {
		b.WriteString("\nThe profile is empty. Nothing is known about the user yet.")
		return b.String()
	}

	for _, category := range groupedCategories(valid, func(e *domain.ProfileEntry) string { return e.Category }) {
		fmt.Fprintf(&b, "\n\n### %s", category)
		for _, e := range valid {
			if e.Category != category {
				continue
			}
			fmt.Fprintf(&b, "\n- %s: %s", e.Key, e.Value.String())
		}
	}

	return b.String()
}

// renderFactsSection sorts by confidence rank then recency, truncates
// to MaxFactsInContext, and groups by category.
func renderFactsSection(facts []*domain.Fact) string {
	if len(facts) == 0 {
		return ""
	}

	ranked := make([]*domain.Fact, len(facts))
	copy(ranked, facts)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := domain.ConfidenceRank(ranked[i].Confidence), domain.ConfidenceRank(ranked[j].Confidence)
		if ri != rj {
			return ri < rj
		}
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})

	if len(ranked) > MaxFactsInContext {
		ranked = ranked[:MaxFactsInContext]
	}

	var b strings.Builder
	b.WriteString("## Facts")

	for _, category := range groupedCategories(ranked, func(f *domain.Fact) string { return f.Category }) {
		fmt.Fprintf(&b, "\n\n### %s", category)
		for _, f := range ranked {
			if f.Category != category {
				continue
			}
			fmt.Fprintf(&b, "\n- %s %s", confidenceGlyphs[normalizeConfidence(f.Confidence)], f.Statement)
			if len(f.Tags) > 0 {
				fmt.Fprintf(&b, " (tags: %s)", strings.Join(f.Tags, ", "))
			}
		}
	}

	return b.String()
}

// renderNotesSection excludes promoted notes, which are superseded by
// their fact and must not be presented twice.
func renderNotesSection(notes []*domain.Note) string {
	active := make([]*domain.Note, 0, len(notes))
	for _, n := range notes {
		if n.IsPromoted() {
			continue
		}
		active = append(active, n)
	}

	if len(active) == 0 {
		return ""
	}

	sort.SliceStable(active, func(i, j int) bool {
		ri, rj := domain.ImportanceRank(active[i].Importance), domain.ImportanceRank(active[j].Importance)
		if ri != rj {
			return ri < rj
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	if len(active) > MaxNotesInContext {
		active = active[:MaxNotesInContext]
	}

	var b strings.Builder
	b.WriteString("## Notes (unverified)")
	for _, n := range active {
		fmt.Fprintf(&b, "\n- %s %s", importanceGlyphs[normalizeImportance(n.Importance)], n.Content)
	}

	return b.String()
}

// renderTimelineSection is a flat recency-ordered list, independent of
// category.
func renderTimelineSection(entries []*domain.TimelineEntry) string {
	if len(entries) == 0 {
		return ""
	}

	recent := make([]*domain.TimelineEntry, len(entries))
	copy(recent, entries)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})

	if len(recent) > MaxTimelineInContext {
		recent = recent[:MaxTimelineInContext]
	}

	var b strings.Builder
	b.WriteString("## Recent activity")
	for _, e := range recent {
		fmt.Fprintf(&b, "\n- %s %s", e.Timestamp.UTC().Format("2006-01-02"), e.Title)
		if e.Description != "" {
			fmt.Fprintf(&b, ": %s", e.Description)
		}
	}

	return b.String()
}

const extractionInstructions = "## Memory extraction\n" +
	"If, and only if, the conversation surfaces genuinely new lasting information about the user, " +
	"append the following block to the very end of your reply:\n" +
	"```memory_extract\n" +
	"{\"facts\": [{\"category\": \"...\", \"statement\": \"...\", \"confidence\": \"low|medium|high|verified\", \"reason\": \"...\"}], " +
	"\"notes\": [{\"content\": \"...\", \"importance\": \"low|medium|high\", \"reason\": \"...\"}], " +
	"\"profileUpdates\": [{\"category\": \"...\", \"key\": \"...\", \"value\": \"...\", \"reason\": \"...\"}]}\n" +
	"```\n" +
	"Omit the block entirely when there is nothing new. Never mention the block itself to the user."

// EstimateContextTokens is a cheap length-based token approximation,
// used for observability and budgeting only.
func EstimateContextTokens(prompt string) int {
	return len(prompt) / tokenEstimateDivisor
}

// CountFactLines counts rendered fact bullets in a prompt by their
// confidence glyph prefixes. An approximation derived from the text,
// not from the structured data.
func CountFactLines(prompt string) int {
	return countGlyphLines(prompt, confidenceGlyphs[domain.ConfidenceVerified],
		confidenceGlyphs[domain.ConfidenceHigh],
		confidenceGlyphs[domain.ConfidenceMedium],
		confidenceGlyphs[domain.ConfidenceLow])
}

// CountNoteLines counts rendered note bullets in a prompt by their
// importance glyph prefixes.
func CountNoteLines(prompt string) int {
	return countGlyphLines(prompt, importanceGlyphs[domain.ImportanceHigh],
		importanceGlyphs[domain.ImportanceMedium],
		importanceGlyphs[domain.ImportanceLow])
}

func countGlyphLines(prompt string, glyphs ...string) int {
	count := 0
	for _, line := range strings.Split(prompt, "\n") {
		for _, glyph := range glyphs {
			if strings.HasPrefix(line, "- "+glyph+" ") {
				count++
				break
			}
		}
	}
	return count
}

// groupedCategories returns categories in order of first appearance.
func groupedCategories[T any](items []T, category func(T) string) []string {
	seen := make(map[string]bool)
	var ordered []string
	for _, item := range items {
		c := category(item)
		if !seen[c] {
			seen[c] = true
			ordered = append(ordered, c)
		}
	}
	return ordered
}

func normalizeConfidence(c domain.Confidence) domain.Confidence {
	if domain.IsValidConfidence(c) {
		return c
	}
	return domain.ConfidenceLow
}

func normalizeImportance(i domain.Importance) domain.Importance {
	if domain.IsValidImportance(i) {
		return i
	}
	return domain.ImportanceLow
}
