package service

import (
	"context"
	"errors"
	"log"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/telemetry"
)

// ChatSpaceReaderInterface resolves the target space before any
// session state is touched.
type ChatSpaceReaderInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Space, error)
}

// ChatSessionManagerInterface is the session surface the orchestrator needs
type ChatSessionManagerInterface interface {
	GetOrCreateSession(ctx context.Context, spaceID, sessionID string) (*domain.ChatSession, error)
	AppendMessage(ctx context.Context, sessionID string, msg domain.ChatMessage) (*domain.ChatSession, error)
}

// ContextBuilderInterface renders the system prompt for a space
type ContextBuilderInterface interface {
	BuildSystemPrompt(ctx context.Context, spaceID string) (string, error)
}

// ChatTransportInterface is the model transport surface
type ChatTransportInterface interface {
	IsConfigured() bool
	ChatCompletion(ctx context.Context, systemPrompt string, history []domain.ChatMessage) (string, error)
}

// MemorySaverInterface persists a parsed extraction best-effort
type MemorySaverInterface interface {
	SaveExtractedMemory(ctx context.Context, spaceID, ownerID string, memory *domain.ExtractedMemory) SaveResult
}

// ChatService orchestrates one chat turn: resolve the space and
// session, record the user turn, assemble the prompt, call the model,
// parse the reply for extracted memory, record the assistant turn, and
// feed the extraction back into storage.
type ChatService struct {
	spaces    ChatSpaceReaderInterface
	sessions  ChatSessionManagerInterface
	builder   ContextBuilderInterface
	transport ChatTransportInterface
	saver     MemorySaverInterface
	uuidGen   UUIDGenerator
}

// NewChatService creates a new ChatService instance
func NewChatService(
	spaces ChatSpaceReaderInterface,
	sessions ChatSessionManagerInterface,
	builder ContextBuilderInterface,
	transport ChatTransportInterface,
	saver MemorySaverInterface,
) *ChatService {
	return &ChatService{
		spaces:    spaces,
		sessions:  sessions,
		builder:   builder,
		transport: transport,
		saver:     saver,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewChatServiceWithUUIDGen creates a new ChatService with custom UUID generator (for testing)
func NewChatServiceWithUUIDGen(
	spaces ChatSpaceReaderInterface,
	sessions ChatSessionManagerInterface,
	builder ContextBuilderInterface,
	transport ChatTransportInterface,
	saver MemorySaverInterface,
	uuidGen UUIDGenerator,
) *ChatService {
	return &ChatService{
		spaces:    spaces,
		sessions:  sessions,
		builder:   builder,
		transport: transport,
		saver:     saver,
		uuidGen:   uuidGen,
	}
}

// ChatRequest represents one user turn
type ChatRequest struct {
	SpaceID     string
	OwnerID     string
	SessionID   string
	Message     string
	Attachments []string
}

// ChatContextStats reports what the rendered prompt carried, derived
// by re-scanning the prompt text rather than the structured data.
type ChatContextStats struct {
	FactsUsed      int `json:"factsUsed"`
	NotesUsed      int `json:"notesUsed"`
	TokensEstimate int `json:"tokensEstimate"`
}

// ChatResponse represents the outcome of one chat turn. Message is
// the assistant turn as persisted, so callers can correlate it with
// session history without refetching the session.
type ChatResponse struct {
	SessionID            string                  `json:"sessionId"`
	Message              domain.ChatMessage      `json:"message"`
	ExtractedMemory      *domain.ExtractedMemory `json:"extractedMemory,omitempty"`
	RequiresConfirmation bool                    `json:"requiresConfirmation"`
	Context              ChatContextStats        `json:"context"`
}

// Chat performs one chat turn. The space and transport checks come
// before any session mutation, and the user turn is appended before
// the model call so a transport failure still leaves it recorded.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Chat", telemetry.SpanAttributes{
		SpaceID:   req.SpaceID,
		SessionID: req.SessionID,
		OwnerID:   req.OwnerID,
		Operation: "chat",
	})
	defer span.End()

	space, err := s.spaces.GetByID(ctx, req.SpaceID)
	if err != nil {
		return nil, err
	}

	if !s.transport.IsConfigured() {
		return nil, domain.ErrAINotConfigured
	}

	sess, err := s.sessions.GetOrCreateSession(ctx, space.ID, req.SessionID)
	if err != nil {
		return nil, err
	}

	userMsg := domain.ChatMessage{
		ID:      s.uuidGen.NewString(),
		Role:    domain.RoleUser,
		Content: buildUserContent(req.Message, req.Attachments),
	}

	sess, err = s.sessions.AppendMessage(ctx, sess.ID, userMsg)
	if err != nil {
		return nil, err
	}

	prompt, err := s.builder.BuildSystemPrompt(ctx, space.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.transport.ChatCompletion(ctx, prompt, sess.Messages)
	if err != nil {
		if errors.Is(err, domain.ErrAINotConfigured) {
			return nil, err
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeTransport, "model call failed", err)
	}

	clean, extracted := ParseMemoryExtract(reply)

	assistantMsg := domain.ChatMessage{
		ID:            s.uuidGen.NewString(),
		Role:          domain.RoleAssistant,
		Content:       domain.TextContent(clean),
		ExtractedData: extracted,
	}

	sess, err = s.sessions.AppendMessage(ctx, sess.ID, assistantMsg)
	if err != nil {
		return nil, err
	}
	stored := sess.Messages[len(sess.Messages)-1]

	// The assistant turn is durably recorded; extraction persistence
	// from here on is best-effort and never fails the response.
	if extracted != nil {
		saved := s.saver.SaveExtractedMemory(ctx, space.ID, space.OwnerID, extracted)
		log.Printf("chat: saved extracted memory for space %s: %d facts, %d notes, %d profile updates",
			space.ID, saved.SavedFacts, saved.SavedNotes, saved.SavedProfileUpdates)
	}

	return &ChatResponse{
		SessionID:            sess.ID,
		Message:              stored,
		ExtractedMemory:      extracted,
		RequiresConfirmation: RequiresConfirmation(extracted),
		Context: ChatContextStats{
			FactsUsed:      CountFactLines(prompt),
			NotesUsed:      CountNoteLines(prompt),
			TokensEstimate: EstimateContextTokens(prompt),
		},
	}, nil
}

// buildUserContent packs the message and any image attachments into
// the content union. Attachments force the parts variant, with the
// text first when present.
func buildUserContent(message string, attachments []string) domain.MessageContent {
	if len(attachments) == 0 {
		return domain.TextContent(message)
	}

	parts := make(domain.PartsContent, 0, len(attachments)+1)
	if message != "" {
		parts = append(parts, domain.ContentPart{
			Type: domain.ContentPartText,
			Text: message,
		})
	}
	for _, url := range attachments {
		parts = append(parts, domain.ContentPart{
			Type:     domain.ContentPartImageURL,
			ImageURL: &domain.ImageURL{URL: url},
		})
	}
	return parts
}
