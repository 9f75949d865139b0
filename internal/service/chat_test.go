package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/session"
)

type MockChatSpaceReader struct {
	mock.Mock
}

func (m *MockChatSpaceReader) GetByID(ctx context.Context, id string) (*domain.Space, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Space), args.Error(1)
}

type fakePromptBuilder struct {
	prompt string
	err    error
}

func (f *fakePromptBuilder) BuildSystemPrompt(ctx context.Context, spaceID string) (string, error) {
	return f.prompt, f.err
}

type fakeTransport struct {
	configured bool
	reply      string
	err        error
	gotPrompt  string
	gotHistory []domain.ChatMessage
	calls      int
}

func (f *fakeTransport) IsConfigured() bool {
	return f.configured
}

func (f *fakeTransport) ChatCompletion(ctx context.Context, systemPrompt string, history []domain.ChatMessage) (string, error) {
	f.calls++
	f.gotPrompt = systemPrompt
	f.gotHistory = history
	return f.reply, f.err
}

type fakeSaver struct {
	calls   int
	spaceID string
	ownerID string
	memory  *domain.ExtractedMemory
	result  SaveResult
}

func (f *fakeSaver) SaveExtractedMemory(ctx context.Context, spaceID, ownerID string, memory *domain.ExtractedMemory) SaveResult {
	f.calls++
	f.spaceID = spaceID
	f.ownerID = ownerID
	f.memory = memory
	return f.result
}

type chatFixture struct {
	svc       *ChatService
	spaces    *MockChatSpaceReader
	sessions  *SessionService
	store     *session.MemoryStore
	builder   *fakePromptBuilder
	transport *fakeTransport
	saver     *fakeSaver
}

func newChatFixture() *chatFixture {
	spaces := new(MockChatSpaceReader)
	store := session.NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	sessions := NewSessionServiceWithDeps(store, &seqUUIDGenerator{}, clock.Now)
	builder := &fakePromptBuilder{prompt: "## Facts\n- [✓] likes go\n- [+] ships daily\n\n## Notes (unverified)\n- [!] planning a move"}
	transport := &fakeTransport{configured: true, reply: "plain reply"}
	saver := &fakeSaver{}

	svc := NewChatServiceWithUUIDGen(spaces, sessions, builder, transport, saver, &seqUUIDGenerator{n: 100})

	return &chatFixture{
		svc:       svc,
		spaces:    spaces,
		sessions:  sessions,
		store:     store,
		builder:   builder,
		transport: transport,
		saver:     saver,
	}
}

func (f *chatFixture) withSpace() *domain.Space {
	space := &domain.Space{ID: "space-1", OwnerID: "owner-1", Name: "Personal"}
	f.spaces.On("GetByID", mock.Anything, "space-1").Return(space, nil)
	return space
}

func TestChatHappyPathWithExtraction(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.withSpace()
	f.transport.reply = "Got it, noted.\n\n```memory_extract\n" +
		`{"facts": [{"category": "work", "statement": "works at Acme", "confidence": "high"}]}` +
		"\n```"

	resp, err := f.svc.Chat(ctx, ChatRequest{SpaceID: "space-1", OwnerID: "owner-1", Message: "I work at Acme now"})
	require.NoError(t, err)

	// The response carries the assistant turn as persisted.
	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.Equal(t, domain.TextContent("Got it, noted."), resp.Message.Content)
	assert.NotEmpty(t, resp.Message.ID)
	assert.False(t, resp.Message.Timestamp.IsZero())
	assert.Equal(t, resp.ExtractedMemory, resp.Message.ExtractedData)

	require.NotNil(t, resp.ExtractedMemory)
	require.Len(t, resp.ExtractedMemory.Facts, 1)
	assert.Equal(t, "works at Acme", resp.ExtractedMemory.Facts[0].Statement)
	assert.True(t, resp.RequiresConfirmation)

	assert.Equal(t, 2, resp.Context.FactsUsed)
	assert.Equal(t, 1, resp.Context.NotesUsed)
	assert.Equal(t, EstimateContextTokens(f.builder.prompt), resp.Context.TokensEstimate)

	// Extraction was fed back under the space's owner.
	assert.Equal(t, 1, f.saver.calls)
	assert.Equal(t, "space-1", f.saver.spaceID)
	assert.Equal(t, "owner-1", f.saver.ownerID)

	// Session holds the user turn, then the assistant turn carrying
	// the extraction.
	sess, err := f.sessions.GetSession(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, domain.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, domain.TextContent("I work at Acme now"), sess.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, sess.Messages[1].Role)
	assert.Equal(t, domain.TextContent("Got it, noted."), sess.Messages[1].Content)
	require.NotNil(t, sess.Messages[1].ExtractedData)

	// The transport saw the prompt and the history including the new
	// user turn.
	assert.Equal(t, f.builder.prompt, f.transport.gotPrompt)
	require.Len(t, f.transport.gotHistory, 1)
	assert.Equal(t, domain.RoleUser, f.transport.gotHistory[0].Role)
}

func TestChatNoExtractionBlock(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.withSpace()
	f.transport.reply = "just an answer"

	resp, err := f.svc.Chat(ctx, ChatRequest{SpaceID: "space-1", OwnerID: "owner-1", Message: "hello"})
	require.NoError(t, err)

	assert.Equal(t, domain.TextContent("just an answer"), resp.Message.Content)
	assert.Nil(t, resp.ExtractedMemory)
	assert.False(t, resp.RequiresConfirmation)
	assert.Equal(t, 0, f.saver.calls)
}

func TestChatSpaceNotFound(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.spaces.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrSpaceNotFound)

	_, err := f.svc.Chat(ctx, ChatRequest{SpaceID: "missing", OwnerID: "owner-1", Message: "hello"})
	assert.ErrorIs(t, err, domain.ErrSpaceNotFound)

	// No session came into existence for the failed turn.
	sessions, listErr := f.store.ListBySpace(ctx, "missing")
	require.NoError(t, listErr)
	assert.Empty(t, sessions)
	assert.Equal(t, 0, f.transport.calls)
}

func TestChatTransportNotConfigured(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.withSpace()
	f.transport.configured = false

	_, err := f.svc.Chat(ctx, ChatRequest{SpaceID: "space-1", OwnerID: "owner-1", Message: "hello"})
	assert.ErrorIs(t, err, domain.ErrAINotConfigured)

	sessions, listErr := f.store.ListBySpace(ctx, "space-1")
	require.NoError(t, listErr)
	assert.Empty(t, sessions)
}

func TestChatTransportFailure(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.withSpace()
	f.transport.err = errors.New("rate limited")

	_, err := f.svc.Chat(ctx, ChatRequest{SpaceID: "space-1", OwnerID: "owner-1", Message: "hello"})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeTransport, domainErr.Code)

	// The user turn was recorded before the model call and survives
	// the failure.
	sessions, listErr := f.store.ListBySpace(ctx, "space-1")
	require.NoError(t, listErr)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Messages, 1)
	assert.Equal(t, domain.RoleUser, sessions[0].Messages[0].Role)
}

func TestChatResumesExistingSession(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.withSpace()

	first, err := f.svc.Chat(ctx, ChatRequest{SpaceID: "space-1", OwnerID: "owner-1", Message: "first"})
	require.NoError(t, err)

	second, err := f.svc.Chat(ctx, ChatRequest{SpaceID: "space-1", OwnerID: "owner-1", SessionID: first.SessionID, Message: "second"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	sess, err := f.sessions.GetSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 4)

	// The second call saw the whole history.
	require.Len(t, f.transport.gotHistory, 3)
}

func TestChatWithAttachments(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.withSpace()

	_, err := f.svc.Chat(ctx, ChatRequest{
		SpaceID:     "space-1",
		OwnerID:     "owner-1",
		Message:     "what is on this receipt?",
		Attachments: []string{"https://img.example/receipt.png"},
	})
	require.NoError(t, err)

	require.Len(t, f.transport.gotHistory, 1)
	parts, ok := f.transport.gotHistory[0].Content.(domain.PartsContent)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, domain.ContentPartText, parts[0].Type)
	assert.Equal(t, "what is on this receipt?", parts[0].Text)
	assert.Equal(t, domain.ContentPartImageURL, parts[1].Type)
	assert.Equal(t, "https://img.example/receipt.png", parts[1].ImageURL.URL)
}

func TestBuildUserContent(t *testing.T) {
	t.Run("text only", func(t *testing.T) {
		content := buildUserContent("hello", nil)
		assert.Equal(t, domain.TextContent("hello"), content)
	})

	t.Run("attachments without text", func(t *testing.T) {
		content := buildUserContent("", []string{"https://img.example/a.png"})
		parts, ok := content.(domain.PartsContent)
		require.True(t, ok)
		require.Len(t, parts, 1)
		assert.Equal(t, domain.ContentPartImageURL, parts[0].Type)
	})
}
