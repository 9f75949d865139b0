package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/service"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatResponse), args.Error(1)
}

func TestChatHandler_Chat_Success(t *testing.T) {
	mockGuard := new(MockSpaceService)
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockGuard, mockSvc)

	mockGuard.On("GetOwned", mock.Anything, "space-123", "owner-456").Return(newTestSpace(), nil)
	mockSvc.On("Chat", mock.Anything, service.ChatRequest{
		SpaceID: "space-123",
		OwnerID: "owner-456",
		Message: "remember that I like espresso",
	}).Return(&service.ChatResponse{
		SessionID: "sess-1",
		Message: domain.ChatMessage{
			ID:      "msg-2",
			Role:    domain.RoleAssistant,
			Content: domain.TextContent("Noted, you like espresso."),
		},
	}, nil)

	body := `{"spaceId":"space-123","message":"remember that I like espresso"}`
	req := requestWithOwnerID(http.MethodPost, "/chat", []byte(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "sess-1", data["sessionId"])
	message := data["message"].(map[string]interface{})
	assert.Equal(t, "msg-2", message["id"])
	assert.Equal(t, "assistant", message["role"])
	assert.Equal(t, "Noted, you like espresso.", message["content"])
	assert.Equal(t, false, data["requiresConfirmation"])
	mockGuard.AssertExpectations(t)
	mockSvc.AssertExpectations(t)
}

func TestChatHandler_Chat_Unauthorized(t *testing.T) {
	handler := NewChatHandler(new(MockSpaceService), new(MockChatService))

	body := `{"spaceId":"space-123","message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatHandler_Chat_MissingSpaceID(t *testing.T) {
	handler := NewChatHandler(new(MockSpaceService), new(MockChatService))

	body := `{"message":"hello"}`
	req := requestWithOwnerID(http.MethodPost, "/chat", []byte(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "spaceId is required")
}

func TestChatHandler_Chat_MissingMessage(t *testing.T) {
	handler := NewChatHandler(new(MockSpaceService), new(MockChatService))

	body := `{"spaceId":"space-123"}`
	req := requestWithOwnerID(http.MethodPost, "/chat", []byte(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "message is required")
}

func TestChatHandler_Chat_AttachmentsOnly(t *testing.T) {
	mockGuard := new(MockSpaceService)
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockGuard, mockSvc)

	mockGuard.On("GetOwned", mock.Anything, "space-123", "owner-456").Return(newTestSpace(), nil)
	mockSvc.On("Chat", mock.Anything, mock.MatchedBy(func(req service.ChatRequest) bool {
		return req.Message == "" && len(req.Attachments) == 1
	})).Return(&service.ChatResponse{
		SessionID: "sess-1",
		Message:   domain.ChatMessage{Role: domain.RoleAssistant, Content: domain.TextContent("Got the file.")},
	}, nil)

	body := `{"spaceId":"space-123","attachments":["report.pdf"]}`
	req := requestWithOwnerID(http.MethodPost, "/chat", []byte(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockGuard.AssertExpectations(t)
	mockSvc.AssertExpectations(t)
}

func TestChatHandler_Chat_SpaceNotOwned(t *testing.T) {
	mockGuard := new(MockSpaceService)
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockGuard, mockSvc)

	mockGuard.On("GetOwned", mock.Anything, "space-999", "owner-456").Return(nil, domain.ErrSpaceNotFound)

	body := `{"spaceId":"space-999","message":"hello"}`
	req := requestWithOwnerID(http.MethodPost, "/chat", []byte(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestChatHandler_Chat_NotConfigured(t *testing.T) {
	mockGuard := new(MockSpaceService)
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockGuard, mockSvc)

	mockGuard.On("GetOwned", mock.Anything, "space-123", "owner-456").Return(newTestSpace(), nil)
	mockSvc.On("Chat", mock.Anything, mock.Anything).Return(nil, domain.ErrAINotConfigured)

	body := `{"spaceId":"space-123","message":"hello"}`
	req := requestWithOwnerID(http.MethodPost, "/chat", []byte(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	mockSvc.AssertExpectations(t)
}
