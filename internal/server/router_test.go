package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recallware/memspace/internal/api/handlers"
	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/service"
)

const testToken = "mem_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type MockSpaceService struct {
	mock.Mock
}

func (m *MockSpaceService) Create(ctx context.Context, input service.CreateSpaceInput) (*domain.Space, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Space), args.Error(1)
}

func (m *MockSpaceService) GetOwned(ctx context.Context, spaceID, ownerID string) (*domain.Space, error) {
	args := m.Called(ctx, spaceID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Space), args.Error(1)
}

func (m *MockSpaceService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Space, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Space), args.Error(1)
}

func (m *MockSpaceService) Update(ctx context.Context, input service.UpdateSpaceInput) (*domain.Space, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Space), args.Error(1)
}

func (m *MockSpaceService) Delete(ctx context.Context, spaceID string) error {
	args := m.Called(ctx, spaceID)
	return args.Error(0)
}

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

func setupRouter() (http.Handler, *MockAuthValidator, *MockSpaceService, *MockChatService) {
	authValidator := new(MockAuthValidator)
	spaceSvc := new(MockSpaceService)
	chatSvc := new(MockChatService)

	spaceHandler := handlers.NewSpaceHandler(spaceSvc)

	cfg := RouterConfig{
		AuthValidator:   authValidator,
		SpaceHandler:    spaceHandler,
		ChatHandler:     handlers.NewChatHandler(spaceSvc, chatSvc),
		FactHandler:     handlers.NewFactHandler(spaceSvc, nil),
		NoteHandler:     handlers.NewNoteHandler(spaceSvc, nil),
		ProfileHandler:  handlers.NewProfileHandler(spaceSvc, nil),
		TimelineHandler: handlers.NewTimelineHandler(spaceSvc, nil),
		SessionHandler:  handlers.NewSessionHandler(spaceSvc, nil),
		AuthHandler:     handlers.NewAuthHandler(nil),
	}

	router := NewRouter(cfg)
	return router, authValidator, spaceSvc, chatSvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, authValidator, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/chat"},
		{http.MethodGet, "/spaces"},
		{http.MethodPost, "/spaces"},
		{http.MethodGet, "/spaces/123"},
		{http.MethodPut, "/spaces/123"},
		{http.MethodDelete, "/spaces/123"},
		{http.MethodGet, "/spaces/123/facts"},
		{http.MethodPost, "/spaces/123/notes"},
		{http.MethodGet, "/spaces/123/profile"},
		{http.MethodGet, "/spaces/123/timeline"},
		{http.MethodGet, "/facts/f-1"},
		{http.MethodPost, "/notes/n-1/promote"},
		{http.MethodGet, "/sessions"},
		{http.MethodGet, "/sessions/s-1/export"},
		{http.MethodPost, "/keys"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	authValidator.AssertExpectations(t)
}

func TestRouter_AuthenticatedRoutes_WithValidAuth(t *testing.T) {
	router, authValidator, spaceSvc, _ := setupRouter()

	authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return("owner-1", nil)

	expectedSpace := &domain.Space{
		ID:        "space-1",
		OwnerID:   "owner-1",
		Name:      "personal",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	spaceSvc.On("GetOwned", mock.Anything, "space-1", "owner-1").Return(expectedSpace, nil)

	req := httptest.NewRequest(http.MethodGet, "/spaces/space-1", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	authValidator.AssertExpectations(t)
	spaceSvc.AssertExpectations(t)
}

func TestRouter_ChatRoute(t *testing.T) {
	router, authValidator, spaceSvc, chatSvc := setupRouter()

	authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return("owner-1", nil)

	space := &domain.Space{ID: "space-1", OwnerID: "owner-1", Name: "personal"}
	spaceSvc.On("GetOwned", mock.Anything, "space-1", "owner-1").Return(space, nil)

	chatSvc.On("Chat", mock.Anything, service.ChatRequest{
		SpaceID: "space-1",
		OwnerID: "owner-1",
		Message: "hello",
	}).Return(&service.ChatResponse{
		SessionID: "sess-1",
		Message:   domain.ChatMessage{Role: domain.RoleAssistant, Content: domain.TextContent("hi there")},
	}, nil)

	body := `{"spaceId":"space-1","message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	chatSvc.AssertExpectations(t)
}
