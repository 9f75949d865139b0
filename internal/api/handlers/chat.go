package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/recallware/memspace/internal/api"
	"github.com/recallware/memspace/internal/api/middleware"
	"github.com/recallware/memspace/internal/service"
)

type ChatService interface {
	Chat(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error)
}

type ChatHandler struct {
	guard SpaceGuard
	svc   ChatService
}

func NewChatHandler(guard SpaceGuard, svc ChatService) *ChatHandler {
	return &ChatHandler{guard: guard, svc: svc}
}

type ChatAPIRequest struct {
	SpaceID     string   `json:"spaceId"`
	SessionID   string   `json:"sessionId,omitempty"`
	Message     string   `json:"message"`
	Attachments []string `json:"attachments,omitempty"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SpaceID == "" {
		api.Error(w, http.StatusBadRequest, "spaceId is required")
		return
	}
	if req.Message == "" && len(req.Attachments) == 0 {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	if _, err := h.guard.GetOwned(r.Context(), req.SpaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	resp, err := h.svc.Chat(r.Context(), service.ChatRequest{
		SpaceID:     req.SpaceID,
		OwnerID:     ownerID,
		SessionID:   req.SessionID,
		Message:     req.Message,
		Attachments: req.Attachments,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resp)
}
