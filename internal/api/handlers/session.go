package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recallware/memspace/internal/api"
	"github.com/recallware/memspace/internal/api/middleware"
	"github.com/recallware/memspace/internal/domain"
)

type SessionManager interface {
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, spaceID string) ([]*domain.ChatSession, error)
	UpdateSession(ctx context.Context, sessionID, name string) (*domain.ChatSession, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	GetChatHistory(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
	ExportSession(ctx context.Context, sessionID string) ([]byte, error)
}

type SessionHandler struct {
	guard SpaceGuard
	svc   SessionManager
}

func NewSessionHandler(guard SpaceGuard, svc SessionManager) *SessionHandler {
	return &SessionHandler{guard: guard, svc: svc}
}

type RenameSessionRequest struct {
	Name string `json:"name"`
}

// SessionSummaryResponse describes a session without its messages.
type SessionSummaryResponse struct {
	ID           string `json:"id"`
	SpaceID      string `json:"spaceId"`
	Name         string `json:"name,omitempty"`
	MessageCount int    `json:"messageCount"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func sessionToSummary(s *domain.ChatSession) *SessionSummaryResponse {
	return &SessionSummaryResponse{
		ID:           s.ID,
		SpaceID:      s.SpaceID,
		Name:         s.Name,
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := r.URL.Query().Get("spaceId")

	if spaceID == "" {
		api.Error(w, http.StatusBadRequest, "spaceId is required")
		return
	}

	if _, err := h.guard.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), spaceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SessionSummaryResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, sessionToSummary(s))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *SessionHandler) getOwnedSession(r *http.Request) (*domain.ChatSession, error) {
	ownerID := middleware.GetOwnerID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.svc.GetSession(r.Context(), sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := h.guard.GetOwned(r.Context(), sess.SpaceID, ownerID); err != nil {
		return nil, domain.ErrSessionNotFound
	}

	return sess, nil
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.getOwnedSession(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sessionToSummary(sess))
}

func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	sess, err := h.getOwnedSession(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req RenameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	updated, err := h.svc.UpdateSession(r.Context(), sess.ID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sessionToSummary(updated))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, err := h.getOwnedSession(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if _, err := h.svc.DeleteSession(r.Context(), sess.ID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	sess, err := h.getOwnedSession(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	messages, err := h.svc.GetChatHistory(r.Context(), sess.ID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, messages)
}

// Export streams the canonical JSON document of a session as a file
// download.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	sess, err := h.getOwnedSession(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	data, err := h.svc.ExportSession(r.Context(), sess.ID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="session-`+sess.ID+`.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
