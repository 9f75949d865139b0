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

type AuthService interface {
	CreateAPIKey(ctx context.Context, ownerID, name string) (string, *domain.APIKey, error)
	GetAPIKey(ctx context.Context, keyID string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context, ownerID string) ([]*domain.APIKey, error)
	RevokeAPIKey(ctx context.Context, keyID string) error
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	RevokedAt string `json:"revokedAt,omitempty"`
}

// CreateAPIKeyResponse carries the plaintext token. It is returned
// exactly once, at creation.
type CreateAPIKeyResponse struct {
	Key   *APIKeyResponse `json:"key"`
	Token string          `json:"token"`
}

func apiKeyToResponse(k *domain.APIKey) *APIKeyResponse {
	resp := &APIKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		CreatedAt: k.CreatedAt.Format(time.RFC3339),
	}
	if k.RevokedAt != nil {
		resp.RevokedAt = k.RevokedAt.Format(time.RFC3339)
	}
	return resp
}

func (h *AuthHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	token, key, err := h.svc.CreateAPIKey(r.Context(), ownerID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateAPIKeyResponse{
		Key:   apiKeyToResponse(key),
		Token: token,
	})
}

func (h *AuthHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keys, err := h.svc.ListAPIKeys(r.Context(), ownerID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		responses = append(responses, apiKeyToResponse(k))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	keyID := chi.URLParam(r, "keyID")

	key, err := h.svc.GetAPIKey(r.Context(), keyID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if key.OwnerID != ownerID {
		api.HandleError(w, domain.ErrAPIKeyNotFound)
		return
	}

	if err := h.svc.RevokeAPIKey(r.Context(), key.ID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "revoked"})
}
