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
	"github.com/recallware/memspace/internal/service"
)

// SpaceGuard resolves a space while enforcing ownership. Handlers for
// nested resources use it before touching anything inside a space.
type SpaceGuard interface {
	GetOwned(ctx context.Context, spaceID, ownerID string) (*domain.Space, error)
}

type SpaceService interface {
	SpaceGuard
	Create(ctx context.Context, input service.CreateSpaceInput) (*domain.Space, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Space, error)
	Update(ctx context.Context, input service.UpdateSpaceInput) (*domain.Space, error)
	Delete(ctx context.Context, spaceID string) error
}

type SpaceHandler struct {
	svc SpaceService
}

func NewSpaceHandler(svc SpaceService) *SpaceHandler {
	return &SpaceHandler{svc: svc}
}

type SpaceRulesPayload struct {
	AllowHealthData    bool   `json:"allowHealthData"`
	CustomInstructions string `json:"customInstructions,omitempty"`
}

type CreateSpaceRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Rules       *SpaceRulesPayload `json:"rules"`
}

type UpdateSpaceRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Rules       *SpaceRulesPayload `json:"rules"`
}

type SpaceResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Rules       SpaceRulesPayload `json:"rules"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

func spaceToResponse(s *domain.Space) *SpaceResponse {
	return &SpaceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Rules: SpaceRulesPayload{
			AllowHealthData:    s.Rules.AllowHealthData,
			CustomInstructions: s.Rules.CustomInstructions,
		},
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *SpaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	input := service.CreateSpaceInput{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Rules != nil {
		input.Rules = domain.SpaceRules{
			AllowHealthData:    req.Rules.AllowHealthData,
			CustomInstructions: req.Rules.CustomInstructions,
		}
	}

	space, err := h.svc.Create(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, spaceToResponse(space))
}

func (h *SpaceHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	spaces, err := h.svc.ListByOwner(r.Context(), ownerID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SpaceResponse, 0, len(spaces))
	for _, s := range spaces {
		responses = append(responses, spaceToResponse(s))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *SpaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	space, err := h.svc.GetOwned(r.Context(), spaceID, ownerID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, spaceToResponse(space))
}

func (h *SpaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.svc.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	var req UpdateSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateSpaceInput{
		SpaceID:     spaceID,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Rules != nil {
		input.Rules = &domain.SpaceRules{
			AllowHealthData:    req.Rules.AllowHealthData,
			CustomInstructions: req.Rules.CustomInstructions,
		}
	}

	space, err := h.svc.Update(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, spaceToResponse(space))
}

func (h *SpaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.svc.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), spaceID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
