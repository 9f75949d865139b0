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

type ProfileService interface {
	Create(ctx context.Context, input service.CreateProfileEntryInput) (*domain.ProfileEntry, error)
	GetByID(ctx context.Context, id string) (*domain.ProfileEntry, error)
	ListBySpace(ctx context.Context, spaceID string) ([]*domain.ProfileEntry, error)
	ListValid(ctx context.Context, spaceID string) ([]*domain.ProfileEntry, error)
	Update(ctx context.Context, input service.UpdateProfileEntryInput) (*domain.ProfileEntry, error)
	Delete(ctx context.Context, id string) error
}

type ProfileHandler struct {
	guard SpaceGuard
	svc   ProfileService
}

func NewProfileHandler(guard SpaceGuard, svc ProfileService) *ProfileHandler {
	return &ProfileHandler{guard: guard, svc: svc}
}

type CreateProfileEntryRequest struct {
	Category   string              `json:"category"`
	Key        string              `json:"key"`
	Value      domain.ProfileValue `json:"value"`
	ValidFrom  *time.Time          `json:"validFrom,omitempty"`
	ValidUntil *time.Time          `json:"validUntil,omitempty"`
}

type UpdateProfileEntryRequest struct {
	Category   *string              `json:"category"`
	Key        *string              `json:"key"`
	Value      *domain.ProfileValue `json:"value"`
	ValidFrom  *time.Time           `json:"validFrom"`
	ValidUntil *time.Time           `json:"validUntil"`
}

type ProfileEntryResponse struct {
	ID         string              `json:"id"`
	SpaceID    string              `json:"spaceId"`
	Category   string              `json:"category"`
	Key        string              `json:"key"`
	Value      domain.ProfileValue `json:"value"`
	Source     SourcePayload       `json:"source"`
	ValidFrom  *time.Time          `json:"validFrom,omitempty"`
	ValidUntil *time.Time          `json:"validUntil,omitempty"`
	CreatedAt  string              `json:"createdAt"`
	UpdatedAt  string              `json:"updatedAt"`
}

func profileEntryToResponse(e *domain.ProfileEntry) *ProfileEntryResponse {
	return &ProfileEntryResponse{
		ID:         e.ID,
		SpaceID:    e.SpaceID,
		Category:   e.Category,
		Key:        e.Key,
		Value:      e.Value,
		Source:     sourceToPayload(e.Source),
		ValidFrom:  e.ValidFrom,
		ValidUntil: e.ValidUntil,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  e.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.guard.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	var req CreateProfileEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Category == "" {
		api.Error(w, http.StatusBadRequest, "category is required")
		return
	}
	if req.Key == "" {
		api.Error(w, http.StatusBadRequest, "key is required")
		return
	}

	entry, err := h.svc.Create(r.Context(), service.CreateProfileEntryInput{
		SpaceID:    spaceID,
		OwnerID:    ownerID,
		Category:   req.Category,
		Key:        req.Key,
		Value:      req.Value,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, profileEntryToResponse(entry))
}

// List returns the space's profile entries. The default view is the
// currently valid profile; ?all=true includes expired and future
// entries.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.guard.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	var entries []*domain.ProfileEntry
	var err error
	if r.URL.Query().Get("all") == "true" {
		entries, err = h.svc.ListBySpace(r.Context(), spaceID)
	} else {
		entries, err = h.svc.ListValid(r.Context(), spaceID)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ProfileEntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, profileEntryToResponse(e))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *ProfileHandler) getOwnedEntry(r *http.Request) (*domain.ProfileEntry, error) {
	ownerID := middleware.GetOwnerID(r.Context())
	entryID := chi.URLParam(r, "entryID")

	entry, err := h.svc.GetByID(r.Context(), entryID)
	if err != nil {
		return nil, err
	}

	if _, err := h.guard.GetOwned(r.Context(), entry.SpaceID, ownerID); err != nil {
		return nil, domain.ErrProfileEntryNotFound
	}

	return entry, nil
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.getOwnedEntry(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, profileEntryToResponse(entry))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	entry, err := h.getOwnedEntry(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req UpdateProfileEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.svc.Update(r.Context(), service.UpdateProfileEntryInput{
		EntryID:    entry.ID,
		Category:   req.Category,
		Key:        req.Key,
		Value:      req.Value,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, profileEntryToResponse(updated))
}

func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entry, err := h.getOwnedEntry(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), entry.ID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
