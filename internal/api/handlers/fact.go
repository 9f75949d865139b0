package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recallware/memspace/internal/api"
	"github.com/recallware/memspace/internal/api/middleware"
	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/service"
)

type FactService interface {
	Create(ctx context.Context, input service.CreateFactInput) (*domain.Fact, error)
	GetByID(ctx context.Context, id string) (*domain.Fact, error)
	ListFacts(ctx context.Context, input service.ListFactsInput) (*service.ListFactsOutput, error)
	Update(ctx context.Context, input service.UpdateFactInput) (*domain.Fact, error)
	Delete(ctx context.Context, id string) error
}

type FactHandler struct {
	guard SpaceGuard
	svc   FactService
}

func NewFactHandler(guard SpaceGuard, svc FactService) *FactHandler {
	return &FactHandler{guard: guard, svc: svc}
}

type SourcePayload struct {
	Type      string `json:"type"`
	Reference string `json:"reference,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type CreateFactRequest struct {
	Category       string   `json:"category"`
	Statement      string   `json:"statement"`
	Confidence     string   `json:"confidence"`
	Tags           []string `json:"tags,omitempty"`
	RelatedFactIDs []string `json:"relatedFactIds,omitempty"`
}

type UpdateFactRequest struct {
	Category       *string   `json:"category"`
	Statement      *string   `json:"statement"`
	Confidence     *string   `json:"confidence"`
	Tags           *[]string `json:"tags"`
	RelatedFactIDs *[]string `json:"relatedFactIds"`
}

type FactResponse struct {
	ID             string        `json:"id"`
	SpaceID        string        `json:"spaceId"`
	Category       string        `json:"category"`
	Statement      string        `json:"statement"`
	Confidence     string        `json:"confidence"`
	Source         SourcePayload `json:"source"`
	Tags           []string      `json:"tags,omitempty"`
	RelatedFactIDs []string      `json:"relatedFactIds,omitempty"`
	CreatedAt      string        `json:"createdAt"`
	UpdatedAt      string        `json:"updatedAt"`
}

type FactListResponse struct {
	Items   []*FactResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"hasMore"`
}

func sourceToPayload(s domain.Source) SourcePayload {
	payload := SourcePayload{
		Type:      string(s.Type),
		Reference: s.Reference,
	}
	if !s.Timestamp.IsZero() {
		payload.Timestamp = s.Timestamp.Format(time.RFC3339)
	}
	return payload
}

func factToResponse(f *domain.Fact) *FactResponse {
	return &FactResponse{
		ID:             f.ID,
		SpaceID:        f.SpaceID,
		Category:       f.Category,
		Statement:      f.Statement,
		Confidence:     string(f.Confidence),
		Source:         sourceToPayload(f.Source),
		Tags:           f.Tags,
		RelatedFactIDs: f.RelatedFactIDs,
		CreatedAt:      f.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      f.UpdatedAt.Format(time.RFC3339),
	}
}

// listParams reads the cursor and limit query parameters shared by the
// list endpoints.
func listParams(r *http.Request) (string, int) {
	cursor := r.URL.Query().Get("cursor")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	return cursor, limit
}

func (h *FactHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.guard.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	var req CreateFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Statement == "" {
		api.Error(w, http.StatusBadRequest, "statement is required")
		return
	}
	if req.Category == "" {
		api.Error(w, http.StatusBadRequest, "category is required")
		return
	}
	if !domain.IsValidConfidence(domain.Confidence(req.Confidence)) {
		api.Error(w, http.StatusBadRequest, "invalid confidence")
		return
	}

	fact, err := h.svc.Create(r.Context(), service.CreateFactInput{
		SpaceID:        spaceID,
		OwnerID:        ownerID,
		Category:       req.Category,
		Statement:      req.Statement,
		Confidence:     domain.Confidence(req.Confidence),
		Tags:           req.Tags,
		RelatedFactIDs: req.RelatedFactIDs,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, factToResponse(fact))
}

func (h *FactHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.guard.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	cursor, limit := listParams(r)
	out, err := h.svc.ListFacts(r.Context(), service.ListFactsInput{
		SpaceID: spaceID,
		Cursor:  cursor,
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*FactResponse, 0, len(out.Items))
	for _, f := range out.Items {
		items = append(items, factToResponse(f))
	}

	api.Success(w, http.StatusOK, FactListResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

// getOwnedFact resolves a fact and enforces that its space belongs to
// the caller.
func (h *FactHandler) getOwnedFact(r *http.Request) (*domain.Fact, error) {
	ownerID := middleware.GetOwnerID(r.Context())
	factID := chi.URLParam(r, "factID")

	fact, err := h.svc.GetByID(r.Context(), factID)
	if err != nil {
		return nil, err
	}

	if _, err := h.guard.GetOwned(r.Context(), fact.SpaceID, ownerID); err != nil {
		return nil, domain.ErrFactNotFound
	}

	return fact, nil
}

func (h *FactHandler) Get(w http.ResponseWriter, r *http.Request) {
	fact, err := h.getOwnedFact(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, factToResponse(fact))
}

func (h *FactHandler) Update(w http.ResponseWriter, r *http.Request) {
	fact, err := h.getOwnedFact(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req UpdateFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateFactInput{
		FactID:         fact.ID,
		Category:       req.Category,
		Statement:      req.Statement,
		Tags:           req.Tags,
		RelatedFactIDs: req.RelatedFactIDs,
	}
	if req.Confidence != nil {
		confidence := domain.Confidence(*req.Confidence)
		if !domain.IsValidConfidence(confidence) {
			api.Error(w, http.StatusBadRequest, "invalid confidence")
			return
		}
		input.Confidence = &confidence
	}

	updated, err := h.svc.Update(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, factToResponse(updated))
}

func (h *FactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fact, err := h.getOwnedFact(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), fact.ID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
