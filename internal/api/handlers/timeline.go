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

type TimelineService interface {
	Append(ctx context.Context, input service.AppendTimelineInput) (*domain.TimelineEntry, error)
	GetByID(ctx context.Context, id string) (*domain.TimelineEntry, error)
	ListTimeline(ctx context.Context, input service.ListTimelineInput) (*service.ListTimelineOutput, error)
	Delete(ctx context.Context, id string) error
}

type TimelineHandler struct {
	guard SpaceGuard
	svc   TimelineService
}

func NewTimelineHandler(guard SpaceGuard, svc TimelineService) *TimelineHandler {
	return &TimelineHandler{guard: guard, svc: svc}
}

type AppendTimelineRequest struct {
	EventType   string            `json:"eventType,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Timestamp   *time.Time        `json:"timestamp,omitempty"`
}

type TimelineEntryResponse struct {
	ID                string            `json:"id"`
	SpaceID           string            `json:"spaceId"`
	Timestamp         string            `json:"timestamp"`
	EventType         string            `json:"eventType"`
	Title             string            `json:"title"`
	Description       string            `json:"description,omitempty"`
	RelatedEntityID   string            `json:"relatedEntityId,omitempty"`
	RelatedEntityType string            `json:"relatedEntityType,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Tags              []string          `json:"tags,omitempty"`
	CreatedAt         string            `json:"createdAt"`
}

type TimelineListResponse struct {
	Items   []*TimelineEntryResponse `json:"items"`
	Cursor  string                   `json:"cursor,omitempty"`
	HasMore bool                     `json:"hasMore"`
}

func timelineEntryToResponse(e *domain.TimelineEntry) *TimelineEntryResponse {
	return &TimelineEntryResponse{
		ID:                e.ID,
		SpaceID:           e.SpaceID,
		Timestamp:         e.Timestamp.Format(time.RFC3339),
		EventType:         string(e.EventType),
		Title:             e.Title,
		Description:       e.Description,
		RelatedEntityID:   e.RelatedEntityID,
		RelatedEntityType: e.RelatedEntityType,
		Metadata:          e.Metadata,
		Tags:              e.Tags,
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
	}
}

// Append records a custom timeline event in a space. Mutation events
// are recorded by the services themselves; this endpoint exists for
// caller-supplied milestones.
func (h *TimelineHandler) Append(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.guard.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	var req AppendTimelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	input := service.AppendTimelineInput{
		SpaceID:     spaceID,
		EventType:   domain.TimelineEventType(req.EventType),
		Title:       req.Title,
		Description: req.Description,
		Metadata:    req.Metadata,
		Tags:        req.Tags,
	}
	if req.Timestamp != nil {
		input.Timestamp = *req.Timestamp
	}

	entry, err := h.svc.Append(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, timelineEntryToResponse(entry))
}

func (h *TimelineHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.guard.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	cursor, limit := listParams(r)
	out, err := h.svc.ListTimeline(r.Context(), service.ListTimelineInput{
		SpaceID: spaceID,
		Cursor:  cursor,
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*TimelineEntryResponse, 0, len(out.Items))
	for _, e := range out.Items {
		items = append(items, timelineEntryToResponse(e))
	}

	api.Success(w, http.StatusOK, TimelineListResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

func (h *TimelineHandler) getOwnedEntry(r *http.Request) (*domain.TimelineEntry, error) {
	ownerID := middleware.GetOwnerID(r.Context())
	entryID := chi.URLParam(r, "entryID")

	entry, err := h.svc.GetByID(r.Context(), entryID)
	if err != nil {
		return nil, err
	}

	if _, err := h.guard.GetOwned(r.Context(), entry.SpaceID, ownerID); err != nil {
		return nil, domain.ErrTimelineEntryNotFound
	}

	return entry, nil
}

func (h *TimelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.getOwnedEntry(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, timelineEntryToResponse(entry))
}

func (h *TimelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
