package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recallware/memspace/internal/api"
	"github.com/recallware/memspace/internal/api/middleware"
	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/service"
)

type NoteService interface {
	Create(ctx context.Context, input service.CreateNoteInput) (*domain.Note, error)
	GetByID(ctx context.Context, id string) (*domain.Note, error)
	ListNotes(ctx context.Context, input service.ListNotesInput) (*service.ListNotesOutput, error)
	Update(ctx context.Context, input service.UpdateNoteInput) (*domain.Note, error)
	Promote(ctx context.Context, input service.PromoteNoteInput) (*domain.Fact, error)
	Delete(ctx context.Context, id string) error
}

type NoteHandler struct {
	guard SpaceGuard
	svc   NoteService
}

func NewNoteHandler(guard SpaceGuard, svc NoteService) *NoteHandler {
	return &NoteHandler{guard: guard, svc: svc}
}

type CreateNoteRequest struct {
	Content       string   `json:"content"`
	Category      string   `json:"category,omitempty"`
	Importance    string   `json:"importance"`
	Tags          []string `json:"tags,omitempty"`
	FactCandidate bool     `json:"factCandidate,omitempty"`
}

type UpdateNoteRequest struct {
	Content       *string   `json:"content"`
	Category      *string   `json:"category"`
	Importance    *string   `json:"importance"`
	Tags          *[]string `json:"tags"`
	FactCandidate *bool     `json:"factCandidate"`
}

type PromoteNoteRequest struct {
	Category   string `json:"category,omitempty"`
	Confidence string `json:"confidence,omitempty"`
}

type NoteResponse struct {
	ID               string        `json:"id"`
	SpaceID          string        `json:"spaceId"`
	Content          string        `json:"content"`
	Category         string        `json:"category,omitempty"`
	Importance       string        `json:"importance"`
	Source           SourcePayload `json:"source"`
	Tags             []string      `json:"tags,omitempty"`
	FactCandidate    bool          `json:"factCandidate"`
	PromotedToFactID string        `json:"promotedToFactId,omitempty"`
	CreatedAt        string        `json:"createdAt"`
	UpdatedAt        string        `json:"updatedAt"`
}

type NoteListResponse struct {
	Items   []*NoteResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"hasMore"`
}

func noteToResponse(n *domain.Note) *NoteResponse {
	return &NoteResponse{
		ID:               n.ID,
		SpaceID:          n.SpaceID,
		Content:          n.Content,
		Category:         n.Category,
		Importance:       string(n.Importance),
		Source:           sourceToPayload(n.Source),
		Tags:             n.Tags,
		FactCandidate:    n.FactCandidate,
		PromotedToFactID: n.PromotedToFactID,
		CreatedAt:        n.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        n.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.guard.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if !domain.IsValidImportance(domain.Importance(req.Importance)) {
		api.Error(w, http.StatusBadRequest, "invalid importance")
		return
	}

	note, err := h.svc.Create(r.Context(), service.CreateNoteInput{
		SpaceID:       spaceID,
		OwnerID:       ownerID,
		Content:       req.Content,
		Category:      req.Category,
		Importance:    domain.Importance(req.Importance),
		Tags:          req.Tags,
		FactCandidate: req.FactCandidate,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, noteToResponse(note))
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	spaceID := chi.URLParam(r, "spaceID")

	if _, err := h.guard.GetOwned(r.Context(), spaceID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	cursor, limit := listParams(r)
	out, err := h.svc.ListNotes(r.Context(), service.ListNotesInput{
		SpaceID: spaceID,
		Cursor:  cursor,
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*NoteResponse, 0, len(out.Items))
	for _, n := range out.Items {
		items = append(items, noteToResponse(n))
	}

	api.Success(w, http.StatusOK, NoteListResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

func (h *NoteHandler) getOwnedNote(r *http.Request) (*domain.Note, error) {
	ownerID := middleware.GetOwnerID(r.Context())
	noteID := chi.URLParam(r, "noteID")

	note, err := h.svc.GetByID(r.Context(), noteID)
	if err != nil {
		return nil, err
	}

	if _, err := h.guard.GetOwned(r.Context(), note.SpaceID, ownerID); err != nil {
		return nil, domain.ErrNoteNotFound
	}

	return note, nil
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.getOwnedNote(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, noteToResponse(note))
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	note, err := h.getOwnedNote(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateNoteInput{
		NoteID:        note.ID,
		Content:       req.Content,
		Category:      req.Category,
		Tags:          req.Tags,
		FactCandidate: req.FactCandidate,
	}
	if req.Importance != nil {
		importance := domain.Importance(*req.Importance)
		if !domain.IsValidImportance(importance) {
			api.Error(w, http.StatusBadRequest, "invalid importance")
			return
		}
		input.Importance = &importance
	}

	updated, err := h.svc.Update(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, noteToResponse(updated))
}

// Promote turns a note into a fact. The request body is optional; an
// empty body falls back to the note's own category and medium
// confidence.
func (h *NoteHandler) Promote(w http.ResponseWriter, r *http.Request) {
	note, err := h.getOwnedNote(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req PromoteNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Confidence != "" && !domain.IsValidConfidence(domain.Confidence(req.Confidence)) {
		api.Error(w, http.StatusBadRequest, "invalid confidence")
		return
	}

	fact, err := h.svc.Promote(r.Context(), service.PromoteNoteInput{
		NoteID:     note.ID,
		Category:   req.Category,
		Confidence: domain.Confidence(req.Confidence),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, factToResponse(fact))
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	note, err := h.getOwnedNote(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), note.ID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
