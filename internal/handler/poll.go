package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhub/tallyhub/internal/auth"
	"github.com/tallyhub/tallyhub/internal/handler/dto"
	"github.com/tallyhub/tallyhub/internal/service"
)

// PollHandler handles HTTP requests for poll operations.
type PollHandler struct {
	svc     *service.PollService
	results *service.ResultsService
	logger  *slog.Logger
}

// NewPollHandler creates a new PollHandler.
func NewPollHandler(svc *service.PollService, results *service.ResultsService, logger *slog.Logger) *PollHandler {
	return &PollHandler{
		svc:     svc,
		results: results,
		logger:  logger,
	}
}

// Create handles POST /api/v1/polls.
func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePollRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	poll, err := h.svc.CreatePoll(r.Context(), auth.PrincipalFromContext(r.Context()), service.CreatePollInput{
		Title:       req.Title,
		Description: req.Description,
		Public:      req.IsPublic,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToPollResponse(poll, h.svc.Now()))
}

// Get handles GET /api/v1/polls/{id}.
func (h *PollHandler) Get(w http.ResponseWriter, r *http.Request) {
	poll, err := h.svc.GetPoll(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPollResponse(poll, h.svc.Now()))
}

// List handles GET /api/v1/polls.
func (h *PollHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPolls(r.Context(), auth.PrincipalFromContext(r.Context()), service.ListPollsInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  parseLimit(r),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPollListResponse(result.Polls, h.svc.Now(), result.NextCursor, result.HasMore))
}

// Update handles PATCH /api/v1/polls/{id}.
func (h *PollHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdatePollRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	poll, err := h.svc.UpdatePoll(r.Context(), auth.PrincipalFromContext(r.Context()), service.UpdatePollInput{
		ID:          chi.URLParam(r, "id"),
		Title:       req.Title,
		Description: req.Description,
		Public:      req.IsPublic,
		ExpiresAt:   req.ExpiresAt,
		ClearExpiry: req.ClearExpiry,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPollResponse(poll, h.svc.Now()))
}

// Delete handles DELETE /api/v1/polls/{id}.
func (h *PollHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePoll(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Close handles POST /api/v1/polls/{id}/close. Closing a closed poll
// answers 200 with already_closed set.
func (h *PollHandler) Close(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ClosePoll(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ClosePollResponse{
		Message:       result.Message,
		AlreadyClosed: result.AlreadyClosed,
		Poll:          dto.ToPollResponse(result.Poll, h.svc.Now()),
	})
}

// Results handles GET /api/v1/polls/{id}/results.
func (h *PollHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.GetResults(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}
