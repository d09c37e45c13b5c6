package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhub/tallyhub/internal/auth"
	"github.com/tallyhub/tallyhub/internal/handler/dto"
	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/service"
)

// QuestionHandler handles questions and voting within a poll.
type QuestionHandler struct {
	polls  *service.PollService
	votes  *service.VoteService
	logger *slog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(polls *service.PollService, votes *service.VoteService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{
		polls:  polls,
		votes:  votes,
		logger: logger,
	}
}

// Create handles POST /api/v1/polls/{id}/questions.
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	question, err := h.polls.CreateQuestion(r.Context(), auth.PrincipalFromContext(r.Context()), service.CreateQuestionInput{
		PollID:     chi.URLParam(r, "id"),
		Text:       req.Text,
		ChoiceMode: model.ChoiceMode(req.ChoiceMode),
		Options:    req.Options,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToQuestionResponse(question))
}

// List handles GET /api/v1/polls/{id}/questions.
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	questions, err := h.polls.ListQuestions(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToQuestionListResponse(questions))
}

// Get handles GET /api/v1/polls/{id}/questions/{qid}.
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	question, err := h.polls.GetQuestion(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "qid"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToQuestionResponse(question))
}

// Update handles PATCH /api/v1/polls/{id}/questions/{qid}.
func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := service.UpdateQuestionInput{
		PollID:     chi.URLParam(r, "id"),
		QuestionID: chi.URLParam(r, "qid"),
		Text:       req.Text,
	}
	if req.ChoiceMode != nil {
		mode := model.ChoiceMode(*req.ChoiceMode)
		input.ChoiceMode = &mode
	}

	question, err := h.polls.UpdateQuestion(r.Context(), auth.PrincipalFromContext(r.Context()), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToQuestionResponse(question))
}

// Delete handles DELETE /api/v1/polls/{id}/questions/{qid}.
func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.polls.DeleteQuestion(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "qid"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Vote handles POST /api/v1/polls/{id}/questions/{qid}/vote.
func (h *QuestionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req dto.VoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pollID := chi.URLParam(r, "id")
	vote, err := h.votes.CastVote(r.Context(), auth.PrincipalFromContext(r.Context()), pollID, chi.URLParam(r, "qid"), req.OptionID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToVoteResponse(vote, pollID))
}
