package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tallyhub/tallyhub/internal/handler/dto"
	"github.com/tallyhub/tallyhub/internal/service"
)

type errorMapping struct {
	kind    error
	status  int
	code    string
	message string
}

// errorMappings is checked in order; the first kind matched by errors.Is wins.
var errorMappings = []errorMapping{
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Not allowed"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token"},
	{service.ErrOptionMismatch, http.StatusBadRequest, "OPTION_MISMATCH", "Option does not belong to question"},
	{service.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed"},
	{service.ErrPollClosed, http.StatusConflict, "POLL_CLOSED", "Poll is closed"},
	{service.ErrDuplicateVote, http.StatusConflict, "DUPLICATE_VOTE", "Already voted on this question"},
	{service.ErrConflict, http.StatusConflict, "CONFLICT", "Resource already exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
	{service.ErrAccountDisabled, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled"},
}

// handleServiceError maps service errors to HTTP responses. The message and
// entity IDs of a *service.Error are passed through to the client.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}

		body := dto.ErrorResponse{Error: m.message, Code: m.code}
		var svcErr *service.Error
		if errors.As(err, &svcErr) {
			if svcErr.Message != "" {
				body.Error = svcErr.Message
			}
			body.Field = svcErr.Field
			body.PollID = svcErr.PollID
			body.QuestionID = svcErr.QuestionID
			body.OptionID = svcErr.OptionID
		}
		writeJSON(w, m.status, body)
		return
	}

	logger.Error("internal_error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}
