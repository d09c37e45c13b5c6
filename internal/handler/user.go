package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhub/tallyhub/internal/auth"
	"github.com/tallyhub/tallyhub/internal/handler/dto"
	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/policy"
	"github.com/tallyhub/tallyhub/internal/service"
)

// UserHandler serves the account directory. Email addresses are only
// shown to their owner and to superusers.
type UserHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	result, err := h.svc.ListUsers(r.Context(), principal, service.ListUsersInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  parseLimit(r),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserListResponse(result.Users, result.NextCursor, result.HasMore, func(u *model.User) bool {
		return policy.CanSeeEmail(principal, u.ID)
	}))
}

// Get handles GET /api/v1/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	user, err := h.svc.LookupUser(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := dto.ToUserResponse(user)
	if !policy.CanSeeEmail(principal, user.ID) {
		resp.Email = ""
	}
	writeJSON(w, http.StatusOK, resp)
}
