package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tallyhub/tallyhub/internal/auth"
	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/service"
)

// Authenticator resolves an access token to a principal.
// *service.AuthService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (model.Principal, error)
}

// Authenticate attaches the request principal. Requests without an
// Authorization header continue as anonymous; a header that fails to
// resolve is rejected with 401.
func Authenticate(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), model.Anonymous())))
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				logger.Warn("authentication failed",
					slog.String("reason", "malformed_header"),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing access token")
				return
			}

			principal, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrAccountDisabled) {
					writeError(w, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled")
					return
				}
				logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing access token")
				return
			}

			setLogUser(r.Context(), principal.UserID)
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.PrincipalFromContext(r.Context()).Authenticated {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
