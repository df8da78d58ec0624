package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dom/account-service/internal/domain"
	"github.com/dom/account-service/internal/service"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserKey contextKey = "user"

	// SessionCookie carries the session token.
	SessionCookie = "token"
)

// ErrorWriter renders an error response. Handlers pass their central
// responder so auth failures share its envelope.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, message string)

// Auth resolves the session from the token cookie, falling back to a Bearer
// Authorization header, and stores the user on the request context.
func Auth(accounts *service.AccountService, log *zap.Logger, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				writeError(w, r, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}

			user, err := accounts.UserFromToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrInvalidToken) {
					log.Debug("rejected session token",
						zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
						zap.Error(err),
					)
					writeError(w, r, http.StatusUnauthorized, "Not authorized to access this route")
					return
				}
				log.Error("failed to resolve session",
					zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
					zap.Error(err),
				)
				writeError(w, r, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok && user != nil
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
