package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// Middleware resolves the session user into a request principal.
type Middleware struct {
	service *Service
	logger  *slog.Logger
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(service *Service, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{service: service, logger: logger}
}

// Authenticate loads the principal for the session user, if any. Sessions that
// point at a deleted or deactivated user are cleared.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(sess.User(), 10, 64)
		if err != nil {
			sess.SetUser("")
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.service.Principal(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrInvalidCredentials) {
				sess.SetUser("")
				next.ServeHTTP(w, r)
				return
			}
			m.logger.Error("load principal", slog.Int64("user_id", userID), slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireUser rejects requests without an authenticated principal.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.PrincipalFromContext(r.Context()) == nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
