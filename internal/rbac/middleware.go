package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/scope"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// Middleware wires role based authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireRole ensures the caller's highest role ranks at or above min.
func (m Middleware) RequireRole(min roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			if !roles.IsAboveOrEqual(principal.Highest(), min) {
				m.deny(r, principal, string(min))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "role "+string(min)+" or higher required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyRole ensures the caller holds at least one of the listed roles.
// Unlike RequireRole it does not follow rank.
func (m Middleware) RequireAnyRole(allowed ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			for _, role := range allowed {
				if roles.Has(principal.Roles, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(r, principal, "any-of")
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "one of "+joinRoles(allowed)+" required")
		})
	}
}

// RequireReport ensures the caller may request the report type.
func (m Middleware) RequireReport(rt scope.ReportType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			if !scope.CanRequest(principal.Roles, rt) {
				m.deny(r, principal, "report:"+string(rt))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "report "+string(rt)+" not available for your role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func joinRoles(list []roles.Role) string {
	labels := make([]string, len(list))
	for i, r := range list {
		labels[i] = string(r)
	}
	return strings.Join(labels, ", ")
}

func (m Middleware) deny(r *http.Request, p *shared.Principal, requirement string) {
	if m.Logger == nil {
		return
	}
	m.Logger.Warn("rbac denied",
		slog.Int64("user_id", p.UserID),
		slog.String("role", string(p.Highest())),
		slog.String("requirement", requirement),
		slog.String("path", r.URL.Path),
	)
}
