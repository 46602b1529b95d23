package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flockwatch/flockwatch/internal/attendance"
	"github.com/flockwatch/flockwatch/internal/auth"
	"github.com/flockwatch/flockwatch/internal/hierarchy"
	"github.com/flockwatch/flockwatch/internal/observability"
	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/reports"
	"github.com/flockwatch/flockwatch/internal/shared"
	"github.com/flockwatch/flockwatch/internal/users"
	"github.com/flockwatch/flockwatch/jobs"
	"github.com/flockwatch/flockwatch/report"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthMiddleware *auth.Middleware
	Metrics        *observability.Metrics
	Readiness      map[string]ReadinessCheck

	AuthHandler       *auth.Handler
	HierarchyHandler  *hierarchy.Handler
	AttendanceHandler *attendance.Handler
	UsersHandler      *users.Handler
	ReportsHandler    *reports.Handler
	JobHandler        *jobs.Handler
	PDFHandler        *report.Handler
}

// NewRouter constructs the chi.Router with flockwatch defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(params.Readiness, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Auth:           params.AuthMiddleware,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			if params.HierarchyHandler != nil {
				r.Route("/hierarchy", params.HierarchyHandler.MountRoutes)
			}
			if params.AttendanceHandler != nil {
				r.Route("/attendance", params.AttendanceHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
			if params.ReportsHandler != nil {
				r.Route("/reports", params.ReportsHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
			if params.PDFHandler != nil {
				r.Route("/pdf", params.PDFHandler.MountRoutes)
			}
		})
	})

	return r
}

func readinessHandler(checks map[string]ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				out[name] = "down"
				if logger != nil {
					logger.Warn("readiness check failed", slog.String("check", name), slog.Any("error", err))
				}
				continue
			}
			out[name] = "ok"
		}
		httpx.JSON(w, status, out)
	}
}
