package reports

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/scope"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// Enqueuer schedules background cache warmups.
type Enqueuer interface {
	EnqueueReportsWarmup(ctx context.Context, year, month int) (string, error)
}

// Handler exposes report endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	pdf      PDFRenderer
	enqueuer Enqueuer
	now      func() time.Time
}

// NewHandler builds the handler. pdf and enqueuer may be nil; the matching
// endpoints then answer 503.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, pdf PDFRenderer, enqueuer Enqueuer) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, pdf: pdf, enqueuer: enqueuer, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listTypes)
	for _, rt := range []scope.ReportType{scope.ReportState, scope.ReportRegion, scope.ReportGroup, scope.ReportYouth} {
		r.Group(func(gr chi.Router) {
			gr.Use(h.rbac.RequireReport(rt))
			gr.Get("/"+string(rt), h.show(rt))
			gr.Get("/"+string(rt)+"/export", h.export(rt))
		})
	}
	r.With(h.rbac.RequireRole(roles.SuperAdmin)).Post("/warmup", h.warmup)
}

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	types := h.service.AllowedTypes(shared.PrincipalFromContext(r.Context()))
	httpx.JSON(w, http.StatusOK, map[string]any{"items": types})
}

func (h *Handler) period(r *http.Request) (Period, error) {
	year, err := httpx.QueryInt(r, "year", int64(h.now().Year()))
	if err != nil {
		return Period{}, err
	}
	month, err := httpx.QueryInt(r, "month", 0)
	if err != nil {
		return Period{}, err
	}
	return Period{Year: int(year), Month: int(month)}, nil
}

func (h *Handler) show(rt scope.ReportType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := h.period(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		report, err := h.service.Build(r.Context(), shared.PrincipalFromContext(r.Context()), rt, period)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
	}
}

func (h *Handler) export(rt scope.ReportType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := h.period(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		format := strings.ToLower(r.URL.Query().Get("format"))
		if format == "" {
			format = "csv"
		}
		if format != "csv" && format != "xlsx" && format != "pdf" {
			httpx.RespondError(w, fmt.Errorf("%w: format must be csv, xlsx or pdf", httpx.ErrValidation))
			return
		}
		if format == "pdf" && h.pdf == nil {
			httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf export not configured")
			return
		}
		report, err := h.service.Build(r.Context(), shared.PrincipalFromContext(r.Context()), rt, period)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		filename := fmt.Sprintf("%s-report-%s.%s", rt, period, format)
		switch format {
		case "csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", attachment(filename))
			if err := WriteCSV(w, report); err != nil {
				h.logger.Error("csv export failed", slog.String("report", string(rt)), slog.Any("error", err))
			}
		case "xlsx":
			var buf bytes.Buffer
			if err := WriteXLSX(&buf, report); err != nil {
				httpx.Fail(w, r, h.logger, err)
				return
			}
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", attachment(filename))
			_, _ = w.Write(buf.Bytes())
		case "pdf":
			data, err := RenderPDF(r.Context(), h.pdf, report)
			if err != nil {
				h.logger.Error("pdf export failed", slog.String("report", string(rt)), slog.Any("error", err))
				httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "pdf rendering failed")
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", attachment(filename))
			_, _ = w.Write(data)
		}
	}
}

func (h *Handler) warmup(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue not configured")
		return
	}
	var in Period
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.validate.Struct(in); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return
	}
	id, err := h.enqueuer.EnqueueReportsWarmup(r.Context(), in.Year, in.Month)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
