package hierarchy

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// Handler exposes the org tree over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers hierarchy routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/units/{id}", h.get)
	r.Get("/{level}", h.list)
	// States sit at the top of the tree; only the two unscoped roles add them.
	r.With(h.rbac.RequireAnyRole(roles.SuperAdmin, roles.Admin)).Post("/"+string(LevelState), h.createAt(LevelState))
	r.Group(func(wr chi.Router) {
		wr.Use(h.rbac.RequireRole(roles.RegionAdmin))
		wr.Post("/{level}", h.create)
		wr.Put("/units/{id}", h.update)
		wr.Delete("/units/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	level, ok := ParseLevel(chi.URLParam(r, "level"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown level")
		return
	}
	parentID, err := httpx.QueryInt(r, "parent_id", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	units, err := h.service.List(r.Context(), shared.PrincipalFromContext(r.Context()), ListFilter{Level: level, ParentID: parentID})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if units == nil {
		units = []Unit{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": units})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	unit, err := h.service.Get(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	level, ok := ParseLevel(chi.URLParam(r, "level"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown level")
		return
	}
	h.createAt(level)(w, r)
}

func (h *Handler) createAt(level Level) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CreateInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		unit, err := h.service.Create(r.Context(), shared.PrincipalFromContext(r.Context()), level, in)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, unit)
	}
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	unit, err := h.service.Update(r.Context(), shared.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), shared.PrincipalFromContext(r.Context()), id); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
