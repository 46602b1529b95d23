package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// Handler exposes user administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

var readers = []roles.Role{
	roles.SuperAdmin, roles.Admin, roles.StateAdmin, roles.RegionAdmin, roles.GroupAdmin, roles.DistrictAdmin,
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(rr chi.Router) {
		// Every administrative role reads users in its own scope. District Admin
		// ranks below Group Admin, so a rank floor would lock it out.
		rr.Use(h.rbac.RequireAnyRole(readers...))
		rr.Get("/", h.list)
		rr.Get("/{id}", h.get)
	})
	r.Group(func(wr chi.Router) {
		wr.Use(h.rbac.RequireRole(roles.StateAdmin))
		wr.Post("/", h.create)
		wr.Put("/{id}/roles", h.replaceRoles)
		wr.Put("/{id}/scope", h.updateScope)
		wr.Post("/{id}/deactivate", h.deactivate)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perPage, err := httpx.QueryInt(r, "per_page", 20)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.List(r.Context(), shared.PrincipalFromContext(r.Context()), int(page), int(perPage))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if res.Items == nil {
		res.Items = []User{}
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Get(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Create(r.Context(), shared.PrincipalFromContext(r.Context()), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) replaceRoles(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in RolesInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.ReplaceRoles(r.Context(), shared.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) updateScope(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ScopeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.UpdateScope(r.Context(), shared.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Deactivate(r.Context(), shared.PrincipalFromContext(r.Context()), id); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
