package attendance

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// Handler exposes attendance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers attendance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/records", h.listRecords)
	r.Get("/records/{id}", h.getRecord)
	r.Get("/youth", h.listYouth)
	r.Get("/youth/{id}", h.getYouth)
	r.Group(func(wr chi.Router) {
		wr.Use(h.rbac.RequireRole(roles.DistrictAdmin))
		wr.Post("/records", h.createRecord)
		wr.Put("/records/{id}", h.updateRecord)
		wr.Delete("/records/{id}", h.deleteRecord)
		wr.Post("/youth", h.createYouth)
		wr.Put("/youth/{id}", h.updateYouth)
		wr.Delete("/youth/{id}", h.deleteYouth)
	})
}

// ParseFilter reads a ListFilter from query parameters.
func ParseFilter(r *http.Request) (ListFilter, error) {
	var f ListFilter
	ints := []struct {
		name string
		dst  *int
		max  int64
	}{
		{"year", &f.Year, 2100},
		{"month", &f.Month, 12},
		{"week", &f.Week, 5},
	}
	for _, p := range ints {
		v, err := httpx.QueryInt(r, p.name, 0)
		if err != nil {
			return ListFilter{}, err
		}
		if v < 0 || v > p.max {
			return ListFilter{}, fmt.Errorf("%w: %s out of range", httpx.ErrValidation, p.name)
		}
		*p.dst = int(v)
	}
	ids := []struct {
		name string
		dst  *int64
	}{
		{"state_id", &f.StateID},
		{"region_id", &f.RegionID},
		{"district_id", &f.DistrictID},
		{"group_id", &f.GroupID},
	}
	for _, p := range ids {
		v, err := httpx.QueryInt(r, p.name, 0)
		if err != nil {
			return ListFilter{}, err
		}
		*p.dst = v
	}
	return f, nil
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	recs, err := h.service.ListRecords(r.Context(), shared.PrincipalFromContext(r.Context()), filter)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if recs == nil {
		recs = []Record{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": recs})
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.GetRecord(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var in RecordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.CreateRecord(r.Context(), shared.PrincipalFromContext(r.Context()), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in RecordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.UpdateRecord(r.Context(), shared.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteRecord(r.Context(), shared.PrincipalFromContext(r.Context()), id); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listYouth(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	recs, err := h.service.ListYouth(r.Context(), shared.PrincipalFromContext(r.Context()), filter)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if recs == nil {
		recs = []YouthRecord{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": recs})
}

func (h *Handler) getYouth(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.GetYouth(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) createYouth(w http.ResponseWriter, r *http.Request) {
	var in YouthInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.CreateYouth(r.Context(), shared.PrincipalFromContext(r.Context()), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) updateYouth(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in YouthInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.UpdateYouth(r.Context(), shared.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteYouth(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteYouth(r.Context(), shared.PrincipalFromContext(r.Context()), id); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
