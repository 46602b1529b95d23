package attendance

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _ := newTestService()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/attendance", NewHandler(logger, svc, rbac.Middleware{Logger: logger}).MountRoutes)
	return r, svc
}

func call(router http.Handler, p *shared.Principal, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRecordLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	body := `{"unit_id":40,"service_type":"sunday","service_date":"2024-03-10","week":2,"men":5,"women":6}`

	rec := call(router, regionTen, http.MethodPost, "/attendance/records", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(10), created.RegionID)

	rec = call(router, groupFifty, http.MethodGet, "/attendance/records/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(router, regionTen, http.MethodGet, "/attendance/records?year=2024&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []Record `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Items, 1)

	rec = call(router, groupFifty, http.MethodGet, "/attendance/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = call(router, regionTen, http.MethodDelete, "/attendance/records/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerRejectsViewerWrites(t *testing.T) {
	router, _ := newTestRouter(t)
	viewer := &shared.Principal{UserID: 9, Roles: []roles.Role{roles.Viewer}, StateID: 1}
	rec := call(router, viewer, http.MethodPost, "/attendance/records", `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerFilterValidation(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, q := range []string{"month=13", "week=9", "year=abc", "group_id=x"} {
		rec := call(router, super, http.MethodGet, "/attendance/records?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHandlerBadPayload(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := call(router, super, http.MethodPost, "/attendance/youth", `{"unit_id":50,"attendance_type":"camp","year":2024,"month":5,"week":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(router, super, http.MethodPost, "/attendance/youth", `{"unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
