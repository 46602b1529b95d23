package hierarchy

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/shared"
)

func newTestRouter(svc *Service, p *shared.Principal) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), p)))
		})
	})
	r.Route("/hierarchy", NewHandler(nil, svc, rbac.Middleware{}).MountRoutes)
	return r
}

func TestHandlerListAndGet(t *testing.T) {
	tr := seedTree(t)
	groupAdmin := &shared.Principal{Roles: []roles.Role{roles.GroupAdmin}, GroupID: tr.groupA1.ID}
	router := newTestRouter(tr.svc, groupAdmin)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/hierarchy/group", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Items []Unit `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "GA1", body.Items[0].Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/hierarchy/units/"+strconv.FormatInt(tr.regionB1.ID, 10), nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/hierarchy/planet", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerCreateRequiresRegionAdmin(t *testing.T) {
	tr := seedTree(t)
	payload, _ := json.Marshal(CreateInput{Code: "GX", Name: "New", ParentID: tr.districtA1.ID})

	groupAdmin := &shared.Principal{Roles: []roles.Role{roles.GroupAdmin}, GroupID: tr.groupA1.ID}
	rr := httptest.NewRecorder()
	newTestRouter(tr.svc, groupAdmin).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/hierarchy/group", bytes.NewReader(payload)))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	newTestRouter(tr.svc, superAdmin).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/hierarchy/group", bytes.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	newTestRouter(tr.svc, superAdmin).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/hierarchy/group", bytes.NewReader(payload)))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandlerCreateStateNeedsUnscopedRole(t *testing.T) {
	tr := seedTree(t)
	payload, _ := json.Marshal(CreateInput{Code: "SC", Name: "State C"})

	stateAdmin := &shared.Principal{Roles: []roles.Role{roles.StateAdmin}, StateID: tr.stateA.ID}
	rr := httptest.NewRecorder()
	newTestRouter(tr.svc, stateAdmin).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/hierarchy/state", bytes.NewReader(payload)))
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "one of Super Admin, admin required")

	admin := &shared.Principal{Roles: []roles.Role{roles.Admin}}
	rr = httptest.NewRecorder()
	newTestRouter(tr.svc, admin).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/hierarchy/state", bytes.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Unit
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Equal(t, LevelState, created.Level)
	assert.Equal(t, created.ID, created.StateID)
}
