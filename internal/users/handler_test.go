package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/shared"
)

func routerAs(svc *Service, p *shared.Principal) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), p)))
		})
	})
	r.Route("/users", NewHandler(nil, svc, rbac.Middleware{}).MountRoutes)
	return r
}

func TestDistrictAdminListsOwnDistrict(t *testing.T) {
	svc, _ := newTestService()
	create(t, svc, super, "g@test.local", 40, roles.GroupAdmin)
	create(t, svc, super, "r@test.local", 20, roles.RegionAdmin)

	district := &shared.Principal{UserID: 103, Roles: []roles.Role{roles.DistrictAdmin}, StateID: 1, RegionID: 10, DistrictID: 30}
	rr := httptest.NewRecorder()
	routerAs(svc, district).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res ListResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	require.Len(t, res.Items, 1)
	assert.Equal(t, "g@test.local", res.Items[0].Email)

	// Writes still need State Admin or higher.
	rr = httptest.NewRecorder()
	routerAs(svc, district).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestViewerCannotListUsers(t *testing.T) {
	svc, _ := newTestService()
	viewer := &shared.Principal{UserID: 104, Roles: []roles.Role{roles.Viewer}, StateID: 1}
	rr := httptest.NewRecorder()
	routerAs(svc, viewer).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
