package users

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flockwatch/flockwatch/internal/hierarchy"
	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/scope"
	"github.com/flockwatch/flockwatch/internal/shared"
)

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]User
	hashes map[int64]string
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[int64]User{}, hashes: map[int64]string{}}
}

func (m *memRepo) List(context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memRepo) Create(_ context.Context, u User, hash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return User{}, ErrEmailTaken
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = u
	m.hashes[u.ID] = hash
	return u, nil
}

func (m *memRepo) ReplaceRoles(_ context.Context, id int64, list []roles.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Roles = list
	m.users[id] = u
	return nil
}

func (m *memRepo) UpdateScope(_ context.Context, id int64, h scope.Hierarchy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.place(h)
	m.users[id] = u
	return nil
}

func (m *memRepo) SetActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.IsActive = active
	m.users[id] = u
	return nil
}

type units map[int64]hierarchy.Unit

func (u units) Resolve(_ context.Context, id int64) (hierarchy.Unit, error) {
	unit, ok := u[id]
	if !ok {
		return hierarchy.Unit{}, hierarchy.ErrUnitNotFound
	}
	return unit, nil
}

var testUnits = units{
	1:  {ID: 1, Level: hierarchy.LevelState, StateID: 1},
	2:  {ID: 2, Level: hierarchy.LevelState, StateID: 2},
	10: {ID: 10, Level: hierarchy.LevelRegion, StateID: 1, RegionID: 10},
	20: {ID: 20, Level: hierarchy.LevelRegion, StateID: 2, RegionID: 20},
	40: {ID: 40, Level: hierarchy.LevelGroup, StateID: 1, RegionID: 10, DistrictID: 30, GroupID: 40},
}

var (
	super      = &shared.Principal{UserID: 100, Roles: []roles.Role{roles.SuperAdmin}}
	stateOne   = &shared.Principal{UserID: 101, Roles: []roles.Role{roles.StateAdmin}, StateID: 1}
	groupForty = &shared.Principal{UserID: 102, Roles: []roles.Role{roles.GroupAdmin}, StateID: 1, RegionID: 10, DistrictID: 30, GroupID: 40}
)

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, testUnits, nil, nil).WithHashCost(bcrypt.MinCost), repo
}

func create(t *testing.T, svc *Service, p *shared.Principal, email string, unit int64, list ...roles.Role) User {
	t.Helper()
	u, err := svc.Create(context.Background(), p, CreateInput{Email: email, Name: email, Password: "longenough", Roles: list, UnitID: unit})
	require.NoError(t, err)
	return u
}

func TestCreateHashesAndPlaces(t *testing.T) {
	svc, repo := newTestService()

	u := create(t, svc, stateOne, "ra@test.local", 10, roles.RegionAdmin)
	assert.Equal(t, int64(1), u.StateID)
	assert.Equal(t, int64(10), u.RegionID)
	assert.True(t, u.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[u.ID]), []byte("longenough")))
}

func TestCreateRules(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	base := CreateInput{Email: "x@test.local", Name: "X", Password: "longenough"}

	t.Run("cannot grant above own rank", func(t *testing.T) {
		in := base
		in.Roles, in.UnitID = roles.Set{roles.SuperAdmin}, 1
		_, err := svc.Create(ctx, stateOne, in)
		assert.ErrorIs(t, err, ErrCannotAssign)
		assert.ErrorIs(t, err, httpx.ErrForbidden)
	})
	t.Run("equal rank is allowed", func(t *testing.T) {
		in := base
		in.Email, in.Roles, in.UnitID = "peer@test.local", roles.Set{roles.StateAdmin}, 1
		_, err := svc.Create(ctx, stateOne, in)
		assert.NoError(t, err)
	})
	t.Run("unit outside caller scope", func(t *testing.T) {
		in := base
		in.Roles, in.UnitID = roles.Set{roles.RegionAdmin}, 20
		_, err := svc.Create(ctx, stateOne, in)
		assert.ErrorIs(t, err, httpx.ErrNotFound)
	})
	t.Run("scoped caller must anchor", func(t *testing.T) {
		in := base
		in.Roles = roles.Set{roles.Viewer}
		_, err := svc.Create(ctx, stateOne, in)
		assert.ErrorIs(t, err, httpx.ErrValidation)
	})
	t.Run("role without its scope id", func(t *testing.T) {
		in := base
		in.Roles, in.UnitID = roles.Set{roles.GroupAdmin}, 10
		_, err := svc.Create(ctx, super, in)
		assert.ErrorIs(t, err, httpx.ErrValidation)
	})
	t.Run("duplicate email", func(t *testing.T) {
		in := base
		in.Email, in.Roles, in.UnitID = "peer@test.local", roles.Set{roles.Viewer}, 1
		_, err := svc.Create(ctx, super, in)
		assert.ErrorIs(t, err, httpx.ErrDuplicate)
	})
}

func TestListIsScoped(t *testing.T) {
	svc, _ := newTestService()
	create(t, svc, super, "a@test.local", 10, roles.RegionAdmin)
	create(t, svc, super, "b@test.local", 20, roles.RegionAdmin)
	create(t, svc, super, "c@test.local", 40, roles.GroupAdmin)

	res, err := svc.List(context.Background(), stateOne, 1, 20)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.Pagination.Total)

	res, err = svc.List(context.Background(), super, 2, 2)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "c@test.local", res.Items[0].Email)
	assert.Equal(t, 2, res.Pagination.TotalPages)
}

func TestReplaceRoles(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	ra := create(t, svc, super, "ra@test.local", 10, roles.RegionAdmin)
	sa := create(t, svc, super, "sa2@test.local", 1, roles.StateAdmin)
	boss := create(t, svc, super, "boss@test.local", 0, roles.SuperAdmin)

	updated, err := svc.ReplaceRoles(ctx, stateOne, ra.ID, RolesInput{Roles: roles.Set{roles.RegionAdmin, roles.Viewer}})
	require.NoError(t, err)
	assert.Equal(t, []roles.Role{roles.RegionAdmin, roles.Viewer}, updated.Roles)

	_, err = svc.ReplaceRoles(ctx, stateOne, ra.ID, RolesInput{Roles: roles.Set{roles.Admin}})
	assert.ErrorIs(t, err, ErrCannotAssign)

	// State admin may re-role a peer but not demote a super admin, who is
	// also outside the state scope.
	_, err = svc.ReplaceRoles(ctx, stateOne, sa.ID, RolesInput{Roles: roles.Set{roles.Viewer}})
	assert.NoError(t, err)
	_, err = svc.ReplaceRoles(ctx, stateOne, boss.ID, RolesInput{Roles: roles.Set{roles.Viewer}})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateScopeAndDeactivate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	ga := create(t, svc, super, "ga@test.local", 40, roles.GroupAdmin)

	_, err := svc.UpdateScope(ctx, stateOne, ga.ID, ScopeInput{UnitID: 10})
	assert.ErrorIs(t, err, httpx.ErrValidation, "group admin anchored at a region has no group id")

	viewer := create(t, svc, super, "v@test.local", 40, roles.Viewer)
	moved, err := svc.UpdateScope(ctx, stateOne, viewer.ID, ScopeInput{UnitID: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), moved.GroupID)
	assert.Equal(t, int64(10), repo.users[viewer.ID].RegionID)

	require.NoError(t, svc.Deactivate(ctx, stateOne, ga.ID))
	assert.False(t, repo.users[ga.ID].IsActive)

	assert.ErrorIs(t, svc.Deactivate(ctx, stateOne, stateOne.UserID), httpx.ErrConflict)
	assert.ErrorIs(t, svc.Deactivate(ctx, groupForty, viewer.ID), httpx.ErrNotFound)
}

func TestHandlerRoleLabelsNormalised(t *testing.T) {
	svc, repo := newTestService()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), super)))
		})
	})
	r.Route("/users", NewHandler(nil, svc, rbac.Middleware{}).MountRoutes)

	body := `{"email":"n@test.local","name":"N","password":"longenough","unit_id":10,"roles":["region_admin",{"name":"VIEWER"}]}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, repo.users, 1)
	for _, u := range repo.users {
		assert.Equal(t, []roles.Role{roles.RegionAdmin, roles.Viewer}, u.Roles)
	}

	bad := `{"email":"m@test.local","name":"M","password":"longenough","unit_id":10,"roles":["bishop"]}`
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/", bytes.NewBufferString(bad)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	guarded := chi.NewRouter()
	guarded.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), groupForty)))
		})
	})
	guarded.Route("/users", NewHandler(nil, svc, rbac.Middleware{}).MountRoutes)
	guarded.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
