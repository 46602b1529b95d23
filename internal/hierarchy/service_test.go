package hierarchy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/shared"
)

var superAdmin = &shared.Principal{UserID: 1, Roles: []roles.Role{roles.SuperAdmin}}

type tree struct {
	svc        *Service
	stateA     Unit
	stateB     Unit
	regionA1   Unit
	regionB1   Unit
	districtA1 Unit
	groupA1    Unit
}

func seedTree(t *testing.T) tree {
	t.Helper()
	ctx := context.Background()
	svc := NewService(newMemRepo(), nil, nil)
	mk := func(level Level, code string, parent int64) Unit {
		u, err := svc.Create(ctx, superAdmin, level, CreateInput{Code: code, Name: code, ParentID: parent})
		require.NoError(t, err)
		return u
	}
	var tr tree
	tr.svc = svc
	tr.stateA = mk(LevelState, "SA", 0)
	tr.stateB = mk(LevelState, "SB", 0)
	tr.regionA1 = mk(LevelRegion, "RA1", tr.stateA.ID)
	tr.regionB1 = mk(LevelRegion, "RB1", tr.stateB.ID)
	tr.districtA1 = mk(LevelDistrict, "DA1", tr.regionA1.ID)
	tr.groupA1 = mk(LevelGroup, "GA1", tr.districtA1.ID)
	return tr
}

func TestCreateCopiesAncestorIDs(t *testing.T) {
	tr := seedTree(t)

	assert.Equal(t, tr.stateA.ID, tr.stateA.StateID)
	assert.Equal(t, tr.stateA.ID, tr.groupA1.StateID)
	assert.Equal(t, tr.regionA1.ID, tr.groupA1.RegionID)
	assert.Equal(t, tr.districtA1.ID, tr.groupA1.DistrictID)
	assert.Equal(t, tr.groupA1.ID, tr.groupA1.GroupID)
	assert.Equal(t, tr.districtA1.ID, tr.groupA1.ParentID)

	old, err := tr.svc.Create(context.Background(), superAdmin, LevelOldGroup, CreateInput{Code: "OG1", Name: "Old", ParentID: tr.groupA1.ID})
	require.NoError(t, err)
	lineage, ok := old.Lineage()
	require.True(t, ok)
	assert.Equal(t, Lineage{StateID: tr.stateA.ID, RegionID: tr.regionA1.ID, DistrictID: tr.districtA1.ID, GroupID: tr.groupA1.ID, OldGroupID: old.ID}, lineage)
}

func TestListRestrictedToScope(t *testing.T) {
	tr := seedTree(t)
	ctx := context.Background()

	stateAdmin := &shared.Principal{Roles: []roles.Role{roles.StateAdmin}, StateID: tr.stateB.ID}
	regions, err := tr.svc.List(ctx, stateAdmin, ListFilter{Level: LevelRegion})
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, tr.regionB1.ID, regions[0].ID)

	all, err := tr.svc.List(ctx, superAdmin, ListFilter{Level: LevelRegion})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	viewer := &shared.Principal{Roles: []roles.Role{roles.Viewer}}
	none, err := tr.svc.List(ctx, viewer, ListFilter{Level: LevelRegion})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetOutOfScopeIsNotFound(t *testing.T) {
	tr := seedTree(t)
	regionAdmin := &shared.Principal{Roles: []roles.Role{roles.RegionAdmin}, RegionID: tr.regionB1.ID}

	_, err := tr.svc.Get(context.Background(), regionAdmin, tr.groupA1.ID)
	assert.ErrorIs(t, err, ErrUnitNotFound)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateRules(t *testing.T) {
	tr := seedTree(t)
	ctx := context.Background()
	regionAdmin := &shared.Principal{UserID: 9, Roles: []roles.Role{roles.RegionAdmin}, StateID: tr.stateA.ID, RegionID: tr.regionA1.ID}

	t.Run("state needs administrator", func(t *testing.T) {
		_, err := tr.svc.Create(ctx, regionAdmin, LevelState, CreateInput{Code: "SC", Name: "C"})
		assert.ErrorIs(t, err, httpx.ErrForbidden)
	})
	t.Run("parent must be one level up", func(t *testing.T) {
		_, err := tr.svc.Create(ctx, superAdmin, LevelGroup, CreateInput{Code: "GX", Name: "X", ParentID: tr.regionA1.ID})
		assert.ErrorIs(t, err, ErrInvalidParent)
	})
	t.Run("parent out of scope", func(t *testing.T) {
		_, err := tr.svc.Create(ctx, regionAdmin, LevelDistrict, CreateInput{Code: "DX", Name: "X", ParentID: tr.regionB1.ID})
		assert.ErrorIs(t, err, ErrUnitNotFound)
	})
	t.Run("parent in scope", func(t *testing.T) {
		d, err := tr.svc.Create(ctx, regionAdmin, LevelDistrict, CreateInput{Code: "DA2", Name: "Second", ParentID: tr.regionA1.ID})
		require.NoError(t, err)
		assert.Equal(t, tr.regionA1.ID, d.RegionID)
	})
	t.Run("duplicate code", func(t *testing.T) {
		_, err := tr.svc.Create(ctx, superAdmin, LevelRegion, CreateInput{Code: "RA1", Name: "Dup", ParentID: tr.stateB.ID})
		assert.ErrorIs(t, err, httpx.ErrDuplicate)
	})
	t.Run("validation", func(t *testing.T) {
		_, err := tr.svc.Create(ctx, superAdmin, LevelRegion, CreateInput{Name: "No code", ParentID: tr.stateB.ID})
		assert.ErrorIs(t, err, httpx.ErrValidation)
	})
}

func TestDeleteRequiresNoChildren(t *testing.T) {
	tr := seedTree(t)
	ctx := context.Background()

	err := tr.svc.Delete(ctx, superAdmin, tr.districtA1.ID)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	require.NoError(t, tr.svc.Delete(ctx, superAdmin, tr.groupA1.ID))
	require.NoError(t, tr.svc.Delete(ctx, superAdmin, tr.districtA1.ID))
	_, err = tr.svc.Get(ctx, superAdmin, tr.districtA1.ID)
	assert.ErrorIs(t, err, ErrUnitNotFound)
}

func TestUpdateOutOfScope(t *testing.T) {
	tr := seedTree(t)
	groupAdmin := &shared.Principal{Roles: []roles.Role{roles.GroupAdmin}, GroupID: tr.groupA1.ID}

	updated, err := tr.svc.Update(context.Background(), groupAdmin, tr.groupA1.ID, UpdateInput{Code: "GA1", Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	_, err = tr.svc.Update(context.Background(), groupAdmin, tr.districtA1.ID, UpdateInput{Code: "DA1", Name: "Nope"})
	assert.ErrorIs(t, err, ErrUnitNotFound)
}

func TestLevels(t *testing.T) {
	l, ok := ParseLevel("old-group")
	assert.True(t, ok)
	assert.Equal(t, LevelOldGroup, l)
	_, ok = ParseLevel("units")
	assert.False(t, ok)

	parent, ok := LevelDistrict.Parent()
	assert.True(t, ok)
	assert.Equal(t, LevelRegion, parent)
	_, ok = LevelState.Parent()
	assert.False(t, ok)
	_, ok = LevelOldGroup.Child()
	assert.False(t, ok)
}
