package roles

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		role     Role
		expected int
	}{
		{SuperAdmin, 6},
		{Admin, 5},
		{StateAdmin, 4},
		{RegionAdmin, 3},
		{GroupAdmin, 2},
		{DistrictAdmin, 1},
		{Viewer, 0},
		{"Pastor", -1},
		{"", -1},
	}

	for _, test := range tests {
		if level := Level(test.role); level != test.expected {
			t.Errorf("Level(%q) = %d, want %d", test.role, level, test.expected)
		}
	}
}

func TestHighest(t *testing.T) {
	assert.Equal(t, Viewer, Highest(nil))
	assert.Equal(t, Viewer, Highest([]Role{}))
	assert.Equal(t, StateAdmin, Highest([]Role{GroupAdmin, RegionAdmin, StateAdmin}))
	assert.Equal(t, SuperAdmin, Highest([]Role{Viewer, SuperAdmin, Admin}))
	assert.Equal(t, GroupAdmin, Highest([]Role{DistrictAdmin, GroupAdmin}))
}

func TestHighestReturnsMemberOfInput(t *testing.T) {
	inputs := [][]Role{
		{"unknown"},
		{"unknown", "other"},
		{Viewer, "unknown"},
		{DistrictAdmin},
		{RegionAdmin, RegionAdmin},
	}
	for _, in := range inputs {
		got := Highest(in)
		assert.True(t, Has(in, got), "Highest(%v) = %q not in input", in, got)
	}
}

func TestHighestKeepsLeftMostOnTie(t *testing.T) {
	assert.Equal(t, Role("first"), Highest([]Role{"first", "second"}))
}

func TestComparisons(t *testing.T) {
	assert.True(t, IsAboveOrEqual(StateAdmin, StateAdmin))
	assert.True(t, IsAboveOrEqual(Admin, StateAdmin))
	assert.False(t, IsAboveOrEqual(DistrictAdmin, GroupAdmin))
	assert.True(t, IsBelow(DistrictAdmin, GroupAdmin))
	assert.False(t, IsBelow(SuperAdmin, Admin))
	assert.True(t, IsBelow("unknown", Viewer))
}

func TestCanAssign(t *testing.T) {
	tests := []struct {
		actor    []Role
		target   Role
		expected bool
	}{
		{[]Role{SuperAdmin}, SuperAdmin, true},
		{[]Role{StateAdmin}, RegionAdmin, true},
		{[]Role{StateAdmin}, Admin, false},
		{[]Role{RegionAdmin, Viewer}, GroupAdmin, true},
		{[]Role{DistrictAdmin}, GroupAdmin, false},
		{[]Role{Viewer}, Viewer, true},
		{[]Role{"unknown"}, Viewer, false},
		{nil, Viewer, false},
		{[]Role{SuperAdmin}, "unknown", false},
	}
	for _, test := range tests {
		if got := CanAssign(test.actor, test.target); got != test.expected {
			t.Errorf("CanAssign(%v, %q) = %v, want %v", test.actor, test.target, got, test.expected)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		label string
		role  Role
		ok    bool
	}{
		{"Super Admin", SuperAdmin, true},
		{"super_admin", SuperAdmin, true},
		{"  STATE   ADMIN ", StateAdmin, true},
		{"region-admin", RegionAdmin, true},
		{"ADMIN", Admin, true},
		{"viewer", Viewer, true},
		{"pastor", "", false},
		{"", "", false},
	}
	for _, test := range tests {
		role, ok := Parse(test.label)
		assert.Equal(t, test.ok, ok, test.label)
		assert.Equal(t, test.role, role, test.label)
	}
}

func TestSetUnmarshalMixedEntries(t *testing.T) {
	var s Set
	err := json.Unmarshal([]byte(`["state admin", {"name": "Group Admin"}, {"role": "viewer"}, "State Admin"]`), &s)
	require.NoError(t, err)
	assert.Equal(t, Set{StateAdmin, GroupAdmin, Viewer}, s)
	assert.Equal(t, StateAdmin, s.Highest())
	assert.Equal(t, []string{"State Admin", "Group Admin", "Viewer"}, s.Strings())
}

func TestSetUnmarshalRejectsUnknown(t *testing.T) {
	var s Set
	err := json.Unmarshal([]byte(`["Deacon"]`), &s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRole))

	err = json.Unmarshal([]byte(`[42]`), &s)
	require.Error(t, err)
}
