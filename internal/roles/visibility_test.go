package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibilityFor(t *testing.T) {
	all := Visibility{ShowState: true, ShowRegion: true, ShowDistrict: true, ShowGroup: true, ShowOldGroup: true}
	tests := []struct {
		name     string
		roles    []Role
		expected Visibility
	}{
		{"super admin", []Role{SuperAdmin}, all},
		{"admin", []Role{Admin}, all},
		{"state admin", []Role{StateAdmin}, Visibility{ShowRegion: true, ShowDistrict: true, ShowGroup: true, ShowOldGroup: true}},
		{"region admin", []Role{RegionAdmin}, Visibility{ShowDistrict: true, ShowGroup: true, ShowOldGroup: true}},
		{"district admin", []Role{DistrictAdmin}, Visibility{ShowOldGroup: true}},
		{"group admin", []Role{GroupAdmin}, Visibility{ShowDistrict: true, ShowOldGroup: true}},
		{"viewer", []Role{Viewer}, all},
		{"empty", nil, all},
		{"unknown", []Role{"Usher"}, all},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, VisibilityFor(tc.roles))
		})
	}
}

func TestVisibilityIsOrderIndependent(t *testing.T) {
	want := VisibilityFor([]Role{StateAdmin})
	assert.Equal(t, want, VisibilityFor([]Role{GroupAdmin, RegionAdmin, StateAdmin}))
	assert.Equal(t, want, VisibilityFor([]Role{StateAdmin, GroupAdmin, RegionAdmin}))
	assert.Equal(t, want, VisibilityFor([]Role{RegionAdmin, StateAdmin, GroupAdmin}))
}
