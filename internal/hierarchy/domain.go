// Package hierarchy manages the organisation tree: states, regions,
// districts, groups and old groups.
package hierarchy

import (
	"fmt"
	"time"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/scope"
)

// Level identifies a tier of the organisation tree.
type Level string

// Tree levels, top down.
const (
	LevelState    Level = "state"
	LevelRegion   Level = "region"
	LevelDistrict Level = "district"
	LevelGroup    Level = "group"
	LevelOldGroup Level = "old_group"
)

var levels = []Level{LevelState, LevelRegion, LevelDistrict, LevelGroup, LevelOldGroup}

var (
	// ErrUnitNotFound is returned for missing and out-of-scope units alike.
	ErrUnitNotFound = fmt.Errorf("%w: org unit", httpx.ErrNotFound)
	// ErrDuplicateCode signals a code already used at the same level.
	ErrDuplicateCode = fmt.Errorf("%w: code already used at this level", httpx.ErrDuplicate)
	// ErrHasChildren blocks deleting a unit that still has children or records.
	ErrHasChildren = fmt.Errorf("%w: unit still has children", httpx.ErrConflict)
	// ErrInvalidParent signals a parent at the wrong level.
	ErrInvalidParent = fmt.Errorf("%w: parent must sit one level up", httpx.ErrValidation)
)

// ParseLevel accepts the URL form of a level ("old_group" or "old-group").
func ParseLevel(s string) (Level, bool) {
	if s == "old-group" {
		s = string(LevelOldGroup)
	}
	for _, l := range levels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// Parent returns the level one tier up. States have none.
func (l Level) Parent() (Level, bool) {
	for i, cur := range levels {
		if cur == l && i > 0 {
			return levels[i-1], true
		}
	}
	return "", false
}

// Child returns the level one tier down. Old groups have none.
func (l Level) Child() (Level, bool) {
	for i, cur := range levels {
		if cur == l && i+1 < len(levels) {
			return levels[i+1], true
		}
	}
	return "", false
}

// Unit is a node of the organisation tree. The denormalised ancestor ids
// include the unit's own id in its own level column.
type Unit struct {
	ID         int64     `json:"id"`
	Level      Level     `json:"level"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	ParentID   int64     `json:"parent_id,omitempty"`
	StateID    int64     `json:"state_id"`
	RegionID   int64     `json:"region_id"`
	DistrictID int64     `json:"district_id"`
	GroupID    int64     `json:"group_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Hierarchy implements scope.Scoped.
func (u Unit) Hierarchy() scope.Hierarchy {
	return scope.Hierarchy{StateID: u.StateID, RegionID: u.RegionID, DistrictID: u.DistrictID, GroupID: u.GroupID}
}

// Lineage is the full set of ids a record attached to this unit carries.
type Lineage struct {
	StateID    int64
	RegionID   int64
	DistrictID int64
	GroupID    int64
	OldGroupID int64
}

// Lineage resolves the ids for a record attached to the unit. Only groups and
// old groups can carry records.
func (u Unit) Lineage() (Lineage, bool) {
	switch u.Level {
	case LevelGroup:
		return Lineage{StateID: u.StateID, RegionID: u.RegionID, DistrictID: u.DistrictID, GroupID: u.ID}, true
	case LevelOldGroup:
		return Lineage{StateID: u.StateID, RegionID: u.RegionID, DistrictID: u.DistrictID, GroupID: u.GroupID, OldGroupID: u.ID}, true
	default:
		return Lineage{}, false
	}
}

// inherit copies ancestor ids from the parent and places the unit's own id.
func (u *Unit) inherit(parent Unit) {
	u.ParentID = parent.ID
	u.StateID = parent.StateID
	u.RegionID = parent.RegionID
	u.DistrictID = parent.DistrictID
	u.GroupID = parent.GroupID
}

// ListFilter narrows unit listings.
type ListFilter struct {
	Level    Level
	ParentID int64
}

// CreateInput is the payload for creating a unit.
type CreateInput struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=120"`
	ParentID int64  `json:"parent_id" validate:"gte=0"`
}

// UpdateInput renames or recodes a unit.
type UpdateInput struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=120"`
}
