package shared

import (
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/scope"
)

// Principal describes the authenticated actor and the slice of the
// organisation it is scoped to.
type Principal struct {
	UserID     int64        `json:"user_id"`
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	Roles      []roles.Role `json:"roles"`
	StateID    int64        `json:"state_id"`
	RegionID   int64        `json:"region_id"`
	DistrictID int64        `json:"district_id"`
	GroupID    int64        `json:"group_id"`
}

// Auth converts the principal into a scope.Auth.
func (p *Principal) Auth() scope.Auth {
	if p == nil {
		return scope.Auth{}
	}
	return scope.Auth{
		StateID:    p.StateID,
		RegionID:   p.RegionID,
		DistrictID: p.DistrictID,
		GroupID:    p.GroupID,
		Roles:      p.Roles,
	}
}

// Highest returns the principal's most senior role.
func (p *Principal) Highest() roles.Role {
	if p == nil {
		return roles.Viewer
	}
	return roles.Highest(p.Roles)
}

// Hierarchy exposes the principal's own scope ids.
func (p *Principal) Hierarchy() scope.Hierarchy {
	if p == nil {
		return scope.Hierarchy{}
	}
	return scope.Hierarchy{StateID: p.StateID, RegionID: p.RegionID, DistrictID: p.DistrictID, GroupID: p.GroupID}
}
