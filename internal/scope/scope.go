// Package scope decides which slice of the organisation a caller may see.
package scope

import "github.com/flockwatch/flockwatch/internal/roles"

// Hierarchy carries the ids of the nodes an entity hangs under. Zero means absent.
type Hierarchy struct {
	StateID    int64 `json:"state_id"`
	RegionID   int64 `json:"region_id"`
	DistrictID int64 `json:"district_id"`
	GroupID    int64 `json:"group_id"`
}

// Scoped is implemented by anything that can be filtered by hierarchy.
type Scoped interface {
	Hierarchy() Hierarchy
}

// Auth is the caller's own scope.
type Auth struct {
	StateID    int64
	RegionID   int64
	DistrictID int64
	GroupID    int64
	Roles      []roles.Role
}

// Decision describes how a scope applies to a caller.
type Decision int

const (
	// DecisionDeny means nothing is visible.
	DecisionDeny Decision = iota
	// DecisionAll means everything is visible.
	DecisionAll
	// DecisionState filters by state id.
	DecisionState
	// DecisionRegion filters by region id.
	DecisionRegion
	// DecisionDistrict filters by district id.
	DecisionDistrict
	// DecisionGroup filters by group id.
	DecisionGroup
)

// String returns the decision name used in metrics and logs.
func (d Decision) String() string {
	switch d {
	case DecisionAll:
		return "all"
	case DecisionState:
		return "state"
	case DecisionRegion:
		return "region"
	case DecisionDistrict:
		return "district"
	case DecisionGroup:
		return "group"
	default:
		return "deny"
	}
}

// Decide picks the single hierarchy level a caller is filtered on. A role whose
// scoping id is missing does not match and the next role is tried.
func Decide(auth Auth) Decision {
	switch {
	case roles.Has(auth.Roles, roles.SuperAdmin):
		return DecisionAll
	case roles.Has(auth.Roles, roles.StateAdmin) && auth.StateID != 0:
		return DecisionState
	case roles.Has(auth.Roles, roles.RegionAdmin) && auth.RegionID != 0:
		return DecisionRegion
	case roles.Has(auth.Roles, roles.DistrictAdmin) && auth.DistrictID != 0:
		return DecisionDistrict
	case roles.Has(auth.Roles, roles.GroupAdmin) && auth.GroupID != 0:
		return DecisionGroup
	default:
		return DecisionDeny
	}
}

func (d Decision) admits(h Hierarchy, auth Auth) bool {
	switch d {
	case DecisionAll:
		return true
	case DecisionState:
		return h.StateID == auth.StateID
	case DecisionRegion:
		return h.RegionID == auth.RegionID
	case DecisionDistrict:
		return h.DistrictID == auth.DistrictID
	case DecisionGroup:
		return h.GroupID == auth.GroupID
	default:
		return false
	}
}

// Restrict returns the records the caller may see, preserving input order.
// Super Admin gets the input slice back untouched. Callers that match no rule
// get an empty, non-nil slice.
func Restrict[T Scoped](records []T, auth Auth) []T {
	decision := Decide(auth)
	if decision == DecisionAll {
		return records
	}
	out := make([]T, 0, len(records))
	if decision == DecisionDeny {
		return out
	}
	for _, rec := range records {
		if decision.admits(rec.Hierarchy(), auth) {
			out = append(out, rec)
		}
	}
	return out
}

// Permits reports whether a single entity is inside the caller's scope.
func Permits(rec Scoped, auth Auth) bool {
	return Decide(auth).admits(rec.Hierarchy(), auth)
}

// Key renders a stable cache key fragment for the caller's effective scope.
func Key(auth Auth) string {
	switch d := Decide(auth); d {
	case DecisionState:
		return d.String() + ":" + itoa(auth.StateID)
	case DecisionRegion:
		return d.String() + ":" + itoa(auth.RegionID)
	case DecisionDistrict:
		return d.String() + ":" + itoa(auth.DistrictID)
	case DecisionGroup:
		return d.String() + ":" + itoa(auth.GroupID)
	default:
		return d.String()
	}
}
