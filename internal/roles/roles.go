// Package roles ranks dashboard roles and derives what each role gets to see.
package roles

import (
	"strings"

	"golang.org/x/text/cases"
)

// Role is a canonical role label.
type Role string

// Known roles.
const (
	SuperAdmin    Role = "Super Admin"
	Admin         Role = "admin"
	StateAdmin    Role = "State Admin"
	RegionAdmin   Role = "Region Admin"
	DistrictAdmin Role = "District Admin"
	GroupAdmin    Role = "Group Admin"
	Viewer        Role = "Viewer"
)

// roleHierarchy is the single rank table used for every comparison.
// Group Admin ranks above District Admin.
var roleHierarchy = map[Role]int{
	SuperAdmin:    6,
	Admin:         5,
	StateAdmin:    4,
	RegionAdmin:   3,
	GroupAdmin:    2,
	DistrictAdmin: 1,
	Viewer:        0,
}

// All returns every known role ordered from most to least privileged.
func All() []Role {
	return []Role{SuperAdmin, Admin, StateAdmin, RegionAdmin, GroupAdmin, DistrictAdmin, Viewer}
}

// IsValid reports whether role is a canonical known role.
func IsValid(role Role) bool {
	_, ok := roleHierarchy[role]
	return ok
}

// Level returns the rank of role, or -1 when the role is unknown.
func Level(role Role) int {
	if level, ok := roleHierarchy[role]; ok {
		return level
	}
	return -1
}

// Highest returns the most senior role in the list. Ties keep the left-most
// entry. An empty list yields Viewer.
func Highest(list []Role) Role {
	if len(list) == 0 {
		return Viewer
	}
	best := list[0]
	for _, r := range list[1:] {
		if Level(r) > Level(best) {
			best = r
		}
	}
	return best
}

// IsAboveOrEqual reports whether a ranks at or above b.
func IsAboveOrEqual(a, b Role) bool {
	return Level(a) >= Level(b)
}

// IsBelow reports whether a ranks strictly below b.
func IsBelow(a, b Role) bool {
	return Level(a) < Level(b)
}

// Has reports whether role appears in list.
func Has(list []Role, role Role) bool {
	for _, r := range list {
		if r == role {
			return true
		}
	}
	return false
}

// CanAssign checks whether an actor holding the given roles may grant target.
func CanAssign(actor []Role, target Role) bool {
	if !IsValid(target) || len(actor) == 0 {
		return false
	}
	highest := Highest(actor)
	if !IsValid(highest) {
		return false
	}
	return IsAboveOrEqual(highest, target)
}

var foldedLabels = func() map[string]Role {
	out := make(map[string]Role, len(roleHierarchy))
	for role := range roleHierarchy {
		out[foldLabel(string(role))] = role
	}
	return out
}()

// Parse maps a free-form label ("state_admin", "STATE ADMIN", " State  Admin ")
// onto its canonical role.
func Parse(label string) (Role, bool) {
	role, ok := foldedLabels[foldLabel(label)]
	return role, ok
}

func foldLabel(label string) string {
	label = strings.NewReplacer("_", " ", "-", " ").Replace(label)
	label = strings.Join(strings.Fields(label), " ")
	return cases.Fold().String(label)
}
