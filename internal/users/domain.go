// Package users administers dashboard accounts, their roles and their scope.
package users

import (
	"fmt"
	"time"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/scope"
	"github.com/flockwatch/flockwatch/internal/shared"
)

var (
	// ErrUserNotFound covers missing and out-of-scope users.
	ErrUserNotFound = fmt.Errorf("%w: user", httpx.ErrNotFound)
	// ErrEmailTaken signals a duplicate email.
	ErrEmailTaken = fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
	// ErrCannotAssign is returned when the caller ranks below a role it tries to grant or revoke.
	ErrCannotAssign = fmt.Errorf("%w: role outranks caller", httpx.ErrForbidden)
)

// User is an account as seen by administrators. The password hash never leaves
// the repository layer.
type User struct {
	ID         int64        `json:"id"`
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	IsActive   bool         `json:"is_active"`
	Roles      []roles.Role `json:"roles"`
	StateID    int64        `json:"state_id"`
	RegionID   int64        `json:"region_id"`
	DistrictID int64        `json:"district_id"`
	GroupID    int64        `json:"group_id"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Hierarchy implements scope.Scoped.
func (u User) Hierarchy() scope.Hierarchy {
	return scope.Hierarchy{StateID: u.StateID, RegionID: u.RegionID, DistrictID: u.DistrictID, GroupID: u.GroupID}
}

func (u *User) place(h scope.Hierarchy) {
	u.StateID, u.RegionID, u.DistrictID, u.GroupID = h.StateID, h.RegionID, h.DistrictID, h.GroupID
}

// CreateInput is the payload for creating a user. UnitID anchors the user's
// scope; zero means unscoped.
type CreateInput struct {
	Email    string    `json:"email" validate:"required,email,max=254"`
	Name     string    `json:"name" validate:"required,max=120"`
	Password string    `json:"password" validate:"required,min=8,max=72"`
	Roles    roles.Set `json:"roles" validate:"required,min=1"`
	UnitID   int64     `json:"unit_id" validate:"gte=0"`
}

// RolesInput replaces a user's roles.
type RolesInput struct {
	Roles roles.Set `json:"roles" validate:"required,min=1"`
}

// ScopeInput moves a user to a new anchor unit.
type ScopeInput struct {
	UnitID int64 `json:"unit_id" validate:"gte=0"`
}

// ListResult is a page of users.
type ListResult struct {
	Items      []User            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
