package auth

import (
	"time"

	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	Roles        []roles.Role
	StateID      int64
	RegionID     int64
	DistrictID   int64
	GroupID      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal projects the user onto the request principal.
func (u *User) Principal() *shared.Principal {
	return &shared.Principal{
		UserID:     u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Roles:      append([]roles.Role(nil), u.Roles...),
		StateID:    u.StateID,
		RegionID:   u.RegionID,
		DistrictID: u.DistrictID,
		GroupID:    u.GroupID,
	}
}
