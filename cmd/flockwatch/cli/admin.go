package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/users"
)

// AdminCreator is the slice of the user repository bootstrap needs.
type AdminCreator interface {
	Create(ctx context.Context, u users.User, passwordHash string) (users.User, error)
}

// BootstrapOptions describes the first Super Admin account.
type BootstrapOptions struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required,max=120"`
	Password string `validate:"required,min=8,max=72"`
	Cost     int
}

// BootstrapAdmin creates an unscoped Super Admin. It is the only way to create
// an account without an existing administrator.
func BootstrapAdmin(ctx context.Context, repo AdminCreator, opts BootstrapOptions) (users.User, error) {
	opts.Email = strings.ToLower(strings.TrimSpace(opts.Email))
	opts.Name = strings.TrimSpace(opts.Name)
	if err := validator.New().Struct(opts); err != nil {
		return users.User{}, fmt.Errorf("bootstrap admin: %w", err)
	}
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), cost)
	if err != nil {
		return users.User{}, fmt.Errorf("bootstrap admin: hash password: %w", err)
	}
	return repo.Create(ctx, users.User{
		Email:    opts.Email,
		Name:     opts.Name,
		IsActive: true,
		Roles:    []roles.Role{roles.SuperAdmin},
	}, string(hash))
}
