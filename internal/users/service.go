package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/flockwatch/flockwatch/internal/hierarchy"
	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/scope"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// UnitResolver looks up org units without applying scope.
type UnitResolver interface {
	Resolve(ctx context.Context, id int64) (hierarchy.Unit, error)
}

// Service applies grant and scope rules to user administration.
type Service struct {
	repo     RepositoryPort
	units    UnitResolver
	audit    shared.AuditRecorder
	validate *validator.Validate
	logger   *slog.Logger
	cost     int
}

// NewService constructs the users service.
func NewService(repo RepositoryPort, units UnitResolver, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, units: units, audit: audit, validate: validator.New(), logger: logger, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// List returns one page of the users visible to the principal.
func (s *Service) List(ctx context.Context, p *shared.Principal, page, perPage int) (ListResult, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return ListResult{}, err
	}
	visible := rbac.Restrict(p, all)
	pagination := shared.NewPagination(page, perPage, len(visible))
	start, end := pagination.Window(len(visible))
	return ListResult{Items: visible[start:end], Pagination: pagination}, nil
}

// Get returns a user within scope.
func (s *Service) Get(ctx context.Context, p *shared.Principal, id int64) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !rbac.Permits(p, u) {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Create registers a user. Every granted role must be assignable by the caller
// and the anchor unit must be inside the caller's scope.
func (s *Service) Create(ctx context.Context, p *shared.Principal, in CreateInput) (User, error) {
	if err := s.validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.checkGrant(p, in.Roles); err != nil {
		return User{}, err
	}
	placement, err := s.placement(ctx, p, in.UnitID)
	if err != nil {
		return User{}, err
	}
	if err := requireScopeIDs(in.Roles, placement); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{Email: in.Email, Name: in.Name, IsActive: true, Roles: in.Roles}
	u.place(placement)
	created, err := s.repo.Create(ctx, u, string(hash))
	if err != nil {
		return User{}, err
	}
	s.record(ctx, p, shared.AuditCreate, created.ID, map[string]any{"email": created.Email, "roles": in.Roles.Strings()})
	return created, nil
}

// ReplaceRoles swaps a user's roles. The caller must outrank both the old and
// the new role set.
func (s *Service) ReplaceRoles(ctx context.Context, p *shared.Principal, id int64, in RolesInput) (User, error) {
	if err := s.validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	target, err := s.Get(ctx, p, id)
	if err != nil {
		return User{}, err
	}
	if err := s.checkGrant(p, target.Roles); err != nil {
		return User{}, err
	}
	if err := s.checkGrant(p, in.Roles); err != nil {
		return User{}, err
	}
	if err := requireScopeIDs(in.Roles, target.Hierarchy()); err != nil {
		return User{}, err
	}
	if err := s.repo.ReplaceRoles(ctx, id, in.Roles); err != nil {
		return User{}, err
	}
	s.record(ctx, p, shared.AuditUpdate, id, map[string]any{"roles_before": roles.Set(target.Roles).Strings(), "roles_after": in.Roles.Strings()})
	target.Roles = append([]roles.Role(nil), in.Roles...)
	return target, nil
}

// UpdateScope re-anchors a user under a new unit within the caller's scope.
func (s *Service) UpdateScope(ctx context.Context, p *shared.Principal, id int64, in ScopeInput) (User, error) {
	if err := s.validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	target, err := s.Get(ctx, p, id)
	if err != nil {
		return User{}, err
	}
	if err := s.checkGrant(p, target.Roles); err != nil {
		return User{}, err
	}
	placement, err := s.placement(ctx, p, in.UnitID)
	if err != nil {
		return User{}, err
	}
	if err := requireScopeIDs(target.Roles, placement); err != nil {
		return User{}, err
	}
	if err := s.repo.UpdateScope(ctx, id, placement); err != nil {
		return User{}, err
	}
	s.record(ctx, p, shared.AuditUpdate, id, map[string]any{"scope_before": target.Hierarchy(), "scope_after": placement})
	target.place(placement)
	return target, nil
}

// Deactivate disables a user and ends its sessions.
func (s *Service) Deactivate(ctx context.Context, p *shared.Principal, id int64) error {
	if p != nil && p.UserID == id {
		return fmt.Errorf("%w: cannot deactivate yourself", httpx.ErrConflict)
	}
	target, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.checkGrant(p, target.Roles); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, p, shared.AuditUpdate, id, map[string]any{"is_active": false})
	return nil
}

func (s *Service) checkGrant(p *shared.Principal, list []roles.Role) error {
	var actor []roles.Role
	if p != nil {
		actor = p.Roles
	}
	for _, role := range list {
		if !roles.CanAssign(actor, role) {
			return fmt.Errorf("%w: %s", ErrCannotAssign, role)
		}
	}
	return nil
}

// placement resolves the anchor unit into scope ids. Unscoped placement is only
// open to callers who see everything.
func (s *Service) placement(ctx context.Context, p *shared.Principal, unitID int64) (scope.Hierarchy, error) {
	if unitID == 0 {
		if scope.Decide(p.Auth()) != scope.DecisionAll {
			return scope.Hierarchy{}, fmt.Errorf("%w: unit_id is required", httpx.ErrValidation)
		}
		return scope.Hierarchy{}, nil
	}
	unit, err := s.units.Resolve(ctx, unitID)
	if err != nil {
		return scope.Hierarchy{}, err
	}
	if !rbac.Permits(p, unit) {
		return scope.Hierarchy{}, hierarchy.ErrUnitNotFound
	}
	return unit.Hierarchy(), nil
}

// requireScopeIDs rejects role sets whose scope id is missing from placement.
// Such users would see nothing at all.
func requireScopeIDs(list []roles.Role, h scope.Hierarchy) error {
	for _, role := range list {
		var id int64 = -1
		switch role {
		case roles.StateAdmin:
			id = h.StateID
		case roles.RegionAdmin:
			id = h.RegionID
		case roles.DistrictAdmin:
			id = h.DistrictID
		case roles.GroupAdmin:
			id = h.GroupID
		}
		if id == 0 {
			return fmt.Errorf("%w: %s needs a unit at its own level or below", httpx.ErrValidation, role)
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, p *shared.Principal, action string, id int64, meta map[string]any) {
	var actor int64
	if p != nil {
		actor = p.UserID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit user", slog.String("action", action), slog.Any("error", err))
	}
}
