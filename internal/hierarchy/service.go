package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// Service applies tree and scope rules on top of the repository.
type Service struct {
	repo     RepositoryPort
	audit    shared.AuditRecorder
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs the hierarchy service.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, validate: validator.New(), logger: logger}
}

// List returns the units at a level visible to the principal.
func (s *Service) List(ctx context.Context, p *shared.Principal, filter ListFilter) ([]Unit, error) {
	units, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return rbac.Restrict(p, units), nil
}

// Get returns a unit if it is within the principal's scope.
func (s *Service) Get(ctx context.Context, p *shared.Principal, id int64) (Unit, error) {
	unit, err := s.repo.Get(ctx, id)
	if err != nil {
		return Unit{}, err
	}
	if !rbac.Permits(p, unit) {
		return Unit{}, ErrUnitNotFound
	}
	return unit, nil
}

// Resolve loads a unit without scope checks. Callers apply their own.
func (s *Service) Resolve(ctx context.Context, id int64) (Unit, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a unit at level under the given parent.
func (s *Service) Create(ctx context.Context, p *shared.Principal, level Level, in CreateInput) (Unit, error) {
	if err := s.validate.Struct(in); err != nil {
		return Unit{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	unit := Unit{Level: level, Code: in.Code, Name: in.Name}

	parentLevel, hasParent := level.Parent()
	if !hasParent {
		if in.ParentID != 0 {
			return Unit{}, ErrInvalidParent
		}
		if !roles.IsAboveOrEqual(p.Highest(), roles.Admin) {
			return Unit{}, fmt.Errorf("%w: creating a state requires an administrator", httpx.ErrForbidden)
		}
	} else {
		if in.ParentID == 0 {
			return Unit{}, fmt.Errorf("%w: parent_id is required", httpx.ErrValidation)
		}
		parent, err := s.Get(ctx, p, in.ParentID)
		if err != nil {
			return Unit{}, err
		}
		if parent.Level != parentLevel {
			return Unit{}, ErrInvalidParent
		}
		unit.inherit(parent)
	}

	created, err := s.repo.Create(ctx, unit)
	if err != nil {
		return Unit{}, err
	}
	s.record(ctx, p, shared.AuditCreate, created)
	return created, nil
}

// Update renames or recodes a unit in scope.
func (s *Service) Update(ctx context.Context, p *shared.Principal, id int64, in UpdateInput) (Unit, error) {
	if err := s.validate.Struct(in); err != nil {
		return Unit{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if _, err := s.Get(ctx, p, id); err != nil {
		return Unit{}, err
	}
	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Unit{}, err
	}
	s.record(ctx, p, shared.AuditUpdate, updated)
	return updated, nil
}

// Delete removes a childless unit in scope.
func (s *Service) Delete(ctx context.Context, p *shared.Principal, id int64) error {
	unit, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return ErrHasChildren
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, p, shared.AuditDelete, unit)
	return nil
}

func (s *Service) record(ctx context.Context, p *shared.Principal, action string, u Unit) {
	var actor int64
	if p != nil {
		actor = p.UserID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "org_unit",
		EntityID: strconv.FormatInt(u.ID, 10),
		Meta:     map[string]any{"level": u.Level, "code": u.Code, "name": u.Name},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit org unit", slog.String("action", action), slog.Any("error", err))
	}
}
