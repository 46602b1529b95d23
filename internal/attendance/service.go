package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/flockwatch/flockwatch/internal/hierarchy"
	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// UnitResolver looks up org units without applying scope.
type UnitResolver interface {
	Resolve(ctx context.Context, id int64) (hierarchy.Unit, error)
}

// Invalidator drops derived data such as cached reports after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service enforces scope on every attendance read and write.
type Service struct {
	repo     RepositoryPort
	units    UnitResolver
	audit    shared.AuditRecorder
	inval    Invalidator
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the attendance service.
func NewService(repo RepositoryPort, units UnitResolver, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, units: units, audit: audit, validate: validator.New(), logger: logger, now: time.Now}
}

// WithInvalidator registers a hook run after every successful write.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.inval = inv
	return s
}

// lineage resolves the unit a record attaches to and checks it is in scope.
func (s *Service) lineage(ctx context.Context, p *shared.Principal, unitID int64) (hierarchy.Lineage, error) {
	unit, err := s.units.Resolve(ctx, unitID)
	if err != nil {
		return hierarchy.Lineage{}, err
	}
	lineage, ok := unit.Lineage()
	if !ok {
		return hierarchy.Lineage{}, ErrUnitNotRecordable
	}
	if !rbac.Permits(p, unit) {
		return hierarchy.Lineage{}, hierarchy.ErrUnitNotFound
	}
	return lineage, nil
}

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}

// ListRecords returns the caller-visible records matching filter.
func (s *Service) ListRecords(ctx context.Context, p *shared.Principal, filter ListFilter) ([]Record, error) {
	recs, err := s.repo.ListRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	return rbac.Restrict(p, recs), nil
}

// GetRecord returns one record within scope.
func (s *Service) GetRecord(ctx context.Context, p *shared.Principal, id int64) (Record, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !rbac.Permits(p, rec) {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *Service) buildRecord(ctx context.Context, p *shared.Principal, in RecordInput) (Record, error) {
	if err := s.check(in); err != nil {
		return Record{}, err
	}
	date, err := time.Parse(time.DateOnly, in.ServiceDate)
	if err != nil {
		return Record{}, fmt.Errorf("%w: service_date", httpx.ErrValidation)
	}
	lineage, err := s.lineage(ctx, p, in.UnitID)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		ServiceType:   in.ServiceType,
		ServiceDate:   date,
		Year:          date.Year(),
		Month:         int(date.Month()),
		Week:          in.Week,
		Men:           in.Men,
		Women:         in.Women,
		YouthBoys:     in.YouthBoys,
		YouthGirls:    in.YouthGirls,
		ChildrenBoys:  in.ChildrenBoys,
		ChildrenGirls: in.ChildrenGirls,
	}
	rec.place(lineage)
	return rec, nil
}

// CreateRecord stores a record for a group or old group in scope.
func (s *Service) CreateRecord(ctx context.Context, p *shared.Principal, in RecordInput) (Record, error) {
	rec, err := s.buildRecord(ctx, p, in)
	if err != nil {
		return Record{}, err
	}
	rec.CreatedBy = p.UserID
	created, err := s.repo.CreateRecord(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	s.record(ctx, p, shared.AuditCreate, "attendance_record", created.ID, map[string]any{"group_id": created.GroupID, "total": created.Total()})
	return created, nil
}

// UpdateRecord replaces a record. Both the stored record and its new placement
// must be in scope.
func (s *Service) UpdateRecord(ctx context.Context, p *shared.Principal, id int64, in RecordInput) (Record, error) {
	existing, err := s.GetRecord(ctx, p, id)
	if err != nil {
		return Record{}, err
	}
	rec, err := s.buildRecord(ctx, p, in)
	if err != nil {
		return Record{}, err
	}
	rec.ID = existing.ID
	rec.CreatedBy = existing.CreatedBy
	updated, err := s.repo.UpdateRecord(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	s.record(ctx, p, shared.AuditUpdate, "attendance_record", id, map[string]any{"before": existing.Total(), "after": updated.Total()})
	return updated, nil
}

// DeleteRecord removes a record in scope.
func (s *Service) DeleteRecord(ctx context.Context, p *shared.Principal, id int64) error {
	existing, err := s.GetRecord(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRecord(ctx, id); err != nil {
		return err
	}
	s.record(ctx, p, shared.AuditDelete, "attendance_record", id, map[string]any{"group_id": existing.GroupID})
	return nil
}

// ListYouth returns the caller-visible youth records matching filter.
func (s *Service) ListYouth(ctx context.Context, p *shared.Principal, filter ListFilter) ([]YouthRecord, error) {
	recs, err := s.repo.ListYouth(ctx, filter)
	if err != nil {
		return nil, err
	}
	return rbac.Restrict(p, recs), nil
}

// GetYouth returns one youth record within scope.
func (s *Service) GetYouth(ctx context.Context, p *shared.Principal, id int64) (YouthRecord, error) {
	rec, err := s.repo.GetYouth(ctx, id)
	if err != nil {
		return YouthRecord{}, err
	}
	if !rbac.Permits(p, rec) {
		return YouthRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *Service) buildYouth(ctx context.Context, p *shared.Principal, in YouthInput) (YouthRecord, error) {
	if err := s.check(in); err != nil {
		return YouthRecord{}, err
	}
	lineage, err := s.lineage(ctx, p, in.UnitID)
	if err != nil {
		return YouthRecord{}, err
	}
	rec := YouthRecord{
		AttendanceType: in.AttendanceType,
		Year:           in.Year,
		Month:          in.Month,
		Week:           in.Week,
		MemberBoys:     in.MemberBoys,
		MemberGirls:    in.MemberGirls,
		VisitorBoys:    in.VisitorBoys,
		VisitorGirls:   in.VisitorGirls,
	}
	rec.place(lineage)
	return rec, nil
}

// CreateYouth stores a youth record for a group or old group in scope.
func (s *Service) CreateYouth(ctx context.Context, p *shared.Principal, in YouthInput) (YouthRecord, error) {
	rec, err := s.buildYouth(ctx, p, in)
	if err != nil {
		return YouthRecord{}, err
	}
	rec.CreatedBy = p.UserID
	created, err := s.repo.CreateYouth(ctx, rec)
	if err != nil {
		return YouthRecord{}, err
	}
	s.record(ctx, p, shared.AuditCreate, "youth_attendance_record", created.ID, map[string]any{"group_id": created.GroupID, "total": created.Total()})
	return created, nil
}

// UpdateYouth replaces a youth record in scope.
func (s *Service) UpdateYouth(ctx context.Context, p *shared.Principal, id int64, in YouthInput) (YouthRecord, error) {
	existing, err := s.GetYouth(ctx, p, id)
	if err != nil {
		return YouthRecord{}, err
	}
	rec, err := s.buildYouth(ctx, p, in)
	if err != nil {
		return YouthRecord{}, err
	}
	rec.ID = existing.ID
	rec.CreatedBy = existing.CreatedBy
	updated, err := s.repo.UpdateYouth(ctx, rec)
	if err != nil {
		return YouthRecord{}, err
	}
	s.record(ctx, p, shared.AuditUpdate, "youth_attendance_record", id, map[string]any{"before": existing.Total(), "after": updated.Total()})
	return updated, nil
}

// DeleteYouth removes a youth record in scope.
func (s *Service) DeleteYouth(ctx context.Context, p *shared.Principal, id int64) error {
	existing, err := s.GetYouth(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteYouth(ctx, id); err != nil {
		return err
	}
	s.record(ctx, p, shared.AuditDelete, "youth_attendance_record", id, map[string]any{"group_id": existing.GroupID})
	return nil
}

func (s *Service) record(ctx context.Context, p *shared.Principal, action, entity string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit attendance", slog.String("entity", entity), slog.String("action", action), slog.Any("error", err))
	}
	if s.inval == nil {
		return
	}
	if err := s.inval.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate reports", slog.String("entity", entity), slog.Any("error", err))
	}
}
