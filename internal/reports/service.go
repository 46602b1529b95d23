package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/flockwatch/flockwatch/internal/attendance"
	"github.com/flockwatch/flockwatch/internal/hierarchy"
	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/scope"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// Source supplies raw attendance. attendance.Repository satisfies it.
type Source interface {
	ListRecords(ctx context.Context, filter attendance.ListFilter) ([]attendance.Record, error)
	ListYouth(ctx context.Context, filter attendance.ListFilter) ([]attendance.YouthRecord, error)
}

// UnitLister resolves unit names. hierarchy.Repository satisfies it.
type UnitLister interface {
	List(ctx context.Context, filter hierarchy.ListFilter) ([]hierarchy.Unit, error)
}

// Service builds scope-filtered reports and caches them per scope.
type Service struct {
	source   Source
	units    UnitLister
	cache    Cache
	group    singleflight.Group
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the report service. A nil cache disables caching.
func NewService(source Source, units UnitLister, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, units: units, cache: cache, validate: validator.New(), logger: logger, now: time.Now}
}

// AllowedTypes lists the report types the principal may request.
func (s *Service) AllowedTypes(p *shared.Principal) []scope.ReportType {
	if p == nil {
		return []scope.ReportType{}
	}
	return scope.AllowedReportTypes(p.Roles)
}

// Build returns the report for the principal's scope, served from cache when possible.
func (s *Service) Build(ctx context.Context, p *shared.Principal, rt scope.ReportType, period Period) (Report, error) {
	if p == nil || !scope.CanRequest(p.Roles, rt) {
		return Report{}, ErrReportForbidden
	}
	if err := s.validate.Struct(period); err != nil {
		return Report{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	auth := p.Auth()
	if s.cache == nil {
		return s.build(ctx, p, rt, period)
	}

	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.build(ctx, p, rt, period)
	}
	key := cacheKey(gen, string(rt), period, scope.Key(auth))
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("report cache read failed", slog.String("key", key), slog.Any("error", err))
	} else if ok {
		recordCacheHit(string(rt))
		return cached, nil
	}
	recordCacheMiss(string(rt))

	report, err, joined := s.singleflightBuild(ctx, key, func(ctx context.Context) (Report, error) {
		built, err := s.build(ctx, p, rt, period)
		if err != nil {
			return Report{}, err
		}
		if err := s.cache.Set(ctx, key, built); err != nil {
			s.logger.Warn("report cache write failed", slog.String("key", key), slog.Any("error", err))
		}
		return built, nil
	})
	if err != nil {
		return Report{}, err
	}
	if joined {
		s.logger.Debug("report build shared", slog.String("key", key))
	}
	return report, nil
}

func (s *Service) build(ctx context.Context, p *shared.Principal, rt scope.ReportType, period Period) (Report, error) {
	start := time.Now()
	defer func() { observeBuildDuration(string(rt), time.Since(start)) }()

	filter := narrow(attendance.ListFilter{Year: period.Year, Month: period.Month}, p.Auth())
	names, err := s.names(ctx, nameLevel(rt))
	if err != nil {
		return Report{}, err
	}
	now := s.now().UTC()
	if rt == scope.ReportYouth {
		recs, err := s.source.ListYouth(ctx, filter)
		if err != nil {
			return Report{}, err
		}
		return buildYouth(period, rbac.Restrict(p, recs), names, now), nil
	}
	recs, err := s.source.ListRecords(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	return buildAttendance(rt, period, rbac.Restrict(p, recs), names, now), nil
}

func (s *Service) names(ctx context.Context, level hierarchy.Level) (map[int64]string, error) {
	if s.units == nil {
		return map[int64]string{}, nil
	}
	units, err := s.units.List(ctx, hierarchy.ListFilter{Level: level})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(units))
	for _, u := range units {
		out[u.ID] = u.Name
	}
	return out, nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

// Warm prebuilds the unscoped reports for a period.
func (s *Service) Warm(ctx context.Context, period Period) error {
	warmer := &shared.Principal{Name: "report warmer", Roles: []roles.Role{roles.SuperAdmin}}
	for _, rt := range scope.AllowedReportTypes(warmer.Roles) {
		if _, err := s.Build(ctx, warmer, rt, period); err != nil {
			return fmt.Errorf("warm %s report: %w", rt, err)
		}
	}
	return nil
}

// narrow pushes the caller's scope into the query so the database does the
// bulk of the filtering.
func narrow(filter attendance.ListFilter, auth scope.Auth) attendance.ListFilter {
	switch scope.Decide(auth) {
	case scope.DecisionState:
		filter.StateID = auth.StateID
	case scope.DecisionRegion:
		filter.RegionID = auth.RegionID
	case scope.DecisionDistrict:
		filter.DistrictID = auth.DistrictID
	case scope.DecisionGroup:
		filter.GroupID = auth.GroupID
	}
	return filter
}

func nameLevel(rt scope.ReportType) hierarchy.Level {
	switch rt {
	case scope.ReportState:
		return hierarchy.LevelState
	case scope.ReportRegion:
		return hierarchy.LevelRegion
	default:
		return hierarchy.LevelGroup
	}
}
