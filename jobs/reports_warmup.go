package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/flockwatch/flockwatch/internal/jobs"
	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer prebuilds reports. reports.Service satisfies it.
type Warmer interface {
	Warm(ctx context.Context, period reports.Period) error
}

// ReportsWarmupJob fills the report cache so dashboards open warm.
type ReportsWarmupJob struct {
	Reports Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
	clock   func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(warmer Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{
		Reports: warmer,
		Logger:  logger,
		Metrics: metrics,
		Timeout: time.Minute,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	period := j.period(payload)

	tracker := j.metrics().Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("period", period.String()))
	logger.Info("starting reports warmup")
	start := j.now()

	runCtx := ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	if err := j.Reports.Warm(runCtx, period); err != nil {
		resultErr = err
		logger.Error("reports warmup failed", slog.Any("error", err))
		if errors.Is(err, httpx.ErrValidation) {
			return errors.Join(err, asynq.SkipRetry)
		}
		return resultErr
	}
	logger.Info("completed reports warmup", slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *ReportsWarmupJob) period(p ReportsWarmupPayload) reports.Period {
	if p.Year == 0 {
		now := j.now()
		return reports.Period{Year: now.Year(), Month: int(now.Month())}
	}
	return reports.Period{Year: p.Year, Month: p.Month}
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
