package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup rebuilds cached reports for a period.
	TaskReportsWarmup = "reports:warmup"
)

// ReportsWarmupPayload selects the period to warm. A zero year means the
// current month at processing time.
type ReportsWarmupPayload struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
}

// NewReportsWarmupTask constructs an Asynq task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}
