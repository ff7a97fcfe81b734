package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnalyticsWarmup precomputes analytics caches for active companies.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// AnalyticsWarmupPayload scopes a warmup run. An empty CompanyIDs list means
// every company with payment activity.
type AnalyticsWarmupPayload struct {
	CompanyIDs []string `json:"company_ids,omitempty"`
}

// NewAnalyticsWarmupTask constructs an Asynq task for a warmup run.
func NewAnalyticsWarmupTask(payload AnalyticsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data), nil
}
