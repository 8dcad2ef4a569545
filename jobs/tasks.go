package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBillingOverdueRefresh sweeps charges past their due date.
	TaskBillingOverdueRefresh = "billing:overdue_refresh"
	// TaskBillingImportKeysCleanup prunes aged bank import dedupe keys.
	TaskBillingImportKeysCleanup = "billing:import_keys_cleanup"
)

// OverdueRefreshPayload parameterizes the overdue sweep. AsOf is optional;
// the handler falls back to the current time.
type OverdueRefreshPayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// NewOverdueRefreshTask constructs the overdue sweep task.
func NewOverdueRefreshTask(payload OverdueRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillingOverdueRefresh, data), nil
}

// ImportKeysCleanupPayload carries the retention window for dedupe keys.
type ImportKeysCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewImportKeysCleanupTask constructs the dedupe key cleanup task.
func NewImportKeysCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(ImportKeysCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillingImportKeysCleanup, data), nil
}
