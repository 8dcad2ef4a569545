package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/condoflow/condoflow/internal/shared"
)

// ImportKeysCleanupJob prunes bank import dedupe keys past the retention
// window so the idempotency table does not grow without bound.
type ImportKeysCleanupJob struct {
	store  *shared.IdempotencyStore
	logger *slog.Logger
}

// NewImportKeysCleanupJob constructs the job.
func NewImportKeysCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger) *ImportKeysCleanupJob {
	return &ImportKeysCleanupJob{store: store, logger: logger}
}

// Handle processes TaskBillingImportKeysCleanup tasks.
func (j *ImportKeysCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ImportKeysCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		payload.Retention = 90 * 24 * time.Hour
	}
	if err := j.store.Cleanup(ctx, payload.Retention); err != nil {
		j.logger.Error("import keys cleanup", slog.Any("error", err))
		return err
	}
	j.logger.Info("import keys cleanup done", slog.Duration("retention", payload.Retention))
	return nil
}
