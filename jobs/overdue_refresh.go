package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/condoflow/condoflow/internal/billing"
	"github.com/condoflow/condoflow/internal/observability"
)

// OverdueRefreshJob re-derives the status of every charge past its due date.
// Scheduled nightly so charges nobody touches still move to overdue.
type OverdueRefreshJob struct {
	service *billing.Service
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewOverdueRefreshJob constructs the job.
func NewOverdueRefreshJob(service *billing.Service, logger *slog.Logger, metrics *observability.Metrics) *OverdueRefreshJob {
	return &OverdueRefreshJob{service: service, logger: logger, metrics: metrics}
}

// Handle processes TaskBillingOverdueRefresh tasks.
func (j *OverdueRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OverdueRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	started := time.Now()
	transitioned, err := j.service.RefreshOverdueStatuses(ctx, asOf)
	if err != nil {
		j.logger.Error("overdue refresh",
			slog.Any("error", err),
			slog.Int("transitioned", transitioned),
		)
		return err
	}
	j.metrics.StatusRefreshed()
	j.logger.Info("overdue refresh done",
		slog.Int("transitioned", transitioned),
		slog.Duration("took", time.Since(started)),
	)
	return nil
}
