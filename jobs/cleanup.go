package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// CleanupJob prunes idempotency keys past their retention window.
type CleanupJob struct {
	store     *shared.IdempotencyStore
	retention time.Duration
	logger    *slog.Logger
}

// NewCleanupJob constructs the job. The retention from config is the
// fallback when the task payload carries none.
func NewCleanupJob(store *shared.IdempotencyStore, retention time.Duration, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{store: store, retention: retention, logger: logger}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	retention := j.retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	if err := j.store.Cleanup(ctx, retention); err != nil {
		return err
	}
	j.logger.Info("idempotency keys pruned", slog.Duration("retention", retention))
	return nil
}
