package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/comanda-pos/comanda/internal/jobs"
)

// KeyPurger removes idempotency keys older than the retention window.
type KeyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob purges processed request keys on a schedule.
type IdempotencyCleanupJob struct {
	Keys      KeyPurger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob wires the cleanup handler. Retention defaults to 7 days.
func NewIdempotencyCleanupJob(keys KeyPurger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{Keys: keys, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		err = tracker.End(err)
	}()

	removed, err := j.Keys.Cleanup(ctx, j.Retention)
	if err != nil {
		j.Logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPurged(removed)
	j.Logger.Info("idempotency keys purged", slog.Int64("removed", removed), slog.Duration("retention", j.Retention))
	return nil
}
