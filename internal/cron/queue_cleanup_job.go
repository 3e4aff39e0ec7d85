package cron

import (
	"context"
	"fmt"

	"github.com/treumlabs/signalcast/pkg/logger"
)

type QueueCleanupJobParams struct {
	Logger        *logger.Logger
	Queue         queueCleaner
	RetentionDays int
}

type queueCleaner interface {
	CleanupOldItems(ctx context.Context, daysOld int) (int64, error)
}

// NewQueueCleanupJob purges terminal queue rows past the retention window.
func NewQueueCleanupJob(params QueueCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("queue service required")
	}
	return &queueCleanupJob{
		logg:      params.Logger,
		queue:     params.Queue,
		retention: params.RetentionDays,
	}, nil
}

type queueCleanupJob struct {
	logg      *logger.Logger
	queue     queueCleaner
	retention int
}

func (j *queueCleanupJob) Name() string { return "queue-cleanup" }

func (j *queueCleanupJob) Run(ctx context.Context) error {
	purged, err := j.queue.CleanupOldItems(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("queue cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"retention_days": j.retention,
		"rows_purged":    purged,
	})
	j.logg.Info(logCtx, "queue cleanup complete")
	return nil
}
