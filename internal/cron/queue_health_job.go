package cron

import (
	"context"
	"fmt"

	"github.com/treumlabs/signalcast/internal/queue"
	"github.com/treumlabs/signalcast/pkg/enums"
	"github.com/treumlabs/signalcast/pkg/logger"
)

const failedBuildupThreshold = 10

type QueueHealthJobParams struct {
	Logger *logger.Logger
	Queue  statusReader
}

type statusReader interface {
	QueueStatus(ctx context.Context) (queue.Status, error)
}

// NewQueueHealthJob periodically reports queue depth, failed-item buildup,
// and rate-limit saturation so operators notice a stuck pipeline before
// producers do.
func NewQueueHealthJob(params QueueHealthJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("queue service required")
	}
	return &queueHealthJob{logg: params.Logger, queue: params.Queue}, nil
}

type queueHealthJob struct {
	logg  *logger.Logger
	queue statusReader
}

func (j *queueHealthJob) Name() string { return "queue-health" }

func (j *queueHealthJob) Run(ctx context.Context) error {
	status, err := j.queue.QueueStatus(ctx)
	if err != nil {
		return fmt.Errorf("queue health: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"pending":              status.QueueCounts[enums.StatusPending],
		"approved":             status.QueueCounts[enums.StatusApproved],
		"posted":               status.QueueCounts[enums.StatusPosted],
		"failed":               status.QueueCounts[enums.StatusFailed],
		"duplicates_prevented": status.DuplicateStats.DuplicatesPrevented,
	})
	j.logg.Info(logCtx, "queue health snapshot")

	if failed := status.QueueCounts[enums.StatusFailed]; failed > failedBuildupThreshold {
		j.logg.Warn(j.logg.WithField(ctx, "failed", failed), "failed items building up")
	}

	for platform, limits := range status.RateLimits {
		if !limits.HourlyOK || !limits.DailyOK {
			satCtx := j.logg.WithFields(ctx, map[string]any{
				"platform":     platform,
				"hourly_count": limits.HourlyCount,
				"hourly_limit": limits.HourlyLimit,
				"daily_count":  limits.DailyCount,
				"daily_limit":  limits.DailyLimit,
			})
			j.logg.Warn(satCtx, "platform rate limit saturated")
		}
	}
	return nil
}
