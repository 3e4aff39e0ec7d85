package main

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/treumlabs/signalcast/internal/cron"
	"github.com/treumlabs/signalcast/internal/queue"
	"github.com/treumlabs/signalcast/pkg/config"
	"github.com/treumlabs/signalcast/pkg/logger"
)

const (
	defaultPollInterval = 10 * time.Minute
	maxBackoff          = 30 * time.Minute
	jitterWindow        = 5 * time.Second
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type queueProcessor interface {
	ProcessQueue(ctx context.Context, maxItems int) (queue.ProcessSummary, error)
}

type pinger interface {
	Ping(context.Context) error
}

type ServiceParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	Queue     queueProcessor
	Lock      cron.Lock
	DB        pinger
	BatchSize int
}

// Service drives periodic dispatch passes. A distributed lock keeps a
// single dispatcher active even when several replicas run.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	queue        queueProcessor
	lock         cron.Lock
	db           pinger
	batchSize    int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Queue == nil {
		return nil, errors.New("queue service is required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock is required")
	}

	interval := params.Config.Worker.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = params.Config.Queue.ProcessBatchSize
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		queue:        params.Queue,
		lock:         params.Lock,
		db:           params.DB,
		batchSize:    batch,
		pollInterval: interval,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return err
	}
	return nil
}

// Run polls the queue until the context is canceled. Pass errors back off
// exponentially with jitter; a clean pass resets the cadence.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "queue worker context canceled")
			return ctx.Err()
		default:
		}

		if err := s.runPass(ctx); err != nil {
			s.logg.Error(ctx, "dispatch pass failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = s.pollInterval
		if err := s.sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

func (s *Service) runPass(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !locked {
		s.logg.Info(ctx, "another dispatcher holds the lock; skipping this pass")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release dispatcher lock", relErr)
		}
	}()

	summary, err := s.queue.ProcessQueue(ctx, s.batchSize)
	if err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"processed":  summary.Processed,
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"retrying":   summary.Retrying,
		"skipped":    summary.Skipped,
	})
	s.logg.Info(logCtx, "dispatch pass complete")
	return nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
