package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/treumlabs/signalcast/pkg/config"
	"github.com/treumlabs/signalcast/pkg/contenthash"
	"github.com/treumlabs/signalcast/pkg/db/models"
	"github.com/treumlabs/signalcast/pkg/enums"
	pkgerrors "github.com/treumlabs/signalcast/pkg/errors"
	"github.com/treumlabs/signalcast/pkg/logger"
	"github.com/treumlabs/signalcast/pkg/metrics"
)

const defaultSource = "manual"

// Poster publishes content to one platform and returns a provider-side
// reference (post URN, tweet id, message id).
type Poster interface {
	Post(ctx context.Context, content string) (string, error)
}

// PosterRegistry resolves the poster for a platform.
type PosterRegistry interface {
	Poster(platform enums.Platform) (Poster, error)
}

// ServiceParams wires the queue service dependencies.
type ServiceParams struct {
	Repo     Repository
	Governor *Governor
	Posters  PosterRegistry
	Logger   *logger.Logger
	Metrics  *metrics.QueueMetrics
	Queue    config.QueueConfig
}

// Service owns admission, dispatch, approval, and maintenance of the
// posting queue. Mutating operations serialize through one mutex held per
// store write; reads run lock-free so dashboards never block dispatch.
type Service struct {
	repo     Repository
	governor *Governor
	posters  PosterRegistry
	logg     *logger.Logger
	metrics  *metrics.QueueMetrics
	cfg      config.QueueConfig

	mu                  sync.Mutex
	duplicatesPrevented atomic.Int64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService validates dependencies and builds the queue service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("queue service requires a repository")
	}
	if params.Governor == nil {
		return nil, errors.New("queue service requires a governor")
	}
	if params.Posters == nil {
		return nil, errors.New("queue service requires a poster registry")
	}
	if params.Logger == nil {
		return nil, errors.New("queue service requires a logger")
	}

	return &Service{
		repo:     params.Repo,
		governor: params.Governor,
		posters:  params.Posters,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      params.Queue,
		now:      time.Now,
		sleep:    sleepContext,
	}, nil
}

// Enqueue admits one submission for a single concrete platform. Duplicate
// content is refused before anything is stored; the refusal is an outcome,
// not an error.
func (s *Service) Enqueue(ctx context.Context, params EnqueueParams) (EnqueueResult, error) {
	if strings.TrimSpace(params.Content) == "" {
		return EnqueueResult{}, pkgerrors.New(pkgerrors.CodeValidation, "content must not be empty")
	}
	if !params.Platform.IsValid() {
		return EnqueueResult{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid platform %q", params.Platform))
	}
	if params.Priority == 0 {
		params.Priority = enums.PriorityNormal
	}
	if !params.Priority.IsValid() {
		return EnqueueResult{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %d", params.Priority))
	}
	if params.Source == "" {
		params.Source = defaultSource
	}

	hash := contenthash.Hash(params.Content)
	now := s.now()

	var metadata json.RawMessage
	if len(params.Metadata) > 0 {
		encoded, err := json.Marshal(params.Metadata)
		if err != nil {
			return EnqueueResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata is not serializable")
		}
		metadata = encoded
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	duplicate, err := s.repo.HasActiveDuplicate(ctx, hash, params.Platform)
	if err != nil {
		return EnqueueResult{}, err
	}
	if duplicate {
		s.duplicatesPrevented.Add(1)
		s.metrics.IncDuplicatePrevented()
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"platform":     params.Platform,
			"content_hash": hash,
		}), "duplicate submission refused")
		return EnqueueResult{
			Status:      enums.StatusDuplicate,
			ContentHash: hash,
			Platform:    params.Platform,
			Message:     "content already queued or posted for this platform",
		}, nil
	}

	item := models.QueueItem{
		ID:           fmt.Sprintf("%s_%d_%s", params.Platform, now.Unix(), hash[:8]),
		Content:      params.Content,
		Platform:     params.Platform,
		ContentHash:  hash,
		Priority:     params.Priority,
		Status:       enums.StatusPending,
		CreatedAt:    now,
		ScheduledFor: params.ScheduledFor,
		MaxRetries:   s.cfg.MaxRetries,
		Source:       params.Source,
		Metadata:     metadata,
	}
	if err := s.repo.Insert(ctx, &item); err != nil {
		return EnqueueResult{}, err
	}
	s.metrics.IncEnqueued(string(params.Platform))

	position, err := s.repo.QueuePosition(ctx, item.ID)
	if err != nil {
		// The item is safely stored; position is advisory.
		s.logg.Warn(s.logg.WithItemID(ctx, item.ID), "queue position lookup failed")
		position = 0
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"item_id":  item.ID,
		"platform": params.Platform,
		"priority": params.Priority.String(),
		"source":   params.Source,
	}), "item queued")

	return EnqueueResult{
		Status:        enums.StatusPending,
		ItemID:        item.ID,
		ContentHash:   hash,
		Platform:      params.Platform,
		QueuePosition: position,
		Message:       fmt.Sprintf("queued at position %d", position),
	}, nil
}

// EnqueueBroadcast expands the all sentinel into one admission per concrete
// platform. Each platform is admitted independently, so one duplicate does
// not block the others.
func (s *Service) EnqueueBroadcast(ctx context.Context, params EnqueueParams) ([]EnqueueResult, error) {
	targets := []enums.Platform{params.Platform}
	if params.Platform == enums.PlatformAll {
		targets = enums.Platforms()
	}

	results := make([]EnqueueResult, 0, len(targets))
	var combined error
	for _, platform := range targets {
		single := params
		single.Platform = platform
		res, err := s.Enqueue(ctx, single)
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", platform, err))
			continue
		}
		results = append(results, res)
	}
	return results, combined
}

// ProcessQueue runs one dispatch pass over up to maxItems due candidates.
func (s *Service) ProcessQueue(ctx context.Context, maxItems int) (ProcessSummary, error) {
	if maxItems <= 0 {
		maxItems = s.cfg.ProcessBatchSize
	}

	candidates, err := s.repo.NextCandidates(ctx, maxItems, s.now())
	if err != nil {
		return ProcessSummary{}, err
	}

	summary := ProcessSummary{Details: make([]DispatchDetail, 0, len(candidates))}
	for i, item := range candidates {
		itemCtx := s.logg.WithFields(ctx, map[string]any{
			"item_id":  item.ID,
			"platform": item.Platform,
			"source":   item.Source,
		})

		decision, err := s.governor.CanPostNow(itemCtx, item.Platform)
		if err != nil {
			return summary, err
		}
		if !decision.Allowed {
			summary.Processed++
			summary.Skipped++
			summary.Details = append(summary.Details, DispatchDetail{
				ItemID:   item.ID,
				Platform: item.Platform,
				Source:   item.Source,
				Skipped:  true,
				Message:  decision.Reason,
			})
			s.metrics.IncDispatch(string(item.Platform), metrics.ResultSkipped)
			s.logg.Info(itemCtx, "dispatch skipped: "+decision.Reason)
			continue
		}

		detail, outcome := s.dispatchOne(itemCtx, item)
		summary.Processed++
		switch outcome {
		case metrics.ResultPosted:
			summary.Successful++
		case metrics.ResultRetry:
			summary.Retrying++
		default:
			summary.Failed++
		}
		summary.Details = append(summary.Details, detail)

		if i < len(candidates)-1 && s.cfg.InterPostDelay > 0 {
			if err := s.sleep(ctx, s.cfg.InterPostDelay); err != nil {
				return summary, err
			}
		}
	}
	return summary, nil
}

// dispatchOne attempts a single post and records the outcome. A panicking
// poster is contained here so one bad item cannot abort the batch.
func (s *Service) dispatchOne(ctx context.Context, item models.QueueItem) (DispatchDetail, string) {
	detail := DispatchDetail{
		ItemID:   item.ID,
		Platform: item.Platform,
		Source:   item.Source,
	}

	ref, err := s.post(ctx, item)
	if err == nil {
		s.mu.Lock()
		markErr := s.repo.MarkPosted(ctx, &item, s.now())
		s.mu.Unlock()
		if markErr != nil {
			// The post went out but the record write failed; surface loudly
			// and keep the item for manual review rather than re-posting.
			s.logg.Error(ctx, "posted but failed to record outcome", markErr)
			detail.Message = "posted but outcome not recorded: " + markErr.Error()
			return detail, metrics.ResultFailed
		}
		detail.Success = true
		detail.Message = ref
		s.metrics.IncDispatch(string(item.Platform), metrics.ResultPosted)
		s.logg.Info(ctx, "item posted")
		return detail, metrics.ResultPosted
	}

	s.mu.Lock()
	updated, markErr := s.repo.MarkRetryOrFailed(ctx, item.ID, err.Error())
	s.mu.Unlock()
	if markErr != nil {
		s.logg.Error(ctx, "failed to record dispatch failure", markErr)
		detail.Message = "dispatch failed: " + err.Error()
		return detail, metrics.ResultFailed
	}

	if updated.Status == enums.StatusFailed {
		detail.Message = "failed permanently: " + err.Error()
		s.metrics.IncDispatch(string(item.Platform), metrics.ResultFailed)
		s.logg.Error(ctx, "item failed permanently", err)
		return detail, metrics.ResultFailed
	}

	detail.Message = fmt.Sprintf("will retry (%d/%d): %s", updated.RetryCount, updated.MaxRetries, err.Error())
	s.metrics.IncDispatch(string(item.Platform), metrics.ResultRetry)
	s.logg.Warn(ctx, "dispatch failed, will retry: "+err.Error())
	return detail, metrics.ResultRetry
}

func (s *Service) post(ctx context.Context, item models.QueueItem) (ref string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poster panic: %v", r)
		}
	}()

	poster, err := s.posters.Poster(item.Platform)
	if err != nil {
		return "", err
	}
	return poster.Post(ctx, item.Content)
}

// ApproveItem transitions a pending item to approved. It returns false
// without error when the item already left the pending state.
func (s *Service) ApproveItem(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.repo.UpdatePendingStatus(ctx, id, enums.StatusApproved, nil)
	if err != nil {
		return false, err
	}
	if ok {
		s.logg.Info(s.logg.WithItemID(ctx, id), "item approved")
	}
	return ok, nil
}

// RejectItem transitions a pending item to rejected with a reason. The
// pending-only guard makes rejection safe against concurrent dispatch.
func (s *Service) RejectItem(ctx context.Context, id, reason string) (bool, error) {
	if reason == "" {
		reason = "rejected"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.repo.UpdatePendingStatus(ctx, id, enums.StatusRejected, &reason)
	if err != nil {
		return false, err
	}
	if ok {
		s.logg.Info(s.logg.WithItemID(ctx, id), "item rejected: "+reason)
	}
	return ok, nil
}

// PendingForApproval lists pending items in dispatch order with a short
// content preview.
func (s *Service) PendingForApproval(ctx context.Context) ([]PendingItem, error) {
	items, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]PendingItem, 0, len(items))
	for _, item := range items {
		out = append(out, PendingItem{
			ItemID:       item.ID,
			Platform:     item.Platform,
			Priority:     item.Priority,
			Source:       item.Source,
			CreatedAt:    item.CreatedAt,
			ScheduledFor: item.ScheduledFor,
			Preview:      preview(item.Content, 100),
		})
	}
	return out, nil
}

// QueueStatus assembles the operational dashboard snapshot. Reads only, so
// it never contends with dispatch.
func (s *Service) QueueStatus(ctx context.Context) (Status, error) {
	counts, err := s.repo.CountsByStatus(ctx)
	if err != nil {
		return Status{}, err
	}
	pendingByPlatform, err := s.repo.PendingByPlatform(ctx)
	if err != nil {
		return Status{}, err
	}
	recent, err := s.repo.RecentPosted(ctx, 10)
	if err != nil {
		return Status{}, err
	}
	failed, err := s.repo.RecentFailed(ctx, 5)
	if err != nil {
		return Status{}, err
	}
	unique, total, err := s.repo.ContentStats(ctx)
	if err != nil {
		return Status{}, err
	}

	status := Status{
		QueueCounts:       counts,
		PendingByPlatform: pendingByPlatform,
		RecentPosts:       make([]RecentPost, 0, len(recent)),
		FailedPosts:       make([]FailedPost, 0, len(failed)),
		DuplicateStats: DuplicateStats{
			UniqueContent:       unique,
			TotalItems:          total,
			DuplicatesPrevented: s.duplicatesPrevented.Load(),
		},
		RateLimits: make(map[enums.Platform]RateLimitSnapshot, len(enums.Platforms())),
	}

	for _, row := range recent {
		status.RecentPosts = append(status.RecentPosts, RecentPost{
			Platform: row.Platform,
			PostedAt: row.PostedAt,
			Source:   row.Source,
		})
	}
	for _, item := range failed {
		msg := ""
		if item.ErrorMessage != nil {
			msg = *item.ErrorMessage
		}
		status.FailedPosts = append(status.FailedPosts, FailedPost{
			ItemID:       item.ID,
			Platform:     item.Platform,
			ErrorMessage: msg,
			RetryCount:   item.RetryCount,
			MaxRetries:   item.MaxRetries,
		})
	}

	for _, platform := range enums.Platforms() {
		snap, err := s.governor.Snapshot(ctx, platform)
		if err != nil {
			return Status{}, err
		}
		status.RateLimits[platform] = snap
	}
	return status, nil
}

// CleanupOldItems purges posted and failed rows older than the given
// retention window. A non-positive daysOld falls back to the configured
// retention.
func (s *Service) CleanupOldItems(ctx context.Context, daysOld int) (int64, error) {
	if daysOld <= 0 {
		daysOld = s.cfg.RetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -daysOld)

	s.mu.Lock()
	defer s.mu.Unlock()

	purged, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.logg.Info(s.logg.WithField(ctx, "purged", purged), "cleaned up old queue items")
	}
	return purged, nil
}

// DuplicatesPrevented reports the process-lifetime refusal count.
func (s *Service) DuplicatesPrevented() int64 {
	return s.duplicatesPrevented.Load()
}

func preview(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
