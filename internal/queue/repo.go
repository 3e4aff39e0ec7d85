package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/treumlabs/signalcast/pkg/db"
	"github.com/treumlabs/signalcast/pkg/db/models"
	"github.com/treumlabs/signalcast/pkg/enums"
	pkgerrors "github.com/treumlabs/signalcast/pkg/errors"
)

// Repository is the persistence surface for queue items and the posting
// history ledger.
type Repository interface {
	Insert(ctx context.Context, item *models.QueueItem) error
	GetByID(ctx context.Context, id string) (*models.QueueItem, error)
	HasActiveDuplicate(ctx context.Context, contentHash string, platform enums.Platform) (bool, error)
	QueuePosition(ctx context.Context, id string) (int64, error)
	NextCandidates(ctx context.Context, limit int, now time.Time) ([]models.QueueItem, error)
	MarkPosted(ctx context.Context, item *models.QueueItem, postedAt time.Time) error
	MarkRetryOrFailed(ctx context.Context, id string, errMsg string) (*models.QueueItem, error)
	UpdatePendingStatus(ctx context.Context, id string, to enums.PostStatus, errMsg *string) (bool, error)
	ListPending(ctx context.Context) ([]models.QueueItem, error)
	CountsByStatus(ctx context.Context) (map[enums.PostStatus]int64, error)
	PendingByPlatform(ctx context.Context) (map[enums.Platform]int64, error)
	RecentPosted(ctx context.Context, limit int) ([]models.PostingHistory, error)
	RecentFailed(ctx context.Context, limit int) ([]models.QueueItem, error)
	ContentStats(ctx context.Context) (unique int64, total int64, err error)
	PostedCountSince(ctx context.Context, platform enums.Platform, since time.Time) (int64, error)
	LastPostedAt(ctx context.Context, platform enums.Platform) (*time.Time, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed repository.
func NewRepository(conn *gorm.DB) Repository {
	return &gormRepository{db: conn}
}

func (r *gormRepository) Insert(ctx context.Context, item *models.QueueItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "queue item already exists")
		}
		return fmt.Errorf("inserting queue item: %w", err)
	}
	return nil
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*models.QueueItem, error) {
	var item models.QueueItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "queue item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading queue item: %w", err)
	}
	return &item, nil
}

// HasActiveDuplicate reports whether the same content already sits in the
// queue in any non-failed state. Failed rows do not block resubmission.
func (r *gormRepository) HasActiveDuplicate(ctx context.Context, contentHash string, platform enums.Platform) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("content_hash = ? AND status <> ?", contentHash, enums.StatusFailed)
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking duplicates: %w", err)
	}
	return count > 0, nil
}

// QueuePosition counts pending items that would dispatch before the given
// item under priority-then-FIFO ordering, including the item itself.
func (r *gormRepository) QueuePosition(ctx context.Context, id string) (int64, error) {
	item, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	var position int64
	err = r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("status IN ?", []enums.PostStatus{enums.StatusPending, enums.StatusApproved}).
		Where("priority > ? OR (priority = ? AND created_at <= ?)", item.Priority, item.Priority, item.CreatedAt).
		Count(&position).Error
	if err != nil {
		return 0, fmt.Errorf("computing queue position: %w", err)
	}
	return position, nil
}

// NextCandidates returns due pending and approved items in dispatch order:
// priority descending, then arrival order within a tier.
func (r *gormRepository) NextCandidates(ctx context.Context, limit int, now time.Time) ([]models.QueueItem, error) {
	var items []models.QueueItem
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.PostStatus{enums.StatusPending, enums.StatusApproved}).
		Where("scheduled_for IS NULL OR scheduled_for <= ?", now).
		Order("priority DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("loading dispatch candidates: %w", err)
	}
	return items, nil
}

// MarkPosted transitions the item to posted and appends the history ledger
// row in the same transaction, so the ledger can never drift from the queue.
func (r *gormRepository) MarkPosted(ctx context.Context, item *models.QueueItem, postedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.QueueItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"status":        enums.StatusPosted,
				"posted_at":     postedAt,
				"error_message": nil,
			})
		if res.Error != nil {
			return fmt.Errorf("marking item posted: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "queue item not found")
		}

		history := models.PostingHistory{
			ID:          "hist_" + item.ID,
			ContentHash: item.ContentHash,
			Platform:    item.Platform,
			PostedAt:    postedAt,
			Source:      item.Source,
			Success:     true,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("appending posting history: %w", err)
		}
		return nil
	})
}

// MarkRetryOrFailed increments the retry count, records the error, and
// flips the item to failed once the retry budget is spent. Below the budget
// the item returns to pending so a later cycle retries it. The updated row
// is returned so callers can tell the two outcomes apart.
func (r *gormRepository) MarkRetryOrFailed(ctx context.Context, id string, errMsg string) (*models.QueueItem, error) {
	item, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	item.RetryCount++
	item.ErrorMessage = &errMsg
	if item.RetryCount >= item.MaxRetries {
		item.Status = enums.StatusFailed
	} else {
		item.Status = enums.StatusPending
	}

	err = r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count":   item.RetryCount,
			"status":        item.Status,
			"error_message": errMsg,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("recording dispatch failure: %w", err)
	}
	return item, nil
}

// UpdatePendingStatus moves a pending item to the given status. It reports
// false when the item does not exist or already left the pending state, so
// approval and rejection cannot clobber a concurrent transition.
func (r *gormRepository) UpdatePendingStatus(ctx context.Context, id string, to enums.PostStatus, errMsg *string) (bool, error) {
	updates := map[string]any{"status": to}
	if errMsg != nil {
		updates["error_message"] = *errMsg
	}

	res := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("id = ? AND status = ?", id, enums.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("updating queue item %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ListPending(ctx context.Context) ([]models.QueueItem, error) {
	var items []models.QueueItem
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.StatusPending).
		Order("priority DESC").
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing pending items: %w", err)
	}
	return items, nil
}

func (r *gormRepository) CountsByStatus(ctx context.Context) (map[enums.PostStatus]int64, error) {
	type row struct {
		Status enums.PostStatus
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting queue items by status: %w", err)
	}

	counts := make(map[enums.PostStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func (r *gormRepository) PendingByPlatform(ctx context.Context) (map[enums.Platform]int64, error) {
	type row struct {
		Platform enums.Platform
		Total    int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Select("platform, COUNT(*) AS total").
		Where("status = ?", enums.StatusPending).
		Group("platform").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting pending items by platform: %w", err)
	}

	counts := make(map[enums.Platform]int64, len(rows))
	for _, r := range rows {
		counts[r.Platform] = r.Total
	}
	return counts, nil
}

func (r *gormRepository) RecentPosted(ctx context.Context, limit int) ([]models.PostingHistory, error) {
	var rows []models.PostingHistory
	err := r.db.WithContext(ctx).
		Order("posted_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading recent posts: %w", err)
	}
	return rows, nil
}

func (r *gormRepository) RecentFailed(ctx context.Context, limit int) ([]models.QueueItem, error) {
	var items []models.QueueItem
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.StatusFailed).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("loading failed items: %w", err)
	}
	return items, nil
}

func (r *gormRepository) ContentStats(ctx context.Context) (int64, int64, error) {
	var unique, total int64
	err := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Distinct("content_hash").
		Count(&unique).Error
	if err != nil {
		return 0, 0, fmt.Errorf("counting unique content: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.QueueItem{}).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("counting queue items: %w", err)
	}
	return unique, total, nil
}

func (r *gormRepository) PostedCountSince(ctx context.Context, platform enums.Platform, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("platform = ? AND status = ? AND posted_at > ?", platform, enums.StatusPosted, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting posts since %s: %w", since.Format(time.RFC3339), err)
	}
	return count, nil
}

func (r *gormRepository) LastPostedAt(ctx context.Context, platform enums.Platform) (*time.Time, error) {
	var item models.QueueItem
	err := r.db.WithContext(ctx).
		Where("platform = ? AND status = ? AND posted_at IS NOT NULL", platform, enums.StatusPosted).
		Order("posted_at DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading last post time: %w", err)
	}
	return item.PostedAt, nil
}

// PurgeOlderThan deletes posted and failed rows created before the cutoff.
// Pending, approved, and rejected rows are never purged.
func (r *gormRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []enums.PostStatus{enums.StatusPosted, enums.StatusFailed}, cutoff).
		Delete(&models.QueueItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging old queue items: %w", res.Error)
	}
	return res.RowsAffected, nil
}
