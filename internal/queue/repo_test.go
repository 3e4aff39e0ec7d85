package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/treumlabs/signalcast/pkg/db/models"
	"github.com/treumlabs/signalcast/pkg/enums"
)

func setupQueueTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	queueItems := `
CREATE TABLE IF NOT EXISTS queue_items (
  id TEXT PRIMARY KEY,
  content TEXT NOT NULL,
  platform TEXT NOT NULL,
  content_hash TEXT NOT NULL,
  priority INTEGER NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME,
  scheduled_for DATETIME,
  posted_at DATETIME,
  retry_count INTEGER NOT NULL DEFAULT 0,
  max_retries INTEGER NOT NULL DEFAULT 3,
  source TEXT NOT NULL,
  metadata TEXT,
  error_message TEXT
);`
	postingHistory := `
CREATE TABLE IF NOT EXISTS posting_history (
  id TEXT PRIMARY KEY,
  content_hash TEXT NOT NULL,
  platform TEXT NOT NULL,
  posted_at DATETIME NOT NULL,
  source TEXT NOT NULL,
  success INTEGER NOT NULL
);`
	require.NoError(t, db.Exec(queueItems).Error)
	require.NoError(t, db.Exec(postingHistory).Error)
	require.NoError(t, db.Exec(`DELETE FROM queue_items`).Error)
	require.NoError(t, db.Exec(`DELETE FROM posting_history`).Error)
	return db
}

func newItem(t *testing.T, db *gorm.DB, id string, platform enums.Platform, priority enums.Priority, status enums.PostStatus, created time.Time) *models.QueueItem {
	t.Helper()

	item := &models.QueueItem{
		ID:          id,
		Content:     "content for " + id,
		Platform:    platform,
		ContentHash: fmt.Sprintf("%016x", len(id)*7919+int(priority)),
		Priority:    priority,
		Status:      status,
		CreatedAt:   created,
		MaxRetries:  3,
		Source:      "test",
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestRepositoryHasActiveDuplicate(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	item := newItem(t, db, "twitter_1_aaaa", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPending, now)

	dup, err := repo.HasActiveDuplicate(ctx, item.ContentHash, enums.PlatformTwitter)
	require.NoError(t, err)
	assert.True(t, dup)

	// Same content on another platform is not a duplicate when scoped.
	dup, err = repo.HasActiveDuplicate(ctx, item.ContentHash, enums.PlatformLinkedin)
	require.NoError(t, err)
	assert.False(t, dup)

	// Global scope sees it regardless of platform.
	dup, err = repo.HasActiveDuplicate(ctx, item.ContentHash, "")
	require.NoError(t, err)
	assert.True(t, dup)

	// Failed rows do not block resubmission.
	require.NoError(t, db.Model(&models.QueueItem{}).Where("id = ?", item.ID).Update("status", enums.StatusFailed).Error)
	dup, err = repo.HasActiveDuplicate(ctx, item.ContentHash, enums.PlatformTwitter)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestRepositoryNextCandidatesOrdering(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	newItem(t, db, "normal_old", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPending, base)
	newItem(t, db, "normal_new", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPending, base.Add(time.Minute))
	newItem(t, db, "urgent_late", enums.PlatformLinkedin, enums.PriorityUrgent, enums.StatusPending, base.Add(2*time.Minute))
	newItem(t, db, "approved_high", enums.PlatformTelegram, enums.PriorityHigh, enums.StatusApproved, base.Add(3*time.Minute))
	newItem(t, db, "already_posted", enums.PlatformTwitter, enums.PriorityUrgent, enums.StatusPosted, base)
	newItem(t, db, "was_rejected", enums.PlatformTwitter, enums.PriorityUrgent, enums.StatusRejected, base)

	future := base.Add(2 * time.Hour)
	scheduled := newItem(t, db, "scheduled_later", enums.PlatformTwitter, enums.PriorityUrgent, enums.StatusPending, base)
	require.NoError(t, db.Model(&models.QueueItem{}).Where("id = ?", scheduled.ID).Update("scheduled_for", future).Error)

	items, err := repo.NextCandidates(ctx, 10, base.Add(5*time.Minute))
	require.NoError(t, err)
	require.Len(t, items, 4)

	ids := []string{items[0].ID, items[1].ID, items[2].ID, items[3].ID}
	assert.Equal(t, []string{"urgent_late", "approved_high", "normal_old", "normal_new"}, ids)
}

func TestRepositoryQueuePosition(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	newItem(t, db, "first_urgent", enums.PlatformTwitter, enums.PriorityUrgent, enums.StatusPending, base)
	newItem(t, db, "second_normal", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPending, base.Add(time.Minute))
	newItem(t, db, "third_normal", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPending, base.Add(2*time.Minute))

	pos, err := repo.QueuePosition(ctx, "first_urgent")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos)

	pos, err = repo.QueuePosition(ctx, "third_normal")
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)

	_, err = repo.QueuePosition(ctx, "missing")
	require.Error(t, err)
}

func TestRepositoryMarkPostedAppendsHistory(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	item := newItem(t, db, "twitter_2_bbbb", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPending, now)
	require.NoError(t, repo.MarkPosted(ctx, item, now.Add(time.Minute)))

	stored, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StatusPosted, stored.Status)
	require.NotNil(t, stored.PostedAt)

	var history models.PostingHistory
	require.NoError(t, db.First(&history, "id = ?", "hist_"+item.ID).Error)
	assert.Equal(t, item.ContentHash, history.ContentHash)
	assert.Equal(t, enums.PlatformTwitter, history.Platform)
	assert.True(t, history.Success)
}

func TestRepositoryMarkRetryOrFailed(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	item := newItem(t, db, "linkedin_3_cccc", enums.PlatformLinkedin, enums.PriorityNormal, enums.StatusPending, now)

	updated, err := repo.MarkRetryOrFailed(ctx, item.ID, "api timeout")
	require.NoError(t, err)
	assert.Equal(t, enums.StatusPending, updated.Status)
	assert.Equal(t, 1, updated.RetryCount)
	require.NotNil(t, updated.ErrorMessage)
	assert.Equal(t, "api timeout", *updated.ErrorMessage)

	_, err = repo.MarkRetryOrFailed(ctx, item.ID, "api timeout")
	require.NoError(t, err)
	updated, err = repo.MarkRetryOrFailed(ctx, item.ID, "api timeout again")
	require.NoError(t, err)
	assert.Equal(t, enums.StatusFailed, updated.Status)
	assert.Equal(t, 3, updated.RetryCount)

	stored, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StatusFailed, stored.Status)
	assert.Equal(t, 3, stored.RetryCount)
}

func TestRepositoryUpdatePendingStatusGuard(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	item := newItem(t, db, "telegram_4_dddd", enums.PlatformTelegram, enums.PriorityNormal, enums.StatusPending, now)

	ok, err := repo.UpdatePendingStatus(ctx, item.ID, enums.StatusApproved, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second transition is a no-op because the row left pending.
	ok, err = repo.UpdatePendingStatus(ctx, item.ID, enums.StatusApproved, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	reason := "off-brand content"
	other := newItem(t, db, "telegram_5_eeee", enums.PlatformTelegram, enums.PriorityNormal, enums.StatusPending, now)
	ok, err = repo.UpdatePendingStatus(ctx, other.ID, enums.StatusRejected, &reason)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StatusRejected, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, reason, *stored.ErrorMessage)

	ok, err = repo.UpdatePendingStatus(ctx, "missing", enums.StatusApproved, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryAggregates(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	newItem(t, db, "agg_1", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPending, now)
	newItem(t, db, "agg_2", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPending, now)
	newItem(t, db, "agg_3", enums.PlatformLinkedin, enums.PriorityNormal, enums.StatusPending, now)
	newItem(t, db, "agg_4", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusFailed, now)

	counts, err := repo.CountsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[enums.StatusPending])
	assert.Equal(t, int64(1), counts[enums.StatusFailed])

	byPlatform, err := repo.PendingByPlatform(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byPlatform[enums.PlatformTwitter])
	assert.Equal(t, int64(1), byPlatform[enums.PlatformLinkedin])

	unique, total, err := repo.ContentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.True(t, unique <= total)
}

func TestRepositoryPostedCountsAndLastPostedAt(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	last, err := repo.LastPostedAt(ctx, enums.PlatformTwitter)
	require.NoError(t, err)
	assert.Nil(t, last)

	recent := newItem(t, db, "posted_recent", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPosted, now.Add(-2*time.Hour))
	postedAt := now.Add(-10 * time.Minute)
	require.NoError(t, db.Model(&models.QueueItem{}).Where("id = ?", recent.ID).Update("posted_at", postedAt).Error)

	old := newItem(t, db, "posted_old", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPosted, now.Add(-26*time.Hour))
	require.NoError(t, db.Model(&models.QueueItem{}).Where("id = ?", old.ID).Update("posted_at", now.Add(-25*time.Hour)).Error)

	hourly, err := repo.PostedCountSince(ctx, enums.PlatformTwitter, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), hourly)

	daily, err := repo.PostedCountSince(ctx, enums.PlatformTwitter, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), daily)

	last, err = repo.LastPostedAt(ctx, enums.PlatformTwitter)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, postedAt, *last, time.Second)
}

func TestRepositoryPurgeOlderThan(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.AddDate(0, 0, -10)

	newItem(t, db, "purge_posted", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPosted, old)
	newItem(t, db, "purge_failed", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusFailed, old)
	newItem(t, db, "keep_pending", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPending, old)
	newItem(t, db, "keep_rejected", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusRejected, old)
	newItem(t, db, "keep_recent_posted", enums.PlatformTwitter, enums.PriorityNormal, enums.StatusPosted, now)

	purged, err := repo.PurgeOlderThan(ctx, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	var remaining int64
	require.NoError(t, db.Model(&models.QueueItem{}).Count(&remaining).Error)
	assert.Equal(t, int64(3), remaining)

	_, err = repo.GetByID(ctx, "keep_pending")
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, "keep_rejected")
	assert.NoError(t, err)
}
