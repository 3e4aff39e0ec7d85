package models

import (
	"encoding/json"
	"time"

	"github.com/treumlabs/signalcast/pkg/enums"
)

// QueueItem is one unit of work in the posting queue. Content, hash, source,
// and metadata are immutable after insert; status, retry bookkeeping, and
// error_message move through the dispatch lifecycle.
type QueueItem struct {
	ID           string           `gorm:"column:id;primaryKey"`
	Content      string           `gorm:"column:content;not null"`
	Platform     enums.Platform   `gorm:"column:platform;type:text;not null;index:idx_queue_items_status_platform,priority:2"`
	ContentHash  string           `gorm:"column:content_hash;not null;index:idx_queue_items_content_hash"`
	Priority     enums.Priority   `gorm:"column:priority;not null"`
	Status       enums.PostStatus `gorm:"column:status;type:text;not null;index:idx_queue_items_status_platform,priority:1"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	ScheduledFor *time.Time       `gorm:"column:scheduled_for;index:idx_queue_items_scheduled_for"`
	PostedAt     *time.Time       `gorm:"column:posted_at"`
	RetryCount   int              `gorm:"column:retry_count;not null;default:0"`
	MaxRetries   int              `gorm:"column:max_retries;not null;default:3"`
	Source       string           `gorm:"column:source;not null"`
	Metadata     json.RawMessage  `gorm:"column:metadata"`
	ErrorMessage *string          `gorm:"column:error_message"`
}

// TableName pins the table name so GORM pluralization cannot drift from the
// migrations.
func (QueueItem) TableName() string { return "queue_items" }
