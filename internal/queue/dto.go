package queue

import (
	"time"

	"github.com/treumlabs/signalcast/pkg/enums"
)

// EnqueueParams carries one submission into the queue.
type EnqueueParams struct {
	Content      string
	Platform     enums.Platform
	Priority     enums.Priority
	Source       string
	ScheduledFor *time.Time
	Metadata     map[string]any
}

// EnqueueResult reports the admission outcome for one platform.
type EnqueueResult struct {
	Status        enums.PostStatus `json:"status"`
	ItemID        string           `json:"item_id,omitempty"`
	ContentHash   string           `json:"content_hash"`
	Platform      enums.Platform   `json:"platform"`
	QueuePosition int64            `json:"queue_position,omitempty"`
	Message       string           `json:"message"`
}

// DispatchDetail is the per-item outcome of one processing pass.
type DispatchDetail struct {
	ItemID   string         `json:"item_id"`
	Platform enums.Platform `json:"platform"`
	Source   string         `json:"source"`
	Success  bool           `json:"success"`
	Skipped  bool           `json:"skipped"`
	Message  string         `json:"message"`
}

// ProcessSummary tallies one processing pass. Retrying counts items that
// failed but still have retry budget; Failed counts terminal failures.
type ProcessSummary struct {
	Processed  int              `json:"processed"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Retrying   int              `json:"retrying"`
	Skipped    int              `json:"skipped"`
	Details    []DispatchDetail `json:"details"`
}

// RateLimitSnapshot is the current consumption against one platform's caps.
type RateLimitSnapshot struct {
	HourlyCount int        `json:"hourly_count"`
	HourlyLimit int        `json:"hourly_limit"`
	DailyCount  int        `json:"daily_count"`
	DailyLimit  int        `json:"daily_limit"`
	HourlyOK    bool       `json:"hourly_ok"`
	DailyOK     bool       `json:"daily_ok"`
	NextAllowed *time.Time `json:"next_allowed,omitempty"`
}

// RecentPost is one row of the recent-dispatch view.
type RecentPost struct {
	Platform enums.Platform `json:"platform"`
	PostedAt time.Time      `json:"posted_at"`
	Source   string         `json:"source"`
}

// FailedPost is one row of the failed-item view.
type FailedPost struct {
	ItemID       string         `json:"item_id"`
	Platform     enums.Platform `json:"platform"`
	ErrorMessage string         `json:"error_message"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
}

// DuplicateStats summarizes dedup effectiveness.
type DuplicateStats struct {
	UniqueContent       int64 `json:"unique_content"`
	TotalItems          int64 `json:"total_items"`
	DuplicatesPrevented int64 `json:"duplicates_prevented"`
}

// Status is the operational dashboard snapshot.
type Status struct {
	QueueCounts       map[enums.PostStatus]int64           `json:"queue_counts"`
	PendingByPlatform map[enums.Platform]int64             `json:"pending_by_platform"`
	RecentPosts       []RecentPost                         `json:"recent_posts"`
	DuplicateStats    DuplicateStats                       `json:"duplicate_stats"`
	FailedPosts       []FailedPost                         `json:"failed_posts"`
	RateLimits        map[enums.Platform]RateLimitSnapshot `json:"rate_limits"`
}

// PendingItem is one row of the approval view.
type PendingItem struct {
	ItemID       string         `json:"item_id"`
	Platform     enums.Platform `json:"platform"`
	Priority     enums.Priority `json:"priority"`
	Source       string         `json:"source"`
	CreatedAt    time.Time      `json:"created_at"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	Preview      string         `json:"preview"`
}
