package models

import (
	"time"

	"github.com/treumlabs/signalcast/pkg/enums"
)

// PostingHistory is the append-only ledger of successful dispatches, kept for
// analytics and duplicate-stat reporting. Rows are never mutated or deleted
// by normal operation.
type PostingHistory struct {
	ID          string         `gorm:"column:id;primaryKey"`
	ContentHash string         `gorm:"column:content_hash;not null;index:idx_posting_history_content_hash"`
	Platform    enums.Platform `gorm:"column:platform;type:text;not null"`
	PostedAt    time.Time      `gorm:"column:posted_at;not null"`
	Source      string         `gorm:"column:source;not null"`
	Success     bool           `gorm:"column:success;not null"`
}

func (PostingHistory) TableName() string { return "posting_history" }
