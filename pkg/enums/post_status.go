package enums

import "fmt"

// PostStatus tracks a queue item through its lifecycle.
type PostStatus string

const (
	StatusPending  PostStatus = "pending"
	StatusApproved PostStatus = "approved"
	StatusPosted   PostStatus = "posted"
	StatusFailed   PostStatus = "failed"
	StatusRejected PostStatus = "rejected"

	// StatusDuplicate is an admission outcome reported to producers.
	// Duplicates are refused at enqueue time, so no stored row ever
	// carries this status.
	StatusDuplicate PostStatus = "duplicate"
)

var validPostStatuses = []PostStatus{
	StatusPending,
	StatusApproved,
	StatusPosted,
	StatusFailed,
	StatusRejected,
	StatusDuplicate,
}

// IsValid reports whether the value matches the canonical status set.
func (s PostStatus) IsValid() bool {
	for _, candidate := range validPostStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transition applies.
func (s PostStatus) IsTerminal() bool {
	return s == StatusPosted || s == StatusFailed || s == StatusRejected
}

// ParsePostStatus converts raw input into a PostStatus.
func ParsePostStatus(value string) (PostStatus, error) {
	for _, candidate := range validPostStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid post status %q", value)
}
