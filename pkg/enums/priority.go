package enums

import "fmt"

// Priority orders queue items; higher values dispatch first.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

var priorityNames = map[string]Priority{
	"low":    PriorityLow,
	"normal": PriorityNormal,
	"high":   PriorityHigh,
	"urgent": PriorityUrgent,
}

// IsValid reports whether the value matches a known priority tier.
func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// String returns the lowercase tier name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority converts a tier name into a Priority.
func ParsePriority(value string) (Priority, error) {
	if p, ok := priorityNames[value]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("invalid priority %q", value)
}
