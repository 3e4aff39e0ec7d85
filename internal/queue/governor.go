package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/treumlabs/signalcast/pkg/config"
	"github.com/treumlabs/signalcast/pkg/enums"
)

// historyReader is the slice of the repository the governor consumes.
type historyReader interface {
	PostedCountSince(ctx context.Context, platform enums.Platform, since time.Time) (int64, error)
	LastPostedAt(ctx context.Context, platform enums.Platform) (*time.Time, error)
}

// Governor decides whether a platform may accept another post right now.
// All counts derive from the store, so the decision survives restarts.
type Governor struct {
	history historyReader
	limits  config.RateLimitConfig
	minGap  time.Duration
	now     func() time.Time
}

// Decision is the outcome of one governor check. Reason is set only when
// posting is denied.
type Decision struct {
	Allowed bool
	Reason  string
}

// NewGovernor builds a rate governor over the posting record.
func NewGovernor(history historyReader, limits config.RateLimitConfig, minGap time.Duration) *Governor {
	return &Governor{
		history: history,
		limits:  limits,
		minGap:  minGap,
		now:     time.Now,
	}
}

// CanPostNow checks the hourly cap, then the daily cap, then the minimum
// gap since the platform's last successful post. The first violated
// constraint wins.
func (g *Governor) CanPostNow(ctx context.Context, platform enums.Platform) (Decision, error) {
	now := g.now()
	limits := g.limits.ForPlatform(platform)

	hourly, err := g.history.PostedCountSince(ctx, platform, now.Add(-time.Hour))
	if err != nil {
		return Decision{}, err
	}
	if hourly >= int64(limits.Hourly) {
		return Decision{Reason: fmt.Sprintf("hourly limit exceeded (%d/%d)", hourly, limits.Hourly)}, nil
	}

	daily, err := g.history.PostedCountSince(ctx, platform, now.Add(-24*time.Hour))
	if err != nil {
		return Decision{}, err
	}
	if daily >= int64(limits.Daily) {
		return Decision{Reason: fmt.Sprintf("daily limit exceeded (%d/%d)", daily, limits.Daily)}, nil
	}

	last, err := g.history.LastPostedAt(ctx, platform)
	if err != nil {
		return Decision{}, err
	}
	if last != nil {
		nextAllowed := last.Add(g.minGap)
		if now.Before(nextAllowed) {
			return Decision{Reason: fmt.Sprintf("too soon, next post allowed at %s", nextAllowed.Format("15:04:05"))}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

// Snapshot reports current consumption against the platform's caps for the
// status dashboard.
func (g *Governor) Snapshot(ctx context.Context, platform enums.Platform) (RateLimitSnapshot, error) {
	now := g.now()
	limits := g.limits.ForPlatform(platform)

	hourly, err := g.history.PostedCountSince(ctx, platform, now.Add(-time.Hour))
	if err != nil {
		return RateLimitSnapshot{}, err
	}
	daily, err := g.history.PostedCountSince(ctx, platform, now.Add(-24*time.Hour))
	if err != nil {
		return RateLimitSnapshot{}, err
	}

	snap := RateLimitSnapshot{
		HourlyCount: int(hourly),
		HourlyLimit: limits.Hourly,
		DailyCount:  int(daily),
		DailyLimit:  limits.Daily,
		HourlyOK:    hourly < int64(limits.Hourly),
		DailyOK:     daily < int64(limits.Daily),
	}

	last, err := g.history.LastPostedAt(ctx, platform)
	if err != nil {
		return RateLimitSnapshot{}, err
	}
	if last != nil {
		next := last.Add(g.minGap)
		if now.Before(next) {
			snap.NextAllowed = &next
		}
	}
	return snap, nil
}
