package platforms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/treumlabs/signalcast/internal/queue"
	"github.com/treumlabs/signalcast/pkg/config"
	"github.com/treumlabs/signalcast/pkg/enums"
	"github.com/treumlabs/signalcast/pkg/logger"
)

const httpTimeout = 30 * time.Second

// Registry resolves posters per platform. Platforms with missing
// credentials stay registered but refuse every dispatch with a clear
// error, so a misconfigured deployment is visible in logs and retry
// bookkeeping instead of silently dropping work.
type Registry struct {
	posters  map[enums.Platform]queue.Poster
	disabled map[enums.Platform]string
}

// NewRegistry wires the configured posters and logs which platforms are
// disabled at startup.
func NewRegistry(ctx context.Context, cfg *config.Config, logg *logger.Logger) *Registry {
	r := &Registry{
		posters:  make(map[enums.Platform]queue.Poster),
		disabled: make(map[enums.Platform]string),
	}

	if cfg.LinkedIn.AccessToken == "" {
		r.disable(enums.PlatformLinkedin, "linkedin access token not configured")
	} else {
		r.posters[enums.PlatformLinkedin] = NewLinkedIn(cfg.LinkedIn)
	}

	if cfg.Twitter.ConsumerKey == "" || cfg.Twitter.ConsumerSecret == "" ||
		cfg.Twitter.AccessToken == "" || cfg.Twitter.AccessTokenSecret == "" {
		r.disable(enums.PlatformTwitter, "twitter oauth credentials not configured")
	} else {
		r.posters[enums.PlatformTwitter] = NewTwitter(cfg.Twitter)
	}

	if cfg.Telegram.BotToken == "" {
		r.disable(enums.PlatformTelegram, "telegram bot token not configured")
	} else {
		r.posters[enums.PlatformTelegram] = NewTelegram(cfg.Telegram)
	}

	if logg != nil {
		for platform, reason := range r.disabled {
			logg.Warn(logg.WithPlatform(ctx, string(platform)), "platform disabled: "+reason)
		}
	}
	return r
}

// Poster returns the poster for a concrete platform.
func (r *Registry) Poster(platform enums.Platform) (queue.Poster, error) {
	if poster, ok := r.posters[platform]; ok {
		return poster, nil
	}
	return nil, fmt.Errorf("unknown platform %q", platform)
}

// Disabled reports platforms that cannot post and why.
func (r *Registry) Disabled() map[enums.Platform]string {
	out := make(map[enums.Platform]string, len(r.disabled))
	for platform, reason := range r.disabled {
		out[platform] = reason
	}
	return out
}

func (r *Registry) disable(platform enums.Platform, reason string) {
	r.disabled[platform] = reason
	r.posters[platform] = &notConfigured{reason: reason}
}

// notConfigured fails every dispatch with the configuration gap, feeding
// the normal retry path instead of hiding the problem.
type notConfigured struct {
	reason string
}

func (n *notConfigured) Post(context.Context, string) (string, error) {
	return "", fmt.Errorf("%s", n.reason)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
