package enums

import "fmt"

// Platform identifies a posting destination.
type Platform string

const (
	PlatformLinkedin Platform = "linkedin"
	PlatformTwitter  Platform = "twitter"
	PlatformTelegram Platform = "telegram"

	// PlatformAll is a producer-side sentinel meaning "every platform".
	// It is expanded at admission and never stored on a queue row.
	PlatformAll Platform = "all"
)

var validPlatforms = []Platform{
	PlatformLinkedin,
	PlatformTwitter,
	PlatformTelegram,
}

// Platforms returns the concrete posting destinations (excludes the all sentinel).
func Platforms() []Platform {
	out := make([]Platform, len(validPlatforms))
	copy(out, validPlatforms)
	return out
}

// IsValid reports whether the value is a concrete platform.
func (p Platform) IsValid() bool {
	for _, candidate := range validPlatforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlatform converts raw input into a Platform. The all sentinel is
// accepted so producers can request a broadcast.
func ParsePlatform(value string) (Platform, error) {
	if Platform(value) == PlatformAll {
		return PlatformAll, nil
	}
	for _, candidate := range validPlatforms {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform %q", value)
}
