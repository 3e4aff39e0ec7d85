// Package contenthash fingerprints post content for duplicate detection.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Length is the number of hex characters kept from the digest. Sixteen is
// plenty at the volumes this queue sees (a few thousand items).
const Length = 16

var (
	blankLines = regexp.MustCompile(`\n\s*\n+`)
	runsOfWS   = regexp.MustCompile(`[ \t]+`)
)

// Hash returns a stable fingerprint for the given content. Case and
// whitespace variations of the same text hash identically.
func Hash(content string) string {
	normalized := Normalize(content)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:Length]
}

// Normalize lowercases the text, trims it, and collapses repeated blank
// lines and repeated interior spaces into single separators.
func Normalize(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	normalized = blankLines.ReplaceAllString(normalized, "\n")
	normalized = runsOfWS.ReplaceAllString(normalized, " ")
	return normalized
}
