package speech

import (
	"regexp"
	"strings"
)

var (
	sentenceEnd = regexp.MustCompile(`[.!?]`)
	comma       = regexp.MustCompile(`,`)
	spaces      = regexp.MustCompile(`\s+`)

	// Phrases the local voice should linger on.
	emphasis = regexp.MustCompile(`(?i)(take a deep breath|close your eyes|breathe in|breathe out|exhale|gently|slowly|peacefully|mindfully|awareness|presence|breathing|meditation)`)
)

// naturalPauses reshapes text so a plain system voice reads it slowly:
// sentence ends become ellipses and calming phrases are set apart.
func naturalPauses(text string) string {
	text = sentenceEnd.ReplaceAllString(text, "... ")
	text = comma.ReplaceAllString(text, ", ")
	text = emphasis.ReplaceAllString(text, "... ${1}... ")
	text = spaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
