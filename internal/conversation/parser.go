// Package conversation provides command parsing and user notification
// implementations.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches user input to intents using keywords and simple
// patterns. A rule with a capture group carries the group as payload.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a keyword-based intent parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(start|go|begin|meditate|let'?s go)$`), domain.IntentStart},
		{regexp.MustCompile(`(?i)^(pause|wait|hold|p)$`), domain.IntentPause},
		{regexp.MustCompile(`(?i)^(resume|continue|unpause|r)$`), domain.IntentResume},
		{regexp.MustCompile(`(?i)^(stop|end|reset|cancel)$`), domain.IntentStop},
		{regexp.MustCompile(`(?i)^(mute|unmute|m|silence)$`), domain.IntentMute},
		{regexp.MustCompile(`(?i)^(?:volume|vol)\s+(\d+(?:\.\d+)?%?)$`), domain.IntentVolume},
		{regexp.MustCompile(`(?i)^(louder|up|\+)$`), domain.IntentLouder},
		{regexp.MustCompile(`(?i)^(softer|quieter|down|-)$`), domain.IntentSofter},
		{regexp.MustCompile(`(?i)^(?:duration|minutes|length|d)\s+(\d+)(?:\s*m(?:in(?:utes?)?)?)?$`), domain.IntentDuration},
		{regexp.MustCompile(`(?i)^(\d+)\s*m(?:in(?:utes?)?)?$`), domain.IntentDuration},
		{regexp.MustCompile(`(?i)^(voices|list voices|list)$`), domain.IntentListVoices},
		{regexp.MustCompile(`(?i)^(?:voice|use voice)\s+(\S+)$`), domain.IntentSelectVoice},
		{regexp.MustCompile(`(?i)^(?:quality|q)\s+(enhanced|standard)$`), domain.IntentQuality},
		{regexp.MustCompile(`(?i)^(status|where|progress|info)$`), domain.IntentStatus},
		{regexp.MustCompile(`(?i)^(schedule|cues|script)$`), domain.IntentSchedule},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp},
		{regexp.MustCompile(`(?i)^(quit|exit|bye)$`), domain.IntentQuit},
	}
	return p
}

// Parse converts user input into an intent.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	// A bare number picks the session length, e.g. "15".
	if len(trimmed) <= 3 && isDigits(trimmed) {
		return &domain.Intent{Type: domain.IntentDuration, Payload: trimmed}, nil
	}

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		p.log.Debug("matched intent: %s", rule.intent)
		intent := &domain.Intent{Type: rule.intent}
		if hasPayload(rule.intent) && len(m) > 1 {
			intent.Payload = strings.ToLower(m[1])
			if rule.intent == domain.IntentSelectVoice {
				// Voice IDs are case-sensitive.
				intent.Payload = m[1]
			}
		}
		return intent, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}

func hasPayload(t domain.IntentType) bool {
	switch t {
	case domain.IntentVolume, domain.IntentDuration, domain.IntentSelectVoice, domain.IntentQuality:
		return true
	}
	return false
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
