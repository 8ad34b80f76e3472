// Package guidance builds the timed schedule of spoken cues for a session.
package guidance

import (
	"fmt"

	"github.com/hammamikhairi/meditate/internal/domain"
)

// Entry IDs.
const (
	IDOpening        = "opening"
	IDBreathingStart = "breathing_start"
	IDReminder1      = "reminder_1"
	IDReminder2      = "reminder_2"
	IDReminder3      = "reminder_3"
	IDReminder4      = "reminder_4"
	IDReminder5      = "reminder_5"
	IDClosing        = "closing"
)

// ClosingLead is how many seconds before the end the closing cue plays.
const ClosingLead = 30

// conditional is a cue that only appears in sessions of at least minMinutes.
type conditional struct {
	minMinutes int
	id         string
	at         int
	tone       domain.Tone
	text       func() string
}

var conditionals = []conditional{
	{12, IDReminder2, 8 * 60, domain.ToneSoothing, lineReminder2},
	{15, IDReminder3, 11 * 60, domain.ToneCalming, lineReminder3},
	{20, IDReminder4, 14 * 60, domain.ToneGentle, lineReminder4},
	{20, IDReminder5, 17 * 60, domain.ToneSoothing, lineReminder5},
}

// Build returns the ordered guidance for a session of the given length.
// It is a pure function of durationMinutes.
func Build(durationMinutes int) []domain.GuidanceEntry {
	entries := []domain.GuidanceEntry{
		{ID: IDOpening, Text: lineOpening(), TimingSeconds: 0, Tone: domain.ToneSoothing},
		{ID: IDBreathingStart, Text: lineBreathingStart(), TimingSeconds: 2 * 60, Tone: domain.ToneCalming},
		{ID: IDReminder1, Text: lineReminder1(), TimingSeconds: 5 * 60, Tone: domain.ToneGentle},
	}

	for _, c := range conditionals {
		if durationMinutes >= c.minMinutes {
			entries = append(entries, domain.GuidanceEntry{
				ID:            c.id,
				Text:          c.text(),
				TimingSeconds: c.at,
				Tone:          c.tone,
			})
		}
	}

	entries = append(entries, domain.GuidanceEntry{
		ID:            IDClosing,
		Text:          lineClosing(),
		TimingSeconds: durationMinutes*60 - ClosingLead,
		Tone:          domain.ToneGentle,
	})
	return entries
}

// Validate checks that a schedule can be walked by a forward-only scan:
// timings must be non-negative and strictly increasing (two cues at the same
// second would let only the first one fire), and IDs must be unique.
func Validate(entries []domain.GuidanceEntry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.TimingSeconds < 0 {
			return fmt.Errorf("entry %q: negative timing %d", e.ID, e.TimingSeconds)
		}
		if seen[e.ID] {
			return fmt.Errorf("entry %q: duplicate id", e.ID)
		}
		seen[e.ID] = true
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		if e.TimingSeconds <= prev.TimingSeconds {
			return fmt.Errorf("entry %q at %ds does not follow %q at %ds",
				e.ID, e.TimingSeconds, prev.ID, prev.TimingSeconds)
		}
	}
	return nil
}

// SupportedDurations filters candidates down to the durations whose
// schedules pass Validate, preserving order and dropping duplicates. The
// rejected values are returned alongside so callers can report them.
func SupportedDurations(candidates []int) (ok []int, rejected []int) {
	seen := make(map[int]bool, len(candidates))
	for _, m := range candidates {
		if seen[m] {
			continue
		}
		seen[m] = true
		if m <= 0 || Validate(Build(m)) != nil {
			rejected = append(rejected, m)
			continue
		}
		ok = append(ok, m)
	}
	return ok, rejected
}
