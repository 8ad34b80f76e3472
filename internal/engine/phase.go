package engine

import (
	"fmt"

	"github.com/hammamikhairi/meditate/internal/domain"
)

// Phase is the presentation label shown next to the countdown.
type Phase struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Display phases. These buckets are a presentation table of their own and
// are not derived from the guidance schedule.
var (
	PhaseReady     = Phase{"Ready to begin", "Select a duration and start your meditation"}
	PhaseComplete  = Phase{"Complete", "Your session is complete"}
	PhaseOpening   = Phase{"Opening", "Finding your comfortable position and beginning your journey"}
	PhaseBodyScan  = Phase{"Body Scan", "Scanning your body from head to toe, noticing sensations"}
	PhaseBreathing = Phase{"Breathing Focus", "Counting breaths and maintaining gentle focus"}
	PhaseAwareness = Phase{"Deep Awareness", "Maintaining mindfulness and observing thoughts"}
	PhasePresence  = Phase{"Peaceful Presence", "Resting in awareness and cultivating inner peace"}
	PhaseClosing   = Phase{"Closing", "Gently concluding your practice and returning to awareness"}
	PhaseMindful   = Phase{"Mindful Meditation", "Continuing your practice with gentle awareness"}
)

// PhaseAt buckets elapsed seconds into a display phase. The ordering
// matters: the closing bucket is only reached once the fixed buckets up to
// fifteen minutes have been passed.
func PhaseAt(elapsed, remaining int) Phase {
	switch {
	case elapsed < 30:
		return PhaseOpening
	case elapsed < 120:
		return PhaseBodyScan
	case elapsed < 300:
		return PhaseBreathing
	case elapsed < 600:
		return PhaseAwareness
	case elapsed < 900:
		return PhasePresence
	case remaining <= 30:
		return PhaseClosing
	default:
		return PhaseMindful
	}
}

// PhaseFor returns the display phase for a session.
func PhaseFor(s domain.Session) Phase {
	switch s.State {
	case domain.SessionIdle:
		return PhaseReady
	case domain.SessionCompleted:
		return PhaseComplete
	}
	// A paused session keeps the phase of its elapsed time.
	return PhaseAt(s.Elapsed(), s.RemainingSeconds)
}

// FormatClock renders seconds as zero-padded MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Progress returns the completed fraction of a session in [0,1]. Idle
// sessions report zero.
func Progress(s domain.Session) float64 {
	if s.State == domain.SessionIdle || s.TotalSeconds <= 0 {
		return 0
	}
	p := float64(s.Elapsed()) / float64(s.TotalSeconds)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
