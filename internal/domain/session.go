package domain

import "time"

// Session represents one meditation run.
type Session struct {
	ID                  string
	DurationMinutes     int
	TotalSeconds        int
	RemainingSeconds    int
	State               SessionState
	LastDispatchedIndex int
	StartedAt           time.Time
}

// Elapsed returns the seconds since the session started.
func (s Session) Elapsed() int {
	return s.TotalSeconds - s.RemainingSeconds
}

// Active reports whether the countdown is currently advancing.
func (s Session) Active() bool {
	return s.State == SessionRunning
}

// SessionState tracks the lifecycle of a meditation session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionRunning
	SessionPaused
	SessionCompleted
)

// String returns a human-readable session state.
func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionRunning:
		return "running"
	case SessionPaused:
		return "paused"
	case SessionCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText lets the state serialise as its name.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
