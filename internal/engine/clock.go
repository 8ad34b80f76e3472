// Package engine implements the meditation session state machine and the
// controller that exposes it to front ends.
package engine

import (
	"time"

	"github.com/hammamikhairi/meditate/internal/domain"
)

// Cue is a guidance entry that became due on a clock transition.
type Cue struct {
	Index int
	Entry domain.GuidanceEntry
}

// Clock owns the countdown and the dispatch index of one session. It does
// no I/O and is not safe for concurrent use; the Controller serialises
// access to it.
//
// The dispatch index only moves forward within a session, so a cue that
// has been handed out is never handed out again, no matter how often the
// scan is repeated for an elapsed value that has already passed.
type Clock struct {
	schedule []domain.GuidanceEntry
	session  domain.Session
}

// NewClock creates an idle clock for a session of the given length.
func NewClock(minutes int, schedule []domain.GuidanceEntry) *Clock {
	c := &Clock{schedule: schedule}
	c.reset(minutes)
	return c
}

// Session returns a copy of the current session state.
func (c *Clock) Session() domain.Session { return c.session }

// Schedule returns a copy of the guidance schedule.
func (c *Clock) Schedule() []domain.GuidanceEntry {
	out := make([]domain.GuidanceEntry, len(c.schedule))
	copy(out, c.schedule)
	return out
}

// Configure replaces the duration and schedule. Only valid while idle.
func (c *Clock) Configure(minutes int, schedule []domain.GuidanceEntry) error {
	c.settle()
	if c.session.State != domain.SessionIdle {
		return domain.ErrInvalidTransition
	}
	c.schedule = schedule
	c.reset(minutes)
	return nil
}

// Start begins a new session from idle. Cues scheduled at second zero are
// due immediately and returned.
func (c *Clock) Start(id string, now time.Time) (*Cue, error) {
	c.settle()
	if c.session.State != domain.SessionIdle {
		return nil, domain.ErrInvalidTransition
	}
	c.reset(c.session.DurationMinutes)
	c.session.ID = id
	c.session.StartedAt = now
	c.session.State = domain.SessionRunning
	return c.scan(0), nil
}

// Pause freezes a running session without losing progress.
func (c *Clock) Pause() error {
	if c.session.State != domain.SessionRunning {
		return domain.ErrInvalidTransition
	}
	c.session.State = domain.SessionPaused
	return nil
}

// Resume continues a paused session exactly where it stopped.
func (c *Clock) Resume() error {
	if c.session.State != domain.SessionPaused {
		return domain.ErrInvalidTransition
	}
	c.session.State = domain.SessionRunning
	return nil
}

// Stop discards the session's progress and returns to idle.
func (c *Clock) Stop() error {
	if c.session.State == domain.SessionIdle {
		return domain.ErrInvalidTransition
	}
	c.reset(c.session.DurationMinutes)
	return nil
}

// Tick advances a running session by one second. It returns the cue that
// became due, if any, and whether the session just completed. Ticks outside
// the running state do nothing.
func (c *Clock) Tick() (*Cue, bool) {
	if c.session.State != domain.SessionRunning {
		return nil, false
	}

	if c.session.RemainingSeconds > 0 {
		c.session.RemainingSeconds--
	}

	cue := c.scan(c.session.Elapsed())

	if c.session.RemainingSeconds == 0 {
		c.session.State = domain.SessionCompleted
		return cue, true
	}
	return cue, false
}

// scan looks forward from the last dispatched index for the first entry due
// at elapsed. At most one entry is returned per call.
func (c *Clock) scan(elapsed int) *Cue {
	for i := c.session.LastDispatchedIndex + 1; i < len(c.schedule); i++ {
		if c.schedule[i].TimingSeconds == elapsed {
			c.session.LastDispatchedIndex = i
			return &Cue{Index: i, Entry: c.schedule[i]}
		}
	}
	return nil
}

// settle turns a completed session back into an idle one.
func (c *Clock) settle() {
	if c.session.State == domain.SessionCompleted {
		c.reset(c.session.DurationMinutes)
	}
}

func (c *Clock) reset(minutes int) {
	c.session = domain.Session{
		DurationMinutes:     minutes,
		TotalSeconds:        minutes * 60,
		RemainingSeconds:    minutes * 60,
		State:               domain.SessionIdle,
		LastDispatchedIndex: -1,
	}
}
