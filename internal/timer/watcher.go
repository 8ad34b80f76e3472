package timer

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/engine"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// SnapshotSource exposes the current session view.
type SnapshotSource interface {
	Snapshot() engine.Snapshot
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets how often the watcher checks session state.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithReminderInterval sets how often a running session gets a
// "time remaining" line.
func WithReminderInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.reminderInterval = d
	}
}

// WithPausedNudge sets how long a session may stay paused before the
// watcher mentions it.
func WithPausedNudge(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pausedNudge = d
	}
}

// Watcher periodically looks at the session and writes quiet progress
// notes to the transcript. It never speaks; the guidance schedule owns the
// voice. Runs on a slower cycle than the supervisor (default: 1 minute).
type Watcher struct {
	source           SnapshotSource
	notifier         domain.Notifier
	log              *logger.Logger
	interval         time.Duration
	reminderInterval time.Duration
	pausedNudge      time.Duration

	session      string
	lastReminder time.Time
	pausedSince  time.Time
	completed    bool
}

// NewWatcher creates a watcher with the given dependencies.
func NewWatcher(source SnapshotSource, notifier domain.Notifier, log *logger.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:           source,
		notifier:         notifier,
		log:              log,
		interval:         1 * time.Minute,
		reminderInterval: 5 * time.Minute,
		pausedNudge:      3 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the watcher loop. Blocks until ctx is cancelled.
// Intended to be called as a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("watcher started (interval=%s)", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopped")
			return
		case <-ticker.C:
			w.check(ctx, time.Now())
		}
	}
}

// check runs one watcher cycle.
func (w *Watcher) check(ctx context.Context, now time.Time) {
	snap := w.source.Snapshot()

	w.log.Debug("watcher: checked status - session=%s state=%s remaining=%s phase=%q",
		snap.SessionID, snap.State, snap.Clock, snap.Phase.Name)

	msg := w.buildMessage(snap, now)
	if msg == "" {
		return
	}
	if err := w.notifier.Notify(ctx, msg); err != nil {
		w.log.Error("watcher: notify: %v", err)
	}
}

// buildMessage decides what to note based on the current state.
func (w *Watcher) buildMessage(snap engine.Snapshot, now time.Time) string {
	if snap.SessionID != w.session {
		w.session = snap.SessionID
		w.lastReminder = now
		w.pausedSince = time.Time{}
		w.completed = false
	}

	switch snap.State {
	case domain.SessionCompleted:
		if w.completed {
			return ""
		}
		w.completed = true
		return fmt.Sprintf("[Watcher] %d-minute session complete. Take a moment before moving on.", snap.DurationMinutes)

	case domain.SessionPaused:
		if w.pausedSince.IsZero() {
			w.pausedSince = now
			return ""
		}
		paused := now.Sub(w.pausedSince)
		if paused < w.pausedNudge {
			return ""
		}
		return fmt.Sprintf("[Watcher] Paused for %s with %s to go. Resume when you are ready.",
			formatRemaining(paused), formatRemaining(time.Duration(snap.RemainingSeconds)*time.Second))

	case domain.SessionRunning:
		w.pausedSince = time.Time{}
		if w.reminderInterval <= 0 || now.Sub(w.lastReminder) < w.reminderInterval {
			return ""
		}
		w.lastReminder = now
		return fmt.Sprintf("[Watcher] %s remaining. %s.",
			formatRemaining(time.Duration(snap.RemainingSeconds)*time.Second), snap.Phase.Name)
	}

	w.log.Debug("watcher: nothing to report")
	return ""
}

// formatRemaining returns a human-friendly duration. Rounds to the nearest
// minute once there's at least 1 minute left.
func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	totalSec := int(d.Seconds())
	if totalSec < 60 {
		if totalSec == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", totalSec)
	}
	m := (totalSec + 30) / 60
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
