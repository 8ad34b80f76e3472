package timer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/engine"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// collectingNotifier captures messages for assertions.
type collectingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *collectingNotifier) Notify(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *collectingNotifier) NotifyUrgent(_ context.Context, msg string) error {
	return n.Notify(context.Background(), msg)
}

func (n *collectingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// fixedSource serves a settable snapshot.
type fixedSource struct {
	mu   sync.Mutex
	snap engine.Snapshot
}

func (f *fixedSource) Snapshot() engine.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func newWatcher(src SnapshotSource, n domain.Notifier, opts ...WatcherOption) *Watcher {
	return NewWatcher(src, n, logger.New(logger.LevelOff, nil), opts...)
}

func TestWatcherRunningReminder(t *testing.T) {
	w := newWatcher(&fixedSource{}, &collectingNotifier{}, WithReminderInterval(5*time.Minute))
	t0 := time.Now()
	snap := engine.Snapshot{
		SessionID:        "s1",
		State:            domain.SessionRunning,
		RemainingSeconds: 420,
		Phase:            engine.PhaseAwareness,
	}

	if msg := w.buildMessage(snap, t0); msg != "" {
		t.Fatalf("expected no reminder on first sight, got %q", msg)
	}
	if msg := w.buildMessage(snap, t0.Add(4*time.Minute)); msg != "" {
		t.Fatalf("expected no reminder before interval, got %q", msg)
	}

	msg := w.buildMessage(snap, t0.Add(5*time.Minute))
	if !strings.Contains(msg, "7 minutes remaining") || !strings.Contains(msg, "Deep Awareness") {
		t.Fatalf("unexpected reminder %q", msg)
	}
}

func TestWatcherPausedNudge(t *testing.T) {
	w := newWatcher(&fixedSource{}, &collectingNotifier{}, WithPausedNudge(2*time.Minute))
	t0 := time.Now()
	snap := engine.Snapshot{SessionID: "s1", State: domain.SessionPaused, RemainingSeconds: 300}

	if msg := w.buildMessage(snap, t0); msg != "" {
		t.Fatalf("expected no nudge when pause first seen, got %q", msg)
	}
	msg := w.buildMessage(snap, t0.Add(3*time.Minute))
	if !strings.Contains(msg, "Paused for 3 minutes") || !strings.Contains(msg, "5 minutes to go") {
		t.Fatalf("unexpected nudge %q", msg)
	}
}

func TestWatcherCompletionOnce(t *testing.T) {
	w := newWatcher(&fixedSource{}, &collectingNotifier{})
	now := time.Now()
	snap := engine.Snapshot{SessionID: "s1", State: domain.SessionCompleted, DurationMinutes: 15}

	if msg := w.buildMessage(snap, now); !strings.Contains(msg, "15-minute session complete") {
		t.Fatalf("unexpected completion message %q", msg)
	}
	if msg := w.buildMessage(snap, now.Add(time.Minute)); msg != "" {
		t.Fatalf("completion announced twice: %q", msg)
	}

	// A new session resets the watcher.
	snap.SessionID = "s2"
	if msg := w.buildMessage(snap, now.Add(2*time.Minute)); msg == "" {
		t.Fatal("expected completion of the next session to be announced")
	}
}

func TestWatcherIdleIsQuiet(t *testing.T) {
	w := newWatcher(&fixedSource{}, &collectingNotifier{})
	if msg := w.buildMessage(engine.Snapshot{State: domain.SessionIdle}, time.Now()); msg != "" {
		t.Fatalf("expected silence while idle, got %q", msg)
	}
}

func TestWatcherRunNotifies(t *testing.T) {
	src := &fixedSource{snap: engine.Snapshot{SessionID: "s1", State: domain.SessionCompleted, DurationMinutes: 10}}
	notifier := &collectingNotifier{}

	w := newWatcher(src, notifier, WithWatchInterval(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()

	if got := notifier.count(); got != 1 {
		t.Fatalf("expected exactly one completion note, got %d", got)
	}
}

func TestSupervisorStartsWatcher(t *testing.T) {
	src := &fixedSource{snap: engine.Snapshot{SessionID: "s1", State: domain.SessionCompleted, DurationMinutes: 10}}
	notifier := &collectingNotifier{}

	sup := New(&countingTicker{}, logger.New(logger.LevelOff, nil),
		WithTickInterval(time.Hour),
		WithWatcher(src, notifier, WithWatchInterval(20*time.Millisecond)),
	)
	sup.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	sup.Stop()

	if notifier.count() == 0 {
		t.Fatal("expected the supervisor's watcher to report completion")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := map[time.Duration]string{
		time.Second:      "1 second",
		45 * time.Second: "45 seconds",
		90 * time.Second: "2 minutes",
		61 * time.Second: "1 minute",
		7 * time.Minute:  "7 minutes",
	}
	for in, want := range tests {
		if got := formatRemaining(in); got != want {
			t.Errorf("formatRemaining(%s) = %q, want %q", in, got, want)
		}
	}
}
