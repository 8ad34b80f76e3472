// Package timer implements the background supervisor that drives the
// meditation countdown once per second.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// Ticker is advanced by the supervisor once per tick interval.
type Ticker interface {
	Tick(ctx context.Context)
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithTickInterval sets how often the supervisor ticks its target.
func WithTickInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.tickInterval = d
	}
}

// WithWatcher enables the session watcher with the given source and options.
func WithWatcher(source SnapshotSource, notifier domain.Notifier, opts ...WatcherOption) Option {
	return func(s *Supervisor) {
		s.watchSource = source
		s.watchNotifier = notifier
		s.watcherOpts = opts
	}
}

// Supervisor runs in the background and ticks the session controller.
// Optionally runs a Watcher on a slower cycle for progress commentary.
type Supervisor struct {
	target       Ticker
	log          *logger.Logger
	tickInterval time.Duration

	watchSource   SnapshotSource
	watchNotifier domain.Notifier
	watcherOpts   []WatcherOption
	watcher       *Watcher

	// kick restarts the ticker so the next tick lands one full interval
	// after a start or resume.
	kick chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a supervisor that ticks target.
func New(target Ticker, log *logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		target:       target,
		log:          log,
		tickInterval: 1 * time.Second,
		kick:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the background supervisor loop. Non-blocking.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("timer supervisor already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	go s.loop(childCtx)

	if s.watchSource != nil && s.watchNotifier != nil {
		s.watcher = NewWatcher(s.watchSource, s.watchNotifier, s.log, s.watcherOpts...)
		go s.watcher.Run(childCtx)
	}

	s.log.Info("timer supervisor started (tick=%s)", s.tickInterval)
}

// Stop gracefully shuts down the supervisor.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.running = false
	s.log.Info("timer supervisor stopped")
}

// Realign restarts the tick phase. Safe to call from any goroutine; extra
// calls before the loop picks one up are coalesced.
func (s *Supervisor) Realign() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// loop is the main tick loop.
func (s *Supervisor) loop(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			ticker.Reset(s.tickInterval)
		case <-ticker.C:
			s.target.Tick(ctx)
		}
	}
}
