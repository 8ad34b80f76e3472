package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/guidance"
	"github.com/hammamikhairi/meditate/internal/logger"
)

const (
	// VolumeStep is the change applied by louder/softer commands.
	VolumeStep = 0.1

	defaultVolume = 0.7
	subBuffer     = 8
)

// Option configures the controller.
type Option func(*Controller)

// WithDurations sets the session lengths the user may choose from.
func WithDurations(minutes []int) Option {
	return func(c *Controller) {
		if len(minutes) > 0 {
			c.durations = slices.Clone(minutes)
		}
	}
}

// WithDuration sets the initially selected session length.
func WithDuration(minutes int) Option {
	return func(c *Controller) {
		c.initial = minutes
	}
}

// WithVolume sets the initial playback volume.
func WithVolume(v float64) Option {
	return func(c *Controller) {
		c.volume = clampVolume(v)
	}
}

// WithVoice sets the initial voice preference.
func WithVoice(pref domain.VoicePreference) Option {
	return func(c *Controller) {
		c.voice = pref
	}
}

// WithVoiceLookup lets SelectVoice validate ids against the catalog.
func WithVoiceLookup(v domain.VoiceLookup) Option {
	return func(c *Controller) {
		c.voices = v
	}
}

// WithNotifier reports every dispatched cue to n.
func WithNotifier(n domain.Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// Snapshot is a point-in-time view of the controller, suitable for
// rendering and for JSON.
type Snapshot struct {
	SessionID           string                 `json:"session_id,omitempty"`
	State               domain.SessionState    `json:"state"`
	DurationMinutes     int                    `json:"duration_minutes"`
	TotalSeconds        int                    `json:"total_seconds"`
	RemainingSeconds    int                    `json:"remaining_seconds"`
	ElapsedSeconds      int                    `json:"elapsed_seconds"`
	Clock               string                 `json:"clock"`
	Progress            float64                `json:"progress"`
	Phase               Phase                  `json:"phase"`
	LastDispatchedIndex int                    `json:"last_dispatched_index"`
	LastCue             string                 `json:"last_cue,omitempty"`
	Muted               bool                   `json:"muted"`
	Volume              float64                `json:"volume"`
	Voice               domain.VoicePreference `json:"voice"`
	Durations           []int                  `json:"durations"`
}

// Controller is the control surface of the meditation timer. It owns the
// session clock and the user's settings, and hands due cues to a Speaker.
// All methods are safe for concurrent use.
type Controller struct {
	speaker  domain.Speaker
	log      *logger.Logger
	notifier domain.Notifier
	voices   domain.VoiceLookup

	// speakMu orders handing a cue to the speaker against canceling speech,
	// so a cue from a stopped or muted session is never spoken after the
	// cancel. Acquired before mu, never while holding it.
	speakMu sync.Mutex

	mu        sync.Mutex
	clock     *Clock
	durations []int
	initial   int
	volume    float64
	muted     bool
	voice     domain.VoicePreference
	lastCue   string
	onRun     func()

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// New creates a controller in the idle state.
func New(speaker domain.Speaker, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		speaker:   speaker,
		log:       log,
		durations: slices.Clone(domain.Durations),
		initial:   domain.DefaultDuration,
		volume:    defaultVolume,
		voice: domain.VoicePreference{
			Quality: domain.QualityEnhanced,
		},
		subs: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}

	if !slices.Contains(c.durations, c.initial) {
		c.initial = c.durations[0]
	}
	c.clock = NewClock(c.initial, guidance.Build(c.initial))
	return c
}

// OnRun registers fn to be called whenever the countdown starts or resumes.
// The tick host uses it to realign its one-second phase.
func (c *Controller) OnRun(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRun = fn
}

// cueJob is a due cue captured under the lock and dispatched outside it.
type cueJob struct {
	session   string
	cue       Cue
	utterance domain.Utterance
	muted     bool
}

// Start begins a new session with the selected duration and voice. Speech
// started here outlives ctx's cancellation, so a request-scoped context
// can be passed safely.
func (c *Controller) Start(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	cue, err := c.clock.Start(uuid.NewString(), time.Now())
	if err != nil {
		state := c.clock.Session().State
		c.mu.Unlock()
		c.log.Debug("start rejected in state %s", state)
		return fmt.Errorf("start: %w", err)
	}
	c.lastCue = ""
	session := c.clock.Session()
	schedule := c.clock.Schedule()
	voice := c.voice
	job := c.jobLocked(cue)
	onRun := c.onRun
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("session %s started: %d minutes, %d cues, %s voice",
		session.ID, session.DurationMinutes, len(schedule), voice.Quality)

	c.prefetch(ctx, voice, schedule)
	c.dispatch(ctx, job)
	c.publish(snap)
	if onRun != nil {
		onRun()
	}
	return nil
}

// Pause freezes the countdown. Speech already in progress is not cut off.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if err := c.clock.Pause(); err != nil {
		state := c.clock.Session().State
		c.mu.Unlock()
		c.log.Debug("pause rejected in state %s", state)
		return fmt.Errorf("pause: %w", err)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("session %s paused at %s", snap.SessionID, snap.Clock)
	c.publish(snap)
	return nil
}

// Resume continues a paused session.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if err := c.clock.Resume(); err != nil {
		state := c.clock.Session().State
		c.mu.Unlock()
		c.log.Debug("resume rejected in state %s", state)
		return fmt.Errorf("resume: %w", err)
	}
	onRun := c.onRun
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("session %s resumed at %s", snap.SessionID, snap.Clock)
	c.publish(snap)
	if onRun != nil {
		onRun()
	}
	return nil
}

// Stop abandons the current session and silences local speech.
func (c *Controller) Stop() error {
	c.mu.Lock()
	id := c.clock.Session().ID
	if err := c.clock.Stop(); err != nil {
		c.mu.Unlock()
		c.log.Debug("stop rejected: no session")
		return fmt.Errorf("stop: %w", err)
	}
	c.lastCue = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.cancelSpeech()
	c.log.Info("session %s stopped", id)
	c.publish(snap)
	return nil
}

// ToggleMute flips the mute flag and returns the new value.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	muted := !c.muted
	c.mu.Unlock()

	c.SetMuted(muted)
	return muted
}

// SetMuted sets the mute flag. Muting cancels local speech; due cues keep
// advancing the schedule but are not spoken.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	changed := c.muted != muted
	c.muted = muted
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if !changed {
		return
	}
	if muted {
		c.cancelSpeech()
	}
	c.log.Debug("muted=%v", muted)
	c.publish(snap)
}

// SetVolume sets the playback volume, clamped to [0,1], and returns the
// value actually applied.
func (c *Controller) SetVolume(v float64) float64 {
	c.mu.Lock()
	c.volume = clampVolume(v)
	applied := c.volume
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	return applied
}

// AdjustVolume changes the volume by delta.
func (c *Controller) AdjustVolume(delta float64) float64 {
	c.mu.Lock()
	v := c.volume + delta
	c.mu.Unlock()
	return c.SetVolume(v)
}

// SelectDuration chooses the length of the next session.
func (c *Controller) SelectDuration(minutes int) error {
	c.mu.Lock()
	if !slices.Contains(c.durations, minutes) {
		c.mu.Unlock()
		return fmt.Errorf("%d minutes: %w", minutes, domain.ErrUnsupportedDuration)
	}
	if err := c.clock.Configure(minutes, guidance.Build(minutes)); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("select duration: %w", err)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug("duration set to %d minutes", minutes)
	c.publish(snap)
	return nil
}

// SelectVoice chooses the networked voice for the next session. Unknown ids
// are rejected once the catalog has loaded; while it is still loading any id
// is accepted.
func (c *Controller) SelectVoice(id string) error {
	if c.voices != nil && c.voices.Loaded() {
		if _, err := c.voices.Get(id); err != nil {
			return fmt.Errorf("voice %q: %w", id, err)
		}
	}

	c.mu.Lock()
	if !c.idleLocked() {
		c.mu.Unlock()
		return fmt.Errorf("select voice: %w", domain.ErrInvalidTransition)
	}
	c.voice.VoiceID = id
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug("voice set to %s", id)
	c.publish(snap)
	return nil
}

// SelectQuality chooses between the networked and the local voice.
func (c *Controller) SelectQuality(q domain.VoiceQuality) error {
	if _, ok := domain.ParseVoiceQuality(string(q)); !ok {
		return fmt.Errorf("unknown voice quality %q", q)
	}

	c.mu.Lock()
	if !c.idleLocked() {
		c.mu.Unlock()
		return fmt.Errorf("select quality: %w", domain.ErrInvalidTransition)
	}
	c.voice.Quality = q
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug("voice quality set to %s", q)
	c.publish(snap)
	return nil
}

// Tick advances a running session by one second and dispatches the cue
// that became due, if any. Calls outside a running session do nothing.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if !c.clock.Session().Active() {
		c.mu.Unlock()
		return
	}
	cue, completed := c.clock.Tick()
	job := c.jobLocked(cue)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.dispatch(ctx, job)
	if completed {
		c.log.Info("session %s completed", snap.SessionID)
	}
	c.publish(snap)
}

// Snapshot returns the current view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Schedule returns the guidance schedule of the selected duration.
func (c *Controller) Schedule() []domain.GuidanceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock.Schedule()
}

// Durations returns the selectable session lengths.
func (c *Controller) Durations() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.durations)
}

// Subscribe returns a channel that receives a snapshot after every tick and
// state change. Slow subscribers miss snapshots rather than blocking the
// controller. The returned func unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subBuffer)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
			close(ch)
		})
	}
}

func (c *Controller) publish(snap Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// idleLocked settles a completed session and reports whether the
// controller is idle. Caller must hold c.mu.
func (c *Controller) idleLocked() bool {
	c.clock.settle()
	return c.clock.Session().State == domain.SessionIdle
}

func (c *Controller) jobLocked(cue *Cue) *cueJob {
	if cue == nil {
		return nil
	}
	c.lastCue = cue.Entry.ID
	return &cueJob{
		session: c.clock.Session().ID,
		cue:     *cue,
		utterance: domain.Utterance{
			Text:   cue.Entry.Text,
			Volume: c.volume,
			Voice:  c.voice,
		},
		muted: c.muted,
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.clock.Session()
	return Snapshot{
		SessionID:           s.ID,
		State:               s.State,
		DurationMinutes:     s.DurationMinutes,
		TotalSeconds:        s.TotalSeconds,
		RemainingSeconds:    s.RemainingSeconds,
		ElapsedSeconds:      s.Elapsed(),
		Clock:               FormatClock(s.RemainingSeconds),
		Progress:            Progress(s),
		Phase:               PhaseFor(s),
		LastDispatchedIndex: s.LastDispatchedIndex,
		LastCue:             c.lastCue,
		Muted:               c.muted,
		Volume:              c.volume,
		Voice:               c.voice,
		Durations:           slices.Clone(c.durations),
	}
}

// dispatch reports a due cue and hands it to the speaker. It never blocks
// on speech: the speaker's result is awaited in its own goroutine.
func (c *Controller) dispatch(ctx context.Context, job *cueJob) {
	if job == nil {
		return
	}

	entry := job.cue.Entry
	if c.notifier != nil {
		msg := entry.Text
		if job.muted {
			msg = "(muted) " + msg
		}
		if err := c.notifier.Notify(ctx, msg); err != nil {
			c.log.Warn("notify cue %s: %v", entry.ID, err)
		}
	}

	if job.muted {
		c.log.Debug("cue %s at %ds skipped: muted", entry.ID, entry.TimingSeconds)
		return
	}

	c.speakMu.Lock()
	if reason := c.staleLocked(job); reason != "" {
		c.speakMu.Unlock()
		c.log.Debug("cue %s at %ds dropped: %s", entry.ID, entry.TimingSeconds, reason)
		return
	}
	c.log.Debug("cue %s at %ds dispatched (%s)", entry.ID, entry.TimingSeconds, entry.Tone)
	done := c.speaker.Speak(ctx, job.utterance)
	c.speakMu.Unlock()

	go func() {
		err := <-done
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrCanceled), errors.Is(err, context.Canceled):
			c.log.Debug("cue %s canceled", entry.ID)
		default:
			c.log.Warn("cue %s: speech failed: %v", entry.ID, err)
		}
	}()
}

// staleLocked reports why job must no longer be spoken, or "" if it still
// may. Caller must hold c.speakMu.
func (c *Controller) staleLocked(job *cueJob) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.clock.Session()
	switch {
	case s.ID != job.session || s.State == domain.SessionIdle:
		return "session stopped"
	case c.muted:
		return "muted"
	}
	return ""
}

// cancelSpeech silences the speaker. Cues dispatched after it re-check the
// session and mute flag, which the caller has already changed.
func (c *Controller) cancelSpeech() {
	c.speakMu.Lock()
	defer c.speakMu.Unlock()
	c.speaker.Cancel()
}

func (c *Controller) prefetch(ctx context.Context, voice domain.VoicePreference, schedule []domain.GuidanceEntry) {
	if voice.Quality != domain.QualityEnhanced {
		return
	}
	p, ok := c.speaker.(domain.Prefetcher)
	if !ok {
		return
	}

	// Cues due at start are being synthesized right now.
	var texts []string
	for _, e := range schedule {
		if e.TimingSeconds > 0 {
			texts = append(texts, e.Text)
		}
	}
	p.Prefetch(ctx, voice.VoiceID, texts...)
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
