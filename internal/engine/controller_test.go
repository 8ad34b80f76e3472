package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/guidance"
	"github.com/hammamikhairi/meditate/internal/logger"
)

type fakeSpeaker struct {
	mu       sync.Mutex
	spoken   []domain.Utterance
	prefetch []string
	cancels  int
	err      error
}

func (f *fakeSpeaker) Speak(_ context.Context, u domain.Utterance) <-chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, u)
	done := make(chan error, 1)
	done <- f.err
	return done
}

func (f *fakeSpeaker) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeSpeaker) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	for i, u := range f.spoken {
		out[i] = u.Text
	}
	return out
}

type prefetchSpeaker struct {
	fakeSpeaker
	voice string
}

func (p *prefetchSpeaker) Prefetch(_ context.Context, voiceID string, texts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voice = voiceID
	p.prefetch = append(p.prefetch, texts...)
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockNotifier) NotifyUrgent(ctx context.Context, msg string) error {
	return m.Notify(ctx, msg)
}

// hookNotifier runs onMessage when it is shown msg, standing in for a
// user command that lands while a cue is being displayed.
type hookNotifier struct {
	mockNotifier
	msg       string
	onMessage func()
}

func (h *hookNotifier) Notify(ctx context.Context, msg string) error {
	if msg == h.msg && h.onMessage != nil {
		h.onMessage()
	}
	return h.mockNotifier.Notify(ctx, msg)
}

type stubLookup struct {
	loaded bool
	ids    map[string]bool
}

func (s stubLookup) Get(id string) (domain.Voice, error) {
	if !s.ids[id] {
		return domain.Voice{}, domain.ErrNotFound
	}
	return domain.Voice{ID: id}, nil
}

func (s stubLookup) Loaded() bool { return s.loaded }

func newController(t *testing.T, sp domain.Speaker, opts ...Option) *Controller {
	t.Helper()
	return New(sp, logger.New(logger.LevelOff, nil), opts...)
}

func ticks(c *Controller, n int) {
	ctx := context.Background()
	for range n {
		c.Tick(ctx)
	}
}

func scheduleText(t *testing.T, minutes int, id string) string {
	t.Helper()
	for _, e := range guidance.Build(minutes) {
		if e.ID == id {
			return e.Text
		}
	}
	t.Fatalf("no entry %s in %d-minute schedule", id, minutes)
	return ""
}

func TestControllerTenMinuteFirstHalf(t *testing.T) {
	sp := &fakeSpeaker{}
	c := newController(t, sp)

	require.NoError(t, c.Start(context.Background()))
	ticks(c, 300)

	assert.Equal(t, []string{
		scheduleText(t, 10, guidance.IDOpening),
		scheduleText(t, 10, guidance.IDBreathingStart),
		scheduleText(t, 10, guidance.IDReminder1),
	}, sp.texts())

	snap := c.Snapshot()
	assert.Equal(t, "05:00", snap.Clock)
	assert.Equal(t, guidance.IDReminder1, snap.LastCue)
	assert.Equal(t, 2, snap.LastDispatchedIndex)
}

func TestControllerMuteSkipsButAdvances(t *testing.T) {
	sp := &fakeSpeaker{}
	n := &mockNotifier{}
	c := newController(t, sp, WithDuration(20), WithNotifier(n))

	require.NoError(t, c.Start(context.Background()))
	ticks(c, 119)
	assert.True(t, c.ToggleMute())
	ticks(c, 1)

	assert.Equal(t, []string{scheduleText(t, 20, guidance.IDOpening)}, sp.texts())
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.LastDispatchedIndex)
	assert.True(t, snap.Muted)
	assert.Equal(t, 1, sp.cancels)

	n.mu.Lock()
	require.Len(t, n.messages, 2)
	assert.Contains(t, n.messages[1], "(muted)")
	n.mu.Unlock()

	// Unmuting does not replay the skipped cue.
	c.SetMuted(false)
	ticks(c, 180)
	assert.Equal(t, []string{
		scheduleText(t, 20, guidance.IDOpening),
		scheduleText(t, 20, guidance.IDReminder1),
	}, sp.texts())
}

func TestControllerStopWhileCueShownDropsSpeech(t *testing.T) {
	sp := &fakeSpeaker{}
	n := &hookNotifier{msg: scheduleText(t, 10, guidance.IDBreathingStart)}
	c := newController(t, sp, WithNotifier(n))
	n.onMessage = func() { require.NoError(t, c.Stop()) }

	require.NoError(t, c.Start(context.Background()))
	ticks(c, 120)

	assert.Equal(t, []string{scheduleText(t, 10, guidance.IDOpening)}, sp.texts())
	assert.Equal(t, domain.SessionIdle, c.Snapshot().State)
	assert.Equal(t, 1, sp.cancels)
}

func TestControllerStopThenRestartWhileCueShownDropsSpeech(t *testing.T) {
	sp := &fakeSpeaker{}
	n := &hookNotifier{msg: scheduleText(t, 10, guidance.IDBreathingStart)}
	c := newController(t, sp, WithNotifier(n))
	n.onMessage = func() {
		n.onMessage = nil
		require.NoError(t, c.Stop())
		require.NoError(t, c.Start(context.Background()))
	}

	require.NoError(t, c.Start(context.Background()))
	ticks(c, 120)

	// The new session speaks its own opening; the old cue is not spoken.
	opening := scheduleText(t, 10, guidance.IDOpening)
	assert.Equal(t, []string{opening, opening}, sp.texts())
	assert.Equal(t, domain.SessionRunning, c.Snapshot().State)
}

func TestControllerMuteWhileCueShownDropsSpeech(t *testing.T) {
	sp := &fakeSpeaker{}
	n := &hookNotifier{msg: scheduleText(t, 10, guidance.IDBreathingStart)}
	c := newController(t, sp, WithNotifier(n))
	n.onMessage = func() { c.SetMuted(true) }

	require.NoError(t, c.Start(context.Background()))
	ticks(c, 120)

	assert.Equal(t, []string{scheduleText(t, 10, guidance.IDOpening)}, sp.texts())
	snap := c.Snapshot()
	assert.True(t, snap.Muted)
	assert.Equal(t, 1, snap.LastDispatchedIndex)
	assert.Equal(t, 1, sp.cancels)
}

func TestControllerSpeechFailureDoesNotHaltCountdown(t *testing.T) {
	sp := &fakeSpeaker{err: errors.New("no audio device")}
	c := newController(t, sp)

	require.NoError(t, c.Start(context.Background()))
	ticks(c, 600)

	snap := c.Snapshot()
	assert.Equal(t, domain.SessionCompleted, snap.State)
	assert.Zero(t, snap.RemainingSeconds)
	assert.Len(t, sp.texts(), 4)
}

func TestControllerPauseResume(t *testing.T) {
	sp := &fakeSpeaker{}
	c := newController(t, sp)
	runs := 0
	c.OnRun(func() { runs++ })

	require.NoError(t, c.Start(context.Background()))
	ticks(c, 130)
	require.NoError(t, c.Pause())

	before := c.Snapshot()
	ticks(c, 30)
	assert.Equal(t, before.RemainingSeconds, c.Snapshot().RemainingSeconds)

	require.NoError(t, c.Resume())
	after := c.Snapshot()
	assert.Equal(t, before.RemainingSeconds, after.RemainingSeconds)
	assert.Equal(t, before.LastDispatchedIndex, after.LastDispatchedIndex)
	assert.Equal(t, 2, runs)

	assert.ErrorIs(t, c.Resume(), domain.ErrInvalidTransition)
}

func TestControllerStopThenRestartReplays(t *testing.T) {
	sp := &fakeSpeaker{}
	c := newController(t, sp)

	require.NoError(t, c.Start(context.Background()))
	ticks(c, 300)
	require.NoError(t, c.Stop())
	assert.Equal(t, 1, sp.cancels)

	snap := c.Snapshot()
	assert.Equal(t, domain.SessionIdle, snap.State)
	assert.Equal(t, "10:00", snap.Clock)
	assert.Equal(t, -1, snap.LastDispatchedIndex)

	require.NoError(t, c.Start(context.Background()))
	texts := sp.texts()
	require.Len(t, texts, 4)
	assert.Equal(t, scheduleText(t, 10, guidance.IDOpening), texts[3])
}

func TestControllerSettingsLockedDuringSession(t *testing.T) {
	c := newController(t, &fakeSpeaker{})
	require.NoError(t, c.Start(context.Background()))

	assert.ErrorIs(t, c.SelectDuration(15), domain.ErrInvalidTransition)
	assert.ErrorIs(t, c.SelectVoice("abc"), domain.ErrInvalidTransition)
	assert.ErrorIs(t, c.SelectQuality(domain.QualityStandard), domain.ErrInvalidTransition)
	assert.ErrorIs(t, c.Start(context.Background()), domain.ErrInvalidTransition)

	snap := c.Snapshot()
	assert.Equal(t, 10, snap.DurationMinutes)
	assert.Equal(t, domain.QualityEnhanced, snap.Voice.Quality)
}

func TestControllerSelectDuration(t *testing.T) {
	c := newController(t, &fakeSpeaker{}, WithDurations([]int{10, 20}))

	assert.ErrorIs(t, c.SelectDuration(15), domain.ErrUnsupportedDuration)
	require.NoError(t, c.SelectDuration(20))

	snap := c.Snapshot()
	assert.Equal(t, 20, snap.DurationMinutes)
	assert.Equal(t, "20:00", snap.Clock)
	assert.Len(t, c.Schedule(), 8)
}

func TestControllerSelectDurationAfterCompletion(t *testing.T) {
	c := newController(t, &fakeSpeaker{})
	require.NoError(t, c.Start(context.Background()))
	ticks(c, 600)
	require.Equal(t, domain.SessionCompleted, c.Snapshot().State)

	require.NoError(t, c.SelectDuration(12))
	assert.Equal(t, domain.SessionIdle, c.Snapshot().State)
}

func TestControllerSelectVoice(t *testing.T) {
	lookup := &stubLookup{ids: map[string]bool{"calm": true}}
	c := newController(t, &fakeSpeaker{}, WithVoiceLookup(lookup))

	// Any id is accepted while the catalog is loading.
	require.NoError(t, c.SelectVoice("whatever"))

	lookup.loaded = true
	assert.ErrorIs(t, c.SelectVoice("missing"), domain.ErrNotFound)
	require.NoError(t, c.SelectVoice("calm"))
	assert.Equal(t, "calm", c.Snapshot().Voice.VoiceID)
}

func TestControllerVolume(t *testing.T) {
	c := newController(t, &fakeSpeaker{}, WithVolume(0.5))

	assert.InDelta(t, 0.6, c.AdjustVolume(VolumeStep), 1e-9)
	assert.Equal(t, 1.0, c.SetVolume(3))
	assert.Equal(t, 0.0, c.SetVolume(-1))
}

func TestControllerUtteranceCarriesSettings(t *testing.T) {
	sp := &fakeSpeaker{}
	pref := domain.VoicePreference{VoiceID: "v1", Quality: domain.QualityStandard}
	c := newController(t, sp, WithVoice(pref), WithVolume(0.4))

	require.NoError(t, c.Start(context.Background()))

	sp.mu.Lock()
	defer sp.mu.Unlock()
	require.Len(t, sp.spoken, 1)
	assert.Equal(t, pref, sp.spoken[0].Voice)
	assert.InDelta(t, 0.4, sp.spoken[0].Volume, 1e-9)
}

func TestControllerPrefetchesEnhancedSchedule(t *testing.T) {
	sp := &prefetchSpeaker{}
	c := newController(t, sp, WithVoice(domain.VoicePreference{VoiceID: "v1", Quality: domain.QualityEnhanced}))

	require.NoError(t, c.Start(context.Background()))

	sp.mu.Lock()
	defer sp.mu.Unlock()
	assert.Equal(t, "v1", sp.voice)
	assert.Len(t, sp.prefetch, 3)
	assert.NotContains(t, sp.prefetch, scheduleText(t, 10, guidance.IDOpening))
}

func TestControllerSubscribe(t *testing.T) {
	c := newController(t, &fakeSpeaker{})
	ch, cancel := c.Subscribe()

	require.NoError(t, c.Start(context.Background()))
	snap := <-ch
	assert.Equal(t, domain.SessionRunning, snap.State)

	c.Tick(context.Background())
	snap = <-ch
	assert.Equal(t, "09:59", snap.Clock)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}
