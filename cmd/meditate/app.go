package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/meditate/internal/display"
	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/engine"
	"github.com/hammamikhairi/meditate/internal/logger"
	"github.com/hammamikhairi/meditate/internal/storage"
)

type cliApp struct {
	ctrl   *engine.Controller
	parser domain.IntentParser
	voices *storage.VoiceStore
	ui     *display.UI
	log    *logger.Logger
	input  <-chan string
	quit   func()
}

func (a *cliApp) run(ctx context.Context) {
	a.ui.PrintInfo(fmt.Sprintf("A %d-minute session is ready. Type 'start' when you are settled.",
		a.ctrl.Snapshot().DurationMinutes))

	for {
		var input string
		var ok bool

		select {
		case <-ctx.Done():
			return
		case input, ok = <-a.input:
			if !ok {
				return
			}
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		intent, err := a.parser.Parse(ctx, input)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}

		a.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
		if a.handleIntent(ctx, intent) {
			return
		}
	}
}

// handleIntent carries out one command. It reports whether the app should
// exit.
func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) bool {
	switch intent.Type {
	case domain.IntentStart:
		a.report(a.ctrl.Start(ctx), "")
	case domain.IntentPause:
		a.report(a.ctrl.Pause(), "Paused. Type 'resume' when ready.")
	case domain.IntentResume:
		a.report(a.ctrl.Resume(), "")
	case domain.IntentStop:
		a.report(a.ctrl.Stop(), "Session stopped.")
	case domain.IntentMute:
		if a.ctrl.ToggleMute() {
			a.ui.PrintHint("Muted. Cues will be shown but not spoken.")
		} else {
			a.ui.PrintHint("Unmuted.")
		}
	case domain.IntentVolume:
		v, err := parseVolume(intent.Payload)
		if err != nil {
			a.ui.PrintUrgent(err.Error())
			return false
		}
		a.showVolume(a.ctrl.SetVolume(v))
	case domain.IntentLouder:
		a.showVolume(a.ctrl.AdjustVolume(engine.VolumeStep))
	case domain.IntentSofter:
		a.showVolume(a.ctrl.AdjustVolume(-engine.VolumeStep))
	case domain.IntentDuration:
		a.selectDuration(intent.Payload)
	case domain.IntentListVoices:
		a.showVoices()
	case domain.IntentSelectVoice:
		a.selectVoice(intent.Payload)
	case domain.IntentQuality:
		q, _ := domain.ParseVoiceQuality(intent.Payload)
		a.report(a.ctrl.SelectQuality(q), fmt.Sprintf("Voice quality set to %s.", q))
	case domain.IntentStatus:
		a.showStatus()
	case domain.IntentSchedule:
		a.showSchedule()
	case domain.IntentHelp:
		a.showHelp()
	case domain.IntentQuit:
		if a.ctrl.Snapshot().State != domain.SessionIdle {
			if err := a.ctrl.Stop(); err != nil {
				a.log.Debug("stop on quit: %v", err)
			}
		}
		a.ui.PrintHint("Goodbye.")
		if a.quit != nil {
			a.quit()
		}
		return true
	default:
		a.ui.PrintHint(fmt.Sprintf("I didn't catch %q. Type 'help' for commands.", intent.Payload))
	}
	return false
}

// report prints ok on success, or explains why the command was refused.
func (a *cliApp) report(err error, ok string) {
	switch {
	case err == nil:
		if ok != "" {
			a.ui.PrintHint(ok)
		}
	case errors.Is(err, domain.ErrInvalidTransition):
		a.ui.PrintHint(fmt.Sprintf("Not now: the session is %s.", a.ctrl.Snapshot().State))
	case errors.Is(err, domain.ErrUnsupportedDuration):
		a.ui.PrintUrgent(fmt.Sprintf("Choose one of %s minutes.", joinInts(a.ctrl.Durations())))
	case errors.Is(err, domain.ErrNotFound):
		a.ui.PrintUrgent("No such voice. Type 'voices' to list them.")
	default:
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
	}
}

func (a *cliApp) selectDuration(payload string) {
	m, err := strconv.Atoi(payload)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("%q is not a number of minutes.", payload))
		return
	}
	a.report(a.ctrl.SelectDuration(m), fmt.Sprintf("Session length set to %d minutes.", m))
}

func (a *cliApp) selectVoice(payload string) {
	id := payload
	// A small number picks from the last listing.
	if n, err := strconv.Atoi(payload); err == nil && n < 100 {
		v, err := a.voices.At(n)
		if err != nil {
			a.ui.PrintUrgent(fmt.Sprintf("No voice number %d. Type 'voices' to list them.", n))
			return
		}
		id = v.ID
	}
	a.report(a.ctrl.SelectVoice(id), fmt.Sprintf("Voice set to %s.", a.voiceName(id)))
}

func (a *cliApp) voiceName(id string) string {
	if v, err := a.voices.Get(id); err == nil {
		return v.Name
	}
	return id
}

func (a *cliApp) showVolume(v float64) {
	a.ui.PrintHint(fmt.Sprintf("Volume %d%%", int(v*100+0.5)))
}

func (a *cliApp) showVoices() {
	voices, loaded := a.voices.Voices()
	if !loaded {
		a.ui.PrintHint("Voices are still loading. Try again in a moment.")
		return
	}
	if len(voices) == 0 {
		if err := a.voices.Err(); err != nil {
			a.ui.PrintHint(fmt.Sprintf("No enhanced voices available (%v). The system voice will be used.", err))
		} else {
			a.ui.PrintHint("No enhanced voices available. The system voice will be used.")
		}
		return
	}

	current := a.ctrl.Snapshot().Voice.VoiceID
	a.ui.PrintInfo("Voices:")
	for i, v := range voices {
		mark := " "
		if v.ID == current {
			mark = "*"
		}
		line := fmt.Sprintf("%s [%d] %s", mark, i+1, v.Name)
		if v.Description != "" {
			line += " - " + v.Description
		}
		a.ui.PrintHint(line)
	}
	a.ui.PrintHint("Pick one with 'voice N'.")
}

func (a *cliApp) showStatus() {
	s := a.ctrl.Snapshot()
	a.ui.PrintInfo(fmt.Sprintf("Session: %s, %s left of %d minutes", s.State, s.Clock, s.DurationMinutes))
	a.ui.PrintHint(fmt.Sprintf("Phase:   %s (%s)", s.Phase.Name, s.Phase.Description))
	vol := fmt.Sprintf("%d%%", int(s.Volume*100+0.5))
	if s.Muted {
		vol += ", muted"
	}
	a.ui.PrintHint("Volume:  " + vol)
	a.ui.PrintHint(fmt.Sprintf("Voice:   %s (%s)", a.voiceName(s.Voice.VoiceID), s.Voice.Quality))
	if s.LastCue != "" {
		a.ui.PrintHint("Last cue: " + s.LastCue)
	}
}

func (a *cliApp) showSchedule() {
	s := a.ctrl.Snapshot()
	a.ui.PrintInfo(fmt.Sprintf("Cues for a %d-minute session:", s.DurationMinutes))
	for i, e := range a.ctrl.Schedule() {
		mark := " "
		if s.State != domain.SessionIdle && i <= s.LastDispatchedIndex {
			mark = "✓"
		}
		a.ui.PrintHint(fmt.Sprintf("%s %s  %s", mark, engine.FormatClock(e.TimingSeconds), e.ID))
	}
}

func (a *cliApp) showHelp() {
	a.ui.PrintInfo("Commands:")
	a.ui.PrintHint("  start / go          Begin the session")
	a.ui.PrintHint("  pause / resume      Pause or continue the countdown")
	a.ui.PrintHint("  stop                End the session and reset")
	a.ui.PrintHint("  mute                Toggle spoken cues")
	a.ui.PrintHint("  volume N            Set volume, 0-100 or 0.0-1.0")
	a.ui.PrintHint("  louder / softer     Step the volume")
	a.ui.PrintHint(fmt.Sprintf("  N / duration N      Session length: %s minutes", joinInts(a.ctrl.Durations())))
	a.ui.PrintHint("  voices / voice N    List or pick a voice")
	a.ui.PrintHint("  quality enhanced    Networked voice (falls back to the system voice)")
	a.ui.PrintHint("  quality standard    System voice only")
	a.ui.PrintHint("  status / schedule   Show progress or the cue timeline")
	a.ui.PrintHint("  quit                Exit")
}

// parseVolume accepts a fraction written with a decimal point (0.4, 1.0)
// or a whole percentage (40, 40%). A bare 1 is one percent.
func parseVolume(s string) (float64, error) {
	num, pct := strings.CutSuffix(s, "%")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a volume", s)
	}
	if pct || !strings.Contains(num, ".") {
		v /= 100
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("volume %s is out of range", s)
	}
	return v, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
