package speech

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// Errors returned by the local speaker.
var (
	ErrNoLocalEngine = errors.New("no local speech engine found")
	ErrCanceled      = domain.ErrCanceled
)

// Calm prosody for the local voice, relative to each engine's normal.
const (
	localRate  = 0.6
	localPitch = 0.8

	// Words per minute at normal rate for engines that take wpm.
	normalWPM = 175
)

var preferredLocalVoices = []string{
	"Samantha",
	"Victoria",
	"Karen",
	"Microsoft Zira",
	"Google UK English Female",
	"Google US English Female",
}

var femaleHints = []string{"female", "samantha", "victoria", "karen"}

// LocalVoice is a voice installed on the host.
type LocalVoice struct {
	Name string
	Lang string
}

// pickLocalVoice chooses the calmest-sounding installed voice: a preferred
// name first, then an English voice that sounds female by name, then any
// English voice.
func pickLocalVoice(voices []LocalVoice) (LocalVoice, bool) {
	for _, want := range preferredLocalVoices {
		for _, v := range voices {
			if strings.Contains(v.Name, want) {
				return v, true
			}
		}
	}

	var firstEnglish *LocalVoice
	for i, v := range voices {
		if !isEnglish(v.Lang) {
			continue
		}
		name := strings.ToLower(v.Name)
		for _, hint := range femaleHints {
			if strings.Contains(name, hint) {
				return v, true
			}
		}
		if firstEnglish == nil {
			firstEnglish = &voices[i]
		}
	}
	if firstEnglish != nil {
		return *firstEnglish, true
	}
	return LocalVoice{}, false
}

func isEnglish(lang string) bool {
	return strings.HasPrefix(strings.ToLower(lang), "en")
}

// localEngine describes one command-line speech program.
type localEngine struct {
	name string
	// args builds the command line and optional stdin for one utterance.
	args func(text string, volume float64, voice string) ([]string, string)
	// list and parse enumerate installed voices; nil when unsupported.
	list  []string
	parse func(out string) []LocalVoice
}

const sapiScript = `Add-Type -AssemblyName System.Speech;` +
	`$s = New-Object System.Speech.Synthesis.SpeechSynthesizer;`

var (
	engineSay = localEngine{
		name: "say",
		args: func(text string, volume float64, voice string) ([]string, string) {
			args := []string{"-r", strconv.Itoa(int(normalWPM * localRate))}
			if voice != "" {
				args = append(args, "-v", voice)
			}
			// say has no volume flag; an embedded command sets it.
			return append(args, fmt.Sprintf("[[volm %.2f]] %s", volume, text)), ""
		},
		list:  []string{"-v", "?"},
		parse: parseSayVoices,
	}

	engineEspeakNG = localEngine{
		name: "espeak-ng",
		args: espeakArgs,
	}

	engineEspeak = localEngine{
		name: "espeak",
		args: espeakArgs,
	}

	engineSpdSay = localEngine{
		name: "spd-say",
		args: func(text string, volume float64, _ string) ([]string, string) {
			return []string{
				"-w",
				"-r", strconv.Itoa(int((localRate - 1) * 100)),
				"-p", strconv.Itoa(int((localPitch - 1) * 100)),
				"-i", strconv.Itoa(int(volume*200) - 100),
				"-t", "female1",
				text,
			}, ""
		},
	}

	enginePowerShell = localEngine{
		name: "powershell",
		args: func(text string, volume float64, voice string) ([]string, string) {
			script := sapiScript +
				fmt.Sprintf("$s.Rate = %d; $s.Volume = %d;", -4, int(volume*100))
			if voice != "" {
				script += fmt.Sprintf("$s.SelectVoice('%s');", strings.ReplaceAll(voice, "'", "''"))
			}
			script += "$s.Speak([Console]::In.ReadToEnd())"
			return []string{"-NoProfile", "-NonInteractive", "-Command", script}, text
		},
		list: []string{"-NoProfile", "-NonInteractive", "-Command", sapiScript +
			"$s.GetInstalledVoices() | ForEach-Object { $_.VoiceInfo.Name + '|' + $_.VoiceInfo.Culture }"},
		parse: parsePipeVoices,
	}
)

func espeakArgs(text string, volume float64, _ string) ([]string, string) {
	return []string{
		"-v", "en+f3",
		"-s", strconv.Itoa(int(normalWPM * localRate)),
		"-p", strconv.Itoa(int(localPitch * 50)),
		"-a", strconv.Itoa(int(volume * 100)),
		text,
	}, ""
}

// parseSayVoices reads `say -v ?` output: "Samantha  en_US  # Hello...".
func parseSayVoices(out string) []LocalVoice {
	var voices []LocalVoice
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		lang := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, LocalVoice{Name: name, Lang: lang})
	}
	return voices
}

// parsePipeVoices reads "Name|culture" lines.
func parsePipeVoices(out string) []LocalVoice {
	var voices []LocalVoice
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		name, lang, ok := strings.Cut(strings.TrimSpace(sc.Text()), "|")
		if !ok || name == "" {
			continue
		}
		voices = append(voices, LocalVoice{Name: name, Lang: lang})
	}
	return voices
}

// enginesFor lists candidate engines in preference order for an OS.
func enginesFor(goos string) []localEngine {
	switch goos {
	case "darwin":
		return []localEngine{engineSay, engineEspeakNG, engineEspeak}
	case "windows":
		return []localEngine{enginePowerShell, engineEspeakNG, engineEspeak}
	default:
		return []localEngine{engineEspeakNG, engineEspeak, engineSpdSay}
	}
}

// LocalSpeaker speaks through a command-line speech engine installed on the
// host. One utterance runs at a time; Cancel kills it.
type LocalSpeaker struct {
	log    *logger.Logger
	engine *localEngine
	bin    string

	voiceOnce sync.Once
	voice     string

	mu     sync.Mutex
	cmd    *exec.Cmd
	killed bool
}

// NewLocalSpeaker detects the first available engine for this OS. The
// speaker is usable even when none is found; Say then fails with
// ErrNoLocalEngine.
func NewLocalSpeaker(log *logger.Logger) *LocalSpeaker {
	s := &LocalSpeaker{log: log}
	for _, e := range enginesFor(runtime.GOOS) {
		bin, err := exec.LookPath(e.name)
		if err != nil {
			continue
		}
		s.engine = &e
		s.bin = bin
		log.Info("local speech engine: %s", bin)
		return s
	}
	log.Warn("no local speech engine found; fallback speech disabled")
	return s
}

// Available reports whether a local engine was found.
func (s *LocalSpeaker) Available() bool { return s.engine != nil }

// Engine returns the detected engine's name, or "" when none.
func (s *LocalSpeaker) Engine() string {
	if s.engine == nil {
		return ""
	}
	return s.engine.name
}

// Say speaks text at volume in [0,1] and blocks until done. Returns
// ErrCanceled when Cancel interrupted it.
func (s *LocalSpeaker) Say(ctx context.Context, text string, volume float64) error {
	if s.engine == nil {
		return ErrNoLocalEngine
	}

	s.voiceOnce.Do(func() { s.voice = s.detectVoice(ctx) })

	args, stdin := s.engine.args(text, volume, s.voice)

	cmd := exec.CommandContext(ctx, s.bin, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	s.mu.Lock()
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("starting %s: %w", s.engine.name, err)
	}
	s.cmd = cmd
	s.killed = false
	s.mu.Unlock()

	s.log.Debug("local speech (%s): %s", s.engine.name, truncate(text, 60))
	err := cmd.Wait()

	s.mu.Lock()
	killed := s.killed
	s.cmd = nil
	s.mu.Unlock()

	if killed {
		return ErrCanceled
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.engine.name, err)
	}
	return nil
}

// Cancel kills the utterance in progress, if any.
func (s *LocalSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	s.killed = true
	if err := s.cmd.Process.Kill(); err != nil {
		s.log.Debug("local speech: kill: %v", err)
	}
}

func (s *LocalSpeaker) detectVoice(ctx context.Context) string {
	if s.engine.list == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.bin, s.engine.list...).Output()
	if err != nil {
		s.log.Warn("local speech: listing voices: %v", err)
		return ""
	}

	v, ok := pickLocalVoice(s.engine.parse(string(out)))
	if !ok {
		s.log.Debug("local speech: no English voice found, using engine default")
		return ""
	}
	s.log.Info("local speech voice: %s (%s)", v.Name, v.Lang)
	return v.Name
}
