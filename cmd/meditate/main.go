// Meditate is a guided meditation timer with spoken cues.
//
// Usage:
//
//	meditate [-minutes 15] [-start] [-config meditate.yaml] [-listen :7070] [-headless]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/meditate/internal/api"
	"github.com/hammamikhairi/meditate/internal/config"
	"github.com/hammamikhairi/meditate/internal/conversation"
	"github.com/hammamikhairi/meditate/internal/display"
	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/engine"
	"github.com/hammamikhairi/meditate/internal/logger"
	"github.com/hammamikhairi/meditate/internal/speech"
	"github.com/hammamikhairi/meditate/internal/storage"
	"github.com/hammamikhairi/meditate/internal/timer"
)

func main() {
	_ = godotenv.Load()

	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	configPath := flag.String("config", config.DefaultPath, "YAML settings file")
	logFile := flag.String("log-file", "", "file to write logs to (use \"stderr\" to log to console)")
	noSpeech := flag.Bool("no-speech", false, "print cues without speaking them")
	diskCache := flag.Bool("disk-cache", false, "persist TTS audio cache to disk (reads from disk even when false)")
	cacheDir := flag.String("cache-dir", "", "directory for persistent TTS audio cache")
	listen := flag.String("listen", "", "serve the HTTP control API on this address, e.g. :7070")
	headless := flag.Bool("headless", false, "no terminal UI; read commands from stdin")
	minutes := flag.Int("minutes", 0, "initial session length in minutes")
	autoStart := flag.Bool("start", false, "start a session immediately")
	flag.Parse()

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	cfg, err := config.Load(*configPath, explicit["config"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if explicit["log-file"] {
		cfg.LogFile = *logFile
	}
	if explicit["disk-cache"] {
		cfg.DiskCache = *diskCache
	}
	if explicit["cache-dir"] {
		cfg.CacheDir = *cacheDir
	}
	if explicit["listen"] {
		cfg.Listen = *listen
	}
	if explicit["minutes"] {
		cfg.DefaultDuration = *minutes
	}

	// Configure logger.
	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Direct logs to a file by default so the UI stays clean.
	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" && cfg.LogFile != "stderr" {
		dir := filepath.Dir(cfg.LogFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.LogFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// The HTTP middleware logs through the standard library.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	if err := cfg.Validate(log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Wire dependencies.
	voices := storage.NewVoiceStore(log.With("voices"))
	speaker := buildSpeaker(ctx, cfg, *noSpeech, voices, log)

	// The status bar reads the controller; it is first called from ui.Run.
	var ctrl *engine.Controller
	ui := display.NewUI(func() display.Status {
		snap := ctrl.Snapshot()
		return display.Status{Snapshot: snap, Voice: voiceLabel(snap.Voice, voices)}
	})
	notifier := conversation.NewCLINotifier(log, ui.Printf)

	ctrl = engine.New(speaker, log.With("engine"),
		engine.WithDurations(cfg.Durations),
		engine.WithDuration(cfg.DefaultDuration),
		engine.WithVolume(cfg.Volume),
		engine.WithVoice(cfg.VoicePreference()),
		engine.WithVoiceLookup(voices),
		engine.WithNotifier(notifier),
	)

	supervisor := timer.New(ctrl, log.With("timer"),
		timer.WithWatcher(ctrl, notifier),
	)
	ctrl.OnRun(supervisor.Realign)
	supervisor.Start(ctx)
	defer supervisor.Stop()

	if cfg.Listen != "" {
		srv := api.NewServer(ctrl, voices, log.With("api"))
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
				log.Error("api: %v", err)
				ui.PrintUrgent(fmt.Sprintf("HTTP API unavailable: %v", err))
			}
		}()
	}

	app := &cliApp{
		ctrl:   ctrl,
		parser: conversation.NewKeywordParser(log),
		voices: voices,
		ui:     ui,
		log:    log,
	}

	if *autoStart {
		if err := ctrl.Start(ctx); err != nil {
			log.Error("auto start: %v", err)
		}
	}

	if *headless {
		app.input = readLines(ctx, os.Stdin)
		app.quit = cancel
		fmt.Println(display.BannerStyle.Render("  Running headless. Type 'help' for commands, Ctrl+C to exit."))
		app.run(ctx)
		// Stdin may close early under a service manager; keep serving.
		<-ctx.Done()
		return
	}

	app.input = ui.InputChan()
	app.quit = ui.Quit

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	fmt.Println()

	// Run app logic in a background goroutine.
	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal; blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	cancel()
}

// buildSpeaker wires the speech path: ElevenLabs with a local fallback,
// or a silent speaker when speech is disabled. It also starts loading the
// voice catalog in the background.
func buildSpeaker(ctx context.Context, cfg config.Config, noSpeech bool, voices *storage.VoiceStore, log *logger.Logger) domain.Speaker {
	if noSpeech {
		voices.Set(nil)
		log.Info("speech disabled")
		return speech.NewNoOp(log)
	}

	slog := log.With("speech")

	apiKey := os.Getenv(speech.EnvElevenLabsKey)
	if apiKey == "" {
		log.Info("enhanced voice unavailable: set %s to enable", speech.EnvElevenLabsKey)
	}
	tts := speech.NewElevenLabsClient(apiKey, slog,
		speech.WithBaseURL(cfg.TTS.BaseURL),
		speech.WithModel(cfg.TTS.Model),
		speech.WithHTTPTimeout(cfg.TTS.Timeout),
	)
	go voices.Load(ctx, speech.NewMeditationCatalog(tts))

	opts := []speech.DispatcherOption{
		speech.WithCache(speech.NewAudioCache(cfg.CacheDir, cfg.DiskCache, slog)),
		speech.WithChunkSize(cfg.ChunkSize),
	}
	player, err := speech.NewPlayer(slog)
	if err != nil {
		log.Warn("audio output unavailable, enhanced voice will fall back: %v", err)
	} else {
		opts = append(opts, speech.WithSink(player))
	}

	d := speech.NewDispatcher(tts, speech.NewLocalSpeaker(slog), slog, opts...)
	d.Start(ctx)
	return d
}

// voiceLabel names the selected voice for the status bar.
func voiceLabel(pref domain.VoicePreference, voices *storage.VoiceStore) string {
	if pref.Quality == domain.QualityStandard {
		return "system"
	}
	if !voices.Loaded() {
		return "loading"
	}
	if v, err := voices.Get(pref.VoiceID); err == nil {
		return v.Name
	}
	return pref.VoiceID
}

// readLines feeds stdin lines into a channel until EOF or ctx ends.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
