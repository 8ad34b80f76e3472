package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// Synthesizer turns text into PCM audio in a given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// AudioSink plays synthesized audio synchronously.
type AudioSink interface {
	Play(audio []byte, volume float64) error
	Stop()
}

// LocalBackend speaks text with a host speech engine.
type LocalBackend interface {
	Say(ctx context.Context, text string, volume float64) error
	Cancel()
}

var errNoAudioDevice = errors.New("no audio output device")

// Compile-time interface checks.
var (
	_ domain.Speaker    = (*Dispatcher)(nil)
	_ domain.Prefetcher = (*Dispatcher)(nil)
)

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets the internal notification channel capacity.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.notify = make(chan struct{}, n)
	}
}

// WithChunkSize sets the approximate max character count per synthesis
// request. Longer text is split at sentence boundaries and synthesized in
// parallel so playback doesn't stall between sentences.
func WithChunkSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.chunkSize = n
	}
}

// WithCache sets the audio cache used for networked synthesis.
func WithCache(c *AudioCache) DispatcherOption {
	return func(d *Dispatcher) {
		d.cache = c
	}
}

// WithSink sets the audio output for networked speech. Without one, every
// enhanced utterance falls back to the local voice.
func WithSink(s AudioSink) DispatcherOption {
	return func(d *Dispatcher) {
		d.sink = s
	}
}

// request is a queued utterance waiting to be spoken.
type request struct {
	ctx       context.Context
	utterance domain.Utterance
	done      chan error
	queuedAt  time.Time
}

// Dispatcher is the central speech pipeline. Utterances are queued and
// spoken one at a time, in order:
//
//	enhanced: cache/synthesize (parallel chunks) -> play, else local voice
//	standard: local voice with natural pauses
//
// Each Speak call gets a future that resolves once its utterance is done.
type Dispatcher struct {
	tts   Synthesizer
	sink  AudioSink
	local LocalBackend
	cache *AudioCache
	log   *logger.Logger

	mu          sync.Mutex
	queue       []request
	notify      chan struct{}
	speaking    bool
	interrupted bool  // set by Cancel, checked between chunks
	stopped     error // set once the process loop exits
	chunkSize   int   // chars per synthesis request, 0 = no chunking
}

// NewDispatcher creates a speech dispatcher. tts may be nil, in which case
// only the local voice is used.
func NewDispatcher(tts Synthesizer, local LocalBackend, log *logger.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		tts:       tts,
		local:     local,
		log:       log,
		notify:    make(chan struct{}, 32),
		chunkSize: 200,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cache == nil {
		d.cache = NewAudioCache("", false, log)
	}
	return d
}

// Speak queues an utterance. Non-blocking. The returned channel receives
// exactly one value: nil once spoken, or the reason it was not.
func (d *Dispatcher) Speak(ctx context.Context, u domain.Utterance) <-chan error {
	done := make(chan error, 1)

	d.mu.Lock()
	if err := d.stopped; err != nil {
		d.mu.Unlock()
		done <- err
		return done
	}
	d.queue = append(d.queue, request{
		ctx:       ctx,
		utterance: u,
		done:      done,
		queuedAt:  time.Now(),
	})
	qLen := len(d.queue)
	d.mu.Unlock()

	d.log.Debug("dispatcher: queued (%s, queue_len=%d): %s", u.Voice.Quality, qLen, truncate(u.Text, 60))

	select {
	case d.notify <- struct{}{}:
	default: // already signaled
	}
	return done
}

// Cancel drops every queued utterance and silences the local voice.
// Networked audio that is already playing finishes its current chunk.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	dropped := d.queue
	d.queue = nil
	d.interrupted = true
	d.mu.Unlock()

	for _, r := range dropped {
		r.done <- ErrCanceled
	}
	d.local.Cancel()

	d.log.Debug("dispatcher: canceled, %d queued utterances dropped", len(dropped))
}

// IsSpeaking reports whether an utterance is in progress.
func (d *Dispatcher) IsSpeaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speaking
}

// QueueLen returns the number of pending utterances.
func (d *Dispatcher) QueueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Cache returns the audio cache. Useful for stats/logging.
func (d *Dispatcher) Cache() *AudioCache { return d.cache }

// Start begins the speech processing goroutine. Non-blocking. When ctx
// ends, queued utterances fail and anything still audible is silenced.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.processLoop(ctx)
	go func() {
		<-ctx.Done()
		d.local.Cancel()
		if d.sink != nil {
			d.sink.Stop()
		}
	}()
	d.log.Info("speech dispatcher started")
}

// processLoop waits for queued utterances and speaks them one at a time.
func (d *Dispatcher) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.failPending(ctx.Err())
			d.log.Info("speech dispatcher stopped")
			return
		case <-d.notify:
			d.drain(ctx)
		}
	}
}

// failPending resolves every queued request with err and refuses later ones.
func (d *Dispatcher) failPending(err error) {
	d.mu.Lock()
	d.stopped = err
	pending := d.queue
	d.queue = nil
	d.mu.Unlock()
	for _, r := range pending {
		r.done <- err
	}
}

// drain speaks every queued utterance in FIFO order.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		req := d.queue[0]
		d.queue = d.queue[1:]
		d.interrupted = false
		d.speaking = true
		d.mu.Unlock()

		req.done <- d.process(ctx, req)

		d.mu.Lock()
		d.speaking = false
		d.mu.Unlock()
	}
}

// process speaks one utterance, falling back to the local voice when the
// networked path fails.
func (d *Dispatcher) process(ctx context.Context, req request) error {
	if err := req.ctx.Err(); err != nil {
		return err
	}

	u := req.utterance
	d.log.Debug("dispatcher: speaking (%s, waited=%s): %s",
		u.Voice.Quality, time.Since(req.queuedAt).Round(time.Millisecond), truncate(u.Text, 60))

	if u.Voice.Quality == domain.QualityStandard {
		return d.local.Say(ctx, naturalPauses(u.Text), u.Volume)
	}

	err := d.speakEnhanced(ctx, u)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCanceled) || d.wasInterrupted() {
		return ErrCanceled
	}

	d.log.Warn("dispatcher: enhanced voice failed, using local voice: %v", err)
	if lerr := d.local.Say(ctx, u.Text, u.Volume); lerr != nil {
		return fmt.Errorf("local fallback: %w (enhanced: %v)", lerr, err)
	}
	return nil
}

// speakEnhanced synthesizes (in parallel chunks for long text) and plays.
// Every chunk must synthesize before anything is played.
func (d *Dispatcher) speakEnhanced(ctx context.Context, u domain.Utterance) error {
	if d.tts == nil {
		return ErrMissingAPIKey
	}
	if d.sink == nil {
		return errNoAudioDevice
	}

	voice := u.Voice.VoiceID
	if voice == "" {
		voice = DefaultVoiceID
	}

	chunks := d.splitChunks(u.Text)
	audio, err := d.synthesizeAll(ctx, chunks, voice)
	if err != nil {
		return err
	}

	for i, a := range audio {
		if d.wasInterrupted() {
			d.log.Debug("dispatcher: aborting chunk playback (canceled)")
			return ErrCanceled
		}
		if err := d.sink.Play(a, u.Volume); err != nil {
			return fmt.Errorf("playing chunk %d: %w", i, err)
		}
	}
	return nil
}

func (d *Dispatcher) synthesizeAll(ctx context.Context, chunks []string, voice string) ([][]byte, error) {
	if len(chunks) == 1 {
		a, err := d.synthesizeWithCache(ctx, chunks[0], voice)
		if err != nil {
			return nil, err
		}
		return [][]byte{a}, nil
	}

	d.log.Debug("dispatcher: split into %d chunks for parallel synthesis", len(chunks))

	type result struct {
		idx   int
		audio []byte
		err   error
	}
	results := make(chan result, len(chunks))
	for i, chunk := range chunks {
		go func(idx int, text string) {
			a, err := d.synthesizeWithCache(ctx, text, voice)
			results <- result{idx: idx, audio: a, err: err}
		}(i, chunk)
	}

	slots := make([][]byte, len(chunks))
	var firstErr error
	for range chunks {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("chunk %d: %w", r.idx, r.err)
			}
			continue
		}
		slots[r.idx] = r.audio
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return slots, nil
}

// synthesizeWithCache checks the cache first, otherwise synthesizes and
// stores the result.
func (d *Dispatcher) synthesizeWithCache(ctx context.Context, text, voice string) ([]byte, error) {
	if audio, ok := d.cache.Get(voice, text); ok {
		return audio, nil
	}
	audio, err := d.tts.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	d.cache.Put(voice, text, audio)
	return audio, nil
}

func (d *Dispatcher) wasInterrupted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interrupted
}

// Prefetch pre-synthesizes texts in background goroutines and stores the
// results in the audio cache, skipping anything already cached.
// Non-blocking.
func (d *Dispatcher) Prefetch(ctx context.Context, voiceID string, texts ...string) {
	if d.tts == nil {
		return
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, chunk := range d.splitChunks(text) {
			if d.cache.Has(voiceID, chunk) {
				d.log.Debug("prefetch: already cached: %s", truncate(chunk, 50))
				continue
			}
			go func(t string) {
				audio, err := d.tts.Synthesize(ctx, t, voiceID)
				if err != nil {
					d.log.Debug("prefetch: synthesis failed: %v", err)
					return
				}
				d.cache.Put(voiceID, t, audio)
			}(chunk)
		}
	}
}

// splitChunks breaks text into sentence-boundary chunks of approximately
// d.chunkSize characters. Short text comes back as a single chunk.
func (d *Dispatcher) splitChunks(text string) []string {
	if d.chunkSize <= 0 || len(text) <= d.chunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, s := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(s) > d.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	var out []string
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitSentences splits text at sentence boundaries (. ! ?) keeping the
// punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
