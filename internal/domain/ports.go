package domain

import "context"

// Speaker turns text into audible speech. Speak must not block: it returns
// a channel that receives exactly one value (nil on success) once the
// utterance has been spoken or has failed. Cancel stops whatever can still
// be stopped.
type Speaker interface {
	Speak(ctx context.Context, u Utterance) <-chan error
	Cancel()
}

// Prefetcher is optionally implemented by a Speaker that can warm its audio
// cache ahead of time.
type Prefetcher interface {
	Prefetch(ctx context.Context, voiceID string, texts ...string)
}

// VoiceCatalog lists the voices available to the networked speech backend.
type VoiceCatalog interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// VoiceLookup resolves catalog entries. Loaded reports whether the catalog
// has been fetched (successfully or not).
type VoiceLookup interface {
	Get(id string) (Voice, error)
	Loaded() bool
}

// Notifier delivers messages to the user. Implementations can write to
// stdout, a TUI, or a log.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// IntentParser converts typed user input into an intent.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}
