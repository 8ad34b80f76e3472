// Package speech turns guidance text into audio: ElevenLabs synthesis with
// a local system voice as fallback, serialized through a Dispatcher.
package speech

import (
	"context"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// Compile-time interface check.
var _ domain.Speaker = (*NoOp)(nil)

// NoOp is a speaker that does nothing. Used when voice is disabled.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a no-op speaker.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Speak logs the text and reports success immediately.
func (n *NoOp) Speak(_ context.Context, u domain.Utterance) <-chan error {
	n.log.Debug("speech no-op: would say %q", truncate(u.Text, 60))
	done := make(chan error, 1)
	done <- nil
	return done
}

// Cancel does nothing.
func (n *NoOp) Cancel() {}
