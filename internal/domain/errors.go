package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid session transition")
	ErrUnsupportedDuration = errors.New("unsupported session duration")
	ErrCanceled            = errors.New("speech canceled")
)
