// Package domain defines the core types and interfaces for the meditation
// timer. All other packages depend on domain; domain depends on nothing.
package domain

// Tone describes how a guidance line is meant to sound. It is informational
// and does not affect dispatch.
type Tone string

const (
	ToneSoothing Tone = "soothing"
	ToneCalming  Tone = "calming"
	ToneGentle   Tone = "gentle"
)

// GuidanceEntry is one scripted voice cue within a session.
type GuidanceEntry struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	TimingSeconds int    `json:"timing_seconds"` // elapsed seconds from session start
	Tone          Tone   `json:"tone"`
}

// Durations lists the session lengths offered by default, in minutes.
var Durations = []int{10, 12, 15, 20}

// DefaultDuration is the preselected session length in minutes.
const DefaultDuration = 10
