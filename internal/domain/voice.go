package domain

import "strings"

// VoiceQuality selects which speech path a session uses.
type VoiceQuality string

const (
	// QualityEnhanced speaks through the networked TTS voice, falling back
	// to the local engine on failure.
	QualityEnhanced VoiceQuality = "enhanced"
	// QualityStandard speaks through the local engine only.
	QualityStandard VoiceQuality = "standard"
)

// ParseVoiceQuality converts user input into a VoiceQuality.
func ParseVoiceQuality(s string) (VoiceQuality, bool) {
	switch VoiceQuality(strings.ToLower(strings.TrimSpace(s))) {
	case QualityEnhanced:
		return QualityEnhanced, true
	case QualityStandard:
		return QualityStandard, true
	}
	return "", false
}

// VoicePreference is the voice chosen for a session. It cannot change while
// a session is in progress.
type VoicePreference struct {
	VoiceID string       `json:"voice_id"`
	Quality VoiceQuality `json:"quality"`
}

// Voice is one entry of the networked voice catalog.
type Voice struct {
	ID          string            `json:"voice_id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Utterance is the read-only request handed to the speech subsystem.
type Utterance struct {
	Text   string
	Volume float64
	Voice  VoicePreference
}
