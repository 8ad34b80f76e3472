package domain

// IntentType classifies what the user wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentStart
	IntentPause
	IntentResume
	IntentStop
	IntentMute
	IntentVolume   // payload: absolute level, e.g. "0.4" or "40"
	IntentLouder   // step volume up
	IntentSofter   // step volume down
	IntentDuration // payload: minutes
	IntentListVoices
	IntentSelectVoice // payload: list number or voice ID
	IntentQuality     // payload: "enhanced" or "standard"
	IntentStatus
	IntentSchedule
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentStart:
		return "start"
	case IntentPause:
		return "pause"
	case IntentResume:
		return "resume"
	case IntentStop:
		return "stop"
	case IntentMute:
		return "mute"
	case IntentVolume:
		return "volume"
	case IntentLouder:
		return "louder"
	case IntentSofter:
		return "softer"
	case IntentDuration:
		return "duration"
	case IntentListVoices:
		return "list_voices"
	case IntentSelectVoice:
		return "select_voice"
	case IntentQuality:
		return "quality"
	case IntentStatus:
		return "status"
	case IntentSchedule:
		return "schedule"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // optional argument, e.g. minutes for duration
}
