package speech

// DefaultVoiceID is the ElevenLabs voice used when none has been chosen.
// Browse the catalog with the "voices" command.
const DefaultVoiceID = "9BWtsMINqrJLrRacOk9x"

// ElevenLabs API defaults.
const (
	DefaultBaseURL = "https://api.elevenlabs.io/v1"
	DefaultModelID = "eleven_monolingual_v1"
	// DefaultOutputFormat asks for raw little-endian PCM at SampleRate so the
	// player needs no decoder.
	DefaultOutputFormat = "pcm_24000"
)

// Audio parameters matching the default output format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// EnvElevenLabsKey names the env var holding the ElevenLabs API key.
const EnvElevenLabsKey = "ELEVENLABS_API_KEY"

// VoiceSettings tunes the ElevenLabs voice for slow, even delivery.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings are the settings sent with every synthesis request.
var DefaultVoiceSettings = VoiceSettings{
	Stability:       0.5,
	SimilarityBoost: 0.75,
	Style:           0,
	UseSpeakerBoost: true,
}
