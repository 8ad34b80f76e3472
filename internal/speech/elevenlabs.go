package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// Errors returned by the ElevenLabs client.
var (
	ErrMissingAPIKey = errors.New("elevenlabs: api key not configured")
	ErrEmptyAudio    = errors.New("elevenlabs: empty audio response")
)

// ElevenLabsOption configures the ElevenLabs client.
type ElevenLabsOption func(*ElevenLabsClient)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) ElevenLabsOption {
	return func(c *ElevenLabsClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithModel sets the synthesis model.
func WithModel(model string) ElevenLabsOption {
	return func(c *ElevenLabsClient) {
		c.model = model
	}
}

// WithHTTPTimeout sets the HTTP client timeout for API requests.
func WithHTTPTimeout(d time.Duration) ElevenLabsOption {
	return func(c *ElevenLabsClient) {
		c.httpClient.Timeout = d
	}
}

// ElevenLabsClient handles text-to-speech synthesis and voice listing via
// the ElevenLabs REST API.
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	model      string
	format     string
	settings   VoiceSettings
	httpClient *http.Client
	log        *logger.Logger
}

// NewElevenLabsClient creates a client with the given API key. An empty key
// is allowed; every request then fails with ErrMissingAPIKey.
func NewElevenLabsClient(apiKey string, log *logger.Logger, opts ...ElevenLabsOption) *ElevenLabsClient {
	c := &ElevenLabsClient{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		model:    DefaultModelID,
		format:   DefaultOutputFormat,
		settings: DefaultVoiceSettings,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize converts text to raw 16-bit PCM audio spoken by voiceID.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	body, err := json.Marshal(synthesisRequest{
		Text:          text,
		ModelID:       c.model,
		VoiceSettings: c.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(voiceID), url.QueryEscape(c.format))
	c.log.Debug("elevenlabs: synthesizing %d chars with voice %s", len(text), voiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/pcm")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs tts error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio data: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	c.log.Debug("elevenlabs: got %d bytes of audio", len(audio))
	return audio, nil
}

type voicesResponse struct {
	Voices []domain.Voice `json:"voices"`
}

// Voices lists every voice available to the account.
func (c *ElevenLabsClient) Voices(ctx context.Context) ([]domain.Voice, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voices request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs voices error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding voices: %w", err)
	}

	c.log.Debug("elevenlabs: %d voices listed", len(out.Voices))
	return out.Voices, nil
}
