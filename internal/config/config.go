// Package config loads the optional meditate.yaml settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/guidance"
	"github.com/hammamikhairi/meditate/internal/logger"
	"github.com/hammamikhairi/meditate/internal/speech"
)

// DefaultPath is read when no -config flag is given. It may be absent.
const DefaultPath = "meditate.yaml"

// Config holds every tunable setting.
type Config struct {
	Durations       []int       `yaml:"durations"`
	DefaultDuration int         `yaml:"default_duration"`
	Volume          float64     `yaml:"volume"`
	Voice           VoiceConfig `yaml:"voice"`
	TTS             TTSConfig   `yaml:"tts"`
	CacheDir        string      `yaml:"cache_dir"`
	DiskCache       bool        `yaml:"disk_cache"`
	ChunkSize       int         `yaml:"chunk_size"`
	Listen          string      `yaml:"listen"`
	LogFile         string      `yaml:"log_file"`
}

// VoiceConfig selects the initial voice.
type VoiceConfig struct {
	ID      string `yaml:"id"`
	Quality string `yaml:"quality"`
}

// TTSConfig points the networked voice at its API.
type TTSConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Durations:       slices.Clone(domain.Durations),
		DefaultDuration: domain.DefaultDuration,
		Volume:          0.7,
		Voice: VoiceConfig{
			ID:      speech.DefaultVoiceID,
			Quality: string(domain.QualityEnhanced),
		},
		TTS: TTSConfig{
			BaseURL: speech.DefaultBaseURL,
			Model:   speech.DefaultModelID,
			Timeout: 15 * time.Second,
		},
		CacheDir:  ".meditate-cache",
		ChunkSize: 200,
		LogFile:   ".meditate-logs/meditate.log",
	}
}

// Load reads path over the defaults. A missing file is only an error when
// the caller named it explicitly.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Quality returns the configured voice quality. Call after Validate.
func (c Config) Quality() domain.VoiceQuality {
	q, _ := domain.ParseVoiceQuality(c.Voice.Quality)
	return q
}

// VoicePreference returns the configured initial voice.
func (c Config) VoicePreference() domain.VoicePreference {
	return domain.VoicePreference{VoiceID: c.Voice.ID, Quality: c.Quality()}
}

// Validate rejects settings the app cannot run with. Durations whose
// schedules would not play correctly are dropped with a warning rather than
// failing startup.
func (c *Config) Validate(log *logger.Logger) error {
	ok, rejected := guidance.SupportedDurations(c.Durations)
	for _, m := range rejected {
		log.Warn("config: dropping unsupported duration %d", m)
	}
	if len(ok) == 0 {
		return fmt.Errorf("config: no usable durations in %v", c.Durations)
	}
	c.Durations = ok

	if !slices.Contains(c.Durations, c.DefaultDuration) {
		log.Warn("config: default duration %d not offered, using %d", c.DefaultDuration, c.Durations[0])
		c.DefaultDuration = c.Durations[0]
	}

	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("config: volume %.2f outside [0,1]", c.Volume)
	}
	if _, valid := domain.ParseVoiceQuality(c.Voice.Quality); !valid {
		return fmt.Errorf("config: unknown voice quality %q", c.Voice.Quality)
	}
	if c.Voice.ID == "" {
		c.Voice.ID = speech.DefaultVoiceID
	}
	if c.TTS.Timeout <= 0 {
		return fmt.Errorf("config: tts timeout must be positive, got %s", c.TTS.Timeout)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk_size must be positive, got %d", c.ChunkSize)
	}
	return nil
}
