// Package storage holds in-memory state shared between front ends.
package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// Compile-time interface check.
var _ domain.VoiceLookup = (*VoiceStore)(nil)

// VoiceStore is the read-only voice catalog, fetched once per process.
// Until Load finishes the store is empty and not loaded; a failed fetch
// leaves it empty and loaded. Safe for concurrent access.
type VoiceStore struct {
	mu     sync.RWMutex
	voices []domain.Voice
	byID   map[string]domain.Voice
	loaded bool
	err    error
	log    *logger.Logger
}

// NewVoiceStore creates an empty, not-yet-loaded store.
func NewVoiceStore(log *logger.Logger) *VoiceStore {
	return &VoiceStore{
		byID: make(map[string]domain.Voice),
		log:  log,
	}
}

// Load fetches the catalog from src. Meant to run in its own goroutine;
// it never fails the caller, the error is kept for Err.
func (s *VoiceStore) Load(ctx context.Context, src domain.VoiceCatalog) {
	voices, err := src.Voices(ctx)
	if err != nil {
		s.log.Warn("voice catalog unavailable: %v", err)
		s.mu.Lock()
		s.loaded = true
		s.err = err
		s.mu.Unlock()
		return
	}
	s.Set(voices)
}

// Set replaces the catalog and marks the store loaded.
func (s *VoiceStore) Set(voices []domain.Voice) {
	byID := make(map[string]domain.Voice, len(voices))
	for _, v := range voices {
		byID[v.ID] = v
	}

	s.mu.Lock()
	s.voices = slices.Clone(voices)
	s.byID = byID
	s.loaded = true
	s.err = nil
	s.mu.Unlock()

	s.log.Info("voice catalog loaded, count=%d", len(voices))
}

// Voices returns the catalog and whether it has been loaded.
func (s *VoiceStore) Voices() ([]domain.Voice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.voices), s.loaded
}

// Get retrieves a voice by ID.
func (s *VoiceStore) Get(id string) (domain.Voice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byID[id]
	if !ok {
		s.log.Debug("voice not found: %s", id)
		return domain.Voice{}, domain.ErrNotFound
	}
	return v, nil
}

// At returns the voice at a 1-based position in the listing.
func (s *VoiceStore) At(n int) (domain.Voice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n < 1 || n > len(s.voices) {
		return domain.Voice{}, domain.ErrNotFound
	}
	return s.voices[n-1], nil
}

// Loaded reports whether a fetch has finished, successfully or not.
func (s *VoiceStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Err returns the error of a failed fetch, if any.
func (s *VoiceStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
