// Package api exposes the session controller over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/engine"
	"github.com/hammamikhairi/meditate/internal/logger"
)

// Controller is the part of the session controller the API drives.
type Controller interface {
	Start(ctx context.Context) error
	Pause() error
	Resume() error
	Stop() error
	ToggleMute() bool
	SetVolume(v float64) float64
	SelectDuration(minutes int) error
	SelectVoice(id string) error
	SelectQuality(q domain.VoiceQuality) error
	Snapshot() engine.Snapshot
	Schedule() []domain.GuidanceEntry
	Subscribe() (<-chan engine.Snapshot, func())
}

// VoiceSource lists the voices offered for selection. ok is false until
// the catalog has been fetched.
type VoiceSource interface {
	Voices() (voices []domain.Voice, ok bool)
}

var _ Controller = (*engine.Controller)(nil)

// Server routes HTTP requests to a Controller.
type Server struct {
	ctrl   Controller
	voices VoiceSource
	log    *logger.Logger
	router chi.Router
}

// NewServer builds the router. voices may be nil.
func NewServer(ctrl Controller, voices VoiceSource, log *logger.Logger) *Server {
	s := &Server{ctrl: ctrl, voices: voices, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Get("/schedule", s.getSchedule)
		r.Get("/events", s.streamEvents)

		r.Post("/start", s.action(func(r *http.Request) error { return s.ctrl.Start(r.Context()) }))
		r.Post("/pause", s.action(func(*http.Request) error { return s.ctrl.Pause() }))
		r.Post("/resume", s.action(func(*http.Request) error { return s.ctrl.Resume() }))
		r.Post("/stop", s.action(func(*http.Request) error { return s.ctrl.Stop() }))
		r.Post("/mute", s.action(func(*http.Request) error {
			s.ctrl.ToggleMute()
			return nil
		}))

		r.Put("/volume", s.putVolume)
		r.Put("/duration", s.putDuration)
		r.Put("/voice", s.putVoice)
	})
	r.Get("/voices", s.getVoices)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("api: shutdown: %v", err)
		}
	}()

	s.log.Info("api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.ctrl.Snapshot(), http.StatusOK)
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.ctrl.Schedule(), http.StatusOK)
}

func (s *Server) getVoices(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Loaded bool           `json:"loaded"`
		Voices []domain.Voice `json:"voices"`
	}{Voices: []domain.Voice{}}

	if s.voices != nil {
		voices, ok := s.voices.Voices()
		resp.Loaded = ok
		if voices != nil {
			resp.Voices = voices
		}
	}
	respondJSON(w, resp, http.StatusOK)
}

// action runs a state-changing call and answers with the new snapshot.
func (s *Server) action(fn func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r); err != nil {
			s.respondErr(w, err)
			return
		}
		respondJSON(w, s.ctrl.Snapshot(), http.StatusOK)
	}
}

func (s *Server) putVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume *float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		respondError(w, "body must be {\"volume\": 0.0-1.0}", http.StatusBadRequest)
		return
	}
	s.ctrl.SetVolume(*req.Volume)
	respondJSON(w, s.ctrl.Snapshot(), http.StatusOK)
}

func (s *Server) putDuration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "body must be {\"minutes\": n}", http.StatusBadRequest)
		return
	}
	if err := s.ctrl.SelectDuration(req.Minutes); err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, s.ctrl.Snapshot(), http.StatusOK)
}

func (s *Server) putVoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VoiceID string `json:"voice_id"`
		Quality string `json:"quality"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.VoiceID == "" && req.Quality == "") {
		respondError(w, "body must set voice_id and/or quality", http.StatusBadRequest)
		return
	}

	var quality domain.VoiceQuality
	if req.Quality != "" {
		q, ok := domain.ParseVoiceQuality(req.Quality)
		if !ok {
			respondError(w, "quality must be enhanced or standard", http.StatusBadRequest)
			return
		}
		quality = q
	}

	if req.VoiceID != "" {
		if err := s.ctrl.SelectVoice(req.VoiceID); err != nil {
			s.respondErr(w, err)
			return
		}
	}
	if quality != "" {
		if err := s.ctrl.SelectQuality(quality); err != nil {
			s.respondErr(w, err)
			return
		}
	}
	respondJSON(w, s.ctrl.Snapshot(), http.StatusOK)
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("api: %v", err)
	}
	respondError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedDuration):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
