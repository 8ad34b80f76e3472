package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/meditate/internal/domain"
	"github.com/hammamikhairi/meditate/internal/engine"
	"github.com/hammamikhairi/meditate/internal/logger"
	"github.com/hammamikhairi/meditate/internal/speech"
	"github.com/hammamikhairi/meditate/internal/storage"
)

// sessionView mirrors the snapshot JSON; state arrives as its name.
type sessionView struct {
	State           string                 `json:"state"`
	DurationMinutes int                    `json:"duration_minutes"`
	Muted           bool                   `json:"muted"`
	Volume          float64                `json:"volume"`
	Voice           domain.VoicePreference `json:"voice"`
	LastCue         string                 `json:"last_cue"`
}

func newTestServer(t *testing.T) (*Server, *engine.Controller) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)

	voices := storage.NewVoiceStore(log)
	voices.Set([]domain.Voice{
		{ID: "sarah", Name: "Sarah", Category: "premade"},
		{ID: "lily", Name: "Lily", Category: "premade"},
	})

	ctrl := engine.New(speech.NewNoOp(log), log, engine.WithVoiceLookup(voices))
	return NewServer(ctrl, voices, log), ctrl
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, sessionView) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var view sessionView
	if rec.Code == http.StatusOK && strings.HasPrefix(path, "/session") {
		_ = json.Unmarshal(rec.Body.Bytes(), &view)
	}
	return rec, view
}

func TestGetSession(t *testing.T) {
	s, _ := newTestServer(t)

	rec, view := do(t, s, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "idle", view.State)
	assert.Equal(t, domain.DefaultDuration, view.DurationMinutes)
}

func TestLifecycleTransitions(t *testing.T) {
	s, _ := newTestServer(t)

	rec, _ := do(t, s, http.MethodPost, "/session/pause", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, view := do(t, s, http.MethodPost, "/session/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", view.State)
	assert.NotEmpty(t, view.LastCue)

	rec, _ = do(t, s, http.MethodPost, "/session/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, view = do(t, s, http.MethodPost, "/session/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", view.State)

	rec, view = do(t, s, http.MethodPost, "/session/resume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", view.State)

	rec, view = do(t, s, http.MethodPost, "/session/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", view.State)

	rec, _ = do(t, s, http.MethodPost, "/session/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMuteToggles(t *testing.T) {
	s, _ := newTestServer(t)

	_, view := do(t, s, http.MethodPost, "/session/mute", "")
	assert.True(t, view.Muted)
	_, view = do(t, s, http.MethodPost, "/session/mute", "")
	assert.False(t, view.Muted)
}

func TestPutVolume(t *testing.T) {
	s, _ := newTestServer(t)

	rec, view := do(t, s, http.MethodPut, "/session/volume", `{"volume": 0.3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.3, view.Volume, 1e-9)

	_, view = do(t, s, http.MethodPut, "/session/volume", `{"volume": 4}`)
	assert.InDelta(t, 1.0, view.Volume, 1e-9)

	rec, _ = do(t, s, http.MethodPut, "/session/volume", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutDuration(t *testing.T) {
	s, _ := newTestServer(t)

	rec, view := do(t, s, http.MethodPut, "/session/duration", `{"minutes": 20}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, view.DurationMinutes)

	rec, _ = do(t, s, http.MethodPut, "/session/duration", `{"minutes": 7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPut, "/session/duration", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	do(t, s, http.MethodPost, "/session/start", "")
	rec, _ = do(t, s, http.MethodPut, "/session/duration", `{"minutes": 15}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPutVoice(t *testing.T) {
	s, _ := newTestServer(t)

	rec, view := do(t, s, http.MethodPut, "/session/voice", `{"voice_id": "lily", "quality": "Standard"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.VoicePreference{VoiceID: "lily", Quality: domain.QualityStandard}, view.Voice)

	rec, _ = do(t, s, http.MethodPut, "/session/voice", `{"voice_id": "nobody"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, s, http.MethodPut, "/session/voice", `{"quality": "ultra"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPut, "/session/voice", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	do(t, s, http.MethodPost, "/session/start", "")
	rec, _ = do(t, s, http.MethodPut, "/session/voice", `{"voice_id": "sarah"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetScheduleAndVoices(t *testing.T) {
	s, _ := newTestServer(t)

	rec, _ := do(t, s, http.MethodGet, "/session/schedule", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var schedule []domain.GuidanceEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schedule))
	assert.Len(t, schedule, 4)

	rec, _ = do(t, s, http.MethodGet, "/voices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var voices struct {
		Loaded bool           `json:"loaded"`
		Voices []domain.Voice `json:"voices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &voices))
	assert.True(t, voices.Loaded)
	assert.Len(t, voices.Voices, 2)
}

func TestVoicesWithoutCatalog(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	s := NewServer(engine.New(speech.NewNoOp(log), log), nil, log)

	rec, _ := do(t, s, http.MethodGet, "/voices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loaded": false, "voices": []}`, rec.Body.String())
}

func TestStreamEvents(t *testing.T) {
	s, ctrl := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/session/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := bufio.NewReader(resp.Body)
	next := func() sessionView {
		t.Helper()
		for {
			line, err := events.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var view sessionView
				require.NoError(t, json.Unmarshal([]byte(data), &view))
				return view
			}
		}
	}

	first := next()
	assert.Equal(t, "idle", first.State)

	require.NoError(t, ctrl.Start(context.Background()))
	assert.Equal(t, "running", next().State)
}

// brokenWriter accepts its first ok writes, then fails every one after.
type brokenWriter struct {
	*httptest.ResponseRecorder
	ok     int
	writes int
}

func (b *brokenWriter) Write(p []byte) (int, error) {
	b.writes++
	if b.writes > b.ok {
		return 0, errors.New("connection reset")
	}
	return b.ResponseRecorder.Write(p)
}

func TestWriteEventStopsOnWriteError(t *testing.T) {
	_, ctrl := newTestServer(t)
	snap := ctrl.Snapshot()

	for ok := range 3 {
		w := &brokenWriter{ResponseRecorder: httptest.NewRecorder(), ok: ok}
		assert.False(t, writeEvent(w, snap), "failing write %d", ok+1)
		assert.Equal(t, ok+1, w.writes, "writes after a failure")
	}

	w := &brokenWriter{ResponseRecorder: httptest.NewRecorder(), ok: 3}
	assert.True(t, writeEvent(w, snap))
	assert.True(t, strings.HasSuffix(w.Body.String(), "\n\n"))
}
