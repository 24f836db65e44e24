package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-coach/internal/analysis"
	"github.com/loqalabs/loqa-coach/internal/coach"
	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/kvstore"
	"github.com/loqalabs/loqa-coach/internal/progress"
	"github.com/loqalabs/loqa-coach/internal/stt"
)

const strongAnswer = "I led a team and achieved a 20% improvement, for example on project X."

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubRecognizer struct {
	text string
	err  error
}

func (r stubRecognizer) Transcribe(context.Context, stt.Audio) (stt.TranscriptResult, error) {
	return stt.TranscriptResult{Text: r.text}, r.err
}

func newCoach(rec stt.Recognizer) *coach.Service {
	store := kvstore.NewMemory()
	logger := discardLogger()
	return coach.NewService(coach.Options{
		Dispatcher: analysis.NewDispatcher(config.LLMConfig{}, nil, nil, logger),
		Recognizer: rec,
		Basic:      progress.NewTracker(store, config.ProgressConfig{}, logger),
		Enhanced:   progress.NewEnhancedTracker(store, config.ProgressConfig{}, logger),
	}, logger)
}

var testDefaults = AudioDefaults{SampleRate: 16000, Channels: 1, MaxBytes: 8 << 20}

func TestAnalyzeTranscriptRoute(t *testing.T) {
	_, api := humatest.New(t)
	svc := newCoach(nil)
	RegisterAnalyzeRoutes(api, svc, testDefaults)

	resp := api.Post("/v1/analyze/transcript", map[string]any{
		"transcript":      strongAnswer,
		"durationSeconds": 60,
		"questionType":    "Engineering",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body AnalysisResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 96, body.Session.OverallScore)
	assert.Equal(t, "Engineering", body.Session.QuestionType)
	assert.Equal(t, analysis.ProviderFallback, body.Provider)
	assert.NotEmpty(t, body.FallbackReason)
	assert.NotEmpty(t, body.Feedback.Suggestions)

	assert.Len(t, svc.Basic().All(context.Background()), 1)
}

func TestAnalyzeTranscriptRejectsNegativeDuration(t *testing.T) {
	_, api := humatest.New(t)
	RegisterAnalyzeRoutes(api, newCoach(nil), testDefaults)

	resp := api.Post("/v1/analyze/transcript", map[string]any{
		"transcript":      "hello",
		"durationSeconds": -3,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestAnalyzeAudioRoute(t *testing.T) {
	_, api := humatest.New(t)
	svc := newCoach(stubRecognizer{text: strongAnswer})
	RegisterAnalyzeRoutes(api, svc, testDefaults)

	pcm := make([]byte, 60*16000*2)
	resp := api.Post("/v1/analyze/audio?format=pcm16&questionType=Sales",
		"Content-Type: application/octet-stream", bytes.NewReader(pcm))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body AnalysisResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 60, body.Session.DurationSeconds)
	assert.Equal(t, 14, body.Session.WordsPerMinute)
	assert.Equal(t, "Sales", body.Session.QuestionType)
}

func TestAnalyzeAudioErrors(t *testing.T) {
	t.Run("no recognizer", func(t *testing.T) {
		_, api := humatest.New(t)
		RegisterAnalyzeRoutes(api, newCoach(nil), testDefaults)
		resp := api.Post("/v1/analyze/audio?format=pcm16", "Content-Type: application/octet-stream", bytes.NewReader([]byte{0, 0}))
		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		_, api := humatest.New(t)
		RegisterAnalyzeRoutes(api, newCoach(stubRecognizer{}), testDefaults)
		resp := api.Post("/v1/analyze/audio?format=pcm16", "Content-Type: application/octet-stream", bytes.NewReader(nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("invalid wav", func(t *testing.T) {
		_, api := humatest.New(t)
		RegisterAnalyzeRoutes(api, newCoach(stubRecognizer{}), testDefaults)
		resp := api.Post("/v1/analyze/audio?format=wav", "Content-Type: application/octet-stream", bytes.NewReader([]byte("RIFFjunk")))
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.Code)
	})

	t.Run("transcription failure", func(t *testing.T) {
		_, api := humatest.New(t)
		RegisterAnalyzeRoutes(api, newCoach(stubRecognizer{err: errors.New("upstream down")}), testDefaults)
		resp := api.Post("/v1/analyze/audio?format=pcm16", "Content-Type: application/octet-stream", bytes.NewReader(make([]byte, 3200)))
		assert.Equal(t, http.StatusBadGateway, resp.Code)
	})
}

func TestProgressRoutes(t *testing.T) {
	ctx := context.Background()
	_, api := humatest.New(t)
	svc := newCoach(nil)
	RegisterProgressRoutes(api, svc.Basic(), svc.Enhanced())

	resp := api.Get("/v1/progress/enhanced/stats")
	require.Equal(t, http.StatusOK, resp.Code)
	var empty progress.EnhancedStats
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &empty))
	assert.Zero(t, empty.TotalSessions)
	assert.Len(t, empty.ProgressMilestones.Upcoming, 1)

	for i := 0; i < 3; i++ {
		svc.AnalyzeTranscript(ctx, analysis.Input{Transcript: strongAnswer, DurationSeconds: 60})
	}

	resp = api.Get("/v1/progress/basic/sessions")
	require.Equal(t, http.StatusOK, resp.Code)
	var sessions []progress.SessionRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 3)

	resp = api.Get("/v1/progress/basic/stats")
	require.Equal(t, http.StatusOK, resp.Code)
	var stats progress.Stats
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 96, stats.AverageScore)
	assert.Len(t, stats.StrongestAreas, 2)

	resp = api.Delete("/v1/progress/basic")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, svc.Basic().All(ctx))
	assert.Len(t, svc.Enhanced().All(ctx), 3)

	resp = api.Get("/v1/progress/premium/sessions")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestServerOperationalRoutes(t *testing.T) {
	var ready atomic.Bool
	srv := New(Options{
		HTTP:  config.HTTPConfig{Bind: "127.0.0.1", Port: 0, CORSOrigins: []string{"https://coach.example"}, MaxUploadMB: 1},
		STT:   config.STTConfig{SampleRate: 16000, Channels: 1},
		Coach: newCoach(nil),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("coach_analyses_total 0\n"))
		}),
		Ready: ready.Load,
	}, discardLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	code, _ := get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	ready.Store(true)
	code, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, code)
	code, body := get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "coach_analyses_total")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/v1/analyze/transcript", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://coach.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://coach.example", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Post(ts.URL+"/v1/analyze/transcript", "application/json", bytes.NewReader([]byte(`{"transcript":"","durationSeconds":0}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}
