package coach

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-coach/internal/analysis"
	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/kvstore"
	"github.com/loqalabs/loqa-coach/internal/llm"
	"github.com/loqalabs/loqa-coach/internal/progress"
	"github.com/loqalabs/loqa-coach/internal/protocol"
	"github.com/loqalabs/loqa-coach/internal/stt"
)

const strongAnswer = "I led a team and achieved a 20% improvement, for example on project X."

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []protocol.SessionRecorded
}

func (p *recordingPublisher) PublishJSON(subject string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if subject != protocol.SubjectSessionRecorded {
		return errors.New("unexpected subject " + subject)
	}
	p.events = append(p.events, v.(protocol.SessionRecorded))
	return nil
}

type stubRecognizer struct {
	text string
	err  error
}

func (r stubRecognizer) Transcribe(context.Context, stt.Audio) (stt.TranscriptResult, error) {
	return stt.TranscriptResult{Text: r.text}, r.err
}

func newTestService(t *testing.T, llmCfg config.LLMConfig, primary llm.Generator, rec stt.Recognizer, pub Publisher) *Service {
	t.Helper()
	store := kvstore.NewMemory()
	logger := discardLogger()
	return NewService(Options{
		Dispatcher: analysis.NewDispatcher(llmCfg, primary, nil, logger),
		Recognizer: rec,
		Basic:      progress.NewTracker(store, config.ProgressConfig{}, logger),
		Enhanced:   progress.NewEnhancedTracker(store, config.ProgressConfig{}, logger),
		Publisher:  pub,
	}, logger)
}

func pcmAudio(seconds int) stt.Audio {
	return stt.Audio{Data: make([]byte, seconds*16000*2), Format: stt.FormatPCM16, SampleRate: 16000, Channels: 1}
}

func TestAnalyzeTranscriptRecordsBothLogs(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newTestService(t, config.LLMConfig{}, nil, nil, pub)

	session := svc.AnalyzeTranscript(ctx, analysis.Input{Transcript: strongAnswer, DurationSeconds: 60, QuestionType: "Engineering"})
	assert.Equal(t, analysis.ProviderFallback, session.Provider)
	assert.ErrorIs(t, session.FallbackReason, analysis.ErrNoProvider)
	assert.Equal(t, 96, session.Record.OverallScore)
	assert.Equal(t, 14, session.Record.WordsPerMinute)
	assert.Equal(t, "Engineering", session.Record.QuestionType)
	assert.False(t, session.Record.AIPowered)
	assert.NotEmpty(t, session.Record.ID)

	basic := svc.Basic().All(ctx)
	enhanced := svc.Enhanced().All(ctx)
	require.Len(t, basic, 1)
	require.Len(t, enhanced, 1)
	assert.Equal(t, strongAnswer, basic[0].Transcript)
	assert.Equal(t, session.Record, enhanced[0])

	require.Len(t, pub.events, 1)
	assert.Equal(t, session.Record.ID, pub.events[0].Session.ID)
	assert.Equal(t, analysis.ProviderFallback, pub.events[0].Provider)
}

func TestAnalyzeTranscriptWithModel(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, config.LLMConfig{Enabled: true, TimeoutMS: 1000}, llm.NewMockGenerator(), nil, nil)

	session := svc.AnalyzeTranscript(ctx, analysis.Input{Transcript: strongAnswer, DurationSeconds: 60})
	require.NoError(t, session.FallbackReason)
	assert.Equal(t, "mock", session.Provider)
	assert.True(t, session.Record.AIPowered)
	require.NotNil(t, session.Record.Metrics.Structure)
	assert.Equal(t, 1, svc.Enhanced().Stats(ctx).AIPoweredSessions)
}

func TestAnalyzeAudioRequiresRecognizer(t *testing.T) {
	svc := newTestService(t, config.LLMConfig{}, nil, nil, nil)
	assert.False(t, svc.CanTranscribe())

	_, err := svc.AnalyzeAudio(context.Background(), pcmAudio(1), "", "")
	assert.ErrorIs(t, err, ErrNoRecognizer)
}

func TestAnalyzeAudioUsesAudioLength(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, config.LLMConfig{}, nil, stubRecognizer{text: "  " + strongAnswer + "\n"}, nil)

	session, err := svc.AnalyzeAudio(ctx, pcmAudio(60), "Product", "abc")
	require.NoError(t, err)
	assert.Equal(t, 60, session.Record.DurationSeconds)
	assert.Equal(t, strongAnswer, session.Record.Transcript)
	assert.Equal(t, 96, session.Record.OverallScore)
	assert.Equal(t, "Product", session.Record.QuestionType)
}

func TestAnalyzeAudioFailures(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, config.LLMConfig{}, nil, stubRecognizer{err: errors.New("quota exceeded")}, nil)

	_, err := svc.AnalyzeAudio(ctx, pcmAudio(2), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, svc.Basic().All(ctx))

	_, err = svc.AnalyzeAudio(ctx, stt.Audio{Data: []byte("ID3"), Format: "mp3"}, "", "")
	assert.ErrorIs(t, err, stt.ErrUnsupportedFormat)
}

func TestSilentAudioRecordsEmptySession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, config.LLMConfig{}, nil, stubRecognizer{text: ""}, nil)

	session, err := svc.AnalyzeAudio(ctx, pcmAudio(3), "", "")
	require.NoError(t, err)
	assert.ErrorIs(t, session.FallbackReason, analysis.ErrEmptyTranscript)
	assert.Zero(t, session.Record.OverallScore)
	assert.Equal(t, []string{"Recording session completed"}, session.Result.Feedback.Strengths)
	assert.Len(t, svc.Basic().All(ctx), 1)
}

func TestCancelledRequestStillRecords(t *testing.T) {
	logger := discardLogger()
	store, err := kvstore.OpenSQLite(context.Background(), config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "coach.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(Options{
		Dispatcher: analysis.NewDispatcher(config.LLMConfig{}, nil, nil, logger),
		Basic:      progress.NewTracker(store, config.ProgressConfig{}, logger),
		Enhanced:   progress.NewEnhancedTracker(store, config.ProgressConfig{}, logger),
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := svc.AnalyzeTranscript(ctx, analysis.Input{Transcript: strongAnswer, DurationSeconds: 60})
	assert.Equal(t, analysis.ProviderFallback, session.Provider)

	basic := svc.Basic().All(context.Background())
	require.Len(t, basic, 1)
	assert.Equal(t, session.Record.ID, basic[0].ID)
	assert.Len(t, svc.Enhanced().All(context.Background()), 1)
}
