package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-coach/internal/analysis"
	"github.com/loqalabs/loqa-coach/internal/progress"
	"github.com/loqalabs/loqa-coach/internal/protocol"
	"github.com/loqalabs/loqa-coach/internal/stt"
)

var ErrNoRecognizer = errors.New("coach: speech-to-text is not configured")

const recordTimeout = 5 * time.Second

const instrumentationName = "github.com/loqalabs/loqa-coach/internal/coach"

// Publisher broadcasts session events. *bus.Client implements it.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// Options wires the pipeline. Recognizer and Publisher are optional.
type Options struct {
	Dispatcher *analysis.Dispatcher
	Recognizer stt.Recognizer
	Basic      *progress.Tracker
	Enhanced   *progress.EnhancedTracker
	Publisher  Publisher
	STTTimeout time.Duration
}

// Session is the outcome of one practiced answer.
type Session struct {
	Record         progress.SessionRecord
	Result         analysis.Result
	Provider       string
	FallbackReason error
}

// Service runs audio or transcripts through scoring and records the result in
// both progress logs.
type Service struct {
	dispatcher *analysis.Dispatcher
	recognizer stt.Recognizer
	basic      *progress.Tracker
	enhanced   *progress.EnhancedTracker
	publisher  Publisher
	sttTimeout time.Duration
	logger     *slog.Logger

	tracer    trace.Tracer
	analyses  metric.Int64Counter
	fallbacks metric.Int64Counter
	latency   metric.Float64Histogram
}

func NewService(opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		dispatcher: opts.Dispatcher,
		recognizer: opts.Recognizer,
		basic:      opts.Basic,
		enhanced:   opts.Enhanced,
		publisher:  opts.Publisher,
		sttTimeout: opts.STTTimeout,
		logger:     logger.With(slog.String("component", "coach")),
		tracer:     otel.Tracer(instrumentationName),
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if s.analyses, err = meter.Int64Counter("coach.analyses",
		metric.WithDescription("Answers scored, by provider")); err != nil {
		s.logger.Warn("create analyses counter", slogError(err))
	}
	if s.fallbacks, err = meter.Int64Counter("coach.fallbacks",
		metric.WithDescription("Answers scored by the heuristic engine")); err != nil {
		s.logger.Warn("create fallbacks counter", slogError(err))
	}
	if s.latency, err = meter.Float64Histogram("coach.analysis.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent scoring one answer")); err != nil {
		s.logger.Warn("create latency histogram", slogError(err))
	}
	return s
}

// CanTranscribe reports whether audio submissions are accepted.
func (s *Service) CanTranscribe() bool {
	return s.recognizer != nil
}

func (s *Service) Basic() *progress.Tracker { return s.basic }

func (s *Service) Enhanced() *progress.EnhancedTracker { return s.enhanced }

// AnalyzeTranscript scores in and records it. It never fails; the fallback
// engine covers every model failure.
func (s *Service) AnalyzeTranscript(ctx context.Context, in analysis.Input) Session {
	ctx, span := s.tracer.Start(ctx, "coach.analyze",
		trace.WithAttributes(attribute.String("coach.question_type", in.QuestionType)))
	defer span.End()

	out := s.dispatcher.Analyze(ctx, in)

	attrs := metric.WithAttributes(attribute.String("provider", out.Provider))
	if s.analyses != nil {
		s.analyses.Add(ctx, 1, attrs)
	}
	if out.UsedFallback() && s.fallbacks != nil {
		s.fallbacks.Add(ctx, 1)
	}
	if s.latency != nil {
		s.latency.Record(ctx, out.Elapsed.Seconds(), attrs)
	}

	span.SetAttributes(
		attribute.String("coach.provider", out.Provider),
		attribute.Bool("coach.ai_powered", out.Result.AIPowered),
		attribute.Int("coach.overall_score", out.Result.OverallScore),
	)
	if out.UsedFallback() {
		span.AddEvent("fallback", trace.WithAttributes(attribute.String("reason", out.FallbackReason.Error())))
	}

	record := s.record(ctx, in, out)
	s.logger.Info("session recorded",
		slog.String("id", record.ID),
		slog.String("provider", out.Provider),
		slog.Int("overall_score", record.OverallScore),
		slog.Duration("elapsed", out.Elapsed))

	return Session{
		Record:         record,
		Result:         out.Result,
		Provider:       out.Provider,
		FallbackReason: out.FallbackReason,
	}
}

// AnalyzeAudio transcribes audio and scores the transcript. The answer length
// is taken from the audio itself.
func (s *Service) AnalyzeAudio(ctx context.Context, audio stt.Audio, questionType, sessionID string) (Session, error) {
	if s.recognizer == nil {
		return Session{}, ErrNoRecognizer
	}
	duration, err := stt.DurationSeconds(audio)
	if err != nil {
		return Session{}, err
	}

	sttCtx, span := s.tracer.Start(ctx, "coach.transcribe",
		trace.WithAttributes(attribute.Int("coach.audio_seconds", duration)))
	if s.sttTimeout > 0 {
		var cancel context.CancelFunc
		sttCtx, cancel = context.WithTimeout(sttCtx, s.sttTimeout)
		defer cancel()
	}
	transcript, err := s.recognizer.Transcribe(sttCtx, audio)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcription failed")
		span.End()
		return Session{}, fmt.Errorf("transcribe: %w", err)
	}
	span.End()

	return s.AnalyzeTranscript(ctx, analysis.Input{
		Transcript:      strings.TrimSpace(transcript.Text),
		DurationSeconds: duration,
		QuestionType:    questionType,
		SessionID:       sessionID,
	}), nil
}

// record persists even when the caller has gone away; a returned session
// must exist in both logs.
func (s *Service) record(ctx context.Context, in analysis.Input, out analysis.Outcome) progress.SessionRecord {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	rec := toRecord(in, out.Result)
	stored := rec
	if s.basic != nil {
		stored = s.basic.Append(ctx, rec)
	}
	if s.enhanced != nil {
		stored = s.enhanced.Append(ctx, rec)
	}

	if s.publisher != nil {
		event := protocol.SessionRecorded{Session: stored, Provider: out.Provider, Timestamp: time.Now().UTC()}
		if err := s.publisher.PublishJSON(protocol.SubjectSessionRecorded, event); err != nil {
			s.logger.Warn("publish session event", slogError(err))
		}
	}
	return stored
}

func toRecord(in analysis.Input, r analysis.Result) progress.SessionRecord {
	return progress.SessionRecord{
		DurationSeconds: in.DurationSeconds,
		Transcript:      r.Transcript,
		QuestionType:    r.QuestionType,
		Metrics: progress.Metrics{
			Confidence:            r.Metrics.Confidence,
			Clarity:               r.Metrics.Clarity,
			Professionalism:       r.Metrics.Professionalism,
			Relevance:             r.Metrics.Relevance,
			EmotionalIntelligence: r.Metrics.EmotionalIntelligence,
			Structure:             r.Metrics.Structure,
		},
		OverallScore:    r.OverallScore,
		WordsPerMinute:  r.Metrics.WordsPerMinute,
		FillerWordCount: r.Metrics.FillerWordCount,
		AIPowered:       r.AIPowered,
	}
}

func slogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
