package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/loqalabs/loqa-coach/internal/analysis"
	"github.com/loqalabs/loqa-coach/internal/coach"
	"github.com/loqalabs/loqa-coach/internal/progress"
	"github.com/loqalabs/loqa-coach/internal/stt"
)

// AudioDefaults fill in PCM parameters a client leaves out.
type AudioDefaults struct {
	SampleRate int
	Channels   int
	MaxBytes   int64
}

type TranscriptRequest struct {
	Transcript      string `json:"transcript" doc:"Answer text; an empty transcript yields the no-speech result"`
	DurationSeconds int    `json:"durationSeconds,omitempty" minimum:"0" doc:"Length of the spoken answer in seconds"`
	QuestionType    string `json:"questionType,omitempty" maxLength:"100" doc:"Role tag, defaults to General"`
	SessionID       string `json:"sessionId,omitempty" doc:"Client correlation ID"`
}

type AnalyzeTranscriptInput struct {
	Body TranscriptRequest
}

type AnalyzeAudioInput struct {
	Format       string `query:"format" enum:"wav,pcm16" default:"wav" doc:"Audio encoding"`
	SampleRate   int    `query:"sampleRate" minimum:"0" doc:"PCM sample rate in Hz"`
	Channels     int    `query:"channels" minimum:"0" doc:"PCM channel count"`
	QuestionType string `query:"questionType" doc:"Role tag, defaults to General"`
	SessionID    string `query:"sessionId" doc:"Client correlation ID"`
	RawBody      []byte `contentType:"application/octet-stream"`
}

// AnalysisResponse is the scored and recorded answer.
type AnalysisResponse struct {
	Session        progress.SessionRecord `json:"session"`
	Feedback       analysis.Feedback      `json:"feedback"`
	Provider       string                 `json:"provider" doc:"LLM provider name, or fallback"`
	FallbackReason string                 `json:"fallbackReason,omitempty" doc:"Why the heuristic engine was used"`
}

type AnalyzeOutput struct {
	Body AnalysisResponse
}

func RegisterAnalyzeRoutes(api huma.API, svc *coach.Service, defaults AudioDefaults) {
	huma.Register(api, huma.Operation{
		OperationID: "analyze-transcript",
		Method:      http.MethodPost,
		Path:        "/v1/analyze/transcript",
		Summary:     "Score a transcribed answer and record it",
		Tags:        []string{"Analysis"},
	}, func(ctx context.Context, input *AnalyzeTranscriptInput) (*AnalyzeOutput, error) {
		session := svc.AnalyzeTranscript(ctx, analysis.Input{
			Transcript:      input.Body.Transcript,
			DurationSeconds: input.Body.DurationSeconds,
			QuestionType:    input.Body.QuestionType,
			SessionID:       input.Body.SessionID,
		})
		return &AnalyzeOutput{Body: responseFor(session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:  "analyze-audio",
		Method:       http.MethodPost,
		Path:         "/v1/analyze/audio",
		Summary:      "Transcribe a recorded answer, score it and record it",
		Tags:         []string{"Analysis"},
		MaxBodyBytes: defaults.MaxBytes,
	}, func(ctx context.Context, input *AnalyzeAudioInput) (*AnalyzeOutput, error) {
		if !svc.CanTranscribe() {
			return nil, huma.Error503ServiceUnavailable("speech-to-text is not configured")
		}
		if len(input.RawBody) == 0 {
			return nil, huma.Error400BadRequest("audio body is empty")
		}
		audio := stt.Audio{
			Data:       input.RawBody,
			Format:     input.Format,
			SampleRate: coalesce(input.SampleRate, defaults.SampleRate),
			Channels:   coalesce(input.Channels, defaults.Channels),
		}
		session, err := svc.AnalyzeAudio(ctx, audio, input.QuestionType, input.SessionID)
		switch {
		case err == nil:
			return &AnalyzeOutput{Body: responseFor(session)}, nil
		case errors.Is(err, coach.ErrNoRecognizer):
			return nil, huma.Error503ServiceUnavailable("speech-to-text is not configured")
		case errors.Is(err, stt.ErrUnsupportedFormat):
			return nil, huma.NewError(http.StatusUnsupportedMediaType, err.Error())
		default:
			return nil, huma.Error502BadGateway("transcription failed", err)
		}
	})
}

func responseFor(session coach.Session) AnalysisResponse {
	resp := AnalysisResponse{
		Session:  session.Record,
		Feedback: session.Result.Feedback,
		Provider: session.Provider,
	}
	if session.FallbackReason != nil {
		resp.FallbackReason = session.FallbackReason.Error()
	}
	return resp
}

func coalesce(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
