package protocol

import (
	"time"

	"github.com/loqalabs/loqa-coach/internal/analysis"
	"github.com/loqalabs/loqa-coach/internal/progress"
)

// AnalyzeRequest asks the coach to score one answer. Either Transcript or
// Audio must be set; audio is transcribed first.
type AnalyzeRequest struct {
	SessionID       string `json:"session_id,omitempty"`
	Transcript      string `json:"transcript,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	QuestionType    string `json:"question_type,omitempty"`
	Audio           []byte `json:"audio,omitempty"`
	AudioFormat     string `json:"audio_format,omitempty"`
	SampleRate      int    `json:"sample_rate,omitempty"`
	Channels        int    `json:"channels,omitempty"`
}

// AnalyzeReply answers an AnalyzeRequest. Error is set when the request could
// not be processed at all.
type AnalyzeReply struct {
	Session        progress.SessionRecord `json:"session"`
	Result         analysis.Result        `json:"result"`
	Provider       string                 `json:"provider"`
	FallbackReason string                 `json:"fallback_reason,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

// SessionRecorded is broadcast after a session is appended to the progress log.
type SessionRecorded struct {
	Session   progress.SessionRecord `json:"session"`
	Provider  string                 `json:"provider"`
	Timestamp time.Time              `json:"timestamp"`
}

const (
	SubjectAnalyzeRequest  = "coach.analyze.request"
	SubjectSessionRecorded = "coach.session.recorded"
)
