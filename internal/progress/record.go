package progress

import (
	"math"
	"strings"
	"time"
)

const DefaultQuestionType = "General"

// Metrics are the sub-scores kept with every session. The optional scores are
// only set for sessions scored by a language model.
type Metrics struct {
	Confidence            int  `json:"confidence"`
	Clarity               int  `json:"clarity"`
	Professionalism       int  `json:"professionalism"`
	Relevance             int  `json:"relevance"`
	EmotionalIntelligence *int `json:"emotionalIntelligence,omitempty"`
	Structure             *int `json:"structure,omitempty"`
}

// SessionRecord is one practiced answer. Records are immutable once appended.
type SessionRecord struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds int       `json:"durationSeconds"`
	Transcript      string    `json:"transcript"`
	QuestionType    string    `json:"questionType"`
	OverallScore    int       `json:"overallScore"`
	Metrics         Metrics   `json:"metrics"`
	WordsPerMinute  int       `json:"wordsPerMinute"`
	FillerWordCount int       `json:"fillerWordCount"`
	AIPowered       bool      `json:"aiPowered"`
}

// Overall is the rounded mean of the sub-scores that are present.
func (m Metrics) Overall() int {
	scores := []int{m.Confidence, m.Clarity, m.Professionalism, m.Relevance}
	if m.EmotionalIntelligence != nil {
		scores = append(scores, *m.EmotionalIntelligence)
	}
	if m.Structure != nil {
		scores = append(scores, *m.Structure)
	}
	return roundHalfUp(mean(scores))
}

func normalize(r SessionRecord) SessionRecord {
	r.QuestionType = strings.TrimSpace(r.QuestionType)
	if r.QuestionType == "" {
		r.QuestionType = DefaultQuestionType
	}
	r.DurationSeconds = max(r.DurationSeconds, 0)
	r.WordsPerMinute = max(r.WordsPerMinute, 0)
	r.FillerWordCount = max(r.FillerWordCount, 0)

	m := r.Metrics
	m.Confidence = clamp(m.Confidence)
	m.Clarity = clamp(m.Clarity)
	m.Professionalism = clamp(m.Professionalism)
	m.Relevance = clamp(m.Relevance)
	m.EmotionalIntelligence = clampOptional(m.EmotionalIntelligence)
	m.Structure = clampOptional(m.Structure)
	r.Metrics = m
	r.OverallScore = m.Overall()
	return r
}

func clamp(v int) int {
	return min(max(v, 0), 100)
}

func clampOptional(v *int) *int {
	if v == nil {
		return nil
	}
	c := clamp(*v)
	return &c
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// mean of an empty slice is 0.
func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func overallScores(records []SessionRecord) []int {
	scores := make([]int, len(records))
	for i, r := range records {
		scores[i] = r.OverallScore
	}
	return scores
}

// recent returns up to n records, most recent first.
func recent(records []SessionRecord, n int) []SessionRecord {
	n = min(n, len(records))
	out := make([]SessionRecord, 0, n)
	for i := len(records) - 1; i >= len(records)-n; i-- {
		out = append(out, records[i])
	}
	return out
}
