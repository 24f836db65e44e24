package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrMalformedAnalysis = errors.New("analysis: malformed model reply")

type modelReply struct {
	Confidence            *float64 `json:"confidence"`
	Clarity               *float64 `json:"clarity"`
	Professionalism       *float64 `json:"professionalism"`
	Relevance             *float64 `json:"relevance"`
	EmotionalIntelligence *float64 `json:"emotionalIntelligence"`
	Structure             *float64 `json:"structure"`
	Strengths             []string `json:"strengths"`
	Improvements          []string `json:"improvements"`
	Suggestions           []string `json:"suggestions"`
}

// ParseReply turns a model completion into a Result. The reply may wrap the
// JSON object in code fences or prose. Speaking pace and filler counts are
// always measured locally rather than trusted from the model.
func ParseReply(reply, transcript string, durationSeconds int, questionType string) (Result, error) {
	raw, ok := extractObject(reply)
	if !ok {
		return Result{}, fmt.Errorf("%w: no JSON object found", ErrMalformedAnalysis)
	}
	var parsed modelReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	if parsed.Confidence == nil || parsed.Clarity == nil || parsed.Professionalism == nil || parsed.Relevance == nil {
		return Result{}, fmt.Errorf("%w: missing core scores", ErrMalformedAnalysis)
	}

	if durationSeconds < 0 {
		durationSeconds = 0
	}
	stats := analyzeText(transcript)
	metrics := Metrics{
		Confidence:            scoreOf(*parsed.Confidence),
		Clarity:               scoreOf(*parsed.Clarity),
		Professionalism:       scoreOf(*parsed.Professionalism),
		Relevance:             scoreOf(*parsed.Relevance),
		EmotionalIntelligence: optionalScore(parsed.EmotionalIntelligence),
		Structure:             optionalScore(parsed.Structure),
		WordsPerMinute:        wordsPerMinute(stats.WordCount, durationSeconds),
		FillerWordCount:       stats.FillerCount,
	}

	return Result{
		Transcript:   transcript,
		QuestionType: strings.TrimSpace(questionType),
		Metrics:      metrics,
		OverallScore: metrics.Overall(),
		Feedback: Feedback{
			Strengths:    cleanList(parsed.Strengths),
			Improvements: cleanList(parsed.Improvements),
			Suggestions:  cleanList(parsed.Suggestions),
		},
		AIPowered: true,
	}, nil
}

// extractObject returns the outermost {...} span of s.
func extractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func scoreOf(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return roundHalfUp(v)
}

func optionalScore(v *float64) *int {
	if v == nil {
		return nil
	}
	s := scoreOf(*v)
	return &s
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
