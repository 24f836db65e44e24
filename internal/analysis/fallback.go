package analysis

import (
	"fmt"
	"strings"
)

const (
	detailedWordCount = 50
	fillerRatioLow    = 0.05
	fillerRatioClear  = 0.08
	paceSlowWPM       = 110
	paceFastWPM       = 170
)

// Fallback scores a transcript with lexical heuristics only. It never fails
// and returns the same result for the same input.
func Fallback(transcript string, durationSeconds int, questionType string) Result {
	questionType = strings.TrimSpace(questionType)
	if strings.TrimSpace(transcript) == "" {
		return emptyResult(transcript, questionType)
	}
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	stats := analyzeText(transcript)
	ratio := stats.FillerRatio()

	metrics := Metrics{
		Confidence:      confidenceScore(stats, ratio),
		Clarity:         clarityScore(stats, ratio),
		Professionalism: professionalismScore(stats),
		Relevance:       relevanceScore(stats),
		WordsPerMinute:  wordsPerMinute(stats.WordCount, durationSeconds),
		FillerWordCount: stats.FillerCount,
	}

	return Result{
		Transcript:   transcript,
		QuestionType: questionType,
		Metrics:      metrics,
		OverallScore: metrics.Overall(),
		Feedback:     fallbackFeedback(stats, ratio, metrics.WordsPerMinute, questionType),
		AIPowered:    false,
	}
}

func confidenceScore(s textStats, fillerRatio float64) int {
	score := 50
	if s.HasExamples {
		score += 15
	}
	if s.HasActionWords {
		score += 10
	}
	if s.HasNumbers {
		score += 10
	}
	if fillerRatio < fillerRatioLow {
		score += 15
	}
	if s.AvgWordsPerSentence > 8 && s.AvgWordsPerSentence < 20 {
		score += 10
	}
	return min(score, 100)
}

func clarityScore(s textStats, fillerRatio float64) int {
	score := 50
	if s.SentenceCount > 2 {
		score += 15
	}
	if s.AvgWordsPerSentence > 6 && s.AvgWordsPerSentence < 25 {
		score += 20
	}
	if s.ComplexSentenceCount > 0 {
		score += 10
	}
	if fillerRatio < fillerRatioClear {
		score += 15
	}
	return min(score, 100)
}

func professionalismScore(s textStats) int {
	score := 60
	if s.HasBusinessVocab {
		score += 15
	}
	if s.HasActionWords {
		score += 15
	}
	if !s.HasCasualWords {
		score += 10
	}
	if s.HasNumbers {
		score += 5
	}
	return min(score, 100)
}

func relevanceScore(s textStats) int {
	score := 50
	if s.HasExamples {
		score += 20
	}
	if s.HasNumbers {
		score += 15
	}
	if s.HasActionWords {
		score += 10
	}
	if s.WordCount > detailedWordCount {
		score += 10
	}
	if !s.HasInterrogatives {
		score += 5
	}
	return min(score, 100)
}

func fallbackFeedback(s textStats, fillerRatio float64, wpm int, questionType string) Feedback {
	var fb Feedback

	if s.WordCount >= detailedWordCount {
		fb.Strengths = append(fb.Strengths, "Gave a thorough answer with substantial detail")
	} else {
		fb.Improvements = append(fb.Improvements, "Expand your answer with more detail and context")
	}
	if fillerRatio < fillerRatioLow {
		fb.Strengths = append(fb.Strengths, "Spoke fluently with few filler words")
	} else {
		fb.Improvements = append(fb.Improvements, `Reduce filler words such as "um", "uh" and "like"`)
	}
	if s.HasExamples {
		fb.Strengths = append(fb.Strengths, "Backed up the answer with concrete examples")
	} else {
		fb.Improvements = append(fb.Improvements, "Include a specific example from your own experience")
	}
	if s.HasNumbers {
		fb.Strengths = append(fb.Strengths, "Quantified results with specific numbers")
	} else {
		fb.Improvements = append(fb.Improvements, "Quantify your impact with numbers or metrics")
	}
	if s.HasActionWords {
		fb.Strengths = append(fb.Strengths, "Used strong action verbs to describe your contributions")
	}
	if len(fb.Strengths) == 0 {
		fb.Strengths = append(fb.Strengths, "Completed a full practice answer")
	}

	fb.Suggestions = append(fb.Suggestions, "Structure answers with the STAR method: Situation, Task, Action, Result")
	switch {
	case wpm < paceSlowWPM:
		fb.Suggestions = append(fb.Suggestions, "Aim for a steadier pace of roughly 120-160 words per minute")
	case wpm > paceFastWPM:
		fb.Suggestions = append(fb.Suggestions, "Slow down slightly and pause between key points")
	}
	if !s.HasExamples {
		fb.Suggestions = append(fb.Suggestions, "Prepare two or three stories from past roles you can adapt to common questions")
	}
	fb.Suggestions = append(fb.Suggestions, aiReminder(questionType))
	return fb
}

func aiReminder(questionType string) string {
	if questionType != "" {
		return fmt.Sprintf("Configure an AI provider to get detailed feedback tailored to %s interviews", questionType)
	}
	return "Configure an AI provider to get detailed, personalized feedback"
}

func emptyResult(transcript, questionType string) Result {
	return Result{
		Transcript:   transcript,
		QuestionType: questionType,
		Feedback: Feedback{
			Strengths: []string{"Recording session completed"},
			Improvements: []string{
				"No speech was detected in the recording",
				"Make sure your answer is audible before submitting",
			},
			Suggestions: []string{
				"Check that your microphone is connected and permitted",
				"Record in a quiet environment and speak close to the microphone",
				"Try a short test recording before answering",
			},
		},
		AIPowered: false,
	}
}
