package analysis

import (
	"math"
	"regexp"
	"strings"
)

var (
	fillerWords   = []string{"um", "uh", "like", "you know", "so", "actually", "basically"}
	exampleWords  = []string{"example", "instance", "case", "situation", "experience"}
	actionWords   = []string{"achieved", "accomplished", "led", "managed", "created", "improved", "developed"}
	businessWords = []string{"experience", "skills", "project", "team", "challenge", "solution"}

	digitPattern         = regexp.MustCompile(`\d`)
	casualPattern        = regexp.MustCompile(`(?i)\b(awesome|cool|stuff|things)\b`)
	interrogativePattern = regexp.MustCompile(`(?i)\b(what|when|where|why|how|who)\b`)
	sentenceSplit        = regexp.MustCompile(`[.!?]`)
)

// textStats are the lexical signals extracted from a transcript.
type textStats struct {
	WordCount            int
	FillerCount          int
	SentenceCount        int
	ComplexSentenceCount int
	AvgWordsPerSentence  float64
	HasNumbers           bool
	HasExamples          bool
	HasActionWords       bool
	HasBusinessVocab     bool
	HasCasualWords       bool
	HasInterrogatives    bool
}

func (s textStats) FillerRatio() float64 {
	if s.WordCount == 0 {
		return 0
	}
	return float64(s.FillerCount) / float64(s.WordCount)
}

func analyzeText(transcript string) textStats {
	words := strings.Fields(transcript)
	lower := strings.ToLower(transcript)

	stats := textStats{
		WordCount:         len(words),
		HasNumbers:        digitPattern.MatchString(transcript),
		HasExamples:       containsAny(lower, exampleWords),
		HasActionWords:    containsAny(lower, actionWords),
		HasBusinessVocab:  containsAny(lower, businessWords),
		HasCasualWords:    casualPattern.MatchString(transcript),
		HasInterrogatives: interrogativePattern.MatchString(transcript),
	}

	for _, w := range words {
		if containsAny(strings.ToLower(w), fillerWords) {
			stats.FillerCount++
		}
	}

	for _, sentence := range sentenceSplit.Split(transcript, -1) {
		if strings.TrimSpace(sentence) == "" {
			continue
		}
		stats.SentenceCount++
		if strings.Count(sentence, ",") > 2 {
			stats.ComplexSentenceCount++
		}
	}
	stats.AvgWordsPerSentence = float64(stats.WordCount) / float64(max(stats.SentenceCount, 1))
	return stats
}

// wordsPerMinute treats anything shorter than a minute as a full minute.
func wordsPerMinute(wordCount, durationSeconds int) int {
	minutes := math.Max(float64(durationSeconds)/60, 1)
	return roundHalfUp(float64(wordCount) / minutes)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
