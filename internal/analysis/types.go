package analysis

import "math"

const defaultQuestionType = "General"

// Metrics holds the scores for one analyzed answer. Sub-scores are 0-100.
// EmotionalIntelligence and Structure are only produced by an LLM.
type Metrics struct {
	Confidence            int  `json:"confidence"`
	Clarity               int  `json:"clarity"`
	Professionalism       int  `json:"professionalism"`
	Relevance             int  `json:"relevance"`
	EmotionalIntelligence *int `json:"emotionalIntelligence,omitempty"`
	Structure             *int `json:"structure,omitempty"`
	WordsPerMinute        int  `json:"wordsPerMinute"`
	FillerWordCount       int  `json:"fillerWordCount"`
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
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return roundHalfUp(float64(sum) / float64(len(scores)))
}

type Feedback struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Suggestions  []string `json:"suggestions"`
}

// Result is the outcome of scoring one transcript.
type Result struct {
	Transcript   string   `json:"transcript"`
	QuestionType string   `json:"questionType,omitempty"`
	Metrics      Metrics  `json:"metrics"`
	OverallScore int      `json:"overallScore"`
	Feedback     Feedback `json:"feedback"`
	AIPowered    bool     `json:"aiPowered"`
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
