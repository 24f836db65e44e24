package analysis

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an experienced interview coach. You evaluate spoken interview answers and reply with a single JSON object and nothing else.`

// BuildPrompt renders the scoring request for one answer. The role tag, when
// present, steers the coach toward role-specific expectations.
func BuildPrompt(transcript string, durationSeconds int, questionType string) string {
	questionType = strings.TrimSpace(questionType)
	role := "a general interview"
	if questionType != "" && !strings.EqualFold(questionType, defaultQuestionType) {
		role = fmt.Sprintf("a %s interview", questionType)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this answer given during %s.\n", role)
	if durationSeconds > 0 {
		fmt.Fprintf(&b, "The answer lasted %d seconds.\n", durationSeconds)
	}
	b.WriteString("\nTranscript:\n\"\"\"\n")
	b.WriteString(strings.TrimSpace(transcript))
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString(`Score each dimension from 0 to 100 and return JSON with exactly these fields:
{
  "confidence": number,
  "clarity": number,
  "professionalism": number,
  "relevance": number,
  "emotionalIntelligence": number,
  "structure": number,
  "strengths": [string],
  "improvements": [string],
  "suggestions": [string]
}
Give two or three short, specific items in each list. Judge structure against the STAR method (situation, task, action, result).`)
	return b.String()
}

// SystemPrompt is sent as the system instruction with every scoring request.
func SystemPrompt() string { return systemPrompt }
