package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/kvstore"
)

const (
	EnhancedKey         = "enhanced_interview_progress"
	EnhancedCapacity    = 100
	enhancedRecentCount = 10
	skillHistoryLength  = 10
	skillTrendWindow    = 5
	improverWindow      = 5
	firstSessionPrompt  = "Complete your first practice session"
)

// Badge names.
const (
	BadgeCommittedPracticer = "Committed Practicer"
	BadgeInterviewMaster    = "Interview Master"
	BadgeExcellence         = "Excellence Achieved"
	BadgeAILearner          = "AI-Powered Learner"
	BadgeConsistentImprover = "Consistent Improver"
)

type skill struct {
	key   string
	label string
	value func(Metrics) int
}

func optionalValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

var skills = []skill{
	{"confidence", "Confidence", func(m Metrics) int { return m.Confidence }},
	{"clarity", "Clarity", func(m Metrics) int { return m.Clarity }},
	{"professionalism", "Professionalism", func(m Metrics) int { return m.Professionalism }},
	{"relevance", "Relevance", func(m Metrics) int { return m.Relevance }},
	{"emotionalIntelligence", "Emotional Intelligence", func(m Metrics) int { return optionalValue(m.EmotionalIntelligence) }},
	{"structure", "Structure", func(m Metrics) int { return optionalValue(m.Structure) }},
}

var (
	sessionMilestones = []int{1, 5, 10}
	scoreMilestones   = []int{70, 80, 90}
)

// EnhancedTracker keeps the last 100 sessions and derives per-skill trends,
// badges and milestones.
type EnhancedTracker struct {
	j *journal
}

type SkillProgress struct {
	Current        int   `json:"current"`
	Trend          int   `json:"trend"`
	SessionHistory []int `json:"sessionHistory"`
}

type Milestones struct {
	Reached  []string `json:"reached"`
	Upcoming []string `json:"upcoming"`
}

type EnhancedStats struct {
	TotalSessions      int                      `json:"totalSessions"`
	AverageScore       int                      `json:"averageScore"`
	AIPoweredSessions  int                      `json:"aiPoweredSessions"`
	ImprovementTrend   int                      `json:"improvementTrend"`
	SkillBreakdown     map[string]SkillProgress `json:"skillBreakdown"`
	RecommendedFocus   []string                 `json:"recommendedFocus"`
	AchievementBadges  []string                 `json:"achievementBadges"`
	SessionsByType     map[string]int           `json:"sessionsByType"`
	ProgressMilestones Milestones               `json:"progressMilestones"`
	RecentSessions     []SessionRecord          `json:"recentSessions"`
}

func NewEnhancedTracker(store kvstore.Store, cfg config.ProgressConfig, log *slog.Logger) *EnhancedTracker {
	key := cfg.EnhancedKey
	if key == "" {
		key = EnhancedKey
	}
	capacity := cfg.EnhancedCapacity
	if capacity <= 0 {
		capacity = EnhancedCapacity
	}
	return &EnhancedTracker{j: newJournal(store, key, capacity, log)}
}

func (t *EnhancedTracker) Append(ctx context.Context, rec SessionRecord) SessionRecord {
	return t.j.append(ctx, rec)
}

func (t *EnhancedTracker) All(ctx context.Context) []SessionRecord {
	return t.j.all(ctx)
}

func (t *EnhancedTracker) Clear(ctx context.Context) {
	t.j.clear(ctx)
}

func (t *EnhancedTracker) Stats(ctx context.Context) EnhancedStats {
	records := t.j.all(ctx)
	scores := overallScores(records)

	stats := EnhancedStats{
		TotalSessions:      len(records),
		AverageScore:       roundHalfUp(mean(scores)),
		ImprovementTrend:   quarterTrend(scores),
		SkillBreakdown:     map[string]SkillProgress{},
		RecommendedFocus:   []string{},
		AchievementBadges:  badges(records, scores),
		SessionsByType:     map[string]int{},
		ProgressMilestones: milestones(len(records), roundHalfUp(mean(scores))),
		RecentSessions:     recent(records, enhancedRecentCount),
	}
	for _, r := range records {
		if r.AIPowered {
			stats.AIPoweredSessions++
		}
		qt := r.QuestionType
		if qt == "" {
			qt = DefaultQuestionType
		}
		stats.SessionsByType[qt]++
	}
	if len(records) == 0 {
		return stats
	}

	type current struct {
		label string
		value int
	}
	currents := make([]current, 0, len(skills))
	for _, s := range skills {
		values := make([]int, len(records))
		for i, r := range records {
			values[i] = s.value(r.Metrics)
		}
		n := len(values)
		split := max(n-skillTrendWindow, 0)
		prev := values[max(n-2*skillTrendWindow, 0):split]
		history := append([]int{}, values[max(n-skillHistoryLength, 0):]...)

		stats.SkillBreakdown[s.key] = SkillProgress{
			Current:        values[n-1],
			Trend:          roundHalfUp(mean(values[split:]) - mean(prev)),
			SessionHistory: history,
		}
		currents = append(currents, current{s.label, values[n-1]})
	}
	sort.SliceStable(currents, func(a, b int) bool { return currents[a].value < currents[b].value })
	stats.RecommendedFocus = []string{currents[0].label, currents[1].label}
	return stats
}

// quarterTrend compares the latest quarter of scores with the quarter before
// it. Fewer than four scores have no trend.
func quarterTrend(scores []int) int {
	n := len(scores)
	if n < 4 {
		return 0
	}
	q := n / 4
	return roundHalfUp(mean(scores[n-q:]) - mean(scores[n-2*q:n-q]))
}

func badges(records []SessionRecord, scores []int) []string {
	out := []string{}
	n := len(records)
	if n >= 5 {
		out = append(out, BadgeCommittedPracticer)
	}
	if n >= 15 {
		out = append(out, BadgeInterviewMaster)
	}
	for _, s := range scores {
		if s >= 90 {
			out = append(out, BadgeExcellence)
			break
		}
	}
	ai := 0
	for _, r := range records {
		if r.AIPowered {
			ai++
		}
	}
	if ai >= 10 {
		out = append(out, BadgeAILearner)
	}
	if consistentImprover(scores) {
		out = append(out, BadgeConsistentImprover)
	}
	return out
}

// consistentImprover reports whether each of the last five scores is at
// least the one before it.
func consistentImprover(scores []int) bool {
	if len(scores) < improverWindow {
		return false
	}
	last := scores[len(scores)-improverWindow:]
	for i := 1; i < len(last); i++ {
		if last[i] < last[i-1] {
			return false
		}
	}
	return true
}

func milestones(total, average int) Milestones {
	m := Milestones{Reached: []string{}, Upcoming: []string{}}
	if total == 0 {
		m.Upcoming = append(m.Upcoming, firstSessionPrompt)
		return m
	}

	for _, threshold := range sessionMilestones {
		if total >= threshold {
			m.Reached = append(m.Reached, sessionMilestoneLabel(threshold))
		}
	}
	for _, target := range scoreMilestones {
		if average >= target {
			m.Reached = append(m.Reached, fmt.Sprintf("Average score of %d or higher", target))
		}
	}

	for _, threshold := range sessionMilestones {
		if total < threshold {
			remaining := threshold - total
			noun := "sessions"
			if remaining == 1 {
				noun = "session"
			}
			m.Upcoming = append(m.Upcoming, fmt.Sprintf("%d more %s to reach %d sessions", remaining, noun, threshold))
			break
		}
	}
	for _, target := range scoreMilestones {
		if average < target {
			m.Upcoming = append(m.Upcoming, fmt.Sprintf("Raise your average score to %d", target))
			break
		}
	}
	return m
}

func sessionMilestoneLabel(threshold int) string {
	if threshold == 1 {
		return "First session completed"
	}
	return fmt.Sprintf("%d sessions completed", threshold)
}
