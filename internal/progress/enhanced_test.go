package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/kvstore"
)

func newEnhanced(t *testing.T) *EnhancedTracker {
	t.Helper()
	tr := NewEnhancedTracker(kvstore.NewMemory(), config.ProgressConfig{}, discardLogger())
	tr.j.clock = stepClock()
	tr.j.newID = sequentialIDs()
	return tr
}

func intPtr(v int) *int { return &v }

func TestEnhancedStatsEmptyLog(t *testing.T) {
	ctx := context.Background()
	tr := newEnhanced(t)
	tr.Append(ctx, uniform(80))
	tr.Clear(ctx)

	stats := tr.Stats(ctx)
	assert.Zero(t, stats.TotalSessions)
	assert.Zero(t, stats.AverageScore)
	assert.Zero(t, stats.AIPoweredSessions)
	assert.Zero(t, stats.ImprovementTrend)
	assert.Empty(t, stats.SkillBreakdown)
	assert.Empty(t, stats.RecommendedFocus)
	assert.Empty(t, stats.AchievementBadges)
	assert.Empty(t, stats.SessionsByType)
	assert.Empty(t, stats.RecentSessions)
	assert.Empty(t, stats.ProgressMilestones.Reached)
	assert.Equal(t, []string{firstSessionPrompt}, stats.ProgressMilestones.Upcoming)
}

func TestQuarterTrend(t *testing.T) {
	assert.Zero(t, quarterTrend(nil))
	assert.Zero(t, quarterTrend([]int{10, 90, 10}))
	assert.Equal(t, 20, quarterTrend([]int{10, 20, 30, 40, 50, 60, 70, 80}))
	assert.Equal(t, 10, quarterTrend([]int{0, 0, 0, 50, 60}))
	assert.Equal(t, -30, quarterTrend([]int{90, 90, 90, 60}))
}

func TestSkillBreakdown(t *testing.T) {
	ctx := context.Background()
	tr := newEnhanced(t)
	for i := 1; i <= 12; i++ {
		tr.Append(ctx, SessionRecord{
			AIPowered: i > 10,
			Metrics: Metrics{
				Confidence:            i * 5,
				Clarity:               80,
				Professionalism:       90,
				Relevance:             70,
				EmotionalIntelligence: intPtr(75),
			},
		})
	}

	stats := tr.Stats(ctx)
	require.Len(t, stats.SkillBreakdown, 6)

	confidence := stats.SkillBreakdown["confidence"]
	assert.Equal(t, 60, confidence.Current)
	assert.Equal(t, 25, confidence.Trend)
	assert.Equal(t, []int{15, 20, 25, 30, 35, 40, 45, 50, 55, 60}, confidence.SessionHistory)

	clarity := stats.SkillBreakdown["clarity"]
	assert.Equal(t, 80, clarity.Current)
	assert.Zero(t, clarity.Trend)

	structure := stats.SkillBreakdown["structure"]
	assert.Zero(t, structure.Current)
	assert.Len(t, structure.SessionHistory, 10)

	assert.Equal(t, []string{"Structure", "Confidence"}, stats.RecommendedFocus)
	assert.Equal(t, 2, stats.AIPoweredSessions)
}

func TestSkillTrendWithShortHistory(t *testing.T) {
	ctx := context.Background()
	tr := newEnhanced(t)
	tr.Append(ctx, uniform(40))
	tr.Append(ctx, uniform(60))

	skill := tr.Stats(ctx).SkillBreakdown["relevance"]
	assert.Equal(t, 60, skill.Current)
	assert.Equal(t, 50, skill.Trend)
	assert.Equal(t, []int{40, 60}, skill.SessionHistory)
}

func TestRecommendedFocusTiesFollowDeclaredOrder(t *testing.T) {
	ctx := context.Background()
	tr := newEnhanced(t)
	tr.Append(ctx, SessionRecord{Metrics: Metrics{
		Confidence: 50, Clarity: 50, Professionalism: 50, Relevance: 50,
		EmotionalIntelligence: intPtr(50), Structure: intPtr(50),
	}})
	assert.Equal(t, []string{"Confidence", "Clarity"}, tr.Stats(ctx).RecommendedFocus)
}

func TestAchievementBadges(t *testing.T) {
	ctx := context.Background()

	tr := newEnhanced(t)
	for _, s := range []int{60, 60, 65, 70, 88} {
		tr.Append(ctx, uniform(s))
	}
	assert.Equal(t, []string{BadgeCommittedPracticer, BadgeConsistentImprover}, tr.Stats(ctx).AchievementBadges)

	tr.Append(ctx, uniform(50))
	assert.Equal(t, []string{BadgeCommittedPracticer}, tr.Stats(ctx).AchievementBadges)

	tr = newEnhanced(t)
	for i := 0; i < 15; i++ {
		rec := uniform(70 - i)
		rec.AIPowered = true
		tr.Append(ctx, rec)
	}
	tr.Append(ctx, uniform(95))
	assert.Equal(t, []string{BadgeCommittedPracticer, BadgeInterviewMaster, BadgeExcellence, BadgeAILearner}, tr.Stats(ctx).AchievementBadges)
}

func TestConsistentImproverNeedsFiveSessions(t *testing.T) {
	assert.False(t, consistentImprover([]int{10, 20, 30, 40}))
	assert.True(t, consistentImprover([]int{90, 10, 20, 20, 30, 40}))
	assert.False(t, consistentImprover([]int{10, 20, 30, 25, 40}))
}

func TestSessionsByTypeAndMilestones(t *testing.T) {
	ctx := context.Background()
	tr := newEnhanced(t)
	for _, qt := range []string{"Engineering", "", "Engineering"} {
		rec := uniform(75)
		rec.QuestionType = qt
		tr.Append(ctx, rec)
	}

	stats := tr.Stats(ctx)
	assert.Equal(t, map[string]int{"Engineering": 2, "General": 1}, stats.SessionsByType)
	assert.Equal(t, []string{"First session completed", "Average score of 70 or higher"}, stats.ProgressMilestones.Reached)
	assert.Equal(t, []string{"2 more sessions to reach 5 sessions", "Raise your average score to 80"}, stats.ProgressMilestones.Upcoming)
}

func TestMilestonesWhenEverythingReached(t *testing.T) {
	m := milestones(12, 93)
	assert.Equal(t, []string{
		"First session completed", "5 sessions completed", "10 sessions completed",
		"Average score of 70 or higher", "Average score of 80 or higher", "Average score of 90 or higher",
	}, m.Reached)
	assert.Empty(t, m.Upcoming)

	m = milestones(4, 40)
	assert.Equal(t, []string{"1 more session to reach 5 sessions", "Raise your average score to 70"}, m.Upcoming)
}

func TestEnhancedRecentSessions(t *testing.T) {
	ctx := context.Background()
	tr := newEnhanced(t)
	for i := 0; i < 12; i++ {
		tr.Append(ctx, uniform(50+i))
	}
	stats := tr.Stats(ctx)
	require.Len(t, stats.RecentSessions, 10)
	assert.Equal(t, 61, stats.RecentSessions[0].OverallScore)
	assert.Equal(t, 52, stats.RecentSessions[9].OverallScore)
	assert.Equal(t, 56, stats.AverageScore)
	assert.Equal(t, 3, stats.ImprovementTrend)
}
