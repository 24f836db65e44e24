package progress

import (
	"context"
	"log/slog"
	"sort"

	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/kvstore"
)

const (
	BasicKey         = "interview_progress"
	BasicCapacity    = 50
	basicRecentCount = 5
)

// Tracker is the basic progress log: the last 50 sessions and summary stats.
type Tracker struct {
	j *journal
}

// Stats summarizes the basic log.
type Stats struct {
	TotalSessions    int             `json:"totalSessions"`
	AverageScore     int             `json:"averageScore"`
	ImprovementTrend int             `json:"improvementTrend"`
	StrongestAreas   []string        `json:"strongestAreas"`
	WeakestAreas     []string        `json:"weakestAreas"`
	RecentSessions   []SessionRecord `json:"recentSessions"`
}

func NewTracker(store kvstore.Store, cfg config.ProgressConfig, log *slog.Logger) *Tracker {
	key := cfg.BasicKey
	if key == "" {
		key = BasicKey
	}
	capacity := cfg.BasicCapacity
	if capacity <= 0 {
		capacity = BasicCapacity
	}
	return &Tracker{j: newJournal(store, key, capacity, log)}
}

// Append stores rec with a fresh ID and timestamp and returns the stored copy.
func (t *Tracker) Append(ctx context.Context, rec SessionRecord) SessionRecord {
	return t.j.append(ctx, rec)
}

// All returns the log in chronological order.
func (t *Tracker) All(ctx context.Context) []SessionRecord {
	return t.j.all(ctx)
}

func (t *Tracker) Clear(ctx context.Context) {
	t.j.clear(ctx)
}

func (t *Tracker) Stats(ctx context.Context) Stats {
	records := t.j.all(ctx)
	stats := Stats{
		TotalSessions:  len(records),
		StrongestAreas: []string{},
		WeakestAreas:   []string{},
		RecentSessions: recent(records, basicRecentCount),
	}
	if len(records) == 0 {
		return stats
	}

	scores := overallScores(records)
	stats.AverageScore = roundHalfUp(mean(scores))
	if len(scores) >= 2 {
		mid := len(scores) / 2
		stats.ImprovementTrend = roundHalfUp(mean(scores[mid:]) - mean(scores[:mid]))
	}

	areas := basicAreaAverages(records)
	sort.SliceStable(areas, func(a, b int) bool { return areas[a].avg > areas[b].avg })
	stats.StrongestAreas = []string{areas[0].name, areas[1].name}
	stats.WeakestAreas = []string{areas[len(areas)-1].name, areas[len(areas)-2].name}
	return stats
}

type areaAverage struct {
	name string
	avg  float64
}

// basicAreaAverages lists the four core metrics in declared order.
func basicAreaAverages(records []SessionRecord) []areaAverage {
	var confidence, clarity, professionalism, relevance []int
	for _, r := range records {
		confidence = append(confidence, r.Metrics.Confidence)
		clarity = append(clarity, r.Metrics.Clarity)
		professionalism = append(professionalism, r.Metrics.Professionalism)
		relevance = append(relevance, r.Metrics.Relevance)
	}
	return []areaAverage{
		{"confidence", mean(confidence)},
		{"clarity", mean(clarity)},
		{"professionalism", mean(professionalism)},
		{"relevance", mean(relevance)},
	}
}
