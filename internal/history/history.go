// Package history derives timeline statistics from a user's persisted
// analysis records.
package history

import (
	"math"
	"time"

	"github.com/maimood/mood-coach/internal/emotion"
	"github.com/maimood/mood-coach/internal/store"
)

// MaxEntries caps how many records the timeline shows.
const MaxEntries = 50

// Stats are the aggregates shown on the profile view.
type Stats struct {
	Total             int           `json:"total"`
	LastWeek          int           `json:"last_week"`
	MostCommonEmotion emotion.Label `json:"most_common_emotion"`
	// AverageConfidence is rounded to one decimal place.
	AverageConfidence float64 `json:"average_confidence"`
	StreakDays        int     `json:"streak_days"`
}

// Compute derives stats from records sorted newest first. An empty input
// yields zero stats with a neutral most-common emotion.
func Compute(records []store.Record, now time.Time) Stats {
	stats := Stats{MostCommonEmotion: emotion.Neutral}
	if len(records) == 0 {
		return stats
	}

	stats.Total = len(records)

	weekAgo := now.Add(-7 * 24 * time.Hour)
	confidenceSum := 0.0
	counts := make(map[emotion.Label]int)
	firstSeen := make(map[emotion.Label]int)

	for i, rec := range records {
		if rec.CreatedAt.After(weekAgo) {
			stats.LastWeek++
		}
		confidenceSum += rec.Confidence

		label, _ := emotion.Normalize(rec.Emotion)
		counts[label]++
		if _, seen := firstSeen[label]; !seen {
			firstSeen[label] = i
		}
	}

	// Ties break toward the label first encountered in sorted order, so the
	// result is deterministic.
	best := emotion.Neutral
	bestCount := -1
	for label, count := range counts {
		if count > bestCount || (count == bestCount && firstSeen[label] < firstSeen[best]) {
			best = label
			bestCount = count
		}
	}
	stats.MostCommonEmotion = best

	avg := confidenceSum / float64(len(records))
	stats.AverageConfidence = math.Round(avg*10) / 10

	stats.StreakDays = Streak(recordDays(records))
	return stats
}

// recordDays maps records to their calendar days, newest first, duplicates
// collapsed. Multiple records on the same day count as one streak day.
func recordDays(records []store.Record) []time.Time {
	var days []time.Time
	for _, rec := range records {
		day := rec.CreatedAt.Truncate(24 * time.Hour)
		if len(days) == 0 || !days[len(days)-1].Equal(day) {
			days = append(days, day)
		}
	}
	return days
}

// Streak counts consecutive calendar days walking backward from the most
// recent day; the walk stops at the first gap larger than one day.
func Streak(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}
	streak := 1
	current := days[0]
	for _, next := range days[1:] {
		if current.Sub(next) == 24*time.Hour {
			streak++
			current = next
		} else {
			break
		}
	}
	return streak
}
