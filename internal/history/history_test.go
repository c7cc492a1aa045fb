package history

import (
	"testing"
	"time"

	"github.com/maimood/mood-coach/internal/emotion"
	"github.com/maimood/mood-coach/internal/store"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStreak_GapBreaksWalk(t *testing.T) {
	days := []time.Time{day("2024-05-03"), day("2024-05-02"), day("2024-05-01"), day("2024-04-28")}
	if got := Streak(days); got != 3 {
		t.Errorf("Streak() = %d, want 3", got)
	}
}

func TestStreak_SingleDay(t *testing.T) {
	if got := Streak([]time.Time{day("2024-05-03")}); got != 1 {
		t.Errorf("Streak() = %d, want 1", got)
	}
}

func TestStreak_Empty(t *testing.T) {
	if got := Streak(nil); got != 0 {
		t.Errorf("Streak() = %d, want 0", got)
	}
}

func TestCompute_SameDayRecordsCountOnce(t *testing.T) {
	recs := []store.Record{
		{Emotion: "happy", CreatedAt: day("2024-05-03").Add(15 * time.Hour)},
		{Emotion: "sad", CreatedAt: day("2024-05-03").Add(9 * time.Hour)},
		{Emotion: "happy", CreatedAt: day("2024-05-02")},
	}
	stats := Compute(recs, day("2024-05-04"))
	if stats.StreakDays != 2 {
		t.Errorf("StreakDays = %d, want 2", stats.StreakDays)
	}
}

func TestCompute_Empty(t *testing.T) {
	stats := Compute(nil, time.Now())
	if stats.Total != 0 || stats.StreakDays != 0 || stats.LastWeek != 0 {
		t.Errorf("empty input should yield zero stats, got %+v", stats)
	}
	if stats.MostCommonEmotion != emotion.Neutral {
		t.Errorf("MostCommonEmotion = %q, want neutral", stats.MostCommonEmotion)
	}
}

func TestCompute_LastWeekWindow(t *testing.T) {
	now := day("2024-05-10")
	recs := []store.Record{
		{Emotion: "happy", CreatedAt: day("2024-05-09")},
		{Emotion: "happy", CreatedAt: day("2024-05-05")},
		{Emotion: "happy", CreatedAt: day("2024-04-20")},
	}
	stats := Compute(recs, now)
	if stats.LastWeek != 2 {
		t.Errorf("LastWeek = %d, want 2", stats.LastWeek)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
}

func TestCompute_MostCommonEmotion(t *testing.T) {
	recs := []store.Record{
		{Emotion: "sad", CreatedAt: day("2024-05-09")},
		{Emotion: "happy", CreatedAt: day("2024-05-08")},
		{Emotion: "happy", CreatedAt: day("2024-05-07")},
	}
	stats := Compute(recs, day("2024-05-10"))
	if stats.MostCommonEmotion != emotion.Happy {
		t.Errorf("MostCommonEmotion = %q, want happy", stats.MostCommonEmotion)
	}
}

func TestCompute_MostCommonTieBreaksOnFirstEncountered(t *testing.T) {
	// sad and happy both appear twice; sad comes first in sorted order.
	recs := []store.Record{
		{Emotion: "sad", CreatedAt: day("2024-05-09")},
		{Emotion: "happy", CreatedAt: day("2024-05-08")},
		{Emotion: "sad", CreatedAt: day("2024-05-07")},
		{Emotion: "happy", CreatedAt: day("2024-05-06")},
	}
	stats := Compute(recs, day("2024-05-10"))
	if stats.MostCommonEmotion != emotion.Sad {
		t.Errorf("MostCommonEmotion = %q, want sad (first encountered)", stats.MostCommonEmotion)
	}
}

func TestCompute_HistoricalSpellingsMerge(t *testing.T) {
	// "happiness" and "happy" are the same label and must count together.
	recs := []store.Record{
		{Emotion: "sad", CreatedAt: day("2024-05-09")},
		{Emotion: "happiness", CreatedAt: day("2024-05-08")},
		{Emotion: "happy", CreatedAt: day("2024-05-07")},
	}
	stats := Compute(recs, day("2024-05-10"))
	if stats.MostCommonEmotion != emotion.Happy {
		t.Errorf("MostCommonEmotion = %q, want happy", stats.MostCommonEmotion)
	}
}

func TestCompute_AverageConfidenceRounded(t *testing.T) {
	recs := []store.Record{
		{Emotion: "happy", Confidence: 0.87, CreatedAt: day("2024-05-09")},
		{Emotion: "happy", Confidence: 0.62, CreatedAt: day("2024-05-08")},
	}
	stats := Compute(recs, day("2024-05-10"))
	// (0.87 + 0.62) / 2 = 0.745, rounded to one decimal = 0.7
	if stats.AverageConfidence != 0.7 {
		t.Errorf("AverageConfidence = %v, want 0.7", stats.AverageConfidence)
	}
}
