// Package stats derives streaks and aggregates from a user's stored timelines.
// Nothing here is persisted: stats are recomputed from the timelines every time.
package stats

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/xaenox/daylog-bot/internal/models"
)

// Streaks holds consecutive-day counts of days with tracked time.
type Streaks struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Aggregates summarizes the timelines inside a window.
type Aggregates struct {
	SentimentDistribution map[models.Sentiment]int `json:"sentiment_distribution"`
	CategoryTotals        map[string]int           `json:"category_totals"`
	TotalTrackedMinutes   int                      `json:"total_tracked_minutes"`
	TrackedDays           int                      `json:"tracked_days"`
}

// ComputeStreaks walks calendar days up to today. Days missing from history count as
// zero. Today never breaks the current streak: with nothing logged yet, counting
// starts from yesterday.
func ComputeStreaks(history []models.DayTimeline, today time.Time) Streaks {
	minutes := make(map[string]int, len(history))
	first := ""
	for _, tl := range history {
		if _, err := time.Parse(models.DateLayout, tl.Date); err != nil {
			continue
		}
		minutes[tl.Date] += tl.TotalTrackedMinutes
		if first == "" || tl.Date < first {
			first = tl.Date
		}
	}
	if first == "" {
		return Streaks{}
	}

	todayKey := today.Format(models.DateLayout)
	last := todayKey
	for day := range minutes {
		if day > last {
			last = day
		}
	}

	var s Streaks
	run := 0
	for day := civil(first); ; day = day.AddDate(0, 0, 1) {
		key := day.Format(models.DateLayout)
		if key > last {
			break
		}
		if minutes[key] > 0 {
			run++
			if run > s.Longest {
				s.Longest = run
			}
		} else {
			run = 0
		}
	}

	cursor := civil(todayKey)
	if minutes[todayKey] <= 0 {
		cursor = cursor.AddDate(0, 0, -1)
	}
	for minutes[cursor.Format(models.DateLayout)] > 0 {
		s.Current++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return s
}

// ComputeAggregates makes one forward pass over the timelines that fall in w.
func ComputeAggregates(history []models.DayTimeline, w Window) Aggregates {
	agg := Aggregates{
		SentimentDistribution: make(map[models.Sentiment]int),
		CategoryTotals:        make(map[string]int),
	}
	for _, tl := range history {
		if !w.Contains(tl.Date) {
			continue
		}
		if tl.TotalTrackedMinutes > 0 {
			agg.TrackedDays++
		}
		agg.TotalTrackedMinutes += tl.TotalTrackedMinutes
		for _, seg := range tl.Segments {
			label := seg.Sentiment
			if _, ok := models.ParseSentiment(string(label)); !ok {
				label = models.SentimentUnspecified
			}
			agg.SentimentDistribution[label]++
			agg.CategoryTotals[NormalizeCategory(seg.Description)] += seg.DurationMinutes
		}
	}
	return agg
}

// Compute combines streaks over the full history with aggregates over w.
func Compute(history []models.DayTimeline, w Window, today time.Time) models.UserStats {
	streaks := ComputeStreaks(history, today)
	agg := ComputeAggregates(history, w)
	return models.UserStats{
		CurrentStreak:         streaks.Current,
		LongestStreak:         streaks.Longest,
		SentimentDistribution: agg.SentimentDistribution,
		CategoryTotals:        agg.CategoryTotals,
		TotalTrackedMinutes:   agg.TotalTrackedMinutes,
		TrackedDays:           agg.TrackedDays,
		WindowStart:           w.StartKey(),
		WindowEnd:             w.EndKey(),
	}
}

// NormalizeCategory folds case and whitespace so "Reading " and "reading" share a key.
func NormalizeCategory(description string) string {
	return strings.Join(strings.Fields(cases.Fold().String(description)), " ")
}

func civil(day string) time.Time {
	t, err := time.Parse(models.DateLayout, day)
	if err != nil {
		return time.Time{}
	}
	return t
}
