package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/daylog-bot/internal/models"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

var today = time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)

// daysEndingToday builds one timeline per minute value, oldest first, the last one dated today.
func daysEndingToday(minutes ...int) []models.DayTimeline {
	out := make([]models.DayTimeline, 0, len(minutes))
	for i, m := range minutes {
		day := today.AddDate(0, 0, i-(len(minutes)-1))
		out = append(out, models.DayTimeline{
			UserID:              1,
			Date:                day.Format(models.DateLayout),
			TotalTrackedMinutes: m,
		})
	}
	return out
}

func TestComputeStreaks(t *testing.T) {
	tests := []struct {
		name    string
		minutes []int
		want    Streaks
	}{
		{"zero day is not bridged", []int{5, 0, 3, 3}, Streaks{Current: 2, Longest: 2}},
		{"leading run stays isolated", []int{5, 0, 3}, Streaks{Current: 1, Longest: 1}},
		{"unbroken", []int{1, 1, 1, 1}, Streaks{Current: 4, Longest: 4}},
		{"grace for today", []int{3, 3, 0}, Streaks{Current: 2, Longest: 2}},
		{"yesterday missed", []int{4, 4, 4, 0, 0}, Streaks{Current: 0, Longest: 3}},
		{"older run is longest", []int{2, 2, 2, 0, 1}, Streaks{Current: 1, Longest: 3}},
		{"nothing tracked", []int{0, 0}, Streaks{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreaks(daysEndingToday(tt.minutes...), today))
		})
	}
}

func TestComputeStreaksGraceDoesNotReduceStreak(t *testing.T) {
	prior := []models.DayTimeline{
		{Date: "2024-03-09", TotalTrackedMinutes: 2},
		{Date: "2024-03-10", TotalTrackedMinutes: 2},
		{Date: "2024-03-11", TotalTrackedMinutes: 2},
	}
	without := ComputeStreaks(prior, today)

	withToday := append(append([]models.DayTimeline(nil), prior...), models.DayTimeline{Date: "2024-03-12"})
	with := ComputeStreaks(withToday, today)

	assert.Equal(t, 3, without.Current)
	assert.Equal(t, without, with)
}

func TestComputeStreaksMissingDaysBreak(t *testing.T) {
	history := []models.DayTimeline{
		{Date: "2024-03-08", TotalTrackedMinutes: 10},
		{Date: "2024-03-09", TotalTrackedMinutes: 10},
		// 2024-03-10 never logged
		{Date: "2024-03-11", TotalTrackedMinutes: 10},
		{Date: "2024-03-12", TotalTrackedMinutes: 10},
	}
	assert.Equal(t, Streaks{Current: 2, Longest: 2}, ComputeStreaks(history, today))
}

func TestComputeStreaksStaleHistory(t *testing.T) {
	history := []models.DayTimeline{
		{Date: "2024-02-01", TotalTrackedMinutes: 30},
		{Date: "2024-02-02", TotalTrackedMinutes: 30},
	}
	assert.Equal(t, Streaks{Current: 0, Longest: 2}, ComputeStreaks(history, today))
}

func TestComputeStreaksEmpty(t *testing.T) {
	assert.Equal(t, Streaks{}, ComputeStreaks(nil, today))
	assert.Equal(t, Streaks{}, ComputeStreaks([]models.DayTimeline{{Date: "garbage", TotalTrackedMinutes: 5}}, today))
}

func segment(desc string, minutes int, sentiment models.Sentiment) models.Segment {
	start := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	s := models.Segment{Description: desc, Sentiment: sentiment}
	s.SetBounds(start, start.Add(time.Duration(minutes)*time.Minute))
	return s
}

func TestComputeAggregates(t *testing.T) {
	history := []models.DayTimeline{
		{Date: "2024-03-01", TotalTrackedMinutes: 600, Segments: []models.Segment{
			segment("Work", 600, models.SentimentNegative),
		}},
		{Date: "2024-03-10", TotalTrackedMinutes: 75, Segments: []models.Segment{
			segment("Reading ", 45, models.SentimentPositive),
			segment("walk", 30, models.SentimentUnspecified),
		}},
		{Date: "2024-03-11", TotalTrackedMinutes: 0},
		{Date: "2024-03-12", TotalTrackedMinutes: 80, Segments: []models.Segment{
			segment("reading", 20, models.SentimentPositive),
			segment("  Deep   WORK", 60, models.SentimentNeutral),
		}},
	}

	w, err := ParseWindow("week", today)
	require.NoError(t, err)
	agg := ComputeAggregates(history, w)

	assert.Equal(t, 155, agg.TotalTrackedMinutes)
	assert.Equal(t, 2, agg.TrackedDays)
	assert.Equal(t, map[string]int{"reading": 65, "walk": 30, "deep work": 60}, agg.CategoryTotals)
	assert.Equal(t, map[models.Sentiment]int{
		models.SentimentPositive:    2,
		models.SentimentUnspecified: 1,
		models.SentimentNeutral:     1,
	}, agg.SentimentDistribution)
}

func TestComputeAggregatesUnknownSentimentFallsBack(t *testing.T) {
	history := []models.DayTimeline{{Date: "2024-03-12", TotalTrackedMinutes: 10, Segments: []models.Segment{
		segment("yoga", 10, models.Sentiment("ecstatic")),
	}}}
	agg := ComputeAggregates(history, Window{To: today})
	assert.Equal(t, 1, agg.SentimentDistribution[models.SentimentUnspecified])
}

func TestCompute(t *testing.T) {
	history := daysEndingToday(5, 0, 3, 3)
	w, err := ParseWindow("all", today)
	require.NoError(t, err)

	s := Compute(history, w, today)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
	assert.Equal(t, 11, s.TotalTrackedMinutes)
	assert.Equal(t, 3, s.TrackedDays)
	assert.Equal(t, "", s.WindowStart)
	assert.Equal(t, "2024-03-12", s.WindowEnd)
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "reading", NormalizeCategory("  Reading "))
	assert.Equal(t, "deep work", NormalizeCategory("Deep\tWORK"))
	assert.Equal(t, "strasse", NormalizeCategory("STRASSE"))
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in       string
		from, to string
	}{
		{"", "2024-03-06", "2024-03-12"},
		{"week", "2024-03-06", "2024-03-12"},
		{"today", "2024-03-12", "2024-03-12"},
		{"month", "2024-02-12", "2024-03-12"},
		{"14d", "2024-02-28", "2024-03-12"},
		{"3", "2024-03-10", "2024-03-12"},
		{"all", "", "2024-03-12"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, err := ParseWindow(tt.in, today)
			require.NoError(t, err)
			assert.Equal(t, tt.from, w.StartKey())
			assert.Equal(t, tt.to, w.EndKey())
		})
	}

	for _, bad := range []string{"fortnight", "0", "-3", "99999"} {
		_, err := ParseWindow(bad, today)
		assert.True(t, dlerrors.IsValidation(err), bad)
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{From: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), To: today}
	assert.True(t, w.Contains("2024-03-10"))
	assert.True(t, w.Contains("2024-03-12"))
	assert.False(t, w.Contains("2024-03-09"))
	assert.False(t, w.Contains("2024-03-13"))
}
