package models

import (
	"fmt"
	"time"
)

// DateLayout is the storage format of a calendar day.
const DateLayout = "2006-01-02"

// RawMention is an unresolved activity candidate returned by the extraction oracle.
// Empty hint fields mean the oracle did not provide them.
type RawMention struct {
	Text          string `json:"text"`
	StartHint     string `json:"start_hint,omitempty"`
	EndHint       string `json:"end_hint,omitempty"`
	DurationHint  string `json:"duration_hint,omitempty"`
	SentimentHint string `json:"sentiment_hint,omitempty"`
}

// Segment is a time-resolved activity within one day.
type Segment struct {
	ID              string    `json:"id"`
	Seq             int       `json:"seq"` // narration order within the day
	Description     string    `json:"description"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Sentiment       Sentiment `json:"sentiment"`
	Approximate     bool      `json:"approximate,omitempty"`
}

// SetBounds updates the interval and the derived duration together.
func (s *Segment) SetBounds(start, end time.Time) {
	s.Start = start
	s.End = end
	s.DurationMinutes = MinutesBetween(start, end)
}

// Overlaps reports whether two segments share any time. Touching segments do not overlap.
func (s Segment) Overlaps(o Segment) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// MinutesBetween returns whole minutes from start to end, never negative.
func MinutesBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// DayKey identifies a timeline: one user on one calendar day.
type DayKey struct {
	UserID int64
	Day    string
}

// NewDayKey builds the key for the calendar day t falls on, in t's location.
func NewDayKey(userID int64, t time.Time) DayKey {
	return DayKey{UserID: userID, Day: t.Format(DateLayout)}
}

func (k DayKey) String() string {
	return fmt.Sprintf("timeline:%d:%s", k.UserID, k.Day)
}

// DayTimeline is the canonical record of one user's day.
type DayTimeline struct {
	UserID              int64     `json:"user_id"`
	Date                string    `json:"date"`
	Segments            []Segment `json:"segments"`
	TotalTrackedMinutes int       `json:"total_tracked_minutes"`
	Version             int64     `json:"version"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Key returns the identity of the timeline.
func (t DayTimeline) Key() DayKey {
	return DayKey{UserID: t.UserID, Day: t.Date}
}

// Day parses Date in loc.
func (t DayTimeline) Day(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, t.Date, loc)
}

// Clone returns a copy that shares no segment storage with t.
func (t DayTimeline) Clone() DayTimeline {
	c := t
	c.Segments = append([]Segment(nil), t.Segments...)
	return c
}

// SumMinutes totals the durations of segs.
func SumMinutes(segs []Segment) int {
	total := 0
	for _, s := range segs {
		total += MinutesBetween(s.Start, s.End)
	}
	return total
}

// User is a bot user and their preferences.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Timezone   string    `json:"timezone"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Location resolves the user's timezone, falling back to def.
func (u *User) Location(def *time.Location) *time.Location {
	if u == nil || u.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return def
	}
	return loc
}

// UserStats is derived from a user's timelines and never stored.
type UserStats struct {
	CurrentStreak         int               `json:"current_streak"`
	LongestStreak         int               `json:"longest_streak"`
	SentimentDistribution map[Sentiment]int `json:"sentiment_distribution"`
	CategoryTotals        map[string]int    `json:"category_totals"`
	TotalTrackedMinutes   int               `json:"total_tracked_minutes"`
	TrackedDays           int               `json:"tracked_days"`
	WindowStart           string            `json:"window_start"`
	WindowEnd             string            `json:"window_end"`
}
