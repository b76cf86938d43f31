// Package timeref turns the time expressions people use when narrating their day
// into concrete timestamps and durations anchored to a calendar day.
//
// Bare hours without am/pm are read by continuity: with a reference time (the end
// of the previous activity, or the start of the current one when resolving an
// end) the earliest of h and h+12 that is not before the reference wins, and if
// both are before it the later one does. Without a reference, 5..11 are morning,
// 12 is noon and 1..4 are afternoon. Hours written with a leading zero ("06:30")
// or above 12 are taken as 24-hour clock values.
package timeref

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

// Kind tells which field of a Resolution is meaningful.
type Kind int

const (
	KindTimestamp Kind = iota + 1
	KindDuration
	KindEndBoundary
)

func (k Kind) String() string {
	switch k {
	case KindTimestamp:
		return "timestamp"
	case KindDuration:
		return "duration"
	case KindEndBoundary:
		return "end_boundary"
	}
	return "unknown"
}

// Resolution is the result of resolving one expression.
type Resolution struct {
	Kind     Kind
	Time     time.Time     // KindTimestamp, KindEndBoundary
	Duration time.Duration // KindDuration
	// Relative is set when the value was taken from the previous anchor.
	Relative bool
	// Approximate is set for hedged expressions ("around 7", "about an hour").
	Approximate bool
}

var (
	// ErrUnresolved is returned for expressions the resolver does not recognize.
	ErrUnresolved = fmt.Errorf("%w: unrecognized expression", dlerrors.ErrAmbiguousTime)
	// ErrNoAnchor is returned for relative expressions when nothing precedes them.
	ErrNoAnchor = fmt.Errorf("%w: relative reference without a prior anchor", dlerrors.ErrAmbiguousTime)
)

// Morning and afternoon bounds for bare hours with no reference time.
const (
	firstMorningHour  = 5
	lastAfternoonHour = 4
)

var relativeWords = map[string]bool{
	"then":              true,
	"after that":        true,
	"afterwards":        true,
	"afterward":         true,
	"after":             true,
	"next":              true,
	"later":             true,
	"right after":       true,
	"straight after":    true,
	"immediately after": true,
	"once done":         true,
	"after this":        true,
}

var (
	hedgePrefixes = []string{"around ", "about ", "roughly ", "approximately ", "approx ", "maybe ", "~"}
	clockPrefixes = []string{"at ", "from ", "starting at ", "starting ", "since ", "started at "}
	endPrefixes   = []string{"until ", "till ", "til ", "up to ", "up until ", "to ", "by ", "ending at ", "ended at "}

	clockRe    = regexp.MustCompile(`^(\d{1,2})(?:[:.h](\d{2}))?\s*(am|pm|a|p)?$`)
	militaryRe = regexp.MustCompile(`^(\d{2})(\d{2})$`)
	pastToRe   = regexp.MustCompile(`^(half|quarter|\d{1,2}(?: minutes?)?) (past|after|to) (\d{1,2})\s*(am|pm)?$`)
	rangeRe    = regexp.MustCompile(`^(?:from\s+)?(.+?)\s*(?:-|–|\bto\b|\buntil\b|\btill\b)\s*(.+)$`)
)

// Resolve interprets hint against anchor's calendar day. previous is the reference
// used for relative expressions and bare-hour continuity; it may be nil.
func Resolve(hint string, anchor time.Time, previous *time.Time) (Resolution, error) {
	text := normalize(hint)
	if text == "" {
		return Resolution{}, ErrUnresolved
	}

	if relativeWords[strings.TrimPrefix(text, "and ")] {
		if previous == nil {
			return Resolution{}, ErrNoAnchor
		}
		return Resolution{Kind: KindTimestamp, Time: *previous, Relative: true}, nil
	}

	text, approx := trimAny(text, hedgePrefixes)

	if rest, ok := trimAny(text, endPrefixes); ok {
		rest, hedged := trimAny(rest, hedgePrefixes)
		t, err := resolveClock(rest, anchor, previous)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Kind: KindEndBoundary, Time: endOfDayIfMidnight(t, anchor), Approximate: approx || hedged}, nil
	}

	if d, ok := parseDuration(strings.TrimPrefix(text, "for ")); ok {
		return Resolution{Kind: KindDuration, Duration: d, Approximate: approx}, nil
	}

	rest, _ := trimAny(text, clockPrefixes)
	rest, hedged := trimAny(rest, hedgePrefixes)
	t, err := resolveClock(rest, anchor, previous)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Kind: KindTimestamp, Time: t, Approximate: approx || hedged}, nil
}

// ResolveEnd resolves hint as the end of an activity that started at start.
// Clock times become KindEndBoundary, and an end at 00:00 means the end of the
// anchor day rather than its beginning.
func ResolveEnd(hint string, anchor time.Time, start *time.Time) (Resolution, error) {
	r, err := Resolve(hint, anchor, start)
	if err != nil || r.Kind == KindDuration {
		return r, err
	}
	r.Kind = KindEndBoundary
	r.Time = endOfDayIfMidnight(r.Time, anchor)
	return r, nil
}

func endOfDayIfMidnight(t, anchor time.Time) time.Time {
	if day := onDay(anchor, 0, 0); t.Equal(day) {
		return day.AddDate(0, 0, 1)
	}
	return t
}

// ResolveDuration parses a duration field. Bare numbers are minutes.
func ResolveDuration(hint string) (time.Duration, error) {
	text := normalize(hint)
	text, _ = trimAny(text, hedgePrefixes)
	text = strings.TrimPrefix(text, "for ")
	if n, err := strconv.ParseFloat(text, 64); err == nil && n >= 0 {
		return time.Duration(n * float64(time.Minute)), nil
	}
	if d, ok := parseDuration(text); ok {
		return d, nil
	}
	return 0, ErrUnresolved
}

// SplitRange splits "from 9 to 10:30" style hints into their two ends.
func SplitRange(hint string) (start, end string, ok bool) {
	m := rangeRe.FindStringSubmatch(normalize(hint))
	if m == nil {
		return "", "", false
	}
	if strings.TrimSpace(m[1]) == "" || strings.TrimSpace(m[2]) == "" {
		return "", "", false
	}
	return m[1], m[2], true
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("a.m.", "am", "p.m.", "pm", "o'clock", "", "oclock", "").Replace(s)
	s = strings.Trim(s, " .,;!?")
	return strings.Join(strings.Fields(s), " ")
}

func trimAny(s string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(strings.TrimPrefix(s, p)), true
		}
	}
	return s, false
}

// resolveClock parses a clock expression and places it on anchor's day.
func resolveClock(text string, anchor time.Time, previous *time.Time) (time.Time, error) {
	text, meridiem := splitDayPart(text)

	switch text {
	case "noon", "midday":
		return onDay(anchor, 12, 0), nil
	case "midnight":
		return onDay(anchor, 0, 0), nil
	}

	if m := pastToRe.FindStringSubmatch(text); m != nil {
		return resolvePastTo(m, meridiem, anchor, previous)
	}

	var (
		hour, minute int
		literal      bool
	)
	if m := militaryRe.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		literal = true
	} else if m := clockRe.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		literal = len(m[1]) == 2 && m[1][0] == '0'
		if m[3] != "" {
			meridiem = strings.TrimSuffix(m[3], "m") + "m"
		}
	} else {
		return time.Time{}, ErrUnresolved
	}

	if minute > 59 {
		return time.Time{}, ErrUnresolved
	}
	hour, err := placeHour(hour, minute, meridiem, literal, anchor, previous)
	if err != nil {
		return time.Time{}, err
	}
	return onDay(anchor, hour, minute), nil
}

// resolvePastTo handles "half past 6" and "quarter to 7". The spoken hour is
// placed on the day first and the offset applied afterwards, so "quarter to 1"
// after noon is 12:45.
func resolvePastTo(m []string, meridiem string, anchor time.Time, previous *time.Time) (time.Time, error) {
	if m[2] == "to" && !strings.Contains(m[1], "minute") && m[1] != "half" && m[1] != "quarter" {
		// "9 to 5" is a range, not 4:51
		return time.Time{}, ErrUnresolved
	}
	hour, _ := strconv.Atoi(m[3])
	offset := 30
	switch {
	case m[1] == "quarter":
		offset = 15
	case m[1] != "half":
		offset, _ = strconv.Atoi(strings.Fields(m[1])[0])
	}
	if offset < 1 || offset > 59 {
		return time.Time{}, ErrUnresolved
	}
	if m[4] != "" {
		meridiem = m[4]
	}

	if m[2] != "to" {
		hour, err := placeHour(hour, offset, meridiem, false, anchor, previous)
		if err != nil {
			return time.Time{}, err
		}
		return onDay(anchor, hour, offset), nil
	}

	hour, err := placeHour(hour, 0, meridiem, false, anchor, previous)
	if err != nil {
		return time.Time{}, err
	}
	if hour == 0 {
		// "quarter to midnight" belongs to the end of the day
		hour = 24
	}
	return onDay(anchor, hour, 0).Add(-time.Duration(offset) * time.Minute), nil
}

// placeHour turns a spoken hour into a 24-hour value.
func placeHour(hour, minute int, meridiem string, literal bool, anchor time.Time, previous *time.Time) (int, error) {
	if hour > 23 {
		return 0, ErrUnresolved
	}
	switch {
	case meridiem != "":
		if hour == 0 || hour > 12 {
			return 0, ErrUnresolved
		}
		hour %= 12
		if meridiem == "pm" {
			hour += 12
		}
	case literal || hour == 0 || hour > 12:
	default:
		hour = disambiguateHour(hour, minute, anchor, previous)
	}
	return hour, nil
}

// splitDayPart strips phrases like "in the evening" and returns the meridiem they imply.
func splitDayPart(text string) (string, string) {
	parts := []struct {
		suffix   string
		meridiem string
	}{
		{" in the morning", "am"},
		{" this morning", "am"},
		{" in the afternoon", "pm"},
		{" this afternoon", "pm"},
		{" in the evening", "pm"},
		{" this evening", "pm"},
		{" at night", "pm"},
		{" tonight", "pm"},
	}
	for _, p := range parts {
		if strings.HasSuffix(text, p.suffix) {
			return strings.TrimSuffix(text, p.suffix), p.meridiem
		}
	}
	return text, ""
}

// disambiguateHour picks the 24-hour value of a bare 1..12 hour.
func disambiguateHour(hour, minute int, anchor time.Time, previous *time.Time) int {
	am, pm := hour%12, hour%12+12
	if previous == nil {
		switch {
		case hour == 12:
			return 12
		case hour >= firstMorningHour:
			return am
		case hour <= lastAfternoonHour:
			return pm
		}
		return am
	}
	for _, h := range []int{am, pm} {
		if !onDay(anchor, h, minute).Before(*previous) {
			return h
		}
	}
	return pm
}

func onDay(anchor time.Time, hour, minute int) time.Time {
	y, m, d := anchor.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, anchor.Location())
}
