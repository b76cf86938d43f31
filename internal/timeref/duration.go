package timeref

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationPartRe = regexp.MustCompile(`^(\d+(?:\.\d+)?|an?|one|two|three|four|five|six|seven|eight|nine|ten|a couple of|a few|half an?|half)\s*(hours?|hrs?|h|minutes?|mins?|m)$`)
	goDurationRe   = regexp.MustCompile(`^(\d+h)?(\d+m)?(\d+s)?$`)
	durationSepRe  = regexp.MustCompile(`\s*(?:,|\band\b|\bplus\b)\s*`)
)

var wordNumbers = map[string]float64{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"a couple of": 2, "a few": 3, "half": 0.5, "half a": 0.5, "half an": 0.5,
}

var fixedDurations = map[string]time.Duration{
	"half an hour":         30 * time.Minute,
	"half hour":            30 * time.Minute,
	"a half hour":          30 * time.Minute,
	"quarter of an hour":   15 * time.Minute,
	"a quarter of an hour": 15 * time.Minute,
	"a quarter hour":       15 * time.Minute,
	"an hour and a half":   90 * time.Minute,
	"one hour and a half":  90 * time.Minute,
	"a couple hours":       2 * time.Hour,
	"a minute":             time.Minute,
	"a moment":             time.Minute,
}

// parseDuration understands "45 minutes", "1h30m", "2 hours and 15 minutes",
// "an hour", "1.5 hours" and a few fixed phrases.
func parseDuration(text string) (time.Duration, bool) {
	if text == "" {
		return 0, false
	}
	if d, ok := fixedDurations[text]; ok {
		return d, true
	}
	if goDurationRe.MatchString(text) && strings.ContainsAny(text, "hms") {
		if d, err := time.ParseDuration(text); err == nil {
			return d, true
		}
	}

	var total time.Duration
	for _, part := range splitDurationParts(text) {
		m := durationPartRe.FindStringSubmatch(part)
		if m == nil {
			return 0, false
		}
		n, ok := wordNumbers[m[1]]
		if !ok {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, false
			}
			n = v
		}
		unit := time.Minute
		if strings.HasPrefix(m[2], "h") {
			unit = time.Hour
		}
		total += time.Duration(n * float64(unit))
	}
	return total, total > 0
}

// splitDurationParts splits "1 hour 30 minutes" and "2 hours and 15 minutes" into units.
func splitDurationParts(text string) []string {
	var parts []string
	for _, chunk := range durationSepRe.Split(text, -1) {
		fields := strings.Fields(chunk)
		start := 0
		for i, f := range fields {
			if isUnit(f) && i+1 < len(fields) {
				parts = append(parts, strings.Join(fields[start:i+1], " "))
				start = i + 1
			}
		}
		if start < len(fields) {
			parts = append(parts, strings.Join(fields[start:], " "))
		}
	}
	return parts
}

func isUnit(word string) bool {
	switch word {
	case "hour", "hours", "hr", "hrs", "h", "minute", "minutes", "min", "mins", "m":
		return true
	}
	return false
}
