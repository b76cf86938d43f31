package stats

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/daylog-bot/internal/models"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

const maxWindowDays = 3650

// Window is an inclusive range of calendar days. A zero From means "since the beginning".
type Window struct {
	Name string
	From time.Time
	To   time.Time
}

// StartKey returns the first day of the window, or "" for an unbounded window.
func (w Window) StartKey() string {
	if w.From.IsZero() {
		return ""
	}
	return w.From.Format(models.DateLayout)
}

// EndKey returns the last day of the window.
func (w Window) EndKey() string {
	return w.To.Format(models.DateLayout)
}

// Contains reports whether the YYYY-MM-DD day falls in the window.
func (w Window) Contains(day string) bool {
	if start := w.StartKey(); start != "" && day < start {
		return false
	}
	return day <= w.EndKey()
}

// LastDays returns the window of n days ending today.
func LastDays(n int, today time.Time) Window {
	return Window{
		Name: fmt.Sprintf("last %d days", n),
		From: today.AddDate(0, 0, -(n - 1)),
		To:   today,
	}
}

// ParseWindow understands "today", "week", "month", "year", "all", "14d" and "14".
// An empty string means "week".
func ParseWindow(s string, today time.Time) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "week", "7d":
		w := LastDays(7, today)
		w.Name = "week"
		return w, nil
	case "today", "day":
		return Window{Name: "today", From: today, To: today}, nil
	case "month":
		w := LastDays(30, today)
		w.Name = "month"
		return w, nil
	case "year":
		w := LastDays(365, today)
		w.Name = "year"
		return w, nil
	case "all", "ever":
		return Window{Name: "all time", To: today}, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "days"), "d")))
	if err != nil || n < 1 || n > maxWindowDays {
		return Window{}, fmt.Errorf("%w: unknown window %q", dlerrors.ErrValidation, s)
	}
	return LastDays(n, today), nil
}
