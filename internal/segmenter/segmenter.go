// Package segmenter turns the extraction oracle's mentions into ordered,
// time-resolved segments for one day.
package segmenter

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xaenox/daylog-bot/internal/models"
	"github.com/xaenox/daylog-bot/internal/timeref"
)

// MinimumDuration is the length given to activities whose end does not come after their start.
const MinimumDuration = time.Minute

// Fields of a mention that can fail to resolve.
const (
	FieldStart    = "start"
	FieldEnd      = "end"
	FieldDuration = "duration"
)

const untitledActivity = "untitled activity"

// Ambiguity records a hint that could not be resolved. The segment is still produced
// with an approximate boundary.
type Ambiguity struct {
	Seq   int
	Field string
	Hint  string
	Err   error
}

// Result is the output of one segmentation pass.
type Result struct {
	// Segments holds one segment per mention, sorted by start.
	Segments    []models.Segment
	Ambiguities []Ambiguity
}

// Segmenter resolves mentions into segments.
type Segmenter struct {
	newID func() string
}

// New creates a Segmenter that assigns random segment IDs.
func New() *Segmenter {
	return &Segmenter{newID: uuid.NewString}
}

// Segment processes mentions in narration order. A running cursor holds the end of
// the previous activity; it stands in for a missing start and anchors relative
// expressions. Explicit end times win over durations. Nothing is dropped: timing
// problems only make a boundary approximate.
func (s *Segmenter) Segment(mentions []models.RawMention, anchor time.Time) Result {
	return s.SegmentAfter(mentions, anchor, nil)
}

// SegmentAfter is Segment for a follow-up message. after, typically the end of
// the activity narrated last in an earlier message, stands in for a missing or
// relative start of the first mention. Clock times are still read without it.
// A nil after behaves like Segment.
func (s *Segmenter) SegmentAfter(mentions []models.RawMention, anchor time.Time, after *time.Time) Result {
	var (
		res    Result
		cursor *time.Time
	)
	day := startOfDay(anchor)

	for i, m := range mentions {
		seg := models.Segment{
			ID:          s.newID(),
			Seq:         i,
			Description: strings.TrimSpace(m.Text),
			Sentiment:   models.SentimentUnspecified,
		}
		if seg.Description == "" {
			seg.Description = untitledActivity
		}

		endHint := strings.TrimSpace(m.EndHint)
		var (
			start, end         time.Time
			haveStart, haveEnd bool
			approx             bool
			duration           time.Duration
		)

		if hint := strings.TrimSpace(m.StartHint); hint != "" {
			r, err := timeref.Resolve(hint, day, cursor)
			if errors.Is(err, timeref.ErrNoAnchor) && cursor == nil && after != nil {
				r, err = timeref.Resolution{Kind: timeref.KindTimestamp, Time: *after, Relative: true}, nil
			}
			if err != nil && endHint == "" {
				if from, to, ok := timeref.SplitRange(hint); ok {
					if r, err = timeref.Resolve(from, day, cursor); err == nil {
						endHint = to
					}
				}
			}
			switch {
			case err != nil:
				res.Ambiguities = append(res.Ambiguities, Ambiguity{Seq: i, Field: FieldStart, Hint: hint, Err: err})
				approx = true
			case r.Kind == timeref.KindDuration:
				duration = r.Duration
				approx = approx || r.Approximate
			case r.Kind == timeref.KindEndBoundary && endHint == "":
				end, haveEnd = r.Time, true
				approx = approx || r.Approximate
			default:
				start, haveStart = r.Time, true
				approx = approx || r.Approximate
			}
		}

		if !haveStart {
			switch {
			case cursor != nil:
				start = *cursor
			case after != nil:
				start = *after
			default:
				start = day
				approx = true
			}
		}

		if endHint != "" {
			r, err := timeref.ResolveEnd(endHint, day, &start)
			switch {
			case err != nil:
				res.Ambiguities = append(res.Ambiguities, Ambiguity{Seq: i, Field: FieldEnd, Hint: endHint, Err: err})
				approx = true
			case r.Kind == timeref.KindDuration:
				duration = r.Duration
				approx = approx || r.Approximate
			default:
				end, haveEnd = r.Time, true
				approx = approx || r.Approximate
			}
		}

		if hint := strings.TrimSpace(m.DurationHint); !haveEnd && hint != "" {
			if d, err := timeref.ResolveDuration(hint); err == nil {
				duration = d
			} else if r, rerr := timeref.ResolveEnd(hint, day, &start); rerr == nil && r.Kind != timeref.KindDuration {
				end, haveEnd = r.Time, true
			} else {
				res.Ambiguities = append(res.Ambiguities, Ambiguity{Seq: i, Field: FieldDuration, Hint: hint, Err: err})
				approx = true
			}
		}

		if !haveEnd {
			if duration = wholeMinutes(duration); duration > 0 {
				end = start.Add(duration)
			} else {
				end = start
			}
		}
		if !end.After(start) {
			end = start.Add(MinimumDuration)
			approx = true
		}

		seg.SetBounds(start, end)
		seg.Approximate = approx
		res.Segments = append(res.Segments, seg)

		next := end
		cursor = &next
	}

	sort.SliceStable(res.Segments, func(a, b int) bool {
		return res.Segments[a].Start.Before(res.Segments[b].Start)
	})
	return res
}

// wholeMinutes rounds d to the minute. Anything positive is at least MinimumDuration.
func wholeMinutes(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if d = d.Round(time.Minute); d < MinimumDuration {
		return MinimumDuration
	}
	return d
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
