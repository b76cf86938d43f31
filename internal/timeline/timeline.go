// Package timeline merges freshly segmented activities into a user's day.
package timeline

import (
	"fmt"
	"sort"

	"github.com/xaenox/daylog-bot/internal/models"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

// Result is a merged timeline and the warnings recorded while building it.
type Result struct {
	Timeline models.DayTimeline
	Warnings []models.Warning
}

// Superseded returns the warnings for segments that were dropped.
func (r Result) Superseded() []models.Warning {
	var out []models.Warning
	for _, w := range r.Warnings {
		if w.Kind == models.WarningSuperseded {
			out = append(out, w)
		}
	}
	return out
}

// Assemble merges newSegments into existing, which may be nil for the first entry
// of the day. existing is not modified.
//
// Segments are replayed in narration order: everything already stored, then the
// new segments. When a segment overlaps one narrated before it, the earlier one is
// cut back to end where the later one starts; if nothing of it would remain it is
// dropped and a WarningSuperseded is recorded. Gaps stay empty.
func Assemble(existing *models.DayTimeline, key models.DayKey, newSegments []models.Segment) Result {
	var (
		stored, kept []models.Segment
		version      int64
		res          Result
	)
	if existing != nil {
		stored = existing.Segments
		version = existing.Version
		res.Timeline.UpdatedAt = existing.UpdatedAt
	}

	for _, incoming := range narrationOrder(stored, newSegments) {
		placed := make([]models.Segment, 0, len(kept)+1)
		for _, earlier := range kept {
			if !earlier.Overlaps(incoming) {
				placed = append(placed, earlier)
				continue
			}
			if models.MinutesBetween(earlier.Start, incoming.Start) <= 0 {
				res.Warnings = append(res.Warnings, models.Warning{
					Kind:       models.WarningSuperseded,
					Segment:    earlier,
					Superseder: incoming,
				})
				continue
			}
			res.Warnings = append(res.Warnings, models.Warning{
				Kind:       models.WarningTruncated,
				Segment:    earlier,
				Superseder: incoming,
			})
			earlier.SetBounds(earlier.Start, incoming.Start)
			placed = append(placed, earlier)
		}
		kept = append(placed, incoming)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Start.Equal(kept[j].Start) {
			return kept[i].Seq < kept[j].Seq
		}
		return kept[i].Start.Before(kept[j].Start)
	})

	res.Timeline.UserID = key.UserID
	res.Timeline.Date = key.Day
	res.Timeline.Segments = kept
	res.Timeline.TotalTrackedMinutes = models.SumMinutes(kept)
	res.Timeline.Version = version
	return res
}

// narrationOrder lists stored segments by Seq followed by the new ones, renumbering
// the new ones so their Seq continues after the stored ones.
func narrationOrder(stored, incoming []models.Segment) []models.Segment {
	out := make([]models.Segment, 0, len(stored)+len(incoming))
	out = append(out, stored...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })

	next := 0
	for _, s := range stored {
		if s.Seq >= next {
			next = s.Seq + 1
		}
	}

	fresh := append([]models.Segment(nil), incoming...)
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Seq < fresh[j].Seq })
	for i := range fresh {
		fresh[i].Seq += next
	}
	return append(out, fresh...)
}

// Validate checks the invariants of an assembled timeline: chronological order,
// no overlaps, consistent durations and total.
func Validate(tl models.DayTimeline) error {
	for i, s := range tl.Segments {
		if s.Description == "" {
			return fmt.Errorf("%w: segment %d has no description", dlerrors.ErrValidation, i)
		}
		if !s.End.After(s.Start) {
			return fmt.Errorf("%w: segment %d ends before it starts", dlerrors.ErrValidation, i)
		}
		if s.DurationMinutes != models.MinutesBetween(s.Start, s.End) {
			return fmt.Errorf("%w: segment %d duration is stale", dlerrors.ErrValidation, i)
		}
		if i > 0 && tl.Segments[i-1].End.After(s.Start) {
			return fmt.Errorf("%w: segments %d and %d overlap", dlerrors.ErrValidation, i-1, i)
		}
	}
	if total := models.SumMinutes(tl.Segments); total != tl.TotalTrackedMinutes {
		return fmt.Errorf("%w: total %d, segments sum to %d", dlerrors.ErrValidation, tl.TotalTrackedMinutes, total)
	}
	return nil
}
