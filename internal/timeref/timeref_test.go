package timeref

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

var anchor = time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 12, hour, minute, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestResolveAbsoluteClock(t *testing.T) {
	tests := []struct {
		hint string
		want time.Time
	}{
		{"6:30am", at(6, 30)},
		{"6:30 a.m.", at(6, 30)},
		{"7pm", at(19, 0)},
		{"7 p", at(19, 0)},
		{"18:05", at(18, 5)},
		{"06:30", at(6, 30)},
		{"03:00", at(3, 0)},
		{"0630", at(6, 30)},
		{"at 7", at(7, 0)},
		{"at 6 o'clock", at(6, 0)},
		{"noon", at(12, 0)},
		{"midnight", at(0, 0)},
		{"12am", at(0, 0)},
		{"12pm", at(12, 0)},
		{"9 in the evening", at(21, 0)},
		{"half past 6", at(6, 30)},
		{"quarter to 8", at(7, 45)},
		{"10 minutes past 9", at(9, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			res, err := Resolve(tt.hint, anchor, nil)
			require.NoError(t, err)
			assert.Equal(t, KindTimestamp, res.Kind)
			assert.True(t, tt.want.Equal(res.Time), "got %s want %s", res.Time, tt.want)
		})
	}
}

func TestResolveBareHourWithoutReference(t *testing.T) {
	tests := []struct {
		hint string
		want time.Time
	}{
		{"5", at(5, 0)},
		{"9", at(9, 0)},
		{"11:15", at(11, 15)},
		{"12", at(12, 0)},
		{"1", at(13, 0)},
		{"3", at(15, 0)},
		{"4:30", at(16, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			res, err := Resolve(tt.hint, anchor, nil)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(res.Time), "got %s want %s", res.Time, tt.want)
		})
	}
}

func TestResolveBareHourContinuity(t *testing.T) {
	tests := []struct {
		name     string
		hint     string
		previous time.Time
		want     time.Time
	}{
		{"afternoon after 14:00", "3", at(14, 0), at(15, 0)},
		{"morning after 02:00", "3", at(2, 0), at(3, 0)},
		{"same hour counts", "9", at(9, 0), at(9, 0)},
		{"evening after lunch", "7:30", at(13, 0), at(19, 30)},
		{"noon after morning", "12", at(11, 0), at(12, 0)},
		{"both candidates earlier", "1", at(22, 0), at(13, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(tt.hint, anchor, ptr(tt.previous))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(res.Time), "got %s want %s", res.Time, tt.want)
		})
	}
}

func TestResolveRelative(t *testing.T) {
	prev := at(10, 30)
	for _, hint := range []string{"then", "after that", "And then", "afterwards", "next"} {
		t.Run(hint, func(t *testing.T) {
			res, err := Resolve(hint, anchor, &prev)
			require.NoError(t, err)
			assert.Equal(t, KindTimestamp, res.Kind)
			assert.True(t, res.Relative)
			assert.True(t, prev.Equal(res.Time))
		})
	}
}

func TestResolveRelativeWithoutAnchor(t *testing.T) {
	_, err := Resolve("then", anchor, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoAnchor)
	assert.True(t, dlerrors.IsAmbiguousTime(err))
}

func TestResolveDurations(t *testing.T) {
	tests := []struct {
		hint string
		want time.Duration
	}{
		{"for 45 minutes", 45 * time.Minute},
		{"45 mins", 45 * time.Minute},
		{"45m", 45 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"an hour", time.Hour},
		{"half an hour", 30 * time.Minute},
		{"1.5 hours", 90 * time.Minute},
		{"2 hours and 15 minutes", 135 * time.Minute},
		{"1 hour 30 minutes", 90 * time.Minute},
		{"for two hours", 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			res, err := Resolve(tt.hint, anchor, nil)
			require.NoError(t, err)
			assert.Equal(t, KindDuration, res.Kind)
			assert.Equal(t, tt.want, res.Duration)
		})
	}
}

func TestResolveEndBoundary(t *testing.T) {
	res, err := Resolve("until 7:15", anchor, ptr(at(6, 30)))
	require.NoError(t, err)
	assert.Equal(t, KindEndBoundary, res.Kind)
	assert.True(t, at(7, 15).Equal(res.Time))

	res, err = Resolve("till 3", anchor, ptr(at(14, 0)))
	require.NoError(t, err)
	assert.Equal(t, KindEndBoundary, res.Kind)
	assert.True(t, at(15, 0).Equal(res.Time))
}

func TestResolveToPlacesSpokenHourFirst(t *testing.T) {
	tests := []struct {
		name     string
		hint     string
		previous *time.Time
		want     time.Time
	}{
		{"after noon", "quarter to 1", ptr(at(12, 0)), at(12, 45)},
		{"no reference morning", "quarter to 5", nil, at(4, 45)},
		{"no reference afternoon", "quarter to 1", nil, at(12, 45)},
		{"half past after noon", "half past 1", ptr(at(12, 0)), at(13, 30)},
		{"explicit meridiem", "20 minutes to 9pm", nil, at(20, 40)},
		{"before midnight", "quarter to 12am", nil, at(23, 45)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(tt.hint, anchor, tt.previous)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(res.Time), "got %s want %s", res.Time, tt.want)
		})
	}
}

func TestResolveBareNumberToNumberIsNotAClock(t *testing.T) {
	_, err := Resolve("9 to 5", anchor, nil)
	require.Error(t, err)

	from, to, ok := SplitRange("9 to 5")
	require.True(t, ok)
	assert.Equal(t, "9", from)
	assert.Equal(t, "5", to)
}

func TestResolveMidnightAsEnd(t *testing.T) {
	endOfDay := anchor.AddDate(0, 0, 1)

	res, err := Resolve("until midnight", anchor, ptr(at(22, 0)))
	require.NoError(t, err)
	assert.Equal(t, KindEndBoundary, res.Kind)
	assert.True(t, endOfDay.Equal(res.Time), "got %s", res.Time)

	res, err = ResolveEnd("midnight", anchor, ptr(at(22, 0)))
	require.NoError(t, err)
	assert.Equal(t, KindEndBoundary, res.Kind)
	assert.True(t, endOfDay.Equal(res.Time), "got %s", res.Time)

	res, err = ResolveEnd("11pm", anchor, ptr(at(22, 0)))
	require.NoError(t, err)
	assert.True(t, at(23, 0).Equal(res.Time))

	res, err = ResolveEnd("45 minutes", anchor, ptr(at(22, 0)))
	require.NoError(t, err)
	assert.Equal(t, KindDuration, res.Kind)

	// as a start it is still the beginning of the day
	res, err = Resolve("midnight", anchor, nil)
	require.NoError(t, err)
	assert.True(t, at(0, 0).Equal(res.Time))
}

func TestResolveApproximate(t *testing.T) {
	res, err := Resolve("around 7", anchor, nil)
	require.NoError(t, err)
	assert.True(t, res.Approximate)
	assert.True(t, at(7, 0).Equal(res.Time))

	res, err = Resolve("about an hour", anchor, nil)
	require.NoError(t, err)
	assert.Equal(t, KindDuration, res.Kind)
	assert.True(t, res.Approximate)
}

func TestResolveUnrecognized(t *testing.T) {
	for _, hint := range []string{"", "   ", "sometime", "25:00", "13pm", "7:75", "yesterday-ish"} {
		t.Run(hint, func(t *testing.T) {
			_, err := Resolve(hint, anchor, nil)
			require.Error(t, err)
			assert.True(t, dlerrors.IsAmbiguousTime(err))
		})
	}
}

func TestResolveKeepsAnchorLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2024, 3, 12, 0, 0, 0, 0, loc)
	res, err := Resolve("8:00am", local, nil)
	require.NoError(t, err)
	assert.Equal(t, loc, res.Time.Location())
	assert.Equal(t, 8, res.Time.Hour())
}

func TestResolveDurationField(t *testing.T) {
	tests := []struct {
		hint string
		want time.Duration
	}{
		{"45", 45 * time.Minute},
		{"90", 90 * time.Minute},
		{"30 minutes", 30 * time.Minute},
		{"for an hour", time.Hour},
	}
	for _, tt := range tests {
		d, err := ResolveDuration(tt.hint)
		require.NoError(t, err, tt.hint)
		assert.Equal(t, tt.want, d, tt.hint)
	}

	_, err := ResolveDuration("a while")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestSplitRange(t *testing.T) {
	tests := []struct {
		hint       string
		start, end string
		ok         bool
	}{
		{"from 9 to 10:30", "9", "10:30", true},
		{"9-11", "9", "11", true},
		{"2pm until 4pm", "2pm", "4pm", true},
		{"then", "", "", false},
	}
	for _, tt := range tests {
		start, end, ok := SplitRange(tt.hint)
		assert.Equal(t, tt.ok, ok, tt.hint)
		assert.Equal(t, tt.start, start, tt.hint)
		assert.Equal(t, tt.end, end, tt.hint)
	}
}
