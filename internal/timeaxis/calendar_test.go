package timeaxis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-data-normalizer/internal/caltime"
	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

func cal360(y, m, d, hh int) caltime.Date {
	return caltime.Date{Year: y, Month: m, Day: d, Hour: hh, Calendar: caltime.Calendar360Day}
}

// hourly360 builds n hourly samples on the 360-day calendar starting at
// year/1/1 00:00 by direct index arithmetic, avoiding accumulated additions.
func hourly360(year, n int) dataset.CalTimes {
	out := make(dataset.CalTimes, n)
	for i := range out {
		day := i / 24
		out[i] = cal360(year, day/30+1, day%30+1, i%24)
	}
	return out
}

func TestCalendarInferFreq(t *testing.T) {
	h := NewCalendarHandler(discardLogger())

	tests := []struct {
		name string
		a, b caltime.Date
		want Frequency
	}{
		{"hourly", cal360(2021, 1, 1, 0), cal360(2021, 1, 1, 1), Frequency{1, UnitHour}},
		{"daily", cal360(2021, 1, 1, 0), cal360(2021, 1, 2, 0), Frequency{1, UnitDay}},
		{"monthly 30d", cal360(2021, 1, 1, 0), cal360(2021, 2, 1, 0), Frequency{1, UnitMonth}},
		{"quarterly 90d", cal360(2021, 1, 1, 0), cal360(2021, 4, 1, 0), Frequency{1, UnitQuarter}},
		{"yearly 360d", cal360(2021, 1, 1, 0), cal360(2022, 1, 1, 0), Frequency{1, UnitYear}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.InferFreq(dataset.CalTimes{tt.a, tt.b})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("noleap yearly", func(t *testing.T) {
		a := caltime.Date{Year: 2021, Month: 1, Day: 1, Calendar: caltime.CalendarNoLeap}
		b := caltime.Date{Year: 2022, Month: 1, Day: 1, Calendar: caltime.CalendarNoLeap}
		got, err := h.InferFreq(dataset.CalTimes{a, b})
		require.NoError(t, err)
		assert.Equal(t, Frequency{1, UnitYear}, got)
	})
}

func TestCalendarInferFreqSubMinuteClampsToMinute(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	a := cal360(2021, 1, 1, 0)
	b := a
	b.Second = 10

	got, err := h.InferFreq(dataset.CalTimes{a, b})
	require.NoError(t, err)
	assert.Equal(t, Frequency{1, UnitMinute}, got)
}

func TestCalendarCompletenessSubMinuteDataTerminates(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	a := cal360(2021, 1, 1, 0)
	b, c := a, a
	b.Second = 10
	c.Minute = 1

	complete, err := h.CheckWindowCompleteness(dataset.CalTimes{a, b, c}, Frequency{1, UnitHour})
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, complete)
}

func TestCalendarMixedCalendarsRejected(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	ts := dataset.CalTimes{
		cal360(2021, 1, 1, 0),
		{Year: 2021, Month: 2, Day: 1, Calendar: caltime.CalendarNoLeap},
	}

	_, err := h.InferFreq(ts)
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrConfiguration)

	_, _, err = h.Resample(ts, Frequency{1, UnitMonth})
	assert.ErrorIs(t, err, dataset.ErrConfiguration)
}

func TestCalendarResampleMonthly(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	// Two full months of hourly data plus five hours of a third.
	ts := hourly360(2021, 2*720+5)

	windows, starts, err := h.Resample(ts, Frequency{1, UnitMonth})
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Len(t, windows[0].Indices, 720)
	assert.Len(t, windows[1].Indices, 720)
	assert.Len(t, windows[2].Indices, 5)
	assert.Equal(t, dataset.CalTimes{
		cal360(2021, 1, 1, 0), cal360(2021, 2, 1, 0), cal360(2021, 3, 1, 0),
	}, starts)
}

func TestCalendarResampleQuarterly(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	ts := make(dataset.CalTimes, 12)
	for i := range ts {
		ts[i] = cal360(2021, i+1, 1, 0)
	}

	windows, starts, err := h.Resample(ts, Frequency{1, UnitQuarter})
	require.NoError(t, err)
	require.Len(t, windows, 4)
	for _, w := range windows {
		assert.Len(t, w.Indices, 3)
	}
	assert.Equal(t, cal360(2021, 1, 1, 0), starts.(dataset.CalTimes)[0])
	assert.Equal(t, cal360(2021, 10, 1, 0), starts.(dataset.CalTimes)[3])
}

func TestCalendarResampleFixedDaily(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	ts := hourly360(2021, 48)

	windows, starts, err := h.Resample(ts, Frequency{1, UnitDay})
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Len(t, windows[0].Indices, 24)
	assert.Len(t, windows[1].Indices, 24)
	assert.Equal(t, dataset.CalTimes{cal360(2021, 1, 1, 0), cal360(2021, 1, 2, 0)}, starts)
}

func TestCalendarResampleRejectsMissing(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	_, _, err := h.Resample(dataset.CalTimes{cal360(2021, 1, 1, 0), {}}, Frequency{1, UnitMonth})
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrIntegrity)
}

func TestCalendarAddOffsetAndAverage(t *testing.T) {
	h := NewCalendarHandler(discardLogger())

	out, err := h.AddOffset(dataset.CalTimes{cal360(2021, 12, 1, 0), {}}, Frequency{1, UnitMonth})
	require.NoError(t, err)
	assert.Equal(t, dataset.CalTimes{cal360(2022, 1, 1, 0), {}}, out)

	out, err = h.AddOffset(dataset.CalTimes{cal360(2021, 1, 30, 0)}, Frequency{1, UnitDay})
	require.NoError(t, err)
	assert.Equal(t, dataset.CalTimes{cal360(2021, 2, 1, 0)}, out)

	mid, err := h.Average(
		dataset.CalTimes{cal360(2021, 1, 1, 0)},
		dataset.CalTimes{cal360(2021, 2, 1, 0)},
	)
	require.NoError(t, err)
	// Half of a 30-day month.
	assert.Equal(t, dataset.CalTimes{cal360(2021, 1, 16, 0)}, mid)
}

func TestCalendarCenterTimeAxis(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	ds := dataset.New()
	ds.Coords["time"] = &dataset.Coordinate{
		Name:  "time",
		Dims:  []string{"time"},
		Times: dataset.CalTimes{cal360(2021, 1, 1, 0), cal360(2021, 2, 1, 0)},
	}

	require.NoError(t, h.CenterTimeAxis(ds, Frequency{1, UnitMonth}))
	assert.Equal(t, dataset.CalTimes{
		cal360(2021, 1, 16, 0),
		cal360(2021, 2, 16, 0),
	}, ds.Coords["time"].Times)
}

func TestCalendarWindowCompleteness(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	// Two complete 360-day-calendar months of hourly data and a ragged
	// start of a third.
	ts := hourly360(2021, 2*720+5)

	complete, err := h.CheckWindowCompleteness(ts, Frequency{1, UnitMonth})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false}, complete)
}

func TestCalendarQuarterlyCompletenessUnsupported(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	ts := make(dataset.CalTimes, 12)
	for i := range ts {
		ts[i] = cal360(2021, i+1, 1, 0)
	}

	_, err := h.CheckWindowCompleteness(ts, Frequency{1, UnitQuarter})
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrConfiguration)
}

func TestCalendarWindowBounds(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	ts := hourly360(2021, 2*720+5)
	windows, _, err := h.Resample(ts, Frequency{1, UnitMonth})
	require.NoError(t, err)

	bounds, err := h.WindowBounds(ts, windows, Frequency{1, UnitMonth})
	require.NoError(t, err)
	got := bounds.(dataset.CalTimes)
	require.Len(t, got, 6)
	// Upper bounds are the last sample each window holds: the final hour of
	// the month for the full months, the fifth hour for the ragged one.
	assert.Equal(t, cal360(2021, 1, 1, 0), got[0])
	assert.Equal(t, cal360(2021, 1, 30, 23), got[1])
	assert.Equal(t, cal360(2021, 2, 1, 0), got[2])
	assert.Equal(t, cal360(2021, 2, 30, 23), got[3])
	assert.Equal(t, cal360(2021, 3, 1, 0), got[4])
	assert.Equal(t, cal360(2021, 3, 1, 4), got[5])

	for i := 0; i+1 < len(got); i += 2 {
		assert.True(t, got[i].Before(got[i+1]))
	}
}

func TestCalendarHasInvalid(t *testing.T) {
	h := NewCalendarHandler(discardLogger())
	assert.False(t, h.HasInvalid(dataset.CalTimes{cal360(2021, 1, 1, 0)}))
	assert.True(t, h.HasInvalid(dataset.CalTimes{cal360(2021, 1, 1, 0), {}}))
}
