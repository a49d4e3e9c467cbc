package timeaxis

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/couchcryptid/climate-data-normalizer/internal/caltime"
	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

// CalendarHandler operates on model-calendar dates (360-day, no-leap,
// all-leap). Every valid value on an axis must carry the same calendar.
// Missing values are the zero Date.
type CalendarHandler struct {
	logger *slog.Logger
}

func NewCalendarHandler(logger *slog.Logger) *CalendarHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarHandler{logger: logger}
}

func (h *CalendarHandler) Name() string { return "calendar" }

// calTimesOf asserts the concrete axis kind and validates calendar
// uniformity across the valid entries.
func calTimesOf(tv dataset.TimeValues) (dataset.CalTimes, error) {
	ts, ok := tv.(dataset.CalTimes)
	if !ok {
		return nil, fmt.Errorf("%w: calendar handler got %T time values", dataset.ErrConfiguration, tv)
	}
	cal := ""
	for _, d := range ts {
		if d.IsZero() {
			continue
		}
		if cal == "" {
			cal = d.Calendar
			continue
		}
		if d.Calendar != cal {
			return nil, fmt.Errorf("%w: mixed calendars %q and %q on one time axis", dataset.ErrConfiguration, cal, d.Calendar)
		}
	}
	return ts, nil
}

func (h *CalendarHandler) InferFreq(tv dataset.TimeValues) (Frequency, error) {
	ts, err := calTimesOf(tv)
	if err != nil {
		return Frequency{}, err
	}
	var prev caltime.Date
	for _, d := range ts {
		if d.IsZero() {
			continue
		}
		if prev.IsZero() {
			prev = d
			continue
		}
		diff, err := d.Sub(prev)
		if err != nil {
			return Frequency{}, fmt.Errorf("%w: %v", dataset.ErrConfiguration, err)
		}
		return classifyDaySpacing(diff)
	}
	return Frequency{}, fmt.Errorf("%w: need at least two valid timestamps to infer frequency", dataset.ErrInsufficientData)
}

// classifyDaySpacing buckets a spacing in fractional days. The yearly bucket
// starts at 360 so that 360-day-calendar annual data classifies correctly.
func classifyDaySpacing(d float64) (Frequency, error) {
	if d <= 0 {
		return Frequency{}, fmt.Errorf("%w: non-increasing time axis", dataset.ErrIntegrity)
	}
	if d < 1.0/24 {
		// Sub-minute spacing clamps to one minute: minutes are the finest
		// unit, and N must stay >= 1.
		return Frequency{N: max(int(math.Round(d*1440)), 1), Unit: UnitMinute}, nil
	}
	if d < 1 {
		return Frequency{N: max(int(math.Round(d*24)), 1), Unit: UnitHour}, nil
	}
	days := int(math.Round(d))
	switch {
	case days == 1:
		return Frequency{N: 1, Unit: UnitDay}, nil
	case days >= 28 && days <= 31:
		return Frequency{N: 1, Unit: UnitMonth}, nil
	case days >= 89 && days <= 92:
		return Frequency{N: 1, Unit: UnitQuarter}, nil
	case days >= 360 && days <= 366:
		return Frequency{N: 1, Unit: UnitYear}, nil
	default:
		return Frequency{N: days, Unit: UnitDay}, nil
	}
}

// stepDays is the window length of a fixed frequency in fractional days.
func stepDays(freq Frequency) float64 {
	switch freq.Unit {
	case UnitMinute:
		return float64(freq.N) / 1440
	case UnitHour:
		return float64(freq.N) / 24
	default:
		return float64(freq.N)
	}
}

func truncateDate(d caltime.Date, u Unit) caltime.Date {
	switch u {
	case UnitMinute:
		d.Second = 0
		return d
	case UnitHour:
		d.Minute, d.Second = 0, 0
		return d
	default:
		return d.StartOfDay()
	}
}

// windowStart maps a sample to its window's start. Fixed frequencies count
// whole steps from the anchor on the numeric day axis; month and quarter
// windows snap to January-anchored month groups; year windows floor the year
// to a multiple of N.
func (h *CalendarHandler) windowStart(d caltime.Date, freq Frequency, anchorDays float64) (caltime.Date, error) {
	if freq.Fixed() {
		epd, err := d.EpochDays()
		if err != nil {
			return caltime.Date{}, fmt.Errorf("%w: %v", dataset.ErrIntegrity, err)
		}
		step := stepDays(freq)
		k := math.Floor((epd-anchorDays)/step + 1e-9)
		return caltime.FromEpochDays(anchorDays+k*step, d.Calendar)
	}
	switch freq.Unit {
	case UnitMonth, UnitQuarter:
		months := freq.Months()
		m0 := ((d.Month-1)/months)*months + 1
		return caltime.Date{Year: d.Year, Month: m0, Day: 1, Calendar: d.Calendar}, nil
	default:
		y0 := (d.Year / freq.N) * freq.N
		return caltime.Date{Year: y0, Month: 1, Day: 1, Calendar: d.Calendar}, nil
	}
}

func (h *CalendarHandler) Resample(tv dataset.TimeValues, freq Frequency) ([]Window, dataset.TimeValues, error) {
	ts, err := calTimesOf(tv)
	if err != nil {
		return nil, nil, err
	}
	if len(ts) == 0 {
		return nil, nil, fmt.Errorf("%w: empty time axis", dataset.ErrInsufficientData)
	}
	if h.HasInvalid(tv) {
		return nil, nil, fmt.Errorf("%w: time axis contains missing timestamps", dataset.ErrIntegrity)
	}

	var anchorDays float64
	if freq.Fixed() {
		anchorDays, err = truncateDate(ts[0], freq.Unit).EpochDays()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", dataset.ErrIntegrity, err)
		}
	}

	groups := make(map[caltime.Date][]int)
	for i, d := range ts {
		start, err := h.windowStart(d, freq, anchorDays)
		if err != nil {
			return nil, nil, err
		}
		groups[start] = append(groups[start], i)
	}

	starts := make([]caltime.Date, 0, len(groups))
	for start := range groups {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	windows := make([]Window, len(starts))
	for i, start := range starts {
		windows[i] = Window{Indices: groups[start]}
	}
	return windows, dataset.CalTimes(starts), nil
}

func (h *CalendarHandler) AddOffset(tv dataset.TimeValues, freq Frequency) (dataset.TimeValues, error) {
	ts, err := calTimesOf(tv)
	if err != nil {
		return nil, err
	}
	out := make(dataset.CalTimes, len(ts))
	for i, d := range ts {
		if d.IsZero() {
			continue
		}
		if freq.Fixed() {
			next, err := d.AddDays(stepDays(freq))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", dataset.ErrIntegrity, err)
			}
			out[i] = next
		} else {
			out[i] = d.AddMonths(freq.Months())
		}
	}
	return out, nil
}

func (h *CalendarHandler) Average(a, b dataset.TimeValues) (dataset.TimeValues, error) {
	as, err := calTimesOf(a)
	if err != nil {
		return nil, err
	}
	bs, err := calTimesOf(b)
	if err != nil {
		return nil, err
	}
	if len(as) != len(bs) {
		return nil, fmt.Errorf("%w: time axes of length %d and %d", dataset.ErrConfiguration, len(as), len(bs))
	}
	out := make(dataset.CalTimes, len(as))
	for i := range as {
		if as[i].IsZero() || bs[i].IsZero() {
			continue
		}
		mid, err := caltime.Midpoint(as[i], bs[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dataset.ErrConfiguration, err)
		}
		out[i] = mid
	}
	return out, nil
}

func (h *CalendarHandler) CenterTimeAxis(ds *dataset.Dataset, freq Frequency) error {
	tc := ds.TimeCoord()
	if tc == nil {
		return fmt.Errorf("%w: dataset has no time coordinate", dataset.ErrConfiguration)
	}
	ends, err := h.AddOffset(tc.Times, freq)
	if err != nil {
		return err
	}
	mid, err := h.Average(tc.Times, ends)
	if err != nil {
		return err
	}
	tc.Times = mid
	return nil
}

func (h *CalendarHandler) CheckWindowCompleteness(tv dataset.TimeValues, freq Frequency) ([]bool, error) {
	if freq.Unit == UnitQuarter {
		return nil, fmt.Errorf("%w: completeness checking for quarterly windows is not supported on model calendars", dataset.ErrConfiguration)
	}
	dataFreq, err := h.InferFreq(tv)
	if err != nil {
		return nil, err
	}
	if dataFreq.Fixed() && stepDays(dataFreq) <= 0 {
		return nil, fmt.Errorf("%w: data frequency %s has no duration", dataset.ErrConfiguration, dataFreq.String())
	}
	windows, startsTV, err := h.Resample(tv, freq)
	if err != nil {
		return nil, err
	}
	starts := startsTV.(dataset.CalTimes)

	complete := make([]bool, len(windows))
	anyComplete := false
	for i, w := range windows {
		start := starts[i]
		end, err := stepCal(start, freq)
		if err != nil {
			return nil, err
		}
		expected := 0
		for t := start; t.Before(end); {
			expected++
			t, err = stepCal(t, dataFreq)
			if err != nil {
				return nil, err
			}
		}
		actual := len(w.Indices)
		complete[i] = actual == expected
		if complete[i] {
			anyComplete = true
		} else {
			h.logger.Warn("excluding incomplete window",
				"window_start", start.String(),
				"expected", expected, "actual", actual)
		}
	}
	if !anyComplete && len(windows) > 0 {
		h.logger.Warn("no complete windows at requested frequency",
			"frequency", freq.String(), "data_frequency", dataFreq.String())
	}
	return complete, nil
}

func stepCal(d caltime.Date, f Frequency) (caltime.Date, error) {
	if f.Fixed() {
		next, err := d.AddDays(stepDays(f))
		if err != nil {
			return caltime.Date{}, fmt.Errorf("%w: %v", dataset.ErrIntegrity, err)
		}
		return next, nil
	}
	return d.AddMonths(f.Months()), nil
}

// WindowBounds pairs each window with the earliest and latest original
// samples it holds, not the ideal window edges: on sparse or trimmed input
// the bounds must report what the reduction actually saw.
func (h *CalendarHandler) WindowBounds(tv dataset.TimeValues, windows []Window, _ Frequency) (dataset.TimeValues, error) {
	ts, err := calTimesOf(tv)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, fmt.Errorf("%w: empty time axis", dataset.ErrInsufficientData)
	}
	out := make(dataset.CalTimes, 0, 2*len(windows))
	for _, w := range windows {
		if len(w.Indices) == 0 {
			return nil, fmt.Errorf("%w: empty aggregation window", dataset.ErrIntegrity)
		}
		lo, hi := ts[w.Indices[0]], ts[w.Indices[0]]
		for _, idx := range w.Indices[1:] {
			d := ts[idx]
			if d.Before(lo) {
				lo = d
			}
			if hi.Before(d) {
				hi = d
			}
		}
		out = append(out, lo, hi)
	}
	return out, nil
}

func (h *CalendarHandler) HasInvalid(tv dataset.TimeValues) bool {
	ts, ok := tv.(dataset.CalTimes)
	if !ok {
		return true
	}
	for _, d := range ts {
		if d.IsZero() {
			return true
		}
	}
	return false
}
