package timeaxis

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

// StandardHandler operates on real-world timestamps with the proleptic
// Gregorian calendar. Missing values are the zero time.
type StandardHandler struct {
	logger *slog.Logger
}

func NewStandardHandler(logger *slog.Logger) *StandardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StandardHandler{logger: logger}
}

func (h *StandardHandler) Name() string { return "standard" }

func stdTimesOf(tv dataset.TimeValues) (dataset.StdTimes, error) {
	ts, ok := tv.(dataset.StdTimes)
	if !ok {
		return nil, fmt.Errorf("%w: standard handler got %T time values", dataset.ErrConfiguration, tv)
	}
	return ts, nil
}

// InferFreq classifies the spacing of the first two valid samples into a
// frequency. Spacings near a month, quarter, or year collapse onto the
// calendar unit; anything else in whole days becomes an N-day frequency.
func (h *StandardHandler) InferFreq(tv dataset.TimeValues) (Frequency, error) {
	ts, err := stdTimesOf(tv)
	if err != nil {
		return Frequency{}, err
	}
	var prev time.Time
	for _, t := range ts {
		if t.IsZero() {
			continue
		}
		if prev.IsZero() {
			prev = t
			continue
		}
		return classifySpacing(t.Sub(prev))
	}
	return Frequency{}, fmt.Errorf("%w: need at least two valid timestamps to infer frequency", dataset.ErrInsufficientData)
}

func classifySpacing(d time.Duration) (Frequency, error) {
	if d <= 0 {
		return Frequency{}, fmt.Errorf("%w: non-increasing time axis", dataset.ErrIntegrity)
	}
	if d < time.Hour {
		// Sub-minute spacing clamps to one minute: minutes are the finest
		// unit, and N must stay >= 1.
		return Frequency{N: max(int(d/time.Minute), 1), Unit: UnitMinute}, nil
	}
	if d < 24*time.Hour {
		return Frequency{N: int(d / time.Hour), Unit: UnitHour}, nil
	}
	days := int(d / (24 * time.Hour))
	switch {
	case days == 1:
		return Frequency{N: 1, Unit: UnitDay}, nil
	case days >= 28 && days <= 31:
		return Frequency{N: 1, Unit: UnitMonth}, nil
	case days >= 89 && days <= 92:
		return Frequency{N: 1, Unit: UnitQuarter}, nil
	case days >= 365 && days <= 366:
		return Frequency{N: 1, Unit: UnitYear}, nil
	default:
		return Frequency{N: days, Unit: UnitDay}, nil
	}
}

// truncateToUnit floors a timestamp to the start of its minute, hour, or day.
func truncateToUnit(t time.Time, u Unit) time.Time {
	switch u {
	case UnitMinute:
		return t.Truncate(time.Minute)
	case UnitHour:
		return t.Truncate(time.Hour)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// windowStart maps a sample to the start of its window. Fixed frequencies
// count whole steps from the anchor; calendar frequencies snap to
// January-anchored month groups or to years floored to a multiple of N.
func (h *StandardHandler) windowStart(t time.Time, freq Frequency, anchor time.Time) time.Time {
	if freq.Fixed() {
		step := freq.Duration()
		k := t.Sub(anchor) / step
		if t.Sub(anchor) < 0 && t.Sub(anchor)%step != 0 {
			k--
		}
		return anchor.Add(k * step)
	}
	switch freq.Unit {
	case UnitMonth, UnitQuarter:
		months := freq.Months()
		m0 := ((int(t.Month())-1)/months)*months + 1
		return time.Date(t.Year(), time.Month(m0), 1, 0, 0, 0, 0, t.Location())
	default:
		y0 := (t.Year() / freq.N) * freq.N
		return time.Date(y0, time.January, 1, 0, 0, 0, 0, t.Location())
	}
}

func (h *StandardHandler) Resample(tv dataset.TimeValues, freq Frequency) ([]Window, dataset.TimeValues, error) {
	ts, err := stdTimesOf(tv)
	if err != nil {
		return nil, nil, err
	}
	if len(ts) == 0 {
		return nil, nil, fmt.Errorf("%w: empty time axis", dataset.ErrInsufficientData)
	}
	if h.HasInvalid(tv) {
		return nil, nil, fmt.Errorf("%w: time axis contains missing timestamps", dataset.ErrIntegrity)
	}

	var anchor time.Time
	if freq.Fixed() {
		anchor = truncateToUnit(ts[0], freq.Unit)
	}

	groups := make(map[int64][]int)
	labels := make(map[int64]time.Time)
	for i, t := range ts {
		start := h.windowStart(t, freq, anchor)
		key := start.UnixNano()
		groups[key] = append(groups[key], i)
		labels[key] = start
	}

	keys := make([]int64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	windows := make([]Window, len(keys))
	starts := make(dataset.StdTimes, len(keys))
	for i, k := range keys {
		windows[i] = Window{Indices: groups[k]}
		starts[i] = labels[k]
	}
	return windows, starts, nil
}

func (h *StandardHandler) AddOffset(tv dataset.TimeValues, freq Frequency) (dataset.TimeValues, error) {
	ts, err := stdTimesOf(tv)
	if err != nil {
		return nil, err
	}
	out := make(dataset.StdTimes, len(ts))
	for i, t := range ts {
		if t.IsZero() {
			continue
		}
		if freq.Fixed() {
			out[i] = t.Add(freq.Duration())
		} else {
			out[i] = t.AddDate(0, freq.Months(), 0)
		}
	}
	return out, nil
}

func (h *StandardHandler) Average(a, b dataset.TimeValues) (dataset.TimeValues, error) {
	as, err := stdTimesOf(a)
	if err != nil {
		return nil, err
	}
	bs, err := stdTimesOf(b)
	if err != nil {
		return nil, err
	}
	if len(as) != len(bs) {
		return nil, fmt.Errorf("%w: time axes of length %d and %d", dataset.ErrConfiguration, len(as), len(bs))
	}
	out := make(dataset.StdTimes, len(as))
	for i := range as {
		if as[i].IsZero() || bs[i].IsZero() {
			continue
		}
		out[i] = as[i].Add(bs[i].Sub(as[i]) / 2)
	}
	return out, nil
}

func (h *StandardHandler) CenterTimeAxis(ds *dataset.Dataset, freq Frequency) error {
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

func (h *StandardHandler) CheckWindowCompleteness(tv dataset.TimeValues, freq Frequency) ([]bool, error) {
	dataFreq, err := h.InferFreq(tv)
	if err != nil {
		return nil, err
	}
	if dataFreq.Fixed() && dataFreq.Duration() <= 0 {
		return nil, fmt.Errorf("%w: data frequency %s has no duration", dataset.ErrConfiguration, dataFreq.String())
	}
	windows, startsTV, err := h.Resample(tv, freq)
	if err != nil {
		return nil, err
	}
	starts := startsTV.(dataset.StdTimes)

	complete := make([]bool, len(windows))
	anyComplete := false
	for i, w := range windows {
		start := starts[i]
		var end time.Time
		if freq.Fixed() {
			end = start.Add(freq.Duration())
		} else {
			end = start.AddDate(0, freq.Months(), 0)
		}
		expected := 0
		for t := start; t.Before(end); t = stepStd(t, dataFreq) {
			expected++
		}
		actual := len(w.Indices)
		complete[i] = actual == expected
		if complete[i] {
			anyComplete = true
		} else {
			h.logger.Warn("excluding incomplete window",
				"window_start", start.Format(time.RFC3339),
				"expected", expected, "actual", actual)
		}
	}
	if !anyComplete && len(windows) > 0 {
		h.logger.Warn("no complete windows at requested frequency",
			"frequency", freq.String(), "data_frequency", dataFreq.String())
	}
	return complete, nil
}

func stepStd(t time.Time, f Frequency) time.Time {
	if f.Fixed() {
		return t.Add(f.Duration())
	}
	return t.AddDate(0, f.Months(), 0)
}

// WindowBounds pairs each window with the earliest and latest original
// samples it holds, not the ideal window edges: on sparse or trimmed input
// the bounds must report what the reduction actually saw.
func (h *StandardHandler) WindowBounds(tv dataset.TimeValues, windows []Window, _ Frequency) (dataset.TimeValues, error) {
	ts, err := stdTimesOf(tv)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, fmt.Errorf("%w: empty time axis", dataset.ErrInsufficientData)
	}
	out := make(dataset.StdTimes, 0, 2*len(windows))
	for _, w := range windows {
		if len(w.Indices) == 0 {
			return nil, fmt.Errorf("%w: empty aggregation window", dataset.ErrIntegrity)
		}
		lo, hi := ts[w.Indices[0]], ts[w.Indices[0]]
		for _, idx := range w.Indices[1:] {
			t := ts[idx]
			if t.Before(lo) {
				lo = t
			}
			if t.After(hi) {
				hi = t
			}
		}
		out = append(out, lo, hi)
	}
	return out, nil
}

func (h *StandardHandler) HasInvalid(tv dataset.TimeValues) bool {
	ts, ok := tv.(dataset.StdTimes)
	if !ok {
		return true
	}
	for _, t := range ts {
		if t.IsZero() {
			return true
		}
	}
	return false
}
