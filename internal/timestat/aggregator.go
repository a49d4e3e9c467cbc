package timestat

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
	"github.com/couchcryptid/climate-data-normalizer/internal/timeaxis"
)

// BoundsVarName is the variable holding each window's first and last sample.
const BoundsVarName = "time_bnds"

// binDimName replaces the spatial dimensions of a variable whose reducer
// changes the row length.
const binDimName = "bin"

// Options control the optional aggregation behaviors. All default to off.
type Options struct {
	// ExcludeIncomplete drops windows that do not hold every sample their
	// span and the data's native frequency call for.
	ExcludeIncomplete bool

	// CenterTime relabels each window at its temporal midpoint instead of
	// its start.
	CenterTime bool

	// TimeBounds attaches a time_bnds variable pairing each window with the
	// earliest and latest original samples it reduced.
	TimeBounds bool
}

// Aggregator reduces datasets along their time axis. The zero value is not
// usable; construct with NewAggregator.
type Aggregator struct {
	logger *slog.Logger
	clock  clockwork.Clock
}

func NewAggregator(logger *slog.Logger, clock clockwork.Clock) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Aggregator{logger: logger, clock: clock}
}

// Aggregate reduces every time-dependent variable of ds into windows of the
// requested frequency. An empty frequency reduces the whole series to a
// single timeless value per variable, ignoring all options. The input
// dataset is never modified.
func (a *Aggregator) Aggregate(ds *dataset.Dataset, stat Statistic, freq string, opts Options) (*dataset.Dataset, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset", dataset.ErrConfiguration)
	}
	if stat.Func == nil {
		return nil, fmt.Errorf("%w: statistic %q has no reducer", dataset.ErrConfiguration, stat.Name)
	}
	handler, err := timeaxis.ForDataset(ds, a.logger)
	if err != nil {
		return nil, err
	}
	tc := ds.TimeCoord()
	n := tc.Times.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty time axis", dataset.ErrInsufficientData)
	}

	origFreq := "unknown"
	if n == 1 {
		a.logger.Warn("time axis has a single timestep, frequency undeterminable")
		opts.ExcludeIncomplete = false
	} else if f, err := handler.InferFreq(tc.Times); err == nil {
		origFreq = f.String()
	} else {
		a.logger.Warn("could not infer input frequency", "error", err)
	}

	if freq == "" {
		if opts.ExcludeIncomplete || opts.CenterTime || opts.TimeBounds {
			a.logger.Warn("whole-series reduction has no windows, ignoring window options",
				"exclude_incomplete", opts.ExcludeIncomplete,
				"center_time", opts.CenterTime,
				"time_bounds", opts.TimeBounds)
		}
		return a.aggregateWhole(ds, handler, stat, origFreq)
	}

	f, err := timeaxis.ParseFrequency(freq)
	if err != nil {
		return nil, err
	}

	windows, starts, err := handler.Resample(tc.Times, f)
	if err != nil {
		return nil, err
	}

	if opts.ExcludeIncomplete {
		complete, err := handler.CheckWindowCompleteness(tc.Times, f)
		if err != nil {
			return nil, err
		}
		windows, starts = filterWindows(windows, starts, complete)
	}

	out, err := a.reduceWindows(ds, windows, starts, stat)
	if err != nil {
		return nil, err
	}

	if opts.TimeBounds && len(windows) > 0 {
		bounds, err := handler.WindowBounds(tc.Times, windows, f)
		if err != nil {
			return nil, err
		}
		if handler.HasInvalid(bounds) {
			return nil, fmt.Errorf("%w: computed time bounds contain missing values", dataset.ErrIntegrity)
		}
		out.Vars[BoundsVarName] = &dataset.Variable{
			Name:  BoundsVarName,
			Dims:  []string{dataset.TimeCoordName, "bnds"},
			Shape: []int{len(windows), 2},
			Times: bounds,
		}
	}

	if opts.CenterTime && len(windows) > 0 {
		if err := handler.CenterTimeAxis(out, f); err != nil {
			return nil, err
		}
	}

	if otc := out.TimeCoord(); otc != nil && handler.HasInvalid(otc.Times) {
		return nil, fmt.Errorf("%w: output time axis contains missing values", dataset.ErrIntegrity)
	}

	a.appendHistory(out, fmt.Sprintf("resampled from frequency %s to frequency %s by stat %s", origFreq, f.String(), stat.Name))
	if opts.TimeBounds && len(windows) > 0 {
		a.appendHistory(out, "added time bounds to the aggregated time axis")
	}

	a.logger.Info("temporal aggregation done",
		"stat", stat.Name, "frequency", f.String(),
		"input_steps", n, "output_steps", len(windows))
	return out, nil
}

// aggregateWhole reduces the entire series to one value per variable and
// drops the time dimension from the result.
func (a *Aggregator) aggregateWhole(ds *dataset.Dataset, handler timeaxis.Handler, stat Statistic, origFreq string) (*dataset.Dataset, error) {
	tc := ds.TimeCoord()
	if handler.HasInvalid(tc.Times) {
		return nil, fmt.Errorf("%w: time axis contains missing timestamps", dataset.ErrIntegrity)
	}
	n := tc.Times.Len()
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	out := dataset.New()
	out.Attrs = ds.Attrs.Clone()
	if out.Attrs == nil {
		out.Attrs = make(dataset.Attrs)
	}
	for name, c := range ds.Coords {
		if c.IsTime() {
			continue
		}
		out.Coords[name] = copyCoord(c)
	}

	for name, v := range ds.Vars {
		if !v.HasDim(dataset.TimeCoordName) {
			out.Vars[name] = copyVar(v)
			continue
		}
		if v.Times != nil {
			// Stale bounds do not survive re-aggregation.
			continue
		}
		if v.NumRows() != n {
			return nil, fmt.Errorf("%w: variable %q has %d timesteps, time axis has %d", dataset.ErrConfiguration, name, v.NumRows(), n)
		}
		row, err := a.reduceOne(v, all, stat)
		if err != nil {
			return nil, err
		}
		nv := &dataset.Variable{Name: name, Values: row, Attrs: v.Attrs.Clone()}
		if len(row) == v.RowLen() {
			nv.Dims = append([]string(nil), v.Dims[1:]...)
			nv.Shape = append([]int(nil), v.Shape[1:]...)
		} else {
			nv.Dims = []string{binDimName}
			nv.Shape = []int{len(row)}
		}
		out.Vars[name] = nv
	}

	a.appendHistory(out, fmt.Sprintf("reduced from frequency %s over the entire period by stat %s", origFreq, stat.Name))
	a.logger.Info("whole-series reduction done", "stat", stat.Name, "input_steps", n)
	return out, nil
}

// reduceWindows builds the output dataset: reduced variables, a time axis of
// window labels, and untouched non-time coordinates and variables.
func (a *Aggregator) reduceWindows(ds *dataset.Dataset, windows []timeaxis.Window, starts dataset.TimeValues, stat Statistic) (*dataset.Dataset, error) {
	tc := ds.TimeCoord()
	n := tc.Times.Len()

	out := dataset.New()
	out.Attrs = ds.Attrs.Clone()
	if out.Attrs == nil {
		out.Attrs = make(dataset.Attrs)
	}
	for name, c := range ds.Coords {
		if c.IsTime() {
			continue
		}
		out.Coords[name] = copyCoord(c)
	}
	out.Coords[dataset.TimeCoordName] = &dataset.Coordinate{
		Name:  dataset.TimeCoordName,
		Dims:  []string{dataset.TimeCoordName},
		Times: starts,
		Attrs: tc.Attrs.Clone(),
	}

	for name, v := range ds.Vars {
		if !v.HasDim(dataset.TimeCoordName) {
			out.Vars[name] = copyVar(v)
			continue
		}
		if v.Times != nil {
			continue
		}
		if v.NumRows() != n {
			return nil, fmt.Errorf("%w: variable %q has %d timesteps, time axis has %d", dataset.ErrConfiguration, name, v.NumRows(), n)
		}

		rows := make([][]float64, 0, len(windows))
		outLen := -1
		for _, w := range windows {
			row, err := a.reduceOne(v, w.Indices, stat)
			if err != nil {
				return nil, err
			}
			if outLen == -1 {
				outLen = len(row)
			} else if len(row) != outLen {
				return nil, fmt.Errorf("%w: statistic %q returned rows of varying length for variable %q", dataset.ErrConfiguration, stat.Name, name)
			}
			rows = append(rows, row)
		}

		nv := &dataset.Variable{Name: name, Attrs: v.Attrs.Clone()}
		if outLen == -1 || outLen == v.RowLen() {
			nv.Dims = append([]string(nil), v.Dims...)
			nv.Shape = append([]int(nil), v.Shape...)
			nv.Shape[0] = len(windows)
		} else {
			nv.Dims = []string{dataset.TimeCoordName, binDimName}
			nv.Shape = []int{len(windows), outLen}
		}
		flat := make([]float64, 0, len(rows)*max(outLen, 0))
		for _, row := range rows {
			flat = append(flat, row...)
		}
		nv.Values = flat
		out.Vars[name] = nv
	}
	return out, nil
}

func (a *Aggregator) reduceOne(v *dataset.Variable, indices []int, stat Statistic) ([]float64, error) {
	samples := make([][]float64, len(indices))
	for i, idx := range indices {
		samples[i] = v.Row(idx)
	}
	row, err := stat.Func(samples, stat.Args)
	if err != nil {
		return nil, fmt.Errorf("aggregating variable %q: %w", v.Name, err)
	}
	return row, nil
}

func (a *Aggregator) appendHistory(ds *dataset.Dataset, msg string) {
	line := a.clock.Now().UTC().Format("2006-01-02 15:04:05") + " normalizer: " + msg
	if prev := ds.Attrs.Get("history"); prev != "" {
		ds.Attrs["history"] = prev + "\n" + line
	} else {
		ds.Attrs["history"] = line
	}
}

func filterWindows(windows []timeaxis.Window, starts dataset.TimeValues, complete []bool) ([]timeaxis.Window, dataset.TimeValues) {
	kept := make([]timeaxis.Window, 0, len(windows))
	keptIdx := make([]int, 0, len(windows))
	for i, w := range windows {
		if complete[i] {
			kept = append(kept, w)
			keptIdx = append(keptIdx, i)
		}
	}
	return kept, starts.Slice(keptIdx)
}

func copyCoord(c *dataset.Coordinate) *dataset.Coordinate {
	return &dataset.Coordinate{
		Name:   c.Name,
		Dims:   append([]string(nil), c.Dims...),
		Values: append([]float64(nil), c.Values...),
		Times:  c.Times,
		Attrs:  c.Attrs.Clone(),
	}
}

func copyVar(v *dataset.Variable) *dataset.Variable {
	return &dataset.Variable{
		Name:   v.Name,
		Dims:   append([]string(nil), v.Dims...),
		Shape:  append([]int(nil), v.Shape...),
		Values: append([]float64(nil), v.Values...),
		Times:  v.Times,
		Attrs:  v.Attrs.Clone(),
	}
}
