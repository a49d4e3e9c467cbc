// Package timestat implements temporal aggregation: it regroups a dataset's
// time axis into windows of a requested frequency and reduces each window
// with a named or caller-supplied statistic.
package timestat

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

// Reducer collapses the samples of one window into a single output row.
// samples holds one row per timestep, all of equal length. The returned row
// is usually the same length; reducers that change it (histogram) cause the
// output variable to gain a bin dimension in place of its spatial ones.
type Reducer func(samples [][]float64, args map[string]float64) ([]float64, error)

// Statistic pairs a reducer with the name recorded in provenance history.
type Statistic struct {
	Name string
	Func Reducer
	Args map[string]float64
}

// Named resolves a built-in statistic by name.
func Named(name string) (Statistic, error) {
	switch name {
	case "mean":
		return Statistic{Name: name, Func: cellwise(stats.Mean)}, nil
	case "std":
		return Statistic{Name: name, Func: cellwise(stats.StandardDeviation)}, nil
	case "max":
		return Statistic{Name: name, Func: cellwise(stats.Max)}, nil
	case "min":
		return Statistic{Name: name, Func: cellwise(stats.Min)}, nil
	case "sum":
		return Statistic{Name: name, Func: cellwise(stats.Sum)}, nil
	case "histogram":
		return Statistic{Name: name, Func: histogramReducer}, nil
	default:
		return Statistic{}, fmt.Errorf("%w: unknown statistic %q", dataset.ErrConfiguration, name)
	}
}

// cellwise lifts a scalar reduction to per-cell application across the
// window's timesteps. NaN samples are treated as missing; a cell with no
// valid samples reduces to NaN.
func cellwise(fn func(stats.Float64Data) (float64, error)) Reducer {
	return func(samples [][]float64, _ map[string]float64) ([]float64, error) {
		if len(samples) == 0 {
			return nil, fmt.Errorf("%w: empty aggregation window", dataset.ErrInsufficientData)
		}
		rowLen := len(samples[0])
		out := make([]float64, rowLen)
		column := make([]float64, 0, len(samples))
		for j := 0; j < rowLen; j++ {
			column = column[:0]
			for _, row := range samples {
				if v := row[j]; !math.IsNaN(v) {
					column = append(column, v)
				}
			}
			if len(column) == 0 {
				out[j] = math.NaN()
				continue
			}
			v, err := fn(column)
			if err != nil {
				return nil, fmt.Errorf("reducing cell %d: %w", j, err)
			}
			out[j] = v
		}
		return out, nil
	}
}

// histogramReducer bins every value of the window (all timesteps, all cells)
// into a count-per-bin row. Args: bins (default 10), min and max (default
// the window's own data range). Values outside [min, max] and NaN values
// are skipped; a value exactly at max lands in the last bin.
func histogramReducer(samples [][]float64, args map[string]float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty aggregation window", dataset.ErrInsufficientData)
	}
	bins := 10
	if b, ok := args["bins"]; ok {
		if b < 1 {
			return nil, fmt.Errorf("%w: histogram needs at least one bin", dataset.ErrConfiguration)
		}
		bins = int(b)
	}

	lo, hi, ok := args["min"], args["max"], false
	if _, hasMin := args["min"]; hasMin {
		if _, hasMax := args["max"]; hasMax {
			ok = true
		}
	}
	if !ok {
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, row := range samples {
			for _, v := range row {
				if math.IsNaN(v) {
					continue
				}
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
		if lo > hi {
			return nil, fmt.Errorf("%w: histogram window holds no valid values", dataset.ErrInsufficientData)
		}
	}
	if hi < lo {
		return nil, fmt.Errorf("%w: histogram range [%g, %g] is inverted", dataset.ErrConfiguration, lo, hi)
	}

	counts := make([]float64, bins)
	width := (hi - lo) / float64(bins)
	for _, row := range samples {
		for _, v := range row {
			if math.IsNaN(v) || v < lo || v > hi {
				continue
			}
			idx := bins - 1
			if width > 0 && v < hi {
				idx = int((v - lo) / width)
			}
			if v == lo {
				idx = 0
			}
			counts[idx]++
		}
	}
	return counts, nil
}
