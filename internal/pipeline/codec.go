package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/couchcryptid/climate-data-normalizer/internal/caltime"
	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

// The wire format is JSON. Time axes travel either as RFC 3339 strings
// (standard calendar) or as calendar-tagged date records (model calendars);
// a coordinate or variable carries at most one of the two.

type wireDate struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Day      int    `json:"day"`
	Hour     int    `json:"hour,omitempty"`
	Minute   int    `json:"minute,omitempty"`
	Second   int    `json:"second,omitempty"`
	Calendar string `json:"calendar"`
}

type wireCoordinate struct {
	Name   string            `json:"name"`
	Dims   []string          `json:"dims"`
	Values []float64         `json:"values,omitempty"`
	Times  []string          `json:"times,omitempty"`
	Dates  []wireDate        `json:"dates,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

type wireVariable struct {
	Name   string            `json:"name"`
	Dims   []string          `json:"dims"`
	Shape  []int             `json:"shape"`
	Values []float64         `json:"values,omitempty"`
	Times  []string          `json:"times,omitempty"`
	Dates  []wireDate        `json:"dates,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

type wireDataset struct {
	ID     string            `json:"id"`
	Coords []wireCoordinate  `json:"coords"`
	Vars   []wireVariable    `json:"vars"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// DecodeDataset parses a wire message into a dataset.
func DecodeDataset(data []byte) (string, *dataset.Dataset, error) {
	var wire wireDataset
	if err := json.Unmarshal(data, &wire); err != nil {
		return "", nil, fmt.Errorf("%w: decoding dataset: %v", dataset.ErrConfiguration, err)
	}

	ds := dataset.New()
	ds.Attrs = dataset.Attrs(wire.Attrs)
	if ds.Attrs == nil {
		ds.Attrs = make(dataset.Attrs)
	}

	for _, wc := range wire.Coords {
		times, err := decodeTimes(wc.Times, wc.Dates)
		if err != nil {
			return "", nil, fmt.Errorf("coordinate %q: %w", wc.Name, err)
		}
		ds.Coords[wc.Name] = &dataset.Coordinate{
			Name:   wc.Name,
			Dims:   wc.Dims,
			Values: wc.Values,
			Times:  times,
			Attrs:  dataset.Attrs(wc.Attrs),
		}
	}

	for _, wv := range wire.Vars {
		times, err := decodeTimes(wv.Times, wv.Dates)
		if err != nil {
			return "", nil, fmt.Errorf("variable %q: %w", wv.Name, err)
		}
		v := &dataset.Variable{
			Name:   wv.Name,
			Dims:   wv.Dims,
			Shape:  wv.Shape,
			Values: wv.Values,
			Times:  times,
			Attrs:  dataset.Attrs(wv.Attrs),
		}
		if err := v.Validate(); err != nil {
			return "", nil, err
		}
		ds.Vars[wv.Name] = v
	}

	return wire.ID, ds, nil
}

// EncodeDataset serializes a dataset for the sink topic. Coordinates and
// variables are emitted in name order so encoding is deterministic.
func EncodeDataset(id string, ds *dataset.Dataset) ([]byte, error) {
	wire := wireDataset{ID: id, Attrs: ds.Attrs}

	coordNames := sortedKeys(ds.Coords)
	for _, name := range coordNames {
		c := ds.Coords[name]
		times, dates := encodeTimes(c.Times)
		wire.Coords = append(wire.Coords, wireCoordinate{
			Name: c.Name, Dims: c.Dims, Values: c.Values,
			Times: times, Dates: dates, Attrs: c.Attrs,
		})
	}

	varNames := sortedKeys(ds.Vars)
	for _, name := range varNames {
		v := ds.Vars[name]
		times, dates := encodeTimes(v.Times)
		wire.Vars = append(wire.Vars, wireVariable{
			Name: v.Name, Dims: v.Dims, Shape: v.Shape, Values: v.Values,
			Times: times, Dates: dates, Attrs: v.Attrs,
		})
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encoding dataset %q: %w", id, err)
	}
	return data, nil
}

// decodeTimes turns at most one of the two wire time representations into a
// time axis. An empty string or a zero date record marks a missing value.
func decodeTimes(times []string, dates []wireDate) (dataset.TimeValues, error) {
	if len(times) > 0 && len(dates) > 0 {
		return nil, fmt.Errorf("%w: both times and dates present", dataset.ErrConfiguration)
	}
	if len(times) > 0 {
		out := make(dataset.StdTimes, len(times))
		for i, s := range times {
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("%w: timestamp %q: %v", dataset.ErrConfiguration, s, err)
			}
			out[i] = t
		}
		return out, nil
	}
	if len(dates) > 0 {
		out := make(dataset.CalTimes, len(dates))
		for i, wd := range dates {
			if wd == (wireDate{}) {
				continue
			}
			d, err := caltime.New(wd.Year, wd.Month, wd.Day, wd.Hour, wd.Minute, wd.Second, wd.Calendar)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", dataset.ErrConfiguration, err)
			}
			out[i] = d
		}
		return out, nil
	}
	return nil, nil
}

func encodeTimes(tv dataset.TimeValues) ([]string, []wireDate) {
	switch ts := tv.(type) {
	case dataset.StdTimes:
		out := make([]string, len(ts))
		for i, t := range ts {
			if !t.IsZero() {
				out[i] = t.Format(time.RFC3339)
			}
		}
		return out, nil
	case dataset.CalTimes:
		out := make([]wireDate, len(ts))
		for i, d := range ts {
			if d.IsZero() {
				continue
			}
			out[i] = wireDate{
				Year: d.Year, Month: d.Month, Day: d.Day,
				Hour: d.Hour, Minute: d.Minute, Second: d.Second,
				Calendar: d.Calendar,
			}
		}
		return nil, out
	default:
		return nil, nil
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
