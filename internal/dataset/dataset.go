// Package dataset holds the in-memory labeled-array model the normalizer
// operates on: named variables over named dimensions, coordinates with
// attribute maps, and a time axis in one of two representations (standard
// calendar instants or calendar-tagged dates). The package never performs
// I/O; datasets arrive from upstream adapters fully built.
package dataset

import (
	"fmt"
	"time"

	"github.com/couchcryptid/climate-data-normalizer/internal/caltime"
)

// TimeCoordName is the canonical name of the time coordinate.
const TimeCoordName = "time"

// Attrs is a string-keyed attribute map (units, standard_name, axis, ...).
type Attrs map[string]string

// Clone returns a shallow copy so derived datasets never alias the input's
// attribute maps.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Get returns the attribute value or "" when absent.
func (a Attrs) Get(key string) string {
	if a == nil {
		return ""
	}
	return a[key]
}

// TimeValues abstracts the two supported time-axis representations.
// The concrete type of a coordinate's time values is what selects the
// calendar handler.
type TimeValues interface {
	Len() int
	// Slice returns the values at the given positions, order preserved.
	Slice(keep []int) TimeValues
}

// StdTimes is a time axis on the standard (proleptic Gregorian) calendar.
// The zero time.Time is the missing-timestamp sentinel.
type StdTimes []time.Time

func (t StdTimes) Len() int { return len(t) }

func (t StdTimes) Slice(keep []int) TimeValues {
	out := make(StdTimes, 0, len(keep))
	for _, i := range keep {
		out = append(out, t[i])
	}
	return out
}

// CalTimes is a time axis of calendar-tagged dates on a non-standard
// calendar. All entries of one axis must carry the same calendar; the zero
// Date is the missing-timestamp sentinel.
type CalTimes []caltime.Date

func (t CalTimes) Len() int { return len(t) }

func (t CalTimes) Slice(keep []int) TimeValues {
	out := make(CalTimes, 0, len(keep))
	for _, i := range keep {
		out = append(out, t[i])
	}
	return out
}

// Coordinate is a labeled coordinate variable. Numeric coordinates populate
// Values; time coordinates populate Times instead.
type Coordinate struct {
	Name   string
	Dims   []string
	Values []float64
	Times  TimeValues
	Attrs  Attrs
}

// IsTime reports whether the coordinate carries time values.
func (c *Coordinate) IsTime() bool {
	return c.Times != nil
}

// Variable is a data variable stored as a flat row-major array. When a
// variable depends on time, time must be its first dimension so that
// Shape[0] rows can be regrouped along the time axis. Timestamp-valued
// variables (time bounds) populate Times instead of Values.
type Variable struct {
	Name   string
	Dims   []string
	Shape  []int
	Values []float64
	Times  TimeValues
	Attrs  Attrs
}

// HasDim reports whether the variable depends on the named dimension.
func (v *Variable) HasDim(name string) bool {
	for _, d := range v.Dims {
		if d == name {
			return true
		}
	}
	return false
}

// NumRows returns the length of the leading dimension.
func (v *Variable) NumRows() int {
	if len(v.Shape) == 0 {
		return 0
	}
	return v.Shape[0]
}

// RowLen returns the number of cells per leading-dimension step.
func (v *Variable) RowLen() int {
	n := 1
	for _, s := range v.Shape[1:] {
		n *= s
	}
	return n
}

// Row returns the i-th slab along the leading dimension as a slice view.
func (v *Variable) Row(i int) []float64 {
	rl := v.RowLen()
	return v.Values[i*rl : (i+1)*rl]
}

// Validate checks internal consistency of dims, shape, and storage.
func (v *Variable) Validate() error {
	if len(v.Dims) != len(v.Shape) {
		return fmt.Errorf("%w: variable %q has %d dims but %d shape entries", ErrConfiguration, v.Name, len(v.Dims), len(v.Shape))
	}
	n := 1
	for _, s := range v.Shape {
		if s < 0 {
			return fmt.Errorf("%w: variable %q has negative shape entry", ErrConfiguration, v.Name)
		}
		n *= s
	}
	stored := len(v.Values)
	if v.Times != nil {
		stored = v.Times.Len()
	}
	if stored != n {
		return fmt.Errorf("%w: variable %q stores %d values for shape %v", ErrConfiguration, v.Name, stored, v.Shape)
	}
	return nil
}

// Dataset is the labeled container handed to the normalization core. The
// core treats it as immutable and produces new datasets.
type Dataset struct {
	Coords map[string]*Coordinate
	Vars   map[string]*Variable
	Attrs  Attrs
}

// New returns an empty dataset with initialized maps.
func New() *Dataset {
	return &Dataset{
		Coords: make(map[string]*Coordinate),
		Vars:   make(map[string]*Variable),
		Attrs:  make(Attrs),
	}
}

// TimeCoord returns the time coordinate, or nil when the dataset has none.
func (d *Dataset) TimeCoord() *Coordinate {
	c, ok := d.Coords[TimeCoordName]
	if !ok || !c.IsTime() {
		return nil
	}
	return c
}
