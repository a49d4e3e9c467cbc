// Package timeaxis abstracts the time dimension of a dataset behind a
// calendar-aware handler so that resampling works identically for real-world
// timestamps and for model calendars (360-day, no-leap, all-leap).
package timeaxis

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

// Unit is the granularity of an aggregation window.
type Unit int

const (
	UnitMinute Unit = iota
	UnitHour
	UnitDay
	UnitMonth
	UnitQuarter
	UnitYear
)

func (u Unit) code() string {
	switch u {
	case UnitMinute:
		return "min"
	case UnitHour:
		return "h"
	case UnitDay:
		return "D"
	case UnitMonth:
		return "MS"
	case UnitQuarter:
		return "QS"
	case UnitYear:
		return "YS"
	default:
		return "?"
	}
}

// Frequency is a window length: N units. N is always >= 1.
type Frequency struct {
	N    int
	Unit Unit
}

// String renders the frequency in offset-alias form ("h", "D", "MS", "3MS").
func (f Frequency) String() string {
	if f.N == 1 {
		return f.Unit.code()
	}
	return strconv.Itoa(f.N) + f.Unit.code()
}

// Fixed reports whether the frequency has a constant physical duration.
// Month, quarter, and year lengths vary with the calendar.
func (f Frequency) Fixed() bool {
	switch f.Unit {
	case UnitMinute, UnitHour, UnitDay:
		return true
	default:
		return false
	}
}

// Duration returns the physical length of a fixed frequency. It is only
// meaningful when Fixed() is true.
func (f Frequency) Duration() time.Duration {
	switch f.Unit {
	case UnitMinute:
		return time.Duration(f.N) * time.Minute
	case UnitHour:
		return time.Duration(f.N) * time.Hour
	case UnitDay:
		return time.Duration(f.N) * 24 * time.Hour
	default:
		return 0
	}
}

// Months returns the window length in calendar months. It is only meaningful
// for month, quarter, and year frequencies.
func (f Frequency) Months() int {
	switch f.Unit {
	case UnitMonth:
		return f.N
	case UnitQuarter:
		return 3 * f.N
	case UnitYear:
		return 12 * f.N
	default:
		return 0
	}
}

// frequencyWords maps human-friendly frequency names to canonical
// frequencies. Weekly and pentad aggregations are expressed as fixed-length
// day windows.
var frequencyWords = map[string]Frequency{
	"hourly":    {1, UnitHour},
	"daily":     {1, UnitDay},
	"pentad":    {5, UnitDay},
	"weekly":    {7, UnitDay},
	"monthly":   {1, UnitMonth},
	"quarterly": {1, UnitQuarter},
	"seasonal":  {1, UnitQuarter},
	"yearly":    {1, UnitYear},
	"annual":    {1, UnitYear},
}

var frequencyCodes = map[string]Unit{
	"min": UnitMinute,
	"t":   UnitMinute,
	"h":   UnitHour,
	"d":   UnitDay,
	"ms":  UnitMonth,
	"m":   UnitMonth,
	"qs":  UnitQuarter,
	"q":   UnitQuarter,
	"ys":  UnitYear,
	"y":   UnitYear,
	"a":   UnitYear,
}

// ParseFrequency accepts either a frequency word ("monthly", "pentad") or an
// offset alias with an optional multiplier ("h", "D", "3MS", "6h").
func ParseFrequency(s string) (Frequency, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return Frequency{}, fmt.Errorf("%w: empty frequency", dataset.ErrConfiguration)
	}
	if f, ok := frequencyWords[key]; ok {
		return f, nil
	}

	digits := 0
	for digits < len(key) && key[digits] >= '0' && key[digits] <= '9' {
		digits++
	}
	n := 1
	if digits > 0 {
		v, err := strconv.Atoi(key[:digits])
		if err != nil || v < 1 {
			return Frequency{}, fmt.Errorf("%w: invalid frequency multiplier in %q", dataset.ErrConfiguration, s)
		}
		n = v
	}
	unit, ok := frequencyCodes[key[digits:]]
	if !ok {
		return Frequency{}, fmt.Errorf("%w: unrecognized frequency %q", dataset.ErrConfiguration, s)
	}
	return Frequency{N: n, Unit: unit}, nil
}
