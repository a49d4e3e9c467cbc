package coordid

import (
	"strings"

	"github.com/ctessum/unit"
)

// pressureDims is the dimension vector of the pascal: kg m^-1 s^-2.
var pressureDims = unit.Dimensions{
	unit.MassDim:   1,
	unit.LengthDim: -1,
	unit.TimeDim:   -2,
}

// knownUnits maps CF unit symbols to dimensioned quantities. Isobaric
// detection compares dimension vectors rather than strings, so "hPa",
// "mbar", and "atm" all register as pressures while "m" or "K" never do.
var knownUnits = map[string]*unit.Unit{
	"Pa":          unit.New(1, pressureDims),
	"pascal":      unit.New(1, pressureDims),
	"hPa":         unit.New(100, pressureDims),
	"hectopascal": unit.New(100, pressureDims),
	"kPa":         unit.New(1e3, pressureDims),
	"MPa":         unit.New(1e6, pressureDims),
	"mb":          unit.New(100, pressureDims),
	"mbar":        unit.New(100, pressureDims),
	"millibar":    unit.New(100, pressureDims),
	"bar":         unit.New(1e5, pressureDims),
	"atm":         unit.New(101325, pressureDims),

	"m":             unit.New(1, unit.Dimensions{unit.LengthDim: 1}),
	"meter":         unit.New(1, unit.Dimensions{unit.LengthDim: 1}),
	"meters":        unit.New(1, unit.Dimensions{unit.LengthDim: 1}),
	"cm":            unit.New(0.01, unit.Dimensions{unit.LengthDim: 1}),
	"km":            unit.New(1e3, unit.Dimensions{unit.LengthDim: 1}),
	"s":             unit.New(1, unit.Dimensions{unit.TimeDim: 1}),
	"K":             unit.New(1, unit.Dimensions{unit.TemperatureDim: 1}),
	"kg":            unit.New(1, unit.Dimensions{unit.MassDim: 1}),
	"degrees":       unit.New(1, unit.Dimensions{}),
	"degrees_north": unit.New(1, unit.Dimensions{}),
	"degrees_east":  unit.New(1, unit.Dimensions{}),
}

// IsPressureUnit reports whether the unit symbol is dimensionally a
// pressure.
func IsPressureUnit(symbol string) bool {
	u, ok := knownUnits[strings.TrimSpace(symbol)]
	if !ok {
		return false
	}
	return dimsEqual(u.Dimensions(), pressureDims)
}

// ConversionFactor returns the multiplier converting values in the from
// unit to the to unit. Both symbols must be known and share a dimension
// vector; otherwise ok is false.
func ConversionFactor(from, to string) (float64, bool) {
	fu, ok := knownUnits[strings.TrimSpace(from)]
	if !ok {
		return 0, false
	}
	tu, ok := knownUnits[strings.TrimSpace(to)]
	if !ok {
		return 0, false
	}
	if !dimsEqual(fu.Dimensions(), tu.Dimensions()) {
		return 0, false
	}
	if tu.Value() == 0 {
		return 0, false
	}
	return fu.Value() / tu.Value(), true
}

func dimsEqual(a, b unit.Dimensions) bool {
	for d, p := range a {
		if p != 0 && b[d] != p {
			return false
		}
	}
	for d, p := range b {
		if p != 0 && a[d] != p {
			return false
		}
	}
	return true
}
