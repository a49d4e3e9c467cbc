// Package caltime implements datetime arithmetic for the fixed-length model
// calendars used by climate simulations (360-day, no-leap, all-leap). The
// standard proleptic Gregorian calendar is handled elsewhere with time.Time;
// this package exists because time.Time cannot represent a year with 360 days.
package caltime

import (
	"fmt"
	"math"
)

// Calendar names follow the CF conventions vocabulary.
const (
	Calendar360Day  = "360_day"
	CalendarNoLeap  = "noleap"
	Calendar365Day  = "365_day"
	CalendarAllLeap = "all_leap"
	Calendar366Day  = "366_day"
)

// epochYear anchors numeric conversions. Day offsets are counted from
// January 1st of this year under the date's own calendar; converting to and
// from the epoch with the same calendar is what keeps midpoint arithmetic
// from drifting.
const epochYear = 1850

// standardMonthDays is the no-leap month-length table. The all-leap calendar
// uses the same table with February at 29; the 360-day calendar ignores it.
var standardMonthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Date is a datetime tagged with a named non-standard calendar.
// The zero Date is the invalid/missing sentinel.
type Date struct {
	Year     int
	Month    int // 1..12
	Day      int // 1..days-in-month
	Hour     int
	Minute   int
	Second   int
	Calendar string
}

// New builds a validated Date.
func New(year, month, day, hour, minute, second int, calendar string) (Date, error) {
	d := Date{Year: year, Month: month, Day: day, Hour: hour, Minute: minute, Second: second, Calendar: calendar}
	if err := d.Validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

// IsZero reports whether d is the invalid/missing sentinel.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Validate checks that the calendar is known and all fields are in range.
func (d Date) Validate() error {
	dim, err := DaysInMonth(d.Calendar, d.Month)
	if err != nil {
		return err
	}
	if d.Day < 1 || d.Day > dim {
		return fmt.Errorf("caltime: day %d out of range for month %d of calendar %q", d.Day, d.Month, d.Calendar)
	}
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 || d.Second < 0 || d.Second > 59 {
		return fmt.Errorf("caltime: time %02d:%02d:%02d out of range", d.Hour, d.Minute, d.Second)
	}
	return nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d [%s]", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, d.Calendar)
}

// DaysInYear returns the fixed year length of the calendar.
func DaysInYear(calendar string) (int, error) {
	switch calendar {
	case Calendar360Day:
		return 360, nil
	case CalendarNoLeap, Calendar365Day:
		return 365, nil
	case CalendarAllLeap, Calendar366Day:
		return 366, nil
	default:
		return 0, fmt.Errorf("caltime: unknown calendar %q", calendar)
	}
}

// DaysInMonth returns the month length under the calendar.
func DaysInMonth(calendar string, month int) (int, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("caltime: month %d out of range", month)
	}
	switch calendar {
	case Calendar360Day:
		return 30, nil
	case CalendarNoLeap, Calendar365Day:
		return standardMonthDays[month-1], nil
	case CalendarAllLeap, Calendar366Day:
		if month == 2 {
			return 29, nil
		}
		return standardMonthDays[month-1], nil
	default:
		return 0, fmt.Errorf("caltime: unknown calendar %q", calendar)
	}
}

// EpochDays converts d to fractional days since the epoch under its own
// calendar's day-length rules.
func (d Date) EpochDays() (float64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	ypd, err := DaysInYear(d.Calendar)
	if err != nil {
		return 0, err
	}
	days := float64((d.Year - epochYear) * ypd)
	for m := 1; m < d.Month; m++ {
		dim, _ := DaysInMonth(d.Calendar, m)
		days += float64(dim)
	}
	days += float64(d.Day - 1)
	days += (float64(d.Hour)*3600 + float64(d.Minute)*60 + float64(d.Second)) / 86400.0
	return days, nil
}

// FromEpochDays is the inverse of EpochDays for the given calendar.
// Sub-second remainders are rounded to the nearest second.
func FromEpochDays(days float64, calendar string) (Date, error) {
	ypd, err := DaysInYear(calendar)
	if err != nil {
		return Date{}, err
	}
	whole := int(math.Floor(days))
	year := epochYear + floorDiv(whole, ypd)
	dayOfYear := whole - (year-epochYear)*ypd

	month := 1
	for {
		dim, _ := DaysInMonth(calendar, month)
		if dayOfYear < dim {
			break
		}
		dayOfYear -= dim
		month++
	}

	secs := int(math.Round((days - float64(whole)) * 86400.0))
	if secs >= 86400 {
		// Rounding pushed past midnight.
		return FromEpochDays(float64(whole+1), calendar)
	}

	return Date{
		Year:     year,
		Month:    month,
		Day:      dayOfYear + 1,
		Hour:     secs / 3600,
		Minute:   (secs % 3600) / 60,
		Second:   secs % 60,
		Calendar: calendar,
	}, nil
}

// Sub returns d minus o in fractional days. Both dates must carry the same
// calendar.
func (d Date) Sub(o Date) (float64, error) {
	if d.Calendar != o.Calendar {
		return 0, fmt.Errorf("caltime: cannot subtract dates of calendars %q and %q", o.Calendar, d.Calendar)
	}
	a, err := d.EpochDays()
	if err != nil {
		return 0, err
	}
	b, err := o.EpochDays()
	if err != nil {
		return 0, err
	}
	return a - b, nil
}

// Before reports whether d precedes o. Dates are assumed to share a calendar.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	if d.Day != o.Day {
		return d.Day < o.Day
	}
	if d.Hour != o.Hour {
		return d.Hour < o.Hour
	}
	if d.Minute != o.Minute {
		return d.Minute < o.Minute
	}
	return d.Second < o.Second
}

// After reports whether d follows o.
func (d Date) After(o Date) bool {
	return o.Before(d)
}

// AddDays advances d by a (possibly fractional, possibly negative) number of
// days via the epoch conversion.
func (d Date) AddDays(days float64) (Date, error) {
	epd, err := d.EpochDays()
	if err != nil {
		return Date{}, err
	}
	return FromEpochDays(epd+days, d.Calendar)
}

// AddMonths advances d by n calendar months with proper rollover, clamping
// the day to the target month's length.
func (d Date) AddMonths(n int) Date {
	m := d.Month - 1 + n
	year := d.Year + floorDiv(m, 12)
	month := mod(m, 12) + 1
	day := d.Day
	if dim, err := DaysInMonth(d.Calendar, month); err == nil && day > dim {
		day = dim
	}
	return Date{Year: year, Month: month, Day: day, Hour: d.Hour, Minute: d.Minute, Second: d.Second, Calendar: d.Calendar}
}

// AddYears advances d by n calendar years.
func (d Date) AddYears(n int) Date {
	return d.AddMonths(12 * n)
}

// Midpoint returns the instant halfway between a and b, computed on the
// numeric day axis of their shared calendar.
func Midpoint(a, b Date) (Date, error) {
	if a.Calendar != b.Calendar {
		return Date{}, fmt.Errorf("caltime: cannot average dates of calendars %q and %q", a.Calendar, b.Calendar)
	}
	da, err := a.EpochDays()
	if err != nil {
		return Date{}, err
	}
	db, err := b.EpochDays()
	if err != nil {
		return Date{}, err
	}
	return FromEpochDays((da+db)/2, a.Calendar)
}

// StartOfDay truncates d to midnight.
func (d Date) StartOfDay() Date {
	d.Hour, d.Minute, d.Second = 0, 0, 0
	return d
}

// StartOfMonth truncates d to the first of the month.
func (d Date) StartOfMonth() Date {
	d.Day = 1
	return d.StartOfDay()
}

// StartOfYear truncates d to January 1st.
func (d Date) StartOfYear() Date {
	d.Month = 1
	return d.StartOfMonth()
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
