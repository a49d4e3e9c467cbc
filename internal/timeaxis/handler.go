package timeaxis

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

// Window is one aggregation bucket: the positions of the input samples that
// fall inside it. Windows with no samples are never emitted.
type Window struct {
	Indices []int
}

// Handler hides the calendar behind a uniform time-axis interface. A handler
// operates on dataset.TimeValues of its own concrete kind; passing the other
// kind is a configuration error.
type Handler interface {
	// Name identifies the handler in logs and provenance history.
	Name() string

	// InferFreq derives the sampling frequency from consecutive time steps.
	InferFreq(tv dataset.TimeValues) (Frequency, error)

	// Resample groups samples into half-open windows of the given frequency
	// and returns each window's member indices alongside the window start
	// labels, ordered by start.
	Resample(tv dataset.TimeValues, freq Frequency) ([]Window, dataset.TimeValues, error)

	// AddOffset shifts every value forward by one frequency step. Missing
	// values stay missing.
	AddOffset(tv dataset.TimeValues, freq Frequency) (dataset.TimeValues, error)

	// Average returns the element-wise midpoint of two equally long axes.
	Average(a, b dataset.TimeValues) (dataset.TimeValues, error)

	// CenterTimeAxis replaces the dataset's time labels with the midpoints
	// of each window implied by the frequency.
	CenterTimeAxis(ds *dataset.Dataset, freq Frequency) error

	// CheckWindowCompleteness reports, per window, whether the window holds
	// every sample its span and the data's native frequency call for.
	CheckWindowCompleteness(tv dataset.TimeValues, freq Frequency) ([]bool, error)

	// WindowBounds returns, per window, the earliest and latest original
	// samples it holds, as a flat interleaved axis: lo0, hi0, lo1, hi1, ...
	WindowBounds(tv dataset.TimeValues, windows []Window, freq Frequency) (dataset.TimeValues, error)

	// HasInvalid reports whether the axis contains any missing value.
	HasInvalid(tv dataset.TimeValues) bool
}

// ForDataset picks the handler matching the dataset's time coordinate
// representation. Real-world timestamps get the standard handler; model
// calendar dates get the calendar handler.
func ForDataset(ds *dataset.Dataset, logger *slog.Logger) (Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tc := ds.TimeCoord()
	if tc == nil {
		return nil, fmt.Errorf("%w: dataset has no time coordinate", dataset.ErrConfiguration)
	}
	switch tc.Times.(type) {
	case dataset.StdTimes:
		logger.Debug("selected time handler", "handler", "standard")
		return NewStandardHandler(logger), nil
	case dataset.CalTimes:
		logger.Debug("selected time handler", "handler", "calendar")
		return NewCalendarHandler(logger), nil
	default:
		return nil, fmt.Errorf("%w: cannot determine time value type of coordinate %q", dataset.ErrConfiguration, tc.Name)
	}
}
