package dataset

import "errors"

// Error taxonomy shared by the normalization core. Errors are wrapped with
// fmt.Errorf("...: %w", sentinel) and checked with errors.Is.
var (
	// ErrConfiguration marks unusable input: wrong container types, a
	// missing time coordinate, an unknown statistic, or an unresolvable
	// calendar. Not retryable with the same arguments.
	ErrConfiguration = errors.New("configuration error")

	// ErrInsufficientData marks inputs too short for the requested
	// operation, such as frequency inference on fewer than two samples.
	// Recoverable by the caller with different parameters.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrIntegrity marks invalid or missing timestamps surviving into a
	// result. It signals a resampling bug or malformed input; no partial
	// dataset is returned alongside it.
	ErrIntegrity = errors.New("data integrity error")
)
