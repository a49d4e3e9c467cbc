package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-data-normalizer/internal/config"
	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
	"github.com/couchcryptid/climate-data-normalizer/internal/observability"
)

func normalizerConfig() *config.Config {
	return &config.Config{AggStat: "mean", AggFreq: "monthly"}
}

func newTestNormalizer(t *testing.T, cfg *config.Config, clock clockwork.Clock) *DatasetNormalizer {
	t.Helper()
	n, err := NewNormalizer(cfg, observability.NewMetricsForTesting(), testLogger(), clock)
	require.NoError(t, err)
	return n
}

// dailyJanuaryDataset builds a raw dataset with daily samples covering
// January 2024 on a 2x1 horizontal grid, with the latitude coordinate under
// its long conventional name so normalization has something to rename.
func dailyJanuaryDataset(t *testing.T) []byte {
	t.Helper()

	times := make(dataset.StdTimes, 31)
	values := make([]float64, 0, 31*2)
	for i := 0; i < 31; i++ {
		times[i] = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		values = append(values, float64(i), float64(2*i))
	}

	ds := dataset.New()
	ds.Coords["time"] = &dataset.Coordinate{
		Name: "time", Dims: []string{"time"}, Times: times,
		Attrs: dataset.Attrs{"standard_name": "time"},
	}
	ds.Coords["latitude"] = &dataset.Coordinate{
		Name: "latitude", Dims: []string{"latitude"}, Values: []float64{10, 20},
		Attrs: dataset.Attrs{"units": "degrees_north"},
	}
	ds.Coords["longitude"] = &dataset.Coordinate{
		Name: "longitude", Dims: []string{"longitude"}, Values: []float64{30},
		Attrs: dataset.Attrs{"units": "degrees_east"},
	}
	ds.Vars["t2m"] = &dataset.Variable{
		Name: "t2m", Dims: []string{"time", "latitude", "longitude"},
		Shape: []int{31, 2, 1}, Values: values,
	}

	data, err := EncodeDataset("era5-jan", ds)
	require.NoError(t, err)
	return data
}

func TestNormalizeEndToEnd(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC))
	n := newTestNormalizer(t, normalizerConfig(), clock)

	out, err := n.Normalize(context.Background(), RawMessage{Value: dailyJanuaryDataset(t)})
	require.NoError(t, err)

	assert.Equal(t, []byte("era5-jan"), out.Key)
	assert.Equal(t, "era5-jan", out.Headers["dataset_id"])
	assert.Equal(t, "regular", out.Headers["grid_type"])
	assert.Equal(t, "mean", out.Headers["stat"])
	assert.Equal(t, "2026-08-23T12:00:00Z", out.Headers["processed_at"])

	id, ds, err := DecodeDataset(out.Value)
	require.NoError(t, err)
	assert.Equal(t, "era5-jan", id)

	// Coordinates renamed to their canonical names.
	require.Contains(t, ds.Coords, "lat")
	require.Contains(t, ds.Coords, "lon")
	assert.NotContains(t, ds.Coords, "latitude")

	v := ds.Vars["t2m"]
	require.NotNil(t, v)
	assert.Equal(t, []string{"time", "lat", "lon"}, v.Dims)
	assert.Equal(t, []int{1, 2, 1}, v.Shape)
	// Mean of 0..30 is 15; the second cell holds doubled values.
	assert.Equal(t, []float64{15, 30}, v.Values)

	times, ok := ds.Coords["time"].Times.(dataset.StdTimes)
	require.True(t, ok)
	require.Len(t, times, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), times[0])

	assert.Contains(t, ds.Attrs.Get("history"), "resampled from frequency D to frequency MS by stat mean")
	assert.Equal(t, "regular", ds.Attrs.Get("grid_type"))
}

func TestNormalizeRecordsRoleOutcomes(t *testing.T) {
	n := newTestNormalizer(t, normalizerConfig(), clockwork.NewFakeClock())

	_, err := n.Normalize(context.Background(), RawMessage{Value: dailyJanuaryDataset(t)})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(n.metrics.RolesIdentified.WithLabelValues("latitude", "identified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(n.metrics.RolesIdentified.WithLabelValues("depth", "unidentified")))
}

func TestNormalizeRejectsMalformedPayload(t *testing.T) {
	n := newTestNormalizer(t, normalizerConfig(), clockwork.NewFakeClock())

	_, err := n.Normalize(context.Background(), RawMessage{Value: []byte("not json")})
	assert.ErrorIs(t, err, dataset.ErrConfiguration)
}

func TestNormalizeRejectsDatasetWithoutTimeAxis(t *testing.T) {
	ds := dataset.New()
	ds.Coords["lat"] = &dataset.Coordinate{
		Name: "lat", Dims: []string{"lat"}, Values: []float64{1},
		Attrs: dataset.Attrs{"units": "degrees_north"},
	}
	data, err := EncodeDataset("no-time", ds)
	require.NoError(t, err)

	n := newTestNormalizer(t, normalizerConfig(), clockwork.NewFakeClock())
	_, err = n.Normalize(context.Background(), RawMessage{Value: data})
	assert.ErrorIs(t, err, dataset.ErrConfiguration)
	assert.Contains(t, err.Error(), "no-time")
}

func TestNormalizeRespectsCancelledContext(t *testing.T) {
	n := newTestNormalizer(t, normalizerConfig(), clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := n.Normalize(ctx, RawMessage{Value: dailyJanuaryDataset(t)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewNormalizerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"unknown statistic", &config.Config{AggStat: "median-of-medians", AggFreq: "monthly"}},
		{"unknown frequency", &config.Config{AggStat: "mean", AggFreq: "fortnightly"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNormalizer(tt.cfg, observability.NewMetricsForTesting(), testLogger(), clockwork.NewFakeClock())
			assert.ErrorIs(t, err, dataset.ErrConfiguration)
		})
	}
}
