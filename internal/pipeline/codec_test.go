package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-data-normalizer/internal/caltime"
	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

func TestDecodeDatasetStandardTimes(t *testing.T) {
	data := []byte(`{
		"id": "era5-t2m",
		"coords": [
			{"name": "time", "dims": ["time"], "times": ["2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z"], "attrs": {"standard_name": "time"}},
			{"name": "lat", "dims": ["lat"], "values": [10, 20], "attrs": {"units": "degrees_north"}}
		],
		"vars": [
			{"name": "t2m", "dims": ["time", "lat"], "shape": [2, 2], "values": [1, 2, 3, 4]}
		],
		"attrs": {"source": "reanalysis"}
	}`)

	id, ds, err := DecodeDataset(data)
	require.NoError(t, err)
	assert.Equal(t, "era5-t2m", id)
	assert.Equal(t, "reanalysis", ds.Attrs.Get("source"))

	tc := ds.Coords["time"]
	require.NotNil(t, tc)
	times, ok := tc.Times.(dataset.StdTimes)
	require.True(t, ok)
	require.Len(t, times, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), times[1])

	v := ds.Vars["t2m"]
	require.NotNil(t, v)
	assert.Equal(t, []int{2, 2}, v.Shape)
	assert.Equal(t, []float64{1, 2, 3, 4}, v.Values)
}

func TestDecodeDatasetCalendarDates(t *testing.T) {
	data := []byte(`{
		"id": "cmip-360",
		"coords": [
			{"name": "time", "dims": ["time"], "dates": [
				{"year": 2000, "month": 1, "day": 30, "calendar": "360_day"},
				{"year": 2000, "month": 2, "day": 30, "calendar": "360_day"}
			]}
		],
		"vars": []
	}`)

	_, ds, err := DecodeDataset(data)
	require.NoError(t, err)

	times, ok := ds.Coords["time"].Times.(dataset.CalTimes)
	require.True(t, ok)
	require.Len(t, times, 2)
	assert.Equal(t, 30, times[0].Day)
	assert.Equal(t, "360_day", times[1].Calendar)
}

func TestDecodeDatasetMissingTimeSentinels(t *testing.T) {
	data := []byte(`{
		"id": "gaps",
		"coords": [
			{"name": "time", "dims": ["time"], "times": ["2024-01-01T00:00:00Z", "", "2024-01-03T00:00:00Z"]}
		],
		"vars": []
	}`)

	_, ds, err := DecodeDataset(data)
	require.NoError(t, err)

	times := ds.Coords["time"].Times.(dataset.StdTimes)
	assert.False(t, times[0].IsZero())
	assert.True(t, times[1].IsZero())
	assert.False(t, times[2].IsZero())
}

func TestDecodeDatasetRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{"id": "x"`},
		{"both times and dates", `{"id":"x","coords":[{"name":"time","dims":["time"],"times":["2024-01-01T00:00:00Z"],"dates":[{"year":2024,"month":1,"day":1,"calendar":"noleap"}]}],"vars":[]}`},
		{"bad timestamp", `{"id":"x","coords":[{"name":"time","dims":["time"],"times":["January 1st"]}],"vars":[]}`},
		{"bad calendar date", `{"id":"x","coords":[{"name":"time","dims":["time"],"dates":[{"year":2024,"month":2,"day":30,"calendar":"noleap"}]}],"vars":[]}`},
		{"shape mismatch", `{"id":"x","coords":[],"vars":[{"name":"t","dims":["a"],"shape":[3],"values":[1,2]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeDataset([]byte(tt.data))
			assert.ErrorIs(t, err, dataset.ErrConfiguration)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ds := dataset.New()
	ds.Attrs["history"] = "created"
	ds.Coords["time"] = &dataset.Coordinate{
		Name: "time",
		Dims: []string{"time"},
		Times: dataset.StdTimes{
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		Attrs: dataset.Attrs{"axis": "T"},
	}
	ds.Coords["lat"] = &dataset.Coordinate{
		Name: "lat", Dims: []string{"lat"}, Values: []float64{-45, 45},
		Attrs: dataset.Attrs{"units": "degrees_north"},
	}
	ds.Vars["pr"] = &dataset.Variable{
		Name: "pr", Dims: []string{"time", "lat"}, Shape: []int{2, 2},
		Values: []float64{0.1, 0.2, 0.3, 0.4},
	}

	data, err := EncodeDataset("round", ds)
	require.NoError(t, err)

	id, got, err := DecodeDataset(data)
	require.NoError(t, err)
	assert.Equal(t, "round", id)
	assert.Equal(t, ds.Attrs, got.Attrs)
	assert.Equal(t, ds.Coords["time"].Times, got.Coords["time"].Times)
	assert.Equal(t, ds.Coords["lat"].Values, got.Coords["lat"].Values)
	assert.Equal(t, ds.Vars["pr"].Values, got.Vars["pr"].Values)
}

func TestEncodeDecodeRoundTripCalendar(t *testing.T) {
	d1, err := caltime.New(2000, 1, 15, 12, 0, 0, "noleap")
	require.NoError(t, err)
	d2, err := caltime.New(2000, 2, 15, 12, 0, 0, "noleap")
	require.NoError(t, err)

	ds := dataset.New()
	ds.Coords["time"] = &dataset.Coordinate{
		Name: "time", Dims: []string{"time"}, Times: dataset.CalTimes{d1, d2},
	}

	data, err := EncodeDataset("cal", ds)
	require.NoError(t, err)

	_, got, err := DecodeDataset(data)
	require.NoError(t, err)
	assert.Equal(t, ds.Coords["time"].Times, got.Coords["time"].Times)
}

func TestEncodeDatasetDeterministic(t *testing.T) {
	ds := dataset.New()
	ds.Coords["b"] = &dataset.Coordinate{Name: "b", Dims: []string{"b"}, Values: []float64{1}}
	ds.Coords["a"] = &dataset.Coordinate{Name: "a", Dims: []string{"a"}, Values: []float64{2}}

	first, err := EncodeDataset("d", ds)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := EncodeDataset("d", ds)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
