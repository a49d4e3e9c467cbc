package coordid

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func coord(name string, dims []string, values []float64, attrs dataset.Attrs) *dataset.Coordinate {
	return &dataset.Coordinate{Name: name, Dims: dims, Values: values, Attrs: attrs}
}

func identify(t *testing.T, coords map[string]*dataset.Coordinate) RoleAssignment {
	t.Helper()
	id, err := NewIdentifier(coords, discardLogger())
	require.NoError(t, err)
	return id.Identify()
}

func TestScoreFullyAttributedLatitude(t *testing.T) {
	// Name + standard_name + axis all match: 100+100+50.
	c := coord("lat", []string{"lat"}, []float64{-90, 0, 90}, dataset.Attrs{
		"standard_name": "latitude",
		"axis":          "Y",
	})

	s := ScoreCoordinate(c, RoleLatitude)
	assert.Equal(t, 250, s.Points)
	assert.ElementsMatch(t, []string{"name", "standard_name", "axis"}, s.Matched)

	for _, role := range []Role{RoleLongitude, RoleTime, RoleIsobaric, RoleDepth} {
		assert.Equal(t, 0, ScoreCoordinate(c, role).Points, "role %s", role)
	}

	got := identify(t, map[string]*dataset.Coordinate{"lat": c})
	require.NotNil(t, got[RoleLatitude])
	assert.Equal(t, "lat", got[RoleLatitude].Name)
	assert.Equal(t, 250, got[RoleLatitude].ConfidenceScore)
}

func TestScoreMonotonicInMatchedAttributes(t *testing.T) {
	attrs := dataset.Attrs{}
	base := ScoreCoordinate(coord("lat", []string{"lat"}, nil, attrs), RoleLatitude).Points

	richer := []dataset.Attrs{
		{"standard_name": "latitude"},
		{"standard_name": "latitude", "axis": "Y"},
		{"standard_name": "latitude", "axis": "Y", "units": "degrees_north"},
	}
	prev := base
	for _, a := range richer {
		got := ScoreCoordinate(coord("lat", []string{"lat"}, nil, a), RoleLatitude).Points
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestHigherScoredCandidateWins(t *testing.T) {
	// "latitude" carries three matches (250), bare "lat" only its name (100).
	coords := map[string]*dataset.Coordinate{
		"lat": coord("lat", []string{"lat"}, []float64{0, 1}, dataset.Attrs{}),
		"latitude": coord("latitude", []string{"latitude"}, []float64{0, 1}, dataset.Attrs{
			"standard_name": "latitude",
			"axis":          "Y",
		}),
	}

	got := identify(t, coords)
	require.NotNil(t, got[RoleLatitude])
	assert.Equal(t, "latitude", got[RoleLatitude].Name)
}

func TestTiedScoresDisableRole(t *testing.T) {
	// Two plain name matches at 100 each: nobody wins.
	coords := map[string]*dataset.Coordinate{
		"lat":     coord("lat", []string{"lat"}, []float64{0, 1}, dataset.Attrs{}),
		"nav_lat": coord("nav_lat", []string{"y"}, []float64{0, 1}, dataset.Attrs{}),
	}

	got := identify(t, coords)
	assert.Nil(t, got[RoleLatitude])
}

func TestRoleExclusivity(t *testing.T) {
	// One coordinate scoring for both depth (name, 100) and isobaric
	// (standard_name+units, 150) keeps only the higher-scored role.
	c := coord("depth", []string{"depth"}, []float64{100000, 50000}, dataset.Attrs{
		"standard_name": "air_pressure",
		"units":         "Pa",
	})

	got := identify(t, map[string]*dataset.Coordinate{"depth": c})
	require.NotNil(t, got[RoleIsobaric])
	assert.Equal(t, "depth", got[RoleIsobaric].Name)
	assert.Nil(t, got[RoleDepth], "lower-scored duplicate role must revert to nil")

	// No coordinate name may win two roles.
	seen := map[string]Role{}
	for role, info := range got {
		if info == nil {
			continue
		}
		prev, dup := seen[info.Name]
		assert.False(t, dup, "coordinate %q assigned to both %s and %s", info.Name, prev, role)
		seen[info.Name] = role
	}
}

func TestCrossRoleTieDisablesBoth(t *testing.T) {
	// Name says longitude (100), standard_name says latitude (100). With no
	// strict winner, neither role may claim the coordinate.
	c := coord("lon", []string{"lon"}, []float64{0, 1}, dataset.Attrs{
		"standard_name": "latitude",
	})

	got := identify(t, map[string]*dataset.Coordinate{"lon": c})
	assert.Nil(t, got[RoleLatitude])
	assert.Nil(t, got[RoleLongitude])
}

func TestPressureUnitsByDimensionality(t *testing.T) {
	// No standard_name and an off-list name: only the units weight via the
	// dimensionality check.
	c := coord("lev", []string{"lev"}, []float64{100000, 85000}, dataset.Attrs{"units": "hPa"})
	s := ScoreCoordinate(c, RoleIsobaric)
	assert.Equal(t, 50, s.Points)
	assert.Equal(t, []string{"units"}, s.Matched)

	for _, u := range []string{"Pa", "hPa", "mbar", "mb", "bar", "atm"} {
		assert.True(t, IsPressureUnit(u), "unit %q", u)
	}
	for _, u := range []string{"m", "K", "degrees_north", "", "furlong"} {
		assert.False(t, IsPressureUnit(u), "unit %q", u)
	}
}

func TestTimeCandidateAttributes(t *testing.T) {
	c := &dataset.Coordinate{
		Name:  "valid_time",
		Dims:  []string{"time"},
		Times: dataset.StdTimes{},
		Attrs: dataset.Attrs{"axis": "T", "calendar": "standard", "bounds": "time_bnds", "units": "seconds"},
	}

	got := identify(t, map[string]*dataset.Coordinate{"valid_time": c})
	require.NotNil(t, got[RoleTime])
	info := got[RoleTime]
	assert.Equal(t, "valid_time", info.Name)
	assert.Equal(t, "standard", info.Calendar)
	assert.Equal(t, "time_bnds", info.Bounds)
	assert.Equal(t, 150, info.ConfidenceScore)
}

func TestStoredDirection(t *testing.T) {
	t.Run("increasing", func(t *testing.T) {
		got := identify(t, map[string]*dataset.Coordinate{
			"lat": coord("lat", []string{"lat"}, []float64{-90, 0, 90}, dataset.Attrs{}),
		})
		require.NotNil(t, got[RoleLatitude])
		assert.Equal(t, "increasing", got[RoleLatitude].StoredDirection)
		assert.Equal(t, [2]float64{-90, 90}, got[RoleLatitude].Range)
	})

	t.Run("decreasing", func(t *testing.T) {
		got := identify(t, map[string]*dataset.Coordinate{
			"lat": coord("lat", []string{"lat"}, []float64{90, 0, -90}, dataset.Attrs{}),
		})
		require.NotNil(t, got[RoleLatitude])
		assert.Equal(t, "decreasing", got[RoleLatitude].StoredDirection)
	})

	t.Run("never computed on 2-D coordinates", func(t *testing.T) {
		got := identify(t, map[string]*dataset.Coordinate{
			"nav_lat": coord("nav_lat", []string{"y", "x"}, []float64{0, 1, 2, 3}, dataset.Attrs{}),
		})
		require.NotNil(t, got[RoleLatitude])
		assert.Empty(t, got[RoleLatitude].StoredDirection)
	})
}

func TestLongitudeConvention(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   string
	}{
		{"centered", []float64{-180, 0, 179}, "centered"},
		{"positive", []float64{0, 180, 359}, "positive"},
		{"ambiguous", []float64{0, 90, 180}, "ambiguous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := identify(t, map[string]*dataset.Coordinate{
				"lon": coord("lon", []string{"lon"}, tt.values, dataset.Attrs{}),
			})
			require.NotNil(t, got[RoleLongitude])
			assert.Equal(t, tt.want, got[RoleLongitude].Convention)
		})
	}
}

func TestVerticalPositive(t *testing.T) {
	t.Run("explicit attribute wins", func(t *testing.T) {
		got := identify(t, map[string]*dataset.Coordinate{
			"depth": coord("depth", []string{"depth"}, []float64{10, 20}, dataset.Attrs{"positive": "up"}),
		})
		require.NotNil(t, got[RoleDepth])
		assert.Equal(t, "up", got[RoleDepth].Positive)
	})

	t.Run("pressure units imply down", func(t *testing.T) {
		got := identify(t, map[string]*dataset.Coordinate{
			"plev": coord("plev", []string{"plev"}, []float64{100000, 85000}, dataset.Attrs{"units": "Pa"}),
		})
		require.NotNil(t, got[RoleIsobaric])
		assert.Equal(t, "down", got[RoleIsobaric].Positive)
	})

	t.Run("positive first value implies down", func(t *testing.T) {
		got := identify(t, map[string]*dataset.Coordinate{
			"zlev": coord("zlev", []string{"zlev"}, []float64{5, 10}, dataset.Attrs{}),
		})
		require.NotNil(t, got[RoleDepth])
		assert.Equal(t, "down", got[RoleDepth].Positive)
	})
}

func TestUnresolvedRolesAreNil(t *testing.T) {
	got := identify(t, map[string]*dataset.Coordinate{
		"cell": coord("cell", []string{"cell"}, []float64{1, 2, 3}, dataset.Attrs{}),
	})
	for _, role := range AllRoles() {
		assert.Nil(t, got[role])
	}
}

func TestNilCoordinateMapRejected(t *testing.T) {
	_, err := NewIdentifier(nil, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrConfiguration)
}

func TestIdentifyDeterministic(t *testing.T) {
	coords := map[string]*dataset.Coordinate{
		"lat": coord("lat", []string{"lat"}, []float64{0, 1}, dataset.Attrs{"axis": "Y"}),
		"latitude": coord("latitude", []string{"latitude"}, []float64{0, 1}, dataset.Attrs{
			"standard_name": "latitude",
		}),
		"lon": coord("lon", []string{"lon"}, []float64{0, 1}, dataset.Attrs{"axis": "X"}),
	}

	first := identify(t, coords)
	for range 10 {
		assert.Equal(t, first, identify(t, coords))
	}
}

func TestConversionFactor(t *testing.T) {
	f, ok := ConversionFactor("hPa", "Pa")
	require.True(t, ok)
	assert.Equal(t, 100.0, f)

	f, ok = ConversionFactor("km", "m")
	require.True(t, ok)
	assert.Equal(t, 1000.0, f)

	_, ok = ConversionFactor("hPa", "m")
	assert.False(t, ok, "mismatched dimensions")

	_, ok = ConversionFactor("smoot", "m")
	assert.False(t, ok, "unknown unit")
}
