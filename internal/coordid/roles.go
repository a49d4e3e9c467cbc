// Package coordid classifies the coordinates of a labeled dataset into
// semantic roles (latitude, longitude, time, isobaric, depth) using a
// point-based scoring system over coordinate names and CF attributes.
package coordid

// Role is a recognized semantic coordinate kind.
type Role string

const (
	RoleLatitude  Role = "latitude"
	RoleLongitude Role = "longitude"
	RoleTime      Role = "time"
	RoleIsobaric  Role = "isobaric"
	RoleDepth     Role = "depth"
)

// AllRoles lists every role in a stable order.
func AllRoles() []Role {
	return []Role{RoleLatitude, RoleLongitude, RoleTime, RoleIsobaric, RoleDepth}
}

// Scoring weights. A name or standard_name match identifies a coordinate
// almost by itself; axis, units, and long_name matches are corroborating.
const (
	weightName         = 100
	weightStandardName = 100
	weightAxis         = 50
	weightUnits        = 50
	weightLongName     = 50
)

// Well-known coordinate names per role, as emitted by common data producers.
var (
	latitudeNames  = []string{"latitude", "lat", "nav_lat"}
	longitudeNames = []string{"longitude", "lon", "nav_lon"}
	timeNames      = []string{"time", "valid_time", "forecast_period", "time_counter"}
	isobaricNames  = []string{"plev"}
	depthNames     = []string{"depth", "zlev"}
)

func nameIn(name string, names []string) bool {
	for _, n := range names {
		if name == n {
			return true
		}
	}
	return false
}
