package coordid

import (
	"strings"

	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

// Score is the result of matching one coordinate against one role.
// A zero-point score means the coordinate is not a candidate for the role.
type Score struct {
	Points  int
	Matched []string
}

// ScoreCoordinate scores a single coordinate against a role. Scoring is
// pure: it inspects the coordinate's name and attributes and never mutates
// anything. Scores are never negative.
func ScoreCoordinate(coord *dataset.Coordinate, role Role) Score {
	switch role {
	case RoleLatitude:
		return scoreLatitude(coord)
	case RoleLongitude:
		return scoreLongitude(coord)
	case RoleTime:
		return scoreTime(coord)
	case RoleIsobaric:
		return scoreIsobaric(coord)
	case RoleDepth:
		return scoreDepth(coord)
	default:
		return Score{}
	}
}

func scoreLatitude(coord *dataset.Coordinate) Score {
	var s Score
	if nameIn(coord.Name, latitudeNames) {
		s.add(weightName, "name")
	}
	if coord.Attrs.Get("standard_name") == "latitude" {
		s.add(weightStandardName, "standard_name")
	}
	if coord.Attrs.Get("axis") == "Y" {
		s.add(weightAxis, "axis")
	}
	if coord.Attrs.Get("units") == "degrees_north" {
		s.add(weightUnits, "units")
	}
	return s
}

func scoreLongitude(coord *dataset.Coordinate) Score {
	var s Score
	if nameIn(coord.Name, longitudeNames) {
		s.add(weightName, "name")
	}
	if coord.Attrs.Get("standard_name") == "longitude" {
		s.add(weightStandardName, "standard_name")
	}
	if coord.Attrs.Get("axis") == "X" {
		s.add(weightAxis, "axis")
	}
	if coord.Attrs.Get("units") == "degrees_east" {
		s.add(weightUnits, "units")
	}
	return s
}

func scoreTime(coord *dataset.Coordinate) Score {
	var s Score
	if nameIn(coord.Name, timeNames) {
		s.add(weightName, "name")
	}
	if coord.Attrs.Get("standard_name") == "time" {
		s.add(weightStandardName, "standard_name")
	}
	if coord.Attrs.Get("axis") == "T" {
		s.add(weightAxis, "axis")
	}
	return s
}

func scoreIsobaric(coord *dataset.Coordinate) Score {
	var s Score
	if nameIn(coord.Name, isobaricNames) {
		s.add(weightName, "name")
	}
	if coord.Attrs.Get("standard_name") == "air_pressure" {
		s.add(weightStandardName, "standard_name")
	}
	if IsPressureUnit(coord.Attrs.Get("units")) {
		s.add(weightUnits, "units")
	}
	return s
}

func scoreDepth(coord *dataset.Coordinate) Score {
	var s Score
	if nameIn(coord.Name, depthNames) {
		s.add(weightName, "name")
	}
	if coord.Attrs.Get("standard_name") == "depth" {
		s.add(weightStandardName, "standard_name")
	}
	if coord.Attrs.Get("axis") == "Z" {
		s.add(weightAxis, "axis")
	}
	if strings.Contains(coord.Attrs.Get("long_name"), "depth") {
		s.add(weightLongName, "long_name")
	}
	return s
}

func (s *Score) add(points int, attr string) {
	s.Points += points
	s.Matched = append(s.Matched, attr)
}
