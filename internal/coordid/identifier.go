package coordid

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

// CoordinateInfo is the per-role record describing the coordinate assigned
// to a role. Role-specific fields are populated only where they apply.
type CoordinateInfo struct {
	Name   string
	Dims   []string
	Units  string
	Bounds string

	// Time role only.
	Calendar string

	// Spatial and vertical roles.
	Range [2]float64

	// Horizontal roles, 1-D coordinates only: "increasing" or "decreasing".
	StoredDirection string

	// Vertical roles: "up" or "down".
	Positive string

	// Longitude only: "centered" (has values < 0), "positive" (has values
	// > 180), or "ambiguous".
	Convention string

	ConfidenceScore   int
	MatchedAttributes []string
}

// RoleAssignment maps each role to its winning coordinate, or nil when the
// role is unresolved. A coordinate name appears at most once across the
// whole map.
type RoleAssignment map[Role]*CoordinateInfo

// Identifier classifies the coordinates of one dataset. Instances are cheap
// and meant to be used once and discarded.
type Identifier struct {
	coords map[string]*dataset.Coordinate
	logger *slog.Logger
}

// NewIdentifier builds an identifier over a coordinate map. A nil map is a
// structural error; an empty one is fine and resolves every role to nil.
func NewIdentifier(coords map[string]*dataset.Coordinate, logger *slog.Logger) (*Identifier, error) {
	if coords == nil {
		return nil, fmt.Errorf("%w: coordinate map is nil", dataset.ErrConfiguration)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Identifier{coords: coords, logger: logger}, nil
}

// Identify runs the full classification: score every coordinate against
// every role, collect candidates, rank within each role, deduplicate across
// roles, and log the outcome. Ambiguity never raises; it resolves to nil
// entries.
func (id *Identifier) Identify() RoleAssignment {
	candidates := id.collectCandidates()
	assignment := id.rankCandidates(candidates)
	id.deduplicate(assignment)
	id.logOutcome(assignment)
	return assignment
}

// collectCandidates builds the score matrix and materializes an attribute
// record for every (coordinate, role) pair with a positive score.
func (id *Identifier) collectCandidates() map[Role][]*CoordinateInfo {
	names := make([]string, 0, len(id.coords))
	for name := range id.coords {
		names = append(names, name)
	}
	sort.Strings(names)

	candidates := make(map[Role][]*CoordinateInfo, len(AllRoles()))
	for _, name := range names {
		coord := id.coords[name]
		for _, role := range AllRoles() {
			score := ScoreCoordinate(coord, role)
			if score.Points <= 0 {
				continue
			}
			id.logger.Debug("coordinate scored",
				"coordinate", name, "role", string(role),
				"score", score.Points, "matched", score.Matched)
			candidates[role] = append(candidates[role], id.describe(coord, role, score))
		}
	}
	return candidates
}

// describe extracts the per-role attribute record for a candidate.
func (id *Identifier) describe(coord *dataset.Coordinate, role Role, score Score) *CoordinateInfo {
	info := &CoordinateInfo{
		Name:              coord.Name,
		Dims:              append([]string(nil), coord.Dims...),
		Units:             coord.Attrs.Get("units"),
		Bounds:            coord.Attrs.Get("bounds"),
		ConfidenceScore:   score.Points,
		MatchedAttributes: score.Matched,
	}

	if role == RoleTime {
		info.Calendar = coord.Attrs.Get("calendar")
		return info
	}

	if len(coord.Values) > 0 {
		lo, hi := coord.Values[0], coord.Values[0]
		for _, v := range coord.Values[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		info.Range = [2]float64{lo, hi}
	}

	switch role {
	case RoleLatitude, RoleLongitude:
		// Direction is only meaningful for 1-D axes; curvilinear
		// coordinates stay unset.
		if len(coord.Dims) == 1 && len(coord.Values) > 1 {
			if coord.Values[len(coord.Values)-1] > coord.Values[0] {
				info.StoredDirection = "increasing"
			} else {
				info.StoredDirection = "decreasing"
			}
		}
		if role == RoleLongitude {
			info.Convention = longitudeConvention(coord.Values)
		}
	case RoleIsobaric, RoleDepth:
		info.Positive = coord.Attrs.Get("positive")
		if info.Positive == "" {
			switch {
			case IsPressureUnit(info.Units):
				info.Positive = "down"
			case len(coord.Values) > 0 && coord.Values[0] > 0:
				info.Positive = "down"
			default:
				info.Positive = "up"
			}
		}
	}

	return info
}

// longitudeConvention guesses whether the longitude axis is centered on the
// meridian (-180..180) or strictly positive (0..360).
func longitudeConvention(values []float64) string {
	for _, v := range values {
		if v < 0 {
			return "centered"
		}
	}
	for _, v := range values {
		if v > 180 {
			return "positive"
		}
	}
	return "ambiguous"
}

// rankCandidates resolves each role's candidate list to a single winner.
// A unique maximum wins; tied maxima disable the role entirely rather than
// pick one arbitrarily.
func (id *Identifier) rankCandidates(candidates map[Role][]*CoordinateInfo) RoleAssignment {
	assignment := make(RoleAssignment, len(AllRoles()))
	for _, role := range AllRoles() {
		list := candidates[role]
		switch len(list) {
		case 0:
			assignment[role] = nil
		case 1:
			assignment[role] = list[0]
		default:
			assignment[role] = id.pickBest(role, list)
		}
	}
	return assignment
}

func (id *Identifier) pickBest(role Role, list []*CoordinateInfo) *CoordinateInfo {
	best := list[0]
	ties := 1
	for _, c := range list[1:] {
		switch {
		case c.ConfidenceScore > best.ConfidenceScore:
			best = c
			ties = 1
		case c.ConfidenceScore == best.ConfidenceScore:
			ties++
		}
	}

	if ties > 1 {
		names := make([]string, 0, len(list))
		for _, c := range list {
			if c.ConfidenceScore == best.ConfidenceScore {
				names = append(names, c.Name)
			}
		}
		id.logger.Warn("multiple coordinates with identical scores, disabling role",
			"role", string(role), "coordinates", names, "score", best.ConfidenceScore)
		return nil
	}

	for _, c := range list {
		if c != best {
			id.logger.Debug("discarding lower-scored candidate",
				"role", string(role), "coordinate", c.Name,
				"score", c.ConfidenceScore, "selected", best.Name)
		}
	}
	return best
}

// deduplicate enforces global uniqueness: a coordinate name selected as the
// winner for several roles keeps only the role where it scored strictly
// highest. Cross-role score ties disable every involved role.
func (id *Identifier) deduplicate(assignment RoleAssignment) {
	byName := make(map[string][]Role)
	for _, role := range AllRoles() {
		if info := assignment[role]; info != nil {
			byName[info.Name] = append(byName[info.Name], role)
		}
	}

	for name, roles := range byName {
		if len(roles) < 2 {
			continue
		}
		best := roles[0]
		ties := 1
		for _, role := range roles[1:] {
			switch {
			case assignment[role].ConfidenceScore > assignment[best].ConfidenceScore:
				best = role
				ties = 1
			case assignment[role].ConfidenceScore == assignment[best].ConfidenceScore:
				ties++
			}
		}

		if ties > 1 {
			id.logger.Warn("coordinate assigned to multiple roles with equal scores, disabling all",
				"coordinate", name, "roles", roleNames(roles))
			for _, role := range roles {
				assignment[role] = nil
			}
			continue
		}

		id.logger.Info("coordinate assigned to multiple roles, keeping highest score",
			"coordinate", name, "roles", roleNames(roles),
			"selected", string(best), "score", assignment[best].ConfidenceScore)
		for _, role := range roles {
			if role != best {
				assignment[role] = nil
			}
		}
	}
}

func (id *Identifier) logOutcome(assignment RoleAssignment) {
	var identified, unidentified []string
	for _, role := range AllRoles() {
		if assignment[role] != nil {
			identified = append(identified, string(role))
		} else {
			unidentified = append(unidentified, string(role))
		}
	}
	if len(identified) > 0 {
		id.logger.Debug("identified coordinates", "roles", identified)
	}
	if len(unidentified) > 0 {
		id.logger.Debug("unidentified coordinates", "roles", unidentified)
	}
}

func roleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
