// Package transformer rewrites an identified dataset into canonical form:
// coordinates renamed to their conventional names, axes flipped into their
// target stored direction, and units converted where a factor is known.
package transformer

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/climate-data-normalizer/internal/coordid"
	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
)

// GridType classifies the horizontal grid layout.
type GridType string

const (
	GridRegular      GridType = "regular"
	GridCurvilinear  GridType = "curvilinear"
	GridUnstructured GridType = "unstructured"
	GridUnknown      GridType = "unknown"
)

// Target describes the canonical form of one coordinate role.
type Target struct {
	Name      string
	Units     string
	Direction string
	Attrs     dataset.Attrs
}

// DefaultTargets returns the conventional target per role.
func DefaultTargets() map[coordid.Role]Target {
	return map[coordid.Role]Target{
		coordid.RoleLatitude: {
			Name: "lat", Units: "degrees_north", Direction: "increasing",
			Attrs: dataset.Attrs{"standard_name": "latitude", "axis": "Y"},
		},
		coordid.RoleLongitude: {
			Name: "lon", Units: "degrees_east", Direction: "increasing",
			Attrs: dataset.Attrs{"standard_name": "longitude", "axis": "X"},
		},
		coordid.RoleTime: {
			Name:  "time",
			Attrs: dataset.Attrs{"standard_name": "time", "axis": "T"},
		},
		coordid.RoleIsobaric: {
			Name: "plev", Units: "Pa",
			Attrs: dataset.Attrs{"standard_name": "air_pressure", "positive": "down"},
		},
		coordid.RoleDepth: {
			Name:  "depth",
			Attrs: dataset.Attrs{"standard_name": "depth", "positive": "down"},
		},
	}
}

// Transformer applies role targets to datasets. Unresolved roles pass
// through untouched.
type Transformer struct {
	targets map[coordid.Role]Target
	logger  *slog.Logger
}

func New(targets map[coordid.Role]Target, logger *slog.Logger) *Transformer {
	if targets == nil {
		targets = DefaultTargets()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{targets: targets, logger: logger}
}

// InferGrid classifies the grid from the identified horizontal coordinates.
func InferGrid(assignment coordid.RoleAssignment) GridType {
	lat, lon := assignment[coordid.RoleLatitude], assignment[coordid.RoleLongitude]
	if lat == nil || lon == nil {
		return GridUnknown
	}
	if len(lat.Dims) == 2 && len(lon.Dims) == 2 {
		return GridCurvilinear
	}
	if len(lat.Dims) == 1 && len(lon.Dims) == 1 {
		if lat.Dims[0] != lon.Dims[0] {
			return GridRegular
		}
		return GridUnstructured
	}
	return GridUnknown
}

// Transform identifies the dataset's coordinates and returns a canonical
// copy plus the assignment it acted on. The input is never modified.
func (t *Transformer) Transform(ds *dataset.Dataset) (*dataset.Dataset, coordid.RoleAssignment, error) {
	if ds == nil {
		return nil, nil, fmt.Errorf("%w: nil dataset", dataset.ErrConfiguration)
	}
	ident, err := coordid.NewIdentifier(ds.Coords, t.logger)
	if err != nil {
		return nil, nil, err
	}
	assignment := ident.Identify()
	grid := InferGrid(assignment)
	t.logger.Debug("grid type inferred", "grid", string(grid))

	out := deepCopy(ds)
	for _, role := range coordid.AllRoles() {
		info := assignment[role]
		if info == nil {
			continue
		}
		target, ok := t.targets[role]
		if !ok {
			continue
		}
		if err := t.applyTarget(out, role, info, target, grid); err != nil {
			return nil, nil, err
		}
	}
	out.Attrs["grid_type"] = string(grid)
	return out, assignment, nil
}

func (t *Transformer) applyTarget(ds *dataset.Dataset, role coordid.Role, info *coordid.CoordinateInfo, target Target, grid GridType) error {
	coord, ok := ds.Coords[info.Name]
	if !ok {
		return fmt.Errorf("%w: identified coordinate %q vanished from dataset", dataset.ErrIntegrity, info.Name)
	}

	if info.Name != target.Name {
		if _, taken := ds.Coords[target.Name]; taken {
			t.logger.Warn("target coordinate name already in use, keeping original",
				"role", string(role), "coordinate", info.Name, "target", target.Name)
		} else {
			t.renameCoordinate(ds, coord, info, target.Name)
		}
	}

	if target.Units != "" && info.Units != "" && info.Units != target.Units {
		if factor, ok := coordid.ConversionFactor(info.Units, target.Units); ok {
			for i := range coord.Values {
				coord.Values[i] *= factor
			}
			if coord.Attrs == nil {
				coord.Attrs = make(dataset.Attrs)
			}
			coord.Attrs["units"] = target.Units
			t.logger.Info("converted coordinate units",
				"coordinate", coord.Name, "from", info.Units, "to", target.Units, "factor", factor)
		} else {
			t.logger.Warn("no conversion between units, keeping original",
				"coordinate", coord.Name, "from", info.Units, "to", target.Units)
		}
	}

	if grid == GridRegular && target.Direction != "" &&
		info.StoredDirection != "" && info.StoredDirection != target.Direction {
		if err := t.flipAxis(ds, coord); err != nil {
			return err
		}
	}

	if coord.Attrs == nil {
		coord.Attrs = make(dataset.Attrs)
	}
	for k, v := range target.Attrs {
		coord.Attrs[k] = v
	}
	return nil
}

// renameCoordinate renames the coordinate, its dimension where the dimension
// carries the coordinate's own name, and its bounds variable if present.
func (t *Transformer) renameCoordinate(ds *dataset.Dataset, coord *dataset.Coordinate, info *coordid.CoordinateInfo, newName string) {
	oldName := coord.Name
	delete(ds.Coords, oldName)
	coord.Name = newName
	ds.Coords[newName] = coord

	renameDim := len(coord.Dims) == 1 && coord.Dims[0] == oldName
	if renameDim {
		for _, c := range ds.Coords {
			replaceDim(c.Dims, oldName, newName)
		}
		for _, v := range ds.Vars {
			replaceDim(v.Dims, oldName, newName)
		}
	}

	if info.Bounds != "" {
		if bv, ok := ds.Vars[info.Bounds]; ok {
			newBounds := newName + "_bnds"
			delete(ds.Vars, info.Bounds)
			bv.Name = newBounds
			ds.Vars[newBounds] = bv
			if coord.Attrs == nil {
				coord.Attrs = make(dataset.Attrs)
			}
			coord.Attrs["bounds"] = newBounds
		}
	}
	t.logger.Info("renamed coordinate", "from", oldName, "to", newName)
}

// flipAxis reverses a 1-D coordinate and every variable along its dimension.
func (t *Transformer) flipAxis(ds *dataset.Dataset, coord *dataset.Coordinate) error {
	if len(coord.Dims) != 1 {
		return nil
	}
	dim := coord.Dims[0]
	for i, j := 0, len(coord.Values)-1; i < j; i, j = i+1, j-1 {
		coord.Values[i], coord.Values[j] = coord.Values[j], coord.Values[i]
	}
	for _, v := range ds.Vars {
		if v.Values == nil || !v.HasDim(dim) {
			continue
		}
		if err := reverseAlongDim(v, dim); err != nil {
			return err
		}
	}
	if coord.Attrs == nil {
		coord.Attrs = make(dataset.Attrs)
	}
	coord.Attrs["flipped"] = "1"
	t.logger.Info("flipped coordinate direction", "coordinate", coord.Name)
	return nil
}

// reverseAlongDim reverses a variable's storage along one named dimension.
func reverseAlongDim(v *dataset.Variable, dim string) error {
	axis := -1
	for i, d := range v.Dims {
		if d == dim {
			axis = i
			break
		}
	}
	if axis == -1 {
		return nil
	}
	n := v.Shape[axis]
	if n < 2 {
		return nil
	}
	outer, inner := 1, 1
	for _, s := range v.Shape[:axis] {
		outer *= s
	}
	for _, s := range v.Shape[axis+1:] {
		inner *= s
	}
	if outer*n*inner != len(v.Values) {
		return fmt.Errorf("%w: variable %q shape %v does not match %d stored values", dataset.ErrConfiguration, v.Name, v.Shape, len(v.Values))
	}
	tmp := make([]float64, inner)
	for o := 0; o < outer; o++ {
		base := o * n * inner
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			a := v.Values[base+i*inner : base+(i+1)*inner]
			b := v.Values[base+j*inner : base+(j+1)*inner]
			copy(tmp, a)
			copy(a, b)
			copy(b, tmp)
		}
	}
	return nil
}

func replaceDim(dims []string, oldName, newName string) {
	for i, d := range dims {
		if d == oldName {
			dims[i] = newName
		}
	}
}

func deepCopy(ds *dataset.Dataset) *dataset.Dataset {
	out := dataset.New()
	out.Attrs = ds.Attrs.Clone()
	if out.Attrs == nil {
		out.Attrs = make(dataset.Attrs)
	}
	for name, c := range ds.Coords {
		out.Coords[name] = &dataset.Coordinate{
			Name:   c.Name,
			Dims:   append([]string(nil), c.Dims...),
			Values: append([]float64(nil), c.Values...),
			Times:  c.Times,
			Attrs:  c.Attrs.Clone(),
		}
	}
	for name, v := range ds.Vars {
		out.Vars[name] = &dataset.Variable{
			Name:   v.Name,
			Dims:   append([]string(nil), v.Dims...),
			Shape:  append([]int(nil), v.Shape...),
			Values: append([]float64(nil), v.Values...),
			Times:  v.Times,
			Attrs:  v.Attrs.Clone(),
		}
	}
	return out
}
