package simulation

import (
	"fmt"

	"github.com/alecomunian/geone/pkg/grid"
)

// ParamSpec describes a spatial field parameter (a mean or a variance): a
// constant, a per-cell array, or a function of the cell center. Specs are
// resolved once into a plain slice at simulation setup; point lookups then go
// through the point's flattened cell index.
type ParamSpec interface {
	resolve(g grid.Geometry) ([]float64, error)
}

type constantSpec float64

func (c constantSpec) resolve(grid.Geometry) ([]float64, error) {
	return []float64{float64(c)}, nil
}

type perCellSpec []float64

func (p perCellSpec) resolve(g grid.Geometry) ([]float64, error) {
	if len(p) != g.NCells() {
		return nil, fmt.Errorf("per-cell parameter has %d values, grid has %d cells", len(p), g.NCells())
	}
	out := make([]float64, len(p))
	copy(out, p)
	return out, nil
}

type funcSpec func(center []float64) float64

func (f funcSpec) resolve(g grid.Geometry) ([]float64, error) {
	out := make([]float64, g.NCells())
	for i := range out {
		out[i] = f(g.CellCenter(i))
	}
	return out, nil
}

// Constant returns a spec holding the same value at every cell.
func Constant(v float64) ParamSpec { return constantSpec(v) }

// PerCell returns a spec reading one value per grid cell from values, which
// must have length NCells at resolution time.
func PerCell(values []float64) ParamSpec { return perCellSpec(values) }

// Function returns a spec evaluating f at every cell center.
func Function(f func(center []float64) float64) ParamSpec { return funcSpec(f) }

// resolveOnGrid resolves a spec on the grid. A nil spec resolves to nil,
// which readers interpret as the concern's default (zero mean, model sill).
func resolveOnGrid(g grid.Geometry, spec ParamSpec) ([]float64, error) {
	if spec == nil {
		return nil, nil
	}
	return spec.resolve(g)
}

// at reads a grid-resolved parameter at a flattened cell index.
func at(p []float64, i int) float64 {
	if len(p) == 0 {
		return 0
	}
	if len(p) == 1 {
		return p[0]
	}
	return p[i]
}
