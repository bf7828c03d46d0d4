// Package grid defines the regular simulation grids on which fields are
// generated and provides the mapping between point coordinates and cells.
package grid

import (
	"fmt"
	"math"
)

// Geometry describes a regular 1D, 2D or 3D grid. Cells are axis-aligned
// boxes of constant size; the origin is the lower corner of the first cell.
// Fields over the grid are stored flattened with x varying fastest:
// idx = ix + nx*(iy + ny*iz).
type Geometry struct {
	dim        int
	nx, ny, nz int
	sx, sy, sz float64
	ox, oy, oz float64
}

// New creates a grid geometry from per-axis cell counts, cell sizes and
// origin coordinates. The three slices must have equal length between 1 and 3.
func New(dimension []int, spacing, origin []float64) (Geometry, error) {
	d := len(dimension)
	if d < 1 || d > 3 {
		return Geometry{}, fmt.Errorf("grid dimension must be 1, 2 or 3, got %d", d)
	}
	if len(spacing) != d || len(origin) != d {
		return Geometry{}, fmt.Errorf("dimension, spacing and origin must have the same length (got %d, %d, %d)",
			d, len(spacing), len(origin))
	}
	g := Geometry{dim: d, nx: 1, ny: 1, nz: 1, sx: 1, sy: 1, sz: 1}
	n := []*int{&g.nx, &g.ny, &g.nz}
	s := []*float64{&g.sx, &g.sy, &g.sz}
	o := []*float64{&g.ox, &g.oy, &g.oz}
	for a := 0; a < d; a++ {
		if dimension[a] < 1 {
			return Geometry{}, fmt.Errorf("grid size along axis %d must be at least 1, got %d", a, dimension[a])
		}
		if spacing[a] <= 0 {
			return Geometry{}, fmt.Errorf("grid spacing along axis %d must be positive, got %g", a, spacing[a])
		}
		*n[a] = dimension[a]
		*s[a] = spacing[a]
		*o[a] = origin[a]
	}
	return g, nil
}

// New1D creates a one-dimensional grid.
func New1D(nx int, sx, ox float64) (Geometry, error) {
	return New([]int{nx}, []float64{sx}, []float64{ox})
}

// New2D creates a two-dimensional grid.
func New2D(nx, ny int, sx, sy, ox, oy float64) (Geometry, error) {
	return New([]int{nx, ny}, []float64{sx, sy}, []float64{ox, oy})
}

// New3D creates a three-dimensional grid.
func New3D(nx, ny, nz int, sx, sy, sz, ox, oy, oz float64) (Geometry, error) {
	return New([]int{nx, ny, nz}, []float64{sx, sy, sz}, []float64{ox, oy, oz})
}

// Dim returns the number of active axes (1, 2 or 3).
func (g Geometry) Dim() int { return g.dim }

// NX returns the number of cells along the x axis.
func (g Geometry) NX() int { return g.nx }

// NY returns the number of cells along the y axis (1 for 1D grids).
func (g Geometry) NY() int { return g.ny }

// NZ returns the number of cells along the z axis (1 for 1D and 2D grids).
func (g Geometry) NZ() int { return g.nz }

// NCells returns the total number of grid cells.
func (g Geometry) NCells() int { return g.nx * g.ny * g.nz }

// SizeAxis returns the number of cells along axis a (0=x, 1=y, 2=z).
func (g Geometry) SizeAxis(a int) int {
	switch a {
	case 0:
		return g.nx
	case 1:
		return g.ny
	default:
		return g.nz
	}
}

// SpacingAxis returns the cell size along axis a.
func (g Geometry) SpacingAxis(a int) float64 {
	switch a {
	case 0:
		return g.sx
	case 1:
		return g.sy
	default:
		return g.sz
	}
}

// OriginAxis returns the origin coordinate along axis a.
func (g Geometry) OriginAxis(a int) float64 {
	switch a {
	case 0:
		return g.ox
	case 1:
		return g.oy
	default:
		return g.oz
	}
}

// FlatIndex returns the flattened index of the cell at (ix, iy, iz).
// Indices on inactive axes must be 0.
func (g Geometry) FlatIndex(ix, iy, iz int) int {
	return ix + g.nx*(iy+g.ny*iz)
}

// CellCoords returns the per-axis cell indices of a flattened index.
func (g Geometry) CellCoords(idx int) (ix, iy, iz int) {
	ix = idx % g.nx
	idx /= g.nx
	iy = idx % g.ny
	iz = idx / g.ny
	return ix, iy, iz
}

// CellOf returns the flattened index of the cell containing the given point.
//
// A point is assigned to the cell whose index is the floor of the fractional
// index (coord-origin)/spacing; a point falling exactly on a cell boundary
// belongs to the lower of the two cells, so the upper edge of the grid is
// still inside the last cell. Coordinates outside the grid are an error.
func (g Geometry) CellOf(coord []float64) (int, error) {
	if len(coord) != g.dim {
		return 0, fmt.Errorf("coordinate has %d components, grid is %dD", len(coord), g.dim)
	}
	var idx [3]int
	for a := 0; a < g.dim; a++ {
		f := (coord[a] - g.OriginAxis(a)) / g.SpacingAxis(a)
		i := int(math.Floor(f))
		if float64(i) == f && i > 0 {
			i--
		}
		if i < 0 || i >= g.SizeAxis(a) {
			return 0, fmt.Errorf("coordinate %g outside the grid along axis %d", coord[a], a)
		}
		idx[a] = i
	}
	return g.FlatIndex(idx[0], idx[1], idx[2]), nil
}

// CellCenter returns the coordinates of the center of the cell with the
// given flattened index. The result has Dim components.
func (g Geometry) CellCenter(idx int) []float64 {
	ix, iy, iz := g.CellCoords(idx)
	c := make([]float64, g.dim)
	ijk := [3]int{ix, iy, iz}
	for a := 0; a < g.dim; a++ {
		c[a] = g.OriginAxis(a) + g.SpacingAxis(a)*(float64(ijk[a])+0.5)
	}
	return c
}
