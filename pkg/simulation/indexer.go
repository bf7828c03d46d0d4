package simulation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/alecomunian/geone/pkg/grid"
)

// ErrInconsistentData reports conditioning points falling in the same grid
// cell with different category values. The data cannot be honored and the
// whole simulation call fails.
var ErrInconsistentData = errors.New("conditioning points in the same cell carry different categories")

// pointSet is the deduplicated conditioning data: one entry per occupied grid
// cell, ordered by ascending flattened cell index.
type pointSet struct {
	coords     [][]float64
	categories []float64
	cells      []int
}

// indexPoints assigns every conditioning point to its grid cell and collapses
// points sharing a cell. A point exactly on a cell boundary belongs to the
// lower cell (see grid.CellOf); points outside the grid are an error. Points
// collapsing into one cell must agree on the category, the representative
// coordinate is the first one in input order.
func indexPoints(g grid.Geometry, coords [][]float64, categories []float64) (*pointSet, error) {
	if len(coords) != len(categories) {
		return nil, fmt.Errorf("conditioning has %d coordinates and %d values", len(coords), len(categories))
	}
	type entry struct {
		coord    []float64
		category float64
	}
	byCell := make(map[int]entry, len(coords))
	dups := 0
	for i, c := range coords {
		cell, err := g.CellOf(c)
		if err != nil {
			return nil, fmt.Errorf("conditioning point %d: %w", i, err)
		}
		if prev, ok := byCell[cell]; ok {
			if prev.category != categories[i] {
				return nil, fmt.Errorf("conditioning point %d (cell %d, categories %g and %g): %w",
					i, cell, prev.category, categories[i], ErrInconsistentData)
			}
			dups++
			continue
		}
		byCell[cell] = entry{coord: c, category: categories[i]}
	}
	if dups > 0 {
		logrus.Warnf("collapsed %d duplicate conditioning points sharing a grid cell", dups)
	}

	cells := make([]int, 0, len(byCell))
	for cell := range byCell {
		cells = append(cells, cell)
	}
	sort.Ints(cells)

	ps := &pointSet{
		coords:     make([][]float64, len(cells)),
		categories: make([]float64, len(cells)),
		cells:      cells,
	}
	for i, cell := range cells {
		e := byCell[cell]
		ps.coords[i] = e.coord
		ps.categories[i] = e.category
	}
	return ps, nil
}
