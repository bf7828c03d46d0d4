package gaussian

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/alecomunian/geone/pkg/covariance"
	"github.com/alecomunian/geone/pkg/grid"
	"github.com/alecomunian/geone/pkg/kriging"
)

const defaultMaxNeighbors = 16

// Sequential generates fields by on-grid sequential Gaussian simulation:
// cells are visited along a random path and each value is drawn from the
// kriging distribution given the nearest already informed cells inside a
// search neighborhood. Conditioning cells are informed up front and never
// redrawn, so data are honored exactly. Cost grows with the cube of the
// neighbor count per cell; intended for small grids and as a cross-check
// of the FFT generator.
type Sequential struct {
	// MaxNeighbors caps the informed cells entering each kriging system.
	// Zero means 16.
	MaxNeighbors int

	// SearchRadius bounds the neighborhood distance. Zero means the largest
	// practical range of the model.
	SearchRadius float64
}

// Simulate implements Generator.
func (s *Sequential) Simulate(g grid.Geometry, model *covariance.Model, mean, variance []float64,
	cond *Conditioning, nreal int, rng *rand.Rand) ([][]float64, error) {

	if model == nil {
		return nil, fmt.Errorf("the sequential generator requires a covariance model")
	}
	if model.Dim() != g.Dim() {
		return nil, fmt.Errorf("model dimension %d does not match grid dimension %d",
			model.Dim(), g.Dim())
	}
	if nreal < 1 {
		return nil, fmt.Errorf("nreal must be at least 1, got %d", nreal)
	}

	maxn := s.MaxNeighbors
	if maxn <= 0 {
		maxn = defaultMaxNeighbors
	}
	radius := s.SearchRadius
	if radius <= 0 {
		radius = model.MaxRange()
	}
	cov0 := model.Sill()

	// Conditioning values become residuals of the unit-sill field.
	var dataCells []int
	var dataResid []float64
	if cond != nil && len(cond.Coords) > 0 {
		cells, _, err := condCells(g, cond)
		if err != nil {
			return nil, err
		}
		dataCells = cells
		dataResid = make([]float64, len(cells))
		for i, cell := range cells {
			u := scaleAt(variance, cov0, cell)
			diff := cond.Values[i] - at(mean, cell)
			if u == 0 {
				if diff != 0 {
					return nil, fmt.Errorf("zero variance at conditioning cell %d with value off the mean", cell)
				}
				continue
			}
			dataResid[i] = diff / u
		}
	}

	search := newRingSearch(g, radius)
	out := make([][]float64, nreal)
	for r := range out {
		resid, err := s.simulateResidual(g, model, dataCells, dataResid, maxn, search, rng)
		if err != nil {
			return nil, err
		}
		applyMoments(resid, mean, variance, cov0)
		out[r] = resid
	}
	return out, nil
}

// simulateResidual runs one sequential sweep of the zero-mean unit-sill
// residual field.
func (s *Sequential) simulateResidual(g grid.Geometry, model *covariance.Model,
	dataCells []int, dataResid []float64, maxn int, search *ringSearch,
	rng *rand.Rand) ([]float64, error) {

	ncells := g.NCells()
	resid := make([]float64, ncells)
	informed := make([]bool, ncells)
	for i, cell := range dataCells {
		resid[cell] = dataResid[i]
		informed[cell] = true
	}

	cov0 := model.Sill()
	prior := distuv.Normal{Mu: 0, Sigma: math.Sqrt(cov0), Src: rng}
	neigh := make([]int, 0, maxn)
	for _, cell := range rng.Perm(ncells) {
		if informed[cell] {
			continue
		}
		neigh = search.collect(cell, informed, maxn, neigh[:0])
		if len(neigh) == 0 {
			resid[cell] = prior.Rand()
			informed[cell] = true
			continue
		}
		centers := make([][]float64, len(neigh))
		values := make([]float64, len(neigh))
		for i, nc := range neigh {
			centers[i] = g.CellCenter(nc)
			values[i] = resid[nc]
		}
		ps := kriging.BuildPointSystem(model, centers, nil)
		mu, sigma, err := ps.ExternalMoments(g.CellCenter(cell), values, nil)
		if err != nil {
			return nil, err
		}
		resid[cell] = distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}.Rand()
		informed[cell] = true
	}
	return resid, nil
}

// ringSearch scans index-space rings around a target cell to find its
// nearest informed neighbors within a physical radius.
type ringSearch struct {
	g       grid.Geometry
	r2      float64
	caps    [3]int
	maxRing int
}

func newRingSearch(g grid.Geometry, radius float64) *ringSearch {
	rs := &ringSearch{g: g, r2: radius * radius}
	for a := 0; a < g.Dim(); a++ {
		c := int(math.Ceil(radius / g.SpacingAxis(a)))
		if max := g.SizeAxis(a) - 1; c > max {
			c = max
		}
		rs.caps[a] = c
		if c > rs.maxRing {
			rs.maxRing = c
		}
	}
	return rs
}

// collect appends up to maxn informed cells nearest to the target cell and
// returns the extended slice. Rings are scanned outward and the scan stops
// at the first completed ring holding enough candidates, which orders
// neighbors by index distance before the final sort on physical distance.
func (rs *ringSearch) collect(cell int, informed []bool, maxn int, dst []int) []int {
	tx, ty, tz := rs.g.CellCoords(cell)
	t := [3]int{tx, ty, tz}

	type cand struct {
		cell int
		d2   float64
	}
	var cands []cand
	for ring := 1; ring <= rs.maxRing; ring++ {
		for dz := -minInt(ring, rs.caps[2]); dz <= minInt(ring, rs.caps[2]); dz++ {
			z := t[2] + dz
			if z < 0 || z >= rs.g.NZ() {
				continue
			}
			for dy := -minInt(ring, rs.caps[1]); dy <= minInt(ring, rs.caps[1]); dy++ {
				y := t[1] + dy
				if y < 0 || y >= rs.g.NY() {
					continue
				}
				for dx := -minInt(ring, rs.caps[0]); dx <= minInt(ring, rs.caps[0]); dx++ {
					if maxInt(absInt(dx), maxInt(absInt(dy), absInt(dz))) != ring {
						continue
					}
					x := t[0] + dx
					if x < 0 || x >= rs.g.NX() {
						continue
					}
					c := rs.g.FlatIndex(x, y, z)
					if !informed[c] {
						continue
					}
					ddx := float64(dx) * rs.g.SpacingAxis(0)
					ddy := float64(dy) * rs.g.SpacingAxis(1)
					ddz := float64(dz) * rs.g.SpacingAxis(2)
					d2 := ddx*ddx + ddy*ddy + ddz*ddz
					if d2 > rs.r2 {
						continue
					}
					cands = append(cands, cand{cell: c, d2: d2})
				}
			}
		}
		if len(cands) >= maxn {
			break
		}
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].d2 < cands[j].d2 })
	if len(cands) > maxn {
		cands = cands[:maxn]
	}
	for _, c := range cands {
		dst = append(dst, c.cell)
	}
	return dst
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
