// Package gaussian generates realizations of Gaussian random fields on
// regular grids. Two stochastic generators are provided, spectral (FFT) and
// sequential, plus a degenerate deterministic one; all honor hard data at
// the grid cells containing the conditioning points.
package gaussian

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"

	"github.com/alecomunian/geone/pkg/covariance"
	"github.com/alecomunian/geone/pkg/grid"
)

// Conditioning carries hard data a generated field must reproduce at the
// grid cells containing the points.
type Conditioning struct {
	Coords [][]float64
	Values []float64
}

// Generator produces realizations of a Gaussian random field on a grid.
//
// mean and variance are grid-resolved parameter slices: length 1 for a
// constant, NCells for cell-wise values; mean may be nil for zero,
// variance may be nil to keep the model sill everywhere. Fields come back
// flattened x-fastest. Failures are reported as errors and are retryable
// from the caller's point of view.
type Generator interface {
	Simulate(g grid.Geometry, model *covariance.Model, mean, variance []float64,
		cond *Conditioning, nreal int, rng *rand.Rand) ([][]float64, error)
}

// NewGenerator returns the generator named by algo, "fft" or "sequential".
func NewGenerator(algo string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(algo)) {
	case "fft":
		return FFT{}, nil
	case "sequential":
		return &Sequential{}, nil
	default:
		return nil, fmt.Errorf("unknown field generator %q", algo)
	}
}

// Deterministic produces the mean field replicated nreal times. There is no
// randomness, so the model, the variance and the conditioning are ignored
// and rng may be nil.
type Deterministic struct{}

// Simulate implements Generator.
func (Deterministic) Simulate(g grid.Geometry, model *covariance.Model, mean, variance []float64,
	cond *Conditioning, nreal int, rng *rand.Rand) ([][]float64, error) {

	if nreal < 1 {
		return nil, fmt.Errorf("nreal must be at least 1, got %d", nreal)
	}
	out := make([][]float64, nreal)
	for r := range out {
		f := make([]float64, g.NCells())
		for i := range f {
			f[i] = at(mean, i)
		}
		out[r] = f
	}
	return out, nil
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

// scaleAt returns sqrt(var/cov0) at a cell, 1 when variance is nil.
func scaleAt(variance []float64, cov0 float64, i int) float64 {
	if variance == nil {
		return 1
	}
	return math.Sqrt(at(variance, i) / cov0)
}

// applyMoments turns a unit-sill residual field into
// mean + sqrt(var/cov0)*residual, in place.
func applyMoments(f []float64, mean, variance []float64, cov0 float64) {
	for i := range f {
		f[i] = at(mean, i) + scaleAt(variance, cov0, i)*f[i]
	}
}

// condCells assigns the conditioning points to their grid cells and returns
// the cells with their centers. Points sharing a cell are rejected here:
// deduplication is the caller's business and coincident centers would make
// the kriging systems singular.
func condCells(g grid.Geometry, cond *Conditioning) (cells []int, centers [][]float64, err error) {
	if len(cond.Coords) != len(cond.Values) {
		return nil, nil, fmt.Errorf("conditioning has %d coordinates and %d values",
			len(cond.Coords), len(cond.Values))
	}
	cells = make([]int, len(cond.Coords))
	centers = make([][]float64, len(cond.Coords))
	seen := make(map[int]struct{}, len(cond.Coords))
	for i, c := range cond.Coords {
		cell, err := g.CellOf(c)
		if err != nil {
			return nil, nil, fmt.Errorf("conditioning point %d: %w", i, err)
		}
		if _, dup := seen[cell]; dup {
			return nil, nil, fmt.Errorf("conditioning points share grid cell %d", cell)
		}
		seen[cell] = struct{}{}
		cells[i] = cell
		centers[i] = g.CellCenter(cell)
	}
	return cells, centers, nil
}
