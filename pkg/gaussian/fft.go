package gaussian

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/alecomunian/geone/pkg/covariance"
	"github.com/alecomunian/geone/pkg/grid"
	"github.com/alecomunian/geone/pkg/kriging"
)

// FFT generates stationary Gaussian fields by circulant embedding. The
// covariance is wrapped onto a periodic lattice whose eigenvalues come from
// a d-dimensional FFT; one complex synthesis yields two independent fields
// (real and imaginary parts). Conditioning is applied afterwards as a
// simple kriging correction of the residuals at the data cells.
//
// Each axis is extended to the next power of two at least twice the grid
// size, so memory grows accordingly on large 3D grids.
type FFT struct{}

// Simulate implements Generator.
func (FFT) Simulate(g grid.Geometry, model *covariance.Model, mean, variance []float64,
	cond *Conditioning, nreal int, rng *rand.Rand) ([][]float64, error) {

	if model == nil {
		return nil, fmt.Errorf("the FFT generator requires a covariance model")
	}
	if model.Dim() != g.Dim() {
		return nil, fmt.Errorf("model dimension %d does not match grid dimension %d",
			model.Dim(), g.Dim())
	}
	if nreal < 1 {
		return nil, fmt.Errorf("nreal must be at least 1, got %d", nreal)
	}

	d := g.Dim()
	msize := make([]int, d)
	total := 1
	for a := 0; a < d; a++ {
		msize[a] = nextPow2(2 * g.SizeAxis(a))
		total *= msize[a]
	}
	ffts := make([]*fourier.CmplxFFT, d)
	for a := 0; a < d; a++ {
		ffts[a] = fourier.NewCmplxFFT(msize[a])
	}

	roots := embeddingRoots(g, model, msize, total, ffts)

	cov0 := model.Sill()
	scale := 1 / math.Sqrt(float64(total))
	work := make([]complex128, total)

	out := make([][]float64, 0, nreal)
	for len(out) < nreal {
		for i := range work {
			s := roots[i] * scale
			work[i] = complex(rng.NormFloat64()*s, rng.NormFloat64()*s)
		}
		inverseTransform(work, msize, ffts)
		for part := 0; part < 2 && len(out) < nreal; part++ {
			f := extractField(work, g, msize, part)
			applyMoments(f, mean, variance, cov0)
			out = append(out, f)
		}
	}

	if cond != nil && len(cond.Coords) > 0 {
		if err := conditionFields(out, g, model, variance, cond); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// embeddingRoots returns the square roots of the circulant eigenvalues of
// the covariance on the embedding lattice. Small negative eigenvalues from
// an imperfect embedding are clamped to zero.
func embeddingRoots(g grid.Geometry, model *covariance.Model, msize []int, total int,
	ffts []*fourier.CmplxFFT) []float64 {

	d := len(msize)
	work := make([]complex128, total)
	lag := make([]float64, d)
	for i := 0; i < total; i++ {
		rem := i
		for a := 0; a < d; a++ {
			t := rem % msize[a]
			rem /= msize[a]
			if t > msize[a]/2 {
				t -= msize[a]
			}
			lag[a] = float64(t) * g.SpacingAxis(a)
		}
		work[i] = complex(model.Covariance(lag), 0)
	}
	forwardTransform(work, msize, ffts)

	roots := make([]float64, total)
	clamped := 0
	minLam := math.Inf(1)
	for i, v := range work {
		lam := real(v)
		if lam < minLam {
			minLam = lam
		}
		if lam < 0 {
			lam = 0
			clamped++
		}
		roots[i] = math.Sqrt(lam)
	}
	if clamped > 0 {
		logrus.Debugf("circulant embedding clamped %d of %d negative eigenvalues (min %g)",
			clamped, total, minLam)
	}
	return roots
}

// conditionFields applies the kriging correction that makes every field
// honor the conditioning values at the cells containing the points.
func conditionFields(fields [][]float64, g grid.Geometry, model *covariance.Model,
	variance []float64, cond *Conditioning) error {

	cells, centers, err := condCells(g, cond)
	if err != nil {
		return err
	}
	npt := len(cells)
	var pointVar []float64
	if variance != nil {
		pointVar = make([]float64, npt)
		for i, cell := range cells {
			pointVar[i] = at(variance, cell)
		}
	}
	ps := kriging.BuildPointSystem(model, centers, pointVar)
	cov0 := model.Sill()

	resid := make([]float64, npt)
	cross := make([]float64, npt)
	ncells := g.NCells()
	for _, f := range fields {
		for i, cell := range cells {
			resid[i] = cond.Values[i] - f[cell]
		}
		w, err := ps.SolveWeights(resid)
		if err != nil {
			return err
		}
		for idx := 0; idx < ncells; idx++ {
			ps.CrossCov(g.CellCenter(idx), cross)
			f[idx] += scaleAt(variance, cov0, idx) * floats.Dot(w, cross)
		}
	}
	return nil
}

// forwardTransform applies the unnormalized DFT along every axis in place.
func forwardTransform(data []complex128, sizes []int, ffts []*fourier.CmplxFFT) {
	for a := range sizes {
		transformAxis(data, sizes, a, func(src, dst []complex128) {
			ffts[a].Coefficients(dst, src)
		})
	}
}

// inverseTransform applies the unnormalized inverse DFT along every axis in
// place. A forward pass followed by an inverse pass scales the data by the
// lattice size.
func inverseTransform(data []complex128, sizes []int, ffts []*fourier.CmplxFFT) {
	for a := range sizes {
		transformAxis(data, sizes, a, func(src, dst []complex128) {
			ffts[a].Sequence(dst, src)
		})
	}
}

// transformAxis gathers every line of the flattened lattice along one axis
// into a scratch buffer, applies fn, and scatters the result back.
func transformAxis(data []complex128, sizes []int, axis int, fn func(src, dst []complex128)) {
	n := sizes[axis]
	stride := 1
	for a := 0; a < axis; a++ {
		stride *= sizes[a]
	}
	block := stride * n
	src := make([]complex128, n)
	dst := make([]complex128, n)
	for base := 0; base < len(data); base += block {
		for off := 0; off < stride; off++ {
			start := base + off
			for i := 0; i < n; i++ {
				src[i] = data[start+i*stride]
			}
			fn(src, dst)
			for i := 0; i < n; i++ {
				data[start+i*stride] = dst[i]
			}
		}
	}
}

// extractField reads the original-grid block of the embedding lattice.
// part 0 takes the real parts, part 1 the imaginary parts; the two are
// independent realizations.
func extractField(work []complex128, g grid.Geometry, msize []int, part int) []float64 {
	f := make([]float64, g.NCells())
	d := g.Dim()
	for idx := range f {
		ix, iy, iz := g.CellCoords(idx)
		ijk := [3]int{ix, iy, iz}
		ti := 0
		stride := 1
		for a := 0; a < d; a++ {
			ti += ijk[a] * stride
			stride *= msize[a]
		}
		if part == 0 {
			f[idx] = real(work[ti])
		} else {
			f[idx] = imag(work[ti])
		}
	}
	return f
}

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
