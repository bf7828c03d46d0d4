// Package kriging builds and solves simple kriging systems over sets of
// points. The same point system backs the sequential initialization and the
// Metropolis-Hastings resampling of point values, and the residual-kriging
// correction used for conditional field generation.
package kriging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/alecomunian/geone/pkg/covariance"
)

// PointSystem is the covariance matrix of a latent field over a fixed set of
// points, optionally rescaled for a spatially varying variance. It depends on
// the point locations only, so one system is shared read-only by every
// realization attempt. All methods are safe for concurrent use.
type PointSystem struct {
	model  *covariance.Model
	coords [][]float64
	scale  []float64 // sqrt(var_i/cov0) per point, nil when no rescaling
	m      *mat.SymDense
	cov0   float64
	n      int
}

// BuildPointSystem builds the system for the given point coordinates.
//
// Parameters:
//   - model: stationary covariance model of the field
//   - coords: point coordinates, one slice of model.Dim() components per point
//   - pointVar: variance of the field at each point, or nil to keep the model
//     sill everywhere; values rescale row i and column i by sqrt(var_i/cov0)
//
// The kriging variance always uses the unscaled sill: rescaling alters the
// matrix and the right-hand sides, never the prior variance term.
func BuildPointSystem(model *covariance.Model, coords [][]float64, pointVar []float64) *PointSystem {
	n := len(coords)
	cov0 := model.Sill()
	m := mat.NewSymDense(n, nil)
	lag := make([]float64, model.Dim())
	for i := 0; i < n; i++ {
		m.SetSym(i, i, cov0)
		for j := i + 1; j < n; j++ {
			for a := range lag {
				lag[a] = coords[j][a] - coords[i][a]
			}
			m.SetSym(i, j, model.Covariance(lag))
		}
	}
	ps := &PointSystem{model: model, coords: coords, m: m, cov0: cov0, n: n}
	if pointVar != nil {
		u := make([]float64, n)
		for i := range u {
			u[i] = math.Sqrt(pointVar[i] / cov0)
		}
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				m.SetSym(i, j, m.At(i, j)*u[i]*u[j])
			}
		}
		ps.scale = u
	}
	return ps
}

// N returns the number of points in the system.
func (ps *PointSystem) N() int { return ps.n }

// Cov0 returns the unscaled covariance at lag zero (the model sill).
func (ps *PointSystem) Cov0() float64 { return ps.cov0 }

// At returns the matrix entry (i, j).
func (ps *PointSystem) At(i, j int) float64 { return ps.m.At(i, j) }

// SolveSubset solves the kriging system restricted to the active points for
// the target point, both given as indices into the full system. It returns
// the kriging weights and the right-hand side (the covariance between each
// active point and the target). An empty active set yields empty weights.
// A non-positive-definite subsystem is reported as an error; callers treat
// it as a retryable numerical failure.
func (ps *PointSystem) SolveSubset(active []int, target int) (w, rhs []float64, err error) {
	na := len(active)
	rhs = make([]float64, na)
	for i, ai := range active {
		rhs[i] = ps.m.At(ai, target)
	}
	if na == 0 {
		return nil, rhs, nil
	}
	sub := mat.NewSymDense(na, nil)
	for i, ai := range active {
		for j := i; j < na; j++ {
			sub.SetSym(i, j, ps.m.At(ai, active[j]))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sub); !ok {
		return nil, nil, fmt.Errorf("kriging subsystem of order %d is not positive definite", na)
	}
	wv := mat.NewVecDense(na, nil)
	if err := chol.SolveVecTo(wv, mat.NewVecDense(na, rhs)); err != nil {
		return nil, nil, fmt.Errorf("solving kriging subsystem of order %d: %w", na, err)
	}
	return wv.RawVector().Data, rhs, nil
}

// Moments returns the simple kriging mean and standard deviation at the
// target point given the current values and the per-point means, using the
// active points as conditioning set.
//
// mu = mean[target] + sum_i w_i*(values[active_i] - mean[active_i]);
// sigma = sqrt(max(0, cov0 - w.rhs)).
func (ps *PointSystem) Moments(active []int, target int, values, means []float64) (mu, sigma float64, err error) {
	w, rhs, err := ps.SolveSubset(active, target)
	if err != nil {
		return 0, 0, err
	}
	mu = means[target]
	for i, ai := range active {
		mu += w[i] * (values[ai] - means[ai])
	}
	sig2 := ps.cov0 - floats.Dot(w, rhs)
	if sig2 < 0 {
		sig2 = 0
	}
	return mu, math.Sqrt(sig2), nil
}

// SolveWeights solves the full system for the given right-hand side.
func (ps *PointSystem) SolveWeights(rhs []float64) ([]float64, error) {
	if len(rhs) != ps.n {
		return nil, fmt.Errorf("right-hand side has length %d, system has %d points", len(rhs), ps.n)
	}
	if ps.n == 0 {
		return nil, nil
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(ps.m); !ok {
		return nil, fmt.Errorf("kriging system of order %d is not positive definite", ps.n)
	}
	w := mat.NewVecDense(ps.n, nil)
	if err := chol.SolveVecTo(w, mat.NewVecDense(ps.n, rhs)); err != nil {
		return nil, fmt.Errorf("solving kriging system of order %d: %w", ps.n, err)
	}
	return w.RawVector().Data, nil
}

// CrossCov fills dst with the covariance between each system point and an
// external location, including the per-point variance rescaling when the
// system carries one. Any rescaling at the external location itself is up to
// the caller. dst must have length N.
func (ps *PointSystem) CrossCov(coord []float64, dst []float64) {
	lag := make([]float64, ps.model.Dim())
	for i := 0; i < ps.n; i++ {
		for a := range lag {
			lag[a] = coord[a] - ps.coords[i][a]
		}
		c := ps.model.Covariance(lag)
		if ps.scale != nil {
			c *= ps.scale[i]
		}
		dst[i] = c
	}
}

// ExternalMoments returns the simple kriging mean and standard deviation at
// an external location given the values at the system points. means holds
// the field mean at each system point and may be nil for a zero-mean field;
// the mean at the external location itself is not added here.
func (ps *PointSystem) ExternalMoments(coord []float64, values, means []float64) (mu, sigma float64, err error) {
	rhs := make([]float64, ps.n)
	ps.CrossCov(coord, rhs)
	w, err := ps.SolveWeights(rhs)
	if err != nil {
		return 0, 0, err
	}
	for i := 0; i < ps.n; i++ {
		r := values[i]
		if means != nil {
			r -= means[i]
		}
		mu += w[i] * r
	}
	sig2 := ps.cov0 - floats.Dot(w, rhs)
	if sig2 < 0 {
		sig2 = 0
	}
	return mu, math.Sqrt(sig2), nil
}
