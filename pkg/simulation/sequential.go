package simulation

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// drawInitial draws a starting value of one latent field at every conditioning
// point by sequential simple kriging: points are visited along a fresh random
// permutation and each value comes from the kriging distribution given the
// values drawn so far. The first visited point draws from the prior. The
// truncation rule plays no role yet; the Metropolis-Hastings loop takes over
// from here.
//
// A deterministic field (no covariance model) gets its mean at every point
// and consumes no randomness. A singular kriging subsystem is returned as an
// error; the caller retries the whole attempt.
func (f *fieldCtx) drawInitial(rng *rand.Rand) ([]float64, error) {
	npt := len(f.pointMean)
	vals := make([]float64, npt)
	if f.ps == nil {
		copy(vals, f.pointMean)
		return vals, nil
	}
	perm := rng.Perm(npt)
	for j, k := range perm {
		mu, sigma, err := f.ps.Moments(perm[:j], k, vals, f.pointMean)
		if err != nil {
			return nil, fmt.Errorf("initializing %s at point %d: %w", f.name, k, err)
		}
		vals[k] = distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}.Rand()
	}
	return vals, nil
}

// candidate draws a new value of the field at point k from the kriging
// distribution given the current values at the active points (every point but
// k, for the Metropolis-Hastings sweeps). A deterministic field always
// proposes its mean.
func (f *fieldCtx) candidate(active []int, k int, vals []float64, rng *rand.Rand) (float64, error) {
	if f.ps == nil {
		return f.pointMean[k], nil
	}
	mu, sigma, err := f.ps.Moments(active, k, vals, f.pointMean)
	if err != nil {
		return 0, fmt.Errorf("resampling %s at point %d: %w", f.name, k, err)
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}.Rand(), nil
}
