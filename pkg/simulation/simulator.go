// Package simulation implements conditional pluri-Gaussian simulation of
// categorical fields. A realization is the image of two latent Gaussian
// fields under a truncation rule; hard categorical data are honored by
// initializing the latent values at the data points with sequential simple
// kriging and resampling them with a Metropolis-Hastings loop until the rule
// reproduces every observed category, then simulating the full-grid fields
// conditioned on the accepted point values.
package simulation

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/alecomunian/geone/pkg/covariance"
	"github.com/alecomunian/geone/pkg/gaussian"
	"github.com/alecomunian/geone/pkg/grid"
	"github.com/alecomunian/geone/pkg/kriging"
	"github.com/alecomunian/geone/pkg/truncation"
)

// FieldSpec describes one latent field. A nil Model makes the field
// deterministic: its value is the mean everywhere, no randomness. A nil
// Generator defaults to the FFT generator for stochastic fields and to the
// deterministic generator otherwise.
type FieldSpec struct {
	Model     *covariance.Model
	Generator gaussian.Generator

	// Mean defaults to zero, Variance to the model sill.
	Mean     ParamSpec
	Variance ParamSpec
}

// Params collects everything one simulation call needs.
type Params struct {
	Grid   grid.Geometry
	T1, T2 FieldSpec
	Rule   truncation.Rule

	// Conditioning data; both empty for an unconditional simulation.
	CondCoords [][]float64
	CondValues []float64

	// Metropolis-Hastings schedule. The acceptance probability for a wrong
	// candidate at iteration nit < MHIterMin is
	// AcceptInit * (1 - nit/MHIterMin)^AcceptPow; from MHIterMin on, wrong
	// candidates are rejected and the loop stops once every point is honored,
	// or at MHIterMax.
	AcceptInit float64
	AcceptPow  float64
	MHIterMin  int
	MHIterMax  int

	// NTryMax bounds the attempts per realization; with RetrieveAnyway the
	// last attempt keeps a partially-honored realization instead of
	// dropping it.
	NTryMax        int
	RetrieveAnyway bool

	NReal int
	Seed  uint64

	// Workers > 1 simulates realizations concurrently. Results do not depend
	// on the worker count: every realization draws from its own stream
	// derived from Seed and the realization index.
	Workers int
}

// Result holds the retained realizations, one entry per realization in
// simulation order. HonoredHistory is the per-iteration honored count of the
// retained attempt's Metropolis-Hastings loop, empty for unconditional runs.
type Result struct {
	Z  [][]float64
	T1 [][]float64
	T2 [][]float64

	HonoredHistory [][]int
}

// fieldCtx is one latent field readied for simulation: resolved parameters,
// the defaulted generator and, for conditional runs, the point system and the
// mean at every conditioning point.
type fieldCtx struct {
	name string
	spec FieldSpec
	gen  gaussian.Generator

	mean     []float64
	variance []float64

	ps        *kriging.PointSystem
	pointMean []float64
}

// Simulator runs pluri-Gaussian simulations for one set of parameters.
type Simulator struct {
	p  Params
	t1 fieldCtx
	t2 fieldCtx
}

// NewSimulator validates the parameters. Validation failures are fatal; the
// retry machinery only covers numerical failures inside Run.
func NewSimulator(p *Params) (*Simulator, error) {
	if p == nil {
		return nil, fmt.Errorf("nil simulation parameters")
	}
	if p.Grid.Dim() < 1 {
		return nil, fmt.Errorf("simulation grid is not initialized")
	}
	if p.Rule == nil {
		return nil, fmt.Errorf("a truncation rule is required")
	}
	if p.NReal < 1 {
		return nil, fmt.Errorf("nreal must be at least 1, got %d", p.NReal)
	}
	if p.AcceptInit < 0 || p.AcceptInit > 1 {
		return nil, fmt.Errorf("accept_init must be in [0, 1], got %g", p.AcceptInit)
	}
	if p.AcceptPow < 0 {
		return nil, fmt.Errorf("accept_pow must be non-negative, got %g", p.AcceptPow)
	}
	if p.MHIterMin < 1 || p.MHIterMax < p.MHIterMin {
		return nil, fmt.Errorf("MH iteration bounds must satisfy 0 < min <= max, got min %d, max %d",
			p.MHIterMin, p.MHIterMax)
	}
	if p.NTryMax < 1 {
		return nil, fmt.Errorf("ntry_max must be at least 1, got %d", p.NTryMax)
	}
	if len(p.CondCoords) != len(p.CondValues) {
		return nil, fmt.Errorf("conditioning has %d coordinates and %d values",
			len(p.CondCoords), len(p.CondValues))
	}
	s := &Simulator{p: *p}
	s.t1 = fieldCtx{name: "T1", spec: p.T1}
	s.t2 = fieldCtx{name: "T2", spec: p.T2}
	for _, f := range []*fieldCtx{&s.t1, &s.t2} {
		if m := f.spec.Model; m != nil {
			if m.Dim() != p.Grid.Dim() {
				return nil, fmt.Errorf("%s covariance model is %dD, grid is %dD", f.name, m.Dim(), p.Grid.Dim())
			}
			if !m.IsStationary() {
				return nil, fmt.Errorf("%s covariance model must be stationary", f.name)
			}
			if m.Sill() <= 0 {
				return nil, fmt.Errorf("%s covariance model has non-positive sill %g", f.name, m.Sill())
			}
		}
		f.gen = f.spec.Generator
		if f.gen == nil {
			if f.spec.Model == nil {
				f.gen = gaussian.Deterministic{}
			} else {
				f.gen = gaussian.FFT{}
			}
		}
	}
	return s, nil
}

// Run simulates NReal realizations. Setup failures (parameter resolution,
// inconsistent conditioning data) are returned as errors; numerical failures
// and conditioning infeasibility are absorbed by the retry loop and show up
// only as missing realizations with a warning.
func (s *Simulator) Run() (*Result, error) {
	pts, err := s.setup()
	if err != nil {
		return nil, err
	}

	type realization struct {
		ok        bool
		z, t1, t2 []float64
		history   []int
	}
	results := make([]realization, s.p.NReal)
	simulate := func(ireal int) {
		rng := realizationRNG(s.p.Seed, ireal)
		z, t1, t2, history, ok := s.runRealization(ireal, pts, rng)
		results[ireal] = realization{ok: ok, z: z, t1: t1, t2: t2, history: history}
	}

	workers := s.p.Workers
	if workers > s.p.NReal {
		workers = s.p.NReal
	}
	if workers <= 1 {
		for i := 0; i < s.p.NReal; i++ {
			simulate(i)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					simulate(i)
				}
			}()
		}
		for i := 0; i < s.p.NReal; i++ {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	res := &Result{}
	for _, r := range results {
		if !r.ok {
			continue
		}
		res.Z = append(res.Z, r.z)
		res.T1 = append(res.T1, r.t1)
		res.T2 = append(res.T2, r.t2)
		res.HonoredHistory = append(res.HonoredHistory, r.history)
	}
	if len(res.Z) < s.p.NReal {
		logrus.Warnf("retained %d of %d realizations, the others failed every attempt",
			len(res.Z), s.p.NReal)
	}
	return res, nil
}

// setup resolves the field parameters on the grid, indexes the conditioning
// data and builds the point systems. The returned point set is nil for an
// unconditional run.
func (s *Simulator) setup() (*pointSet, error) {
	for _, f := range []*fieldCtx{&s.t1, &s.t2} {
		var err error
		if f.mean, err = resolveOnGrid(s.p.Grid, f.spec.Mean); err != nil {
			return nil, fmt.Errorf("%s mean: %w", f.name, err)
		}
		if f.variance, err = resolveOnGrid(s.p.Grid, f.spec.Variance); err != nil {
			return nil, fmt.Errorf("%s variance: %w", f.name, err)
		}
		for i, v := range f.variance {
			if v < 0 {
				return nil, fmt.Errorf("%s variance is negative (%g) at cell %d", f.name, v, i)
			}
		}
	}
	if len(s.p.CondCoords) == 0 {
		return nil, nil
	}
	pts, err := indexPoints(s.p.Grid, s.p.CondCoords, s.p.CondValues)
	if err != nil {
		return nil, err
	}
	for _, f := range []*fieldCtx{&s.t1, &s.t2} {
		f.pointMean = make([]float64, len(pts.cells))
		for i, cell := range pts.cells {
			f.pointMean[i] = at(f.mean, cell)
		}
		if f.spec.Model == nil {
			continue
		}
		var pointVar []float64
		if f.variance != nil {
			pointVar = make([]float64, len(pts.cells))
			for i, cell := range pts.cells {
				pointVar[i] = at(f.variance, cell)
			}
		}
		f.ps = kriging.BuildPointSystem(f.spec.Model, pts.coords, pointVar)
	}
	return pts, nil
}

// runRealization attempts one realization up to NTryMax times.
func (s *Simulator) runRealization(ireal int, pts *pointSet, rng *rand.Rand) (z, t1, t2 []float64, history []int, ok bool) {
	logrus.Infof("simulating realization %d of %d", ireal+1, s.p.NReal)
	for try := 0; try < s.p.NTryMax; try++ {
		if try > 0 {
			logrus.Debugf("realization %d: attempt %d of %d", ireal+1, try+1, s.p.NTryMax)
		}

		var cond1, cond2 *gaussian.Conditioning
		var tryHistory []int
		if pts != nil {
			v1, err := s.t1.drawInitial(rng)
			if err != nil {
				logrus.Debugf("realization %d: %v", ireal+1, err)
				continue
			}
			v2, err := s.t2.drawInitial(rng)
			if err != nil {
				logrus.Debugf("realization %d: %v", ireal+1, err)
				continue
			}
			c := &conditioner{
				t1: &s.t1, t2: &s.t2,
				rule:       s.p.Rule,
				categories: pts.categories,
				acceptInit: s.p.AcceptInit,
				acceptPow:  s.p.AcceptPow,
				iterMin:    s.p.MHIterMin,
				iterMax:    s.p.MHIterMax,
			}
			tryHistory, err = c.run(v1, v2, rng)
			if err != nil {
				logrus.Debugf("realization %d: %v", ireal+1, err)
				continue
			}
			if tryHistory[len(tryHistory)-1] != len(pts.cells) {
				if try < s.p.NTryMax-1 || !s.p.RetrieveAnyway {
					logrus.Debugf("realization %d: conditioning honored %d of %d points",
						ireal+1, tryHistory[len(tryHistory)-1], len(pts.cells))
					continue
				}
				logrus.Warnf("realization %d honors %d of %d conditioning points, retrieved anyway",
					ireal+1, tryHistory[len(tryHistory)-1], len(pts.cells))
			}
			cond1 = &gaussian.Conditioning{Coords: pts.coords, Values: v1}
			cond2 = &gaussian.Conditioning{Coords: pts.coords, Values: v2}
		}

		f1, err := s.t1.gen.Simulate(s.p.Grid, s.t1.spec.Model, s.t1.mean, s.t1.variance, cond1, 1, rng)
		if err != nil {
			logrus.Debugf("realization %d: generating T1: %v", ireal+1, err)
			continue
		}
		f2, err := s.t2.gen.Simulate(s.p.Grid, s.t2.spec.Model, s.t2.mean, s.t2.variance, cond2, 1, rng)
		if err != nil {
			logrus.Debugf("realization %d: generating T2: %v", ireal+1, err)
			continue
		}
		zr, err := truncation.Apply(s.p.Rule, f1[0], f2[0])
		if err != nil {
			logrus.Debugf("realization %d: %v", ireal+1, err)
			continue
		}
		return zr, f1[0], f2[0], tryHistory, true
	}
	return nil, nil, nil, nil, false
}

// realizationRNG derives an independent random stream for one realization, so
// results are reproducible and independent of the worker count.
func realizationRNG(seed uint64, ireal int) *rand.Rand {
	return rand.New(rand.NewSource(seed + 0x9e3779b97f4a7c15*uint64(ireal+1)))
}

// Proportions returns the relative frequency of every category in the ireal-th
// retained categorical realization.
func (r *Result) Proportions(ireal int) map[float64]float64 {
	z := r.Z[ireal]
	props := make(map[float64]float64)
	for _, v := range z {
		props[v]++
	}
	n := float64(len(z))
	for v := range props {
		props[v] /= n
	}
	return props
}

// FieldStats returns the mean and standard deviation of a flattened field.
func FieldStats(field []float64) (mean, std float64) {
	return stat.MeanStdDev(field, nil)
}
