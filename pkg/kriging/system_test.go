package kriging

import (
	"math"
	"testing"

	"github.com/alecomunian/geone/pkg/covariance"
)

// testModel returns a 1D spherical model with the given sill and range
func testModel(t *testing.T, sill, rng float64) *covariance.Model {
	t.Helper()
	m, err := covariance.NewModel(1, covariance.Structure{
		Type:         covariance.Spherical,
		Contribution: sill,
		Ranges:       []float64{rng},
	})
	if err != nil {
		t.Fatalf("failed to create model: %v", err)
	}
	return m
}

// TestBuildPointSystem verifies matrix entries and symmetry
func TestBuildPointSystem(t *testing.T) {
	model := testModel(t, 2.0, 10.0)
	coords := [][]float64{{0}, {4}, {30}}
	ps := BuildPointSystem(model, coords, nil)

	if ps.N() != 3 {
		t.Fatalf("expected 3 points, got %d", ps.N())
	}
	if ps.Cov0() != 2.0 {
		t.Errorf("expected cov0 2.0, got %g", ps.Cov0())
	}

	for i := 0; i < 3; i++ {
		if got := ps.At(i, i); got != 2.0 {
			t.Errorf("diagonal entry (%d,%d): expected sill 2.0, got %g", i, i, got)
		}
	}

	want01 := model.Covariance([]float64{4})
	if got := ps.At(0, 1); math.Abs(got-want01) > 1e-12 {
		t.Errorf("entry (0,1): expected %g, got %g", want01, got)
	}
	if ps.At(0, 1) != ps.At(1, 0) {
		t.Errorf("matrix must be symmetric: %g vs %g", ps.At(0, 1), ps.At(1, 0))
	}
	// Points 0 and 2 lie beyond the range of each other.
	if got := ps.At(0, 2); got != 0 {
		t.Errorf("entry (0,2): expected 0 beyond the range, got %g", got)
	}
}

// TestVarianceRescaling verifies row/column scaling and the unscaled variance term
func TestVarianceRescaling(t *testing.T) {
	model := testModel(t, 1.0, 10.0)
	coords := [][]float64{{0}, {4}}
	pointVar := []float64{4.0, 1.0}
	ps := BuildPointSystem(model, coords, pointVar)

	// Diagonal becomes the point variance.
	if got := ps.At(0, 0); math.Abs(got-4.0) > 1e-12 {
		t.Errorf("rescaled diagonal (0,0): expected 4.0, got %g", got)
	}
	if got := ps.At(1, 1); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("rescaled diagonal (1,1): expected 1.0, got %g", got)
	}
	// Off-diagonal scaled by sqrt(4)*sqrt(1) = 2.
	base := model.Covariance([]float64{4})
	if got := ps.At(0, 1); math.Abs(got-2*base) > 1e-12 {
		t.Errorf("rescaled entry (0,1): expected %g, got %g", 2*base, got)
	}

	// The variance term keeps the unscaled sill: with an empty active set the
	// kriging standard deviation is sqrt(cov0), not the rescaled diagonal.
	_, sigma, err := ps.Moments(nil, 0, []float64{0, 0}, []float64{0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sigma-1.0) > 1e-12 {
		t.Errorf("prior sigma: expected 1.0 (unscaled cov0), got %g", sigma)
	}
}

// TestSolveSubsetTwoPoints verifies weights against the closed-form solution
func TestSolveSubsetTwoPoints(t *testing.T) {
	model := testModel(t, 1.0, 10.0)
	coords := [][]float64{{0}, {4}}
	ps := BuildPointSystem(model, coords, nil)

	w, rhs, err := ps.SolveSubset([]int{0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := model.Covariance([]float64{4})
	if len(w) != 1 || math.Abs(w[0]-c) > 1e-12 {
		t.Errorf("expected weight %g, got %v", c, w)
	}
	if len(rhs) != 1 || math.Abs(rhs[0]-c) > 1e-12 {
		t.Errorf("expected rhs %g, got %v", c, rhs)
	}

	means := []float64{0.5, 0.5}
	values := []float64{2.0, 0.0}
	mu, sigma, err := ps.Moments([]int{0}, 1, values, means)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantMu := 0.5 + c*(2.0-0.5)
	wantSigma := math.Sqrt(1.0 - c*c)
	if math.Abs(mu-wantMu) > 1e-12 {
		t.Errorf("expected mu %g, got %g", wantMu, mu)
	}
	if math.Abs(sigma-wantSigma) > 1e-12 {
		t.Errorf("expected sigma %g, got %g", wantSigma, sigma)
	}
}

// TestSolveSubsetEmptyActive verifies the prior draw case
func TestSolveSubsetEmptyActive(t *testing.T) {
	model := testModel(t, 2.25, 5.0)
	ps := BuildPointSystem(model, [][]float64{{0}, {1}}, nil)

	mu, sigma, err := ps.Moments([]int{}, 0, []float64{0, 0}, []float64{3.0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mu != 3.0 {
		t.Errorf("expected prior mean 3.0, got %g", mu)
	}
	if math.Abs(sigma-1.5) > 1e-12 {
		t.Errorf("expected prior sigma 1.5, got %g", sigma)
	}
}

// TestSingularSubsystem verifies that coincident points fail as an error
func TestSingularSubsystem(t *testing.T) {
	model := testModel(t, 1.0, 10.0)
	coords := [][]float64{{2}, {2}, {8}}
	ps := BuildPointSystem(model, coords, nil)

	if _, _, err := ps.SolveSubset([]int{0, 1}, 2); err == nil {
		t.Errorf("expected an error for a singular subsystem")
	}
	if _, err := ps.SolveWeights([]float64{1, 1, 1}); err == nil {
		t.Errorf("expected an error for a singular full system")
	}
}

// TestExternalMoments verifies exact reproduction at a system point
func TestExternalMoments(t *testing.T) {
	model := testModel(t, 1.0, 6.0)
	coords := [][]float64{{0}, {3}, {9}}
	values := []float64{1.5, -0.5, 2.0}
	ps := BuildPointSystem(model, coords, nil)

	mu, sigma, err := ps.ExternalMoments([]float64{3}, values, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(mu-values[1]) > 1e-9 {
		t.Errorf("kriging at a data point: expected %g, got %g", values[1], mu)
	}
	if sigma > 1e-6 {
		t.Errorf("kriging variance at a data point should vanish, got sigma %g", sigma)
	}

	// Beyond the range of every point the estimate falls back to the prior.
	mu, sigma, err = ps.ExternalMoments([]float64{100}, values, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mu != 0 {
		t.Errorf("expected zero-mean prior estimate, got %g", mu)
	}
	if math.Abs(sigma-1.0) > 1e-9 {
		t.Errorf("expected prior sigma 1.0, got %g", sigma)
	}
}

// TestSolveWeightsIdentity verifies the decoupled case of distant points
func TestSolveWeightsIdentity(t *testing.T) {
	model := testModel(t, 2.0, 3.0)
	coords := [][]float64{{0}, {10}, {20}}
	ps := BuildPointSystem(model, coords, nil)

	rhs := []float64{1.0, 0.5, -2.0}
	w, err := ps.SolveWeights(rhs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range w {
		if math.Abs(w[i]-rhs[i]/2.0) > 1e-12 {
			t.Errorf("weight %d: expected %g, got %g", i, rhs[i]/2.0, w[i])
		}
	}
}

// BenchmarkSolveSubset measures the leave-one-out solve used by the
// Metropolis-Hastings sweeps
func BenchmarkSolveSubset(b *testing.B) {
	model, err := covariance.NewModel(1, covariance.Structure{
		Type:         covariance.Exponential,
		Contribution: 1.0,
		Ranges:       []float64{25.0},
	})
	if err != nil {
		b.Fatalf("failed to create model: %v", err)
	}

	n := 50
	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = []float64{float64(i) * 1.7}
	}
	ps := BuildPointSystem(model, coords, nil)

	active := make([]int, 0, n-1)
	for i := 1; i < n; i++ {
		active = append(active, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := ps.SolveSubset(active, 0); err != nil {
			b.Fatalf("solve failed: %v", err)
		}
	}
}
