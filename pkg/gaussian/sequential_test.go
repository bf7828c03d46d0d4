package gaussian

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/alecomunian/geone/pkg/covariance"
)

// TestSequentialConditional verifies exact data honoring
func TestSequentialConditional(t *testing.T) {
	g := testGrid1D(t, 24)
	model := testModel1D(t, covariance.Spherical, 1.0, 5.0)
	rng := rand.New(rand.NewSource(9))
	cond := &Conditioning{
		Coords: [][]float64{{3.5}, {16.5}},
		Values: []float64{2.0, -1.0},
	}

	out, err := (&Sequential{}).Simulate(g, model, []float64{0.5}, nil, cond, 3, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for r, f := range out {
		if math.Abs(f[3]-2.0) > 1e-12 {
			t.Errorf("realization %d: expected 2.0 at cell 3, got %g", r, f[3])
		}
		if math.Abs(f[16]+1.0) > 1e-12 {
			t.Errorf("realization %d: expected -1.0 at cell 16, got %g", r, f[16])
		}
	}
}

// TestSequentialStatistics verifies the realized moments on a large sample
func TestSequentialStatistics(t *testing.T) {
	g := testGrid1D(t, 48)
	model := testModel1D(t, covariance.Spherical, 1.0, 4.0)
	rng := rand.New(rand.NewSource(21))

	out, err := (&Sequential{}).Simulate(g, model, []float64{-1.0}, nil, nil, 60, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var all []float64
	for _, f := range out {
		all = append(all, f...)
	}
	mean, std := stat.MeanStdDev(all, nil)
	if math.Abs(mean+1.0) > 0.15 {
		t.Errorf("realized mean %g far from the configured -1.0", mean)
	}
	if math.Abs(std-1.0) > 0.15 {
		t.Errorf("realized standard deviation %g far from the unit sill", std)
	}
}

// TestSequentialNeighborCap verifies that a tight neighborhood still runs
func TestSequentialNeighborCap(t *testing.T) {
	g := testGrid1D(t, 16)
	model := testModel1D(t, covariance.Exponential, 1.0, 3.0)
	rng := rand.New(rand.NewSource(2))

	s := &Sequential{MaxNeighbors: 2, SearchRadius: 2.5}
	out, err := s.Simulate(g, model, nil, nil, nil, 2, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || len(out[0]) != 16 {
		t.Fatalf("unexpected output shape")
	}
}

// TestSequentialZeroVarianceConflict verifies the conflicting-data error
func TestSequentialZeroVarianceConflict(t *testing.T) {
	g := testGrid1D(t, 8)
	model := testModel1D(t, covariance.Spherical, 1.0, 3.0)
	rng := rand.New(rand.NewSource(2))
	cond := &Conditioning{Coords: [][]float64{{2.5}}, Values: []float64{1.0}}

	// Zero variance pins the field at its mean; a conditioning value off the
	// mean cannot be honored.
	if _, err := (&Sequential{}).Simulate(g, model, []float64{0}, []float64{0}, cond, 1, rng); err == nil {
		t.Errorf("expected an error for data off the mean under zero variance")
	}
}

// TestRingSearchOrder verifies nearest-first neighbor collection
func TestRingSearchOrder(t *testing.T) {
	g := testGrid1D(t, 10)
	informed := make([]bool, 10)
	informed[1] = true
	informed[4] = true
	informed[8] = true

	rs := newRingSearch(g, 10)
	neigh := rs.collect(3, informed, 2, nil)
	if len(neigh) != 2 {
		t.Fatalf("expected 2 neighbors, got %v", neigh)
	}
	if neigh[0] != 4 || neigh[1] != 1 {
		t.Errorf("expected nearest-first [4 1], got %v", neigh)
	}
}
