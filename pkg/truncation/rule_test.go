package truncation

import (
	"math"
	"reflect"
	"testing"
)

// TestBoxRule verifies box matching, precedence and the background fallback
func TestBoxRule(t *testing.T) {
	inf := math.Inf(1)
	rule := NewBoxRule(0,
		Box{T1Min: -inf, T1Max: 0, T2Min: -inf, T2Max: inf, Value: 1},
		Box{T1Min: 0, T1Max: inf, T2Min: -inf, T2Max: 0, Value: 2},
		// Overlaps the previous box; must never win there.
		Box{T1Min: 0, T1Max: inf, T2Min: -inf, T2Max: inf, Value: 3},
	)

	testCases := []struct {
		name   string
		t1, t2 float64
		want   float64
	}{
		{"left half plane", -1.0, 5.0, 1},
		{"lower right quadrant", 1.0, -1.0, 2},
		{"upper right quadrant", 1.0, 1.0, 3},
		{"first match wins on overlap", 2.0, -3.0, 2},
		{"t1 boundary is half open", 0.0, 1.0, 3},
		{"t2 boundary is half open", 1.0, 0.0, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rule(tc.t1, tc.t2); got != tc.want {
				t.Errorf("rule(%g, %g): expected %g, got %g", tc.t1, tc.t2, tc.want, got)
			}
		})
	}
}

// TestBoxRuleBackground verifies the fallback when no box matches
func TestBoxRuleBackground(t *testing.T) {
	rule := NewBoxRule(9, Box{T1Min: 0, T1Max: 1, T2Min: 0, T2Max: 1, Value: 1})
	if got := rule(5, 5); got != 9 {
		t.Errorf("expected background 9, got %g", got)
	}
	if got := rule(1, 0.5); got != 9 {
		t.Errorf("upper bound must be exclusive, got %g", got)
	}
}

// TestApply verifies cell-wise evaluation and shape checking
func TestApply(t *testing.T) {
	rule := func(t1, t2 float64) float64 {
		if t1+t2 > 0 {
			return 1
		}
		return 0
	}

	z, err := Apply(rule, []float64{1, -1, 0.5}, []float64{1, -1, -0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1, 0, 1}
	if !reflect.DeepEqual(z, want) {
		t.Errorf("expected %v, got %v", want, z)
	}

	if _, err := Apply(rule, []float64{1, 2}, []float64{1}); err == nil {
		t.Errorf("expected an error for mismatched lengths")
	}
	if _, err := Apply(nil, []float64{1}, []float64{1}); err == nil {
		t.Errorf("expected an error for a nil rule")
	}
}

// TestCategories verifies distinct value extraction
func TestCategories(t *testing.T) {
	got := Categories([]float64{2, 1, 2, 0, 1, 1, 0})
	want := []float64{0, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if got := Categories(nil); len(got) != 0 {
		t.Errorf("expected no categories for an empty field, got %v", got)
	}
}
