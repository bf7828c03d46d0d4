// Package truncation maps pairs of latent Gaussian values to categories.
// A rule partitions the (t1, t2) plane; the category of a grid cell is the
// rule evaluated at the two latent field values of that cell.
package truncation

import (
	"fmt"
	"sort"
)

// Rule assigns a category value to a pair of latent values. Rules must be
// pure functions: the simulator evaluates them point-wise while conditioning
// and cell-wise while assembling full realizations.
type Rule func(t1, t2 float64) float64

// Box is an axis-aligned rectangle of the (t1, t2) plane carrying a category.
// Bounds are half-open, Min <= t < Max; infinities are allowed.
type Box struct {
	T1Min, T1Max float64
	T2Min, T2Max float64

	// Value is the category assigned to pairs falling inside the box
	Value float64
}

// Contains reports whether the pair falls inside the box.
func (b Box) Contains(t1, t2 float64) bool {
	return t1 >= b.T1Min && t1 < b.T1Max && t2 >= b.T2Min && t2 < b.T2Max
}

// NewBoxRule builds a rule from a list of boxes. The first box containing a
// pair wins; pairs in no box get the background category.
func NewBoxRule(background float64, boxes ...Box) Rule {
	bs := make([]Box, len(boxes))
	copy(bs, boxes)
	return func(t1, t2 float64) float64 {
		for _, b := range bs {
			if b.Contains(t1, t2) {
				return b.Value
			}
		}
		return background
	}
}

// Apply evaluates the rule cell-wise over two latent fields of equal length.
func Apply(rule Rule, t1, t2 []float64) ([]float64, error) {
	if rule == nil {
		return nil, fmt.Errorf("nil truncation rule")
	}
	if len(t1) != len(t2) {
		return nil, fmt.Errorf("latent fields have different lengths (%d and %d)", len(t1), len(t2))
	}
	z := make([]float64, len(t1))
	for i := range t1 {
		z[i] = rule(t1[i], t2[i])
	}
	return z, nil
}

// Categories returns the sorted distinct values of a categorical field.
func Categories(values []float64) []float64 {
	seen := make(map[float64]struct{}, 8)
	for _, v := range values {
		seen[v] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
