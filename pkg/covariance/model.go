// Package covariance provides stationary covariance models for Gaussian
// random fields, built as sums of elementary structures with geometric
// anisotropy given by one practical range per axis.
package covariance

import (
	"fmt"
	"math"
	"strings"
)

// StructureType identifies an elementary covariance structure.
type StructureType int

const (
	Nugget StructureType = iota
	Spherical
	Exponential
	Gaussian
	Cubic
)

// String returns the lowercase name of the structure type.
func (t StructureType) String() string {
	switch t {
	case Nugget:
		return "nugget"
	case Spherical:
		return "spherical"
	case Exponential:
		return "exponential"
	case Gaussian:
		return "gaussian"
	case Cubic:
		return "cubic"
	default:
		return fmt.Sprintf("StructureType(%d)", int(t))
	}
}

// ParseStructureType returns the structure type named by s (case-insensitive).
func ParseStructureType(s string) (StructureType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nugget":
		return Nugget, nil
	case "spherical":
		return Spherical, nil
	case "exponential":
		return Exponential, nil
	case "gaussian":
		return Gaussian, nil
	case "cubic":
		return Cubic, nil
	default:
		return 0, fmt.Errorf("unknown covariance structure type %q", s)
	}
}

// Structure is one elementary component of a covariance model.
type Structure struct {
	// Type selects the correlation kernel
	Type StructureType

	// Contribution is the variance contributed by this structure at lag zero
	// (its partial sill)
	Contribution float64

	// Ranges holds the practical range along each grid axis. It must be
	// empty for a nugget structure and have one entry per axis otherwise.
	Ranges []float64
}

// Model is a stationary covariance model: the sum of its structures.
type Model struct {
	dim        int
	structures []Structure
}

// NewModel creates a covariance model for the given number of axes (1 to 3).
//
// Parameters:
//   - dim: spatial dimension the model operates in
//   - structures: elementary structures; contributions must be non-negative
//     and every non-nugget structure needs dim positive ranges
func NewModel(dim int, structures ...Structure) (*Model, error) {
	if dim < 1 || dim > 3 {
		return nil, fmt.Errorf("model dimension must be 1, 2 or 3, got %d", dim)
	}
	if len(structures) == 0 {
		return nil, fmt.Errorf("a covariance model needs at least one structure")
	}
	for i, s := range structures {
		if s.Contribution < 0 {
			return nil, fmt.Errorf("structure %d (%s): contribution must be non-negative, got %g",
				i, s.Type, s.Contribution)
		}
		if s.Type == Nugget {
			if len(s.Ranges) != 0 {
				return nil, fmt.Errorf("structure %d: a nugget takes no ranges", i)
			}
			continue
		}
		if len(s.Ranges) != dim {
			return nil, fmt.Errorf("structure %d (%s): expected %d ranges, got %d",
				i, s.Type, dim, len(s.Ranges))
		}
		for a, r := range s.Ranges {
			if r <= 0 {
				return nil, fmt.Errorf("structure %d (%s): range along axis %d must be positive, got %g",
					i, s.Type, a, r)
			}
		}
	}
	m := &Model{dim: dim, structures: make([]Structure, len(structures))}
	copy(m.structures, structures)
	return m, nil
}

// Dim returns the spatial dimension of the model.
func (m *Model) Dim() int { return m.dim }

// IsStationary reports whether the model is stationary. Composite models of
// elementary structures always are; the simulator rejects anything else.
func (m *Model) IsStationary() bool { return true }

// Sill returns the covariance at lag zero, the total variance of the model.
func (m *Model) Sill() float64 {
	var c float64
	for _, s := range m.structures {
		c += s.Contribution
	}
	return c
}

// Covariance evaluates the model at the given lag vector, which must have
// Dim components. The nugget structure contributes only at exactly zero lag.
func (m *Model) Covariance(lag []float64) float64 {
	zero := true
	for a := 0; a < m.dim; a++ {
		if lag[a] != 0 {
			zero = false
			break
		}
	}
	var c float64
	for _, s := range m.structures {
		if s.Type == Nugget {
			if zero {
				c += s.Contribution
			}
			continue
		}
		var h2 float64
		for a := 0; a < m.dim; a++ {
			u := lag[a] / s.Ranges[a]
			h2 += u * u
		}
		c += s.Contribution * correlation(s.Type, math.Sqrt(h2))
	}
	return c
}

// Variogram evaluates the variogram of the model at the given lag,
// gamma(h) = Sill - Covariance(h).
func (m *Model) Variogram(lag []float64) float64 {
	return m.Sill() - m.Covariance(lag)
}

// MaxRange returns the largest practical range over all structures and axes,
// 0 for a pure nugget model.
func (m *Model) MaxRange() float64 {
	var r float64
	for _, s := range m.structures {
		for _, x := range s.Ranges {
			if x > r {
				r = x
			}
		}
	}
	return r
}

// correlation evaluates the normalized kernel of a structure type at the
// scaled lag h (h = 1 at the practical range).
func correlation(t StructureType, h float64) float64 {
	switch t {
	case Spherical:
		if h >= 1 {
			return 0
		}
		return 1 - 1.5*h + 0.5*h*h*h
	case Exponential:
		return math.Exp(-3 * h)
	case Gaussian:
		return math.Exp(-3 * h * h)
	case Cubic:
		if h >= 1 {
			return 0
		}
		h2 := h * h
		return 1 - 7*h2 + 8.75*h2*h - 3.5*h2*h2*h + 0.75*h2*h2*h2*h
	default:
		return 0
	}
}
