package grid

import (
	"testing"
)

// TestNewValidation verifies that invalid grid definitions are rejected
func TestNewValidation(t *testing.T) {
	testCases := []struct {
		name      string
		dimension []int
		spacing   []float64
		origin    []float64
		wantErr   bool
	}{
		{"valid 1D", []int{10}, []float64{1.0}, []float64{0.0}, false},
		{"valid 2D", []int{10, 5}, []float64{1.0, 2.0}, []float64{0.0, -1.0}, false},
		{"valid 3D", []int{4, 3, 2}, []float64{1.0, 1.0, 1.0}, []float64{0.0, 0.0, 0.0}, false},
		{"empty", []int{}, []float64{}, []float64{}, true},
		{"4D", []int{2, 2, 2, 2}, []float64{1, 1, 1, 1}, []float64{0, 0, 0, 0}, true},
		{"mismatched spacing", []int{10, 5}, []float64{1.0}, []float64{0.0, 0.0}, true},
		{"zero size", []int{0}, []float64{1.0}, []float64{0.0}, true},
		{"zero spacing", []int{10}, []float64{0.0}, []float64{0.0}, true},
		{"negative spacing", []int{10}, []float64{-1.0}, []float64{0.0}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.dimension, tc.spacing, tc.origin)
			if tc.wantErr && err == nil {
				t.Errorf("expected an error, got none")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestCellOf verifies point-to-cell assignment including the boundary rule
func TestCellOf(t *testing.T) {
	g, err := New2D(4, 3, 1.0, 2.0, 0.0, 10.0)
	if err != nil {
		t.Fatalf("failed to create grid: %v", err)
	}

	testCases := []struct {
		name    string
		coord   []float64
		want    int
		wantErr bool
	}{
		{"origin", []float64{0.0, 10.0}, 0, false},
		{"cell interior", []float64{1.5, 12.5}, g.FlatIndex(1, 1, 0), false},
		{"interior boundary maps to lower cell", []float64{2.0, 12.0}, g.FlatIndex(1, 0, 0), false},
		{"upper edge belongs to last cell", []float64{4.0, 16.0}, g.FlatIndex(3, 2, 0), false},
		{"left of origin", []float64{-0.1, 12.0}, 0, true},
		{"beyond upper edge", []float64{4.1, 12.0}, 0, true},
		{"below origin y", []float64{1.0, 9.9}, 0, true},
		{"wrong dimension", []float64{1.0}, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := g.CellOf(tc.coord)
			if tc.wantErr {
				if err == nil {
					t.Errorf("CellOf(%v): expected an error, got index %d", tc.coord, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CellOf(%v): unexpected error: %v", tc.coord, err)
			}
			if got != tc.want {
				t.Errorf("CellOf(%v): expected %d, got %d", tc.coord, tc.want, got)
			}
		})
	}
}

// TestCellCenterRoundTrip verifies that every cell center maps back to its cell
func TestCellCenterRoundTrip(t *testing.T) {
	g, err := New3D(4, 3, 2, 0.5, 1.0, 2.0, -1.0, 0.0, 5.0)
	if err != nil {
		t.Fatalf("failed to create grid: %v", err)
	}

	for idx := 0; idx < g.NCells(); idx++ {
		center := g.CellCenter(idx)
		got, err := g.CellOf(center)
		if err != nil {
			t.Fatalf("CellOf(center of %d): unexpected error: %v", idx, err)
		}
		if got != idx {
			t.Errorf("cell %d: center %v maps to cell %d", idx, center, got)
		}
	}
}

// TestFlatIndexInverse verifies that CellCoords inverts FlatIndex
func TestFlatIndexInverse(t *testing.T) {
	g, err := New3D(5, 4, 3, 1, 1, 1, 0, 0, 0)
	if err != nil {
		t.Fatalf("failed to create grid: %v", err)
	}

	for iz := 0; iz < g.NZ(); iz++ {
		for iy := 0; iy < g.NY(); iy++ {
			for ix := 0; ix < g.NX(); ix++ {
				idx := g.FlatIndex(ix, iy, iz)
				gx, gy, gz := g.CellCoords(idx)
				if gx != ix || gy != iy || gz != iz {
					t.Errorf("FlatIndex(%d,%d,%d)=%d unflattened to (%d,%d,%d)",
						ix, iy, iz, idx, gx, gy, gz)
				}
			}
		}
	}
}

// TestInactiveAxes verifies the defaults on axes beyond the grid dimension
func TestInactiveAxes(t *testing.T) {
	g, err := New1D(8, 0.25, 2.0)
	if err != nil {
		t.Fatalf("failed to create grid: %v", err)
	}

	if g.Dim() != 1 {
		t.Errorf("expected dim 1, got %d", g.Dim())
	}
	if g.NY() != 1 || g.NZ() != 1 {
		t.Errorf("inactive axes should have size 1, got ny=%d nz=%d", g.NY(), g.NZ())
	}
	if g.NCells() != 8 {
		t.Errorf("expected 8 cells, got %d", g.NCells())
	}

	center := g.CellCenter(3)
	if len(center) != 1 {
		t.Fatalf("expected 1 component, got %d", len(center))
	}
	want := 2.0 + 0.25*3.5
	if center[0] != want {
		t.Errorf("expected center %g, got %g", want, center[0])
	}
}
