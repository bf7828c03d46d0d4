// Package render turns simulated fields into images and diagnostic plots:
// grayscale slices of the latent fields, color-coded slices of the
// categorical field and the honored-count history of the conditioning loop.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecomunian/geone/pkg/grid"
	"github.com/alecomunian/geone/pkg/truncation"
)

// ExtractSlice extracts a 2D slice of a flattened field along the given axis
// ("x", "y" or "z") at the given cell position. It returns the slice values
// row by row together with the slice width and height. For a 1D grid only the
// y and z axes yield a (degenerate) slice of height 1.
func ExtractSlice(field []float64, g grid.Geometry, axis string, pos int) ([]float64, int, int, error) {
	if len(field) != g.NCells() {
		return nil, 0, 0, fmt.Errorf("field has %d cells, grid has %d", len(field), g.NCells())
	}
	var w, h int
	var cell func(u, v int) int
	switch strings.ToLower(axis) {
	case "x":
		if pos < 0 || pos >= g.NX() {
			return nil, 0, 0, fmt.Errorf("x position %d outside [0, %d)", pos, g.NX())
		}
		w, h = g.NY(), g.NZ()
		cell = func(u, v int) int { return g.FlatIndex(pos, u, v) }
	case "y":
		if pos < 0 || pos >= g.NY() {
			return nil, 0, 0, fmt.Errorf("y position %d outside [0, %d)", pos, g.NY())
		}
		w, h = g.NX(), g.NZ()
		cell = func(u, v int) int { return g.FlatIndex(u, pos, v) }
	case "z":
		if pos < 0 || pos >= g.NZ() {
			return nil, 0, 0, fmt.Errorf("z position %d outside [0, %d)", pos, g.NZ())
		}
		w, h = g.NX(), g.NY()
		cell = func(u, v int) int { return g.FlatIndex(u, v, pos) }
	default:
		return nil, 0, 0, fmt.Errorf("invalid axis %q (must be x, y or z)", axis)
	}

	out := make([]float64, w*h)
	for v := 0; v < h; v++ {
		for u := 0; u < w; u++ {
			out[v*w+u] = field[cell(u, v)]
		}
	}
	return out, w, h, nil
}

// GrayImage renders a slice as a 16-bit grayscale image normalized between
// the slice minimum and maximum. A constant slice renders black.
func GrayImage(slice []float64, w, h int) (*image.Gray16, error) {
	if len(slice) != w*h {
		return nil, fmt.Errorf("slice has %d values for a %dx%d image", len(slice), w, h)
	}
	lo, hi := slice[0], slice[0]
	for _, v := range slice {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var val uint16
			if span > 0 {
				val = uint16((slice[y*w+x] - lo) / span * 65535)
			}
			img.SetGray16(x, y, color.Gray16{Y: val})
		}
	}
	return img, nil
}

// defaultPalette is cycled over the sorted categories of a field.
var defaultPalette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
}

// CategoricalImage renders a categorical slice with one flat color per
// category. Colors are assigned deterministically by ascending category
// value; palette overrides the color of specific categories and may be nil.
func CategoricalImage(slice []float64, w, h int, palette map[float64]color.Color) (image.Image, error) {
	if len(slice) != w*h {
		return nil, fmt.Errorf("slice has %d values for a %dx%d image", len(slice), w, h)
	}
	colors := make(map[float64]color.Color)
	for i, cat := range truncation.Categories(slice) {
		colors[cat] = defaultPalette[i%len(defaultPalette)]
	}
	for cat, c := range palette {
		colors[cat] = c
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, colors[slice[y*w+x]])
		}
	}
	return img, nil
}

// SaveImage writes an image as PNG. The lossless format keeps category
// colors exact.
func SaveImage(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating image file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
