// Package output writes simulation results to disk: raw binary field dumps
// plus a YAML sidecar describing the grid, so the flattened values can be
// reshaped by other tools.
package output

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/alecomunian/geone/pkg/grid"
)

// Writer writes per-realization outputs under one directory.
type Writer struct {
	Dir string
}

// NewWriter creates the output directory and returns a writer for it.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{Dir: dir}, nil
}

// gridInfo is the sidecar schema describing the dumped fields.
type gridInfo struct {
	Dimension []int     `yaml:"dimension"`
	Spacing   []float64 `yaml:"spacing"`
	Origin    []float64 `yaml:"origin"`
	Order     string    `yaml:"order"`
	Format    string    `yaml:"format"`
}

// WriteGridInfo writes grid.yaml next to the field dumps.
func (w *Writer) WriteGridInfo(g grid.Geometry) error {
	info := gridInfo{
		Order:  "x-fastest",
		Format: "float64 little-endian",
	}
	for a := 0; a < g.Dim(); a++ {
		info.Dimension = append(info.Dimension, g.SizeAxis(a))
		info.Spacing = append(info.Spacing, g.SpacingAxis(a))
		info.Origin = append(info.Origin, g.OriginAxis(a))
	}
	data, err := yaml.Marshal(&info)
	if err != nil {
		return fmt.Errorf("marshaling grid info: %w", err)
	}
	path := filepath.Join(w.Dir, "grid.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing grid info: %w", err)
	}
	return nil
}

// FieldPath returns the dump path of one field of one realization, e.g.
// "Z_003.bin" for name "Z" and realization index 2.
func (w *Writer) FieldPath(name string, ireal int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("%s_%03d.bin", name, ireal+1))
}

// WriteField dumps a flattened field as raw little-endian float64 values and
// returns the file path.
func (w *Writer) WriteField(name string, ireal int, field []float64) (string, error) {
	path := w.FieldPath(name, ireal)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating field dump: %w", err)
	}
	defer f.Close()
	buf := bufio.NewWriter(f)
	if err := binary.Write(buf, binary.LittleEndian, field); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := buf.Flush(); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ReadField reads a dump written by WriteField. The expected length comes
// from the grid.
func ReadField(path string, ncells int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening field dump: %w", err)
	}
	defer f.Close()
	field := make([]float64, ncells)
	if err := binary.Read(bufio.NewReader(f), binary.LittleEndian, field); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return field, nil
}
