// Package config loads simulation scenarios from YAML files and translates
// them into simulation parameters. Missing files fall back to a default
// scenario.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/alecomunian/geone/pkg/covariance"
	"github.com/alecomunian/geone/pkg/gaussian"
	"github.com/alecomunian/geone/pkg/grid"
	"github.com/alecomunian/geone/pkg/simulation"
	"github.com/alecomunian/geone/pkg/truncation"
)

// StructureConfig is one elementary covariance structure.
type StructureConfig struct {
	// Type names the kernel: nugget, spherical, exponential, gaussian, cubic
	Type string `yaml:"type"`

	// Contribution is the partial sill of the structure
	Contribution float64 `yaml:"contribution"`

	// Ranges holds one practical range per grid axis (empty for a nugget)
	Ranges []float64 `yaml:"ranges"`
}

// FieldConfig describes one latent field. A field without structures is
// deterministic: its value is the mean everywhere.
type FieldConfig struct {
	Structures []StructureConfig `yaml:"structures"`

	// Algorithm selects the generator, "fft" (default) or "sequential"
	Algorithm string `yaml:"algorithm"`

	Mean float64 `yaml:"mean"`

	// Variance optionally rescales the field variance away from the sill
	Variance *float64 `yaml:"variance"`
}

// BoxConfig is one rectangle of the truncation rule. Omitted bounds extend
// to infinity.
type BoxConfig struct {
	T1Min *float64 `yaml:"t1min"`
	T1Max *float64 `yaml:"t1max"`
	T2Min *float64 `yaml:"t2min"`
	T2Max *float64 `yaml:"t2max"`
	Value float64  `yaml:"value"`
}

// PointConfig is one hard conditioning datum.
type PointConfig struct {
	Coord []float64 `yaml:"coord"`
	Value float64   `yaml:"value"`
}

// Config is a simulation scenario loaded from YAML.
type Config struct {
	Grid struct {
		Dimension []int     `yaml:"dimension"`
		Spacing   []float64 `yaml:"spacing"`
		Origin    []float64 `yaml:"origin"`
	} `yaml:"grid"`

	T1 FieldConfig `yaml:"t1"`
	T2 FieldConfig `yaml:"t2"`

	Truncation struct {
		// Background is the category of pairs falling in no box
		Background float64     `yaml:"background"`
		Boxes      []BoxConfig `yaml:"boxes"`
	} `yaml:"truncation"`

	Conditioning struct {
		Points []PointConfig `yaml:"points"`
	} `yaml:"conditioning"`

	Metropolis struct {
		AcceptInit float64 `yaml:"acceptInit"`
		AcceptPow  float64 `yaml:"acceptPow"`
		IterMin    int     `yaml:"iterMin"`
		IterMax    int     `yaml:"iterMax"`
	} `yaml:"metropolis"`

	NTryMax        int    `yaml:"ntryMax"`
	RetrieveAnyway bool   `yaml:"retrieveAnyway"`
	NReal          int    `yaml:"nreal"`
	Seed           uint64 `yaml:"seed"`
	Workers        int    `yaml:"workers"`

	Output struct {
		Dir string `yaml:"dir"`

		// SaveLatent additionally dumps the latent fields T1 and T2
		SaveLatent bool `yaml:"saveLatent"`

		// SavePNG writes a slice image per realization
		SavePNG bool `yaml:"savePng"`

		// HistoryPlot charts the honored-count history of conditional runs
		HistoryPlot bool `yaml:"historyPlot"`

		// SliceAxis and SlicePos select the rendered slice
		SliceAxis string `yaml:"sliceAxis"`
		SlicePos  int    `yaml:"slicePos"`
	} `yaml:"output"`
}

// DefaultConfig returns a runnable 2D three-facies scenario.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Grid.Dimension = []int{50, 50}
	cfg.Grid.Spacing = []float64{1.0, 1.0}
	cfg.Grid.Origin = []float64{0.0, 0.0}

	cfg.T1 = FieldConfig{
		Structures: []StructureConfig{{Type: "spherical", Contribution: 1.0, Ranges: []float64{15.0, 15.0}}},
		Algorithm:  "fft",
	}
	cfg.T2 = FieldConfig{
		Structures: []StructureConfig{{Type: "exponential", Contribution: 1.0, Ranges: []float64{10.0, 10.0}}},
		Algorithm:  "fft",
	}

	zero := 0.0
	cfg.Truncation.Background = 3
	cfg.Truncation.Boxes = []BoxConfig{
		{T1Max: &zero, Value: 1},
		{T1Min: &zero, T2Max: &zero, Value: 2},
	}

	cfg.Metropolis.AcceptInit = 0.25
	cfg.Metropolis.AcceptPow = 2.0
	cfg.Metropolis.IterMin = 100
	cfg.Metropolis.IterMax = 200

	cfg.NTryMax = 1
	cfg.NReal = 1
	cfg.Seed = 444
	cfg.Workers = runtime.NumCPU()

	cfg.Output.Dir = "geone_output"
	cfg.Output.SavePNG = true
	cfg.Output.HistoryPlot = true
	cfg.Output.SliceAxis = "z"

	return cfg
}

// LoadConfig loads a scenario from a YAML file. A missing file yields the
// default scenario.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes a scenario to a YAML file, creating the directory if
// needed.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// BuildParams translates a scenario into simulation parameters. Structural
// problems (bad grid, unknown kernels, malformed boxes) surface here; the
// remaining validation happens in simulation.NewSimulator.
func (cfg *Config) BuildParams() (*simulation.Params, error) {
	g, err := grid.New(cfg.Grid.Dimension, cfg.Grid.Spacing, cfg.Grid.Origin)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}

	t1, err := buildField(&cfg.T1, g.Dim(), "t1")
	if err != nil {
		return nil, err
	}
	t2, err := buildField(&cfg.T2, g.Dim(), "t2")
	if err != nil {
		return nil, err
	}

	boxes := make([]truncation.Box, len(cfg.Truncation.Boxes))
	for i, b := range cfg.Truncation.Boxes {
		boxes[i] = truncation.Box{
			T1Min: bound(b.T1Min, math.Inf(-1)),
			T1Max: bound(b.T1Max, math.Inf(1)),
			T2Min: bound(b.T2Min, math.Inf(-1)),
			T2Max: bound(b.T2Max, math.Inf(1)),
			Value: b.Value,
		}
	}

	p := &simulation.Params{
		Grid: g,
		T1:   t1,
		T2:   t2,
		Rule: truncation.NewBoxRule(cfg.Truncation.Background, boxes...),

		AcceptInit: cfg.Metropolis.AcceptInit,
		AcceptPow:  cfg.Metropolis.AcceptPow,
		MHIterMin:  cfg.Metropolis.IterMin,
		MHIterMax:  cfg.Metropolis.IterMax,

		NTryMax:        cfg.NTryMax,
		RetrieveAnyway: cfg.RetrieveAnyway,
		NReal:          cfg.NReal,
		Seed:           cfg.Seed,
		Workers:        cfg.Workers,
	}
	for i, pt := range cfg.Conditioning.Points {
		if len(pt.Coord) != g.Dim() {
			return nil, fmt.Errorf("conditioning point %d has %d coordinates, grid is %dD",
				i, len(pt.Coord), g.Dim())
		}
		p.CondCoords = append(p.CondCoords, pt.Coord)
		p.CondValues = append(p.CondValues, pt.Value)
	}
	return p, nil
}

// buildField translates one field section.
func buildField(fc *FieldConfig, dim int, name string) (simulation.FieldSpec, error) {
	spec := simulation.FieldSpec{Mean: simulation.Constant(fc.Mean)}
	if fc.Variance != nil {
		spec.Variance = simulation.Constant(*fc.Variance)
	}
	if len(fc.Structures) == 0 {
		if fc.Algorithm != "" {
			return spec, fmt.Errorf("%s: a deterministic field (no structures) takes no algorithm", name)
		}
		return spec, nil
	}
	structures := make([]covariance.Structure, len(fc.Structures))
	for i, sc := range fc.Structures {
		st, err := covariance.ParseStructureType(sc.Type)
		if err != nil {
			return spec, fmt.Errorf("%s structure %d: %w", name, i, err)
		}
		structures[i] = covariance.Structure{Type: st, Contribution: sc.Contribution, Ranges: sc.Ranges}
	}
	model, err := covariance.NewModel(dim, structures...)
	if err != nil {
		return spec, fmt.Errorf("%s: %w", name, err)
	}
	spec.Model = model
	if fc.Algorithm != "" {
		gen, err := gaussian.NewGenerator(fc.Algorithm)
		if err != nil {
			return spec, fmt.Errorf("%s: %w", name, err)
		}
		spec.Generator = gen
	}
	return spec, nil
}

// bound dereferences an optional box bound.
func bound(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
