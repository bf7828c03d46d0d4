package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alecomunian/geone/internal/output"
	"github.com/alecomunian/geone/pkg/config"
	"github.com/alecomunian/geone/pkg/render"
	"github.com/alecomunian/geone/pkg/simulation"
)

var (
	runConfigPath string
	runOutDir     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return err
		}
		if runOutDir != "" {
			cfg.Output.Dir = runOutDir
		}
		params, err := cfg.BuildParams()
		if err != nil {
			return err
		}
		sim, err := simulation.NewSimulator(params)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := sim.Run()
		if err != nil {
			return err
		}
		logrus.Infof("simulation finished in %s", time.Since(start).Round(time.Millisecond))

		if err := writeResults(cfg, params, res); err != nil {
			return err
		}
		printSummary(cfg, res)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "scenario.yaml", "scenario YAML file")
	runCmd.Flags().StringVar(&runOutDir, "out", "", "output directory (overrides the scenario)")
	rootCmd.AddCommand(runCmd)
}

// writeResults dumps the retained realizations and the configured renderings.
func writeResults(cfg *config.Config, params *simulation.Params, res *simulation.Result) error {
	w, err := output.NewWriter(cfg.Output.Dir)
	if err != nil {
		return err
	}
	if err := w.WriteGridInfo(params.Grid); err != nil {
		return err
	}

	fields := map[string][][]float64{"Z": res.Z}
	if cfg.Output.SaveLatent {
		fields["T1"] = res.T1
		fields["T2"] = res.T2
	}
	for name, reals := range fields {
		for i, f := range reals {
			if _, err := w.WriteField(name, i, f); err != nil {
				return err
			}
		}
	}

	if cfg.Output.SavePNG {
		for i, z := range res.Z {
			slice, sw, sh, err := render.ExtractSlice(z, params.Grid, cfg.Output.SliceAxis, cfg.Output.SlicePos)
			if err != nil {
				return err
			}
			img, err := render.CategoricalImage(slice, sw, sh, nil)
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("Z_%03d.png", i+1))
			if err := render.SaveImage(img, path); err != nil {
				return err
			}
			if !cfg.Output.SaveLatent {
				continue
			}
			for name, field := range map[string][]float64{"T1": res.T1[i], "T2": res.T2[i]} {
				slice, sw, sh, err := render.ExtractSlice(field, params.Grid, cfg.Output.SliceAxis, cfg.Output.SlicePos)
				if err != nil {
					return err
				}
				gray, err := render.GrayImage(slice, sw, sh)
				if err != nil {
					return err
				}
				path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("%s_%03d.png", name, i+1))
				if err := render.SaveImage(gray, path); err != nil {
					return err
				}
			}
		}
	}

	if cfg.Output.HistoryPlot && len(params.CondCoords) > 0 && len(res.HonoredHistory) > 0 {
		npt := len(params.CondCoords)
		path := filepath.Join(cfg.Output.Dir, "honored_history.png")
		if err := render.HonoredHistoryPlot(res.HonoredHistory, npt, path); err != nil {
			logrus.Warnf("skipping history plot: %v", err)
		}
	}
	return nil
}

// printSummary reports the retained realizations and their category
// proportions.
func printSummary(cfg *config.Config, res *simulation.Result) {
	fmt.Printf("retained %d of %d realizations in %s\n", len(res.Z), cfg.NReal, cfg.Output.Dir)
	for i := range res.Z {
		props := res.Proportions(i)
		cats := make([]float64, 0, len(props))
		for c := range props {
			cats = append(cats, c)
		}
		sort.Float64s(cats)
		fmt.Printf("realization %d:", i+1)
		for _, c := range cats {
			fmt.Printf("  category %g: %.3f", c, props[c])
		}
		fmt.Println()
	}
}
