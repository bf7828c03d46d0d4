package render

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// HonoredHistoryPlot charts the honored-count history of the conditioning
// loop, one line per realization, with a horizontal line at the number of
// conditioning points. Realizations without a history (unconditional runs)
// are skipped; an empty chart is an error.
func HonoredHistoryPlot(histories [][]int, npt int, path string) error {
	p := plot.New()
	p.Title.Text = "Conditioning points honored per MH iteration"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "honored points"

	lines := 0
	for i, h := range histories {
		if len(h) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(h))
		for j, n := range h {
			xys[j].X = float64(j)
			xys[j].Y = float64(n)
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("plotting history of realization %d: %w", i, err)
		}
		line.Color = plotutil.Color(lines)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("real %d", i+1), line)
		lines++
	}
	if lines == 0 {
		return fmt.Errorf("no honored-count history to plot")
	}

	ceiling, err := plotter.NewLine(plotter.XYs{{X: p.X.Min, Y: float64(npt)}, {X: p.X.Max, Y: float64(npt)}})
	if err != nil {
		return fmt.Errorf("plotting the conditioning-point ceiling: %w", err)
	}
	ceiling.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(ceiling)
	p.Legend.Add(fmt.Sprintf("%d points", npt), ceiling)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating plot directory: %w", err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
