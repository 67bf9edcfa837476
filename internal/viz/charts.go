package viz

import (
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pinnlab/internal/evaluate"
	"github.com/san-kum/pinnlab/internal/train"
)

// LogLosses returns log10 of each total loss. Non-positive losses are
// floored so the chart stays finite.
func LogLosses(losses []train.Loss) []float64 {
	out := make([]float64, len(losses))
	for i, l := range losses {
		out[i] = math.Log10(math.Max(l.Total, 1e-12))
	}
	return out
}

// LossChart plots both loss curves on a log scale. Curves with fewer than
// two points are left out.
func LossChart(plain, pinn []float64, width, height int) string {
	series := make([][]float64, 0, 2)
	colors := make([]asciigraph.AnsiColor, 0, 2)
	names := make([]string, 0, 2)
	if len(plain) > 1 {
		series = append(series, plain)
		colors = append(colors, asciigraph.SteelBlue)
		names = append(names, "NN")
	}
	if len(pinn) > 1 {
		series = append(series, pinn)
		colors = append(colors, asciigraph.Teal)
		names = append(names, "PINN")
	}
	if len(series) == 0 {
		return ""
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption("log10 loss: "+strings.Join(names, " / ")),
	)
}

// PredictionChart plots the true curve and both predictions over the grid.
func PredictionChart(r *evaluate.Report, width, height int) string {
	return asciigraph.PlotMany([][]float64{r.Truth, r.Plain, r.PINN},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.LightGray, asciigraph.SteelBlue, asciigraph.Teal),
		asciigraph.Caption("concentration: truth / NN / PINN"),
	)
}

// PredictionPanel draws one model's prediction against the truth on a
// Braille canvas, with a dashed line at the cutoff.
func PredictionPanel(grid, truth, pred []float64, cutoff float64, width, height int) string {
	c := NewCanvas(width, height)
	w := Window{XMin: grid[0], XMax: grid[len(grid)-1], YMin: -0.2, YMax: 1.2}
	c.Dotted(grid, truth, w, 6)
	c.VLine(cutoff, w)
	c.Curve(grid, pred, w)
	return c.String()
}
