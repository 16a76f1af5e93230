// Package report renders reconciliation errors collected during a session.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/LdDl/balltrack/pipeline"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	// ErrNoSamples is returned when there is nothing to plot
	ErrNoSamples = errors.New("no error samples to plot")

	colorX = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	colorY = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
)

// WriteErrorPlot draws per-axis absolute error against stream time.
// Image format follows path extension (png, svg, pdf, ...)
func WriteErrorPlot(path string, samples []pipeline.ErrorSample, summary pipeline.ErrorSummary) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create output dir")
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Reconciliation error (n=%d, missing=%d)", summary.Count, summary.Missing)
	p.X.Label.Text = "Stream time (s)"
	p.Y.Label.Text = "Absolute error (px)"
	p.Add(plotter.NewGrid())

	xPts := make(plotter.XYs, len(samples))
	yPts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		xPts[i] = plotter.XY{X: s.Seconds, Y: s.X}
		yPts[i] = plotter.XY{X: s.Seconds, Y: s.Y}
	}

	xLine, err := plotter.NewLine(xPts)
	if err != nil {
		return errors.Wrap(err, "failed to create x error line")
	}
	xLine.Color = colorX
	xLine.Width = vg.Points(1)
	p.Add(xLine)
	p.Legend.Add(fmt.Sprintf("x (mean %.2f, p95 %.2f)", summary.MeanX, summary.P95X), xLine)

	yLine, err := plotter.NewLine(yPts)
	if err != nil {
		return errors.Wrap(err, "failed to create y error line")
	}
	yLine.Color = colorY
	yLine.Width = vg.Points(1)
	p.Add(yLine)
	p.Legend.Add(fmt.Sprintf("y (mean %.2f, p95 %.2f)", summary.MeanY, summary.P95Y), yLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}
