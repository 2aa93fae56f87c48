package mapview

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// HistogramBins is the number of depth bins drawn.
const HistogramBins = 50

// WriteHistogram draws a 50-bin depth histogram as PNG to w.
func WriteHistogram(w io.Writer, depths []float64) error {
	if len(depths) == 0 {
		return errors.New("no depths to plot")
	}
	h, err := plotter.NewHist(plotter.Values(depths), HistogramBins)
	if err != nil {
		return fmt.Errorf("bin depths: %w", err)
	}
	h.FillColor = color.RGBA{R: 0x1f, G: 0x5f, B: 0xd0, A: 0xb3}
	h.LineStyle.Color = color.Black

	p := plot.New()
	p.Title.Text = "Depth Distribution"
	p.X.Label.Text = "Depth (meters)"
	p.Y.Label.Text = "Number of measurements"
	p.Add(plotter.NewGrid(), h)

	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
