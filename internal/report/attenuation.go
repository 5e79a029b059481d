// Package report renders model output as PNG attenuation curves and HTML
// response spectra.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

// Curve is one ground-motion series against distance. Values are in
// linear units (g, or cm/s for PGV) and must be positive.
type Curve struct {
	Label     string
	Distances []float64
	Values    []float64
	// Dashed draws the curve with a dashed line, e.g. for +/- sigma bands.
	Dashed bool
}

// AttenuationPlot describes a log-log plot of ground motion against
// distance.
type AttenuationPlot struct {
	Title  string
	XLabel string
	YLabel string
	Curves []Curve
}

var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
	color.RGBA{R: 140, G: 86, B: 75, A: 255},
}

func (a *AttenuationPlot) build() (*plot.Plot, error) {
	if len(a.Curves) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = a.Title
	p.X.Label.Text = a.XLabel
	p.Y.Label.Text = a.YLabel
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	for i, c := range a.Curves {
		pts, err := curvePoints(c)
		if err != nil {
			return nil, err
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("curve %q: %w", c.Label, err)
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1.5)
		if c.Dashed {
			line.Width = vg.Points(1)
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		p.Add(line)
		if c.Label != "" {
			p.Legend.Add(c.Label, line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// curvePoints returns c's points ordered by distance.
func curvePoints(c Curve) (plotter.XYs, error) {
	if len(c.Distances) != len(c.Values) {
		return nil, fmt.Errorf("curve %q: %d distances, %d values", c.Label, len(c.Distances), len(c.Values))
	}
	if len(c.Distances) == 0 {
		return nil, fmt.Errorf("curve %q: %w", c.Label, ErrNoData)
	}
	pts := make(plotter.XYs, len(c.Distances))
	for i := range c.Distances {
		if !(c.Distances[i] > 0) || !(c.Values[i] > 0) {
			return nil, fmt.Errorf("curve %q: point %d (%g, %g) is not positive", c.Label, i, c.Distances[i], c.Values[i])
		}
		pts[i] = plotter.XY{X: c.Distances[i], Y: c.Values[i]}
	}
	sort.Slice(pts, func(a, b int) bool { return pts[a].X < pts[b].X })
	return pts, nil
}

// WritePNG renders the plot as a PNG to w.
func (a *AttenuationPlot) WritePNG(w io.Writer, width, height vg.Length) error {
	p, err := a.build()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render attenuation plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write attenuation plot: %w", err)
	}
	return nil
}

// Save renders the plot to a PNG file.
func (a *AttenuationPlot) Save(path string) error {
	p, err := a.build()
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save attenuation plot: %w", err)
	}
	return nil
}
