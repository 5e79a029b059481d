package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Spectrum is one response spectrum: spectral acceleration at each period.
type Spectrum struct {
	Label  string
	Values []float64
}

// SpectrumChart is a set of spectra sharing one period axis.
type SpectrumChart struct {
	Title    string
	Subtitle string
	Periods  []float64
	Spectra  []Spectrum
}

func (s *SpectrumChart) build() (*charts.Line, error) {
	if len(s.Periods) == 0 || len(s.Spectra) == 0 {
		return nil, ErrNoData
	}

	labels := make([]string, len(s.Periods))
	for i, p := range s.Periods {
		labels[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Title, Width: "900px", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Title, Subtitle: s.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Period (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "SA (g)", Type: "log", NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(labels)

	for _, sp := range s.Spectra {
		if len(sp.Values) != len(s.Periods) {
			return nil, fmt.Errorf("spectrum %q: %d values for %d periods", sp.Label, len(sp.Values), len(s.Periods))
		}
		data := make([]opts.LineData, len(sp.Values))
		for i, v := range sp.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(sp.Label, data)
	}
	return line, nil
}

// WriteHTML renders the chart as a standalone HTML page.
func (s *SpectrumChart) WriteHTML(w io.Writer) error {
	line, err := s.build()
	if err != nil {
		return err
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render spectrum: %w", err)
	}
	return nil
}

// Save writes the chart to an HTML file.
func (s *SpectrumChart) Save(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create spectrum file: %w", err)
	}
	if err := s.WriteHTML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
