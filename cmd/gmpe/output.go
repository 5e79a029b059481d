package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/banshee-data/groundmotion/internal/gsim"
	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/report"
	"github.com/banshee-data/groundmotion/internal/stddev"
)

// writeResults writes one row per site: the site label, ln mean, the median
// in linear units and each requested standard deviation.
func writeResults(w io.Writer, ids []string, comps []stddev.Component, res *gsim.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "site\tln_mean\tmedian")
	for _, c := range comps {
		fmt.Fprintf(tw, "\t%s", c)
	}
	fmt.Fprintln(tw)

	for i, id := range ids {
		fmt.Fprintf(tw, "%s\t%s\t%s", id, formatFloat(res.Mean[i]), formatFloat(math.Exp(res.Mean[i])))
		for j := range comps {
			fmt.Fprintf(tw, "\t%s", formatFloat(res.StdDevs[j][i]))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

func units(m imt.IMT) string {
	if m.Kind == imt.PGV {
		return "cm/s"
	}
	return "g"
}

// attenuationPlot draws the median against the model's first distance
// metric, with +/- one total sigma when it was requested.
func attenuationPlot(info gsim.Info, req *gsim.Request, res *gsim.Result) (*report.AttenuationPlot, error) {
	if len(info.DistanceParams) == 0 {
		return nil, fmt.Errorf("%s declares no distance parameter", info.Name)
	}
	metric := info.DistanceParams[0]
	dists := req.Distances.Metric(metric)

	median := make([]float64, len(res.Mean))
	for i, m := range res.Mean {
		median[i] = math.Exp(m)
	}
	a := &report.AttenuationPlot{
		Title:  fmt.Sprintf("%s %s, M%.1f", info.Name, req.IMT, req.Rupture.Mag),
		XLabel: metric + " (km)",
		YLabel: fmt.Sprintf("%s (%s)", req.IMT, units(req.IMT)),
		Curves: []report.Curve{{Label: "median", Distances: dists, Values: median}},
	}

	for j, c := range req.StdDevs {
		if c != stddev.Total {
			continue
		}
		hi := make([]float64, len(res.Mean))
		lo := make([]float64, len(res.Mean))
		for i, m := range res.Mean {
			hi[i] = math.Exp(m + res.StdDevs[j][i])
			lo[i] = math.Exp(m - res.StdDevs[j][i])
		}
		a.Curves = append(a.Curves,
			report.Curve{Label: "+1 sigma", Distances: dists, Values: hi, Dashed: true},
			report.Curve{Label: "-1 sigma", Distances: dists, Values: lo, Dashed: true},
		)
		break
	}
	return a, nil
}

const maxSpectra = 10

// spectrumChart evaluates SA at each period and collects one spectrum per
// site, for at most maxSpectra sites.
func spectrumChart(g gsim.GMPE, base *gsim.Request, ids []string, periods []float64) (*report.SpectrumChart, error) {
	n := min(len(ids), maxSpectra)
	spectra := make([]report.Spectrum, n)
	for i := range spectra {
		spectra[i] = report.Spectrum{Label: ids[i], Values: make([]float64, len(periods))}
	}

	for k, p := range periods {
		req := *base
		req.IMT = imt.NewSA(p)
		req.StdDevs = nil
		res, err := g.Evaluate(&req)
		if err != nil {
			return nil, fmt.Errorf("spectrum at %gs: %w", p, err)
		}
		for i := range spectra {
			spectra[i].Values[k] = math.Exp(res.Mean[i])
		}
	}

	info := g.Info()
	return &report.SpectrumChart{
		Title:    info.Name,
		Subtitle: fmt.Sprintf("M%.1f, %d of %d sites", base.Rupture.Mag, n, len(ids)),
		Periods:  periods,
		Spectra:  spectra,
	}, nil
}

func parsePeriods(s string) ([]float64, error) {
	list, err := imt.ParseList(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(list))
	for _, m := range list {
		if !m.IsSpectral() {
			return nil, fmt.Errorf("periods: %s is not a spectral period", m)
		}
		out = append(out, m.Period)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("periods: empty list")
	}
	return out, nil
}
