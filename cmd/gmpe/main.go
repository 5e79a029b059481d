// Command gmpe evaluates a ground-motion model over a sites CSV.
//
// Usage:
//
//	gmpe -model AbrahamsonSilva1997 -imt 'SA(0.2)' -mag 6.5 -rake 90 -sites sites.csv
//	gmpe -list
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/groundmotion/internal/coeffs"
	"github.com/banshee-data/groundmotion/internal/config"
	"github.com/banshee-data/groundmotion/internal/gridstore"
	"github.com/banshee-data/groundmotion/internal/gsim"
	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/monitoring"
	"github.com/banshee-data/groundmotion/internal/stddev"
	"github.com/banshee-data/groundmotion/internal/surface"
	"github.com/banshee-data/groundmotion/internal/version"
)

var (
	configPath  = flag.String("config", "", "JSON config file (flags override its values)")
	modelName   = flag.String("model", config.DefaultModel, "Model name (see -list)")
	imtFlag     = flag.String("imt", config.DefaultIMT, "Intensity measure: PGA, PGV or SA(period)")
	mag         = flag.Float64("mag", math.NaN(), "Rupture magnitude")
	rake        = flag.Float64("rake", math.NaN(), "Rupture rake in degrees")
	hypoDepth   = flag.Float64("hypo-depth", math.NaN(), "Hypocentral depth in km")
	sitesPath   = flag.String("sites", "", "Sites CSV (header among site, vs30, forearc, rrup, rjb, rhypo, rx)")
	stddevFlag  = flag.String("stddev", "total", "Comma-separated standard deviation types")
	tableDir    = flag.String("table-dir", config.DefaultTableDir, "Directory holding surface table resources")
	outPath     = flag.String("out", "", "Write results here instead of stdout")
	plotPath    = flag.String("plot", "", "Write a PNG attenuation curve to this path")
	spectrumOut = flag.String("spectrum", "", "Write an HTML response spectrum to this path")
	periodsFlag = flag.String("periods", "0.02,0.05,0.1,0.2,0.3,0.5,1,2,3", "Spectral periods for -spectrum")
	metricsOut  = flag.String("metrics", "", "Write Prometheus text metrics to this path on exit")
	listModels  = flag.Bool("list", false, "List available models and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// options is the resolved run configuration.
type options struct {
	Model            string
	IMT              imt.IMT
	Rupture          gsim.Rupture
	SitesPath        string
	StdDevs          []stddev.Component
	TableDir         string
	PeriodPolicy     *coeffs.Policy
	OutPath          string
	PlotPath         string
	SpectrumPath     string
	Periods          []float64
	MetricsPath      string
	MetricsNamespace string
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("gmpe"))
		return
	}
	if *listModels {
		for _, name := range gsim.Names() {
			fmt.Println(name)
		}
		return
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	o, err := resolveOptions(cfg, set)
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}
	if err := run(o, os.Stdout); err != nil {
		log.Fatalf("gmpe: %v", err)
	}
}

// resolveOptions merges the config file with the flags that were set on
// the command line.
func resolveOptions(cfg *config.Config, set map[string]bool) (options, error) {
	o := options{
		Model:            cfg.GetModel(),
		IMT:              cfg.GetIMT(),
		Rupture:          gsim.Rupture{Mag: *mag, Rake: *rake, HypoDepth: *hypoDepth},
		SitesPath:        *sitesPath,
		StdDevs:          cfg.GetStdDevTypes(),
		TableDir:         cfg.GetTableDir(),
		OutPath:          *outPath,
		PlotPath:         *plotPath,
		SpectrumPath:     *spectrumOut,
		MetricsPath:      *metricsOut,
		MetricsNamespace: cfg.GetMetricsNamespace(),
	}
	if set["model"] {
		o.Model = *modelName
	}
	if set["imt"] {
		m, err := imt.Parse(*imtFlag)
		if err != nil {
			return o, err
		}
		o.IMT = m
	}
	if set["stddev"] {
		comps, err := stddev.ParseList(*stddevFlag)
		if err != nil {
			return o, err
		}
		o.StdDevs = comps
	}
	if set["table-dir"] {
		o.TableDir = *tableDir
	}
	o.PeriodPolicy = cfg.GetPeriodPolicy(o.Model)

	if o.SitesPath == "" {
		return o, fmt.Errorf("-sites is required")
	}
	if o.SpectrumPath != "" {
		periods, err := parsePeriods(*periodsFlag)
		if err != nil {
			return o, err
		}
		o.Periods = periods
	}
	return o, nil
}

func run(o options, stdout io.Writer) error {
	logf := monitoring.Component("gmpe")

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetricsWithNamespace(reg, o.MetricsNamespace)
	cache := surface.NewCache(gridstore.Load, surface.WithMetrics(metrics))

	g, err := gsim.New(o.Model, gsim.Options{
		TableDir:     o.TableDir,
		Cache:        cache,
		Metrics:      metrics,
		PeriodPolicy: o.PeriodPolicy,
	})
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Clean(o.SitesPath))
	if err != nil {
		return fmt.Errorf("open sites: %w", err)
	}
	sites, err := readSites(f)
	f.Close()
	if err != nil {
		return err
	}

	req := &gsim.Request{
		Sites:     sites.Sites,
		Rupture:   o.Rupture,
		Distances: sites.Distances,
		IMT:       o.IMT,
		StdDevs:   o.StdDevs,
	}
	res, err := g.Evaluate(req)
	if err != nil {
		return err
	}

	w := stdout
	if o.OutPath != "" {
		out, err := os.Create(filepath.Clean(o.OutPath))
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer out.Close()
		w = out
	}
	if err := writeResults(w, sites.IDs, o.StdDevs, res); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	if o.PlotPath != "" {
		a, err := attenuationPlot(g.Info(), req, res)
		if err != nil {
			return err
		}
		if err := a.Save(o.PlotPath); err != nil {
			return err
		}
		logf("wrote attenuation plot %s", o.PlotPath)
	}
	if o.SpectrumPath != "" {
		chart, err := spectrumChart(g, req, sites.IDs, o.Periods)
		if err != nil {
			return err
		}
		if err := chart.Save(o.SpectrumPath); err != nil {
			return err
		}
		logf("wrote spectrum %s", o.SpectrumPath)
	}
	if o.MetricsPath != "" {
		if err := prometheus.WriteToTextfile(o.MetricsPath, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
