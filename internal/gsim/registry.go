package gsim

import (
	"fmt"
	"sort"

	"github.com/banshee-data/groundmotion/internal/coeffs"
	"github.com/banshee-data/groundmotion/internal/monitoring"
	"github.com/banshee-data/groundmotion/internal/surface"
)

// Options configures models built by New.
type Options struct {
	// TableDir holds surface table resources for table-backed models.
	TableDir string
	// Cache is shared by table-backed models and is required for them.
	// Models that read the same resource must share one Cache so the
	// resource is loaded once.
	Cache *surface.Cache
	// Metrics records evaluation outcomes. Nil disables metrics.
	Metrics *monitoring.Metrics
	// PeriodPolicy overrides the model's default policy when set.
	PeriodPolicy *coeffs.Policy
}

// policyOverrider is implemented by models whose period policy can change.
type policyOverrider interface {
	WithPeriodPolicy(coeffs.Policy) GMPE
}

type factory struct {
	build func(Options) GMPE
	// tables is set for models that read surface tables through a Cache.
	tables bool
}

var registry = map[string]factory{}

func register(name string, tables bool, build func(Options) GMPE) {
	if _, dup := registry[name]; dup {
		panic("gsim: duplicate model " + name)
	}
	registry[name] = factory{build: build, tables: tables}
}

func init() {
	register("AbrahamsonSilva1997", false, func(Options) GMPE { return NewAbrahamsonSilva1997() })

	for _, s := range []Setting{Interface, Slab} {
		for _, b := range []Branch{Central, Low, High} {
			s, b := s, b
			g := NewAbrahamsonEtAl2013(s, b)
			register(g.name(), false, func(Options) GMPE { return NewAbrahamsonEtAl2013(s, b) })
		}
	}

	for _, r := range Regions() {
		for _, b := range []Branch{Low, Central, High} {
			r, b := r, b
			name := "GSCCanada2015" + r.String() + gscBranchName(b)
			register(name, true, func(o Options) GMPE { return NewGSCCanada2015(r, b, o.TableDir, o.Cache) })
		}
	}
}

// Names lists every registered model in lexical order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds the named model.
func New(name string, opts Options) (GMPE, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	if f.tables && opts.Cache == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCache, name)
	}
	g := f.build(opts)
	if opts.PeriodPolicy != nil {
		if o, ok := g.(policyOverrider); ok {
			g = o.WithPeriodPolicy(*opts.PeriodPolicy)
		}
	}
	if opts.Metrics != nil {
		g = &instrumented{GMPE: g, name: name, metrics: opts.Metrics}
	}
	return g, nil
}

// instrumented records the outcome of every evaluation.
type instrumented struct {
	GMPE
	name    string
	metrics *monitoring.Metrics
}

func (g *instrumented) Evaluate(req *Request) (*Result, error) {
	res, err := g.GMPE.Evaluate(req)
	g.metrics.ObserveEvaluation(g.name, err)
	return res, err
}
