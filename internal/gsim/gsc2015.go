package gsim

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/groundmotion/internal/coeffs"
	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/numeric"
	"github.com/banshee-data/groundmotion/internal/stddev"
	"github.com/banshee-data/groundmotion/internal/surface"
)

// Region selects one of the GSC 2015 table families.
type Region int

const (
	WCrustRhypo Region = iota
	WCrustRjb
	ENA
	WOffshore
	SInter
	SSlabD30
	SSlabD50
)

type regionSpec struct {
	name   string
	file   string
	trt    string
	metric string
}

var gscRegions = map[Region]regionSpec{
	WCrustRhypo: {"WCrustRhypo", "Wcrust_rhypo", ActiveShallowCrust, DistRhypo},
	WCrustRjb:   {"WCrustRjb", "Wcrust_rjb", ActiveShallowCrust, DistRjb},
	ENA:         {"ENA", "ENA_rhypo", StableContinental, DistRhypo},
	WOffshore:   {"WOffshore", "Woffshore_rhypo", ActiveShallowCrust, DistRhypo},
	SInter:      {"SInter", "Interface_rrup", SubductionInterface, DistRrup},
	SSlabD30:    {"SSlabD30", "WinslabD30_rhypo", SubductionIntraslab, DistRhypo},
	SSlabD50:    {"SSlabD50", "WinslabD50_rhypo", SubductionIntraslab, DistRhypo},
}

// Regions lists every region in declaration order.
func Regions() []Region {
	return []Region{WCrustRhypo, WCrustRjb, ENA, WOffshore, SInter, SSlabD30, SSlabD50}
}

func (r Region) String() string { return gscRegions[r].name }

// gscBranchName is the GSC spelling of a branch: the central branch is
// "Med".
func gscBranchName(b Branch) string {
	if b == Central {
		return "Med"
	}
	return b.String()
}

// GSCCanada2015 evaluates the 2015 Canadian seismic hazard model tables.
// Mean and total sigma come from a precomputed surface table resource
// named after the region and branch (e.g. Wcrust_rhypo_med.db) in the
// configured table directory.
type GSCCanada2015 struct {
	region Region
	branch Branch
	path   string
	cache  *surface.Cache
	policy coeffs.Policy
}

// NewGSCCanada2015 returns the model for region and branch, reading tables
// from dir through cache, with the default strict period policy.
func NewGSCCanada2015(region Region, branch Branch, dir string, cache *surface.Cache) *GSCCanada2015 {
	return &GSCCanada2015{
		region: region,
		branch: branch,
		path:   filepath.Join(dir, TableFile(region, branch)),
		cache:  cache,
		policy: coeffs.Strict,
	}
}

// TableFile is the resource file name for region and branch.
func TableFile(region Region, branch Branch) string {
	return gscRegions[region].file + "_" + strings.ToLower(gscBranchName(branch)) + ".db"
}

// WithPeriodPolicy returns a copy of the model using policy.
func (g *GSCCanada2015) WithPeriodPolicy(policy coeffs.Policy) GMPE {
	c := *g
	c.policy = policy
	return &c
}

// Path is the table resource the model reads.
func (g *GSCCanada2015) Path() string { return g.path }

// Info implements GMPE.
func (g *GSCCanada2015) Info() Info {
	spec := gscRegions[g.region]
	return Info{
		Name:           "GSCCanada2015" + spec.name + gscBranchName(g.branch),
		TectonicRegion: spec.trt,
		IMTs:           []imt.Kind{imt.PGA, imt.PGV, imt.SA},
		StdDevs:        []stddev.Component{stddev.Total},
		RuptureParams:  []string{ParamMag},
		DistanceParams: []string{spec.metric},
		PeriodPolicy:   g.policy,
	}
}

// Evaluate implements GMPE. The table is loaded on first use.
func (g *GSCCanada2015) Evaluate(req *Request) (*Result, error) {
	info := g.Info()
	n, err := Validate(info, req)
	if err != nil {
		return nil, err
	}

	t, err := g.cache.Get(g.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", info.Name, err)
	}
	metric := gscRegions[g.region].metric
	if meta := t.Metadata(); meta.DistanceMetric != "" && meta.DistanceMetric != metric {
		return nil, fmt.Errorf("%w: %s table %s uses %s distances, model expects %s",
			surface.ErrMalformedGrid, info.Name, g.path, meta.DistanceMetric, metric)
	}
	if !t.Supports(req.IMT.Kind) {
		return nil, fmt.Errorf("%w: %s table does not store %s", ErrUnsupportedIMT, info.Name, req.IMT.Kind)
	}

	m := req.IMT
	if m.IsSpectral() && g.policy == coeffs.Clamp {
		periods := t.Periods()
		m.Period = numeric.Clamp(m.Period, periods[0], periods[len(periods)-1])
	}

	res, err := t.Lookup(m, req.Rupture.Mag, req.Distances.Metric(metric))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", info.Name, err)
	}

	src := stddev.VectorSource{Vectors: res.Sigma, Total: stddev.Tabulated}
	sds, err := stddev.NewResolver(info.StdDevs...).Resolve(src, req.StdDevs, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", info.Name, err)
	}
	return &Result{Mean: res.Mean, StdDevs: sds}, nil
}
