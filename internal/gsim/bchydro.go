package gsim

import (
	_ "embed"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/groundmotion/internal/coeffs"
	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/stddev"
)

//go:embed data/bchydro.txt
var bcHydroText string

var bcHydroCoeffs = mustTable(bcHydroText, imt.PGA, imt.SA)

// Period-independent coefficients, Table 4.
const (
	bchN      = 1.18
	bchC      = 1.88
	bchTheta3 = 0.1
	bchTheta4 = 0.9
	bchTheta5 = 0.0
	bchTheta9 = 0.4
	bchC4     = 10.0
	bchC1     = 7.8
)

// Setting is the subduction source type.
type Setting int

const (
	Interface Setting = iota
	Slab
)

func (s Setting) String() string {
	if s == Slab {
		return "SSlab"
	}
	return "Inter"
}

// Branch selects one of the epistemic alternatives a model family
// publishes.
type Branch int

const (
	Central Branch = iota
	Low
	High
)

func (b Branch) String() string {
	switch b {
	case Low:
		return "Low"
	case High:
		return "High"
	default:
		return "Central"
	}
}

var deltaC1Columns = map[Branch]string{
	Low:     "dc1_low",
	Central: "dc1_cent",
	High:    "dc1_high",
}

// AbrahamsonEtAl2013 is the BC Hydro subduction model. Interface events use
// rupture distance; in-slab events are treated as point sources and use
// hypocentral distance and depth. Branch picks the large-magnitude scaling
// adjustment delta_c1.
type AbrahamsonEtAl2013 struct {
	setting Setting
	branch  Branch
	table   *coeffs.Table
	policy  coeffs.Policy
}

// NewAbrahamsonEtAl2013 returns the model for setting and branch with the
// default strict period policy.
func NewAbrahamsonEtAl2013(setting Setting, branch Branch) *AbrahamsonEtAl2013 {
	return &AbrahamsonEtAl2013{setting: setting, branch: branch, table: bcHydroCoeffs, policy: coeffs.Strict}
}

// WithPeriodPolicy returns a copy of the model using policy.
func (g *AbrahamsonEtAl2013) WithPeriodPolicy(policy coeffs.Policy) GMPE {
	c := *g
	c.policy = policy
	return &c
}

func (g *AbrahamsonEtAl2013) name() string {
	name := "AbrahamsonEtAl2013" + g.setting.String()
	if g.branch != Central {
		name += g.branch.String()
	}
	return name
}

// Info implements GMPE.
func (g *AbrahamsonEtAl2013) Info() Info {
	info := Info{
		Name:           g.name(),
		TectonicRegion: SubductionInterface,
		IMTs:           []imt.Kind{imt.PGA, imt.SA},
		StdDevs: []stddev.Component{
			stddev.Total, stddev.InterEvent, stddev.IntraEvent, stddev.SingleStation,
		},
		SiteParams:     []string{ParamVs30, ParamForearc},
		RuptureParams:  []string{ParamMag},
		DistanceParams: []string{DistRrup},
		PeriodPolicy:   g.policy,
	}
	if g.setting == Slab {
		info.TectonicRegion = SubductionIntraslab
		info.RuptureParams = []string{ParamMag, ParamHypoDepth}
		info.DistanceParams = []string{DistRhypo}
	}
	return info
}

// bcHydroColumns maps components to the table's sigma columns.
var bcHydroColumns = map[stddev.Component]string{
	stddev.Total:         "sigma",
	stddev.InterEvent:    "tau",
	stddev.IntraEvent:    "phi",
	stddev.SingleStation: "sigma_ss",
}

// Evaluate implements GMPE.
func (g *AbrahamsonEtAl2013) Evaluate(req *Request) (*Result, error) {
	info := g.Info()
	n, err := Validate(info, req)
	if err != nil {
		return nil, err
	}
	c, err := g.resolve(req.IMT)
	if err != nil {
		return nil, err
	}
	cPGA, err := g.resolve(imt.NewPGA())
	if err != nil {
		return nil, err
	}

	dists := req.Distances.Rrup
	if g.setting == Slab {
		dists = req.Distances.Rhypo
	}

	pga1000 := g.rock(cPGA, req, dists)
	floats.AddConst((cPGA["theta12"]+cPGA["b"]*bchN)*math.Log(1000/cPGA["vlin"]), pga1000)
	for i := range pga1000 {
		pga1000[i] = math.Exp(pga1000[i])
	}

	mean := g.rock(c, req, dists)
	for i, vs30 := range req.Sites.Vs30 {
		mean[i] += bchSite(c, vs30, pga1000[i])
	}

	src := stddev.RowSource{Row: c, Columns: bcHydroColumns, Total: stddev.Tabulated}
	sds, err := stddev.NewResolver(info.StdDevs...).Resolve(src, req.StdDevs, n)
	if err != nil {
		return nil, err
	}
	return &Result{Mean: mean, StdDevs: sds}, nil
}

// resolve returns the coefficients for m with delta_c1 set from the branch.
func (g *AbrahamsonEtAl2013) resolve(m imt.IMT) (coeffs.Row, error) {
	row, err := g.table.ResolveWith(m, g.policy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.name(), err)
	}
	return coeffs.SelectBranch(row, deltaC1Columns[g.branch], "delta_c1")
}

// rock is the mean without the site term.
func (g *AbrahamsonEtAl2013) rock(c coeffs.Row, req *Request, dists []float64) []float64 {
	m := req.Rupture.Mag
	dc1 := c["delta_c1"]

	base := c["theta1"] + bchTheta4*dc1
	theta2 := c["theta2"]
	if g.setting == Slab {
		base += c["theta10"] + c["theta11"]*(req.Rupture.HypoDepth-60)
		theta2 += c["theta14"]
	}

	fmag := bchTheta5 * (m - (bchC1 + dc1))
	if m <= bchC1+dc1 {
		fmag = bchTheta4 * (m - (bchC1 + dc1))
	}
	fmag += c["theta13"] * (10 - m) * (10 - m)

	slope := theta2 + bchTheta3*(m-7.8)
	near := bchC4 * math.Exp((m-6)*bchTheta9)

	out := make([]float64, len(dists))
	for i, r := range dists {
		out[i] = slope*math.Log(r+near) + c["theta6"]*r
		if !req.Sites.Forearc[i] {
			out[i] += g.backarc(c, r)
		}
	}
	floats.AddConst(base+fmag, out)
	return out
}

// backarc is the forearc/backarc term for a backarc site at distance r.
func (g *AbrahamsonEtAl2013) backarc(c coeffs.Row, r float64) float64 {
	if g.setting == Slab {
		return c["theta7"] + c["theta8"]*math.Log(math.Max(r, 85)/40)
	}
	return c["theta15"] + c["theta16"]*math.Log(math.Max(r, 100)/40)
}

func bchSite(c coeffs.Row, vs30, pga1000 float64) float64 {
	vlin, b, theta12 := c["vlin"], c["b"], c["theta12"]
	vsStar := math.Min(vs30, 1000)
	arg := vsStar / vlin
	if vs30 < vlin {
		return theta12*math.Log(arg) - b*math.Log(pga1000+bchC) + b*math.Log(pga1000+bchC*math.Pow(arg, bchN))
	}
	return (theta12 + b*bchN) * math.Log(arg)
}
