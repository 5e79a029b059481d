package gsim

import (
	_ "embed"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/groundmotion/internal/coeffs"
	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/stddev"
)

//go:embed data/as1997.txt
var as1997Text string

var as1997Coeffs = mustTable(as1997Text, imt.PGA, imt.SA)

// Period-independent coefficients, Table 4.
const (
	as97C1  = 6.75
	as97A2  = 0.512
	as97A4  = -0.144
	as97A13 = 0.17
	as97N   = 2.0
	as97C5  = 0.03
)

// AbrahamsonSilva1997 is the Abrahamson & Silva (1997) model for active
// shallow crust. Sites with vs30 below 400 m/s are treated as soil and get
// the nonlinear soil term driven by PGA on rock. Only total sigma is
// defined; it tapers linearly between M5 and M7.
type AbrahamsonSilva1997 struct {
	table  *coeffs.Table
	policy coeffs.Policy
}

// NewAbrahamsonSilva1997 returns the model with its default clamp period
// policy.
func NewAbrahamsonSilva1997() *AbrahamsonSilva1997 {
	return &AbrahamsonSilva1997{table: as1997Coeffs, policy: coeffs.Clamp}
}

// WithPeriodPolicy returns a copy of the model using policy.
func (g *AbrahamsonSilva1997) WithPeriodPolicy(policy coeffs.Policy) GMPE {
	c := *g
	c.policy = policy
	return &c
}

// Info implements GMPE.
func (g *AbrahamsonSilva1997) Info() Info {
	return Info{
		Name:           "AbrahamsonSilva1997",
		TectonicRegion: ActiveShallowCrust,
		IMTs:           []imt.Kind{imt.PGA, imt.SA},
		StdDevs:        []stddev.Component{stddev.Total},
		SiteParams:     []string{ParamVs30},
		RuptureParams:  []string{ParamMag, ParamRake},
		DistanceParams: []string{DistRrup, DistRx},
		PeriodPolicy:   g.policy,
	}
}

// Evaluate implements GMPE.
func (g *AbrahamsonSilva1997) Evaluate(req *Request) (*Result, error) {
	info := g.Info()
	n, err := Validate(info, req)
	if err != nil {
		return nil, err
	}
	c, err := g.table.ResolveWith(req.IMT, g.policy)
	if err != nil {
		return nil, err
	}
	cPGA, err := g.table.Resolve(imt.NewPGA())
	if err != nil {
		return nil, err
	}

	rup := req.Rupture
	rrup, rx := req.Distances.Rrup, req.Distances.Rx

	pgaRock := as97Rock(cPGA, rup, rrup, rx)
	for i := range pgaRock {
		pgaRock[i] = math.Exp(pgaRock[i])
	}

	mean := as97Rock(c, rup, rrup, rx)
	for i, vs30 := range req.Sites.Vs30 {
		mean[i] += as97Site(c, pgaRock[i], vs30)
	}

	sigma := stddev.MagnitudeTaper(rup.Mag, 5, 7, c["b5"], c["b5"]-2*c["b6"])
	sds, err := stddev.NewResolver(info.StdDevs...).Resolve(
		stddev.Constant{stddev.Total: sigma}, req.StdDevs, n)
	if err != nil {
		return nil, err
	}
	return &Result{Mean: mean, StdDevs: sds}, nil
}

// as97Rock is the mean without the site term: magnitude, distance,
// style-of-faulting and hanging-wall terms.
func as97Rock(c coeffs.Row, rup Rupture, rrup, rx []float64) []float64 {
	m := rup.Mag
	out := make([]float64, len(rrup))

	slope := c["a3"] + as97A13*(m-as97C1)
	for i, r := range rrup {
		out[i] = slope * math.Log(math.Hypot(r, c["c4"]))
	}

	hwm := as97HangingWallMagnitude(m)
	if hwm > 0 {
		for i, r := range rrup {
			if rx[i] > 0 {
				out[i] += hwm * as97HangingWallDistance(c["a9"], r)
			}
		}
	}

	floats.AddConst(as97Magnitude(c, m)+as97Faulting(c, m)*as97FaultingFactor(rup.Rake), out)
	return out
}

func as97Magnitude(c coeffs.Row, m float64) float64 {
	a := as97A2
	if m > as97C1 {
		a = as97A4
	}
	return c["a1"] + a*(m-as97C1) + c["a12"]*math.Pow(8.5-m, as97N)
}

func as97Faulting(c coeffs.Row, m float64) float64 {
	switch {
	case m <= 5.8:
		return c["a5"]
	case m >= as97C1:
		return c["a6"]
	default:
		return c["a5"] + (c["a6"]-c["a5"])/(as97C1-5.8)*(m-5.8)
	}
}

// as97FaultingFactor is 1 for reverse, 0.5 for reverse-oblique and 0
// otherwise.
func as97FaultingFactor(rake float64) float64 {
	switch {
	case math.Abs(rake-90) < 30:
		return 1
	case math.Abs(rake-45) < 15, math.Abs(rake-135) < 15:
		return 0.5
	default:
		return 0
	}
}

func as97HangingWallMagnitude(m float64) float64 {
	switch {
	case m <= 5.5:
		return 0
	case m >= 6.5:
		return 1
	default:
		return m - 5.5
	}
}

func as97HangingWallDistance(a9, r float64) float64 {
	switch {
	case r <= 4:
		return 0
	case r <= 8:
		return a9 * (r - 4) / 4
	case r <= 18:
		return a9
	case r <= 24:
		return a9 * (1 - (r-18)/7)
	default:
		return 0
	}
}

func as97Site(c coeffs.Row, pgaRock, vs30 float64) float64 {
	if vs30 >= 400 {
		return 0
	}
	return c["a10"] + c["a11"]*math.Log(pgaRock+as97C5)
}
