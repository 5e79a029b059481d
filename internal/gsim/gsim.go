// Package gsim evaluates ground-motion prediction equations.
//
// Every model implements GMPE: given per-site attributes, a rupture, per-site
// distances, an intensity measure and the requested standard deviation
// components, it returns the mean natural-log intensity at each site and one
// standard deviation vector per requested component, in request order.
// Inputs are validated at this boundary before any model arithmetic runs.
package gsim

import (
	"errors"
	"fmt"
	"slices"

	"github.com/banshee-data/groundmotion/internal/coeffs"
	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/numeric"
	"github.com/banshee-data/groundmotion/internal/stddev"
)

var (
	// ErrSiteCountMismatch is returned when per-site vectors disagree in
	// length.
	ErrSiteCountMismatch = errors.New("per-site vectors have different lengths")
	// ErrMissingParameter is returned when a model's required site,
	// rupture or distance parameter is absent or not finite.
	ErrMissingParameter = errors.New("required parameter missing")
	// ErrUnsupportedIMT is returned for intensity measures a model does not
	// define.
	ErrUnsupportedIMT = errors.New("unsupported intensity measure type")
	// ErrUnknownModel is returned by New for unregistered names.
	ErrUnknownModel = errors.New("unknown ground-motion model")
	// ErrNoCache is returned by New for table-backed models built without
	// a surface cache.
	ErrNoCache = errors.New("table-backed model needs a surface cache")
)

// Tectonic region types.
const (
	ActiveShallowCrust  = "Active Shallow Crust"
	StableContinental   = "Stable Shallow Crust"
	SubductionInterface = "Subduction Interface"
	SubductionIntraslab = "Subduction IntraSlab"
)

// Parameter names used in Info and in error messages.
const (
	ParamVs30      = "vs30"
	ParamForearc   = "forearc"
	ParamMag       = "mag"
	ParamRake      = "rake"
	ParamHypoDepth = "hypo_depth"
	DistRrup       = "rrup"
	DistRjb        = "rjb"
	DistRhypo      = "rhypo"
	DistRx         = "rx"
)

// Sites holds per-site attributes. Unused fields may be nil.
type Sites struct {
	Vs30 []float64
	// Forearc is true for sites on the forearc side of a subduction zone
	// and false for backarc sites.
	Forearc []bool
}

// Rupture holds rupture-wide parameters.
type Rupture struct {
	Mag       float64
	Rake      float64
	HypoDepth float64 // km
}

// Distances holds per-site source-to-site distances in km. Unused fields
// may be nil.
type Distances struct {
	Rrup  []float64
	Rjb   []float64
	Rhypo []float64
	// Rx is the horizontal distance from the top-edge trace, positive on
	// the hanging-wall side.
	Rx []float64
}

// Request is one evaluation call.
type Request struct {
	Sites     Sites
	Rupture   Rupture
	Distances Distances
	IMT       imt.IMT
	StdDevs   []stddev.Component
}

// Result is the output of one evaluation. Mean and every StdDevs vector
// have one value per site; StdDevs follows the order of Request.StdDevs.
type Result struct {
	Mean    []float64
	StdDevs [][]float64
}

// Info describes what a model defines and requires.
type Info struct {
	Name           string
	TectonicRegion string
	IMTs           []imt.Kind
	StdDevs        []stddev.Component
	SiteParams     []string
	RuptureParams  []string
	DistanceParams []string
	// PeriodPolicy is how SA periods outside the model's tabulated range
	// are handled.
	PeriodPolicy coeffs.Policy
}

// GMPE is a ground-motion prediction equation. Implementations are safe
// for concurrent use.
type GMPE interface {
	Info() Info
	Evaluate(req *Request) (*Result, error)
}

// Validate checks req against info and returns the site count N. All
// required vectors must be present and have length N, required rupture
// parameters must be finite, the IMT kind must be defined and every
// requested component must be declared.
func Validate(info Info, req *Request) (int, error) {
	if req == nil {
		return 0, fmt.Errorf("%w: nil request", ErrMissingParameter)
	}
	if !slices.Contains(info.IMTs, req.IMT.Kind) {
		return 0, fmt.Errorf("%w: %s does not define %s", ErrUnsupportedIMT, info.Name, req.IMT)
	}
	if req.IMT.IsSpectral() && !(req.IMT.Period > 0) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedIMT, req.IMT)
	}
	if err := stddev.NewResolver(info.StdDevs...).Validate(req.StdDevs); err != nil {
		return 0, fmt.Errorf("%s: %w", info.Name, err)
	}

	n := -1
	var first string
	check := func(name string, length int, present bool) error {
		if !present {
			return fmt.Errorf("%w: %s requires %s", ErrMissingParameter, info.Name, name)
		}
		if n < 0 {
			n, first = length, name
			return nil
		}
		if length != n {
			return fmt.Errorf("%w: %s has %d values, %s has %d", ErrSiteCountMismatch, name, length, first, n)
		}
		return nil
	}

	for _, p := range info.SiteParams {
		var err error
		switch p {
		case ParamVs30:
			err = check(p, len(req.Sites.Vs30), req.Sites.Vs30 != nil)
			if err == nil {
				err = checkFinite(p, req.Sites.Vs30)
			}
		case ParamForearc:
			err = check(p, len(req.Sites.Forearc), req.Sites.Forearc != nil)
		default:
			err = fmt.Errorf("%w: unknown site parameter %q", ErrMissingParameter, p)
		}
		if err != nil {
			return 0, err
		}
	}
	for _, p := range info.DistanceParams {
		d := req.Distances.Metric(p)
		if err := check(p, len(d), d != nil); err != nil {
			return 0, err
		}
		if err := checkFinite(p, d); err != nil {
			return 0, err
		}
	}
	for _, p := range info.RuptureParams {
		var v float64
		switch p {
		case ParamMag:
			v = req.Rupture.Mag
		case ParamRake:
			v = req.Rupture.Rake
		case ParamHypoDepth:
			v = req.Rupture.HypoDepth
		default:
			return 0, fmt.Errorf("%w: unknown rupture parameter %q", ErrMissingParameter, p)
		}
		if !numeric.Finite(v) {
			return 0, fmt.Errorf("%w: %s is %g", ErrMissingParameter, p, v)
		}
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

func checkFinite(name string, vs []float64) error {
	if i := numeric.AllFinite(vs); i >= 0 {
		return fmt.Errorf("%w: %s is %g at site %d", ErrMissingParameter, name, vs[i], i)
	}
	return nil
}

// Metric returns the distance vector named by one of the Dist* constants,
// or nil.
func (d *Distances) Metric(name string) []float64 {
	switch name {
	case DistRrup:
		return d.Rrup
	case DistRjb:
		return d.Rjb
	case DistRhypo:
		return d.Rhypo
	case DistRx:
		return d.Rx
	}
	return nil
}

// mustTable parses an embedded coefficient table and panics unless it can
// resolve every kind in kinds. Site terms driven by rock PGA need the PGA
// row even when only SA is requested.
func mustTable(text string, kinds ...imt.Kind) *coeffs.Table {
	t := coeffs.MustParse(text, imt.DefaultDamping)
	if err := t.Require(kinds...); err != nil {
		panic(err)
	}
	return t
}
