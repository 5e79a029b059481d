// Package stddev resolves requested ground-motion variability components
// (total, inter-event, intra-event, single-station) into per-site vectors.
package stddev

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/groundmotion/internal/numeric"
)

// ErrUnsupportedStdDev is returned when a caller requests a component the
// model does not define. The error text names the component.
var ErrUnsupportedStdDev = errors.New("unsupported standard deviation type")

// Component is one uncertainty component of ground-motion variability.
type Component int

const (
	Total Component = iota
	InterEvent
	IntraEvent
	SingleStation
)

var componentNames = map[Component]string{
	Total:         "total",
	InterEvent:    "inter_event",
	IntraEvent:    "intra_event",
	SingleStation: "single_station",
}

func (c Component) String() string {
	if s, ok := componentNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Component(%d)", int(c))
}

// Parse reads a component name. Hyphens, spaces and case are ignored, and
// the common aliases tau, phi and sigma are accepted.
func Parse(s string) (Component, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "total", "sigma":
		return Total, nil
	case "inter_event", "inter", "tau", "between_event":
		return InterEvent, nil
	case "intra_event", "intra", "phi", "within_event":
		return IntraEvent, nil
	case "single_station", "sigma_ss":
		return SingleStation, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedStdDev, s)
}

// ParseList splits a comma-separated component list.
func ParseList(s string) ([]Component, error) {
	var out []Component
	for _, f := range strings.Split(s, ",") {
		if strings.TrimSpace(f) == "" {
			continue
		}
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Source supplies standard deviations for a model evaluation. Values returns
// the vector for c at n sites, or ok == false if the source holds no value
// for c.
type Source interface {
	Values(c Component, n int) (vals []float64, ok bool)
}

// Resolver validates requested components against the set a model declares
// and assembles the output vectors.
type Resolver struct {
	supported []Component
	set       map[Component]struct{}
}

// NewResolver declares the components a model supports.
func NewResolver(supported ...Component) *Resolver {
	r := &Resolver{set: make(map[Component]struct{}, len(supported))}
	for _, c := range supported {
		if _, dup := r.set[c]; dup {
			continue
		}
		r.set[c] = struct{}{}
		r.supported = append(r.supported, c)
	}
	return r
}

// Supported returns the declared components in declaration order.
func (r *Resolver) Supported() []Component {
	out := make([]Component, len(r.supported))
	copy(out, r.supported)
	return out
}

// Supports reports whether c is declared.
func (r *Resolver) Supports(c Component) bool {
	_, ok := r.set[c]
	return ok
}

// Validate checks every requested component before any work is done.
func (r *Resolver) Validate(requested []Component) error {
	for _, c := range requested {
		if !r.Supports(c) {
			return fmt.Errorf("%w: %s", ErrUnsupportedStdDev, c)
		}
	}
	return nil
}

// Resolve returns one vector of length n per requested component, in
// request order. All components are validated before src is consulted.
//
// A total that src does not hold is computed as sqrt(tau^2 + phi^2) from
// the inter- and intra-event values. A total that src does hold is used as
// is.
func (r *Resolver) Resolve(src Source, requested []Component, n int) ([][]float64, error) {
	if err := r.Validate(requested); err != nil {
		return nil, err
	}

	out := make([][]float64, 0, len(requested))
	for _, c := range requested {
		vals, ok := src.Values(c, n)
		if !ok && c == Total {
			vals, ok = rootSumSquare(src, n)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s declared but not provided by model", ErrUnsupportedStdDev, c)
		}
		if len(vals) != n {
			return nil, fmt.Errorf("%s: got %d values for %d sites", c, len(vals), n)
		}
		if i := numeric.AllFinite(vals); i >= 0 {
			return nil, fmt.Errorf("%s: non-finite value %g at site %d", c, vals[i], i)
		}
		out = append(out, vals)
	}
	return out, nil
}

func rootSumSquare(src Source, n int) ([]float64, bool) {
	tau, ok := src.Values(InterEvent, n)
	if !ok {
		return nil, false
	}
	phi, ok := src.Values(IntraEvent, n)
	if !ok || len(phi) != len(tau) {
		return nil, false
	}
	out := make([]float64, len(tau))
	for i := range tau {
		out[i] = RootSumSquare(tau[i], phi[i])
	}
	return out, true
}

// RootSumSquare combines inter-event and intra-event components into total.
func RootSumSquare(tau, phi float64) float64 {
	return math.Sqrt(tau*tau + phi*phi)
}

// Broadcast returns a vector of n copies of v.
func Broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// MagnitudeTaper is a piecewise-linear function of magnitude: vLo at or
// below mLo, vHi at or above mHi, linear in between. It covers the
// magnitude-banded sigma models that do not vary with period tables.
func MagnitudeTaper(mag, mLo, mHi, vLo, vHi float64) float64 {
	switch {
	case mag <= mLo:
		return vLo
	case mag >= mHi:
		return vHi
	default:
		return numeric.Lerp(vLo, vHi, numeric.LinearFraction(mag, mLo, mHi))
	}
}
