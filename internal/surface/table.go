package surface

import (
	"fmt"
	"slices"

	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/numeric"
	"github.com/banshee-data/groundmotion/internal/stddev"
)

// Metadata describes a table as a whole.
type Metadata struct {
	// ID identifies one build of a table resource.
	ID string
	// Name is a human label, usually the resource's base name.
	Name string
	// Region is the tectonic region type the surfaces were built for.
	Region string
	// DistanceMetric names the site distance the distance axis uses
	// (rhypo, rjb, rrup).
	DistanceMetric string
	// Damping is the SA damping ratio in percent.
	Damping float64
}

// Entry pairs an intensity measure with its grid for NewTable.
type Entry struct {
	IMT  imt.IMT
	Grid *Grid
}

// Table maps stored intensity measures to grids. It is read-only after
// construction and safe for concurrent lookups.
type Table struct {
	meta       Metadata
	components []stddev.Component

	fixed    map[imt.Kind]*Grid
	periods  []float64
	spectral []*Grid
}

// NewTable validates and indexes entries. Every grid must carry the same
// set of sigma components, and each IMT may appear once. Grids are copied,
// so later changes to the entries do not reach the table.
func NewTable(meta Metadata, entries ...Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: table %q has no grids", ErrMalformedGrid, meta.Name)
	}
	if meta.Damping == 0 {
		meta.Damping = imt.DefaultDamping
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		switch {
		case imt.Less(a.IMT, b.IMT):
			return -1
		case imt.Less(b.IMT, a.IMT):
			return 1
		}
		return 0
	})

	t := &Table{meta: meta, fixed: make(map[imt.Kind]*Grid)}
	for i, e := range sorted {
		if err := e.Grid.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", e.IMT, err)
		}
		e.Grid = e.Grid.Clone()
		comps := e.Grid.Components()
		if i == 0 {
			t.components = comps
		} else if !slices.Equal(comps, t.components) {
			return nil, fmt.Errorf("%w: %s stores sigma %v, %s stores %v",
				ErrMalformedGrid, e.IMT, comps, sorted[0].IMT, t.components)
		}

		if !e.IMT.IsSpectral() {
			if _, dup := t.fixed[e.IMT.Kind]; dup {
				return nil, fmt.Errorf("%w: duplicate %s grid", ErrMalformedGrid, e.IMT.Kind)
			}
			t.fixed[e.IMT.Kind] = e.Grid
			continue
		}
		if !(e.IMT.Period > 0) {
			return nil, fmt.Errorf("%w: invalid period %g", ErrMalformedGrid, e.IMT.Period)
		}
		if n := len(t.periods); n > 0 && t.periods[n-1] == e.IMT.Period {
			return nil, fmt.Errorf("%w: duplicate period %g", ErrMalformedGrid, e.IMT.Period)
		}
		t.periods = append(t.periods, e.IMT.Period)
		t.spectral = append(t.spectral, e.Grid)
	}
	return t, nil
}

// Metadata returns the table's descriptive fields.
func (t *Table) Metadata() Metadata { return t.meta }

// Components returns the sigma components every grid stores.
func (t *Table) Components() []stddev.Component { return slices.Clone(t.components) }

// Periods returns the stored SA periods in ascending order.
func (t *Table) Periods() []float64 { return slices.Clone(t.periods) }

// IMTs lists the stored intensity measures in IMT order.
func (t *Table) IMTs() []imt.IMT {
	var out []imt.IMT
	for _, k := range []imt.Kind{imt.PGA, imt.PGV} {
		if _, ok := t.fixed[k]; ok {
			out = append(out, imt.IMT{Kind: k})
		}
	}
	for _, p := range t.periods {
		out = append(out, imt.IMT{Kind: imt.SA, Period: p, Damping: t.meta.Damping})
	}
	return out
}

// Supports reports whether lookups for kind can succeed at all.
func (t *Table) Supports(kind imt.Kind) bool {
	if kind == imt.SA {
		return len(t.periods) > 0
	}
	_, ok := t.fixed[kind]
	return ok
}

// Grid returns a copy of the stored grid for an exactly stored IMT.
func (t *Table) Grid(m imt.IMT) (*Grid, bool) {
	if !m.IsSpectral() {
		g, ok := t.fixed[m.Kind]
		if !ok {
			return nil, false
		}
		return g.Clone(), true
	}
	lo, _, exact, ok := numeric.Bracket(t.periods, m.Period)
	if !ok || !exact {
		return nil, false
	}
	return t.spectral[lo].Clone(), true
}

// Result is a lookup at n sites: mean in natural-log units and one vector
// per stored sigma component.
type Result struct {
	Mean  []float64
	Sigma map[stddev.Component][]float64
}

// Lookup interpolates the table at m, the rupture magnitude and one distance
// per site. Result vectors have len(dists) elements.
//
// SA periods between stored periods are interpolated in ln(period) after
// each bracketing grid has been evaluated at (mag, dists). Magnitudes and
// distances beyond a grid's axes are clamped to the edge bins.
func (t *Table) Lookup(m imt.IMT, mag float64, dists []float64) (*Result, error) {
	if err := checkInputs(mag, dists); err != nil {
		return nil, err
	}

	var v values
	switch {
	case !m.IsSpectral():
		g, ok := t.fixed[m.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedIMT, m)
		}
		var err error
		if v, err = g.evaluate(mag, dists); err != nil {
			return nil, err
		}

	default:
		if m.Damping != 0 && m.Damping != t.meta.Damping {
			return nil, fmt.Errorf("%w: %s (table damping %g%%)", ErrUnsupportedIMT, m, t.meta.Damping)
		}
		lo, hi, exact, ok := numeric.Bracket(t.periods, m.Period)
		if !ok {
			if len(t.periods) == 0 {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedIMT, m)
			}
			return nil, fmt.Errorf("%w: period %g outside [%g, %g]", ErrOutOfRange,
				m.Period, t.periods[0], t.periods[len(t.periods)-1])
		}
		var err error
		if v, err = t.spectral[lo].evaluate(mag, dists); err != nil {
			return nil, err
		}
		if !exact {
			upper, err := t.spectral[hi].evaluate(mag, dists)
			if err != nil {
				return nil, err
			}
			f := numeric.LogFraction(m.Period, t.periods[lo], t.periods[hi])
			blend(v.mean, upper.mean, f)
			for c := range v.sigma {
				blend(v.sigma[c], upper.sigma[c], f)
			}
		}
	}

	if i := numeric.AllFinite(v.mean); i >= 0 {
		return nil, fmt.Errorf("%w: mean %g at site %d for %s", ErrNonFinite, v.mean[i], i, m)
	}
	for c, s := range v.sigma {
		if i := numeric.AllFinite(s); i >= 0 {
			return nil, fmt.Errorf("%w: %s sigma %g at site %d for %s", ErrNonFinite, c, s[i], i, m)
		}
	}
	return &Result{Mean: v.mean, Sigma: v.sigma}, nil
}

// blend moves lo toward hi by fraction f in place.
func blend(lo, hi []float64, f float64) {
	for i := range lo {
		lo[i] = numeric.Lerp(lo[i], hi[i], f)
	}
}
