// Package surface holds precomputed ground-motion response surfaces and
// interpolates them at arbitrary magnitude, per-site distance and period.
//
// Each stored intensity measure has one Grid: a magnitude x distance mean
// surface in natural-log units plus one surface per stored standard
// deviation component. Lookups are bilinear in (magnitude, distance), and
// linear in ln(period) between stored SA periods. Magnitudes and distances
// outside a grid's axes are clamped to the edge bins (flat extrapolation);
// periods outside the stored range are rejected.
package surface

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/groundmotion/internal/numeric"
	"github.com/banshee-data/groundmotion/internal/stddev"
)

// Grid is the response surface for one intensity measure. Rows of Mean and
// of each Sigma surface follow Magnitudes; columns follow Distances.
type Grid struct {
	Magnitudes []float64
	Distances  []float64
	Mean       *mat.Dense
	Sigma      map[stddev.Component]*mat.Dense
}

// Validate checks the layout invariants: non-empty strictly increasing
// axes, surfaces whose dimensions match them, finite cells everywhere and
// non-negative sigma.
func (g *Grid) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrMalformedGrid)
	}
	if len(g.Magnitudes) == 0 || len(g.Distances) == 0 {
		return fmt.Errorf("%w: empty axis (%d magnitudes, %d distances)",
			ErrMalformedGrid, len(g.Magnitudes), len(g.Distances))
	}
	if !numeric.StrictlyIncreasing(g.Magnitudes) || numeric.AllFinite(g.Magnitudes) >= 0 {
		return fmt.Errorf("%w: magnitude bins must be finite and strictly increasing", ErrMalformedGrid)
	}
	if !numeric.StrictlyIncreasing(g.Distances) || numeric.AllFinite(g.Distances) >= 0 {
		return fmt.Errorf("%w: distance bins must be finite and strictly increasing", ErrMalformedGrid)
	}
	if err := checkDims("mean", g.Mean, len(g.Magnitudes), len(g.Distances)); err != nil {
		return err
	}
	if err := checkCells("mean", g.Mean, false); err != nil {
		return err
	}
	for c, s := range g.Sigma {
		if err := checkDims(c.String(), s, len(g.Magnitudes), len(g.Distances)); err != nil {
			return err
		}
		if err := checkCells(c.String(), s, true); err != nil {
			return err
		}
	}
	return nil
}

// checkCells rejects NaN and Inf cells, and negative cells when sigma is
// set.
func checkCells(name string, m *mat.Dense, sigma bool) error {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		if j := numeric.AllFinite(row); j >= 0 {
			return fmt.Errorf("%w: %s surface holds %g at (%d, %d)", ErrMalformedGrid, name, row[j], i, j)
		}
		if !sigma {
			continue
		}
		for j, v := range row {
			if v < 0 {
				return fmt.Errorf("%w: %s surface holds negative sigma %g at (%d, %d)", ErrMalformedGrid, name, v, i, j)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		Magnitudes: slices.Clone(g.Magnitudes),
		Distances:  slices.Clone(g.Distances),
		Sigma:      make(map[stddev.Component]*mat.Dense, len(g.Sigma)),
	}
	if g.Mean != nil {
		out.Mean = mat.DenseCopyOf(g.Mean)
	}
	for c, s := range g.Sigma {
		if s != nil {
			out.Sigma[c] = mat.DenseCopyOf(s)
		}
	}
	return out
}

func checkDims(name string, m *mat.Dense, rows, cols int) error {
	if m == nil {
		return fmt.Errorf("%w: %s surface missing", ErrMalformedGrid, name)
	}
	r, c := m.Dims()
	if r != rows || c != cols {
		return fmt.Errorf("%w: %s surface is %dx%d, axes are %dx%d", ErrMalformedGrid, name, r, c, rows, cols)
	}
	return nil
}

// Components returns the stored sigma components in ascending order.
func (g *Grid) Components() []stddev.Component {
	out := make([]stddev.Component, 0, len(g.Sigma))
	for c := range g.Sigma {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// values is one interpolated evaluation of a grid at a set of sites.
type values struct {
	mean  []float64
	sigma map[stddev.Component][]float64
}

// evaluate interpolates every surface of g at mag and each site distance.
func (g *Grid) evaluate(mag float64, dists []float64) (values, error) {
	mi, mj, mf := axisPosition(g.Magnitudes, mag)

	out := values{sigma: make(map[stddev.Component][]float64, len(g.Sigma))}
	var err error
	if out.mean, err = g.surfaceAt(g.Mean, mi, mj, mf, dists); err != nil {
		return values{}, err
	}
	for c, s := range g.Sigma {
		if out.sigma[c], err = g.surfaceAt(s, mi, mj, mf, dists); err != nil {
			return values{}, err
		}
	}
	return out, nil
}

// surfaceAt interpolates surface s between magnitude rows i and j with
// fraction f, then along distance for every site.
func (g *Grid) surfaceAt(s *mat.Dense, i, j int, f float64, dists []float64) ([]float64, error) {
	nd := len(g.Distances)
	profile := make([]float64, nd)
	for k := 0; k < nd; k++ {
		profile[k] = numeric.Lerp(s.At(i, k), s.At(j, k), f)
	}

	out := make([]float64, len(dists))
	if nd == 1 {
		for k := range out {
			out[k] = profile[0]
		}
		return out, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(g.Distances, profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGrid, err)
	}
	lo, hi := g.Distances[0], g.Distances[nd-1]
	for k, d := range dists {
		out[k] = pl.Predict(numeric.Clamp(d, lo, hi))
	}
	return out, nil
}

// axisPosition clamps x onto axis and returns the bracketing indices and
// the linear fraction between them. On a node, or outside the axis, i == j
// and f == 0.
func axisPosition(axis []float64, x float64) (i, j int, f float64) {
	n := len(axis)
	x = numeric.Clamp(x, axis[0], axis[n-1])
	lo, hi, exact, ok := numeric.Bracket(axis, x)
	if !ok || exact {
		return lo, lo, 0
	}
	return lo, hi, numeric.LinearFraction(x, axis[lo], axis[hi])
}

// checkInputs rejects NaN magnitudes and distances, which clamping cannot
// place on an axis.
func checkInputs(mag float64, dists []float64) error {
	if math.IsNaN(mag) {
		return fmt.Errorf("magnitude is NaN")
	}
	for i, d := range dists {
		if math.IsNaN(d) {
			return fmt.Errorf("distance at site %d is NaN", i)
		}
	}
	return nil
}
