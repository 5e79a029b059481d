package stddev

import (
	"github.com/banshee-data/groundmotion/internal/coeffs"
)

// TotalMode says whether a model tabulates total sigma or derives it.
type TotalMode int

const (
	// Tabulated uses the model's own total column or surface.
	Tabulated TotalMode = iota
	// Derived ignores any tabulated total and computes sqrt(tau^2 + phi^2).
	Derived
)

// RowSource reads scalar standard deviations from a coefficient row and
// broadcasts them to every site.
type RowSource struct {
	Row     coeffs.Row
	Columns map[Component]string
	Total   TotalMode
}

// Values implements Source.
func (s RowSource) Values(c Component, n int) ([]float64, bool) {
	if c == Total && s.Total == Derived {
		return nil, false
	}
	col, ok := s.Columns[c]
	if !ok {
		return nil, false
	}
	v, ok := s.Row[col]
	if !ok {
		return nil, false
	}
	return Broadcast(v, n), true
}

// VectorSource holds per-site standard deviations, typically interpolated
// from ground-motion surfaces.
type VectorSource struct {
	Vectors map[Component][]float64
	Total   TotalMode
}

// Values implements Source. Returned slices are copies.
func (s VectorSource) Values(c Component, n int) ([]float64, bool) {
	if c == Total && s.Total == Derived {
		return nil, false
	}
	v, ok := s.Vectors[c]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out, true
}

// Constant broadcasts fixed per-component values, e.g. sigma computed as a
// closed-form function of magnitude.
type Constant map[Component]float64

// Values implements Source.
func (s Constant) Values(c Component, n int) ([]float64, bool) {
	v, ok := s[c]
	if !ok {
		return nil, false
	}
	return Broadcast(v, n), true
}
