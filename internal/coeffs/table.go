// Package coeffs implements period-indexed regression coefficient tables.
//
// A table maps each tabulated intensity measure (PGA, PGV, or SA at a
// spectral period) to a row of named coefficients. Rows at untabulated SA
// periods are interpolated linearly in log-period between the two
// bracketing rows. The table never extrapolates; callers that prefer to
// clamp use ClampPeriod or ResolveWith(Clamp) before resolving.
package coeffs

import (
	"fmt"
	"maps"
	"sort"
	"strconv"

	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/numeric"
)

// Row is a set of named coefficients for one intensity measure. Rows
// returned by a Table are copies; mutating them never alters the table.
type Row map[string]float64

// Clone returns an independent copy of r.
func (r Row) Clone() Row {
	return maps.Clone(r)
}

// Policy selects how a model family treats SA periods outside the table.
type Policy int

const (
	// Strict rejects periods outside the table with ErrOutOfRange.
	Strict Policy = iota
	// Clamp resolves out-of-range periods at the nearest tabulated extreme.
	Clamp
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Clamp:
		return "clamp"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy reads "strict" or "clamp".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "strict":
		return Strict, nil
	case "clamp":
		return Clamp, nil
	}
	return Strict, fmt.Errorf("unknown period policy %q", s)
}

// entry is one tabulated row plus the source text of its cells, kept so a
// parsed table formats back to the precision it was written with.
type entry struct {
	im    imt.IMT
	label string
	row   Row
	cells []string
}

// Table is an immutable coefficient table for one SA damping ratio.
type Table struct {
	damping   float64
	imtColumn string
	columns   []string

	fixed    map[imt.Kind]*entry
	periods  []float64
	spectral []*entry

	// order preserves authoring order for Format.
	order []*entry
}

// Entry pairs an intensity measure with its coefficients for New.
type Entry struct {
	IMT imt.IMT
	Row Row
}

// New builds a table from rows in any order. Entries are validated the same
// way parsed rows are, except that SA rows are sorted by period first.
// Every row must carry the same coefficient names.
func New(damping float64, entries ...Entry) (*Table, error) {
	if damping <= 0 {
		return nil, fmt.Errorf("%w: damping must be positive, got %g", ErrMalformedTable, damping)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformedTable)
	}

	colSet := make(map[string]struct{})
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return imt.Less(sorted[i].IMT, sorted[j].IMT) })

	t := &Table{damping: damping, imtColumn: "IMT", fixed: make(map[imt.Kind]*entry)}
	for _, e := range sorted {
		for name, v := range e.Row {
			if !numeric.Finite(v) {
				return nil, fmt.Errorf("%w: %s coefficient %q is not finite", ErrMalformedTable, e.IMT, name)
			}
			colSet[name] = struct{}{}
		}
		label := e.IMT.Kind.String()
		if e.IMT.IsSpectral() {
			label = strconv.FormatFloat(e.IMT.Period, 'g', -1, 64)
		}
		if err := t.add(&entry{im: e.IMT, label: label, row: e.Row.Clone()}); err != nil {
			return nil, err
		}
	}

	for name := range colSet {
		t.columns = append(t.columns, name)
	}
	sort.Strings(t.columns)
	for _, e := range t.order {
		e.cells = make([]string, len(t.columns))
		for i, name := range t.columns {
			v, ok := e.row[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s row has no coefficient %q", ErrMalformedTable, e.label, name)
			}
			e.cells[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return t, nil
}

// add appends e, enforcing unique PGA/PGV rows and strictly increasing SA
// periods.
func (t *Table) add(e *entry) error {
	if !e.im.IsSpectral() {
		if _, dup := t.fixed[e.im.Kind]; dup {
			return fmt.Errorf("%w: duplicate %s row", ErrMalformedTable, e.im.Kind)
		}
		t.fixed[e.im.Kind] = e
		t.order = append(t.order, e)
		return nil
	}

	p := e.im.Period
	if !(p > 0) || !numeric.Finite(p) {
		return fmt.Errorf("%w: invalid period %g", ErrMalformedTable, p)
	}
	if n := len(t.periods); n > 0 {
		last := t.periods[n-1]
		if p == last {
			return fmt.Errorf("%w: duplicate period %g", ErrMalformedTable, p)
		}
		if p < last {
			return fmt.Errorf("%w: period %g follows %g; periods must increase", ErrMalformedTable, p, last)
		}
	}
	t.periods = append(t.periods, p)
	t.spectral = append(t.spectral, e)
	t.order = append(t.order, e)
	return nil
}

// Damping returns the SA damping ratio (percent) the table applies to.
func (t *Table) Damping() float64 { return t.damping }

// Columns returns the coefficient names in column order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Periods returns the tabulated SA periods in ascending order.
func (t *Table) Periods() []float64 {
	out := make([]float64, len(t.periods))
	copy(out, t.periods)
	return out
}

// PeriodRange returns the smallest and largest tabulated SA periods.
// ok is false for tables without spectral rows.
func (t *Table) PeriodRange() (lo, hi float64, ok bool) {
	if len(t.periods) == 0 {
		return 0, 0, false
	}
	return t.periods[0], t.periods[len(t.periods)-1], true
}

// Has reports whether the table can resolve kind at all: PGA and PGV
// need their own row, SA needs at least one spectral row.
func (t *Table) Has(kind imt.Kind) bool {
	if kind == imt.SA {
		return len(t.periods) > 0
	}
	_, ok := t.fixed[kind]
	return ok
}

// Require fails with ErrMalformedTable unless the table can resolve every
// kind in kinds.
func (t *Table) Require(kinds ...imt.Kind) error {
	for _, k := range kinds {
		if !t.Has(k) {
			return fmt.Errorf("%w: no %s rows", ErrMalformedTable, k)
		}
	}
	return nil
}

// Resolve returns the coefficients for m.
//
// Tabulated IMTs return a copy of the stored row. SA periods strictly
// between two tabulated periods interpolate every coefficient linearly in
// ln(period). Periods outside the tabulated range fail with ErrOutOfRange.
func (t *Table) Resolve(m imt.IMT) (Row, error) {
	if !m.IsSpectral() {
		e, ok := t.fixed[m.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: table has no %s row", ErrOutOfRange, m.Kind)
		}
		return e.row.Clone(), nil
	}

	if m.Damping != 0 && m.Damping != t.damping {
		return nil, fmt.Errorf("%w: requested %g%%, table is %g%%", ErrDampingMismatch, m.Damping, t.damping)
	}

	lo, hi, exact, ok := numeric.Bracket(t.periods, m.Period)
	if !ok {
		if len(t.periods) == 0 {
			return nil, fmt.Errorf("%w: table has no spectral rows", ErrOutOfRange)
		}
		return nil, fmt.Errorf("%w: period %g outside [%g, %g]", ErrOutOfRange,
			m.Period, t.periods[0], t.periods[len(t.periods)-1])
	}
	if exact {
		return t.spectral[lo].row.Clone(), nil
	}
	return interpolate(t.spectral[lo], t.spectral[hi], m.Period)
}

// ResolveWith applies policy before resolving SA periods.
func (t *Table) ResolveWith(m imt.IMT, policy Policy) (Row, error) {
	if policy == Clamp {
		m = t.ClampPeriod(m)
	}
	return t.Resolve(m)
}

// ClampPeriod moves an SA period outside the tabulated range onto the
// nearest tabulated extreme. Non-spectral IMTs are returned unchanged.
func (t *Table) ClampPeriod(m imt.IMT) imt.IMT {
	lo, hi, ok := t.PeriodRange()
	if !m.IsSpectral() || !ok {
		return m
	}
	m.Period = numeric.Clamp(m.Period, lo, hi)
	return m
}

func interpolate(lo, hi *entry, period float64) (Row, error) {
	for name := range hi.row {
		if _, ok := lo.row[name]; !ok {
			return nil, fmt.Errorf("%w: coefficient %q present at %s but not at %s",
				ErrMalformedTable, name, hi.label, lo.label)
		}
	}

	f := numeric.LogFraction(period, lo.im.Period, hi.im.Period)
	out := make(Row, len(lo.row))
	for name, a := range lo.row {
		b, ok := hi.row[name]
		if !ok {
			return nil, fmt.Errorf("%w: coefficient %q present at %s but not at %s",
				ErrMalformedTable, name, lo.label, hi.label)
		}
		out[name] = numeric.Lerp(a, b, f)
	}
	return out, nil
}

// SelectBranch returns a copy of row with the value of field stored under
// canonical. It implements epistemic branch selection (e.g. picking
// dc1_low, dc1_cent or dc1_high as delta_c1) without touching the table.
func SelectBranch(row Row, field, canonical string) (Row, error) {
	v, ok := row[field]
	if !ok {
		return nil, fmt.Errorf("%w: branch column %q not present", ErrMalformedTable, field)
	}
	out := row.Clone()
	out[canonical] = v
	return out, nil
}
