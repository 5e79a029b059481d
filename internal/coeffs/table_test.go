package coeffs

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/groundmotion/internal/imt"
)

const sampleTable = `
IMT     c4      a1      a3       b5      b6
pga     5.600   1.640   -1.145   0.700   0.135
0.010   5.600   1.640   -1.145   0.700   0.135
0.100   5.500   2.160   -1.145   0.739   0.135
0.500   4.300   1.615   -0.952   0.799   0.130
1.000   3.700   0.828   -0.838   0.825   0.118
5.000   3.500  -1.460   -0.725   0.885   0.087
`

func TestResolve_ExactRowsRoundTrip(t *testing.T) {
	t.Parallel()
	tbl := MustParse(sampleTable, 5)

	want := map[float64]Row{
		0.01: {"c4": 5.6, "a1": 1.64, "a3": -1.145, "b5": 0.7, "b6": 0.135},
		0.1:  {"c4": 5.5, "a1": 2.16, "a3": -1.145, "b5": 0.739, "b6": 0.135},
		0.5:  {"c4": 4.3, "a1": 1.615, "a3": -0.952, "b5": 0.799, "b6": 0.13},
		1.0:  {"c4": 3.7, "a1": 0.828, "a3": -0.838, "b5": 0.825, "b6": 0.118},
		5.0:  {"c4": 3.5, "a1": -1.46, "a3": -0.725, "b5": 0.885, "b6": 0.087},
	}
	for _, p := range tbl.Periods() {
		got, err := tbl.Resolve(imt.NewSA(p))
		require.NoError(t, err)
		if diff := cmp.Diff(want[p], got); diff != "" {
			t.Errorf("Resolve(SA(%g)) mismatch (-want +got):\n%s", p, diff)
		}
	}

	pga, err := tbl.Resolve(imt.NewPGA())
	require.NoError(t, err)
	assert.Equal(t, 5.6, pga["c4"])
}

func TestResolve_ReturnsCopies(t *testing.T) {
	t.Parallel()
	tbl := MustParse(sampleTable, 5)

	row, err := tbl.Resolve(imt.NewSA(0.1))
	require.NoError(t, err)
	row["a1"] = 99

	again, err := tbl.Resolve(imt.NewSA(0.1))
	require.NoError(t, err)
	assert.Equal(t, 2.16, again["a1"])
}

func TestResolve_LogLinearMidpoint(t *testing.T) {
	t.Parallel()
	tbl, err := New(5,
		Entry{IMT: imt.NewSA(0.1), Row: Row{"a": 1.0}},
		Entry{IMT: imt.NewSA(1.0), Row: Row{"a": 2.0}},
	)
	require.NoError(t, err)

	row, err := tbl.Resolve(imt.NewSA(0.1))
	require.NoError(t, err)
	assert.Equal(t, Row{"a": 1.0}, row)

	row, err = tbl.Resolve(imt.NewSA(0.316))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, row["a"], 1e-3)

	row, err = tbl.Resolve(imt.NewSA(math.Sqrt(0.1)))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, row["a"], 1e-12)
}

func TestResolve_InterpolationStaysWithinBracket(t *testing.T) {
	t.Parallel()
	tbl := MustParse(sampleTable, 5)
	periods := tbl.Periods()

	for i := 0; i+1 < len(periods); i++ {
		lo, err := tbl.Resolve(imt.NewSA(periods[i]))
		require.NoError(t, err)
		hi, err := tbl.Resolve(imt.NewSA(periods[i+1]))
		require.NoError(t, err)

		for k := 1; k < 10; k++ {
			p := periods[i] * math.Pow(periods[i+1]/periods[i], float64(k)/10)
			row, err := tbl.Resolve(imt.NewSA(p))
			require.NoError(t, err)
			for name, v := range row {
				a, b := lo[name], hi[name]
				assert.GreaterOrEqual(t, v, math.Min(a, b)-1e-12, "%s at %g", name, p)
				assert.LessOrEqual(t, v, math.Max(a, b)+1e-12, "%s at %g", name, p)
			}
		}
	}
}

func TestResolve_ContinuousAtNodes(t *testing.T) {
	t.Parallel()
	tbl := MustParse(sampleTable, 5)

	node, err := tbl.Resolve(imt.NewSA(0.5))
	require.NoError(t, err)
	below, err := tbl.Resolve(imt.NewSA(0.5 * (1 - 1e-9)))
	require.NoError(t, err)
	above, err := tbl.Resolve(imt.NewSA(0.5 * (1 + 1e-9)))
	require.NoError(t, err)

	for name, v := range node {
		assert.InDelta(t, v, below[name], 1e-6, name)
		assert.InDelta(t, v, above[name], 1e-6, name)
	}
}

func TestResolve_OutOfRange(t *testing.T) {
	t.Parallel()
	tbl := MustParse(sampleTable, 5)

	for _, p := range []float64{0.005, 5.5, 10} {
		_, err := tbl.Resolve(imt.NewSA(p))
		assert.ErrorIs(t, err, ErrOutOfRange, "period %g", p)
	}

	_, err := tbl.Resolve(imt.NewPGV())
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestResolveWith_Clamp(t *testing.T) {
	t.Parallel()
	tbl := MustParse(sampleTable, 5)

	edge, err := tbl.Resolve(imt.NewSA(5.0))
	require.NoError(t, err)
	clamped, err := tbl.ResolveWith(imt.NewSA(8.0), Clamp)
	require.NoError(t, err)
	assert.Equal(t, edge, clamped)

	_, err = tbl.ResolveWith(imt.NewSA(8.0), Strict)
	assert.ErrorIs(t, err, ErrOutOfRange)

	first, err := tbl.ResolveWith(imt.NewSA(0.001), Clamp)
	require.NoError(t, err)
	assert.Equal(t, 1.64, first["a1"])
}

func TestResolve_DampingMismatch(t *testing.T) {
	t.Parallel()
	tbl := MustParse(sampleTable, 5)

	_, err := tbl.Resolve(imt.IMT{Kind: imt.SA, Period: 0.1, Damping: 10})
	assert.ErrorIs(t, err, ErrDampingMismatch)

	// Zero damping means "unspecified" and resolves against the table.
	_, err = tbl.Resolve(imt.IMT{Kind: imt.SA, Period: 0.1})
	assert.NoError(t, err)
}

func TestResolve_MismatchedBracketRows(t *testing.T) {
	t.Parallel()
	tbl, err := New(5,
		Entry{IMT: imt.NewSA(0.1), Row: Row{"a": 1.0, "b": 3.0}},
		Entry{IMT: imt.NewSA(1.0), Row: Row{"a": 2.0, "b": 4.0}},
	)
	require.NoError(t, err)
	delete(tbl.spectral[1].row, "b")

	_, err = tbl.Resolve(imt.NewSA(0.5))
	assert.ErrorIs(t, err, ErrMalformedTable)

	// Exact rows are still returned as stored.
	row, err := tbl.Resolve(imt.NewSA(1.0))
	require.NoError(t, err)
	assert.Equal(t, Row{"a": 2.0}, row)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(5)
	assert.ErrorIs(t, err, ErrMalformedTable)

	_, err = New(0, Entry{IMT: imt.NewPGA(), Row: Row{"a": 1}})
	assert.ErrorIs(t, err, ErrMalformedTable)

	_, err = New(5,
		Entry{IMT: imt.NewSA(0.2), Row: Row{"a": 1}},
		Entry{IMT: imt.NewSA(0.2), Row: Row{"a": 2}},
	)
	assert.ErrorIs(t, err, ErrMalformedTable)

	_, err = New(5, Entry{IMT: imt.NewSA(0.2), Row: Row{"a": math.NaN()}})
	assert.ErrorIs(t, err, ErrMalformedTable)

	_, err = New(5,
		Entry{IMT: imt.NewPGA(), Row: Row{"a": 1}},
		Entry{IMT: imt.NewSA(1.0), Row: Row{"a": 2, "b": 3}},
	)
	assert.ErrorIs(t, err, ErrMalformedTable)

	// Unsorted input is accepted and ordered.
	tbl, err := New(5,
		Entry{IMT: imt.NewSA(2.0), Row: Row{"a": 2}},
		Entry{IMT: imt.NewPGA(), Row: Row{"a": 0}},
		Entry{IMT: imt.NewSA(0.2), Row: Row{"a": 1}},
	)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 2.0}, tbl.Periods())
	assert.True(t, tbl.Has(imt.PGA))
	assert.False(t, tbl.Has(imt.PGV))
	assert.True(t, tbl.Has(imt.SA))
	require.NoError(t, tbl.Require(imt.PGA, imt.SA))
	assert.ErrorIs(t, tbl.Require(imt.PGV), ErrMalformedTable)
}

func TestNew_FormatRoundTrip(t *testing.T) {
	t.Parallel()
	tbl, err := New(5,
		Entry{IMT: imt.NewSA(1.0), Row: Row{"a": 2, "b": 0.125}},
		Entry{IMT: imt.NewPGA(), Row: Row{"a": 1, "b": -3.5}},
		Entry{IMT: imt.NewSA(0.1), Row: Row{"a": 1.5, "b": 1e-4}},
	)
	require.NoError(t, err)

	again, err := Parse(tbl.String(), 5)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), again.Columns())
	assert.Equal(t, tbl.Periods(), again.Periods())
	for _, m := range []imt.IMT{imt.NewPGA(), imt.NewSA(0.1), imt.NewSA(1.0)} {
		want, err := tbl.Resolve(m)
		require.NoError(t, err)
		got, err := again.Resolve(m)
		require.NoError(t, err)
		assert.Equal(t, want, got, "%s", m)
	}
}

func TestParse_WithoutPGARow(t *testing.T) {
	t.Parallel()
	tbl, err := Parse("IMT a\n0.1 1.0\n1.0 2.0\n", 5)
	require.NoError(t, err)

	_, err = tbl.Resolve(imt.NewPGA())
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, tbl.Require(imt.PGA), ErrMalformedTable)
}

func TestSelectBranch(t *testing.T) {
	t.Parallel()

	row := Row{"theta1": 4.2, "dc1_low": 0.0, "dc1_cent": 0.2, "dc1_high": 0.4}
	got, err := SelectBranch(row, "dc1_high", "delta_c1")
	require.NoError(t, err)
	assert.Equal(t, 0.4, got["delta_c1"])
	assert.Equal(t, 4.2, got["theta1"])

	_, present := row["delta_c1"]
	assert.False(t, present, "input row must not be modified")

	_, err = SelectBranch(row, "dc1_missing", "delta_c1")
	assert.ErrorIs(t, err, ErrMalformedTable)
}

func TestPolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy("clamp")
	require.NoError(t, err)
	assert.Equal(t, Clamp, p)
	assert.Equal(t, "strict", Strict.String())

	_, err = ParsePolicy("extrapolate")
	assert.Error(t, err)
}

func TestTable_PeriodRange(t *testing.T) {
	t.Parallel()

	tbl := MustParse(sampleTable, 5)
	lo, hi, ok := tbl.PeriodRange()
	require.True(t, ok)
	assert.Equal(t, 0.01, lo)
	assert.Equal(t, 5.0, hi)

	pgaOnly := MustParse("IMT a\npga 1.0\n", 5)
	_, _, ok = pgaOnly.PeriodRange()
	assert.False(t, ok)
	_, err := pgaOnly.Resolve(imt.NewSA(1.0))
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, imt.NewSA(3.0), pgaOnly.ClampPeriod(imt.NewSA(3.0)))
	assert.True(t, strings.HasPrefix(pgaOnly.String(), "IMT"))
}
