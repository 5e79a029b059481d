package coeffs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/groundmotion/internal/imt"
)

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		table string
	}{
		{"empty", ""},
		{"header only", "IMT a b\n"},
		{"header without coefficients", "IMT\npga\n"},
		{"duplicate column", "IMT a a\npga 1 2\n"},
		{"duplicate period", "IMT a\n0.1 1\n0.2 2\n0.2 3\n"},
		{"decreasing period", "IMT a\n0.1 1\n0.5 2\n0.2 3\n"},
		{"duplicate pga", "IMT a\npga 1\npga 2\n"},
		{"short row", "IMT a b\n0.1 1\n"},
		{"long row", "IMT a b\n0.1 1 2 3\n"},
		{"non-numeric cell", "IMT a b\n0.1 1 x\n"},
		{"nan cell", "IMT a\n0.1 NaN\n"},
		{"bad period token", "IMT a\npgd 1\n"},
		{"zero period", "IMT a\n0 1\n"},
		{"negative period", "IMT a\n-0.1 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Parse(tt.table, 5)
			assert.ErrorIs(t, err, ErrMalformedTable)
			assert.Nil(t, tbl, "no partial table on failure")
		})
	}

	_, err := Parse("IMT a\n0.1 1\n", 0)
	assert.ErrorIs(t, err, ErrMalformedTable)
}

func TestParse_ReportsLine(t *testing.T) {
	t.Parallel()

	_, err := Parse("IMT a\n\n0.1 1\n0.1 2\n", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
}

func TestParse_CommentsAndCase(t *testing.T) {
	t.Parallel()

	tbl, err := Parse("# Table 3\nimt a\nPGA 1\n# mid\n0.2 2\nPgv 3\n", 5)
	require.NoError(t, err)
	assert.True(t, tbl.Has(imt.PGA))
	assert.True(t, tbl.Has(imt.PGV))
	assert.Equal(t, []string{"a"}, tbl.Columns())
	assert.Equal(t, 5.0, tbl.Damping())
}

func TestFormat_RoundTrip(t *testing.T) {
	t.Parallel()

	src := "IMT  vlin       b\npga  865.1000  -1.1860\n0.02 865.1000  -1.1860\n0.05 1053.5000 -1.3460\n"
	tbl := MustParse(src, 5)

	out := tbl.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"IMT", "vlin", "b"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"pga", "865.1000", "-1.1860"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"0.05", "1053.5000", "-1.3460"}, strings.Fields(lines[3]))

	again, err := Parse(out, 5)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), again.Columns())
	assert.Equal(t, tbl.Periods(), again.Periods())
	for _, p := range tbl.Periods() {
		a, err := tbl.Resolve(imt.NewSA(p))
		require.NoError(t, err)
		b, err := again.Resolve(imt.NewSA(p))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
	assert.Equal(t, out, again.String())
}

func TestMustParse_Panics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { MustParse("IMT a\n0.1 x\n", 5) })
}
