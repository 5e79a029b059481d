package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBracket(t *testing.T) {
	t.Parallel()

	xs := []float64{0.1, 0.5, 1.0, 2.0}
	tests := []struct {
		name      string
		x         float64
		lo, hi    int
		exact, ok bool
	}{
		{"first node", 0.1, 0, 0, true, true},
		{"interior node", 1.0, 2, 2, true, true},
		{"last node", 2.0, 3, 3, true, true},
		{"between", 0.7, 1, 2, false, true},
		{"below", 0.05, 0, 0, false, false},
		{"above", 2.5, 0, 0, false, false},
		{"nan", math.NaN(), 0, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, exact, ok := Bracket(xs, tt.x)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.exact, exact)
			if ok {
				assert.Equal(t, tt.lo, lo)
				assert.Equal(t, tt.hi, hi)
			}
		})
	}

	_, _, _, ok := Bracket(nil, 1)
	assert.False(t, ok)
}

func TestLogFraction(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, LogFraction(math.Sqrt(0.1), 0.1, 1.0), 1e-12)
	assert.Equal(t, 0.0, LogFraction(0.1, 0.1, 1.0))
	assert.Equal(t, 1.0, LogFraction(1.0, 0.1, 1.0))
}

func TestLerp_ExactAtEnds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.1, Lerp(0.1, 0.7, 0))
	assert.Equal(t, 0.7, Lerp(0.1, 0.7, 1))
	assert.InDelta(t, 0.4, Lerp(0.1, 0.7, 0.5), 1e-12)
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, Clamp(0, 1, 2))
	assert.Equal(t, 2.0, Clamp(3, 1, 2))
	assert.Equal(t, 1.5, Clamp(1.5, 1, 2))
}

func TestAllFinite(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -1, AllFinite([]float64{1, 2, 3}))
	assert.Equal(t, 1, AllFinite([]float64{1, math.Inf(-1), math.NaN()}))
	assert.Equal(t, 0, AllFinite([]float64{math.NaN()}))
}

func TestStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	assert.True(t, StrictlyIncreasing([]float64{1}))
	assert.True(t, StrictlyIncreasing([]float64{1, 2, 3}))
	assert.False(t, StrictlyIncreasing([]float64{1, 1, 3}))
	assert.False(t, StrictlyIncreasing([]float64{2, 1}))
	assert.False(t, StrictlyIncreasing([]float64{1, math.NaN()}))
}
