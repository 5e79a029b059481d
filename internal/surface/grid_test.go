package surface

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/groundmotion/internal/stddev"
)

func twoByTwo() *Grid {
	return &Grid{
		Magnitudes: []float64{6, 7},
		Distances:  []float64{10, 100},
		Mean:       mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
		Sigma: map[stddev.Component]*mat.Dense{
			stddev.Total: mat.NewDense(2, 2, []float64{0.6, 0.6, 0.7, 0.7}),
		},
	}
}

func TestGrid_BilinearMidMagnitude(t *testing.T) {
	t.Parallel()
	g := twoByTwo()
	require.NoError(t, g.Validate())

	v, err := g.evaluate(6.5, []float64{10})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v.mean[0], 1e-12)
	assert.InDelta(t, 0.65, v.sigma[stddev.Total][0], 1e-12)
}

func TestGrid_ExactNodes(t *testing.T) {
	t.Parallel()
	g := twoByTwo()

	for i, m := range g.Magnitudes {
		v, err := g.evaluate(m, g.Distances)
		require.NoError(t, err)
		for j := range g.Distances {
			assert.Equal(t, g.Mean.At(i, j), v.mean[j], "node (%d,%d)", i, j)
		}
	}
}

func TestGrid_ClampsOutsideAxes(t *testing.T) {
	t.Parallel()
	g := twoByTwo()

	tests := []struct {
		name string
		mag  float64
		dist float64
		want float64
	}{
		{"below min distance", 6, 1, 1},
		{"above max distance", 6, 500, 2},
		{"below min magnitude", 4, 10, 1},
		{"above max magnitude", 9, 100, 4},
		{"both beyond", 9, 1000, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := g.evaluate(tt.mag, []float64{tt.dist})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.mean[0])
		})
	}
}

func TestGrid_LinearInDistance(t *testing.T) {
	t.Parallel()
	g := twoByTwo()

	v, err := g.evaluate(7, []float64{55, 10, 100})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, v.mean[0], 1e-12)
	assert.Equal(t, 3.0, v.mean[1])
	assert.Equal(t, 4.0, v.mean[2])
}

func TestGrid_SingleBinAxes(t *testing.T) {
	t.Parallel()
	g := &Grid{
		Magnitudes: []float64{6},
		Distances:  []float64{50},
		Mean:       mat.NewDense(1, 1, []float64{-2}),
	}
	require.NoError(t, g.Validate())

	v, err := g.evaluate(7.5, []float64{1, 50, 300})
	require.NoError(t, err)
	assert.Equal(t, []float64{-2, -2, -2}, v.mean)
}

func TestGrid_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		grid *Grid
	}{
		{"nil", nil},
		{"empty magnitudes", &Grid{Distances: []float64{1}, Mean: mat.NewDense(1, 1, nil)}},
		{"decreasing distances", &Grid{
			Magnitudes: []float64{6},
			Distances:  []float64{10, 5},
			Mean:       mat.NewDense(1, 2, nil),
		}},
		{"repeated magnitudes", &Grid{
			Magnitudes: []float64{6, 6},
			Distances:  []float64{10},
			Mean:       mat.NewDense(2, 1, nil),
		}},
		{"non-finite axis", &Grid{
			Magnitudes: []float64{6, math.Inf(1)},
			Distances:  []float64{10},
			Mean:       mat.NewDense(2, 1, nil),
		}},
		{"mean dims", &Grid{
			Magnitudes: []float64{6, 7},
			Distances:  []float64{10, 100},
			Mean:       mat.NewDense(2, 3, nil),
		}},
		{"missing mean", &Grid{
			Magnitudes: []float64{6},
			Distances:  []float64{10},
		}},
		{"NaN mean cell", &Grid{
			Magnitudes: []float64{6, 7},
			Distances:  []float64{10, 100},
			Mean:       mat.NewDense(2, 2, []float64{1, 2, math.NaN(), 4}),
		}},
		{"infinite sigma cell", &Grid{
			Magnitudes: []float64{6},
			Distances:  []float64{10},
			Mean:       mat.NewDense(1, 1, []float64{1}),
			Sigma: map[stddev.Component]*mat.Dense{
				stddev.Total: mat.NewDense(1, 1, []float64{math.Inf(1)}),
			},
		}},
		{"negative sigma", &Grid{
			Magnitudes: []float64{6},
			Distances:  []float64{10},
			Mean:       mat.NewDense(1, 1, []float64{1}),
			Sigma: map[stddev.Component]*mat.Dense{
				stddev.Total: mat.NewDense(1, 1, []float64{-0.1}),
			},
		}},
		{"sigma dims", &Grid{
			Magnitudes: []float64{6, 7},
			Distances:  []float64{10, 100},
			Mean:       mat.NewDense(2, 2, nil),
			Sigma: map[stddev.Component]*mat.Dense{
				stddev.InterEvent: mat.NewDense(1, 2, nil),
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedGrid), "got %v", err)
		})
	}
}

func TestGrid_ComponentsSorted(t *testing.T) {
	t.Parallel()
	g := &Grid{Sigma: map[stddev.Component]*mat.Dense{
		stddev.IntraEvent: nil,
		stddev.Total:      nil,
		stddev.InterEvent: nil,
	}}
	assert.Equal(t, []stddev.Component{stddev.Total, stddev.InterEvent, stddev.IntraEvent}, g.Components())
}

func TestCheckInputs(t *testing.T) {
	t.Parallel()
	assert.NoError(t, checkInputs(6, []float64{1, 2}))
	assert.Error(t, checkInputs(math.NaN(), nil))
	assert.Error(t, checkInputs(6, []float64{1, math.NaN()}))
}
