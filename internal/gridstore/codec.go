package gridstore

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/groundmotion/internal/stddev"
	"github.com/banshee-data/groundmotion/internal/surface"
)

// gridRecord is the gob form of a surface.Grid. Surfaces are stored
// row-major; sigma surfaces are keyed by component name.
type gridRecord struct {
	Magnitudes []float64
	Distances  []float64
	Mean       []float64
	Sigma      map[string][]float64
}

func flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}

// encodeGrid compresses g using gob encoding and gzip compression.
func encodeGrid(g *surface.Grid) ([]byte, error) {
	rec := gridRecord{
		Magnitudes: g.Magnitudes,
		Distances:  g.Distances,
		Mean:       flatten(g.Mean),
		Sigma:      make(map[string][]float64, len(g.Sigma)),
	}
	for c, s := range g.Sigma {
		rec.Sigma[c.String()] = flatten(s)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(rec); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGrid is the inverse of encodeGrid. Structural problems are reported
// as ErrCorrupt; axis ordering is left to surface.Grid.Validate.
func decodeGrid(blob []byte) (*surface.Grid, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty grid blob", ErrCorrupt)
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrCorrupt, err)
	}
	defer gz.Close()

	var rec gridRecord
	if err := gob.NewDecoder(gz).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: decode grid: %v", ErrCorrupt, err)
	}

	rows, cols := len(rec.Magnitudes), len(rec.Distances)
	unflatten := func(name string, data []float64) (*mat.Dense, error) {
		if rows == 0 || cols == 0 || len(data) != rows*cols {
			return nil, fmt.Errorf("%w: %s surface has %d values for %dx%d axes", ErrCorrupt, name, len(data), rows, cols)
		}
		return mat.NewDense(rows, cols, data), nil
	}

	g := &surface.Grid{
		Magnitudes: rec.Magnitudes,
		Distances:  rec.Distances,
		Sigma:      make(map[stddev.Component]*mat.Dense, len(rec.Sigma)),
	}
	if g.Mean, err = unflatten("mean", rec.Mean); err != nil {
		return nil, err
	}
	for name, data := range rec.Sigma {
		c, err := stddev.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if g.Sigma[c], err = unflatten(name, data); err != nil {
			return nil, err
		}
	}
	return g, nil
}
