package gridstore

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/stddev"
	"github.com/banshee-data/groundmotion/internal/surface"
	"github.com/banshee-data/groundmotion/internal/testutil"
)

func sampleGrid(offset float64) *surface.Grid {
	return &surface.Grid{
		Magnitudes: []float64{5, 6, 7},
		Distances:  []float64{10, 30, 100, 300},
		Mean: mat.NewDense(3, 4, []float64{
			-1 + offset, -2 + offset, -3 + offset, -4 + offset,
			-0.5 + offset, -1.5 + offset, -2.5 + offset, -3.5 + offset,
			0 + offset, -1 + offset, -2 + offset, -3 + offset,
		}),
		Sigma: map[stddev.Component]*mat.Dense{
			stddev.Total:      mat.NewDense(3, 4, []float64{0.7, 0.7, 0.7, 0.7, 0.68, 0.68, 0.68, 0.68, 0.65, 0.65, 0.65, 0.65}),
			stddev.InterEvent: mat.NewDense(3, 4, []float64{0.4, 0.4, 0.4, 0.4, 0.4, 0.4, 0.4, 0.4, 0.4, 0.4, 0.4, 0.4}),
		},
	}
}

func sampleTable(t *testing.T) *surface.Table {
	t.Helper()
	tbl, err := surface.NewTable(surface.Metadata{
		Name:           "WcrustFRjb_med",
		Region:         "Active Shallow Crust",
		DistanceMetric: "rjb",
	},
		surface.Entry{IMT: imt.NewPGA(), Grid: sampleGrid(0)},
		surface.Entry{IMT: imt.NewSA(0.2), Grid: sampleGrid(0.3)},
		surface.Entry{IMT: imt.NewSA(1.0), Grid: sampleGrid(-0.8)},
	)
	require.NoError(t, err)
	return tbl
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "table.db")
	orig := sampleTable(t)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	id, err := Write(path, orig, WithClock(clock))
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "table id should be a uuid")

	got, err := Load(path)
	require.NoError(t, err)

	wantMeta := orig.Metadata()
	wantMeta.ID = id
	if diff := cmp.Diff(wantMeta, got.Metadata()); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, orig.IMTs(), got.IMTs())
	assert.Equal(t, orig.Components(), got.Components())

	for _, m := range orig.IMTs() {
		wg, _ := orig.Grid(m)
		gg, ok := got.Grid(m)
		require.True(t, ok, "%s missing after load", m)
		assert.Equal(t, wg.Magnitudes, gg.Magnitudes)
		assert.Equal(t, wg.Distances, gg.Distances)
		assert.True(t, mat.Equal(wg.Mean, gg.Mean), "%s mean differs", m)
		for c, s := range wg.Sigma {
			assert.True(t, mat.Equal(s, gg.Sigma[c]), "%s %s differs", m, c)
		}
	}

	// Lookups agree between the in-memory and reloaded tables.
	dists := []float64{5, 20, 150, 1000}
	for _, m := range []imt.IMT{imt.NewPGA(), imt.NewSA(0.5)} {
		want, err := orig.Lookup(m, 6.3, dists)
		require.NoError(t, err)
		have, err := got.Lookup(m, 6.3, dists)
		require.NoError(t, err)
		if diff := cmp.Diff(want, have); diff != "" {
			t.Errorf("%s lookup mismatch (-want +got):\n%s", m, diff)
		}
	}
}

func TestWrite_ReplacesExistingTable(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "table.db")

	first, err := Write(path, sampleTable(t))
	require.NoError(t, err)
	second, err := Write(path, sampleTable(t))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, second, got.Metadata().ID)
}

func TestWrite_KeepsExistingID(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "table.db")
	tbl, err := surface.NewTable(surface.Metadata{ID: "fixed-id", Name: "x", DistanceMetric: "rrup"},
		surface.Entry{IMT: imt.NewPGA(), Grid: sampleGrid(0)})
	require.NoError(t, err)

	id, err := Write(path, tbl)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "absent.db")

	_, err := Load(path)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "Load must not create the file")
}

func TestLoad_NotADatabase(t *testing.T) {
	t.Parallel()
	path := testutil.TempFile(t, "garbage.db", "this is not sqlite, just some text padding it out")

	_, err := Load(path)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestLoad_Directory(t *testing.T) {
	t.Parallel()
	_, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestLoad_EmptyResource(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "empty.db")
	s, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Load(path)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestLoad_CorruptBlob(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "table.db")
	_, err := Write(path, sampleTable(t))
	require.NoError(t, err)

	s, err := Create(path)
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE surface_grids SET grid_blob = ? WHERE imt = 'PGA'`, []byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Load(path)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestCodec_RejectsBadShapes(t *testing.T) {
	t.Parallel()

	_, err := decodeGrid(nil)
	assert.True(t, errors.Is(err, ErrCorrupt))

	g := sampleGrid(0)
	blob, err := encodeGrid(g)
	require.NoError(t, err)
	back, err := decodeGrid(blob)
	require.NoError(t, err)
	assert.True(t, mat.Equal(g.Mean, back.Mean))

	g.Magnitudes = append(g.Magnitudes, 8)
	blob, err = encodeGrid(g)
	require.NoError(t, err)
	_, err = decodeGrid(blob)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestCodec_PreservesNonFinite(t *testing.T) {
	t.Parallel()
	g := sampleGrid(0)
	g.Mean.Set(1, 1, math.Inf(-1))

	blob, err := encodeGrid(g)
	require.NoError(t, err)
	back, err := decodeGrid(blob)
	require.NoError(t, err)
	assert.True(t, math.IsInf(back.Mean.At(1, 1), -1))
}
