package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/stddev"
	"github.com/banshee-data/groundmotion/internal/surface"
)

// A grid dump is a line-oriented text file. '#' starts a comment. The
// header sets table metadata and the shared axes:
//
//	name             GSCCanada2015WCrustRjbMed
//	tectonic_region  Active Shallow Crust
//	distance_metric  rjb
//	damping          5
//	units            linear
//	magnitudes       5.0 6.0 7.0
//	distances        1 10 100
//
// followed by one block per intensity measure:
//
//	imt SA(0.2)
//	mean
//	<one row per magnitude, one value per distance>
//	sigma total
//	<rows>
//
// With units linear (the default) mean values are amplitudes and are
// stored as their natural log; with units ln they are stored as given.
// Sigma values are always natural-log standard deviations.

type dumpParser struct {
	meta       surface.Metadata
	logUnits   bool
	magnitudes []float64
	distances  []float64

	entries []surface.Entry
	cur     *surface.Entry
	target  string // "mean" or a component name
	rows    [][]float64
	line    int
}

// parseDump reads a grid dump into a table named name unless the dump
// sets its own.
func parseDump(r io.Reader, name string) (*surface.Table, error) {
	p := &dumpParser{meta: surface.Metadata{Name: name, Damping: imt.DefaultDamping}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		p.line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := p.handle(fields); err != nil {
			return nil, fmt.Errorf("line %d: %w", p.line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := p.finishBlock(); err != nil {
		return nil, fmt.Errorf("line %d: %w", p.line, err)
	}
	if len(p.entries) == 0 {
		return nil, fmt.Errorf("no imt blocks")
	}
	return surface.NewTable(p.meta, p.entries...)
}

func (p *dumpParser) handle(fields []string) error {
	key, rest := fields[0], fields[1:]
	switch key {
	case "name":
		p.meta.Name = strings.Join(rest, " ")
	case "tectonic_region":
		p.meta.Region = strings.Join(rest, " ")
	case "distance_metric":
		if len(rest) != 1 {
			return fmt.Errorf("distance_metric takes one value")
		}
		p.meta.DistanceMetric = rest[0]
	case "damping":
		v, err := parseFloats(rest)
		if err != nil || len(v) != 1 || !(v[0] > 0) {
			return fmt.Errorf("damping must be one positive number")
		}
		p.meta.Damping = v[0]
	case "units":
		if len(rest) != 1 || (rest[0] != "linear" && rest[0] != "ln") {
			return fmt.Errorf("units must be linear or ln")
		}
		p.logUnits = rest[0] == "ln"
	case "magnitudes", "distances":
		if p.cur != nil || len(p.entries) > 0 {
			return fmt.Errorf("%s must come before the first imt block", key)
		}
		v, err := parseFloats(rest)
		if err != nil {
			return err
		}
		if key == "magnitudes" {
			p.magnitudes = v
		} else {
			p.distances = v
		}
	case "imt":
		if err := p.finishBlock(); err != nil {
			return err
		}
		m, err := imt.Parse(strings.Join(rest, ""))
		if err != nil {
			return err
		}
		if m.IsSpectral() {
			m.Damping = p.meta.Damping
		}
		p.cur = &surface.Entry{IMT: m, Grid: &surface.Grid{
			Magnitudes: p.magnitudes,
			Distances:  p.distances,
			Sigma:      map[stddev.Component]*mat.Dense{},
		}}
	case "mean", "sigma":
		if p.cur == nil {
			return fmt.Errorf("%s outside an imt block", key)
		}
		if err := p.finishMatrix(); err != nil {
			return err
		}
		p.target = "mean"
		if key == "sigma" {
			if len(rest) != 1 {
				return fmt.Errorf("sigma takes one component name")
			}
			c, err := stddev.Parse(rest[0])
			if err != nil {
				return err
			}
			p.target = c.String()
		}
	default:
		if p.target == "" {
			return fmt.Errorf("unexpected %q", key)
		}
		row, err := parseFloats(fields)
		if err != nil {
			return err
		}
		if len(row) != len(p.distances) {
			return fmt.Errorf("row has %d values, want %d distances", len(row), len(p.distances))
		}
		p.rows = append(p.rows, row)
	}
	return nil
}

func (p *dumpParser) finishMatrix() error {
	if p.target == "" {
		return nil
	}
	if len(p.rows) != len(p.magnitudes) {
		return fmt.Errorf("%s %s has %d rows, want %d magnitudes", p.cur.IMT, p.target, len(p.rows), len(p.magnitudes))
	}
	m := mat.NewDense(len(p.magnitudes), len(p.distances), nil)
	for i, row := range p.rows {
		if p.target == "mean" && !p.logUnits {
			for j, v := range row {
				if v <= 0 {
					return fmt.Errorf("%s mean row %d: amplitude %g must be positive in linear units", p.cur.IMT, i+1, v)
				}
				row[j] = math.Log(v)
			}
		}
		m.SetRow(i, row)
	}
	if p.target == "mean" {
		p.cur.Grid.Mean = m
	} else {
		c, _ := stddev.Parse(p.target)
		p.cur.Grid.Sigma[c] = m
	}
	p.target, p.rows = "", nil
	return nil
}

func (p *dumpParser) finishBlock() error {
	if p.cur == nil {
		return nil
	}
	if err := p.finishMatrix(); err != nil {
		return err
	}
	if p.cur.Grid.Mean == nil {
		return fmt.Errorf("%s has no mean surface", p.cur.IMT)
	}
	p.entries = append(p.entries, *p.cur)
	p.cur = nil
	return nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// writeDump prints t in the dump format with mean values in ln units.
func writeDump(w io.Writer, t *surface.Table) error {
	bw := bufio.NewWriter(w)
	meta := t.Metadata()
	fmt.Fprintf(bw, "# table_id %s\n", meta.ID)
	fmt.Fprintf(bw, "name %s\n", meta.Name)
	fmt.Fprintf(bw, "tectonic_region %s\n", meta.Region)
	if meta.DistanceMetric != "" {
		fmt.Fprintf(bw, "distance_metric %s\n", meta.DistanceMetric)
	}
	fmt.Fprintf(bw, "damping %s\n", formatFloat(meta.Damping))
	fmt.Fprintln(bw, "units ln")

	var mags, dists []float64
	for k, m := range t.IMTs() {
		g, _ := t.Grid(m)
		if k == 0 {
			mags, dists = g.Magnitudes, g.Distances
			fmt.Fprintf(bw, "magnitudes %s\n", joinFloats(mags))
			fmt.Fprintf(bw, "distances %s\n", joinFloats(dists))
		} else if !slices.Equal(mags, g.Magnitudes) || !slices.Equal(dists, g.Distances) {
			return fmt.Errorf("%s: axes differ from the first grid; the dump format needs shared axes", m)
		}
		name := m.String()
		if m.IsSpectral() {
			name = imt.NewSA(m.Period).String()
		}
		fmt.Fprintf(bw, "\nimt %s\nmean\n", name)
		writeMatrix(bw, g.Mean)
		for _, c := range g.Components() {
			fmt.Fprintf(bw, "sigma %s\n", c)
			writeMatrix(bw, g.Sigma[c])
		}
	}
	return bw.Flush()
}

func writeMatrix(w io.Writer, m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		fmt.Fprintln(w, joinFloats(m.RawRowView(i)))
	}
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
