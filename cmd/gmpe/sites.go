package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/groundmotion/internal/gsim"
)

// siteTable is a sites CSV: one row per site, columns named in the header.
type siteTable struct {
	IDs       []string
	Sites     gsim.Sites
	Distances gsim.Distances
}

func (s *siteTable) Len() int { return len(s.IDs) }

// readSites parses a CSV with a header row. Recognised columns are site
// (an optional label), vs30, forearc, rrup, rjb, rhypo and rx. Columns the
// model does not use are carried but ignored.
func readSites(r io.Reader) (*siteTable, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("sites: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("sites: read header: %w", err)
	}

	floatCols := map[string]*[]float64{}
	var forearc *[]bool
	idCol := -1
	t := &siteTable{}
	cols := make([]string, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		cols[i] = name
		switch name {
		case "site", "id":
			idCol = i
			continue
		case gsim.ParamVs30:
			t.Sites.Vs30 = []float64{}
			floatCols[name] = &t.Sites.Vs30
		case gsim.ParamForearc:
			t.Sites.Forearc = []bool{}
			forearc = &t.Sites.Forearc
		case gsim.DistRrup:
			t.Distances.Rrup = []float64{}
			floatCols[name] = &t.Distances.Rrup
		case gsim.DistRjb:
			t.Distances.Rjb = []float64{}
			floatCols[name] = &t.Distances.Rjb
		case gsim.DistRhypo:
			t.Distances.Rhypo = []float64{}
			floatCols[name] = &t.Distances.Rhypo
		case gsim.DistRx:
			t.Distances.Rx = []float64{}
			floatCols[name] = &t.Distances.Rx
		default:
			return nil, fmt.Errorf("sites: unknown column %q", h)
		}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sites: %w", err)
		}
		id := strconv.Itoa(t.Len() + 1)
		for i, field := range rec {
			name := cols[i]
			field = strings.TrimSpace(field)
			switch {
			case i == idCol:
				if field != "" {
					id = field
				}
			case name == gsim.ParamForearc:
				b, err := strconv.ParseBool(field)
				if err != nil {
					return nil, fmt.Errorf("sites: line %d: forearc %q: %w", line, field, err)
				}
				*forearc = append(*forearc, b)
			default:
				v, err := strconv.ParseFloat(field, 64)
				if err != nil {
					return nil, fmt.Errorf("sites: line %d: %s %q: %w", line, name, field, err)
				}
				*floatCols[name] = append(*floatCols[name], v)
			}
		}
		t.IDs = append(t.IDs, id)
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("sites: no rows")
	}
	return t, nil
}
