package coeffs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/numeric"
)

// Parse reads a whitespace-delimited coefficient table.
//
// The first non-blank line names the columns; the first column holds the
// period in seconds or a PGA/PGV token. Lines starting with '#' are
// ignored. Any defect fails the whole parse with ErrMalformedTable and no
// table is returned.
func Parse(text string, damping float64) (*Table, error) {
	if damping <= 0 {
		return nil, fmt.Errorf("%w: damping must be positive, got %g", ErrMalformedTable, damping)
	}

	t := &Table{damping: damping, fixed: make(map[imt.Kind]*entry)}
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if t.imtColumn == "" {
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: line %d: header needs a period column and at least one coefficient", ErrMalformedTable, lineNo)
			}
			for _, name := range fields[1:] {
				if _, dup := seen[name]; dup {
					return nil, fmt.Errorf("%w: line %d: duplicate column %q", ErrMalformedTable, lineNo, name)
				}
				seen[name] = struct{}{}
			}
			t.imtColumn = fields[0]
			t.columns = fields[1:]
			continue
		}

		if len(fields) != len(t.columns)+1 {
			return nil, fmt.Errorf("%w: line %d: %d fields, header has %d",
				ErrMalformedTable, lineNo, len(fields), len(t.columns)+1)
		}

		im, err := parseRowIMT(fields[0], damping)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTable, lineNo, err)
		}

		row := make(Row, len(t.columns))
		for i, cell := range fields[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || !numeric.Finite(v) {
				return nil, fmt.Errorf("%w: line %d: column %q: %q is not a finite number",
					ErrMalformedTable, lineNo, t.columns[i], cell)
			}
			row[t.columns[i]] = v
		}

		e := &entry{im: im, label: fields[0], row: row, cells: fields[1:]}
		if err := t.add(e); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}

	if t.imtColumn == "" {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedTable)
	}
	if len(t.order) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedTable)
	}
	return t, nil
}

func parseRowIMT(tok string, damping float64) (imt.IMT, error) {
	switch strings.ToUpper(tok) {
	case "PGA":
		return imt.NewPGA(), nil
	case "PGV":
		return imt.NewPGV(), nil
	}
	p, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return imt.IMT{}, fmt.Errorf("period %q is neither a number nor PGA/PGV", tok)
	}
	if !(p > 0) || !numeric.Finite(p) {
		return imt.IMT{}, fmt.Errorf("period %q must be positive", tok)
	}
	return imt.IMT{Kind: imt.SA, Period: p, Damping: damping}, nil
}

// MustParse is Parse for tables embedded in the binary; it panics on error.
func MustParse(text string, damping float64) *Table {
	t, err := Parse(text, damping)
	if err != nil {
		panic(err)
	}
	return t
}

// Format writes the table in the text form Parse accepts. Column order and
// the original cell text are preserved, so Format(Parse(s)) reproduces every
// value at the precision it was authored with.
func (t *Table) Format(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", t.imtColumn, strings.Join(t.columns, "\t"))
	for _, e := range t.order {
		fmt.Fprintf(tw, "%s\t%s\n", e.label, strings.Join(e.cells, "\t"))
	}
	return tw.Flush()
}

// String returns the formatted table.
func (t *Table) String() string {
	var b strings.Builder
	_ = t.Format(&b)
	return b.String()
}
