// Package imt models intensity measure types: peak ground acceleration,
// peak ground velocity and damped spectral acceleration at an oscillator
// period.
package imt

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the family of an intensity measure.
type Kind int

const (
	PGA Kind = iota
	PGV
	SA
)

// DefaultDamping is the damping ratio, in percent, assumed for SA when none
// is given.
const DefaultDamping = 5.0

func (k Kind) String() string {
	switch k {
	case PGA:
		return "PGA"
	case PGV:
		return "PGV"
	case SA:
		return "SA"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IMT is an intensity measure type. Period and Damping are only meaningful
// for SA; PGA and PGV carry zero values.
type IMT struct {
	Kind    Kind
	Period  float64
	Damping float64
}

// NewPGA returns the peak ground acceleration IMT.
func NewPGA() IMT { return IMT{Kind: PGA} }

// NewPGV returns the peak ground velocity IMT.
func NewPGV() IMT { return IMT{Kind: PGV} }

// NewSA returns 5%-damped spectral acceleration at period seconds.
func NewSA(period float64) IMT {
	return IMT{Kind: SA, Period: period, Damping: DefaultDamping}
}

// IsSpectral reports whether the IMT is defined at an oscillator period.
func (m IMT) IsSpectral() bool { return m.Kind == SA }

// String renders the IMT in the form accepted by Parse. SA damping is only
// written when it differs from DefaultDamping.
func (m IMT) String() string {
	if m.Kind != SA {
		return m.Kind.String()
	}
	p := strconv.FormatFloat(m.Period, 'g', -1, 64)
	if m.Damping != 0 && m.Damping != DefaultDamping {
		return fmt.Sprintf("SA(%s,%s)", p, strconv.FormatFloat(m.Damping, 'g', -1, 64))
	}
	return fmt.Sprintf("SA(%s)", p)
}

// Parse reads "PGA", "PGV", "SA(0.2)" or "SA(0.2,10)" (case-insensitive).
// A bare positive number is read as SA at that period.
func Parse(s string) (IMT, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	switch t {
	case "PGA":
		return NewPGA(), nil
	case "PGV":
		return NewPGV(), nil
	case "":
		return IMT{}, fmt.Errorf("empty intensity measure type")
	}

	if strings.HasPrefix(t, "SA(") && strings.HasSuffix(t, ")") {
		args := strings.Split(t[3:len(t)-1], ",")
		if len(args) > 2 {
			return IMT{}, fmt.Errorf("invalid IMT %q: too many arguments", s)
		}
		period, err := parsePeriod(args[0])
		if err != nil {
			return IMT{}, fmt.Errorf("invalid IMT %q: %w", s, err)
		}
		m := NewSA(period)
		if len(args) == 2 {
			d, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err != nil || d <= 0 {
				return IMT{}, fmt.Errorf("invalid IMT %q: bad damping %q", s, args[1])
			}
			m.Damping = d
		}
		return m, nil
	}

	period, err := parsePeriod(t)
	if err != nil {
		return IMT{}, fmt.Errorf("invalid IMT %q", s)
	}
	return NewSA(period), nil
}

func parsePeriod(s string) (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("bad period %q", s)
	}
	if p <= 0 {
		return 0, fmt.Errorf("period must be positive, got %g", p)
	}
	return p, nil
}

// MustParse is Parse for fixed strings in tables and tests.
func MustParse(s string) IMT {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Less orders IMTs: PGA, PGV, then SA by ascending period.
func Less(a, b IMT) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Period < b.Period
}

// ParseList splits a comma-separated IMT list. Parentheses are respected so
// "SA(0.2,10)" stays intact.
func ParseList(s string) ([]IMT, error) {
	var out []IMT
	depth, start := 0, 0
	flush := func(end int) error {
		field := strings.TrimSpace(s[start:end])
		if field == "" {
			return nil
		}
		m, err := Parse(field)
		if err != nil {
			return err
		}
		out = append(out, m)
		return nil
	}
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return out, nil
}
