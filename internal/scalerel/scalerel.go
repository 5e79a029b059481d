// Package scalerel holds magnitude-area scaling relations used to size
// ruptures from magnitude and to estimate magnitude from rupture area.
package scalerel

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownRelation is returned for unregistered relation names.
var ErrUnknownRelation = errors.New("unknown scaling relation")

// AreaRelation gives rupture area (km^2) from magnitude. Standard
// deviations are in log10 units.
type AreaRelation interface {
	MedianArea(mag, rake float64) float64
	StdDevArea(rake float64) float64
}

// MagnitudeRelation gives magnitude from rupture area (km^2).
type MagnitudeRelation interface {
	MedianMagnitude(area, rake float64) float64
	StdDevMagnitude(rake float64) float64
}

var registry = map[string]interface{}{}

func register(name string, rel interface{}) {
	if _, dup := registry[name]; dup {
		panic("scalerel: duplicate relation " + name)
	}
	registry[name] = rel
}

func init() {
	for _, aspect := range BonillaAspects {
		b := Bonilla1984{Aspect: aspect}
		register(b.Name(), b)
	}
}

func names(keep func(interface{}) bool) []string {
	var out []string
	for name, rel := range registry {
		if keep(rel) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Available lists every registered relation.
func Available() []string {
	return names(func(interface{}) bool { return true })
}

// AvailableArea lists relations that implement AreaRelation.
func AvailableArea() []string {
	return names(func(rel interface{}) bool {
		_, ok := rel.(AreaRelation)
		return ok
	})
}

// AvailableMagnitude lists relations that implement MagnitudeRelation.
func AvailableMagnitude() []string {
	return names(func(rel interface{}) bool {
		_, ok := rel.(MagnitudeRelation)
		return ok
	})
}

// Area returns the named area relation.
func Area(name string) (AreaRelation, error) {
	if r, ok := registry[name].(AreaRelation); ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %q (area)", ErrUnknownRelation, name)
}

// Magnitude returns the named magnitude relation.
func Magnitude(name string) (MagnitudeRelation, error) {
	if r, ok := registry[name].(MagnitudeRelation); ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %q (magnitude)", ErrUnknownRelation, name)
}
