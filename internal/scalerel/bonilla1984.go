package scalerel

import (
	"fmt"
	"math"
	"strings"
)

// BonillaAspects are the length/width ratios registered as named
// relations.
var BonillaAspects = []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 5, 6, 7, 8}

// Bonilla1984 is the Bonilla, Mark & Lienkaemper (1984) ordinary least
// squares regression of surface rupture length on magnitude ("all" fault
// types), converted to area with a fixed aspect ratio:
// area = length^2 / aspect.
type Bonilla1984 struct {
	Aspect float64
}

// Name is the registry name, e.g. BonillaEtAl1984Aspect2p5.
func (b Bonilla1984) Name() string {
	s := strings.Replace(fmt.Sprintf("%.1f", b.Aspect), ".", "p", 1)
	return "BonillaEtAl1984Aspect" + s
}

// MedianArea implements AreaRelation.
func (b Bonilla1984) MedianArea(mag, _ float64) float64 {
	length := math.Pow(10, -2.77+0.629*mag)
	return length * length / b.Aspect
}

// StdDevArea implements AreaRelation. Squaring length doubles its log10
// sigma; dividing by the aspect ratio leaves it unchanged.
func (b Bonilla1984) StdDevArea(_ float64) float64 {
	return 2 * 0.286
}

// MedianMagnitude implements MagnitudeRelation.
func (b Bonilla1984) MedianMagnitude(area, _ float64) float64 {
	return 6.04 + 0.708*math.Log10(math.Sqrt(area*b.Aspect))
}

// StdDevMagnitude implements MagnitudeRelation.
func (b Bonilla1984) StdDevMagnitude(_ float64) float64 {
	return 0.306
}
