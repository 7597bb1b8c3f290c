package domain

import "math"

// RadialScale maps a numeric domain onto a radius range so that the squared
// output, and therefore circle area, is linear in the input.
type RadialScale struct {
	domainMin, domainMax float64
	rangeMin, rangeMax   float64
}

// NewRadialScale creates a clamped radial scale from [d0, d1] to [r0, r1].
func NewRadialScale(d0, d1, r0, r1 float64) RadialScale {
	return RadialScale{domainMin: d0, domainMax: d1, rangeMin: r0, rangeMax: r1}
}

// Scale returns the unrounded radius for v. NaN is treated as 0.
func (s RadialScale) Scale(v float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	span := s.domainMax - s.domainMin
	if span <= 0 {
		return s.rangeMin
	}

	t := (v - s.domainMin) / span
	switch {
	case t <= 0:
		return s.rangeMin
	case t >= 1:
		return s.rangeMax
	}

	r0sq := s.rangeMin * s.rangeMin
	r1sq := s.rangeMax * s.rangeMax
	return math.Sqrt(r0sq + t*(r1sq-r0sq))
}

// ScaleRound returns Scale(v) rounded to the nearest integer.
func (s RadialScale) ScaleRound(v float64) int {
	return int(math.Round(s.Scale(v)))
}
