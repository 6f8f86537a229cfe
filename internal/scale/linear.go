package scale

import (
	"math"

	mscale "github.com/aclements/go-moremath/scale"
)

// Linear maps a continuous domain onto a pixel range. In sqrt mode the
// square root is applied before interpolation so areas stay proportional.
type Linear struct {
	d0, d1 float64
	r0, r1 float64
	sqrt   bool
}

// NewLinear builds a linear scale.
func NewLinear(min, max, r0, r1 float64) *Linear {
	return &Linear{d0: min, d1: max, r0: r0, r1: r1}
}

// NewSqrt builds a square-root scale.
func NewSqrt(min, max, r0, r1 float64) *Linear {
	return &Linear{d0: min, d1: max, r0: r0, r1: r1, sqrt: true}
}

// Kind implements Scale.
func (s *Linear) Kind() Kind {
	if s.sqrt {
		return KindSqrt
	}
	return KindLinear
}

// Map converts a domain value to the range. The domain end points map
// exactly onto the range end points.
func (s *Linear) Map(v float64) float64 {
	if s.d0 == s.d1 || v == s.d0 {
		return s.r0
	}
	if v == s.d1 {
		return s.r1
	}
	t0, t1, tv := s.transform(s.d0), s.transform(s.d1), s.transform(v)
	return s.r0 + (tv-t0)/(t1-t0)*(s.r1-s.r0)
}

// Domain returns the domain end points.
func (s *Linear) Domain() (float64, float64) { return s.d0, s.d1 }

// Range returns the range end points.
func (s *Linear) Range() (float64, float64) { return s.r0, s.r1 }

// Ticks returns at most max round tick values inside the domain.
func (s *Linear) Ticks(max int) []float64 {
	return niceTicks(s.d0, s.d1, max)
}

func (s *Linear) transform(v float64) float64 {
	if !s.sqrt {
		return v
	}
	if v < 0 {
		return -math.Sqrt(-v)
	}
	return math.Sqrt(v)
}

func niceTicks(min, max float64, n int) []float64 {
	if n < 1 || math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil
	}
	if min == max {
		return []float64{min}
	}
	if min > max {
		min, max = max, min
	}
	ls := mscale.Linear{Min: min, Max: max}
	major, _ := ls.Ticks(mscale.TickOptions{Max: n})
	return major
}
