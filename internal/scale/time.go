package scale

import "time"

// Time maps dates linearly over elapsed time.
type Time struct {
	start, end time.Time
	r0, r1     float64
}

// NewTime builds a time scale.
func NewTime(start, end time.Time, r0, r1 float64) *Time {
	return &Time{start: start, end: end, r0: r0, r1: r1}
}

// Kind implements Scale.
func (s *Time) Kind() Kind { return KindTime }

// Map converts a date to the range.
func (s *Time) Map(t time.Time) float64 {
	total := s.end.Sub(s.start)
	if total == 0 || t.Equal(s.start) {
		return s.r0
	}
	if t.Equal(s.end) {
		return s.r1
	}
	frac := float64(t.Sub(s.start)) / float64(total)
	return s.r0 + frac*(s.r1-s.r0)
}

// Domain returns the first and last date.
func (s *Time) Domain() (time.Time, time.Time) { return s.start, s.end }

// Ticks returns at most max tick dates, rounded on unix seconds.
func (s *Time) Ticks(max int) []time.Time {
	secs := niceTicks(float64(s.start.Unix()), float64(s.end.Unix()), max)
	out := make([]time.Time, 0, len(secs))
	for _, v := range secs {
		out = append(out, time.Unix(int64(v), 0).In(s.start.Location()))
	}
	return out
}
