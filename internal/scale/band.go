package scale

import "fmt"

// Band maps categories to evenly spaced, padded intervals.
//
// The range is split into n steps of equal length. Each band takes
// (1-padding) of its step and the remaining padding is split evenly on both
// sides, so n*bandwidth + n*step*padding equals the range length.
type Band struct {
	labels    []string
	index     map[string]int
	start     float64
	step      float64
	bandwidth float64
	padding   float64
}

// NewBand builds a band scale. Duplicate labels keep their first position.
func NewBand(labels []string, start, end, padding float64) (*Band, error) {
	if padding < 0 || padding >= 1 || padding != padding {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPadding, padding)
	}
	b := &Band{
		index:   make(map[string]int, len(labels)),
		start:   start,
		padding: padding,
	}
	for _, l := range labels {
		if _, ok := b.index[l]; ok {
			continue
		}
		b.index[l] = len(b.labels)
		b.labels = append(b.labels, l)
	}
	if n := len(b.labels); n > 0 {
		b.step = (end - start) / float64(n)
		b.bandwidth = b.step * (1 - padding)
	}
	return b, nil
}

// Kind implements Scale.
func (b *Band) Kind() Kind { return KindBand }

// Position returns the start of the band for label.
func (b *Band) Position(label string) (float64, bool) {
	i, ok := b.index[label]
	if !ok {
		return 0, false
	}
	return b.start + float64(i)*b.step + b.step*b.padding/2, true
}

// Center returns the middle of the band for label.
func (b *Band) Center(label string) (float64, bool) {
	p, ok := b.Position(label)
	if !ok {
		return 0, false
	}
	return p + b.bandwidth/2, true
}

// Bandwidth returns the width of one band.
func (b *Band) Bandwidth() float64 { return b.bandwidth }

// Step returns the distance between band starts.
func (b *Band) Step() float64 { return b.step }

// Domain returns the distinct labels in order.
func (b *Band) Domain() []string { return append([]string(nil), b.labels...) }

// Len returns the number of bands.
func (b *Band) Len() int { return len(b.labels) }
