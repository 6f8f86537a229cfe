// Package scale builds position and colour scales from the loaded dataset.
//
// A scale is a value built for one render pass. Nothing here caches a scale;
// callers derive the domain from the current rows every time they render.
package scale

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind names a scale type.
type Kind string

// Scale kinds.
const (
	KindBand    Kind = "band"
	KindLinear  Kind = "linear"
	KindOrdinal Kind = "ordinal"
	KindSqrt    Kind = "sqrt"
	KindTime    Kind = "time"
)

// Errors returned by the constructors.
var (
	ErrUnknownKind    = errors.New("unknown scale kind")
	ErrInvalidPadding = errors.New("padding must be in [0,1)")
	ErrEmptyPalette   = errors.New("palette is empty")
)

// Scale is implemented by every scale type.
type Scale interface {
	Kind() Kind
}

// Domain is the input space. Only the members relevant to the kind are read.
type Domain struct {
	Labels []string
	Min    float64
	Max    float64
	Start  time.Time
	End    time.Time
}

// Range is the output space: pixels or colours.
type Range struct {
	Start  float64
	End    float64
	Colors []string
}

// Options tunes a scale.
type Options struct {
	Padding  float64
	Fallback string
}

// ParseKind validates a scale kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindBand, KindLinear, KindOrdinal, KindSqrt, KindTime:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Build constructs a scale of the given kind.
func Build(kind Kind, d Domain, r Range, opts Options) (Scale, error) {
	switch kind {
	case KindBand:
		b, err := NewBand(d.Labels, r.Start, r.End, opts.Padding)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindLinear:
		return NewLinear(d.Min, d.Max, r.Start, r.End), nil
	case KindSqrt:
		return NewSqrt(d.Min, d.Max, r.Start, r.End), nil
	case KindOrdinal:
		o, err := NewOrdinal(d.Labels, r.Colors, opts.Fallback)
		if err != nil {
			return nil, err
		}
		return o, nil
	case KindTime:
		return NewTime(d.Start, d.End, r.Start, r.End), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
