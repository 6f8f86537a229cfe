// Package layout computes chart geometry from a container size.
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/verte-zerg/chartpipe/internal/model"
)

// Errors returned by Compute and ValidateMargins.
var (
	ErrDetached       = errors.New("container has no width")
	ErrDegenerate     = errors.New("margins leave no drawing area")
	ErrInvalidAspect  = errors.New("aspect ratio must be > 0")
	ErrInvalidMargins = errors.New("invalid margins")
)

// Layout is the pixel geometry of one render pass.
type Layout struct {
	Width       float64
	Height      float64
	InnerWidth  float64
	InnerHeight float64
	Margins     model.Margins
}

// Inner returns the drawing area in outer coordinates.
func (l Layout) Inner() model.Rect {
	return model.Rect{X: l.Margins.Left, Y: l.Margins.Top, Width: l.InnerWidth, Height: l.InnerHeight}
}

// ToInner converts an outer point into drawing-area coordinates.
func (l Layout) ToInner(p model.Point) model.Point {
	return model.Point{X: p.X - l.Margins.Left, Y: p.Y - l.Margins.Top}
}

// ValidateMargins checks margins independently of any container size.
func ValidateMargins(m model.Margins) error {
	for _, v := range []float64{m.Top, m.Right, m.Bottom, m.Left} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: negative or non-finite value", ErrInvalidMargins)
		}
	}
	switch m.Unit {
	case model.UnitFraction, "":
		if m.Left+m.Right >= 1 || m.Top+m.Bottom >= 1 {
			return fmt.Errorf("%w: fractions on opposite sides must sum to < 1", ErrInvalidMargins)
		}
	case model.UnitPixels:
	default:
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidMargins, m.Unit)
	}
	return nil
}

// Compute derives the drawing area. A zero height is derived from
// width*aspectRatio. Fraction margins are taken from the outer size so that
// proportions stay fixed across resizes.
func Compute(size model.Size, aspectRatio float64, margins model.Margins) (Layout, error) {
	if size.Width <= 0 || math.IsNaN(size.Width) {
		return Layout{}, ErrDetached
	}
	if aspectRatio <= 0 || math.IsNaN(aspectRatio) {
		return Layout{}, ErrInvalidAspect
	}
	if err := ValidateMargins(margins); err != nil {
		return Layout{}, err
	}
	height := size.Height
	if height <= 0 {
		height = size.Width * aspectRatio
	}

	px := margins
	px.Unit = model.UnitPixels
	if margins.Unit != model.UnitPixels {
		px.Top = margins.Top * height
		px.Bottom = margins.Bottom * height
		px.Left = margins.Left * size.Width
		px.Right = margins.Right * size.Width
	}

	l := Layout{
		Width:       size.Width,
		Height:      height,
		InnerWidth:  size.Width - px.Left - px.Right,
		InnerHeight: height - px.Top - px.Bottom,
		Margins:     px,
	}
	if l.InnerWidth <= 0 || l.InnerHeight <= 0 {
		return Layout{}, fmt.Errorf("%w: inner %.1fx%.1f", ErrDegenerate, l.InnerWidth, l.InnerHeight)
	}
	return l, nil
}
