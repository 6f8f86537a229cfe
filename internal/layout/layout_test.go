package layout

import (
	"errors"
	"testing"

	"github.com/verte-zerg/chartpipe/internal/model"
)

func TestComputeFractionMargins(t *testing.T) {
	margins := model.Margins{Top: 0.1, Right: 0.05, Bottom: 0.2, Left: 0.1, Unit: model.UnitFraction}
	l, err := Compute(model.Size{Width: 800}, 0.5, margins)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if l.Height != 400 {
		t.Fatalf("expected derived height 400, got %v", l.Height)
	}
	if l.Margins.Left != 80 || l.Margins.Right != 40 || l.Margins.Top != 40 || l.Margins.Bottom != 80 {
		t.Fatalf("unexpected pixel margins: %+v", l.Margins)
	}
	if l.InnerWidth != l.Width-l.Margins.Left-l.Margins.Right {
		t.Fatalf("inner width %v does not match outer minus margins", l.InnerWidth)
	}
	if l.InnerHeight != l.Height-l.Margins.Top-l.Margins.Bottom {
		t.Fatalf("inner height %v does not match outer minus margins", l.InnerHeight)
	}
	if l.InnerWidth <= 0 || l.InnerHeight <= 0 {
		t.Fatalf("expected positive inner area, got %vx%v", l.InnerWidth, l.InnerHeight)
	}
}

func TestComputeKeepsProportionsAcrossResize(t *testing.T) {
	margins := model.Margins{Top: 0.1, Right: 0.1, Bottom: 0.1, Left: 0.1}
	small, err := Compute(model.Size{Width: 200}, 0.5, margins)
	if err != nil {
		t.Fatalf("compute small: %v", err)
	}
	large, err := Compute(model.Size{Width: 1000}, 0.5, margins)
	if err != nil {
		t.Fatalf("compute large: %v", err)
	}
	if small.InnerWidth/small.Width != large.InnerWidth/large.Width {
		t.Fatalf("inner width ratio changed: %v vs %v", small.InnerWidth/small.Width, large.InnerWidth/large.Width)
	}
}

func TestComputeExplicitHeightAndPixels(t *testing.T) {
	margins := model.Margins{Top: 10, Right: 20, Bottom: 30, Left: 40, Unit: model.UnitPixels}
	l, err := Compute(model.Size{Width: 300, Height: 200}, 2, margins)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if l.InnerWidth != 240 || l.InnerHeight != 160 {
		t.Fatalf("unexpected inner size %vx%v", l.InnerWidth, l.InnerHeight)
	}
	inner := l.Inner()
	if inner.X != 40 || inner.Y != 10 {
		t.Fatalf("unexpected inner origin %+v", inner)
	}
}

func TestComputeErrors(t *testing.T) {
	cases := []struct {
		name    string
		size    model.Size
		aspect  float64
		margins model.Margins
		want    error
	}{
		{"detached", model.Size{Width: 0}, 0.5, model.Margins{}, ErrDetached},
		{"negative width", model.Size{Width: -10}, 0.5, model.Margins{}, ErrDetached},
		{"bad aspect", model.Size{Width: 100}, 0, model.Margins{}, ErrInvalidAspect},
		{"negative margin", model.Size{Width: 100}, 1, model.Margins{Left: -0.1}, ErrInvalidMargins},
		{"fractions too large", model.Size{Width: 100}, 1, model.Margins{Left: 0.5, Right: 0.5}, ErrInvalidMargins},
		{"unknown unit", model.Size{Width: 100}, 1, model.Margins{Unit: "em"}, ErrInvalidMargins},
		{"pixels eat area", model.Size{Width: 100}, 1, model.Margins{Left: 60, Right: 60, Unit: model.UnitPixels}, ErrDegenerate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.size, tc.aspect, tc.margins)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
