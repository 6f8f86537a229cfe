package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Rect is an axis-aligned rectangle in inner-area pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains reports whether p lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	x0, x1 := ordered(r.X, r.X+r.Width)
	y0, y1 := ordered(r.Y, r.Y+r.Height)
	return p.X >= x0 && p.X <= x1 && p.Y >= y0 && p.Y <= y1
}

// Arc is a pie slice. Angles are radians, clockwise from twelve o'clock.
type Arc struct {
	CX     float64
	CY     float64
	Radius float64
	Start  float64
	End    float64
}

// Contains reports whether p lies inside the slice.
func (a Arc) Contains(p Point) bool {
	dx, dy := p.X-a.CX, p.Y-a.CY
	if math.Hypot(dx, dy) > a.Radius {
		return false
	}
	angle := math.Atan2(dx, -dy)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle >= a.Start && angle < a.End
}

func (a Arc) point(angle float64) (float64, float64) {
	return a.CX + a.Radius*math.Sin(angle), a.CY - a.Radius*math.Cos(angle)
}

// GeometryKind tells which member of Geometry is meaningful.
type GeometryKind int

// Geometry kinds.
const (
	GeomRect GeometryKind = iota
	GeomArc
	GeomShape
)

// Geometry is the placement of a visual element.
type Geometry struct {
	Kind  GeometryKind
	Rect  Rect
	Arc   Arc
	Shape orb.MultiPolygon
}

// RectGeometry wraps a rectangle.
func RectGeometry(x, y, w, h float64) Geometry {
	return Geometry{Kind: GeomRect, Rect: Rect{X: x, Y: y, Width: w, Height: h}}
}

// ArcGeometry wraps a pie slice.
func ArcGeometry(a Arc) Geometry {
	return Geometry{Kind: GeomArc, Arc: a}
}

// ShapeGeometry wraps projected polygons.
func ShapeGeometry(mp orb.MultiPolygon) Geometry {
	return Geometry{Kind: GeomShape, Shape: mp}
}

// Contains reports whether p lies inside the geometry.
func (g Geometry) Contains(p Point) bool {
	switch g.Kind {
	case GeomArc:
		return g.Arc.Contains(p)
	case GeomShape:
		return planar.MultiPolygonContains(g.Shape, orb.Point{p.X, p.Y})
	default:
		return g.Rect.Contains(p)
	}
}

// Path returns SVG path data for the geometry.
func (g Geometry) Path() string {
	var b strings.Builder
	switch g.Kind {
	case GeomArc:
		a := g.Arc
		sweep := a.End - a.Start
		if sweep >= 2*math.Pi-1e-9 {
			// A single arc command cannot draw a full circle.
			top := a.CY - a.Radius
			bottom := a.CY + a.Radius
			b.WriteString("M" + num(a.CX) + " " + num(top))
			b.WriteString("A" + num(a.Radius) + " " + num(a.Radius) + " 0 1 1 " + num(a.CX) + " " + num(bottom))
			b.WriteString("A" + num(a.Radius) + " " + num(a.Radius) + " 0 1 1 " + num(a.CX) + " " + num(top) + "Z")
			return b.String()
		}
		x0, y0 := a.point(a.Start)
		x1, y1 := a.point(a.End)
		large := "0"
		if sweep > math.Pi {
			large = "1"
		}
		b.WriteString("M" + num(a.CX) + " " + num(a.CY))
		b.WriteString("L" + num(x0) + " " + num(y0))
		b.WriteString("A" + num(a.Radius) + " " + num(a.Radius) + " 0 " + large + " 1 " + num(x1) + " " + num(y1) + "Z")
	case GeomShape:
		for _, poly := range g.Shape {
			for _, ring := range poly {
				for i, pt := range ring {
					if i == 0 {
						b.WriteString("M")
					} else {
						b.WriteString("L")
					}
					b.WriteString(num(pt[0]) + " " + num(pt[1]))
				}
				b.WriteString("Z")
			}
		}
	default:
		r := g.Rect
		b.WriteString("M" + num(r.X) + " " + num(r.Y))
		b.WriteString("h" + num(r.Width) + "v" + num(r.Height) + "h" + num(-r.Width) + "Z")
	}
	return b.String()
}

// Center returns a representative point of the geometry.
func (g Geometry) Center() Point {
	switch g.Kind {
	case GeomArc:
		mid := (g.Arc.Start + g.Arc.End) / 2
		return Point{
			X: g.Arc.CX + g.Arc.Radius/2*math.Sin(mid),
			Y: g.Arc.CY - g.Arc.Radius/2*math.Cos(mid),
		}
	case GeomShape:
		c := g.Shape.Bound().Center()
		return Point{X: c[0], Y: c[1]}
	default:
		return Point{X: g.Rect.X + g.Rect.Width/2, Y: g.Rect.Y + g.Rect.Height/2}
	}
}

func ordered(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
