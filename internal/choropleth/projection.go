package choropleth

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/verte-zerg/chartpipe/internal/model"
)

// Projection maps topology coordinates into the drawing area.
type Projection struct {
	k      float64
	maxY   float64
	minX   float64
	dx, dy float64
}

// FitProjection scales bounds uniformly to fit a width × height area,
// centred, with the y axis flipped so north is up.
func FitProjection(bound orb.Bound, width, height float64) Projection {
	bw := bound.Max[0] - bound.Min[0]
	bh := bound.Max[1] - bound.Min[1]
	var k float64
	switch {
	case bw > 0 && bh > 0:
		k = math.Min(width/bw, height/bh)
	case bw > 0:
		k = width / bw
	case bh > 0:
		k = height / bh
	default:
		k = 1
	}
	return Projection{
		k:    k,
		minX: bound.Min[0],
		maxY: bound.Max[1],
		dx:   (width - bw*k) / 2,
		dy:   (height - bh*k) / 2,
	}
}

// Point projects one coordinate.
func (p Projection) Point(pt orb.Point) orb.Point {
	return orb.Point{
		p.dx + (pt[0]-p.minX)*p.k,
		p.dy + (p.maxY-pt[1])*p.k,
	}
}

// MultiPolygon projects every ring of mp into a new value.
func (p Projection) MultiPolygon(mp orb.MultiPolygon) orb.MultiPolygon {
	out := make(orb.MultiPolygon, 0, len(mp))
	for _, poly := range mp {
		np := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			nr := make(orb.Ring, 0, len(ring))
			for _, pt := range ring {
				nr = append(nr, p.Point(pt))
			}
			np = append(np, nr)
		}
		out = append(out, np)
	}
	return out
}

// Bound returns the bounds of every region shape.
func Bound(regions []model.Region) orb.Bound {
	var b orb.Bound
	first := true
	for _, r := range regions {
		if len(r.Shape) == 0 {
			continue
		}
		rb := r.Shape.Bound()
		if first {
			b = rb
			first = false
			continue
		}
		b = b.Union(rb)
	}
	return b
}
