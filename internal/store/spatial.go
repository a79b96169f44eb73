package store

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Planar predicates used by the SQLite backend after its bounding-box
// prefilter. They follow PostGIS semantics: containsPoint excludes the
// boundary like ST_Contains, intersects includes touching like ST_Intersects.

const epsilon = 1e-12

type ring [][2]float64

func rings(p *geom.Polygon) []ring {
	stride := p.Stride()
	flat := p.FlatCoords()
	out := make([]ring, 0, len(p.Ends()))
	start := 0
	for _, end := range p.Ends() {
		r := make(ring, 0, (end-start)/stride)
		for i := start; i < end; i += stride {
			r = append(r, [2]float64{flat[i], flat[i+1]})
		}
		out = append(out, r)
		start = end
	}
	return out
}

// containsPoint reports whether (x, y) lies in the interior of p.
func containsPoint(p *geom.Polygon, x, y float64) bool {
	rs := rings(p)
	if len(rs) == 0 {
		return false
	}
	for _, r := range rs {
		if onRing(r, x, y) {
			return false
		}
	}
	if !inRing(rs[0], x, y) {
		return false
	}
	for _, hole := range rs[1:] {
		if inRing(hole, x, y) {
			return false
		}
	}
	return true
}

// coversPoint reports whether (x, y) lies in p or on its boundary.
func coversPoint(p *geom.Polygon, x, y float64) bool {
	for _, r := range rings(p) {
		if onRing(r, x, y) {
			return true
		}
	}
	return containsPoint(p, x, y)
}

// intersects reports whether a and b share at least one point.
func intersects(a, b *geom.Polygon) bool {
	ra, rb := rings(a), rings(b)
	if len(ra) == 0 || len(rb) == 0 {
		return false
	}
	for _, r1 := range ra {
		for _, r2 := range rb {
			if ringsCross(r1, r2) {
				return true
			}
		}
	}
	// No boundary contact: one polygon is inside the other or they are disjoint.
	if p := ra[0][0]; coversPoint(b, p[0], p[1]) {
		return true
	}
	if p := rb[0][0]; coversPoint(a, p[0], p[1]) {
		return true
	}
	return false
}

// inRing is the even-odd ray casting test.
func inRing(r ring, x, y float64) bool {
	inside := false
	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		xi, yi := r[i][0], r[i][1]
		xj, yj := r[j][0], r[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func onRing(r ring, x, y float64) bool {
	for i := 0; i+1 < len(r); i++ {
		if onSegment(r[i], r[i+1], [2]float64{x, y}) {
			return true
		}
	}
	return false
}

func ringsCross(r1, r2 ring) bool {
	for i := 0; i+1 < len(r1); i++ {
		for j := 0; j+1 < len(r2); j++ {
			if segmentsIntersect(r1[i], r1[i+1], r2[j], r2[j+1]) {
				return true
			}
		}
	}
	return false
}

func orientation(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p [2]float64) bool {
	if math.Abs(orientation(a, b, p)) > epsilon {
		return false
	}
	return p[0] >= math.Min(a[0], b[0])-epsilon && p[0] <= math.Max(a[0], b[0])+epsilon &&
		p[1] >= math.Min(a[1], b[1])-epsilon && p[1] <= math.Max(a[1], b[1])+epsilon
}

func segmentsIntersect(p1, p2, q1, q2 [2]float64) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	if ((d1 > epsilon && d2 < -epsilon) || (d1 < -epsilon && d2 > epsilon)) &&
		((d3 > epsilon && d4 < -epsilon) || (d3 < -epsilon && d4 > epsilon)) {
		return true
	}
	return onSegment(q1, q2, p1) || onSegment(q1, q2, p2) ||
		onSegment(p1, p2, q1) || onSegment(p1, p2, q2)
}
