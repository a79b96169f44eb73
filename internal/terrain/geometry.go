package terrain

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// metersPerDegree is the length of one degree of latitude on a spherical earth.
const metersPerDegree = 111_320.0

// Bounds is an axis-aligned lng/lat rectangle.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Contains reports whether (x, y) lies inside b, edges included.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Envelope returns the bounding envelope of area.
func Envelope(area *geom.Polygon) (Bounds, error) {
	if area == nil || area.Empty() {
		return Bounds{}, ErrInvalidArea
	}
	b := area.Bounds()
	if b.IsEmpty() {
		return Bounds{}, eris.Wrap(ErrInvalidArea, "terrain: empty bounds")
	}
	return Bounds{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}, nil
}

// Gradient supplies the two-point slope and aspect primitives.
type Gradient interface {
	// Slope returns the signed slope in degrees from (x1, y1, z1) to (x2, y2, z2).
	Slope(x1, y1, z1, x2, y2, z2 float64) float64
	// Aspect returns the compass direction in degrees from (x1, y1) to (x2, y2).
	Aspect(x1, y1, x2, y2 float64) float64
}

// Planar implements Gradient with an equirectangular projection around the
// segment's mean latitude. Accurate enough for short segments; not geodesic.
type Planar struct{}

// Slope returns atan(dz / horizontal distance) in degrees, positive uphill.
// Coincident points give 0 when flat and ±90 otherwise.
func (Planar) Slope(x1, y1, z1, x2, y2, z2 float64) float64 {
	dist := math.Hypot(planarOffset(x1, y1, x2, y2))
	return math.Atan2(z2-z1, dist) * 180 / math.Pi
}

// Aspect returns the bearing from the first point to the second: 0 is north,
// 90 east, -90 west, ±180 south. Coincident points give 0.
func (Planar) Aspect(x1, y1, x2, y2 float64) float64 {
	dx, dy := planarOffset(x1, y1, x2, y2)
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dx, dy) * 180 / math.Pi
}

// planarOffset returns the east and north offsets in meters between two lng/lat points.
func planarOffset(x1, y1, x2, y2 float64) (dx, dy float64) {
	meanLat := (y1 + y2) / 2 * math.Pi / 180
	dx = (x2 - x1) * metersPerDegree * math.Cos(meanLat)
	dy = (y2 - y1) * metersPerDegree
	return dx, dy
}
