package terrain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}).SetSRID(SRID)
}

func TestEnvelope(t *testing.T) {
	tri := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{-80.2, 25.7}, {-80.0, 25.9}, {-80.4, 26.1}, {-80.2, 25.7},
	}})

	b, err := Envelope(tri)
	require.NoError(t, err)
	assert.Equal(t, Bounds{MinX: -80.4, MinY: 25.7, MaxX: -80.0, MaxY: 26.1}, b)
	assert.True(t, b.Contains(-80.39, 25.71), "corner of the box outside the triangle is still inside the envelope")
	assert.False(t, b.Contains(-80.5, 25.8))
}

func TestEnvelope_Invalid(t *testing.T) {
	_, err := Envelope(nil)
	assert.ErrorIs(t, err, ErrInvalidArea)

	_, err = Envelope(geom.NewPolygon(geom.XY))
	assert.ErrorIs(t, err, ErrInvalidArea)
}

func TestPlanar_Slope(t *testing.T) {
	p := Planar{}
	tests := []struct {
		name string
		dz   float64
		dist float64
		want float64
	}{
		{"flat", 0, 100, 0},
		{"45 degrees", 100, 100, 45},
		{"downhill", -100, 100, -45},
		{"gentle", 10, 100, math.Atan(0.1) * 180 / math.Pi},
		{"vertical", 5, 0, 90},
		{"coincident flat", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Slope(0, 0, 50, 0, northOf(tt.dist), 50+tt.dz)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestPlanar_SlopeShrinksLongitudeAtHighLatitude(t *testing.T) {
	p := Planar{}
	atEquator := p.Slope(0, 0, 0, 0.001, 0, 10)
	at60 := p.Slope(0, 60, 0, 0.001, 60, 10)
	assert.Greater(t, at60, atEquator, "a degree of longitude is shorter at 60N, so the same rise is steeper")
}

func TestPlanar_Aspect(t *testing.T) {
	p := Planar{}
	assert.InDelta(t, 0, p.Aspect(0, 0, 0, 0.01), 1e-9)
	assert.InDelta(t, 90, p.Aspect(0, 0, 0.01, 0), 1e-9)
	assert.InDelta(t, -90, p.Aspect(0, 0, -0.01, 0), 1e-9)
	assert.InDelta(t, 180, math.Abs(p.Aspect(0, 0, 0, -0.01)), 1e-9)
	assert.InDelta(t, 45, p.Aspect(0, 0, 0.01, 0.01), 1e-6)
	assert.Zero(t, p.Aspect(3, 4, 3, 4))
}
