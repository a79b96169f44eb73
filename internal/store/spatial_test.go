package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"
)

func donut() *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	})
}

func TestContainsPoint(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"interior", 2, 2, true},
		{"in hole", 5, 5, false},
		{"outside", 11, 5, false},
		{"outer boundary", 0, 5, false},
		{"hole boundary", 4, 5, false},
		{"vertex", 10, 10, false},
	}
	p := donut()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsPoint(p, tt.x, tt.y))
		})
	}
	assert.True(t, coversPoint(p, 0, 5))
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name string
		b    *geom.Polygon
		want bool
	}{
		{"overlapping", square(8, 8, 12, 12), true},
		{"inside", square(1, 1, 2, 2), true},
		{"containing", square(-1, -1, 11, 11), true},
		{"touching edge", square(10, 0, 12, 5), true},
		{"touching corner", square(10, 10, 11, 11), true},
		{"inside hole", square(4.5, 4.5, 5.5, 5.5), false},
		{"disjoint", square(20, 20, 21, 21), false},
	}
	a := donut()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, intersects(a, tt.b))
			assert.Equal(t, tt.want, intersects(tt.b, a))
		})
	}
}
