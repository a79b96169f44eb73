package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestParseAnalysisType(t *testing.T) {
	tests := []struct {
		in      string
		want    AnalysisType
		wantErr bool
	}{
		{"ROUTING", Routing, false},
		{"routing", Routing, false},
		{" emergency-response ", EmergencyResponse, false},
		{"Accessibility", Accessibility, false},
		{"", "", true},
		{"SITE_SUITABILITY", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAnalysisType(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAnalysisType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePolygonWKT(t *testing.T) {
	p, err := ParsePolygonWKT("POLYGON((-97.8 30.2, -97.6 30.2, -97.6 30.4, -97.8 30.4, -97.8 30.2))")
	require.NoError(t, err)
	assert.Equal(t, SRID, p.SRID())
	assert.Equal(t, 5, p.NumCoords())

	b, err := Envelope(p)
	require.NoError(t, err)
	assert.InDelta(t, -97.8, b.MinX, 1e-12)
	assert.InDelta(t, 30.4, b.MaxY, 1e-12)

	s, err := PolygonWKT(p)
	require.NoError(t, err)
	assert.Contains(t, s, "POLYGON")
}

func TestParsePolygonWKT_NotAPolygon(t *testing.T) {
	_, err := ParsePolygonWKT("POINT(1 2)")
	assert.ErrorIs(t, err, ErrInvalidArea)

	_, err = ParsePolygonWKT("POLYGON((1 2")
	assert.Error(t, err)
}

func TestAsPolygon_DropsZ(t *testing.T) {
	xyz := geom.NewPolygonFlat(geom.XYZ, []float64{0, 0, 5, 1, 0, 5, 1, 1, 5, 0, 0, 5}, []int{12})
	p, err := asPolygon(xyz)
	require.NoError(t, err)
	assert.Equal(t, geom.XY, p.Layout())
	assert.Equal(t, 2, p.Stride())
	assert.Equal(t, []float64{0, 0, 1, 0, 1, 1, 0, 0}, p.FlatCoords())
	assert.Equal(t, []int{8}, p.Ends())
}

func TestPolygonGeoJSONRoundTrip(t *testing.T) {
	in := square(-1, -2, 3, 4)
	data, err := PolygonGeoJSON(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"Polygon"`)

	out, err := ParsePolygonGeoJSON(data)
	require.NoError(t, err)
	assert.Equal(t, in.FlatCoords(), out.FlatCoords())
}

func TestParsePolygonGeoJSON_Invalid(t *testing.T) {
	_, err := ParsePolygonGeoJSON([]byte(`{"type":"Point","coordinates":[1,2]}`))
	assert.ErrorIs(t, err, ErrInvalidArea)

	_, err = ParsePolygonGeoJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestPolygonEWKBRoundTrip(t *testing.T) {
	in := square(-97.8, 30.2, -97.6, 30.4)
	data, err := PolygonEWKB(in)
	require.NoError(t, err)

	out, err := ParsePolygonEWKB(data)
	require.NoError(t, err)
	assert.Equal(t, SRID, out.SRID())
	assert.Equal(t, in.FlatCoords(), out.FlatCoords())

	_, err = PolygonEWKB(nil)
	assert.ErrorIs(t, err, ErrInvalidArea)

	_, err = ParsePolygonEWKB([]byte{0x01, 0x02})
	assert.Error(t, err)
}
