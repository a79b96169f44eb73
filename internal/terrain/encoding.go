package terrain

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// SRID is the spatial reference of every area and sample (WGS 84 lng/lat).
const SRID = 4326

// ParsePolygonWKT parses a WKT POLYGON.
func ParsePolygonWKT(s string) (*geom.Polygon, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: parse wkt")
	}
	return asPolygon(g)
}

// ParsePolygonGeoJSON parses a GeoJSON Polygon geometry object.
func ParsePolygonGeoJSON(data []byte) (*geom.Polygon, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "terrain: parse geojson")
	}
	return asPolygon(g)
}

// PolygonWKT renders p as WKT.
func PolygonWKT(p *geom.Polygon) (string, error) {
	s, err := wkt.Marshal(p)
	if err != nil {
		return "", eris.Wrap(err, "terrain: encode wkt")
	}
	return s, nil
}

// PolygonGeoJSON renders p as a GeoJSON geometry object.
func PolygonGeoJSON(p *geom.Polygon) (json.RawMessage, error) {
	data, err := geojson.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: encode geojson")
	}
	return data, nil
}

// PolygonEWKB encodes p as little-endian EWKB tagged with SRID 4326, the form
// PostGIS accepts through ST_GeomFromEWKB.
func PolygonEWKB(p *geom.Polygon) ([]byte, error) {
	if p == nil {
		return nil, ErrInvalidArea
	}
	data, err := ewkb.Marshal(p.Clone().SetSRID(SRID), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: encode ewkb")
	}
	return data, nil
}

// ParsePolygonEWKB decodes an EWKB (or plain WKB) polygon.
func ParsePolygonEWKB(data []byte) (*geom.Polygon, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: parse ewkb")
	}
	return asPolygon(g)
}

func asPolygon(g geom.T) (*geom.Polygon, error) {
	p, ok := g.(*geom.Polygon)
	if !ok || p == nil {
		return nil, eris.Wrapf(ErrInvalidArea, "terrain: expected polygon, got %T", g)
	}
	if p.Empty() {
		return nil, eris.Wrap(ErrInvalidArea, "terrain: empty polygon")
	}
	if p.Layout() != geom.XY {
		flat := p.Layout().Stride()
		coords := make([]float64, 0, len(p.FlatCoords())/flat*2)
		for i := 0; i < len(p.FlatCoords()); i += flat {
			coords = append(coords, p.FlatCoords()[i], p.FlatCoords()[i+1])
		}
		ends := make([]int, len(p.Ends()))
		for i, e := range p.Ends() {
			ends[i] = e / flat * 2
		}
		p = geom.NewPolygonFlat(geom.XY, coords, ends)
	}
	return p.SetSRID(SRID), nil
}
