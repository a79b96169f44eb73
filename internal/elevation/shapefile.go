package elevation

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// ReadShapefile reads point features as samples in record order. With an
// elevationField the elevation comes from that DBF attribute; otherwise the
// shapes must be PointZ and Z is used. Records that are not points or have an
// unparsable elevation are skipped.
func ReadShapefile(shpPath, elevationField string) ([]terrain.ElevationSample, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "elevation: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := -1
	if elevationField != "" {
		for i, f := range reader.Fields() {
			name := strings.TrimRight(f.String(), "\x00")
			if strings.EqualFold(name, elevationField) {
				fieldIdx = i
				break
			}
		}
		if fieldIdx < 0 {
			return nil, eris.Errorf("elevation: shapefile %s has no field %q", shpPath, elevationField)
		}
	}

	var out []terrain.ElevationSample
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		var x, y, z float64
		hasZ := false
		switch p := shape.(type) {
		case *shp.PointZ:
			x, y, z, hasZ = p.X, p.Y, p.Z, true
		case *shp.Point:
			x, y = p.X, p.Y
		case *shp.PointM:
			x, y = p.X, p.Y
		default:
			skipped++
			continue
		}

		if fieldIdx >= 0 {
			raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(fieldIdx), "\x00"))
			v, perr := strconv.ParseFloat(raw, 64)
			if perr != nil {
				skipped++
				continue
			}
			z = v
		} else if !hasZ {
			skipped++
			continue
		}

		out = append(out, terrain.ElevationSample{X: x, Y: y, Elevation: z})
	}

	if skipped > 0 {
		zap.L().Debug("elevation: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}
