package elevation

import (
	"encoding/csv"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

var (
	xHeaders = []string{"lng", "lon", "long", "longitude", "x"}
	yHeaders = []string{"lat", "latitude", "y"}
	zHeaders = []string{"elevation", "elev", "z", "height", "alt", "altitude"}
)

// ReadCSV parses delimited samples in row order. A header row is detected
// when its first field is not numeric; columns are then matched by name
// (lng/lon/longitude/x, lat/latitude/y, elevation/elev/z/height or
// opts.ElevationField). Without a header the columns are x, y, elevation.
// Rows with unparsable numbers are rejected with their line number.
func ReadCSV(r io.Reader, opts ReadOptions) ([]terrain.ElevationSample, error) {
	if opts.Charset != "" && !strings.EqualFold(opts.Charset, "utf-8") {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "elevation: unsupported charset %q", opts.Charset)
		}
		r = enc.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	xi, yi, zi := 0, 1, 2
	var out []terrain.ElevationSample
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "elevation: read csv row")
		}
		line++

		if line == 1 && isHeader(record) {
			xi, yi, zi, err = headerColumns(record, opts.ElevationField)
			if err != nil {
				return nil, err
			}
			continue
		}

		need := max(xi, yi, zi)
		if len(record) <= need {
			return nil, eris.Errorf("elevation: csv line %d has %d fields, want at least %d", line, len(record), need+1)
		}
		var vals [3]float64
		for i, idx := range []int{xi, yi, zi} {
			v, perr := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if perr != nil {
				return nil, eris.Wrapf(perr, "elevation: csv line %d column %d", line, idx+1)
			}
			vals[i] = v
		}
		out = append(out, terrain.ElevationSample{X: vals[0], Y: vals[1], Elevation: vals[2]})
	}
	return out, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")), 64)
	return err != nil
}

func headerColumns(header []string, elevationField string) (x, y, z int, err error) {
	x, y, z = -1, -1, -1
	zNames := zHeaders
	if elevationField != "" {
		zNames = []string{strings.ToLower(elevationField)}
	}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch {
		case x < 0 && slices.Contains(xHeaders, name):
			x = i
		case y < 0 && slices.Contains(yHeaders, name):
			y = i
		case z < 0 && slices.Contains(zNames, name):
			z = i
		}
	}
	if x < 0 || y < 0 || z < 0 {
		return 0, 0, 0, eris.Errorf("elevation: csv header %v lacks longitude, latitude or elevation column", header)
	}
	return x, y, z, nil
}
