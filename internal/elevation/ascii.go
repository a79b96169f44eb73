package elevation

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// ASCIIGrid is the header of an ESRI ASCII raster.
type ASCIIGrid struct {
	Cols, Rows int
	XLL, YLL   float64
	Centered   bool // XLL/YLL give the lower-left cell centre rather than its corner
	CellSize   float64
	NoData     float64
	HasNoData  bool
}

// CellCenter returns the coordinate of the centre of cell (col, row), where
// row 0 is the northernmost row.
func (g ASCIIGrid) CellCenter(col, row int) (x, y float64) {
	x = g.XLL + float64(col)*g.CellSize
	y = g.YLL + float64(g.Rows-1-row)*g.CellSize
	if !g.Centered {
		x += g.CellSize / 2
		y += g.CellSize / 2
	}
	return x, y
}

// ReadASCIIGrid parses an ESRI ASCII grid into one sample per cell centre,
// row-major from the north-west corner. NODATA cells are skipped.
func ReadASCIIGrid(r io.Reader) ([]terrain.ElevationSample, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	var g ASCIIGrid
	var pending string
	seen := map[string]bool{}
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			pending = key
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("elevation: ascii grid header %q has no value", key)
		}
		val := sc.Text()
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "elevation: ascii grid header %s", key)
		}
		seen[key] = true
		switch key {
		case "ncols":
			g.Cols = int(f)
		case "nrows":
			g.Rows = int(f)
		case "xllcorner":
			g.XLL = f
		case "yllcorner":
			g.YLL = f
		case "xllcenter":
			g.XLL, g.Centered = f, true
		case "yllcenter":
			g.YLL, g.Centered = f, true
		case "cellsize":
			g.CellSize = f
		case "nodata_value":
			g.NoData, g.HasNoData = f, true
		default:
			return nil, eris.Errorf("elevation: unknown ascii grid header %q", key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "elevation: read ascii grid")
	}
	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if !seen[k] {
			return nil, eris.Errorf("elevation: ascii grid missing %s", k)
		}
	}
	if g.Cols <= 0 || g.Rows <= 0 || g.CellSize <= 0 {
		return nil, eris.New("elevation: ascii grid dimensions must be positive")
	}

	out := make([]terrain.ElevationSample, 0, g.Cols*g.Rows)
	total := g.Cols * g.Rows
	for i := 0; i < total; i++ {
		var tok string
		if i == 0 && pending != "" {
			tok = pending
		} else {
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return nil, eris.Wrap(err, "elevation: read ascii grid")
				}
				return nil, eris.Errorf("elevation: ascii grid has %d values, want %d", i, total)
			}
			tok = sc.Text()
		}
		z, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "elevation: ascii grid value %d", i)
		}
		if (g.HasNoData && z == g.NoData) || math.IsNaN(z) {
			continue
		}
		x, y := g.CellCenter(i%g.Cols, i/g.Cols)
		out = append(out, terrain.ElevationSample{X: x, Y: y, Elevation: z})
	}
	return out, nil
}
