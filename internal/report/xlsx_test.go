package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

func TestWriteXLSX(t *testing.T) {
	area := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}})
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	analyses := []terrain.Analysis{
		{
			ID: "a-1", Area: area, AnalysisType: terrain.Routing, AnalysisTimestamp: ts,
			Metrics:            terrain.Metrics{MinElevation: 5, MaxElevation: 8, SlopeMaximum: 1.72},
			AccessibilityScore: 1, FloodRiskScore: 0.5,
		},
		{
			ID: "a-2", AnalysisType: terrain.Routing, AnalysisTimestamp: ts,
			AccessibilityScore: 0.5, FloodRiskScore: 0.25,
		},
		{
			ID: "a-3", AnalysisType: terrain.Accessibility, AnalysisTimestamp: ts,
			AccessibilityScore: 0.2, FloodRiskScore: 1,
		},
	}

	path := filepath.Join(t.TempDir(), "analyses.xlsx")
	require.NoError(t, WriteXLSX(path, analyses))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	sheet := f.Sheet["Analyses"]
	require.NotNil(t, sheet)
	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, "id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "area_wkt", sheet.Rows[0].Cells[len(AnalysisHeader)-1].String())

	first := sheet.Rows[1].Cells
	assert.Equal(t, "a-1", first[0].String())
	assert.Equal(t, "ROUTING", first[1].String())
	assert.Equal(t, "2026-03-14T09:30:00Z", first[2].String())
	score, err := first[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
	slopeMax, err := first[10].Float()
	require.NoError(t, err)
	assert.InDelta(t, 1.72, slopeMax, 1e-9)
	assert.Contains(t, first[13].String(), "POLYGON")

	summary := f.Sheet["Summary"]
	require.NotNil(t, summary)
	require.Len(t, summary.Rows, 3)
	assert.Equal(t, "ROUTING", summary.Rows[1].Cells[0].String())
	n, err := summary.Rows[1].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	mean, err := summary.Rows[1].Cells[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, 0.75, mean, 1e-9)
	assert.Equal(t, "ACCESSIBILITY", summary.Rows[2].Cells[0].String())
}

func TestWriteXLSX_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteXLSX(path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheet["Analyses"].Rows, 1)
}

func TestWriteXLSX_BadPath(t *testing.T) {
	err := WriteXLSX(filepath.Join(t.TempDir(), "missing", "dir", "x.xlsx"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report: save")
}
