package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

func TestProcessBatch(t *testing.T) {
	jobs := []terrain.BatchJob{
		{Name: "ridge", Type: terrain.Routing, WKT: "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"},
		{Name: "empty", Type: terrain.Accessibility, WKT: "POLYGON((5 5, 6 5, 6 6, 5 6, 5 5))"},
		{Name: "broken", Type: terrain.Routing, WKT: "POINT(1 2)"},
	}
	analyze := func(_ context.Context, area *geom.Polygon, at terrain.AnalysisType) (*terrain.Analysis, error) {
		if at == terrain.Accessibility {
			return nil, eris.Wrap(terrain.ErrNoElevationData, "terrain: analyze")
		}
		return &terrain.Analysis{ID: "a-1", Area: area, AnalysisType: at, AccessibilityScore: 0.9}, nil
	}

	var out bytes.Buffer
	xlsxPath := filepath.Join(t.TempDir(), "batch.xlsx")
	require.NoError(t, processBatch(context.Background(), &out, jobs, 2, analyze, xlsxPath))

	var lines []batchLine
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var l batchLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.Len(t, lines, 3)

	assert.Equal(t, "ridge", lines[0].Name)
	require.NotNil(t, lines[0].Analysis)
	assert.Equal(t, "a-1", lines[0].Analysis.ID)
	assert.Contains(t, lines[0].Analysis.AreaWKT, "POLYGON")
	assert.Empty(t, lines[0].Error)

	assert.Equal(t, "empty", lines[1].Name)
	assert.Nil(t, lines[1].Analysis)
	assert.Contains(t, lines[1].Error, "no elevation data")

	assert.Equal(t, "broken", lines[2].Name)
	assert.NotEmpty(t, lines[2].Error)

	f, err := xlsx.OpenFile(xlsxPath)
	require.NoError(t, err)
	sheet := f.Sheet["Analyses"]
	require.NotNil(t, sheet)
	// Header plus the single successful analysis.
	assert.Len(t, sheet.Rows, 2)
}

func TestProcessBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analyze := func(ctx context.Context, _ *geom.Polygon, _ terrain.AnalysisType) (*terrain.Analysis, error) {
		return nil, ctx.Err()
	}
	jobs := []terrain.BatchJob{{Name: "a", Type: terrain.Routing, WKT: "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"}}

	var out bytes.Buffer
	err := processBatch(ctx, &out, jobs, 1, analyze, "")
	assert.ErrorIs(t, err, context.Canceled)
}
