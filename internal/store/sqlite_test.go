package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "terrain.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 14, 9, 30, 0, 123, time.UTC)
	saved, err := s.Save(ctx, sampleAnalysis("", square(-97.8, 30.2, -97.6, 30.4), 0.9, 0.8, ts))
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, terrain.Routing, got.AnalysisType)
	assert.Equal(t, saved.Metrics, got.Metrics)
	assert.Equal(t, saved.Area.FlatCoords(), got.Area.FlatCoords())
	assert.True(t, ts.Equal(got.AnalysisTimestamp))
	assert.InDelta(t, 0.9, got.AccessibilityScore, 1e-12)
	assert.InDelta(t, 0.8, got.FloodRiskScore, 1e-12)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SaveReplacesByID(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.Save(ctx, sampleAnalysis("same", square(0, 0, 1, 1), 0.2, 0.2, time.Now()))
	require.NoError(t, err)
	_, err = s.Save(ctx, sampleAnalysis("same", square(0, 0, 1, 1), 0.7, 0.2, time.Now()))
	require.NoError(t, err)

	all, err := s.ByAccessibilityScoreRange(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.InDelta(t, 0.7, all[0].AccessibilityScore, 1e-12)
}

func TestSQLiteStore_MostRecentForPoint(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Save(ctx, sampleAnalysis("old", square(0, 0, 2, 2), 0.5, 0.5, base))
	require.NoError(t, err)
	_, err = s.Save(ctx, sampleAnalysis("new", square(0, 0, 2, 2), 0.6, 0.5, base.Add(time.Hour)))
	require.NoError(t, err)
	tri := sampleAnalysis("triangle", geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {2, 0}, {0, 2}, {0, 0},
	}}), 0.1, 0.1, base.Add(2*time.Hour))
	_, err = s.Save(ctx, tri)
	require.NoError(t, err)

	// The triangle is newest and its bounding box covers (1.5, 1.5), but the
	// point lies outside it.
	got, err := s.MostRecentForPoint(ctx, 1.5, 1.5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.ID)

	got, err = s.MostRecentForPoint(ctx, 0.5, 0.5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "triangle", got.ID)

	got, err = s.MostRecentForPoint(ctx, 5, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Boundary points are not contained.
	got, err = s.MostRecentForPoint(ctx, 0, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_Intersecting(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Save(ctx, sampleAnalysis("left", square(0, 0, 1, 1), 0.5, 0.5, base))
	require.NoError(t, err)
	_, err = s.Save(ctx, sampleAnalysis("right", square(2, 0, 3, 1), 0.5, 0.5, base.Add(time.Minute)))
	require.NoError(t, err)

	got, err := s.Intersecting(ctx, square(0.5, 0.5, 2.5, 0.8))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "right", got[0].ID)
	assert.Equal(t, "left", got[1].ID)

	got, err = s.Intersecting(ctx, square(1.2, 0.2, 1.8, 0.8))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Intersecting(ctx, nil)
	assert.ErrorIs(t, err, terrain.ErrInvalidArea)
}

func TestSQLiteStore_ScoreRanges(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, a := range []*terrain.Analysis{
		sampleAnalysis("a", square(0, 0, 1, 1), 0.95, 0.1, time.Now()),
		sampleAnalysis("b", square(0, 0, 1, 1), 0.75, 0.7, time.Now()),
		sampleAnalysis("c", square(0, 0, 1, 1), 0.40, 1.0, time.Now()),
	} {
		_, err := s.Save(ctx, a)
		require.NoError(t, err)
	}

	acc, err := s.ByAccessibilityScoreRange(ctx, 0.75, 1)
	require.NoError(t, err)
	require.Len(t, acc, 2)
	assert.Equal(t, "a", acc[0].ID)
	assert.Equal(t, "b", acc[1].ID)

	flood, err := s.ByFloodRiskScoreRange(ctx, 0.6, 1)
	require.NoError(t, err)
	require.Len(t, flood, 2)
	assert.Equal(t, "c", flood[0].ID)
	assert.Equal(t, "b", flood[1].ID)
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Ping(context.Background()))
}
