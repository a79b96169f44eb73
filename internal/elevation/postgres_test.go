package elevation

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

var austin = terrain.Bounds{MinX: -97.8, MinY: 30.2, MaxX: -97.6, MaxY: 30.4}

func TestPostgresSource_PointsInBounds(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT longitude, latitude, elevation\s+FROM geo.elevation_samples\s+WHERE geom && ST_MakeEnvelope`).
		WithArgs(-97.8, 30.2, -97.6, 30.4).
		WillReturnRows(pgxmock.NewRows([]string{"longitude", "latitude", "elevation"}).
			AddRow(-97.7, 30.3, 150.0).
			AddRow(-97.7, 30.31, 162.5))

	src := NewPostgresSource(mock, "")
	got, err := src.PointsInBounds(context.Background(), austin)
	require.NoError(t, err)
	assert.Equal(t, []terrain.ElevationSample{
		{X: -97.7, Y: 30.3, Elevation: 150},
		{X: -97.7, Y: 30.31, Elevation: 162.5},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_PointsInBoundsDataset(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`WHERE dataset = \$5`).
		WithArgs(-97.8, 30.2, -97.6, 30.4, "usgs-3dep").
		WillReturnRows(pgxmock.NewRows([]string{"longitude", "latitude", "elevation"}))

	got, err := NewPostgresSource(mock, "usgs-3dep").PointsInBounds(context.Background(), austin)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT longitude`).WillReturnError(errors.New("relation does not exist"))

	_, err = NewPostgresSource(mock, "").PointsInBounds(context.Background(), austin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query points in bounds")
}

func TestPostgresSource_WriteSamples(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_geo_elevation_samples"}, SampleColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "geo"."elevation_samples"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectExec(`DELETE FROM geo.elevation_samples WHERE dataset = \$1 AND seq >= \$2`).
		WithArgs("lidar", int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := NewPostgresSource(mock, "").WriteSamples(context.Background(), "lidar", []terrain.ElevationSample{
		{X: -97.7, Y: 30.3, Elevation: 150},
		{X: -97.7, Y: 30.31, Elevation: 162.5},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_WriteSamplesTrimError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_geo_elevation_samples"}, SampleColumns).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "geo"."elevation_samples"`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectExec(`DELETE FROM geo.elevation_samples`).WillReturnError(errors.New("lock timeout"))

	_, err = NewPostgresSource(mock, "").WriteSamples(context.Background(), "lidar", []terrain.ElevationSample{{X: 1, Y: 2, Elevation: 3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trim dataset lidar")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_WriteSamplesRequiresDataset(t *testing.T) {
	_, err := NewPostgresSource(nil, "").WriteSamples(context.Background(), "", []terrain.ElevationSample{{}})
	assert.Error(t, err)
}

func TestPostgresSource_DeleteDataset(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM geo.elevation_samples WHERE dataset = \$1`).
		WithArgs("lidar").
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	n, err := NewPostgresSource(mock, "").DeleteDataset(context.Background(), "lidar")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
