// Package elevation stores, retrieves, and ingests elevation samples. Sources
// here implement terrain.PointSource over PostGIS or SQLite tables; readers
// turn shapefiles, CSV files and ESRI ASCII grids into ordered samples.
package elevation

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/terrain-cli/internal/db"
	"github.com/sells-group/terrain-cli/internal/terrain"
)

// SamplesTable is the PostGIS table holding imported elevation samples.
const SamplesTable = "geo.elevation_samples"

// SampleColumns are the columns written by WriteSamples, in COPY order. The
// geom column is generated from longitude and latitude.
var SampleColumns = []string{"dataset", "seq", "longitude", "latitude", "elevation"}

// PostgresSource reads and writes elevation samples in PostGIS.
type PostgresSource struct {
	terrain.Planar
	pool    db.Pool
	dataset string
}

// NewPostgresSource creates a source over geo.elevation_samples. An empty
// dataset reads samples from every dataset.
func NewPostgresSource(pool db.Pool, dataset string) *PostgresSource {
	return &PostgresSource{pool: pool, dataset: dataset}
}

const pointsInBoundsSQL = `SELECT longitude, latitude, elevation
	FROM geo.elevation_samples
	WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	ORDER BY dataset, seq`

const pointsInBoundsDatasetSQL = `SELECT longitude, latitude, elevation
	FROM geo.elevation_samples
	WHERE dataset = $5 AND geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	ORDER BY seq`

// PointsInBounds returns the samples inside b in import order.
func (s *PostgresSource) PointsInBounds(ctx context.Context, b terrain.Bounds) ([]terrain.ElevationSample, error) {
	query := pointsInBoundsSQL
	args := []any{b.MinX, b.MinY, b.MaxX, b.MaxY}
	if s.dataset != "" {
		query = pointsInBoundsDatasetSQL
		args = append(args, s.dataset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "elevation: query points in bounds")
	}
	defer rows.Close()

	var out []terrain.ElevationSample
	for rows.Next() {
		var p terrain.ElevationSample
		if err := rows.Scan(&p.X, &p.Y, &p.Elevation); err != nil {
			return nil, eris.Wrap(err, "elevation: scan sample")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "elevation: iterate samples")
}

const trimDatasetSQL = `DELETE FROM geo.elevation_samples WHERE dataset = $1 AND seq >= $2`

// WriteSamples upserts samples into dataset, numbering them from zero in
// slice order, then drops samples beyond the new length so the dataset holds
// exactly this import.
func (s *PostgresSource) WriteSamples(ctx context.Context, dataset string, samples []terrain.ElevationSample) (int64, error) {
	if dataset == "" {
		return 0, eris.New("elevation: dataset name is required")
	}
	rows := make([][]any, len(samples))
	for i, p := range samples {
		rows[i] = []any{dataset, int64(i), p.X, p.Y, p.Elevation}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        SamplesTable,
		Columns:      SampleColumns,
		ConflictKeys: []string{"dataset", "seq"},
	}, rows)
	if err != nil {
		return n, eris.Wrapf(err, "elevation: write dataset %s", dataset)
	}
	if _, err := s.pool.Exec(ctx, trimDatasetSQL, dataset, int64(len(samples))); err != nil {
		return n, eris.Wrapf(err, "elevation: trim dataset %s", dataset)
	}
	return n, nil
}

// DeleteDataset removes every sample of dataset.
func (s *PostgresSource) DeleteDataset(ctx context.Context, dataset string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM geo.elevation_samples WHERE dataset = $1`, dataset)
	if err != nil {
		return 0, eris.Wrapf(err, "elevation: delete dataset %s", dataset)
	}
	return tag.RowsAffected(), nil
}
