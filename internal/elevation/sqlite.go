package elevation

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// SQLiteSource reads and writes elevation samples in a local SQLite file.
// The *sql.DB is usually shared with store.SQLiteStore.
type SQLiteSource struct {
	terrain.Planar
	db      *sql.DB
	dataset string
}

// NewSQLiteSource creates a source over the elevation_samples table. An
// empty dataset reads samples from every dataset.
func NewSQLiteSource(db *sql.DB, dataset string) *SQLiteSource {
	return &SQLiteSource{db: db, dataset: dataset}
}

const sqliteSamplesMigration = `
CREATE TABLE IF NOT EXISTS elevation_samples (
	dataset   TEXT    NOT NULL,
	seq       INTEGER NOT NULL,
	longitude REAL    NOT NULL,
	latitude  REAL    NOT NULL,
	elevation REAL    NOT NULL,
	PRIMARY KEY (dataset, seq)
);

CREATE INDEX IF NOT EXISTS idx_elevation_samples_lng_lat ON elevation_samples(longitude, latitude);
`

// Migrate creates the samples table.
func (s *SQLiteSource) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSamplesMigration)
	return eris.Wrap(err, "elevation: sqlite migrate")
}

// PointsInBounds returns the samples inside b in import order.
func (s *SQLiteSource) PointsInBounds(ctx context.Context, b terrain.Bounds) ([]terrain.ElevationSample, error) {
	query := `SELECT longitude, latitude, elevation FROM elevation_samples
		WHERE longitude BETWEEN ? AND ? AND latitude BETWEEN ? AND ?
		ORDER BY dataset, seq`
	args := []any{b.MinX, b.MaxX, b.MinY, b.MaxY}
	if s.dataset != "" {
		query = `SELECT longitude, latitude, elevation FROM elevation_samples
			WHERE dataset = ? AND longitude BETWEEN ? AND ? AND latitude BETWEEN ? AND ?
			ORDER BY seq`
		args = append([]any{s.dataset}, args...)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "elevation: sqlite query points in bounds")
	}
	defer rows.Close()

	var out []terrain.ElevationSample
	for rows.Next() {
		var p terrain.ElevationSample
		if err := rows.Scan(&p.X, &p.Y, &p.Elevation); err != nil {
			return nil, eris.Wrap(err, "elevation: sqlite scan sample")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "elevation: sqlite iterate samples")
}

// WriteSamples replaces the contents of dataset with samples inside one
// transaction, dropping rows left over from a longer previous import.
func (s *SQLiteSource) WriteSamples(ctx context.Context, dataset string, samples []terrain.ElevationSample) (int64, error) {
	if dataset == "" {
		return 0, eris.New("elevation: dataset name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "elevation: sqlite begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO elevation_samples
		(dataset, seq, longitude, latitude, elevation) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "elevation: sqlite prepare insert")
	}
	defer stmt.Close()

	for i, p := range samples {
		if _, err := stmt.ExecContext(ctx, dataset, i, p.X, p.Y, p.Elevation); err != nil {
			return 0, eris.Wrapf(err, "elevation: sqlite insert sample %d", i)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM elevation_samples WHERE dataset = ? AND seq >= ?`,
		dataset, len(samples)); err != nil {
		return 0, eris.Wrapf(err, "elevation: sqlite trim dataset %s", dataset)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "elevation: sqlite commit")
	}
	return int64(len(samples)), nil
}

// DeleteDataset removes every sample of dataset.
func (s *SQLiteSource) DeleteDataset(ctx context.Context, dataset string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM elevation_samples WHERE dataset = ?`, dataset)
	if err != nil {
		return 0, eris.Wrapf(err, "elevation: sqlite delete dataset %s", dataset)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
