package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	_ "modernc.org/sqlite"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// SQLiteStore implements Store using modernc.org/sqlite. Spatial predicates
// run in Go over rows preselected by bounding box.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB returns the handle so the elevation source can share the file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS terrain_analyses (
	id                  TEXT PRIMARY KEY,
	area_wkb            BLOB NOT NULL,
	min_x               REAL NOT NULL,
	min_y               REAL NOT NULL,
	max_x               REAL NOT NULL,
	max_y               REAL NOT NULL,
	analysis_type       TEXT NOT NULL,
	metrics             TEXT NOT NULL,
	accessibility_score REAL NOT NULL,
	flood_risk_score    REAL NOT NULL,
	analysis_timestamp  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_terrain_analyses_bbox ON terrain_analyses(min_x, max_x, min_y, max_y);
CREATE INDEX IF NOT EXISTS idx_terrain_analyses_accessibility ON terrain_analyses(accessibility_score);
CREATE INDEX IF NOT EXISTS idx_terrain_analyses_flood_risk ON terrain_analyses(flood_risk_score);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteColumns = `id, area_wkb, analysis_type, metrics, accessibility_score, flood_risk_score, analysis_timestamp`

func (s *SQLiteStore) Save(ctx context.Context, a *terrain.Analysis) (*terrain.Analysis, error) {
	out, err := prepare(a)
	if err != nil {
		return nil, err
	}
	b, err := terrain.Envelope(out.Area)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: analysis area")
	}
	area, err := terrain.PolygonEWKB(out.Area)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: encode area")
	}
	metrics, err := marshalMetrics(out.Metrics)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO terrain_analyses
			(id, area_wkb, min_x, min_y, max_x, max_y, analysis_type, metrics,
			 accessibility_score, flood_risk_score, analysis_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, area, b.MinX, b.MinY, b.MaxX, b.MaxY, string(out.AnalysisType), string(metrics),
		out.AccessibilityScore, out.FloodRiskScore, out.AnalysisTimestamp.UnixNano(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save analysis %s", out.ID)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*terrain.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM terrain_analyses WHERE id = ?`, id)
	a, err := scanSQLiteAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	return a, nil
}

func (s *SQLiteStore) MostRecentForPoint(ctx context.Context, x, y float64) (*terrain.Analysis, error) {
	candidates, err := s.list(ctx, "analyses for point",
		`SELECT `+sqliteColumns+` FROM terrain_analyses
		WHERE min_x <= ? AND max_x >= ? AND min_y <= ? AND max_y >= ?
		ORDER BY analysis_timestamp DESC`,
		x, x, y, y,
	)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if containsPoint(candidates[i].Area, x, y) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (s *SQLiteStore) Intersecting(ctx context.Context, area *geom.Polygon) ([]terrain.Analysis, error) {
	b, err := terrain.Envelope(area)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query area")
	}
	candidates, err := s.list(ctx, "intersecting analyses",
		`SELECT `+sqliteColumns+` FROM terrain_analyses
		WHERE min_x <= ? AND max_x >= ? AND min_y <= ? AND max_y >= ?
		ORDER BY analysis_timestamp DESC`,
		b.MaxX, b.MinX, b.MaxY, b.MinY,
	)
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, c := range candidates {
		if intersects(c.Area, area) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *SQLiteStore) ByAccessibilityScoreRange(ctx context.Context, min, max float64) ([]terrain.Analysis, error) {
	return s.list(ctx, "analyses by accessibility score",
		`SELECT `+sqliteColumns+` FROM terrain_analyses
		WHERE accessibility_score BETWEEN ? AND ?
		ORDER BY accessibility_score DESC, analysis_timestamp DESC`,
		min, max,
	)
}

func (s *SQLiteStore) ByFloodRiskScoreRange(ctx context.Context, min, max float64) ([]terrain.Analysis, error) {
	return s.list(ctx, "analyses by flood risk score",
		`SELECT `+sqliteColumns+` FROM terrain_analyses
		WHERE flood_risk_score BETWEEN ? AND ?
		ORDER BY flood_risk_score DESC, analysis_timestamp DESC`,
		min, max,
	)
}

func (s *SQLiteStore) list(ctx context.Context, what, query string, args ...any) ([]terrain.Analysis, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s", what)
	}
	defer rows.Close()

	var out []terrain.Analysis
	for rows.Next() {
		a, err := scanSQLiteAnalysis(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", what)
		}
		out = append(out, *a)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: iterate %s", what)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAnalysis(row scanner) (*terrain.Analysis, error) {
	var a terrain.Analysis
	var area []byte
	var analysisType, metrics string
	var ts int64
	if err := row.Scan(&a.ID, &area, &analysisType, &metrics, &a.AccessibilityScore, &a.FloodRiskScore, &ts); err != nil {
		return nil, err
	}
	a.AnalysisTimestamp = time.Unix(0, ts)
	if err := decodeRow(&a, area, []byte(metrics), analysisType); err != nil {
		return nil, err
	}
	return &a, nil
}
