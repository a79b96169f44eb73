package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/terrain-cli/internal/db"
	"github.com/sells-group/terrain-cli/internal/terrain"
)

// PostgresStore implements Store on a PostGIS table.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying pool so the elevation source can share it.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const analysisColumns = `id, ST_AsEWKB(area), analysis_type, metrics, accessibility_score, flood_risk_score, analysis_timestamp`

// Save inserts a, or replaces the stored analysis with the same ID.
func (s *PostgresStore) Save(ctx context.Context, a *terrain.Analysis) (*terrain.Analysis, error) {
	out, err := prepare(a)
	if err != nil {
		return nil, err
	}
	area, err := terrain.PolygonEWKB(out.Area)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode area")
	}
	metrics, err := marshalMetrics(out.Metrics)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO geo.terrain_analyses
			(id, area, analysis_type, metrics, accessibility_score, flood_risk_score, analysis_timestamp)
		VALUES ($1, ST_GeomFromEWKB($2), $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			area = EXCLUDED.area,
			analysis_type = EXCLUDED.analysis_type,
			metrics = EXCLUDED.metrics,
			accessibility_score = EXCLUDED.accessibility_score,
			flood_risk_score = EXCLUDED.flood_risk_score,
			analysis_timestamp = EXCLUDED.analysis_timestamp`,
		out.ID, area, string(out.AnalysisType), metrics, out.AccessibilityScore, out.FloodRiskScore, out.AnalysisTimestamp,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save analysis %s", out.ID)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*terrain.Analysis, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+analysisColumns+` FROM geo.terrain_analyses WHERE id = $1`, id)
	a, err := scanPostgresAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	return a, nil
}

// MostRecentForPoint returns the newest analysis whose area contains the
// point, or nil when none does.
func (s *PostgresStore) MostRecentForPoint(ctx context.Context, x, y float64) (*terrain.Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM geo.terrain_analyses
		WHERE ST_Contains(area, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		ORDER BY analysis_timestamp DESC
		LIMIT 1`,
		x, y,
	)
	a, err := scanPostgresAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: most recent analysis for point")
	}
	return a, nil
}

// Intersecting returns analyses whose areas intersect area, newest first.
func (s *PostgresStore) Intersecting(ctx context.Context, area *geom.Polygon) ([]terrain.Analysis, error) {
	wkb, err := terrain.PolygonEWKB(area)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode query area")
	}
	return s.list(ctx, "intersecting analyses",
		`SELECT `+analysisColumns+` FROM geo.terrain_analyses
		WHERE ST_Intersects(area, ST_GeomFromEWKB($1))
		ORDER BY analysis_timestamp DESC`,
		wkb,
	)
}

// ByAccessibilityScoreRange returns analyses with min <= score <= max, best first.
func (s *PostgresStore) ByAccessibilityScoreRange(ctx context.Context, min, max float64) ([]terrain.Analysis, error) {
	return s.list(ctx, "analyses by accessibility score",
		`SELECT `+analysisColumns+` FROM geo.terrain_analyses
		WHERE accessibility_score BETWEEN $1 AND $2
		ORDER BY accessibility_score DESC, analysis_timestamp DESC`,
		min, max,
	)
}

// ByFloodRiskScoreRange returns analyses with min <= score <= max, riskiest first.
func (s *PostgresStore) ByFloodRiskScoreRange(ctx context.Context, min, max float64) ([]terrain.Analysis, error) {
	return s.list(ctx, "analyses by flood risk score",
		`SELECT `+analysisColumns+` FROM geo.terrain_analyses
		WHERE flood_risk_score BETWEEN $1 AND $2
		ORDER BY flood_risk_score DESC, analysis_timestamp DESC`,
		min, max,
	)
}

func (s *PostgresStore) list(ctx context.Context, what, query string, args ...any) ([]terrain.Analysis, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query %s", what)
	}
	defer rows.Close()

	var out []terrain.Analysis
	for rows.Next() {
		a, err := scanPostgresAnalysis(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", what)
		}
		out = append(out, *a)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: iterate %s", what)
}

func scanPostgresAnalysis(row pgx.Row) (*terrain.Analysis, error) {
	var a terrain.Analysis
	var area, metrics []byte
	var analysisType string
	if err := row.Scan(&a.ID, &area, &analysisType, &metrics, &a.AccessibilityScore, &a.FloodRiskScore, &a.AnalysisTimestamp); err != nil {
		return nil, err
	}
	if err := decodeRow(&a, area, metrics, analysisType); err != nil {
		return nil, err
	}
	return &a, nil
}
