// Package store persists terrain analyses in PostGIS or a local SQLite file.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// ErrNotFound is returned by Get when no analysis has the requested ID.
var ErrNotFound = eris.New("store: analysis not found")

// Store is the analysis repository used by the CLI and the API.
type Store interface {
	terrain.Store

	Get(ctx context.Context, id string) (*terrain.Analysis, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// prepare validates a and returns a copy with ID and timestamp filled in.
func prepare(a *terrain.Analysis) (*terrain.Analysis, error) {
	if a == nil {
		return nil, eris.New("store: nil analysis")
	}
	if a.Area == nil {
		return nil, eris.Wrap(terrain.ErrInvalidArea, "store: analysis has no area")
	}
	if !a.AnalysisType.Valid() {
		return nil, eris.Wrapf(terrain.ErrInvalidAnalysisType, "store: %q", a.AnalysisType)
	}
	out := *a
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.AnalysisTimestamp.IsZero() {
		out.AnalysisTimestamp = time.Now()
	}
	out.AnalysisTimestamp = out.AnalysisTimestamp.UTC()
	return &out, nil
}

func marshalMetrics(m terrain.Metrics) ([]byte, error) {
	data, err := json.Marshal(m)
	return data, eris.Wrap(err, "store: marshal metrics")
}

// decodeRow fills a from the column values shared by both backends.
func decodeRow(a *terrain.Analysis, areaWKB, metricsJSON []byte, analysisType string) error {
	area, err := terrain.ParsePolygonEWKB(areaWKB)
	if err != nil {
		return eris.Wrapf(err, "store: decode area of %s", a.ID)
	}
	a.Area = area
	a.AnalysisType = terrain.AnalysisType(analysisType)
	if err := json.Unmarshal(metricsJSON, &a.Metrics); err != nil {
		return eris.Wrapf(err, "store: decode metrics of %s", a.ID)
	}
	a.AnalysisTimestamp = a.AnalysisTimestamp.UTC()
	return nil
}
