package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/config"
	"github.com/sells-group/terrain-cli/internal/elevation"
	"github.com/sells-group/terrain-cli/internal/observability"
	"github.com/sells-group/terrain-cli/internal/store"
	"github.com/sells-group/terrain-cli/internal/terrain"
)

const defaultSQLitePath = "terrain.db"

// terrainEnv holds the store, the elevation backend and the analyzer wired
// over them. Callers should defer env.Close().
type terrainEnv struct {
	Store    store.Store
	Samples  elevation.Repository
	Source   *elevation.GuardedSource
	Metrics  *observability.AnalysisCollector
	Analyzer *terrain.Analyzer
}

// Close releases the database handle.
func (e *terrainEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode, opens the configured backend, applies
// migrations and builds the analyzer.
func initEnv(ctx context.Context, c *config.Config, mode string) (*terrainEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st, samples, err := openBackend(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	if err := migrateBackend(ctx, st, samples); err != nil {
		_ = st.Close()
		return nil, err
	}

	metrics, err := observability.NewAnalysisCollector(prometheus.DefaultRegisterer)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init metrics")
	}

	source := elevation.NewGuardedSource(samples, elevation.BreakerConfig{
		FailureThreshold: c.Elevation.BreakerFailureThreshold,
		ResetTimeout:     time.Duration(c.Elevation.BreakerResetSecs) * time.Second,
	})
	analyzer := terrain.NewAnalyzer(source, st, terrain.AnalyzerOptions{
		FetchTimeout: time.Duration(c.Elevation.FetchTimeoutSecs) * time.Second,
		Recorder:     metrics,
	})

	zap.L().Debug("terrain environment ready",
		zap.String("driver", c.Store.Driver),
		zap.String("mode", mode),
	)

	return &terrainEnv{
		Store:    st,
		Samples:  samples,
		Source:   source,
		Metrics:  metrics,
		Analyzer: analyzer,
	}, nil
}

// openBackend opens the analysis store and the elevation sample repository on
// one shared connection.
func openBackend(ctx context.Context, sc config.StoreConfig) (store.Store, elevation.Repository, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		return st, elevation.NewSQLiteSource(st.DB(), ""), nil
	case "postgres":
		st, err := store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, elevation.NewPostgresSource(st.Pool(), ""), nil
	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// migrateBackend applies the store schema and, for backends that keep it
// separately, the sample table schema.
func migrateBackend(ctx context.Context, st store.Store, samples elevation.Repository) error {
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}
	if m, ok := samples.(interface{ Migrate(context.Context) error }); ok {
		if err := m.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate elevation samples")
		}
	}
	return nil
}
