package terrain

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// PointSource supplies elevation samples and the two-point gradient primitives.
type PointSource interface {
	Gradient

	// PointsInBounds returns every known sample inside b, in traversal order.
	PointsInBounds(ctx context.Context, b Bounds) ([]ElevationSample, error)
}

// Store persists analyses and answers spatial and score-range queries.
type Store interface {
	// Save persists a, assigning an ID and timestamp when absent, and returns the stored record.
	Save(ctx context.Context, a *Analysis) (*Analysis, error)

	// MostRecentForPoint returns the newest analysis whose area contains (x, y),
	// or nil when there is none.
	MostRecentForPoint(ctx context.Context, x, y float64) (*Analysis, error)

	// Intersecting returns analyses whose area intersects area.
	Intersecting(ctx context.Context, area *geom.Polygon) ([]Analysis, error)

	// ByAccessibilityScoreRange returns analyses with min <= accessibility score <= max.
	ByAccessibilityScoreRange(ctx context.Context, min, max float64) ([]Analysis, error)

	// ByFloodRiskScoreRange returns analyses with min <= flood risk score <= max.
	ByFloodRiskScoreRange(ctx context.Context, min, max float64) ([]Analysis, error)
}

// Analysis outcomes reported to a Recorder.
const (
	OutcomeOK     = "ok"
	OutcomeNoData = "no_data"
	OutcomeError  = "error"
)

// Recorder observes completed analyses.
type Recorder interface {
	RecordAnalysis(t AnalysisType, outcome string, samples int, elapsed time.Duration)
}

// AnalyzerOptions tunes an Analyzer. Zero values are usable.
type AnalyzerOptions struct {
	// FetchTimeout bounds the elevation sample fetch. Zero means no extra deadline.
	FetchTimeout time.Duration
	Recorder     Recorder
	Now          func() time.Time
}

// Analyzer runs terrain analyses against a point source and an analysis store.
// It holds no per-analysis state and is safe for concurrent use.
type Analyzer struct {
	source PointSource
	store  Store
	opts   AnalyzerOptions
}

// NewAnalyzer creates an Analyzer. store may be nil when only Assess is used.
func NewAnalyzer(source PointSource, store Store, opts AnalyzerOptions) *Analyzer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{source: source, store: store, opts: opts}
}

// Analyze computes and stores an analysis of area. It returns ErrNoElevationData,
// without writing to the store, when no samples fall inside the area's envelope.
func (a *Analyzer) Analyze(ctx context.Context, area *geom.Polygon, t AnalysisType) (*Analysis, error) {
	if a.store == nil {
		return nil, eris.New("terrain: analyzer has no store")
	}
	start := time.Now()
	result, n, err := a.assess(ctx, area, t, start)
	if err != nil {
		return nil, err
	}
	saved, err := a.store.Save(ctx, result)
	if err != nil {
		a.record(t, OutcomeError, n, start)
		return nil, eris.Wrap(err, "terrain: save analysis")
	}
	a.record(t, OutcomeOK, n, start)
	return saved, nil
}

// Assess computes an analysis of area without persisting it.
func (a *Analyzer) Assess(ctx context.Context, area *geom.Polygon, t AnalysisType) (*Analysis, error) {
	start := time.Now()
	result, n, err := a.assess(ctx, area, t, start)
	if err != nil {
		return nil, err
	}
	a.record(t, OutcomeOK, n, start)
	return result, nil
}

// assess computes an analysis and the number of samples it used. Failures are
// recorded here; success is left to the caller.
func (a *Analyzer) assess(ctx context.Context, area *geom.Polygon, t AnalysisType, start time.Time) (*Analysis, int, error) {
	if !t.Valid() {
		return nil, 0, eris.Wrapf(ErrInvalidAnalysisType, "terrain: analysis type %q", t)
	}
	env, err := Envelope(area)
	if err != nil {
		return nil, 0, err
	}

	// Samples are selected by bounding envelope, not polygon membership: points
	// outside a concave or rotated area but inside its box are included.
	samples, err := a.fetch(ctx, env)
	if err != nil {
		a.record(t, OutcomeError, 0, start)
		return nil, 0, err
	}

	log := zap.L().With(zap.String("component", "terrain.analyzer"), zap.String("type", string(t)))
	if len(samples) == 0 {
		a.record(t, OutcomeNoData, 0, start)
		log.Warn("no elevation samples in envelope",
			zap.Float64("min_x", env.MinX), zap.Float64("min_y", env.MinY),
			zap.Float64("max_x", env.MaxX), zap.Float64("max_y", env.MaxY),
		)
		return nil, 0, ErrNoElevationData
	}

	m := ComputeMetrics(samples, a.source)
	result := &Analysis{
		Area:               area,
		AnalysisType:       t,
		Metrics:            m,
		AccessibilityScore: AccessibilityScore(m, t),
		FloodRiskScore:     FloodRiskScore(m, t),
		AnalysisTimestamp:  a.opts.Now().UTC(),
	}

	log.Info("terrain analysis complete",
		zap.Int("samples", len(samples)),
		zap.Float64("accessibility_score", result.AccessibilityScore),
		zap.Float64("flood_risk_score", result.FloodRiskScore),
	)
	return result, len(samples), nil
}

func (a *Analyzer) fetch(ctx context.Context, env Bounds) ([]ElevationSample, error) {
	if a.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.FetchTimeout)
		defer cancel()
	}
	samples, err := a.source.PointsInBounds(ctx, env)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: fetch elevation samples")
	}
	return samples, nil
}

func (a *Analyzer) record(t AnalysisType, outcome string, samples int, start time.Time) {
	if a.opts.Recorder != nil {
		a.opts.Recorder.RecordAnalysis(t, outcome, samples, time.Since(start))
	}
}

// FindAccessibleAreas returns stored analyses with an accessibility score of at
// least minScore whose maximum slope does not exceed maxSlope.
func (a *Analyzer) FindAccessibleAreas(ctx context.Context, minScore, maxSlope float64) ([]Analysis, error) {
	if a.store == nil {
		return nil, eris.New("terrain: analyzer has no store")
	}
	candidates, err := a.store.ByAccessibilityScoreRange(ctx, minScore, 1)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: find accessible areas")
	}
	out := make([]Analysis, 0, len(candidates))
	for _, c := range candidates {
		if c.Metrics.SlopeMaximum <= maxSlope {
			out = append(out, c)
		}
	}
	return out, nil
}

// FindFloodProneAreas returns stored analyses with a flood risk score of at least minScore.
func (a *Analyzer) FindFloodProneAreas(ctx context.Context, minScore float64) ([]Analysis, error) {
	if a.store == nil {
		return nil, eris.New("terrain: analyzer has no store")
	}
	out, err := a.store.ByFloodRiskScoreRange(ctx, minScore, 1)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: find flood prone areas")
	}
	return out, nil
}

// MostRecentForPoint returns the newest stored analysis covering (x, y), or nil.
func (a *Analyzer) MostRecentForPoint(ctx context.Context, x, y float64) (*Analysis, error) {
	if a.store == nil {
		return nil, eris.New("terrain: analyzer has no store")
	}
	out, err := a.store.MostRecentForPoint(ctx, x, y)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: most recent for point")
	}
	return out, nil
}

// Intersecting returns stored analyses whose area intersects area.
func (a *Analyzer) Intersecting(ctx context.Context, area *geom.Polygon) ([]Analysis, error) {
	if a.store == nil {
		return nil, eris.New("terrain: analyzer has no store")
	}
	if area == nil || area.Empty() {
		return nil, ErrInvalidArea
	}
	out, err := a.store.Intersecting(ctx, area)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: intersecting analyses")
	}
	return out, nil
}
