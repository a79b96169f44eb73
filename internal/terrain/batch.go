package terrain

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// BatchJob is one area to analyze in a batch run.
type BatchJob struct {
	Name string       `yaml:"name"`
	Type AnalysisType `yaml:"type"`
	WKT  string       `yaml:"wkt"`
}

// BatchResult is the outcome of one BatchJob. Exactly one of Analysis and Err is set.
type BatchResult struct {
	Job      BatchJob
	Analysis *Analysis
	Err      error
}

type batchFile struct {
	Areas []BatchJob `yaml:"areas"`
}

// LoadBatchFile reads a YAML file with a top-level "areas" list.
func LoadBatchFile(path string) ([]BatchJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "terrain: read batch file %s", path)
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "terrain: parse batch file %s", path)
	}
	for i := range f.Areas {
		t, err := ParseAnalysisType(string(f.Areas[i].Type))
		if err != nil {
			return nil, eris.Wrapf(err, "terrain: batch area %d (%s)", i, f.Areas[i].Name)
		}
		f.Areas[i].Type = t
	}
	return f.Areas, nil
}

// AnalyzeFunc runs a single analysis. (*Analyzer).Analyze and (*Analyzer).Assess both match.
type AnalyzeFunc func(ctx context.Context, area *geom.Polygon, t AnalysisType) (*Analysis, error)

// RunBatch analyzes jobs with at most concurrency analyses in flight. A failing
// job does not stop the batch; its error is reported in the matching result.
// Results are returned in job order.
func RunBatch(ctx context.Context, jobs []BatchJob, concurrency int, analyze AnalyzeFunc) []BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]BatchResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for i, job := range jobs {
		g.Go(func() error {
			log := zap.L().With(zap.String("component", "terrain.batch"), zap.String("area", job.Name))
			results[i].Job = job

			area, err := ParsePolygonWKT(job.WKT)
			if err == nil {
				results[i].Analysis, err = analyze(gctx, area, job.Type)
			}
			if err != nil {
				failed.Add(1)
				results[i].Err = err
				log.Error("batch analysis failed", zap.Error(err))
				return nil
			}

			succeeded.Add(1)
			log.Info("batch analysis complete",
				zap.Float64("accessibility_score", results[i].Analysis.AccessibilityScore),
				zap.Float64("flood_risk_score", results[i].Analysis.FloodRiskScore),
			)
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results
}
