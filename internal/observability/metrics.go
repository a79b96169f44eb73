// Package observability exposes Prometheus metrics for terrain analyses and
// the HTTP API.
package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// AnalysisCollector bundles the terrain metrics. It implements
// terrain.Recorder.
type AnalysisCollector struct {
	gatherer prometheus.Gatherer

	Analyses        *prometheus.CounterVec
	AnalysisSeconds *prometheus.HistogramVec
	Samples         prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
}

// NewAnalysisCollector registers the terrain metrics against reg, defaulting
// to the global Prometheus registry when nil. Registering twice against the
// same registry returns the existing collectors.
func NewAnalysisCollector(reg prometheus.Registerer) (*AnalysisCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	analyses, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_analyses_total",
		Help: "Terrain analyses attempted, labeled by analysis type and outcome (ok, no_data, error).",
	}, []string{"type", "outcome"}))
	if err != nil {
		return nil, err
	}

	seconds, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "terrain_analysis_duration_seconds",
		Help:    "Time to fetch samples and compute one analysis.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	samples, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "terrain_analysis_samples",
		Help:    "Elevation samples per analysed area.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}))
	if err != nil {
		return nil, err
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_http_requests_total",
		Help: "HTTP API requests, labeled by method, route pattern and status code.",
	}, []string{"method", "route", "code"}))
	if err != nil {
		return nil, err
	}

	return &AnalysisCollector{
		gatherer:        gatherer,
		Analyses:        analyses,
		AnalysisSeconds: seconds,
		Samples:         samples,
		HTTPRequests:    requests,
	}, nil
}

// RecordAnalysis counts one analysis attempt. Durations and sample counts
// are only observed for completed analyses.
func (c *AnalysisCollector) RecordAnalysis(t terrain.AnalysisType, outcome string, samples int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Analyses.WithLabelValues(string(t), outcome).Inc()
	if outcome != terrain.OutcomeOK {
		return
	}
	c.AnalysisSeconds.WithLabelValues(string(t)).Observe(elapsed.Seconds())
	c.Samples.Observe(float64(samples))
}

// RecordRequest counts one HTTP request.
func (c *AnalysisCollector) RecordRequest(method, route string, code int) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *AnalysisCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, eris.Errorf("observability: collector already registered with incompatible type: %v", err)
		}
		var zero C
		return zero, eris.Wrap(err, "observability: register collector")
	}
	return c, nil
}
