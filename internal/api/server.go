// Package api serves terrain analyses over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// Service is the analysis surface the API exposes. *terrain.Analyzer satisfies it.
type Service interface {
	Analyze(ctx context.Context, area *geom.Polygon, t terrain.AnalysisType) (*terrain.Analysis, error)
	Assess(ctx context.Context, area *geom.Polygon, t terrain.AnalysisType) (*terrain.Analysis, error)
	MostRecentForPoint(ctx context.Context, x, y float64) (*terrain.Analysis, error)
	Intersecting(ctx context.Context, area *geom.Polygon) ([]terrain.Analysis, error)
	FindAccessibleAreas(ctx context.Context, minScore, maxSlope float64) ([]terrain.Analysis, error)
	FindFloodProneAreas(ctx context.Context, minScore float64) ([]terrain.Analysis, error)
}

// Lookup fetches a stored analysis by ID.
type Lookup interface {
	Get(ctx context.Context, id string) (*terrain.Analysis, error)
}

// RequestRecorder counts served requests by route pattern.
type RequestRecorder interface {
	RecordRequest(method, route string, code int)
}

// Options configures a Server. Zero values disable the optional pieces.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	Requests RequestRecorder
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Ping backs /health. Nil reports healthy.
	Ping func(ctx context.Context) error
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc    Service
	lookup Lookup
	opts   Options
	log    *zap.Logger
}

// New creates a Server. lookup may be nil, in which case GET /analyses/{id} returns 404.
func New(svc Service, lookup Lookup, opts Options) *Server {
	return &Server{
		svc:    svc,
		lookup: lookup,
		opts:   opts,
		log:    zap.L().With(zap.String("component", "api")),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.opts.RateLimitRPS > 0 {
			r.Use(rateLimit(s.opts.RateLimitRPS, s.opts.RateLimitBurst))
		}
		r.Post("/analyses", s.handleCreate)
		r.Get("/analyses/point", s.handlePoint)
		r.Post("/analyses/intersecting", s.handleIntersecting)
		r.Get("/analyses/accessible", s.handleAccessible)
		r.Get("/analyses/flood-prone", s.handleFloodProne)
		r.Get("/analyses/{id}", s.handleGet)
	})
	return r
}

// NewHTTPServer wraps h with the timeouts used by the serve command.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

// rateLimit rejects requests over a shared token bucket with 429.
func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		if s.opts.Requests != nil {
			s.opts.Requests.RecordRequest(r.Method, route, status)
		}
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
