package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/elevation"
	"github.com/sells-group/terrain-cli/internal/store"
	"github.com/sells-group/terrain-cli/internal/terrain"
)

const maxBodyBytes = 1 << 20

var errBadRequest = eris.New("api: bad request")

// analysisRequest is the body of POST /api/v1/analyses.
type analysisRequest struct {
	Type   string          `json:"type"`
	Area   json.RawMessage `json:"area"`
	DryRun bool            `json:"dry_run"`
}

// areaRequest is the body of POST /api/v1/analyses/intersecting.
type areaRequest struct {
	Area json.RawMessage `json:"area"`
}

// analysisResponse is an analysis with its area rendered as GeoJSON.
type analysisResponse struct {
	ID                 string               `json:"id,omitempty"`
	AnalysisType       terrain.AnalysisType `json:"analysis_type"`
	Area               json.RawMessage      `json:"area"`
	Metrics            terrain.Metrics      `json:"metrics"`
	AccessibilityScore float64              `json:"accessibility_score"`
	FloodRiskScore     float64              `json:"flood_risk_score"`
	AnalysisTimestamp  time.Time            `json:"analysis_timestamp"`
}

func toResponse(a *terrain.Analysis) (analysisResponse, error) {
	area, err := terrain.PolygonGeoJSON(a.Area)
	if err != nil {
		return analysisResponse{}, err
	}
	return analysisResponse{
		ID:                 a.ID,
		AnalysisType:       a.AnalysisType,
		Area:               area,
		Metrics:            a.Metrics,
		AccessibilityScore: a.AccessibilityScore,
		FloodRiskScore:     a.FloodRiskScore,
		AnalysisTimestamp:  a.AnalysisTimestamp,
	}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ping != nil {
		if err := s.opts.Ping(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	t, err := terrain.ParseAnalysisType(req.Type)
	if err != nil {
		s.fail(w, err)
		return
	}
	area, err := terrain.ParsePolygonGeoJSON(req.Area)
	if err != nil {
		s.fail(w, eris.Wrap(terrain.ErrInvalidArea, err.Error()))
		return
	}

	dryRun := req.DryRun
	if v := r.URL.Query().Get("dry_run"); v != "" {
		if dryRun, err = strconv.ParseBool(v); err != nil {
			s.fail(w, eris.Wrapf(errBadRequest, "dry_run: %q", v))
			return
		}
	}

	var a *terrain.Analysis
	if dryRun {
		a, err = s.svc.Assess(r.Context(), area, t)
	} else {
		a, err = s.svc.Analyze(r.Context(), area, t)
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	status := http.StatusCreated
	if dryRun {
		status = http.StatusOK
	}
	s.writeAnalysis(w, status, a)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.lookup == nil {
		s.fail(w, store.ErrNotFound)
		return
	}
	a, err := s.lookup.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeAnalysis(w, http.StatusOK, a)
}

func (s *Server) handlePoint(w http.ResponseWriter, r *http.Request) {
	lng, err := floatParam(r, "lng")
	if err != nil {
		s.fail(w, err)
		return
	}
	lat, err := floatParam(r, "lat")
	if err != nil {
		s.fail(w, err)
		return
	}
	a, err := s.svc.MostRecentForPoint(r.Context(), lng, lat)
	if err != nil {
		s.fail(w, err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "no analysis covers the point")
		return
	}
	s.writeAnalysis(w, http.StatusOK, a)
}

func (s *Server) handleIntersecting(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	area, err := terrain.ParsePolygonGeoJSON(req.Area)
	if err != nil {
		s.fail(w, eris.Wrap(terrain.ErrInvalidArea, err.Error()))
		return
	}
	list, err := s.svc.Intersecting(r.Context(), area)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeList(w, list)
}

func (s *Server) handleAccessible(w http.ResponseWriter, r *http.Request) {
	minScore, err := floatParam(r, "min_score")
	if err != nil {
		s.fail(w, err)
		return
	}
	maxSlope, err := floatParam(r, "max_slope")
	if err != nil {
		s.fail(w, err)
		return
	}
	list, err := s.svc.FindAccessibleAreas(r.Context(), minScore, maxSlope)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeList(w, list)
}

func (s *Server) handleFloodProne(w http.ResponseWriter, r *http.Request) {
	minScore, err := floatParam(r, "min_score")
	if err != nil {
		s.fail(w, err)
		return
	}
	list, err := s.svc.FindFloodProneAreas(r.Context(), minScore)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeList(w, list)
}

func (s *Server) writeAnalysis(w http.ResponseWriter, status int, a *terrain.Analysis) {
	resp, err := toResponse(a)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) writeList(w http.ResponseWriter, list []terrain.Analysis) {
	out := make([]analysisResponse, 0, len(list))
	for i := range list {
		resp, err := toResponse(&list[i])
		if err != nil {
			s.fail(w, err)
			return
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(out),
		"analyses": out,
	})
}

// fail maps err onto an HTTP status and writes a JSON error body.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Int("status", status), zap.Error(err))
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, terrain.ErrNoElevationData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, terrain.ErrInvalidArea),
		errors.Is(err, terrain.ErrInvalidAnalysisType),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, elevation.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return eris.Wrapf(errBadRequest, "invalid request body: %v", err)
	}
	return nil
}

func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, eris.Wrapf(errBadRequest, "%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(errBadRequest, "%s: %q is not a number", name, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
