// Package terrain computes terrain descriptors from elevation samples and scores
// areas for accessibility and flood risk.
package terrain

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ElevationSample is a single known elevation at a lng/lat location.
type ElevationSample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Elevation float64 `json:"elevation"`
}

// Metrics summarizes a set of elevation samples. Slopes and aspects are in degrees.
type Metrics struct {
	MinElevation      float64 `json:"min_elevation"`
	MaxElevation      float64 `json:"max_elevation"`
	AvgElevation      float64 `json:"avg_elevation"`
	ElevationVariance float64 `json:"elevation_variance"`
	SlopeAverage      float64 `json:"slope_average"`
	SlopeMaximum      float64 `json:"slope_maximum"`
	AspectAverage     float64 `json:"aspect_average"`
	RoughnessIndex    float64 `json:"roughness_index"`
}

// AnalysisType selects the scoring policy variant applied to an analysis.
type AnalysisType string

// Analysis types.
const (
	EmergencyResponse AnalysisType = "EMERGENCY_RESPONSE"
	Routing           AnalysisType = "ROUTING"
	Accessibility     AnalysisType = "ACCESSIBILITY"
)

// AnalysisTypes lists every supported analysis type.
var AnalysisTypes = []AnalysisType{EmergencyResponse, Routing, Accessibility}

// Valid reports whether t is one of the known analysis types.
func (t AnalysisType) Valid() bool {
	switch t {
	case EmergencyResponse, Routing, Accessibility:
		return true
	default:
		return false
	}
}

// ParseAnalysisType parses a case-insensitive analysis type name.
// Dashes are accepted in place of underscores ("emergency-response").
func ParseAnalysisType(s string) (AnalysisType, error) {
	t := AnalysisType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !t.Valid() {
		return "", eris.Wrapf(ErrInvalidAnalysisType, "terrain: parse analysis type %q", s)
	}
	return t, nil
}

// Analysis is the persisted result of one terrain analysis request.
type Analysis struct {
	ID                 string        `json:"id"`
	Area               *geom.Polygon `json:"-"`
	AnalysisType       AnalysisType  `json:"analysis_type"`
	Metrics            Metrics       `json:"metrics"`
	AccessibilityScore float64       `json:"accessibility_score"`
	FloodRiskScore     float64       `json:"flood_risk_score"`
	AnalysisTimestamp  time.Time     `json:"analysis_timestamp"`
}
