package terrain

func slopeMaximum(m Metrics) float64      { return m.SlopeMaximum }
func roughnessIndex(m Metrics) float64    { return m.RoughnessIndex }
func avgElevation(m Metrics) float64      { return m.AvgElevation }
func elevationVariance(m Metrics) float64 { return m.ElevationVariance }

// SlopePenalty is the accessibility penalty for steep terrain.
var SlopePenalty = BandedPenalty{
	Factor:  "slope_maximum",
	Value:   slopeMaximum,
	Compare: Above,
	Bands:   []Band{{Threshold: 30, Weight: 0.5}, {Threshold: 15, Weight: 0.3}, {Threshold: 5, Weight: 0.1}},
}

// RoughnessPenalty is the accessibility penalty for irregular terrain.
var RoughnessPenalty = BandedPenalty{
	Factor:  "roughness_index",
	Value:   roughnessIndex,
	Compare: Above,
	Bands:   []Band{{Threshold: 100, Weight: 0.3}, {Threshold: 50, Weight: 0.2}, {Threshold: 20, Weight: 0.1}},
}

// TypePenalties holds the extra slope penalty applied per analysis type.
var TypePenalties = map[AnalysisType]BandedPenalty{
	EmergencyResponse: {
		Factor: "emergency_response_slope", Value: slopeMaximum, Compare: Above,
		Bands: []Band{{Threshold: 10, Weight: 0.2}},
	},
	Routing: {
		Factor: "routing_slope", Value: slopeMaximum, Compare: Above,
		Bands: []Band{{Threshold: 20, Weight: 0.2}},
	},
	Accessibility: {
		Factor: "accessibility_slope", Value: slopeMaximum, Compare: Above,
		Bands: []Band{{Threshold: 5, Weight: 0.3}},
	},
}

// FloodRiskPolicy adds up low elevation, flatness and low variance.
// It is the same for every analysis type.
var FloodRiskPolicy = AdditivePenalty{
	{
		Factor: "low_elevation", Value: avgElevation, Compare: Below,
		Bands: []Band{{Threshold: 10, Weight: 0.8}, {Threshold: 50, Weight: 0.5}, {Threshold: 100, Weight: 0.2}},
	},
	{
		Factor: "flatness", Value: slopeMaximum, Compare: Below,
		Bands: []Band{{Threshold: 2, Weight: 0.3}, {Threshold: 5, Weight: 0.1}},
	},
	{
		Factor: "low_variance", Value: elevationVariance, Compare: Below,
		Bands: []Band{{Threshold: 100, Weight: 0.2}},
	},
}

// AccessibilityPolicy returns the penalties subtracted from a perfect
// accessibility score for analysis type t.
func AccessibilityPolicy(t AnalysisType) AdditivePenalty {
	policy := AdditivePenalty{SlopePenalty, RoughnessPenalty}
	if p, ok := TypePenalties[t]; ok {
		policy = append(policy, p)
	}
	return policy
}

// AccessibilityScore rates how traversable an area is, in [0, 1]. Lower is harder.
func AccessibilityScore(m Metrics, t AnalysisType) float64 {
	return clamp(1-AccessibilityPolicy(t).Apply(m), 0, 1)
}

// FloodRiskScore rates flood susceptibility in [0, 1]. The analysis type is
// accepted for symmetry with AccessibilityScore but does not change the result.
func FloodRiskScore(m Metrics, _ AnalysisType) float64 {
	return clamp(FloodRiskPolicy.Apply(m), 0, 1)
}
