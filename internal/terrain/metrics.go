package terrain

import "math"

// ComputeMetrics summarizes samples into a Metrics record.
//
// An empty slice yields the zero Metrics; callers that need to tell "no data"
// apart from "flat terrain" must check len(samples) first. Slope and aspect come
// from PathSlope, so sample order matters.
func ComputeMetrics(samples []ElevationSample, g Gradient) Metrics {
	if len(samples) == 0 {
		return Metrics{}
	}

	minElev := samples[0].Elevation
	maxElev := samples[0].Elevation
	var sum float64
	for _, s := range samples {
		minElev = math.Min(minElev, s.Elevation)
		maxElev = math.Max(maxElev, s.Elevation)
		sum += s.Elevation
	}
	n := float64(len(samples))
	avg := sum / n

	var sqDev float64
	for _, s := range samples {
		d := s.Elevation - avg
		sqDev += d * d
	}
	variance := sqDev / n

	path := PathSlope(samples, g)

	return Metrics{
		MinElevation:      minElev,
		MaxElevation:      maxElev,
		AvgElevation:      clamp(avg, minElev, maxElev),
		ElevationVariance: variance,
		SlopeAverage:      path.SlopeAverage,
		SlopeMaximum:      path.SlopeMaximum,
		AspectAverage:     path.AspectAverage,
		RoughnessIndex:    math.Sqrt(variance),
	}
}

// PathStats holds slope and aspect statistics along an ordered traversal.
type PathStats struct {
	Segments      int     `json:"segments"`
	SlopeAverage  float64 `json:"slope_average"`
	SlopeMaximum  float64 `json:"slope_maximum"`
	AspectAverage float64 `json:"aspect_average"`
}

// PathSlope computes slope and aspect between consecutive samples (i, i+1) in the
// order given. It is not an omnidirectional terrain derivative: reordering the
// same samples changes the result. Slopes are absolute; aspects keep their sign.
// Fewer than two samples yields zero stats.
func PathSlope(samples []ElevationSample, g Gradient) PathStats {
	if len(samples) < 2 {
		return PathStats{}
	}

	var slopeSum, slopeMax, aspectSum float64
	for i := 0; i < len(samples)-1; i++ {
		a, b := samples[i], samples[i+1]
		slope := math.Abs(g.Slope(a.X, a.Y, a.Elevation, b.X, b.Y, b.Elevation))
		slopeSum += slope
		slopeMax = math.Max(slopeMax, slope)
		aspectSum += g.Aspect(a.X, a.Y, b.X, b.Y)
	}

	segments := len(samples) - 1
	return PathStats{
		Segments:      segments,
		SlopeAverage:  slopeSum / float64(segments),
		SlopeMaximum:  slopeMax,
		AspectAverage: aspectSum / float64(segments),
	}
}

// PairwiseRoughness returns the mean absolute slope over every unordered pair of
// samples. Unlike PathSlope it does not depend on sample order. It is O(n²) and
// is not part of ComputeMetrics.
func PairwiseRoughness(samples []ElevationSample, g Gradient) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			a, b := samples[i], samples[j]
			sum += math.Abs(g.Slope(a.X, a.Y, a.Elevation, b.X, b.Y, b.Elevation))
			pairs++
		}
	}
	return sum / float64(pairs)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
