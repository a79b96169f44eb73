package terrain

// Comparison selects how a band threshold is matched.
type Comparison int

const (
	// Above matches values strictly greater than the threshold.
	Above Comparison = iota
	// Below matches values strictly less than the threshold.
	Below
)

// Band is one threshold step of a BandedPenalty.
type Band struct {
	Threshold float64
	Weight    float64
}

// BandedPenalty scores a single metrics field against an ordered threshold ladder.
// Only the first matching band counts, so Bands must be listed most severe first:
// descending thresholds for Above, ascending for Below.
type BandedPenalty struct {
	Factor  string
	Value   func(Metrics) float64
	Compare Comparison
	Bands   []Band
}

// Apply returns the weight of the first matching band, or 0 when none match.
func (p BandedPenalty) Apply(m Metrics) float64 {
	if p.Value == nil {
		return 0
	}
	v := p.Value(m)
	for _, b := range p.Bands {
		if p.matches(v, b.Threshold) {
			return b.Weight
		}
	}
	return 0
}

func (p BandedPenalty) matches(v, threshold float64) bool {
	if p.Compare == Below {
		return v < threshold
	}
	return v > threshold
}

// AdditivePenalty sums the contributions of independent factors. Each factor
// contributes at most one band; contributions from different factors stack.
type AdditivePenalty []BandedPenalty

// Apply returns the summed contribution of every factor.
func (a AdditivePenalty) Apply(m Metrics) float64 {
	var total float64
	for _, p := range a {
		total += p.Apply(m)
	}
	return total
}

// Contributions returns the non-zero contribution of each factor keyed by name.
func (a AdditivePenalty) Contributions(m Metrics) map[string]float64 {
	out := make(map[string]float64, len(a))
	for _, p := range a {
		if w := p.Apply(m); w != 0 {
			out[p.Factor] += w
		}
	}
	return out
}
