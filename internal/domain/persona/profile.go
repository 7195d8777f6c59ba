package persona

import "sort"

// Tier buckets a relevance weight for display.
type Tier string

// Tier values.
const (
	TierStrong   Tier = "strong"
	TierModerate Tier = "moderate"
	TierWeak     Tier = "weak"
)

// Tier thresholds applied to min-max normalised weights.
const (
	StrongThreshold   = 0.75
	ModerateThreshold = 0.65
)

// Affinity is one persona's weight within a venue profile.
type Affinity struct {
	Persona    Persona
	Weight     float64
	Normalized float64
	Tier       Tier
}

// Profile ranks the scores of one venue, highest weight first.
// Normalisation is min-max across the venue's own weights; a flat vector normalises to 0.
func Profile(s Scores) []Affinity {
	lo, hi := s.weights[0], s.weights[0]
	for _, w := range s.weights[1:] {
		lo = min(lo, w)
		hi = max(hi, w)
	}
	spread := hi - lo

	out := make([]Affinity, 0, Count)
	s.Each(func(p Persona, w float64) {
		n := 0.0
		if spread > 0 {
			n = (w - lo) / spread
		}
		out = append(out, Affinity{Persona: p, Weight: w, Normalized: n, Tier: tierFor(n)})
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

func tierFor(n float64) Tier {
	switch {
	case n >= StrongThreshold:
		return TierStrong
	case n >= ModerateThreshold:
		return TierModerate
	default:
		return TierWeak
	}
}
