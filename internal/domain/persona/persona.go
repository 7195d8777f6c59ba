// Package persona defines the closed set of persona archetypes and their relevance scores.
package persona

import (
	"fmt"
	"math"
)

// Persona is one of the fixed user archetypes a venue is scored against.
type Persona string

// The persona archetypes in their canonical order.
const (
	SocialButterfly          Persona = "socialButterfly"
	CulinaryExplorer         Persona = "culinaryExplorer"
	BeautyFashionAficionado  Persona = "beautyFashionAficionado"
	FamilyOrientedIndividual Persona = "familyOrientedIndividual"
	ArtCultureEnthusiast     Persona = "artCultureEnthusiast"
	WellnessSelfCareAdvocate Persona = "wellnessSelfCareAdvocate"
	AdventurerExplorer       Persona = "adventurerExplorer"
	EcoConsciousConsumer     Persona = "ecoConsciousConsumer"
)

// Count is the number of personas.
const Count = 8

var all = [Count]Persona{
	SocialButterfly,
	CulinaryExplorer,
	BeautyFashionAficionado,
	FamilyOrientedIndividual,
	ArtCultureEnthusiast,
	WellnessSelfCareAdvocate,
	AdventurerExplorer,
	EcoConsciousConsumer,
}

// All returns every persona in canonical order.
func All() []Persona {
	out := make([]Persona, Count)
	copy(out, all[:])
	return out
}

// Parse converts an identifier into a Persona.
func Parse(s string) (Persona, error) {
	for _, p := range all {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown persona %q", s)
}

// String returns the persona identifier.
func (p Persona) String() string { return string(p) }

func (p Persona) index() int {
	for i, q := range all {
		if q == p {
			return i
		}
	}
	return -1
}

// Scores holds one relevance weight per persona.
// The zero value is the all-zero score vector.
type Scores struct {
	weights [Count]float64
}

// NewScores builds Scores from a persona->weight map. Every persona must be present
// and every weight must lie in [0,1].
func NewScores(m map[Persona]float64) (Scores, error) {
	var s Scores
	for i, p := range all {
		w, ok := m[p]
		if !ok {
			return Scores{}, fmt.Errorf("missing score for persona %s", p)
		}
		if err := ValidateWeight(w); err != nil {
			return Scores{}, fmt.Errorf("persona %s: %w", p, err)
		}
		s.weights[i] = w
	}
	return s, nil
}

// Get returns the weight for p. Unknown personas return 0.
func (s Scores) Get(p Persona) float64 {
	i := p.index()
	if i < 0 {
		return 0
	}
	return s.weights[i]
}

// Each calls fn for every persona in canonical order.
func (s Scores) Each(fn func(p Persona, weight float64)) {
	for i, p := range all {
		fn(p, s.weights[i])
	}
}

// Map returns the scores keyed by persona identifier.
func (s Scores) Map() map[string]float64 {
	out := make(map[string]float64, Count)
	for i, p := range all {
		out[string(p)] = s.weights[i]
	}
	return out
}

// IsZero reports whether every weight is zero.
func (s Scores) IsZero() bool {
	for _, w := range s.weights {
		if w != 0 {
			return false
		}
	}
	return true
}

// ValidateWeight checks that w is a finite number in [0,1].
func ValidateWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Errorf("weight must be finite, got %v", w)
	}
	if w < 0 || w > 1 {
		return fmt.Errorf("weight must be in [0,1], got %v", w)
	}
	return nil
}

// Sigmoid maps a raw logit to an independent relevance weight in [0,1].
func Sigmoid(logit float64) float64 {
	return 1 / (1 + math.Exp(-logit))
}
