// Package memory holds in-process backends for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
)

// Graph is a map-backed graph store with merge-by-id semantics.
type Graph struct {
	mu       sync.RWMutex
	venues   map[string]domvenue.Venue
	edges    map[string]map[persona.Persona]float64
	personas map[persona.Persona]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		venues:   make(map[string]domvenue.Venue),
		edges:    make(map[string]map[persona.Persona]float64),
		personas: make(map[persona.Persona]struct{}),
	}
}

// SeedPersonas creates the persona nodes.
func (g *Graph) SeedPersonas(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range persona.All() {
		g.personas[p] = struct{}{}
	}
	return nil
}

// UpsertVenue merges the venue by id and overwrites its attributes. Existing edges are kept.
func (g *Graph) UpsertVenue(_ context.Context, v domvenue.Venue) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("venue %s: %w: %w", v.ID, domain.ErrGraphWrite, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.venues[v.ID] = v
	return nil
}

// UpsertPersonaRelevance sets the weight of the venue->persona edge.
// A missing venue is created with its id only, as a graph MERGE would.
func (g *Graph) UpsertPersonaRelevance(_ context.Context, venueID string, p persona.Persona, weight float64) error {
	if err := (domvenue.Venue{ID: venueID}).Validate(); err != nil {
		return fmt.Errorf("venue %s: %w: %w", venueID, domain.ErrGraphWrite, err)
	}
	if err := persona.ValidateWeight(weight); err != nil {
		return fmt.Errorf("venue %s: %w: %w", venueID, domain.ErrGraphWrite, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.venues[venueID]; !ok {
		g.venues[venueID] = domvenue.Venue{ID: venueID}
	}
	if g.edges[venueID] == nil {
		g.edges[venueID] = make(map[persona.Persona]float64, persona.Count)
	}
	g.edges[venueID][p] = weight
	g.personas[p] = struct{}{}
	return nil
}

// WriteVenues stores each venue with its persona edges. One entry per venue; nil means committed.
func (g *Graph) WriteVenues(ctx context.Context, items []domvenue.Scored) []error {
	errs := make([]error, len(items))
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			errs[i] = fmt.Errorf("venue %s: %w: %w", it.Venue.ID, domain.ErrGraphWrite, err)
			continue
		}
		if err := it.Venue.Validate(); err != nil {
			errs[i] = fmt.Errorf("venue %s: %w: %w", it.Venue.ID, domain.ErrGraphWrite, err)
			continue
		}
		g.venues[it.Venue.ID] = it.Venue
		edges := make(map[persona.Persona]float64, persona.Count)
		it.Scores.Each(func(p persona.Persona, w float64) {
			g.personas[p] = struct{}{}
			edges[p] = w
		})
		g.edges[it.Venue.ID] = edges
	}
	return errs
}

// FetchByIDs returns the known venues among ids.
func (g *Graph) FetchByIDs(_ context.Context, ids []string) ([]domvenue.Venue, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []domvenue.Venue
	for _, id := range ids {
		if v, ok := g.venues[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// PersonaProfile returns a copy of the venue's persona edges.
func (g *Graph) PersonaProfile(_ context.Context, venueID string) (map[persona.Persona]float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[persona.Persona]float64, persona.Count)
	for p, w := range g.edges[venueID] {
		out[p] = w
	}
	return out, nil
}

// Personas returns the number of persona nodes.
func (g *Graph) Personas() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.personas)
}

// Venues returns the number of venue nodes.
func (g *Graph) Venues() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.venues)
}

// Ping always succeeds.
func (g *Graph) Ping(_ context.Context) error { return nil }
