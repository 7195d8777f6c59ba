package personarec

import (
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	domrec "github.com/kailas-cloud/personarec/internal/domain/recommend"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
	"github.com/kailas-cloud/personarec/internal/usecase/ingest"
)

type (
	// Persona is one of the fixed user archetypes.
	Persona = persona.Persona
	// Affinity is a persona weight with its display tier.
	Affinity = persona.Affinity
	// Venue is a place to ingest and recommend.
	Venue = domvenue.Venue
	// Recommendation is one recommended venue.
	Recommendation = domrec.Result
	// IngestStep is one idempotent stage of ingestion.
	IngestStep = ingest.Step
	// IngestSummary reports the outcome of an ingestion run.
	IngestSummary = ingest.Summary
)

// Ingestion steps in execution order.
const (
	StepSeedPersonas = ingest.StepSeedPersonas
	StepGraph        = ingest.StepGraph
	StepVectors      = ingest.StepVectors
)

// Personas returns every persona in canonical order.
func Personas() []Persona { return persona.All() }

// RecommendRequest is a recommendation query. TopK 0 means the default of 10.
type RecommendRequest struct {
	Text     string
	City     string
	Category string
	TopK     int
}

// VenueProfile is a venue with its persona affinities, strongest first.
type VenueProfile struct {
	Venue      Venue
	Affinities []Affinity
}
