package venue

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/personarec/internal/db/cypher"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
)

// Graph schema names.
const (
	LabelVenue          = "Venue"
	LabelPersona        = "Persona"
	RelPersonaRelevance = "PERSONA_RELEVANCE"
)

const listSeparator = ", "

const (
	fetchByIDsQuery = "MATCH (v:Venue) WHERE v.id IN $ids RETURN v"
	profileQuery    = "MATCH (v:Venue {id: $id})-[r:PERSONA_RELEVANCE]->(p:Persona) " +
		"RETURN p.value AS persona, r.weight AS weight"
)

func venueNode(id string) cypher.Node {
	return cypher.Node{Var: "v", Label: LabelVenue, Key: cypher.P("id", cypher.Text(id))}
}

func personaNode(p persona.Persona) cypher.Node {
	return cypher.Node{Var: "p", Label: LabelPersona, Key: cypher.P("value", cypher.Text(p.String()))}
}

// venueStatement merges the venue by id and overwrites every attribute.
func venueStatement(v domvenue.Venue) (cypher.Statement, error) {
	if err := v.Validate(); err != nil {
		return cypher.Statement{}, err //nolint:wrapcheck // domain error
	}
	return cypher.MergeNode(venueNode(v.ID),
		cypher.P("name", cypher.Text(v.Name)),
		cypher.P("url", cypher.Text(v.URL)),
		cypher.P("city", cypher.Text(v.City)),
		cypher.P("category", cypher.Text(v.Category)),
		cypher.P("thumbnail_url", cypher.Text(v.ThumbnailURL)),
		cypher.P("categories", cypher.Text(strings.Join(v.Categories, listSeparator))),
		cypher.P("features", cypher.Text(strings.Join(v.Features, listSeparator))),
		cypher.P("summary", cypher.Text(v.Summary)),
	)
}

func personaStatement(p persona.Persona) (cypher.Statement, error) {
	return cypher.MergeNode(personaNode(p))
}

func relevanceStatement(venueID string, p persona.Persona, weight float64) (cypher.Statement, error) {
	if strings.TrimSpace(venueID) == "" {
		return cypher.Statement{}, fmt.Errorf("venue id is required")
	}
	if err := persona.ValidateWeight(weight); err != nil {
		return cypher.Statement{}, fmt.Errorf("persona %s: %w", p, err)
	}
	return cypher.MergeEdge(venueNode(venueID), "r", RelPersonaRelevance, personaNode(p),
		cypher.P("weight", cypher.Number(weight)))
}

// venueGroup renders the statements written atomically for one scored venue:
// the venue, the 8 persona nodes and the 8 weighted edges.
func venueGroup(v domvenue.Venue, scores persona.Scores) ([]cypher.Statement, error) {
	group := make([]cypher.Statement, 0, 1+2*persona.Count)

	st, err := venueStatement(v)
	if err != nil {
		return nil, err
	}
	group = append(group, st)

	var buildErr error
	scores.Each(func(p persona.Persona, w float64) {
		if buildErr != nil {
			return
		}
		node, err := personaStatement(p)
		if err != nil {
			buildErr = err
			return
		}
		edge, err := relevanceStatement(v.ID, p, w)
		if err != nil {
			buildErr = err
			return
		}
		group = append(group, node, edge)
	})
	if buildErr != nil {
		return nil, buildErr
	}
	return group, nil
}
