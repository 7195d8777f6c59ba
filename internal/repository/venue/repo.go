// Package venue is the graph repository for venues and their persona relevance edges.
package venue

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/personarec/internal/db/cypher"
	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
)

// executor is the consumer interface for the graph client (ISP).
type executor interface {
	WriteGroups(ctx context.Context, groups [][]cypher.Statement) []error
	Query(ctx context.Context, st cypher.Statement) ([]map[string]any, error)
}

// Repo implements the graph store on top of a Cypher executor.
type Repo struct {
	exec executor
}

// New creates a graph repository.
func New(e executor) *Repo {
	return &Repo{exec: e}
}

// UpsertVenue merges the venue node by id and overwrites its attributes.
func (r *Repo) UpsertVenue(ctx context.Context, v domvenue.Venue) error {
	st, err := venueStatement(v)
	if err != nil {
		return fmt.Errorf("build venue statement: %w", err)
	}
	return r.writeOne(ctx, v.ID, []cypher.Statement{st})
}

// UpsertPersonaRelevance sets the weight of the venue->persona edge, creating it if absent.
func (r *Repo) UpsertPersonaRelevance(ctx context.Context, venueID string, p persona.Persona, weight float64) error {
	st, err := relevanceStatement(venueID, p, weight)
	if err != nil {
		return fmt.Errorf("build relevance statement: %w", err)
	}
	return r.writeOne(ctx, venueID, []cypher.Statement{st})
}

// SeedPersonas merges the persona nodes.
func (r *Repo) SeedPersonas(ctx context.Context) error {
	group := make([]cypher.Statement, 0, persona.Count)
	for _, p := range persona.All() {
		st, err := personaStatement(p)
		if err != nil {
			return fmt.Errorf("build persona statement: %w", err)
		}
		group = append(group, st)
	}
	return r.writeOne(ctx, "personas", group)
}

// WriteVenues writes each scored venue in its own transaction over one session.
// The result has one entry per venue; nil means the venue committed.
func (r *Repo) WriteVenues(ctx context.Context, items []domvenue.Scored) []error {
	errs := make([]error, len(items))
	groups := make([][]cypher.Statement, 0, len(items))
	pos := make([]int, 0, len(items))

	for i, it := range items {
		group, err := venueGroup(it.Venue, it.Scores)
		if err != nil {
			errs[i] = fmt.Errorf("venue %s: %w: %w", it.Venue.ID, domain.ErrGraphWrite, err)
			continue
		}
		groups = append(groups, group)
		pos = append(pos, i)
	}

	for j, err := range r.exec.WriteGroups(ctx, groups) {
		if err != nil {
			i := pos[j]
			errs[i] = fmt.Errorf("venue %s: %w: %w", items[i].Venue.ID, domain.ErrGraphWrite, err)
		}
	}
	return errs
}

// FetchByIDs returns the venues with the given ids in unspecified order.
// Unknown ids are absent from the result.
func (r *Repo) FetchByIDs(ctx context.Context, ids []string) ([]domvenue.Venue, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.exec.Query(ctx, cypher.Statement{
		Text:   fetchByIDsQuery,
		Params: map[string]any{"ids": ids},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch venues: %w: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]domvenue.Venue, 0, len(rows))
	for _, row := range rows {
		props, ok := row["v"].(map[string]any)
		if !ok {
			continue
		}
		out = append(out, venueFromProps(props))
	}
	return out, nil
}

// PersonaProfile returns the persona weights attached to a venue.
// A venue without edges yields an empty map.
func (r *Repo) PersonaProfile(ctx context.Context, venueID string) (map[persona.Persona]float64, error) {
	rows, err := r.exec.Query(ctx, cypher.Statement{
		Text:   profileQuery,
		Params: map[string]any{"id": venueID},
	})
	if err != nil {
		return nil, fmt.Errorf("persona profile: %w: %w", domain.ErrStoreUnavailable, err)
	}

	out := make(map[persona.Persona]float64, persona.Count)
	for _, row := range rows {
		name, _ := row["persona"].(string)
		p, err := persona.Parse(name)
		if err != nil {
			continue
		}
		if w, ok := toFloat(row["weight"]); ok {
			out[p] = w
		}
	}
	return out, nil
}

func (r *Repo) writeOne(ctx context.Context, id string, group []cypher.Statement) error {
	errs := r.exec.WriteGroups(ctx, [][]cypher.Statement{group})
	if len(errs) == 1 && errs[0] != nil {
		return fmt.Errorf("write %s: %w: %w", id, domain.ErrGraphWrite, errs[0])
	}
	return nil
}

func venueFromProps(p map[string]any) domvenue.Venue {
	str := func(k string) string {
		s, _ := p[k].(string)
		return s
	}
	return domvenue.Venue{
		ID:           str("id"),
		Name:         str("name"),
		URL:          str("url"),
		City:         str("city"),
		Category:     str("category"),
		ThumbnailURL: str("thumbnail_url"),
		Categories:   splitList(str("categories")),
		Features:     splitList(str("features")),
		Summary:      str("summary"),
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
