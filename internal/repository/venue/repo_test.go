package venue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
)

func uniformScores(t *testing.T, w float64) persona.Scores {
	t.Helper()
	m := make(map[persona.Persona]float64, persona.Count)
	for _, p := range persona.All() {
		m[p] = w
	}
	s, err := persona.NewScores(m)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	return s
}

func TestUpsertVenue_MergesByID(t *testing.T) {
	exec := &fakeExecutor{}
	err := New(exec).UpsertVenue(context.Background(), domvenue.Venue{
		ID: "v-1", Name: "Joe's Diner", City: "new york", Categories: []string{"Diners", "Breakfast"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := exec.groups[0][0].Text
	if !strings.HasPrefix(text, `MERGE (v:Venue {id: 'v-1'}) SET v.name = 'Joe\'s Diner'`) {
		t.Errorf("unexpected statement: %s", text)
	}
	if !strings.Contains(text, `v.categories = 'Diners, Breakfast'`) {
		t.Errorf("categories not joined: %s", text)
	}
}

func TestUpsertVenue_RequiresID(t *testing.T) {
	exec := &fakeExecutor{}
	err := New(exec).UpsertVenue(context.Background(), domvenue.Venue{Name: "x"})
	if !errors.Is(err, domain.ErrInvalidVenue) {
		t.Fatalf("expected ErrInvalidVenue, got %v", err)
	}
	if len(exec.groups) != 0 {
		t.Error("invalid venue must not reach the graph")
	}
}

func TestUpsertPersonaRelevance(t *testing.T) {
	exec := &fakeExecutor{}
	repo := New(exec)

	if err := repo.UpsertPersonaRelevance(context.Background(), "v-1", persona.CulinaryExplorer, 0.875); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `MERGE (v:Venue {id: 'v-1'}) MERGE (p:Persona {value: 'culinaryExplorer'}) ` +
		`MERGE (v)-[r:PERSONA_RELEVANCE]->(p) SET r.weight = 0.875`
	if exec.groups[0][0].Text != want {
		t.Errorf("got  %s\nwant %s", exec.groups[0][0].Text, want)
	}

	if err := repo.UpsertPersonaRelevance(context.Background(), "v-1", persona.CulinaryExplorer, 1.5); err == nil {
		t.Error("expected error for weight out of range")
	}
}

func TestUpserts_RepeatAsIdenticalMerges(t *testing.T) {
	exec := &fakeExecutor{}
	repo := New(exec)
	ctx := context.Background()

	for range 2 {
		if err := repo.UpsertVenue(ctx, domvenue.Venue{ID: "v-1", Name: "Sky Bar"}); err != nil {
			t.Fatal(err)
		}
		if err := repo.UpsertPersonaRelevance(ctx, "v-1", persona.SocialButterfly, 0.4); err != nil {
			t.Fatal(err)
		}
	}

	if len(exec.groups) != 4 {
		t.Fatalf("expected 4 writes, got %d", len(exec.groups))
	}
	for i := range 2 {
		first, second := exec.groups[i][0].Text, exec.groups[i+2][0].Text
		if first != second {
			t.Errorf("repeat must render the same statement:\n%s\n%s", first, second)
		}
		if strings.Contains(first, "CREATE") || !strings.HasPrefix(first, "MERGE ") {
			t.Errorf("expected a merge-only statement, got %s", first)
		}
	}
}

func TestWriteVenues_GroupShapeAndPartialFailure(t *testing.T) {
	boom := errors.New("deadlock")
	exec := &fakeExecutor{writeErr: map[int]error{1: boom}}

	errs := New(exec).WriteVenues(context.Background(), []domvenue.Scored{
		{Venue: domvenue.Venue{ID: "a"}, Scores: uniformScores(t, 0.5)},
		{Venue: domvenue.Venue{ID: ""}, Scores: uniformScores(t, 0.5)},
		{Venue: domvenue.Venue{ID: "b"}, Scores: uniformScores(t, 0.5)},
		{Venue: domvenue.Venue{ID: "c"}, Scores: uniformScores(t, 0.5)},
	})

	if errs[0] != nil || errs[3] != nil {
		t.Errorf("expected a and c to commit, got %v", errs)
	}
	if !errors.Is(errs[1], domain.ErrGraphWrite) || !errors.Is(errs[1], domain.ErrInvalidVenue) {
		t.Errorf("expected invalid venue failure, got %v", errs[1])
	}
	if !errors.Is(errs[2], domain.ErrGraphWrite) || !errors.Is(errs[2], boom) {
		t.Errorf("expected b to fail with the driver error, got %v", errs[2])
	}
	if len(exec.groups) != 2 {
		t.Fatalf("expected 2 committed groups, got %d", len(exec.groups))
	}
	if n := len(exec.groups[0]); n != 1+2*persona.Count {
		t.Errorf("expected 17 statements per venue, got %d", n)
	}
}

func TestSeedPersonas(t *testing.T) {
	exec := &fakeExecutor{}
	if err := New(exec).SeedPersonas(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.groups) != 1 || len(exec.groups[0]) != persona.Count {
		t.Fatalf("expected one group of 8 statements, got %v", exec.groups)
	}
	if exec.groups[0][0].Text != `MERGE (p:Persona {value: 'socialButterfly'})` {
		t.Errorf("unexpected statement: %s", exec.groups[0][0].Text)
	}
}

func TestFetchByIDs_EmptySkipsRoundTrip(t *testing.T) {
	exec := &fakeExecutor{}
	got, err := New(exec).FetchByIDs(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("unexpected result %v, %v", got, err)
	}
	if len(exec.queries) != 0 {
		t.Error("expected no query for an empty id set")
	}
}

func TestFetchByIDs_ParsesNodes(t *testing.T) {
	exec := &fakeExecutor{rows: []map[string]any{
		{"v": map[string]any{"id": "a", "name": "A", "url": "https://a", "categories": "Bars, Pubs"}},
		{"v": "not a node"},
	}}

	got, err := New(exec).FetchByIDs(context.Background(), []string{"a", "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.queries[0].Text != fetchByIDsQuery {
		t.Errorf("unexpected query: %s", exec.queries[0].Text)
	}
	ids, _ := exec.queries[0].Params["ids"].([]string)
	if len(ids) != 2 {
		t.Errorf("ids must be passed as a parameter, got %v", exec.queries[0].Params)
	}
	if len(got) != 1 || got[0].URL != "https://a" || len(got[0].Categories) != 2 {
		t.Errorf("unexpected venues: %+v", got)
	}
}

func TestFetchByIDs_ErrorIsStoreUnavailable(t *testing.T) {
	exec := &fakeExecutor{queryErr: errors.New("connection refused")}
	_, err := New(exec).FetchByIDs(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestPersonaProfile(t *testing.T) {
	exec := &fakeExecutor{rows: []map[string]any{
		{"persona": "socialButterfly", "weight": 0.9},
		{"persona": "culinaryExplorer", "weight": int64(1)},
		{"persona": "unknownPersona", "weight": 0.3},
	}}

	got, err := New(exec).PersonaProfile(context.Background(), "v-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[persona.SocialButterfly] != 0.9 || got[persona.CulinaryExplorer] != 1 {
		t.Errorf("unexpected profile: %v", got)
	}
	if exec.queries[0].Params["id"] != "v-1" {
		t.Errorf("id must be passed as a parameter")
	}
}
