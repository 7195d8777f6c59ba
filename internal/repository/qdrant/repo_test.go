package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
	"github.com/kailas-cloud/personarec/internal/domain/vector/filter"
)

type fakePoints struct {
	upserted *qdrant.UpsertPoints
	searched *qdrant.SearchPoints
	result   []*qdrant.ScoredPoint
	err      error
}

func (f *fakePoints) Upsert(
	_ context.Context, in *qdrant.UpsertPoints, _ ...grpc.CallOption,
) (*qdrant.PointsOperationResponse, error) {
	f.upserted = in
	return &qdrant.PointsOperationResponse{}, f.err
}

func (f *fakePoints) Search(
	_ context.Context, in *qdrant.SearchPoints, _ ...grpc.CallOption,
) (*qdrant.SearchResponse, error) {
	f.searched = in
	if f.err != nil {
		return nil, f.err
	}
	return &qdrant.SearchResponse{Result: f.result}, nil
}

type fakeCollections struct {
	exists  bool
	created *qdrant.CreateCollection
}

func (f *fakeCollections) CollectionExists(
	_ context.Context, _ *qdrant.CollectionExistsRequest, _ ...grpc.CallOption,
) (*qdrant.CollectionExistsResponse, error) {
	return &qdrant.CollectionExistsResponse{Result: &qdrant.CollectionExists{Exists: f.exists}}, nil
}

func (f *fakeCollections) Create(
	_ context.Context, in *qdrant.CreateCollection, _ ...grpc.CallOption,
) (*qdrant.CollectionOperationResponse, error) {
	f.created = in
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}

func TestPointID_Stable(t *testing.T) {
	a := PointID("venues", "v-1")
	if a != PointID("venues", "v-1") {
		t.Error("point id must be deterministic")
	}
	if a == PointID("other", "v-1") {
		t.Error("namespaces must not collide")
	}
	if PointID("a:b", "c") == PointID("a", "b:c") {
		t.Error("colon in namespace or id must not collide")
	}
}

func TestInvalidNamespace(t *testing.T) {
	c := &fakeCollections{}
	p := &fakePoints{}
	repo := newRepo(p, c, "personarec")
	for _, ns := range []string{"", "bad namespace", "v/1"} {
		if err := repo.EnsureNamespace(context.Background(), ns, 4); err == nil {
			t.Errorf("expected error for namespace %q", ns)
		}
		if _, err := repo.Upsert(context.Background(), ns, []domvector.Record{{ID: "v-1", Embedding: []float32{1}}}); err == nil {
			t.Errorf("expected upsert error for namespace %q", ns)
		}
	}
	if c.created != nil || p.upserted != nil {
		t.Error("invalid namespace must not reach qdrant")
	}
}

func TestEnsureNamespace_CreatesCollection(t *testing.T) {
	c := &fakeCollections{}
	if err := newRepo(&fakePoints{}, c, "personarec").EnsureNamespace(context.Background(), "venues", 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.created == nil {
		t.Fatal("expected collection creation")
	}
	params := c.created.GetVectorsConfig().GetParams()
	if params.GetSize() != 1536 || params.GetDistance() != qdrant.Distance_Cosine {
		t.Errorf("unexpected vector params: %v", params)
	}
}

func TestEnsureNamespace_Existing(t *testing.T) {
	c := &fakeCollections{exists: true}
	if err := newRepo(&fakePoints{}, c, "personarec").EnsureNamespace(context.Background(), "venues", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.created != nil {
		t.Error("existing collection must not be recreated")
	}
}

func TestUpsert_Payload(t *testing.T) {
	p := &fakePoints{}
	n, err := newRepo(p, &fakeCollections{}, "personarec").Upsert(context.Background(), "venues", []domvector.Record{
		{ID: "v-1", Embedding: []float32{0.1, 0.2}, Metadata: map[string]string{"city": "nyc"}},
	})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 point, got %d, %v", n, err)
	}
	pt := p.upserted.GetPoints()[0]
	if pt.GetId().GetUuid() != PointID("venues", "v-1") {
		t.Errorf("unexpected point id: %v", pt.GetId())
	}
	payload := pt.GetPayload()
	if payload["id"].GetStringValue() != "v-1" || payload["namespace"].GetStringValue() != "venues" ||
		payload["city"].GetStringValue() != "nyc" {
		t.Errorf("unexpected payload: %v", payload)
	}
	if !p.upserted.GetWait() {
		t.Error("upsert must wait for the write")
	}
}

func TestUpsert_Error(t *testing.T) {
	p := &fakePoints{err: errors.New("unavailable")}
	if _, err := newRepo(p, &fakeCollections{}, "c").Upsert(context.Background(), "venues", []domvector.Record{
		{ID: "v-1", Embedding: []float32{1}},
	}); err == nil {
		t.Fatal("expected error")
	}
}

func TestQuery_FilterAndMapping(t *testing.T) {
	p := &fakePoints{result: []*qdrant.ScoredPoint{
		{Score: 0.9, Payload: map[string]*qdrant.Value{
			"id": stringValue("v-1"), "namespace": stringValue("venues"), "name": stringValue("Joe's"),
		}},
		{Score: 0.5, Payload: map[string]*qdrant.Value{"name": stringValue("orphan")}},
	}}
	city, _ := filter.Eq("city", "nyc")
	expr, _ := filter.And(city)

	got, err := newRepo(p, &fakeCollections{}, "c").Query(context.Background(), domvector.Query{
		Namespace: "venues", Vector: []float32{1}, TopK: 5, Filter: expr,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "v-1" || got[0].Metadata["name"] != "Joe's" {
		t.Fatalf("unexpected matches: %+v", got)
	}
	if _, ok := got[0].Metadata["namespace"]; ok {
		t.Error("reserved payload keys must not leak into metadata")
	}

	must := p.searched.GetFilter().GetMust()
	if len(must) != 2 || must[0].GetField().GetKey() != "namespace" || must[1].GetField().GetMatch().GetKeyword() != "nyc" {
		t.Errorf("unexpected filter: %v", must)
	}
	if p.searched.GetLimit() != 5 {
		t.Errorf("unexpected limit: %d", p.searched.GetLimit())
	}
}

type fakeService struct{ err error }

func (f fakeService) HealthCheck(
	_ context.Context, _ *qdrant.HealthCheckRequest, _ ...grpc.CallOption,
) (*qdrant.HealthCheckReply, error) {
	return &qdrant.HealthCheckReply{}, f.err
}

func TestPing(t *testing.T) {
	r := newRepo(&fakePoints{}, &fakeCollections{}, "c")
	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("ping without health client: %v", err)
	}

	r.service = fakeService{err: errors.New("unavailable")}
	if err := r.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}
