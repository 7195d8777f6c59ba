// Package qdrant is the Qdrant backend of the vector index.
// All namespaces share one collection and are separated by a payload filter.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kailas-cloud/personarec/internal/db"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
)

// BackendName labels this backend in metrics and logs.
const BackendName = "qdrant"

// Reserved payload keys.
const (
	payloadID        = "id"
	payloadNamespace = "namespace"
)

// points is the consumer interface for the generated PointsClient (ISP).
type points interface {
	Upsert(ctx context.Context, in *qdrant.UpsertPoints, opts ...grpc.CallOption) (*qdrant.PointsOperationResponse, error)
	Search(ctx context.Context, in *qdrant.SearchPoints, opts ...grpc.CallOption) (*qdrant.SearchResponse, error)
}

// collections is the consumer interface for the generated CollectionsClient (ISP).
type collections interface {
	CollectionExists(
		ctx context.Context, in *qdrant.CollectionExistsRequest, opts ...grpc.CallOption,
	) (*qdrant.CollectionExistsResponse, error)
	Create(
		ctx context.Context, in *qdrant.CreateCollection, opts ...grpc.CallOption,
	) (*qdrant.CollectionOperationResponse, error)
}

// service is the consumer interface for the generated QdrantClient (ISP).
type service interface {
	HealthCheck(ctx context.Context, in *qdrant.HealthCheckRequest, opts ...grpc.CallOption) (*qdrant.HealthCheckReply, error)
}

// Dial opens a plaintext gRPC connection. The connection is lazy.
func Dial(addr string) (*grpc.ClientConn, error) {
	if addr == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", addr, err)
	}
	return conn, nil
}

// Repo stores vector records as points of one collection.
type Repo struct {
	points      points
	collections collections
	service     service
	collection  string
}

// New creates a Qdrant vector backend on an existing connection.
func New(conn grpc.ClientConnInterface, collection string) *Repo {
	r := newRepo(qdrant.NewPointsClient(conn), qdrant.NewCollectionsClient(conn), collection)
	r.service = qdrant.NewQdrantClient(conn)
	return r
}

func newRepo(p points, c collections, collection string) *Repo {
	return &Repo{points: p, collections: c, collection: collection}
}

// Name returns the backend name.
func (r *Repo) Name() string { return BackendName }

// Ping calls the server health endpoint.
func (r *Repo) Ping(ctx context.Context) error {
	if r.service == nil {
		return nil
	}
	if _, err := r.service.HealthCheck(ctx, &qdrant.HealthCheckRequest{}); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// EnsureNamespace creates the shared collection when it does not exist.
// Namespaces need no schema of their own.
func (r *Repo) EnsureNamespace(ctx context.Context, namespace string, dim int) error {
	if !db.IsValidIdentifier(namespace) {
		return fmt.Errorf("invalid namespace %q", namespace)
	}
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dim)
	}
	resp, err := r.collections.CollectionExists(ctx, &qdrant.CollectionExistsRequest{CollectionName: r.collection})
	if err != nil {
		return fmt.Errorf("check collection %s: %w", r.collection, err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}

	_, err = r.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &qdrant.VectorsConfig{Config: &qdrant.VectorsConfig_Params{
			Params: &qdrant.VectorParams{Size: uint64(dim), Distance: qdrant.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", r.collection, err)
	}
	return nil
}

// Upsert writes the records and waits for the operation to be applied.
func (r *Repo) Upsert(ctx context.Context, namespace string, records []domvector.Record) (int, error) {
	if !db.IsValidIdentifier(namespace) {
		return 0, fmt.Errorf("invalid namespace %q", namespace)
	}
	if len(records) == 0 {
		return 0, nil
	}

	pts := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		payload := make(map[string]*qdrant.Value, len(rec.Metadata)+2)
		for k, v := range rec.Metadata {
			payload[k] = stringValue(v)
		}
		payload[payloadID] = stringValue(rec.ID)
		payload[payloadNamespace] = stringValue(namespace)

		pts[i] = &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: PointID(namespace, rec.ID)}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: rec.Embedding}}},
			Payload: payload,
		}
	}

	wait := true
	if _, err := r.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         pts,
	}); err != nil {
		return 0, fmt.Errorf("upsert %d points: %w", len(records), err)
	}
	return len(records), nil
}

// Query searches within the namespace with the metadata conditions as keyword matches.
func (r *Repo) Query(ctx context.Context, q domvector.Query) ([]domvector.Match, error) {
	must := []*qdrant.Condition{keywordMatch(payloadNamespace, q.Namespace)}
	for _, c := range q.Filter.Conditions() {
		must = append(must, keywordMatch(c.Key(), c.Value()))
	}

	resp, err := r.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: r.collection,
		Vector:         q.Vector,
		Limit:          uint64(max(q.TopK, 0)),
		Filter:         &qdrant.Filter{Must: must},
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", q.Namespace, err)
	}

	out := make([]domvector.Match, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		meta := make(map[string]string, len(p.GetPayload()))
		var id string
		for k, v := range p.GetPayload() {
			switch k {
			case payloadID:
				id = v.GetStringValue()
			case payloadNamespace:
			default:
				meta[k] = v.GetStringValue()
			}
		}
		if id == "" {
			continue
		}
		out = append(out, domvector.Match{ID: id, Score: float64(p.GetScore()), Metadata: meta})
	}
	return out, nil
}

// PointID derives the stable point UUID of a record.
// The namespace is length-prefixed so no namespace/id pair renders like another.
func PointID(namespace, id string) string {
	name := fmt.Sprintf("%d:%s:%s", len(namespace), namespace, id)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func keywordMatch(key, value string) *qdrant.Condition {
	return &qdrant.Condition{ConditionOneOf: &qdrant.Condition_Field{Field: &qdrant.FieldCondition{
		Key:   key,
		Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
	}}}
}
