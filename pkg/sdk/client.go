package personarec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbGraph "github.com/kailas-cloud/personarec/internal/db/graph"
	dbValkey "github.com/kailas-cloud/personarec/internal/db/valkey"
	"github.com/kailas-cloud/personarec/internal/domain"
	domrec "github.com/kailas-cloud/personarec/internal/domain/recommend"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
	"github.com/kailas-cloud/personarec/internal/repository/checkpoint"
	"github.com/kailas-cloud/personarec/internal/repository/memory"
	vectorrepo "github.com/kailas-cloud/personarec/internal/repository/vector"
	venuerepo "github.com/kailas-cloud/personarec/internal/repository/venue"
	batchuc "github.com/kailas-cloud/personarec/internal/usecase/batch"
	"github.com/kailas-cloud/personarec/internal/usecase/classify"
	healthuc "github.com/kailas-cloud/personarec/internal/usecase/health"
	"github.com/kailas-cloud/personarec/internal/usecase/ingest"
	"github.com/kailas-cloud/personarec/internal/usecase/recommend"
	"github.com/kailas-cloud/personarec/internal/usecase/vectorindex"
	venueuc "github.com/kailas-cloud/personarec/internal/usecase/venue"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped in tests.
type recommendUseCase interface {
	Recommend(ctx context.Context, q domrec.Query) ([]domrec.Result, error)
}

type venueUseCase interface {
	Get(ctx context.Context, id string) (venueuc.Profile, error)
}

type ingestUseCase interface {
	Run(ctx context.Context, venues []Venue, steps []ingest.Step) (ingest.Summary, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type graphStore interface {
	ingest.GraphWriter
	recommend.VenueReader
	venueuc.Reader
	pinger
}

type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client is the personarec SDK entry point.
type Client struct {
	pingers      []pinger
	recommendSvc recommendUseCase
	venueSvc     venueUseCase
	ingestSvc    ingestUseCase
	healthSvc    healthUseCase
	closers      []func()
	obs          *observer
}

// New creates a Client. Stores configured with WithValkey or WithNeo4j are connected
// and awaited before New returns; the context bounds those readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		namespace:        domvector.DefaultNamespace,
		job:              "sdk",
		vectorDimensions: domain.DefaultEmbeddingDimensions,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("personarec: embedder required (use WithEmbedder)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	if err := c.wire(ctx, cfg); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) wire(ctx context.Context, cfg *clientConfig) error {
	logger := zap.NewNop()
	health := healthuc.New(healthuc.DefaultTimeout)

	var (
		backend vectorindex.Backend
		kv      kvStore
	)
	if len(cfg.addrs) > 0 {
		store, err := dbValkey.NewStore(dbValkey.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return fmt.Errorf("personarec: create valkey store: %w", err)
		}
		c.closers = append(c.closers, store.Close)
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			return fmt.Errorf("personarec: valkey not ready: %w", err)
		}

		opts := vectorrepo.DefaultOptions()
		if cfg.hnswM > 0 {
			opts.M = cfg.hnswM
		}
		if cfg.hnswEFConstruct > 0 {
			opts.EFConstruction = cfg.hnswEFConstruct
		}
		backend = vectorrepo.New(store, opts)
		kv = store
		c.pingers = append(c.pingers, store)
		health.AddPinger("valkey", store)
	} else {
		backend = memory.NewVector()
		kv = memory.NewKV()
	}

	var graph graphStore
	if cfg.neo4jURI != "" {
		client, err := dbGraph.NewClient(dbGraph.Config{
			URI:      cfg.neo4jURI,
			Username: cfg.neo4jUser,
			Password: cfg.neo4jPassword,
		}, logger)
		if err != nil {
			return fmt.Errorf("personarec: create graph client: %w", err)
		}
		c.closers = append(c.closers, func() { _ = client.Close(context.Background()) })
		if err := client.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			return fmt.Errorf("personarec: graph not ready: %w", err)
		}
		graph = &neo4jGraph{Repo: venuerepo.New(client), client: client}
	} else {
		graph = memory.NewGraph()
	}
	c.pingers = append(c.pingers, graph)
	health.AddPinger("graph", graph)

	embedder := adaptEmbedder(cfg.embedder)
	if hc, ok := cfg.embedder.(domain.HealthChecker); ok {
		health.AddChecker("embedding", hc)
	}

	var scorer classify.Scorer = noopScorer{}
	if cfg.scorer != nil {
		scorer = &scorerAdapter{inner: cfg.scorer}
	}

	runner := batchuc.NewRunner(cfg.workers, logger)
	index := vectorindex.New(backend, runner, cfg.batchSize, cfg.vectorDimensions, logger)
	if err := index.EnsureNamespace(ctx, cfg.namespace); err != nil {
		return fmt.Errorf("personarec: prepare namespace: %w", err)
	}

	c.recommendSvc = recommend.New(embedder, index, graph, cfg.namespace, recommend.Timeouts{}, logger)
	c.venueSvc = venueuc.New(graph, logger)
	c.ingestSvc = ingest.New(
		classify.New(scorer), graph, index, embedder,
		checkpoint.New(kv, 0),
		ingest.Config{Job: cfg.job, Namespace: cfg.namespace},
		logger,
	)
	c.healthSvc = health
	return nil
}

// neo4jGraph adds the driver ping to the graph repository.
type neo4jGraph struct {
	*venuerepo.Repo
	client *dbGraph.Client
}

func (g *neo4jGraph) Ping(ctx context.Context) error {
	return g.client.Ping(ctx) //nolint:wrapcheck // already names the op
}

// Close releases all resources.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	for _, p := range c.pingers {
		if err = p.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
	}
	return nil
}

// Recommend returns up to TopK venues in the city and category, most similar first.
// No matching venue is an empty result, not an error.
func (c *Client) Recommend(ctx context.Context, req RecommendRequest) (recs []Recommendation, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommend", start, err, "results", len(recs)) }()

	topK := req.TopK
	if topK == 0 {
		topK = domrec.DefaultTopK
	}
	q, err := domrec.NewQuery(req.Text, req.City, req.Category, topK)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	recs, err = c.recommendSvc.Recommend(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	return recs, nil
}

// Venue returns a venue and its persona profile.
func (c *Client) Venue(ctx context.Context, id string) (p VenueProfile, err error) {
	start := time.Now()
	defer func() { c.obs.observe("venue", start, err) }()

	prof, err := c.venueSvc.Get(ctx, id)
	if err != nil {
		return VenueProfile{}, fmt.Errorf("venue %s: %w", id, err)
	}
	return VenueProfile{Venue: prof.Venue, Affinities: prof.Affinities}, nil
}

// Ingest runs the given steps over venues, or every step when none are given.
// Units committed by an earlier call with the same job are skipped, so a call whose
// summary is not OK can be repeated to resume.
func (c *Client) Ingest(ctx context.Context, venues []Venue, steps ...IngestStep) (sum IngestSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err, "venues", len(venues)) }()

	if len(steps) == 0 {
		steps = ingest.AllSteps()
	}
	sum, err = c.ingestSvc.Run(ctx, venues, steps)
	if err != nil {
		return sum, fmt.Errorf("ingest: %w", err)
	}
	return sum, nil
}

// SeedPersonas creates the persona nodes. It is safe to call repeatedly.
func (c *Client) SeedPersonas(ctx context.Context) error {
	sum, err := c.Ingest(ctx, nil, StepSeedPersonas)
	if err != nil {
		return err
	}
	if !sum.OK() {
		return fmt.Errorf("seed personas: %w", ErrGraphWrite)
	}
	return nil
}
