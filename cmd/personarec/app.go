package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/config"
	"github.com/kailas-cloud/personarec/internal/db/graph"
	dbValkey "github.com/kailas-cloud/personarec/internal/db/valkey"
	"github.com/kailas-cloud/personarec/internal/domain"
	logpkg "github.com/kailas-cloud/personarec/internal/logger"
	"github.com/kailas-cloud/personarec/internal/metrics"
	"github.com/kailas-cloud/personarec/internal/repository/checkpoint"
	"github.com/kailas-cloud/personarec/internal/repository/embcache"
	"github.com/kailas-cloud/personarec/internal/repository/memory"
	qdrantrepo "github.com/kailas-cloud/personarec/internal/repository/qdrant"
	vectorrepo "github.com/kailas-cloud/personarec/internal/repository/vector"
	venuerepo "github.com/kailas-cloud/personarec/internal/repository/venue"
	"github.com/kailas-cloud/personarec/internal/resilience"
	"github.com/kailas-cloud/personarec/internal/transport/inference"
	openaiEmb "github.com/kailas-cloud/personarec/internal/transport/openai"
	batchuc "github.com/kailas-cloud/personarec/internal/usecase/batch"
	"github.com/kailas-cloud/personarec/internal/usecase/classify"
	embeddinguc "github.com/kailas-cloud/personarec/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/personarec/internal/usecase/health"
	"github.com/kailas-cloud/personarec/internal/usecase/ingest"
	"github.com/kailas-cloud/personarec/internal/usecase/recommend"
	"github.com/kailas-cloud/personarec/internal/usecase/vectorindex"
	venueuc "github.com/kailas-cloud/personarec/internal/usecase/venue"
	"github.com/kailas-cloud/personarec/internal/version"
)

// graphStore is everything the commands need from the graph backend.
type graphStore interface {
	ingest.GraphWriter
	recommend.VenueReader
	venueuc.Reader
}

// app is the composition root shared by all commands.
type app struct {
	cfg    config.Config
	env    string
	logger *zap.Logger

	valkey  *dbValkey.Store
	graph   graphStore
	index   *vectorindex.Service
	embed   *embeddinguc.InstrumentedEmbedder
	ckpt    *checkpoint.Repo
	health  *healthuc.Service
	closers []func()
}

// withApp loads the configuration, builds the app and runs fn with it.
func withApp(ctx context.Context, env string, fn func(context.Context, *app) error) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting personarec",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("graph_driver", cfg.Graph.Driver),
		zap.String("vector_driver", cfg.Vector.Driver),
		zap.String("namespace", cfg.Vector.Namespace),
	)

	a, err := newApp(ctx, cfg, env, logger)
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		return err
	}
	defer a.close()

	if err := fn(ctx, a); err != nil {
		logger.Error("Command failed", zap.Error(err))
		return err
	}
	return nil
}

func newApp(ctx context.Context, cfg config.Config, env string, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	a := &app{
		cfg:    cfg,
		env:    env,
		logger: logger,
		health: healthuc.New(healthuc.DefaultTimeout),
	}

	if err := a.initValkey(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initGraph(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initVectorIndex(); err != nil {
		a.close()
		return nil, err
	}
	a.initEmbedder()

	if a.valkey != nil {
		a.ckpt = checkpoint.New(a.valkey, cfg.Ingest.CheckpointTTL())
	} else {
		a.ckpt = checkpoint.New(memory.NewKV(), cfg.Ingest.CheckpointTTL())
	}
	return a, nil
}

func (a *app) initValkey(ctx context.Context) error {
	if !a.cfg.UsesValkey() {
		return nil
	}
	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    a.cfg.Valkey.Addrs,
		Username: a.cfg.Valkey.Username,
		Password: a.cfg.Valkey.Password,
		DB:       a.cfg.Valkey.DB,
	})
	if err != nil {
		return fmt.Errorf("create valkey store: %w", err)
	}
	a.onClose(store.Close)

	if err := store.WaitForReady(ctx, seconds(a.cfg.Valkey.ReadinessTimeout)); err != nil {
		return fmt.Errorf("valkey not ready: %w", err)
	}
	a.logger.Info("Connected to valkey", zap.Strings("addrs", a.cfg.Valkey.Addrs))

	a.valkey = store
	a.health.AddPinger("valkey", store)
	return nil
}

func (a *app) initGraph(ctx context.Context) error {
	if a.cfg.Graph.Driver == config.DriverMemory {
		mem := memory.NewGraph()
		a.graph = mem
		a.health.AddPinger("graph", mem)
		return nil
	}

	client, err := graph.NewClient(graph.Config{
		URI:         a.cfg.Graph.URI,
		Username:    a.cfg.Graph.Username,
		Password:    a.cfg.Graph.Password,
		Database:    a.cfg.Graph.Database,
		MaxPoolSize: a.cfg.Graph.MaxPoolSize,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("create graph client: %w", err)
	}
	a.onClose(func() {
		if err := client.Close(context.Background()); err != nil {
			a.logger.Warn("Failed to close graph client", zap.Error(err))
		}
	})

	if err := client.WaitForReady(ctx, seconds(a.cfg.Graph.ReadinessTimeout)); err != nil {
		return fmt.Errorf("graph not ready: %w", err)
	}
	a.logger.Info("Connected to graph database", zap.String("uri", a.cfg.Graph.URI))

	a.graph = venuerepo.New(client)
	a.health.AddPinger("graph", client)
	return nil
}

func (a *app) initVectorIndex() error {
	var backend vectorindex.Backend
	switch a.cfg.Vector.Driver {
	case config.DriverValkey:
		opts := vectorrepo.DefaultOptions()
		opts.M = a.cfg.Vector.HNSWM
		opts.EFConstruction = a.cfg.Vector.HNSWEFConstruct
		backend = vectorrepo.New(a.valkey, opts)
	case config.DriverQdrant:
		conn, err := qdrantrepo.Dial(a.cfg.Qdrant.Addr)
		if err != nil {
			return err //nolint:wrapcheck // already carries the address
		}
		a.onClose(func() { _ = conn.Close() })
		q := qdrantrepo.New(conn, a.cfg.Qdrant.Collection)
		a.health.AddPinger("qdrant", q)
		backend = q
	default:
		backend = memory.NewVector()
	}

	runner := batchuc.NewRunner(a.cfg.Vector.Workers, a.logger)
	a.index = vectorindex.New(backend, runner, a.cfg.Vector.BatchSize, a.cfg.Embedding.Dimensions, a.logger)
	return nil
}

// initEmbedder assembles the chain OpenAI -> cache -> instrumented (chunking, breaker, usage).
func (a *app) initEmbedder() {
	ec := a.cfg.Embedding

	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:         ec.APIKey,
		BaseURL:        ec.BaseURL,
		Model:          ec.Model,
		Dimensions:     ec.Dimensions,
		SendDimensions: ec.SendDimensions,
		Provider:       ec.Provider,
		Logger:         a.logger,
	})
	if ec.CacheTTLHours > 0 && a.valkey != nil {
		embedder = embcache.New(embedder, a.valkey, ec.Model, ec.CacheTTL(), metrics.EmbeddingCacheTotal, a.logger)
	}

	breaker := resilience.NewBreaker[domain.BatchEmbeddingResult](
		breakerConfig("embedding", a.cfg.Resilience.Embedding), a.logger,
	)
	a.embed = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, ec.MaxBatchSize, breaker, a.logger)
	a.health.AddChecker("embedding", a.embed)
}

// ingestService builds the ingestion job. The classifier is only needed here.
func (a *app) ingestService(job string) (*ingest.Service, error) {
	cc := a.cfg.Classifier
	breaker := resilience.NewBreaker[[]inference.Prediction](
		breakerConfig("classifier", a.cfg.Resilience.Classifier), a.logger,
	)
	client, err := inference.NewClient(inference.Config{
		BaseURL: cc.BaseURL,
		Timeout: cc.Timeout(),
		RPS:     cc.RPS,
		Burst:   cc.Burst,
	}, breaker, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create classifier client: %w", err)
	}

	if job == "" {
		job = a.cfg.Ingest.Job
	}
	return ingest.New(
		classify.New(client), a.graph, a.index, a.embed, a.ckpt,
		ingest.Config{
			Job:            job,
			Namespace:      a.cfg.Vector.Namespace,
			GraphBatchSize: a.cfg.Ingest.GraphBatchSize,
		},
		a.logger,
	), nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func breakerConfig(name string, b config.BreakerConfig) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Name:             name,
		MaxRequests:      uint32(b.HalfOpenRequests), //nolint:gosec // validated positive by config defaults
		Timeout:          b.OpenTimeout(),
		FailureThreshold: uint32(b.FailureThreshold), //nolint:gosec // validated positive by config defaults
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
