// Package ingest runs the resumable venue ingestion job: seed personas, write the graph, index vectors.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/domain"
	dombatch "github.com/kailas-cloud/personarec/internal/domain/batch"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
	"github.com/kailas-cloud/personarec/internal/metrics"
	"github.com/kailas-cloud/personarec/internal/repository/checkpoint"
	"github.com/kailas-cloud/personarec/internal/usecase/vectorindex"
)

// Step is one idempotent stage of the job.
type Step string

// Job steps in execution order.
const (
	StepSeedPersonas Step = "seed-personas"
	StepGraph        Step = "graph"
	StepVectors      Step = "vectors"
)

// AllSteps returns every step in execution order.
func AllSteps() []Step {
	return []Step{StepSeedPersonas, StepGraph, StepVectors}
}

// ParseStep validates a step name.
func ParseStep(s string) (Step, error) {
	for _, st := range AllSteps() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown ingest step %q", s)
}

// DefaultGraphBatchSize is the number of venues per graph chunk.
const DefaultGraphBatchSize = 50

// Config tunes the job.
type Config struct {
	Job            string
	Namespace      string
	GraphBatchSize int
}

// StepReport counts the outcome of one step. Units are chunks or batches; records are venues.
type StepReport struct {
	Step         Step
	Units        int
	UnitsSkipped int
	UnitsFailed  int
	Committed    int
	Failed       int
}

// Summary is the outcome of one run.
type Summary struct {
	RunID string
	Job   string
	Steps []StepReport
}

// OK reports whether every step finished without failures.
func (s Summary) OK() bool {
	for _, st := range s.Steps {
		if st.UnitsFailed > 0 {
			return false
		}
	}
	return true
}

// Service runs ingestion jobs.
type Service struct {
	classifier Classifier
	graph      GraphWriter
	vectors    VectorWriter
	embed      domain.Embedder
	ckpt       Checkpoints
	cfg        Config
	logger     *zap.Logger
}

// New creates an ingestion service.
func New(
	classifier Classifier, graph GraphWriter, vectors VectorWriter, embed domain.Embedder,
	ckpt Checkpoints, cfg Config, logger *zap.Logger,
) *Service {
	if cfg.GraphBatchSize <= 0 {
		cfg.GraphBatchSize = DefaultGraphBatchSize
	}
	if cfg.Namespace == "" {
		cfg.Namespace = domvector.DefaultNamespace
	}
	return &Service{
		classifier: classifier, graph: graph, vectors: vectors, embed: embed,
		ckpt: ckpt, cfg: cfg, logger: logger,
	}
}

// Run executes steps in order over venues. Units committed by an earlier run of the same job
// with the same content are skipped.
// Partial failures are reported in the summary; only setup failures return an error.
func (s *Service) Run(ctx context.Context, venues []domvenue.Venue, steps []Step) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), Job: s.cfg.Job}
	log := s.logger.With(zap.String("run_id", sum.RunID), zap.String("job", s.cfg.Job))
	log.Info("Ingest started", zap.Int("venues", len(venues)), zap.Any("steps", steps))

	for _, st := range steps {
		var (
			rep StepReport
			err error
		)
		switch st {
		case StepSeedPersonas:
			rep, err = s.seedPersonas(ctx, log)
		case StepGraph:
			rep = s.writeGraph(ctx, venues, log)
		case StepVectors:
			rep, err = s.writeVectors(ctx, venues, log)
		default:
			err = fmt.Errorf("unknown ingest step %q", st)
		}
		if err != nil {
			return sum, fmt.Errorf("step %s: %w", st, err)
		}
		sum.Steps = append(sum.Steps, rep)
		log.Info("Ingest step finished",
			zap.String("step", string(rep.Step)),
			zap.Int("units", rep.Units),
			zap.Int("units_skipped", rep.UnitsSkipped),
			zap.Int("units_failed", rep.UnitsFailed),
			zap.Int("committed", rep.Committed),
			zap.Int("failed", rep.Failed),
		)
	}

	log.Info("Ingest finished", zap.Bool("ok", sum.OK()))
	return sum, nil
}

func (s *Service) seedPersonas(ctx context.Context, log *zap.Logger) (StepReport, error) {
	rep := StepReport{Step: StepSeedPersonas, Units: 1}
	key := checkpoint.Key(s.cfg.Job, string(StepSeedPersonas), "0")

	if s.done(ctx, key, log) {
		rep.UnitsSkipped = 1
		s.countUnit(StepSeedPersonas, "skipped")
		return rep, nil
	}
	if err := s.graph.SeedPersonas(ctx); err != nil {
		s.countUnit(StepSeedPersonas, "failed")
		return rep, fmt.Errorf("seed personas: %w", err)
	}
	rep.Committed = 1
	s.mark(ctx, key, log)
	s.countUnit(StepSeedPersonas, "committed")
	return rep, nil
}

// writeGraph processes chunks sequentially. A chunk is checkpointed only when every venue in it committed.
func (s *Service) writeGraph(ctx context.Context, venues []domvenue.Venue, log *zap.Logger) StepReport {
	spans := domvector.Partition(len(venues), s.cfg.GraphBatchSize)
	rep := StepReport{Step: StepGraph, Units: len(spans)}

	for _, span := range spans {
		key := s.unitKey(StepGraph, span, venues, "")
		if s.done(ctx, key, log) {
			rep.UnitsSkipped++
			s.countUnit(StepGraph, "skipped")
			continue
		}

		committed, failed := s.writeChunk(ctx, venues[span.Lo:span.Hi], log)
		rep.Committed += committed
		rep.Failed += failed
		if failed > 0 {
			rep.UnitsFailed++
			s.countUnit(StepGraph, "failed")
			continue
		}
		s.mark(ctx, key, log)
		s.countUnit(StepGraph, "committed")
	}
	return rep
}

func (s *Service) writeChunk(ctx context.Context, chunk []domvenue.Venue, log *zap.Logger) (committed, failed int) {
	scored := make([]domvenue.Scored, 0, len(chunk))
	for _, v := range chunk {
		scores, err := s.classifier.Score(ctx, v)
		if err != nil {
			failed++
			metrics.GraphWritesTotal.WithLabelValues("error").Inc()
			log.Warn("Graph write failed",
				zap.String("venue_id", v.ID),
				zap.Error(fmt.Errorf("%w: %w", domain.ErrGraphWrite, err)),
			)
			continue
		}
		scored = append(scored, domvenue.Scored{Venue: v, Scores: scores})
	}

	for i, err := range s.graph.WriteVenues(ctx, scored) {
		if err != nil {
			failed++
			metrics.GraphWritesTotal.WithLabelValues("error").Inc()
			log.Warn("Graph write failed", zap.String("venue_id", scored[i].Venue.ID), zap.Error(err))
			continue
		}
		committed++
		metrics.GraphWritesTotal.WithLabelValues("ok").Inc()
	}
	return committed, failed
}

func (s *Service) writeVectors(ctx context.Context, venues []domvenue.Venue, log *zap.Logger) (StepReport, error) {
	if err := s.vectors.EnsureNamespace(ctx, s.cfg.Namespace); err != nil {
		return StepReport{}, err
	}

	records := make([]domvector.Record, len(venues))
	for i, v := range venues {
		records[i] = domvector.Record{ID: v.ID, Metadata: v.Metadata()}
	}

	report := s.vectors.UpsertBatch(ctx, s.cfg.Namespace, records,
		vectorindex.WithSkip(func(ctx context.Context, span domvector.Span) bool {
			if !s.done(ctx, s.unitKey(StepVectors, span, venues, s.cfg.Namespace), log) {
				return false
			}
			s.countUnit(StepVectors, "skipped")
			return true
		}),
		vectorindex.WithPrepare(func(ctx context.Context, span domvector.Span, chunk []domvector.Record) error {
			return s.embedBatch(ctx, venues[span.Lo:span.Hi], chunk)
		}),
		vectorindex.WithCommitted(func(ctx context.Context, span domvector.Span) {
			s.mark(ctx, s.unitKey(StepVectors, span, venues, s.cfg.Namespace), log)
			s.countUnit(StepVectors, "committed")
		}),
	)

	rep := StepReport{
		Step:        StepVectors,
		Units:       report.Batches(),
		UnitsFailed: len(report.Failures()),
		Committed:   report.Committed(),
	}
	for _, r := range report.Results() {
		switch r.Status() {
		case dombatch.StatusSkipped:
			rep.UnitsSkipped++
		case dombatch.StatusFailed:
			rep.Failed += r.Size()
			s.countUnit(StepVectors, "failed")
		}
	}
	return rep, nil
}

// embedBatch fills the embeddings of records, which line up with venues.
func (s *Service) embedBatch(ctx context.Context, venues []domvenue.Venue, records []domvector.Record) error {
	texts := make([]string, len(venues))
	for i, v := range venues {
		texts[i] = domvenue.BuildDocument(v).String()
	}

	res, err := domain.BatchEmbedAny(ctx, s.embed, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(res.Embeddings) != len(venues) {
		return fmt.Errorf("embed batch: got %d embeddings for %d venues: %w",
			len(res.Embeddings), len(venues), domain.ErrEmbeddingProviderError)
	}
	for i := range records {
		records[i].Embedding = res.Embeddings[i]
	}
	return nil
}

// unitKey names a unit by position and by a digest of the venues it covers,
// so a rerun over changed input writes the changed units again.
func (s *Service) unitKey(step Step, span domvector.Span, venues []domvenue.Venue, scope string) string {
	unit := strconv.Itoa(span.Index)
	raw, _ := json.Marshal(venues[span.Lo:span.Hi]) //nolint:errchkjson // string fields only
	sum := sha256.Sum256(append([]byte(scope+"\x00"), raw...))
	return checkpoint.Key(s.cfg.Job, string(step), unit+":"+hex.EncodeToString(sum[:12]))
}

// done reports an unreadable checkpoint as not done.
func (s *Service) done(ctx context.Context, key string, log *zap.Logger) bool {
	ok, err := s.ckpt.Done(ctx, key)
	if err != nil {
		log.Warn("Checkpoint read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (s *Service) mark(ctx context.Context, key string, log *zap.Logger) {
	if err := s.ckpt.Mark(ctx, key); err != nil {
		log.Warn("Checkpoint write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) countUnit(step Step, status string) {
	metrics.IngestUnitsTotal.WithLabelValues(string(step), status).Inc()
}
