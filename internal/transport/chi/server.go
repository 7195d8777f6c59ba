// Package chi is the HTTP surface: recommendation, venue profile, health and metrics routes.
package chi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/domain"
	domrec "github.com/kailas-cloud/personarec/internal/domain/recommend"
	logpkg "github.com/kailas-cloud/personarec/internal/logger"
	healthuc "github.com/kailas-cloud/personarec/internal/usecase/health"
	venueuc "github.com/kailas-cloud/personarec/internal/usecase/venue"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Recommender answers recommendation queries.
type Recommender interface {
	Recommend(ctx context.Context, q domrec.Query) ([]domrec.Result, error)
}

// VenueProfiler loads a venue with its persona profile.
type VenueProfiler interface {
	Get(ctx context.Context, id string) (venueuc.Profile, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	recommend     Recommender
	venues        VenueProfiler
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(recommend Recommender, venues VenueProfiler, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{recommend: recommend, venues: venues, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeEmbeddingUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	}
	return s
}

// Mount registers the routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Post("/v1/recommendations", s.Recommend)
	r.Get("/v1/venues/{id}", s.GetVenue)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Recommend handles POST /v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK := domrec.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	q, err := domrec.NewQuery(req.Query, req.City, req.Category, topK)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.recommend.Recommend(ctx, q)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	resp := recommendResponse{Results: make([]recommendResult, len(results))}
	for i, res := range results {
		resp.Results[i] = recommendResult{Name: res.Name, URL: res.URL}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetVenue handles GET /v1/venues/{id}.
func (s *Server) GetVenue(w http.ResponseWriter, r *http.Request) {
	p, err := s.venues.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, venueToResponse(p))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func venueToResponse(p venueuc.Profile) venueResponse {
	v := p.Venue
	resp := venueResponse{
		ID:           v.ID,
		Name:         v.Name,
		URL:          v.URL,
		City:         v.City,
		Category:     v.Category,
		ThumbnailURL: v.ThumbnailURL,
		Categories:   v.Categories,
		Features:     v.Features,
		Summary:      v.Summary,
		Personas:     make([]affinityResponse, len(p.Affinities)),
	}
	for i, a := range p.Affinities {
		resp.Personas[i] = affinityResponse{
			Persona:    a.Persona.String(),
			Weight:     a.Weight,
			Normalized: a.Normalized,
			Tier:       string(a.Tier),
		}
	}
	return resp
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// InvalidQuery keeps its detail; other sentinels expose only their own message.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if status == http.StatusBadRequest {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx, s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
