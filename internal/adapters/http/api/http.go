// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/doppel/internal/adapters/mq/queue"
	"github.com/okian/doppel/internal/adapters/repository"
	"github.com/okian/doppel/internal/domain/model"
	"github.com/okian/doppel/internal/domain/scoring"
	"github.com/okian/doppel/internal/domain/types"
	"github.com/okian/doppel/pkg/logger"
)

const (
	defaultMaxTopLimit = 100
	maxBodyBytes       = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Compare scores two detections synchronously.
	Compare(ctx context.Context, req model.Comparison) (scoring.Result, error)

	// Submit queues a comparison. Backpressure surfaces as a queue error.
	Submit(ctx context.Context, req model.Comparison) (types.Submission, error)

	// Read operations expose stored comparisons.
	Result(ctx context.Context, id string) (repository.Record, error)
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// Entry mirrors the read shape returned by ranking queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	comparisonsHandler *ComparisonsHandler
	topHandler         *TopHandler
	logger             logger.Logger
}

// NewServer creates a new API server with all handlers. A non-positive
// maxTopLimit selects the default.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxTopLimit int, l logger.Logger) *Server {
	if maxTopLimit < 1 {
		maxTopLimit = defaultMaxTopLimit
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		comparisonsHandler: NewComparisonsHandler(deps),
		topHandler:         NewTopHandler(deps, maxTopLimit),
		logger:             l.Named("http"),
	}
}

// Router builds a chi router with the standard middleware stack and all routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(chiMiddleware.Recoverer)
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Post("/compare", MetricsMiddleware(s.comparisonsHandler.HandleCompare, "compare"))
	r.Route("/comparisons", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.comparisonsHandler.HandleSubmit, "submit"))
		r.Get("/"+topPath, MetricsMiddleware(s.topHandler.HandleGetTop, "top"))
		r.Get("/{id}", MetricsMiddleware(s.comparisonsHandler.HandleGetResult, "result"))
	})
}

// detectionRequest mirrors the OpenAPI Detection schema.
type detectionRequest struct {
	Confidence float64       `json:"confidence"`
	Landmarks  []model.Point `json:"landmarks"`
	Embedding  []float32     `json:"embedding"`
}

// comparisonRequest mirrors the OpenAPI schema for POST /compare and POST /comparisons.
// A null or absent side means the detector found no face.
type comparisonRequest struct {
	ID        string            `json:"id"`
	First     *detectionRequest `json:"first"`
	Second    *detectionRequest `json:"second"`
	Threshold *float64          `json:"threshold,omitempty"`
}

func (d *detectionRequest) toModel() *model.Detection {
	if d == nil {
		return nil
	}
	return &model.Detection{
		Confidence: d.Confidence,
		Landmarks:  model.LandmarkSet(d.Landmarks),
		Embedding:  d.Embedding,
	}
}

func (c *comparisonRequest) toModel() model.Comparison {
	return model.Comparison{
		ID:        c.ID,
		First:     c.First.toModel(),
		Second:    c.Second.toModel(),
		Threshold: c.Threshold,
	}
}

func decodeComparison(w http.ResponseWriter, r *http.Request) (comparisonRequest, error) {
	var req comparisonRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return comparisonRequest{}, err
	}
	return req, nil
}

type ackResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps domain and adapter errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, model.KindInvalidInput
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, model.ErrNoDetection):
		return http.StatusUnprocessableEntity, model.KindNoDetection
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, model.ErrComputation):
		return http.StatusInternalServerError, model.KindComputation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, model.KindCancelled
	default:
		return http.StatusInternalServerError, model.KindInternal
	}
}

func writeClassified(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
