// Package service wires the comparison core to the queue, worker pool, deduper
// and result store, and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/doppel/internal/adapters/mq/queue"
	"github.com/okian/doppel/internal/adapters/mq/worker"
	"github.com/okian/doppel/internal/adapters/repository"
	"github.com/okian/doppel/internal/domain/comparison"
	"github.com/okian/doppel/internal/domain/dedupe"
	"github.com/okian/doppel/internal/domain/model"
	"github.com/okian/doppel/internal/domain/scoring"
	"github.com/okian/doppel/internal/domain/types"
	"github.com/okian/doppel/pkg/logger"
	"github.com/okian/doppel/pkg/metrics"
)

const (
	defaultQueueSize       = 10_000
	defaultDedupeSize      = 100_000
	defaultResultCapacity  = 100_000
	defaultRuntimeInterval = 10 * time.Second
)

// Service implements the API dependencies for the similarity service.
type Service struct {
	mu sync.RWMutex

	// Core components
	comparer *instrumentedComparer
	store    *repository.TreapStore
	deduper  dedupe.Deduper
	pending  *inflight
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	resultCapacity   int
	defaultThreshold float64
	embeddingDim     int
	scorerOpts       []scoring.Option
	runtimeInterval  time.Duration

	// State
	started bool
	stopCh  chan struct{}
	loopWG  sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many comparison IDs are remembered for deduplication.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithResultCapacity bounds the number of stored comparison records.
func WithResultCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.resultCapacity = capacity
		}
	}
}

// WithDefaultThreshold sets the match threshold used when a request has none.
func WithDefaultThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 && t <= 1 {
			s.defaultThreshold = t
		}
	}
}

// WithEmbeddingDim pins the accepted embedding length. Zero accepts any.
func WithEmbeddingDim(dim int) Option {
	return func(s *Service) {
		if dim >= 0 {
			s.embeddingDim = dim
		}
	}
}

// WithScorerOptions configures the scorer behind every comparison.
func WithScorerOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.scorerOpts = append(s.scorerOpts, opts...)
	}
}

// WithRuntimeMetricsInterval sets how often runtime gauges are refreshed.
func WithRuntimeMetricsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.runtimeInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Compare, Result and TopN work right away;
// Submit needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        defaultQueueSize,
		dedupeSize:       defaultDedupeSize,
		resultCapacity:   defaultResultCapacity,
		defaultThreshold: scoring.DefaultThreshold,
		runtimeInterval:  defaultRuntimeInterval,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.comparer = &instrumentedComparer{
		comparator: comparison.New(
			comparison.WithScorer(scoring.NewScorer(s.scorerOpts...)),
			comparison.WithDefaultThreshold(s.defaultThreshold),
			comparison.WithEmbeddingDim(s.embeddingDim),
		),
		logger: s.logger.Named("comparer"),
	}
	s.store = repository.NewTreapStore(repository.WithCapacity(s.resultCapacity))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.pending = newInflight()
	return s
}

// Start creates the queue and worker pool and starts processing submissions.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting similarity service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.comparer,
		trackingSaver{store: s.store, inflight: s.pending},
		worker.WithLogger(s.logger))
	// Workers outlive the start request; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	s.loopWG.Add(1)
	go s.collectRuntime(s.stopCh)

	s.started = true
	s.logger.Info(ctx, "similarity service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("resultCapacity", s.resultCapacity),
	)
	return nil
}

// Stop closes the queue, drains queued comparisons and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping similarity service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
	}
	close(s.stopCh)
	s.loopWG.Wait()
	s.pending.reset()

	s.started = false
	s.logger.Info(ctx, "similarity service stopped")
}

func (s *Service) collectRuntime(stop <-chan struct{}) {
	defer s.loopWG.Done()
	ticker := time.NewTicker(s.runtimeInterval)
	defer ticker.Stop()

	metrics.CollectRuntime()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			metrics.CollectRuntime()
		}
	}
}

// Compare runs a comparison synchronously.
func (s *Service) Compare(ctx context.Context, req model.Comparison) (scoring.Result, error) { //nolint:gocritic // hugeParam: request value from the API
	o, err := s.comparer.Evaluate(ctx, req)
	if err != nil {
		return scoring.Result{}, err
	}
	return o.Result, nil
}

// Submit queues a comparison for asynchronous processing. A missing ID is
// replaced by a random UUID. Resubmitting a known ID is a no-op reported as
// a duplicate. A full queue yields ErrBackpressure and the ID is forgotten so
// the caller can retry.
func (s *Service) Submit(ctx context.Context, req model.Comparison) (types.Submission, error) { //nolint:gocritic // hugeParam: request value from the API
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.Submission{}, ErrNotStarted
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if s.deduper.SeenAndRecord(ctx, req.ID) {
		metrics.RecordDuplicate()
		s.logger.Debug(ctx, "duplicate comparison skipped", logger.String("id", req.ID))
		return types.Submission{ID: req.ID, Duplicate: true}, nil
	}

	s.pending.add(req.ID)
	if err := s.queue.Enqueue(ctx, req); err != nil {
		s.pending.remove(req.ID)
		s.deduper.Unrecord(ctx, req.ID)
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) {
			return types.Submission{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return types.Submission{}, fmt.Errorf("enqueue comparison %s: %w", req.ID, err)
	}

	s.logger.Debug(ctx, "comparison queued", logger.String("id", req.ID))
	return types.Submission{ID: req.ID}, nil
}

// Result returns the stored record for id. A queued comparison that has not
// been saved yet is reported with StatusPending; an evicted or dropped one is
// ErrNotFound.
func (s *Service) Result(ctx context.Context, id string) (repository.Record, error) {
	// Checked before the lookup: workers save first and clear the ID after.
	queued := s.pending.has(id)
	rec, err := s.store.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, repository.ErrNotFound) && queued {
		return repository.Record{ID: id, Status: repository.StatusPending}, nil
	}
	return repository.Record{}, err
}

// TopN returns the n highest scoring finished comparisons.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return s.store.TopN(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"dedupeSize":       s.dedupeSize,
		"resultCapacity":   s.resultCapacity,
		"trackedIDs":       s.deduper.Size(),
		"pendingResults":   s.pending.len(),
		"storedResults":    s.store.Count(ctx),
		"rankedResults":    s.store.Ranked(ctx),
		"defaultThreshold": s.defaultThreshold,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["processed"] = s.pool.Processed()
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
