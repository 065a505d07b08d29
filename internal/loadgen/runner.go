package loadgen

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/doppel/pkg/logger"
)

// RunOption configures Run.
type RunOption func(*runner)

// WithProgress registers a callback invoked once per finished pair.
func WithProgress(fn func()) RunOption {
	return func(r *runner) {
		if fn != nil {
			r.progress = fn
		}
	}
}

// WithLogger sets the run logger.
func WithLogger(l logger.Logger) RunOption {
	return func(r *runner) {
		if l != nil {
			r.logger = l
		}
	}
}

type runner struct {
	cfg      Config
	client   *Client
	progress func()
	logger   logger.Logger

	succeeded, failed, backpressured atomic.Int64
	matches, doppelgangers, agreed   atomic.Int64
}

// Run checks the service health, generates cfg.Pairs synthetic pairs and sends
// them with cfg.Workers concurrent senders.
func Run(ctx context.Context, cfg Config, opts ...RunOption) (Stats, error) { //nolint:gocritic // hugeParam: run configuration
	if cfg.Pairs < 1 {
		cfg.Pairs = DefaultPairs
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU() * 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	r := &runner{
		cfg:      cfg,
		client:   NewClient(cfg.BaseURL, cfg.Timeout),
		progress: func() {},
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.client.Health(ctx); err != nil {
		return Stats{}, fmt.Errorf("service health check failed: %w", err)
	}

	pairs := NewGenerator(cfg.Seed, cfg.Generator...).Pairs(cfg.Pairs)
	r.logger.Info(ctx, "generated pairs", logger.Int("pairs", len(pairs)), logger.Int("workers", cfg.Workers))

	start := time.Now()
	jobs := make(chan Pair, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				r.send(ctx, p)
				r.progress()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range pairs {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()
	wg.Wait()

	stats := r.stats(time.Since(start))
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("run interrupted: %w", err)
	}
	r.logger.Info(ctx, "run completed",
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Int("backpressured", stats.Backpressured),
		logger.Float64("pairsPerSecond", stats.PairsPerSecond),
	)
	return stats, nil
}

func (r *runner) send(ctx context.Context, p Pair) { //nolint:gocritic // hugeParam: pairs travel by value
	if r.cfg.Async {
		_, err := r.client.Submit(ctx, p.Comparison)
		r.record(ctx, p, err)
		return
	}

	res, err := r.client.Compare(ctx, p.Comparison)
	r.record(ctx, p, err)
	if err != nil {
		return
	}
	if res.IsMatch {
		r.matches.Add(1)
	}
	if res.IsPossibleDoppelganger {
		r.doppelgangers.Add(1)
	}
	if res.IsMatch == p.SameFace {
		r.agreed.Add(1)
	}
}

func (r *runner) record(ctx context.Context, p Pair, err error) { //nolint:gocritic // hugeParam: pairs travel by value
	switch {
	case err == nil:
		r.succeeded.Add(1)
	case errors.Is(err, ErrBackpressure):
		r.backpressured.Add(1)
	default:
		r.failed.Add(1)
		r.logger.Debug(ctx, "pair failed", logger.String("id", p.Comparison.ID), logger.Error(err))
	}
}

func (r *runner) stats(elapsed time.Duration) Stats {
	s := Stats{
		Succeeded:     int(r.succeeded.Load()),
		Failed:        int(r.failed.Load()),
		Backpressured: int(r.backpressured.Load()),
		Matches:       int(r.matches.Load()),
		Doppelgangers: int(r.doppelgangers.Load()),
		Agreements:    int(r.agreed.Load()),
		Duration:      elapsed,
	}
	s.Sent = s.Succeeded + s.Failed + s.Backpressured
	if elapsed > 0 {
		s.PairsPerSecond = float64(s.Sent) / elapsed.Seconds()
	}
	return s
}
