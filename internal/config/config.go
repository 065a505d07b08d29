// Package config defines service configuration and its defaults.
package config

import (
	"fmt"
	"runtime"

	"github.com/okian/doppel/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory comparison queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of comparison workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the set of remembered comparison IDs.
	DedupeSize int `koanf:"dedupe_size"`

	// ResultCapacity bounds stored comparison records; the oldest are evicted first.
	ResultCapacity int `koanf:"result_capacity"`

	// MaxTopLimit caps GET /comparisons/top?limit.
	MaxTopLimit int `koanf:"max_top_limit"`

	// DefaultThreshold is the match threshold in [0,1] used when a request has none.
	DefaultThreshold float64 `koanf:"default_threshold"`

	// EmbeddingDim, when positive, requires embeddings of exactly this length.
	EmbeddingDim int `koanf:"embedding_dim"`

	// DescriptorWeight and LandmarkWeight split the overall score.
	DescriptorWeight float64 `koanf:"descriptor_weight"`
	LandmarkWeight   float64 `koanf:"landmark_weight"`

	// LandmarkDecay is the exponential decay rate applied to the alignment residual.
	LandmarkDecay float64 `koanf:"landmark_decay"`

	// Doppelganger flag bounds, as percentages.
	DoppelgangerLandmarkMin   float64 `koanf:"doppelganger_landmark_min"`
	DoppelgangerDescriptorMax float64 `koanf:"doppelganger_descriptor_max"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                  "info",
		LogFormat:                 "text",
		Addr:                      ":9080",
		QueueSize:                 10_000,
		WorkerCount:               runtime.NumCPU() * 2,
		DedupeSize:                100_000,
		ResultCapacity:            100_000,
		MaxTopLimit:               100,
		DefaultThreshold:          0.5,
		EmbeddingDim:              0,
		DescriptorWeight:          0.7,
		LandmarkWeight:            0.3,
		LandmarkDecay:             5,
		DoppelgangerLandmarkMin:   50,
		DoppelgangerDescriptorMax: 49,
	}
}

// Validate reports the first inconsistent setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.ResultCapacity <= 0:
		return fmt.Errorf("%w: result_capacity must be positive", ErrInvalidConfig)
	case c.MaxTopLimit <= 0:
		return fmt.Errorf("%w: max_top_limit must be positive", ErrInvalidConfig)
	case c.DefaultThreshold < 0 || c.DefaultThreshold > 1:
		return fmt.Errorf("%w: default_threshold %v outside [0,1]", ErrInvalidConfig, c.DefaultThreshold)
	case c.EmbeddingDim < 0:
		return fmt.Errorf("%w: embedding_dim must not be negative", ErrInvalidConfig)
	case c.DescriptorWeight < 0 || c.LandmarkWeight < 0 || c.DescriptorWeight+c.LandmarkWeight == 0:
		return fmt.Errorf("%w: score weights must be non-negative with a positive sum", ErrInvalidConfig)
	case c.LandmarkDecay <= 0:
		return fmt.Errorf("%w: landmark_decay must be positive", ErrInvalidConfig)
	}
	return nil
}

// ScorerOptions translates the scoring keys into scorer options.
func (c *Config) ScorerOptions() []scoring.Option {
	return []scoring.Option{
		scoring.WithWeights(c.DescriptorWeight, c.LandmarkWeight),
		scoring.WithLandmarkDecay(c.LandmarkDecay),
		scoring.WithDoppelgangerBounds(c.DoppelgangerLandmarkMin, c.DoppelgangerDescriptorMax),
	}
}
