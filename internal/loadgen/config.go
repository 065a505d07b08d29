// Package loadgen generates synthetic face detections and drives a running
// doppel service with them.
package loadgen

import "time"

// Defaults used by the doppelctl commands.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultPairs        = 1_000
	DefaultTimeout      = 30 * time.Second
	DefaultEmbeddingDim = 128
	DefaultJitter       = 0.01
	DefaultMatchRatio   = 0.5
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Pairs     int           // Number of comparisons to send
	Workers   int           // Number of concurrent senders
	Timeout   time.Duration // HTTP request timeout
	Seed      uint64        // Seed for the synthetic data
	Async     bool          // Submit to /comparisons instead of /compare
	Generator []GeneratorOption
}

// Stats holds run statistics.
type Stats struct {
	Sent           int           `json:"sent" yaml:"sent"`
	Succeeded      int           `json:"succeeded" yaml:"succeeded"`
	Failed         int           `json:"failed" yaml:"failed"`
	Backpressured  int           `json:"backpressured" yaml:"backpressured"`
	Matches        int           `json:"matches" yaml:"matches"`
	Doppelgangers  int           `json:"doppelgangers" yaml:"doppelgangers"`
	Agreements     int           `json:"agreements" yaml:"agreements"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
	PairsPerSecond float64       `json:"pairs_per_second" yaml:"pairs_per_second"`
}

// Accuracy is the share of synchronous verdicts that agreed with the generator's intent.
func (s Stats) Accuracy() float64 {
	if s.Succeeded == 0 {
		return 0
	}
	return float64(s.Agreements) / float64(s.Succeeded)
}
