// Package repository stores comparison records and ranks finished ones by score.
package repository

import (
	"context"
	"time"

	"github.com/okian/doppel/internal/domain/scoring"
	"github.com/okian/doppel/internal/domain/types"
)

// Status is the lifecycle state of an asynchronous comparison.
type Status string

// Comparison states.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Record is the stored outcome of one comparison.
type Record struct {
	ID               string          `json:"id"`
	Status           Status          `json:"status"`
	Result           *scoring.Result `json:"result,omitempty"`
	LandmarkDistance float64         `json:"landmark_distance,omitempty"`
	Reflection       bool            `json:"reflection,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorKind        string          `json:"error_kind,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Store provides read/write access to comparison records.
type Store interface {
	// Save inserts or replaces the record with the same ID.
	Save(ctx context.Context, rec Record) error

	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// TopN returns up to n finished comparisons ordered by overall score desc, then ID asc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int
}
