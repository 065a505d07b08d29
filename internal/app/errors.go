package service

import (
	"errors"

	"github.com/okian/doppel/internal/adapters/repository"
)

var (
	// ErrNotStarted is returned by asynchronous operations before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrBackpressure means the job queue is full or closed; the caller may retry.
	ErrBackpressure = errors.New("queue full")
	// ErrNotFound means no comparison with the given ID was submitted or kept.
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidLimit is returned by TopN for a non-positive limit.
	ErrInvalidLimit = repository.ErrInvalidLimit
)
