package model

import (
	"context"
	"errors"
)

// Sentinel kinds shared by the comparison core. Callers match them with errors.Is.
var (
	// ErrInvalidInput covers missing, wrongly sized or degenerate landmark sets
	// and non-finite numeric inputs.
	ErrInvalidInput = errors.New("invalid input")
	// ErrComputation reports a numerical failure while aligning landmarks.
	ErrComputation = errors.New("computation error")
	// ErrNoDetection means one side of a comparison has no detected face.
	ErrNoDetection = errors.New("no face detected")
)

// Error kinds used as metric labels and in stored failure records.
const (
	KindInvalidInput = "invalid_input"
	KindComputation  = "computation"
	KindNoDetection  = "no_detection"
	KindCancelled    = "cancelled"
	KindInternal     = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNoDetection):
		return KindNoDetection
	case errors.Is(err, ErrComputation):
		return KindComputation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}
