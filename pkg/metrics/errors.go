package metrics

import "errors"

// ErrUnknownOutcome is returned when an outcome label is not recognised.
var ErrUnknownOutcome = errors.New("unknown comparison outcome")
