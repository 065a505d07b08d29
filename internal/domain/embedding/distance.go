// Package embedding measures distances between identity descriptors.
package embedding

import (
	"fmt"
	"math"

	"github.com/okian/doppel/internal/domain/model"
)

// EuclideanDistance returns the L2 distance between two descriptors.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("%w: empty embedding", model.ErrInvalidInput)
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: embedding length mismatch (%d vs %d)", model.ErrInvalidInput, len(a), len(b))
	}

	var sum float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			return 0, fmt.Errorf("%w: non-finite embedding component at %d", model.ErrInvalidInput, i)
		}
		d := x - y
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
