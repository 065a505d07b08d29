// Package align fits one normalised landmark set onto another with a
// weighted, rotation-only Procrustes analysis and reports the residual.
package align

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/okian/doppel/internal/domain/landmark"
	"github.com/okian/doppel/internal/domain/model"
)

// Fit is the outcome of aligning set A onto set B.
type Fit struct {
	// Distance is the weighted mean Euclidean residual after rotation.
	Distance float64
	// Rotation is the 2x2 matrix applied to A, row-major.
	Rotation [2][2]float64
	// Reflection reports det(Rotation) < 0. The fit does not correct it.
	Reflection bool
}

// Aligner performs weighted Procrustes fits. The zero value is not usable; use New.
type Aligner struct {
	weights [model.LandmarkCount]float64
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithWeights overrides the per-landmark residual weights.
func WithWeights(w [model.LandmarkCount]float64) Option {
	return func(a *Aligner) {
		a.weights = w
	}
}

// New returns an Aligner using the landmark region weights unless overridden.
func New(opts ...Option) *Aligner {
	a := &Aligner{weights: landmark.Weights()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAligner = New()

// Align returns the weighted residual of a onto b using the region weights.
func Align(a, b model.NormalizedSet) (float64, error) {
	return defaultAligner.Align(a, b)
}

// IsReflection reports whether the rotation fitted from a onto b is improper.
func IsReflection(a, b model.NormalizedSet) (bool, error) {
	f, err := defaultAligner.Fit(a, b)
	if err != nil {
		return false, err
	}
	return f.Reflection, nil
}

// Align returns the weighted residual of a onto b.
func (al *Aligner) Align(a, b model.NormalizedSet) (float64, error) {
	f, err := al.Fit(a, b)
	if err != nil {
		return 0, err
	}
	return f.Distance, nil
}

// Fit computes R = V·Uᵗ from the SVD of M = Aᵗ·B (both recentred), rotates A
// by R and averages the per-landmark residuals with the configured weights.
func (al *Aligner) Fit(a, b model.NormalizedSet) (Fit, error) {
	if err := validatePair(a, b); err != nil {
		return Fit{}, err
	}

	ca := landmark.Centroid(a)
	cb := landmark.Centroid(b)

	var m00, m01, m10, m11 float64
	for i := range a {
		ax, ay := a[i].X-ca.X, a[i].Y-ca.Y
		bx, by := b[i].X-cb.X, b[i].Y-cb.Y
		m00 += ax * bx
		m01 += ax * by
		m10 += ay * bx
		m11 += ay * by
	}

	r, err := rotation(mat.NewDense(2, 2, []float64{m00, m01, m10, m11}))
	if err != nil {
		return Fit{}, err
	}

	var total, totalWeight float64
	for i := range a {
		ax, ay := a[i].X-ca.X, a[i].Y-ca.Y
		bx, by := b[i].X-cb.X, b[i].Y-cb.Y
		rx := r[0][0]*ax + r[0][1]*ay
		ry := r[1][0]*ax + r[1][1]*ay
		w := al.weights[i]
		total += w * math.Hypot(rx-bx, ry-by)
		totalWeight += w
	}
	if totalWeight <= 0 {
		return Fit{}, fmt.Errorf("%w: non-positive total weight %v", model.ErrInvalidInput, totalWeight)
	}

	d := total / totalWeight
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return Fit{}, fmt.Errorf("%w: non-finite residual", model.ErrComputation)
	}

	det := r[0][0]*r[1][1] - r[0][1]*r[1][0]
	return Fit{Distance: d, Rotation: r, Reflection: det < 0}, nil
}

// rotation returns V·Uᵗ for the SVD of m.
func rotation(m *mat.Dense) ([2][2]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return [2][2]float64{}, fmt.Errorf("%w: svd did not converge", model.ErrComputation)
	}

	var u, v, r mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r.Mul(&v, u.T())

	out := [2][2]float64{
		{r.At(0, 0), r.At(0, 1)},
		{r.At(1, 0), r.At(1, 1)},
	}
	for _, row := range out {
		for _, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return [2][2]float64{}, fmt.Errorf("%w: non-finite rotation", model.ErrComputation)
			}
		}
	}
	return out, nil
}

func validatePair(a, b model.NormalizedSet) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: landmark sets differ in length (%d vs %d)", model.ErrInvalidInput, len(a), len(b))
	}
	if len(a) != model.LandmarkCount {
		return fmt.Errorf("%w: expected %d landmarks, got %d", model.ErrInvalidInput, model.LandmarkCount, len(a))
	}
	for i := range a {
		if !a[i].Finite() || !b[i].Finite() {
			return fmt.Errorf("%w: non-finite coordinate at landmark %d", model.ErrInvalidInput, i)
		}
	}
	return nil
}
