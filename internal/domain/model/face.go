// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
)

// LandmarkCount is the number of points in the 68-point facial landmark convention.
const LandmarkCount = 68

// Point is a 2-D landmark coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkSet is an ordered set of facial landmarks. Index i always carries the
// same anatomical meaning (jaw 0-16, brows 17-26, nose 27-35, eyes 36-47, mouth 48-67).
type LandmarkSet []Point

// NormalizedSet is a landmark set centred on the origin whose farthest point
// lies at distance 1. Rotation is preserved.
type NormalizedSet []Point

// Detection is one face found by the external detector.
type Detection struct {
	Confidence float64     `json:"confidence"` // detector score in [0,1]
	Landmarks  LandmarkSet `json:"landmarks"`
	Embedding  []float32   `json:"embedding"` // identity descriptor
}

// Comparison asks for the similarity of two detections. A nil side means the
// detector found no face in that image.
type Comparison struct {
	ID        string
	First     *Detection
	Second    *Detection
	Threshold *float64 // match threshold in [0,1]; nil selects the default
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Validate checks the set has exactly LandmarkCount finite points.
func (s LandmarkSet) Validate() error {
	if len(s) != LandmarkCount {
		return fmt.Errorf("%w: landmark set has %d points, want %d", ErrInvalidInput, len(s), LandmarkCount)
	}
	for i, p := range s {
		if !p.Finite() {
			return fmt.Errorf("%w: landmark %d is not finite", ErrInvalidInput, i)
		}
	}
	return nil
}

// Validate checks confidence range, landmarks and that an embedding is present.
func (d *Detection) Validate() error {
	if d == nil {
		return ErrNoDetection
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidInput, d.Confidence)
	}
	if err := d.Landmarks.Validate(); err != nil {
		return err
	}
	if len(d.Embedding) == 0 {
		return fmt.Errorf("%w: empty embedding", ErrInvalidInput)
	}
	return nil
}
