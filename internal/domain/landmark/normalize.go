// Package landmark normalises 68-point facial landmark sets and holds the
// per-region weights used when comparing them.
package landmark

import (
	"fmt"
	"math"

	"github.com/okian/doppel/internal/domain/model"
)

// Centroid returns the arithmetic mean of points. An empty slice yields the origin.
func Centroid(points []model.Point) model.Point {
	if len(points) == 0 {
		return model.Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return model.Point{X: sx / n, Y: sy / n}
}

// Spread returns the largest distance from any point to the centroid.
func Spread(points []model.Point) float64 {
	c := Centroid(points)
	maxDist := 0.0
	for _, p := range points {
		maxDist = math.Max(maxDist, math.Hypot(p.X-c.X, p.Y-c.Y))
	}
	return maxDist
}

// Normalize translates the set so its centroid is the origin and scales it so
// the farthest point sits at distance 1. A set whose points all coincide has no
// spread and is rejected with model.ErrInvalidInput instead of dividing by zero.
func Normalize(set model.LandmarkSet) (model.NormalizedSet, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	c := Centroid(set)
	maxDist := Spread(set)
	if maxDist == 0 || math.IsInf(maxDist, 0) {
		return nil, fmt.Errorf("%w: degenerate landmark set (spread %v)", model.ErrInvalidInput, maxDist)
	}

	out := make(model.NormalizedSet, len(set))
	for i, p := range set {
		out[i] = model.Point{
			X: (p.X - c.X) / maxDist,
			Y: (p.Y - c.Y) / maxDist,
		}
	}
	return out, nil
}
