package landmark

import (
	"math"

	"github.com/okian/doppel/internal/domain/model"
)

// Template returns a frontal, upright mean face in the 68-point convention,
// roughly unit sized and centred near the origin (image axes: y grows down).
// It seeds synthetic detections and serves as a fixture for shape tests.
func Template() model.LandmarkSet {
	pts := make(model.LandmarkSet, 0, model.LandmarkCount)

	// Jaw 0-16, left ear to right ear through the chin.
	for i := 0; i <= 16; i++ {
		t := math.Pi - float64(i)*math.Pi/16
		pts = append(pts, model.Point{X: 0.9 * math.Cos(t), Y: -0.1 + 1.0*math.Sin(t)})
	}
	// Brows 17-21 and 22-26.
	for _, cx := range []float64{-0.4, 0.4} {
		for i := 0; i < 5; i++ {
			dx := -0.24 + 0.12*float64(i)
			pts = append(pts, model.Point{X: cx + dx, Y: -0.55 + 0.6*dx*dx})
		}
	}
	// Nose bridge 27-30.
	for i := 0; i < 4; i++ {
		pts = append(pts, model.Point{X: 0, Y: -0.35 + 0.12*float64(i)})
	}
	// Lower nose 31-35.
	for i := 0; i < 5; i++ {
		dx := -0.16 + 0.08*float64(i)
		pts = append(pts, model.Point{X: dx, Y: 0.12 + 0.8*dx*dx})
	}
	// Eyes 36-41 and 42-47, six points each.
	for _, cx := range []float64{-0.38, 0.38} {
		for i := 0; i < 6; i++ {
			t := math.Pi - float64(i)*math.Pi/3
			pts = append(pts, model.Point{X: cx + 0.13*math.Cos(t), Y: -0.3 - 0.05*math.Sin(t)})
		}
	}
	// Outer lip 48-59.
	for i := 0; i < 12; i++ {
		t := math.Pi - float64(i)*math.Pi/6
		pts = append(pts, model.Point{X: 0.32 * math.Cos(t), Y: 0.45 - 0.11*math.Sin(t)})
	}
	// Inner lip 60-67.
	for i := 0; i < 8; i++ {
		t := math.Pi - float64(i)*math.Pi/4
		pts = append(pts, model.Point{X: 0.2 * math.Cos(t), Y: 0.45 - 0.04*math.Sin(t)})
	}
	return pts
}

// Transform applies rotation (radians, about the origin), uniform scale and
// translation to every point of set.
func Transform(set model.LandmarkSet, angle, scale, dx, dy float64) model.LandmarkSet {
	sin, cos := math.Sincos(angle)
	out := make(model.LandmarkSet, len(set))
	for i, p := range set {
		out[i] = model.Point{
			X: scale*(cos*p.X-sin*p.Y) + dx,
			Y: scale*(sin*p.X+cos*p.Y) + dy,
		}
	}
	return out
}
