package landmark

import "github.com/okian/doppel/internal/domain/model"

// Region weights. Landmarks not listed keep defaultWeight.
const (
	defaultWeight    = 1.0
	eyeWeight        = 2.0
	noseBridgeWeight = 1.75
	noseWeight       = 1.5
	mouthWeight      = 1.5
)

var (
	eyeIndices        = []int{36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47}
	noseBridgeIndices = []int{27, 28, 29, 30}
	noseIndices       = []int{31, 32, 33, 34, 35}
	// Only the outer-lip corners and upper/lower edges carry extra weight.
	mouthIndices = []int{48, 49, 50, 51, 57, 58, 59, 60}
)

var regionWeights = buildWeights()

func buildWeights() [model.LandmarkCount]float64 {
	var w [model.LandmarkCount]float64
	for i := range w {
		w[i] = defaultWeight
	}
	assign := func(indices []int, weight float64) {
		for _, i := range indices {
			w[i] = weight
		}
	}
	assign(eyeIndices, eyeWeight)
	assign(noseBridgeIndices, noseBridgeWeight)
	assign(noseIndices, noseWeight)
	assign(mouthIndices, mouthWeight)
	return w
}

// Weights returns a copy of the region weight table indexed by landmark.
func Weights() [model.LandmarkCount]float64 {
	return regionWeights
}

// Weight returns the weight of landmark i, or the default weight when i is out of range.
func Weight(i int) float64 {
	if i < 0 || i >= model.LandmarkCount {
		return defaultWeight
	}
	return regionWeights[i]
}
