// Package scoring turns an embedding distance and a landmark alignment
// residual into a percentage similarity verdict.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/doppel/internal/domain/model"
)

// Default scoring constants.
const (
	DefaultDescriptorWeight          = 0.7
	DefaultLandmarkWeight            = 0.3
	DefaultLandmarkDecay             = 5.0
	DefaultDoppelgangerLandmarkMin   = 50.0
	DefaultDoppelgangerDescriptorMax = 49.0
	DefaultThreshold                 = 0.5

	percent = 100.0
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights sets the descriptor and landmark contributions to the overall
// score. Negative weights or a zero sum are ignored.
func WithWeights(descriptor, landmark float64) Option {
	return func(s *Scorer) {
		if descriptor >= 0 && landmark >= 0 && descriptor+landmark > 0 {
			s.descriptorWeight = descriptor
			s.landmarkWeight = landmark
		}
	}
}

// WithLandmarkDecay sets the exponential decay rate applied to the landmark residual.
func WithLandmarkDecay(rate float64) Option {
	return func(s *Scorer) {
		if rate > 0 {
			s.landmarkDecay = rate
		}
	}
}

// WithDoppelgangerBounds sets the minimum landmark score and maximum
// descriptor score that flag a possible doppelganger.
func WithDoppelgangerBounds(landmarkMin, descriptorMax float64) Option {
	return func(s *Scorer) {
		s.doppelLandmarkMin = landmarkMin
		s.doppelDescriptorMax = descriptorMax
	}
}

// Input carries everything needed to score one comparison.
type Input struct {
	EmbeddingDistance float64
	LandmarkDistance  float64
	Confidence1       float64
	Confidence2       float64
	// Threshold is the match threshold in [0,1].
	Threshold float64
	// Landmarks1 and Landmarks2 are the landmark counts of each side, echoed in the result.
	Landmarks1 int
	Landmarks2 int
}

// Result is the similarity verdict. Percentages are in [0,100] with two decimals.
type Result struct {
	OverallScore           float64 `json:"overall_score"`
	DescriptorScore        float64 `json:"descriptor_score"`
	LandmarkScore          float64 `json:"landmark_score"`
	IsMatch                bool    `json:"is_match"`
	Threshold              float64 `json:"threshold"`
	Confidence1            float64 `json:"confidence1"`
	Confidence2            float64 `json:"confidence2"`
	Margin                 float64 `json:"margin"`
	Landmarks1             int     `json:"landmarks1"`
	Landmarks2             int     `json:"landmarks2"`
	IsPossibleDoppelganger bool    `json:"is_possible_doppelganger"`
}

// Scorer combines descriptor and landmark similarity. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	descriptorWeight    float64
	landmarkWeight      float64
	landmarkDecay       float64
	doppelLandmarkMin   float64
	doppelDescriptorMax float64
}

// NewScorer creates a scorer with the default constants unless overridden.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		descriptorWeight:    DefaultDescriptorWeight,
		landmarkWeight:      DefaultLandmarkWeight,
		landmarkDecay:       DefaultLandmarkDecay,
		doppelLandmarkMin:   DefaultDoppelgangerLandmarkMin,
		doppelDescriptorMax: DefaultDoppelgangerDescriptorMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DescriptorScore maps an embedding distance to a percentage.
func (s *Scorer) DescriptorScore(embeddingDistance float64) float64 {
	return math.Max(0, (1-embeddingDistance)*percent)
}

// LandmarkScore maps an alignment residual to a percentage with exponential decay.
func (s *Scorer) LandmarkScore(landmarkDistance float64) float64 {
	return math.Max(0, percent*math.Exp(-s.landmarkDecay*landmarkDistance))
}

// IsPossibleDoppelganger reports geometric similarity without identity
// similarity. Both arguments are unrounded percentages.
func (s *Scorer) IsPossibleDoppelganger(descriptor, landmark float64) bool {
	return landmark >= s.doppelLandmarkMin && descriptor <= s.doppelDescriptorMax
}

// Score computes the verdict for in.
func (s *Scorer) Score(in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}

	descriptor := s.DescriptorScore(in.EmbeddingDistance)
	landmark := s.LandmarkScore(in.LandmarkDistance)
	overall := round2(s.descriptorWeight*descriptor + s.landmarkWeight*landmark)

	return Result{
		OverallScore:           overall,
		DescriptorScore:        round2(descriptor),
		LandmarkScore:          round2(landmark),
		IsMatch:                overall >= in.Threshold*percent,
		Threshold:              round2(in.Threshold * percent),
		Confidence1:            round2(in.Confidence1 * percent),
		Confidence2:            round2(in.Confidence2 * percent),
		Margin:                 round2((in.Confidence1 + in.Confidence2) * percent / 2),
		Landmarks1:             in.Landmarks1,
		Landmarks2:             in.Landmarks2,
		IsPossibleDoppelganger: s.IsPossibleDoppelganger(descriptor, landmark),
	}, nil
}

var defaultScorer = NewScorer()

// Score computes the verdict with the default constants.
func Score(in Input) (Result, error) {
	return defaultScorer.Score(in)
}

// IsPossibleDoppelganger applies the default doppelganger bounds.
func IsPossibleDoppelganger(descriptor, landmark float64) bool {
	return defaultScorer.IsPossibleDoppelganger(descriptor, landmark)
}

func validate(in Input) error {
	for name, v := range map[string]float64{
		"embedding distance": in.EmbeddingDistance,
		"landmark distance":  in.LandmarkDistance,
		"confidence1":        in.Confidence1,
		"confidence2":        in.Confidence2,
		"threshold":          in.Threshold,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", model.ErrInvalidInput, name)
		}
	}
	if in.Threshold < 0 || in.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0,1]", model.ErrInvalidInput, in.Threshold)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*percent) / percent
}
