// Package comparison runs the full similarity pipeline for two detections:
// validation, landmark normalisation, alignment, embedding distance and scoring.
package comparison

import (
	"context"
	"fmt"

	"github.com/okian/doppel/internal/domain/align"
	"github.com/okian/doppel/internal/domain/embedding"
	"github.com/okian/doppel/internal/domain/landmark"
	"github.com/okian/doppel/internal/domain/model"
	"github.com/okian/doppel/internal/domain/scoring"
)

// Outcome is the scored verdict together with the intermediate distances.
type Outcome struct {
	Result            scoring.Result
	EmbeddingDistance float64
	LandmarkDistance  float64
	Reflection        bool
}

// Comparator is stateless after construction and safe for concurrent use.
type Comparator struct {
	scorer           *scoring.Scorer
	aligner          *align.Aligner
	defaultThreshold float64
	embeddingDim     int
}

// Option applies a configuration option to the Comparator.
type Option func(*Comparator)

// WithScorer sets the scorer used for the final verdict.
func WithScorer(s *scoring.Scorer) Option {
	return func(c *Comparator) {
		if s != nil {
			c.scorer = s
		}
	}
}

// WithAligner sets the landmark aligner.
func WithAligner(a *align.Aligner) Option {
	return func(c *Comparator) {
		if a != nil {
			c.aligner = a
		}
	}
}

// WithDefaultThreshold sets the threshold used when a comparison carries none.
func WithDefaultThreshold(t float64) Option {
	return func(c *Comparator) {
		if t >= 0 && t <= 1 {
			c.defaultThreshold = t
		}
	}
}

// WithEmbeddingDim requires every embedding to have exactly dim components.
// Zero accepts any length as long as both sides agree.
func WithEmbeddingDim(dim int) Option {
	return func(c *Comparator) {
		if dim >= 0 {
			c.embeddingDim = dim
		}
	}
}

// New creates a Comparator with the default scorer, aligner and threshold.
func New(opts ...Option) *Comparator {
	c := &Comparator{
		scorer:           scoring.NewScorer(),
		aligner:          align.New(),
		defaultThreshold: scoring.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare returns the similarity verdict for req.
func (c *Comparator) Compare(ctx context.Context, req model.Comparison) (scoring.Result, error) {
	o, err := c.Evaluate(ctx, req)
	if err != nil {
		return scoring.Result{}, err
	}
	return o.Result, nil
}

// Evaluate is Compare with the intermediate distances exposed. It returns
// model.ErrNoDetection without touching the numeric core when either side is
// missing.
func (c *Comparator) Evaluate(ctx context.Context, req model.Comparison) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if req.First == nil || req.Second == nil {
		return Outcome{}, fmt.Errorf("%w: both images must contain a detectable face", model.ErrNoDetection)
	}
	if err := c.validate(req); err != nil {
		return Outcome{}, err
	}

	threshold := c.defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	first, err := landmark.Normalize(req.First.Landmarks)
	if err != nil {
		return Outcome{}, fmt.Errorf("first detection: %w", err)
	}
	second, err := landmark.Normalize(req.Second.Landmarks)
	if err != nil {
		return Outcome{}, fmt.Errorf("second detection: %w", err)
	}

	fit, err := c.aligner.Fit(first, second)
	if err != nil {
		return Outcome{}, fmt.Errorf("align landmarks: %w", err)
	}

	ed, err := embedding.EuclideanDistance(req.First.Embedding, req.Second.Embedding)
	if err != nil {
		return Outcome{}, fmt.Errorf("embedding distance: %w", err)
	}

	res, err := c.scorer.Score(scoring.Input{
		EmbeddingDistance: ed,
		LandmarkDistance:  fit.Distance,
		Confidence1:       req.First.Confidence,
		Confidence2:       req.Second.Confidence,
		Threshold:         threshold,
		Landmarks1:        len(req.First.Landmarks),
		Landmarks2:        len(req.Second.Landmarks),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("score: %w", err)
	}

	return Outcome{
		Result:            res,
		EmbeddingDistance: ed,
		LandmarkDistance:  fit.Distance,
		Reflection:        fit.Reflection,
	}, nil
}

func (c *Comparator) validate(req model.Comparison) error {
	if err := req.First.Validate(); err != nil {
		return fmt.Errorf("first detection: %w", err)
	}
	if err := req.Second.Validate(); err != nil {
		return fmt.Errorf("second detection: %w", err)
	}
	if req.Threshold != nil && !(*req.Threshold >= 0 && *req.Threshold <= 1) {
		return fmt.Errorf("%w: threshold %v outside [0,1]", model.ErrInvalidInput, *req.Threshold)
	}
	if c.embeddingDim > 0 {
		for side, d := range map[string]*model.Detection{"first": req.First, "second": req.Second} {
			if len(d.Embedding) != c.embeddingDim {
				return fmt.Errorf("%w: %s embedding has %d components, want %d", model.ErrInvalidInput, side, len(d.Embedding), c.embeddingDim)
			}
		}
	}
	return nil
}
