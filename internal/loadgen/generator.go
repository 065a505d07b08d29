package loadgen

import (
	"math"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/okian/doppel/internal/domain/landmark"
	"github.com/okian/doppel/internal/domain/model"
)

const (
	shapeSpread    = 0.03
	embeddingNoise = 0.1
	maxTilt        = 0.5
	minScale       = 40.0
	maxScale       = 240.0
	maxOffset      = 600.0
	minConfidence  = 0.7
)

// Identity is a synthetic person: a face shape and a unit-length embedding.
type Identity struct {
	Shape     model.LandmarkSet
	Embedding []float32
}

// Pair is a generated comparison with the verdict the generator intended.
type Pair struct {
	Comparison model.Comparison
	SameFace   bool
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithEmbeddingDim sets the embedding length.
func WithEmbeddingDim(dim int) GeneratorOption {
	return func(g *Generator) {
		if dim > 0 {
			g.dim = dim
		}
	}
}

// WithJitter sets the per-point landmark noise, relative to face size.
func WithJitter(j float64) GeneratorOption {
	return func(g *Generator) {
		if j >= 0 {
			g.jitter = j
		}
	}
}

// WithMatchRatio sets the share of pairs that show the same identity.
func WithMatchRatio(r float64) GeneratorOption {
	return func(g *Generator) {
		if r >= 0 && r <= 1 {
			g.matchRatio = r
		}
	}
}

// Generator produces reproducible synthetic detections. Safe for concurrent use.
type Generator struct {
	mu         sync.Mutex
	rng        *rand.Rand
	dim        int
	jitter     float64
	matchRatio float64
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed uint64, opts ...GeneratorOption) *Generator {
	g := &Generator{
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		dim:        DefaultEmbeddingDim,
		jitter:     DefaultJitter,
		matchRatio: DefaultMatchRatio,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Identity returns a new random identity.
func (g *Generator) Identity() Identity {
	g.mu.Lock()
	defer g.mu.Unlock()

	shape := landmark.Template()
	for i := range shape {
		shape[i].X += g.rng.NormFloat64() * shapeSpread
		shape[i].Y += g.rng.NormFloat64() * shapeSpread
	}
	emb := make([]float32, g.dim)
	for i := range emb {
		emb[i] = float32(g.rng.NormFloat64())
	}
	return Identity{Shape: shape, Embedding: unit(emb)}
}

// Detection renders id as the detector would see it in one photo: random pose,
// size and position, landmark jitter and a slightly perturbed embedding.
func (g *Generator) Detection(id Identity) *model.Detection {
	g.mu.Lock()
	defer g.mu.Unlock()

	angle := (g.rng.Float64()*2 - 1) * maxTilt
	scale := minScale + g.rng.Float64()*(maxScale-minScale)
	dx := g.rng.Float64() * maxOffset
	dy := g.rng.Float64() * maxOffset

	pts := landmark.Transform(id.Shape, angle, scale, dx, dy)
	for i := range pts {
		pts[i].X += g.rng.NormFloat64() * g.jitter * scale
		pts[i].Y += g.rng.NormFloat64() * g.jitter * scale
	}

	sigma := embeddingNoise / math.Sqrt(float64(len(id.Embedding)))
	emb := make([]float32, len(id.Embedding))
	for i, v := range id.Embedding {
		emb[i] = v + float32(g.rng.NormFloat64()*sigma)
	}

	return &model.Detection{
		Confidence: minConfidence + g.rng.Float64()*(1-minConfidence),
		Landmarks:  pts,
		Embedding:  unit(emb),
	}
}

// Pair returns a comparison named by index. It shows the same identity twice
// with probability matchRatio.
func (g *Generator) Pair(index int) Pair {
	g.mu.Lock()
	same := g.rng.Float64() < g.matchRatio
	g.mu.Unlock()

	first := g.Identity()
	second := first
	if !same {
		second = g.Identity()
	}
	return Pair{
		Comparison: model.Comparison{
			ID:     "pair-" + strconv.Itoa(index),
			First:  g.Detection(first),
			Second: g.Detection(second),
		},
		SameFace: same,
	}
}

// Pairs returns n consecutive pairs.
func (g *Generator) Pairs(n int) []Pair {
	out := make([]Pair, n)
	for i := range out {
		out[i] = g.Pair(i)
	}
	return out
}

func unit(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
	return v
}
