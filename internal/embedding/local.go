package embedding

import (
	"context"
	"math"
)

const DefaultLocalDimension = 128

// Local is a deterministic embedder that needs no external service. Each
// rune's code point is accumulated into a fixed-dimension vector which is
// then L2-normalized. It is not a semantic model, but identical input
// always yields an identical vector, which keeps similarity ranking
// consistent and makes it suitable as the offline default and for tests.
type Local struct {
	dim int
}

func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = DefaultLocalDimension
	}
	return &Local{dim: dim}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Dimension() int { return l.dim }

func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, l.dim)
	i := 0
	for _, r := range text {
		vec[i%l.dim] += float32(r) / 1000.0
		i++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
