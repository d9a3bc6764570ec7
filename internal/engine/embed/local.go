package embed

import (
	"context"
	"hash/fnv"
	"math"
)

// LocalProvider produces deterministic pseudo-embeddings derived from a text
// hash. Identical text always maps to the identical unit vector, which makes
// it usable for development without a model server and gives tests exact
// reproducibility. It carries no semantic signal.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a deterministic provider of the given dimension.
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = 384
	}
	return &LocalProvider{dimension: dimension}
}

// Embed generates one unit vector per text.
func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Op: "embed", Err: err}
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text, p.dimension)
	}
	return vectors, nil
}

// Dimension returns the configured vector length.
func (p *LocalProvider) Dimension() int {
	return p.dimension
}

// hashVector seeds a linear congruential generator from the FNV hash of the
// text and L2-normalises the result so cosine similarity behaves.
func hashVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, dim)
	var norm float64
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223
		v := float64(seed%2000)/1000.0 - 1.0
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
