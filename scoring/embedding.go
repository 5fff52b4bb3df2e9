package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/poiesic/classit/ai"
)

// embeddingSimilarity returns the cosine similarity, clamped to [0,1],
// between the query embedding and each text's embedding.
func embeddingSimilarity(ctx context.Context, embedder ai.Embedder, query string, texts []string) ([]float64, error) {
	qv, err := embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCount, len(vectors), len(texts))
	}
	out := make([]float64, len(texts))
	for i, v := range vectors {
		out[i] = max(0, min(1, cosine(qv, v)))
	}
	return out, nil
}

// cosine returns 0 when either vector is empty, zero, or the lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(c) {
		return 0
	}
	return c
}
