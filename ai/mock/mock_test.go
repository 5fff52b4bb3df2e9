package mock

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/classit/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "cloud software")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "cloud software")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimensions)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockEmbedder_UnitLength(t *testing.T) {
	vec := generateDeterministicVector("saas cloud software subscriptions", DefaultDimensions)
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)

	zero := generateDeterministicVector("   ", DefaultDimensions)
	for _, v := range zero {
		assert.Zero(t, v)
	}
}

func TestMockEmbedder_SharedWordsAreCloser(t *testing.T) {
	q := generateDeterministicVector("cloud hosting services", DefaultDimensions)
	near := generateDeterministicVector("cloud hosting", DefaultDimensions)
	far := generateDeterministicVector("fresh bakery goods", DefaultDimensions)

	assert.Greater(t, cosine(q, near), cosine(q, far))
}

func TestMockEmbedder_EmbedTexts(t *testing.T) {
	m := NewMockEmbedder()
	out, err := m.EmbedTexts(context.Background(), []string{"a b", "c d", "e"})
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, 1, m.CallCount())
	assert.Equal(t, 3, m.TextCount())

	m.Reset()
	assert.Zero(t, m.CallCount())
	assert.Zero(t, m.TextCount())
}

func TestMockGenerator(t *testing.T) {
	g := NewMockGeneratorWithAnswer("SECTOR: Retail")
	out, err := g.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "SECTOR: Retail", out)
	assert.Equal(t, "prompt text", g.LastPrompt())
	assert.Equal(t, 0.1, g.LastOptions().Temperature)
	assert.Equal(t, 1, g.CallCount())

	def := NewMockGenerator()
	out, err = def.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Contains(t, out, "SECTOR: Unknown")
}

func TestMockProvider(t *testing.T) {
	p := NewMockProviderWithServices(NewMockEmbedder(), NewMockGenerator())
	avail := p.Available(context.Background())
	assert.True(t, avail.Embedding)
	assert.True(t, avail.Generation)

	p.SetAvailability(ai.Availability{})
	assert.False(t, p.Available(context.Background()).Embedding)
	assert.NoError(t, p.Close())
}

