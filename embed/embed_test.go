package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()

	a, err := e.EmbedText(ctx, "the cat eats fish")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "the cat eats fish")
	require.NoError(t, err)

	assert.Len(t, a, e.Dimension())
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-6)

	other, err := e.EmbedText(ctx, "quarterly earnings call")
	require.NoError(t, err)
	assert.Less(t, CosineSimilarity(a, other), 1.0)
}

func TestHashEmbedderBatch(t *testing.T) {
	e := NewHashEmbedder()
	vecs, err := e.EmbedTexts(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestCosineSimilarityEdgeCases(t *testing.T) {
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3e7, 0}
	out := DecodeVector(EncodeVector(in))
	assert.Equal(t, in, out)

	assert.Nil(t, EncodeVector(nil))
	assert.Nil(t, DecodeVector([]byte{1, 2, 3}))
}
