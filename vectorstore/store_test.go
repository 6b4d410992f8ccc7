package vectorstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestCosineSimilarityDegenerateInputs(t *testing.T) {
	assert.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestCosineSimilarityScaleInvariant(t *testing.T) {
	a := []float32{0.3, 0.7, 0.1}
	b := []float32{0.6, 1.4, 0.2} // a scaled by 2
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-6)
}

func TestTopK(t *testing.T) {
	results := []SearchResult{
		{Chunk: Chunk{Index: 0}, Score: 0.2},
		{Chunk: Chunk{Index: 1}, Score: 0.9},
		{Chunk: Chunk{Index: 2}, Score: 0.5},
	}

	top := TopK(results, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Chunk.Index)
	assert.Equal(t, 2, top[1].Chunk.Index)
}

func TestTopKFewerResultsThanK(t *testing.T) {
	results := []SearchResult{{Score: 0.1}}
	assert.Len(t, TopK(results, 5), 1)
}

func TestTopKZeroKeepsAll(t *testing.T) {
	results := []SearchResult{{Score: 0.1}, {Score: 0.3}}
	top := TopK(results, 0)
	require.Len(t, top, 2)
	assert.True(t, top[0].Score >= top[1].Score)
	assert.False(t, math.IsNaN(top[0].Score))
}
