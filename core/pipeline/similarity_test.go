package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("Identical vectors have similarity 1", func(t *testing.T) {
		a := []float32{0.5, 0.25, -0.75}
		similarity := CosineSimilarity(a, a)
		assert.InDelta(t, 1.0, similarity, 0.0001)
	})

	t.Run("Orthogonal vectors have similarity 0", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		similarity := CosineSimilarity(a, b)
		assert.InDelta(t, 0.0, similarity, 0.0001)
	})

	t.Run("Opposite vectors have similarity -1", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{-1, -2, -3}
		similarity := CosineSimilarity(a, b)
		assert.InDelta(t, -1.0, similarity, 0.0001)
	})

	t.Run("Mismatched dimensions yield 0", func(t *testing.T) {
		a := []float32{1, 2}
		b := []float32{1, 2, 3}
		assert.Equal(t, 0.0, CosineSimilarity(a, b))
	})

	t.Run("Zero vector yields 0", func(t *testing.T) {
		a := []float32{0, 0, 0}
		b := []float32{1, 2, 3}
		assert.Equal(t, 0.0, CosineSimilarity(a, b))
	})

	t.Run("Empty vectors yield 0", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	})
}
