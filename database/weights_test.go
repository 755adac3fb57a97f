package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsNewWeightsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewWeightsDBHandler", func(t *testing.T) {
		weightsDbHandler, err := NewWeightsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewWeightsDBHandler to not return an error")
		require.NotNil(t, weightsDbHandler, "Expected NewWeightsDBHandler to return a non-nil instance")
		require.NotNil(t, weightsDbHandler.db, "Expected NewWeightsDBHandler to have a non-nil database instance")
		require.NotNil(t, weightsDbHandler.db.Instance, "Expected NewWeightsDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewWeightsDBHandler with nil database", func(t *testing.T) {
		_, err := NewWeightsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating WeightsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestWeightsAdjust(t *testing.T) {
	database := initDB(t)

	weightsDbHandler, err := NewWeightsDBHandler(database, true)
	require.NoError(t, err)

	t.Run("First touch creates edge at initial weight plus delta", func(t *testing.T) {
		weight, err := weightsDbHandler.AdjustEdgeWeight("Engine", "Car", "part_of", 0.15, true, 1.0, 0.01)
		assert.NoError(t, err)
		require.NotNil(t, weight)
		assert.InDelta(t, 1.15, weight.Weight, 0.0001, "Expected initial weight 1.0 plus success delta 0.15")
		assert.Equal(t, 1, weight.Successes)
		assert.Equal(t, 0, weight.Failures)
	})

	t.Run("Subsequent adjustments accumulate", func(t *testing.T) {
		weight, err := weightsDbHandler.AdjustEdgeWeight("Engine", "Car", "part_of", -0.10, false, 1.0, 0.01)
		assert.NoError(t, err)
		assert.InDelta(t, 1.05, weight.Weight, 0.0001)
		assert.Equal(t, 1, weight.Successes)
		assert.Equal(t, 1, weight.Failures)
	})

	t.Run("Weight never drops below the floor", func(t *testing.T) {
		var final float64
		for i := 0; i < 15; i++ {
			w, err := weightsDbHandler.AdjustEdgeWeight("Floor", "Test", "related_to", -0.10, false, 1.0, 0.01)
			require.NoError(t, err)
			final = w.Weight
		}
		assert.InDelta(t, 0.01, final, 0.0001, "Expected weight clamped at the floor")
	})

	t.Run("Edges with different relation types are independent", func(t *testing.T) {
		first, err := weightsDbHandler.AdjustEdgeWeight("A", "B", "causes", 0.15, true, 1.0, 0.01)
		require.NoError(t, err)
		second, err := weightsDbHandler.AdjustEdgeWeight("A", "B", "similar_to", -0.10, false, 1.0, 0.01)
		require.NoError(t, err)

		assert.InDelta(t, 1.15, first.Weight, 0.0001)
		assert.InDelta(t, 0.90, second.Weight, 0.0001)
	})
}

func TestWeightsSelect(t *testing.T) {
	database := initDB(t)

	weightsDbHandler, err := NewWeightsDBHandler(database, true)
	require.NoError(t, err)

	_, err = weightsDbHandler.AdjustEdgeWeight("Sun", "Earth", "influences", 0.15, true, 1.0, 0.01)
	require.NoError(t, err)

	t.Run("Select existing edge weight", func(t *testing.T) {
		weight, err := weightsDbHandler.SelectEdgeWeight("Sun", "Earth", "influences")
		assert.NoError(t, err)
		require.NotNil(t, weight)
		assert.Equal(t, "Sun", weight.Source)
		assert.Equal(t, "Earth", weight.Target)
		assert.Equal(t, "influences", weight.RelationType)
		assert.InDelta(t, 1.15, weight.Weight, 0.0001)
	})

	t.Run("Select nonexistent edge weight", func(t *testing.T) {
		_, err := weightsDbHandler.SelectEdgeWeight("Nope", "Nothing", "related_to")
		assert.Error(t, err, "Expected error when selecting nonexistent edge")
	})

	t.Run("Select top edge weights ordered by weight", func(t *testing.T) {
		_, err = weightsDbHandler.AdjustEdgeWeight("Moon", "Earth", "orbits", 0.45, true, 1.0, 0.01)
		require.NoError(t, err)

		weights, err := weightsDbHandler.SelectTopEdgeWeights(10)
		assert.NoError(t, err)
		assert.NotEmpty(t, weights)

		for i := 1; i < len(weights); i++ {
			assert.GreaterOrEqual(t, weights[i-1].Weight, weights[i].Weight, "Expected descending weight order")
		}
	})

	t.Run("Count edge weights", func(t *testing.T) {
		count, err := weightsDbHandler.CountEdgeWeights()
		assert.NoError(t, err)
		assert.Greater(t, count, int64(0))
	})
}

func TestWeightsRecencyDecay(t *testing.T) {
	database := initDB(t)

	weightsDbHandler, err := NewWeightsDBHandler(database, true)
	require.NoError(t, err)

	_, err = weightsDbHandler.AdjustEdgeWeight("Stale", "Edge", "related_to", 0.15, true, 1.0, 0.01)
	require.NoError(t, err)

	t.Run("Fresh edges are not decayed", func(t *testing.T) {
		decayed, err := weightsDbHandler.ApplyRecencyDecay(time.Now().Add(-7*24*time.Hour), 0.95, 0.01, time.Now())
		assert.NoError(t, err)
		assert.Equal(t, int64(0), decayed, "Expected fresh edges to be untouched")
	})

	t.Run("Stale edges are decayed exactly once per cycle", func(t *testing.T) {
		cycleStart := time.Now()

		before, err := weightsDbHandler.SelectEdgeWeight("Stale", "Edge", "related_to")
		require.NoError(t, err)

		// Everything updated before the future cutoff counts as stale here
		decayed, err := weightsDbHandler.ApplyRecencyDecay(time.Now().Add(time.Hour), 0.95, 0.01, cycleStart)
		assert.NoError(t, err)
		assert.Greater(t, decayed, int64(0))

		after, err := weightsDbHandler.SelectEdgeWeight("Stale", "Edge", "related_to")
		require.NoError(t, err)
		assert.InDelta(t, before.Weight*0.95, after.Weight, 0.0001, "Expected weight multiplied by decay factor")

		// Re-running within the same cycle must be a no-op
		decayedAgain, err := weightsDbHandler.ApplyRecencyDecay(time.Now().Add(time.Hour), 0.95, 0.01, cycleStart)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), decayedAgain, "Expected decay to be idempotent within one cycle")

		unchanged, err := weightsDbHandler.SelectEdgeWeight("Stale", "Edge", "related_to")
		require.NoError(t, err)
		assert.InDelta(t, after.Weight, unchanged.Weight, 0.0001)
	})
}
