package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAdaptiveConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultAdaptiveConfig()

		assert.Equal(t, 0.15, config.PositiveDelta, "Default PositiveDelta should be 0.15")
		assert.Equal(t, 0.10, config.NegativeDelta, "Default NegativeDelta should be 0.10")
		assert.Equal(t, 1.0, config.InitialEdgeWeight, "Default InitialEdgeWeight should be 1.0")
		assert.Equal(t, 0.01, config.WeightFloor, "Default WeightFloor should be 0.01")
		assert.Equal(t, 0.05, config.HopBonusFactor, "Default HopBonusFactor should be 0.05")
		assert.Equal(t, 0.95, config.RecencyDecayFactor, "Default RecencyDecayFactor should be 0.95")
		assert.Equal(t, 7*24*time.Hour, config.DecayAfter, "Default DecayAfter should be one week")
		assert.Equal(t, 24*time.Hour, config.DecayCycle, "Default DecayCycle should be one day")
		assert.Equal(t, 30*24*time.Hour, config.RetentionWindow, "Default RetentionWindow should be 30 days")
		assert.Equal(t, 0.7, config.LatentConfidenceThreshold, "Default LatentConfidenceThreshold should be 0.7")
		assert.Equal(t, 0.9, config.AutoActivateThreshold, "Default AutoActivateThreshold should be 0.9")
		assert.Equal(t, 5, config.MinHistoricalQueries, "Default MinHistoricalQueries should be 5")
		assert.Equal(t, 0.2, config.SingleMethodMargin, "Default SingleMethodMargin should be 0.2")
		assert.Equal(t, 0.02, config.TieBreakEpsilon, "Default TieBreakEpsilon should be 0.02")
		assert.Equal(t, 0.2, config.StatSmoothing, "Default StatSmoothing should be 0.2")
	})

	t.Run("Auto activation implies discovery", func(t *testing.T) {
		config := DefaultAdaptiveConfig()

		assert.Greater(t, config.AutoActivateThreshold, config.LatentConfidenceThreshold,
			"Auto activation should require more confidence than discovery")
	})

	t.Run("Can be modified after creation", func(t *testing.T) {
		config := DefaultAdaptiveConfig()

		config.PositiveDelta = 0.2
		config.MinHistoricalQueries = 10

		assert.Equal(t, 0.2, config.PositiveDelta)
		assert.Equal(t, 10, config.MinHistoricalQueries)
	})
}
