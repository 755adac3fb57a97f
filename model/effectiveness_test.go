package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessRate(t *testing.T) {
	t.Run("No attempts yields zero", func(t *testing.T) {
		stat := &MethodStat{}
		assert.Equal(t, 0.0, stat.SuccessRate())
	})

	t.Run("Rate is successes over attempts", func(t *testing.T) {
		stat := &MethodStat{Attempts: 10, Successes: 9}
		assert.InDelta(t, 0.9, stat.SuccessRate(), 0.0001)
	})
}

func TestReliabilityConfidence(t *testing.T) {
	t.Run("Grows with sample size toward one", func(t *testing.T) {
		small := &MethodStat{Attempts: 5}
		large := &MethodStat{Attempts: 100}

		assert.Less(t, small.ReliabilityConfidence(), large.ReliabilityConfidence())
		assert.Less(t, large.ReliabilityConfidence(), 1.0)
	})

	t.Run("No attempts means no reliability", func(t *testing.T) {
		stat := &MethodStat{}
		assert.Equal(t, 0.0, stat.ReliabilityConfidence())
	})
}

func TestReliable(t *testing.T) {
	t.Run("Needs both the minimum attempts and reliability", func(t *testing.T) {
		// 11 attempts: 1 - 1/2.1 > 0.5
		assert.True(t, (&MethodStat{Attempts: 11}).Reliable(5))
	})

	t.Run("Below the attempt minimum", func(t *testing.T) {
		assert.False(t, (&MethodStat{Attempts: 11}).Reliable(20))
	})

	t.Run("Enough attempts but low reliability confidence", func(t *testing.T) {
		// 5 attempts: 1 - 1/1.5 = 0.33
		assert.False(t, (&MethodStat{Attempts: 5}).Reliable(5))
	})
}
