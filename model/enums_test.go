package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationshipStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusAutoActivated.IsTerminal())
}

func TestRelationshipStatusMaterializes(t *testing.T) {
	assert.False(t, StatusPending.Materializes())
	assert.True(t, StatusApproved.Materializes())
	assert.False(t, StatusRejected.Materializes())
	assert.True(t, StatusAutoActivated.Materializes())
}

func TestRelationshipStatusCanTransitionTo(t *testing.T) {
	t.Run("Pending transitions to every terminal state", func(t *testing.T) {
		assert.True(t, StatusPending.CanTransitionTo(StatusApproved))
		assert.True(t, StatusPending.CanTransitionTo(StatusRejected))
		assert.True(t, StatusPending.CanTransitionTo(StatusAutoActivated))
	})

	t.Run("Pending cannot transition to pending", func(t *testing.T) {
		assert.False(t, StatusPending.CanTransitionTo(StatusPending))
	})

	t.Run("Terminal states never revert", func(t *testing.T) {
		for _, status := range []RelationshipStatus{StatusApproved, StatusRejected, StatusAutoActivated} {
			assert.False(t, status.CanTransitionTo(StatusPending), "Expected %v to be final", status)
			assert.False(t, status.CanTransitionTo(StatusApproved), "Expected %v to be final", status)
			assert.False(t, status.CanTransitionTo(StatusRejected), "Expected %v to be final", status)
		}
	})
}

func TestMethodLists(t *testing.T) {
	assert.Len(t, BaseMethods, 3)
	assert.NotContains(t, BaseMethods, MethodHybrid, "Hybrid is an ensemble, not a base method")

	assert.Len(t, RetrievalMethods, 4)
	assert.Contains(t, RetrievalMethods, MethodHybrid)

	assert.Len(t, QueryTypes, 4)
}
