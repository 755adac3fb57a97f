package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaptive-rag/metagraph/model"
)

func newTestRelationship(source, target string) *model.LatentRelationship {
	return &model.LatentRelationship{
		SourceEntity: source,
		TargetEntity: target,
		RelationType: "part_of",
		Confidence:   0.75,
		Provenance:   model.ProvenanceImplicit,
		Evidence:     "The " + source + " is part of the " + target + ".",
		SourceQuery:  "what contains the " + source,
	}
}

func TestRelationshipsNewRelationshipsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewRelationshipsDBHandler", func(t *testing.T) {
		relationshipsDbHandler, err := NewRelationshipsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewRelationshipsDBHandler to not return an error")
		require.NotNil(t, relationshipsDbHandler, "Expected NewRelationshipsDBHandler to return a non-nil instance")
		require.NotNil(t, relationshipsDbHandler.db, "Expected NewRelationshipsDBHandler to have a non-nil database instance")
		require.NotNil(t, relationshipsDbHandler.db.Instance, "Expected NewRelationshipsDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewRelationshipsDBHandler with nil database", func(t *testing.T) {
		_, err := NewRelationshipsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating RelationshipsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestRelationshipsInsert(t *testing.T) {
	database := initDB(t)

	relationshipsDbHandler, err := NewRelationshipsDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Insert new relationship starts pending", func(t *testing.T) {
		relationship := newTestRelationship("Engine", "Car")

		err := relationshipsDbHandler.InsertRelationship(relationship)
		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, relationship.ID, "Expected inserted relationship to have an ID")
		assert.Equal(t, model.StatusPending, relationship.Status)
		assert.Nil(t, relationship.ResolvedAt)
		assert.WithinDuration(t, relationship.DiscoveredAt, time.Now(), 2*time.Second)
	})

	t.Run("Re-discovery keeps the higher confidence", func(t *testing.T) {
		lower := newTestRelationship("Engine", "Car")
		lower.Confidence = 0.6
		err := relationshipsDbHandler.InsertRelationship(lower)
		assert.NoError(t, err)
		assert.InDelta(t, 0.75, lower.Confidence, 0.0001, "Expected existing higher confidence to win")

		higher := newTestRelationship("Engine", "Car")
		higher.Confidence = 0.95
		higher.SourceQuery = "which parts make up the car"
		err = relationshipsDbHandler.InsertRelationship(higher)
		assert.NoError(t, err)
		assert.InDelta(t, 0.95, higher.Confidence, 0.0001, "Expected new higher confidence to win")
		assert.Equal(t, "which parts make up the car", higher.SourceQuery, "Expected the winning source query alongside the winning confidence")
	})

	t.Run("Re-discovery of a resolved relationship is rejected", func(t *testing.T) {
		relationship := newTestRelationship("Wheel", "Car")
		err := relationshipsDbHandler.InsertRelationship(relationship)
		require.NoError(t, err)

		_, err = relationshipsDbHandler.TransitionStatus(relationship.ID, model.StatusApproved)
		require.NoError(t, err)

		err = relationshipsDbHandler.InsertRelationship(newTestRelationship("Wheel", "Car"))
		assert.ErrorIs(t, err, model.ErrAlreadyResolved, "Expected resolved relationship to stay untouched")
	})
}

func TestRelationshipsSelect(t *testing.T) {
	database := initDB(t)

	relationshipsDbHandler, err := NewRelationshipsDBHandler(database, true)
	require.NoError(t, err)

	relationship := newTestRelationship("Sun", "Solar System")
	err = relationshipsDbHandler.InsertRelationship(relationship)
	require.NoError(t, err)

	t.Run("Select existing relationship", func(t *testing.T) {
		selected, err := relationshipsDbHandler.SelectRelationship(relationship.ID)
		assert.NoError(t, err)
		require.NotNil(t, selected)
		assert.Equal(t, relationship.ID, selected.ID)
		assert.Equal(t, "Sun", selected.SourceEntity)
		assert.Equal(t, "Solar System", selected.TargetEntity)
		assert.Equal(t, model.ProvenanceImplicit, selected.Provenance)
		assert.Equal(t, "what contains the Sun", selected.SourceQuery)
	})

	t.Run("Select nonexistent relationship", func(t *testing.T) {
		_, err := relationshipsDbHandler.SelectRelationship(uuid.New())
		assert.Error(t, err, "Expected error when selecting nonexistent relationship")
	})

	t.Run("Select pending relationships ordered by confidence", func(t *testing.T) {
		high := newTestRelationship("Battery", "Car")
		high.Confidence = 0.99
		err := relationshipsDbHandler.InsertRelationship(high)
		require.NoError(t, err)

		pending, err := relationshipsDbHandler.SelectRelationshipsByStatus(model.StatusPending)
		assert.NoError(t, err)
		assert.NotEmpty(t, pending)

		for i := 1; i < len(pending); i++ {
			assert.GreaterOrEqual(t, pending[i-1].Confidence, pending[i].Confidence, "Expected descending confidence order")
		}
	})
}

func TestRelationshipsTransitionStatus(t *testing.T) {
	database := initDB(t)

	relationshipsDbHandler, err := NewRelationshipsDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Approve pending relationship", func(t *testing.T) {
		relationship := newTestRelationship("Leaf", "Tree")
		err := relationshipsDbHandler.InsertRelationship(relationship)
		require.NoError(t, err)

		approved, err := relationshipsDbHandler.TransitionStatus(relationship.ID, model.StatusApproved)
		assert.NoError(t, err)
		require.NotNil(t, approved)
		assert.Equal(t, model.StatusApproved, approved.Status)
		require.NotNil(t, approved.ResolvedAt, "Expected resolved timestamp to be set")
		assert.WithinDuration(t, *approved.ResolvedAt, time.Now(), 2*time.Second)
	})

	t.Run("Second transition loses the race", func(t *testing.T) {
		relationship := newTestRelationship("Root", "Tree")
		err := relationshipsDbHandler.InsertRelationship(relationship)
		require.NoError(t, err)

		_, err = relationshipsDbHandler.TransitionStatus(relationship.ID, model.StatusRejected)
		require.NoError(t, err)

		_, err = relationshipsDbHandler.TransitionStatus(relationship.ID, model.StatusApproved)
		assert.ErrorIs(t, err, model.ErrAlreadyResolved, "Expected the first transition to win")

		// The stored state stays at the first transition
		selected, err := relationshipsDbHandler.SelectRelationship(relationship.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusRejected, selected.Status)
	})

	t.Run("Transition to pending is rejected", func(t *testing.T) {
		relationship := newTestRelationship("Branch", "Tree")
		err := relationshipsDbHandler.InsertRelationship(relationship)
		require.NoError(t, err)

		_, err = relationshipsDbHandler.TransitionStatus(relationship.ID, model.StatusPending)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Transition of nonexistent relationship", func(t *testing.T) {
		_, err := relationshipsDbHandler.TransitionStatus(uuid.New(), model.StatusApproved)
		assert.ErrorIs(t, err, model.ErrAlreadyResolved)
	})
}

func TestRelationshipsCountByStatus(t *testing.T) {
	database := initDB(t)

	relationshipsDbHandler, err := NewRelationshipsDBHandler(database, true)
	require.NoError(t, err)

	pending := newTestRelationship("Keyboard", "Computer")
	err = relationshipsDbHandler.InsertRelationship(pending)
	require.NoError(t, err)

	resolved := newTestRelationship("Screen", "Computer")
	err = relationshipsDbHandler.InsertRelationship(resolved)
	require.NoError(t, err)
	_, err = relationshipsDbHandler.TransitionStatus(resolved.ID, model.StatusAutoActivated)
	require.NoError(t, err)

	t.Run("Counts cover all present states", func(t *testing.T) {
		counts, err := relationshipsDbHandler.CountByStatus()
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, counts[model.StatusPending], 1)
		assert.GreaterOrEqual(t, counts[model.StatusAutoActivated], 1)
	})
}
