package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
	loadSql "github.com/adaptive-rag/metagraph/sql"
)

// RelationshipsDBHandlerFunctions defines the interface for latent-relationship database operations.
type RelationshipsDBHandlerFunctions interface {
	InsertRelationship(relationship *model.LatentRelationship) error
	SelectRelationship(id uuid.UUID) (*model.LatentRelationship, error)
	SelectRelationshipsByStatus(status model.RelationshipStatus) ([]*model.LatentRelationship, error)
	TransitionStatus(id uuid.UUID, status model.RelationshipStatus) (*model.LatentRelationship, error)
	CountByStatus() (map[model.RelationshipStatus]int, error)
}

// RelationshipsDBHandler handles latent-relationship database operations
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new latent-relationship database handler.
// It initializes the database connection and loads relationship-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
	}

	err := loadSql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'latent_relationships' table in the database.
// If the table already exists, it does not create it again.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		log.Panicf("error initializing latent_relationships table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table latent_relationships")

	return nil
}

// InsertRelationship stores a discovered relationship as PENDING. When the
// same (source, target, type) is re-discovered while still pending, the
// higher confidence wins. A relationship already resolved stays untouched
// and ErrAlreadyResolved is returned.
func (h *RelationshipsDBHandler) InsertRelationship(relationship *model.LatentRelationship) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_relationship($1, $2, $3, $4, $5, $6, $7)`,
		relationship.SourceEntity,
		relationship.TargetEntity,
		relationship.RelationType,
		relationship.Confidence,
		relationship.Provenance,
		relationship.Evidence,
		relationship.SourceQuery,
	)

	err := scanRelationship(row, relationship)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrAlreadyResolved
		}
		return err
	}

	return nil
}

// SelectRelationship retrieves a relationship by ID
func (h *RelationshipsDBHandler) SelectRelationship(id uuid.UUID) (*model.LatentRelationship, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_relationship($1)`,
		id,
	)

	relationship := &model.LatentRelationship{}
	err := scanRelationship(row, relationship)
	if err != nil {
		return nil, err
	}

	return relationship, nil
}

// SelectRelationshipsByStatus retrieves relationships in one workflow state,
// highest confidence first
func (h *RelationshipsDBHandler) SelectRelationshipsByStatus(status model.RelationshipStatus) ([]*model.LatentRelationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_by_status($1)`,
		status,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relationships []*model.LatentRelationship
	for rows.Next() {
		relationship := &model.LatentRelationship{}
		err := scanRelationship(rows, relationship)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, relationship)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}

// TransitionStatus moves a PENDING relationship into a terminal state with
// a compare-and-set. When the relationship is already terminal the call
// returns ErrAlreadyResolved, the first transition always wins.
func (h *RelationshipsDBHandler) TransitionStatus(id uuid.UUID, status model.RelationshipStatus) (*model.LatentRelationship, error) {
	if !model.StatusPending.CanTransitionTo(status) {
		return nil, helper.NewError("status validation", fmt.Errorf("%w: illegal transition to %v", model.ErrValidation, status))
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM transition_relationship_status($1, $2)`,
		id,
		status,
	)

	relationship := &model.LatentRelationship{}
	err := scanRelationship(row, relationship)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAlreadyResolved
		}
		return nil, err
	}

	return relationship, nil
}

// CountByStatus returns the number of relationships per workflow state
func (h *RelationshipsDBHandler) CountByStatus() (map[model.RelationshipStatus]int, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM count_relationships_by_status()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[model.RelationshipStatus]int{}
	for rows.Next() {
		var status model.RelationshipStatus
		var count int

		err := rows.Scan(&status, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		counts[status] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

func scanRelationship(s scanner, relationship *model.LatentRelationship) error {
	var resolvedAt sql.NullTime

	err := s.Scan(
		&relationship.ID,
		&relationship.SourceEntity,
		&relationship.TargetEntity,
		&relationship.RelationType,
		&relationship.Confidence,
		&relationship.Provenance,
		&relationship.Status,
		&relationship.Evidence,
		&relationship.SourceQuery,
		&relationship.DiscoveredAt,
		&resolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return helper.NewError("scan", err)
	}

	if resolvedAt.Valid {
		t := resolvedAt.Time
		relationship.ResolvedAt = &t
	}

	return nil
}
