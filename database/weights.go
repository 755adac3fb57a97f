package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
	loadSql "github.com/adaptive-rag/metagraph/sql"
)

// WeightsDBHandlerFunctions defines the interface for edge-weight database operations.
type WeightsDBHandlerFunctions interface {
	AdjustEdgeWeight(source, target, relationType string, delta float64, success bool, initial, floor float64) (*model.EdgeWeight, error)
	SelectEdgeWeight(source, target, relationType string) (*model.EdgeWeight, error)
	SelectTopEdgeWeights(limit int) ([]*model.EdgeWeight, error)
	ApplyRecencyDecay(olderThan time.Time, factor, floor float64, cycleStart time.Time) (int64, error)
	CountEdgeWeights() (int64, error)
}

// WeightsDBHandler handles edge-weight database operations
type WeightsDBHandler struct {
	db *helper.Database
}

// NewWeightsDBHandler creates a new edge-weight database handler.
// It initializes the database connection and loads weight-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewWeightsDBHandler(db *helper.Database, force bool) (*WeightsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	weightsDbHandler := &WeightsDBHandler{
		db: db,
	}

	err := loadSql.LoadWeightsSql(weightsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load weights sql", err)
	}

	err = weightsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized WeightsDBHandler")

	return weightsDbHandler, nil
}

// CreateTable creates the 'edge_weights' table in the database.
// If the table already exists, it does not create it again.
func (h *WeightsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_weights();`)
	if err != nil {
		log.Panicf("error initializing edge_weights table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edge_weights")

	return nil
}

// AdjustEdgeWeight applies a delta to one edge atomically. The edge is
// created lazily at the initial weight on first touch, and the result is
// clamped at the floor. The success flag selects which counter increments.
func (h *WeightsDBHandler) AdjustEdgeWeight(source, target, relationType string, delta float64, success bool, initial, floor float64) (*model.EdgeWeight, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM adjust_edge_weight($1, $2, $3, $4, $5, $6, $7)`,
		source,
		target,
		relationType,
		delta,
		success,
		initial,
		floor,
	)

	weight := &model.EdgeWeight{}
	err := scanEdgeWeight(row, weight)
	if err != nil {
		return nil, err
	}

	return weight, nil
}

// SelectEdgeWeight retrieves one edge weight by its key
func (h *WeightsDBHandler) SelectEdgeWeight(source, target, relationType string) (*model.EdgeWeight, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_edge_weight($1, $2, $3)`,
		source,
		target,
		relationType,
	)

	weight := &model.EdgeWeight{}
	err := scanEdgeWeight(row, weight)
	if err != nil {
		return nil, err
	}

	return weight, nil
}

// SelectTopEdgeWeights retrieves the highest-weighted edges
func (h *WeightsDBHandler) SelectTopEdgeWeights(limit int) ([]*model.EdgeWeight, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_top_edge_weights($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var weights []*model.EdgeWeight
	for rows.Next() {
		weight := &model.EdgeWeight{}
		err := scanEdgeWeight(rows, weight)
		if err != nil {
			return nil, err
		}
		weights = append(weights, weight)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return weights, nil
}

// ApplyRecencyDecay multiplies every stale edge weight by the decay factor,
// clamped at the floor. Edges already decayed during the current maintenance
// cycle (cycleStart) are skipped, which makes the call idempotent per cycle.
func (h *WeightsDBHandler) ApplyRecencyDecay(olderThan time.Time, factor, floor float64, cycleStart time.Time) (int64, error) {
	var decayed int64
	err := h.db.Instance.QueryRow(
		`SELECT * FROM apply_recency_decay($1, $2, $3, $4)`,
		olderThan,
		factor,
		floor,
		cycleStart,
	).Scan(&decayed)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return decayed, nil
}

// CountEdgeWeights returns the number of tracked edges
func (h *WeightsDBHandler) CountEdgeWeights() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT * FROM count_edge_weights()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return count, nil
}

func scanEdgeWeight(s scanner, weight *model.EdgeWeight) error {
	var lastDecayed sql.NullTime

	err := s.Scan(
		&weight.Source,
		&weight.Target,
		&weight.RelationType,
		&weight.Weight,
		&weight.Successes,
		&weight.Failures,
		&weight.LastUpdated,
		&lastDecayed,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	if lastDecayed.Valid {
		weight.LastDecayedAt = lastDecayed.Time
	}

	return nil
}
