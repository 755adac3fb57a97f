package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
	loadSql "github.com/adaptive-rag/metagraph/sql"
)

// OutcomesDBHandlerFunctions defines the interface for outcome database operations.
type OutcomesDBHandlerFunctions interface {
	InsertOutcome(outcome *model.RetrievalOutcome, queryEmbedding []float32) error
	SelectOutcome(id uuid.UUID) (*model.RetrievalOutcome, error)
	SelectOutcomesSince(since time.Time) ([]*model.RetrievalOutcome, error)
	Summarize(since time.Time, groupBy model.GroupBy) (*model.PerformanceSummary, error)
	PruneBefore(before time.Time) (int64, error)
}

// OutcomesDBHandler handles retrieval-outcome database operations
type OutcomesDBHandler struct {
	db *helper.Database
}

// NewOutcomesDBHandler creates a new outcomes database handler.
// It initializes the database connection and loads outcome-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewOutcomesDBHandler(db *helper.Database, embeddingDim int, force bool) (*OutcomesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	outcomesDbHandler := &OutcomesDBHandler{
		db: db,
	}

	err := loadSql.LoadOutcomesSql(outcomesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load outcomes sql", err)
	}

	err = outcomesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized OutcomesDBHandler")

	return outcomesDbHandler, nil
}

// CreateTable creates the 'retrieval_outcomes' table in the database.
// If the table already exists, it does not create it again.
func (h *OutcomesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_outcomes($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing retrieval_outcomes table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table retrieval_outcomes")

	return nil
}

// InsertOutcome appends a new outcome. Outcomes are immutable, there is no update.
func (h *OutcomesDBHandler) InsertOutcome(outcome *model.RetrievalOutcome, queryEmbedding []float32) error {
	pathJSON, err := json.Marshal(outcome.Path)
	if err != nil {
		return helper.NewError("marshal path", err)
	}

	// Embeddings are optional, a missing one is stored as NULL
	var embedding interface{}
	if len(queryEmbedding) > 0 {
		embedding = pgvector.NewVector(queryEmbedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_outcome($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		outcome.QueryID,
		outcome.QueryText,
		outcome.QueryType,
		outcome.Method,
		outcome.Success,
		outcome.Confidence,
		outcome.ReasoningValidity,
		outcome.EmbeddingCoherence,
		float64(outcome.ExecutionTime)/float64(time.Millisecond),
		pq.Array(outcome.RetrievedNodes),
		pathJSON,
		embedding,
	)

	return scanOutcome(row, outcome)
}

// SelectOutcome retrieves an outcome by ID
func (h *OutcomesDBHandler) SelectOutcome(id uuid.UUID) (*model.RetrievalOutcome, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_outcome($1)`,
		id,
	)

	outcome := &model.RetrievalOutcome{}
	err := scanOutcome(row, outcome)
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// SelectOutcomesSince retrieves all outcomes in [since, now) ordered by creation time
func (h *OutcomesDBHandler) SelectOutcomesSince(since time.Time) ([]*model.RetrievalOutcome, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_outcomes_since($1)`,
		since,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var outcomes []*model.RetrievalOutcome
	for rows.Next() {
		outcome := &model.RetrievalOutcome{}
		err := scanOutcome(rows, outcome)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return outcomes, nil
}

// Summarize aggregates success rate, mean confidence and mean execution
// time over outcomes in [since, now), grouped by method or query type
func (h *OutcomesDBHandler) Summarize(since time.Time, groupBy model.GroupBy) (*model.PerformanceSummary, error) {
	var query string
	switch groupBy {
	case model.GroupByMethod:
		query = `SELECT * FROM summarize_outcomes_by_method($1)`
	case model.GroupByQueryType:
		query = `SELECT * FROM summarize_outcomes_by_query_type($1)`
	default:
		return nil, helper.NewError("group by validation", fmt.Errorf("unknown group by %v", groupBy))
	}

	rows, err := h.db.Instance.Query(query, since)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	summary := &model.PerformanceSummary{
		Since:   since,
		GroupBy: groupBy,
	}

	for rows.Next() {
		var row model.SummaryRow
		var avgExecMs float64

		err := rows.Scan(
			&row.Group,
			&row.Count,
			&row.SuccessRate,
			&row.AvgConfidence,
			&avgExecMs,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		row.AvgExecTime = time.Duration(avgExecMs * float64(time.Millisecond))
		summary.TotalOutcomes += row.Count
		summary.Rows = append(summary.Rows, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return summary, nil
}

// PruneBefore deletes outcomes older than the given cutoff and returns the
// number of deleted rows
func (h *OutcomesDBHandler) PruneBefore(before time.Time) (int64, error) {
	var pruned int64
	err := h.db.Instance.QueryRow(
		`SELECT * FROM prune_outcomes($1)`,
		before,
	).Scan(&pruned)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return pruned, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOutcome(s scanner, outcome *model.RetrievalOutcome) error {
	var execMs float64
	var pathJSON []byte
	var embedding sql.NullString

	err := s.Scan(
		&outcome.ID,
		&outcome.QueryID,
		&outcome.QueryText,
		&outcome.QueryType,
		&outcome.Method,
		&outcome.Success,
		&outcome.Confidence,
		&outcome.ReasoningValidity,
		&outcome.EmbeddingCoherence,
		&execMs,
		pq.Array(&outcome.RetrievedNodes),
		&pathJSON,
		&embedding,
		&outcome.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	outcome.ExecutionTime = time.Duration(execMs * float64(time.Millisecond))

	if len(pathJSON) > 0 {
		err = json.Unmarshal(pathJSON, &outcome.Path)
		if err != nil {
			return helper.NewError("unmarshal path", err)
		}
	}

	return nil
}
