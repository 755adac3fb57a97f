package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
	loadSql "github.com/adaptive-rag/metagraph/sql"
)

// StatsDBHandlerFunctions defines the interface for method-statistics database operations.
type StatsDBHandlerFunctions interface {
	UpdateMethodStat(queryType model.QueryType, method model.RetrievalMethod, success bool, confidence float64, execTime time.Duration, alpha float64) (*model.MethodStat, error)
	SelectMethodStats() ([]*model.MethodStat, error)
	SelectMethodStatsByQueryType(queryType model.QueryType) ([]*model.MethodStat, error)
}

// StatsDBHandler handles per-method effectiveness statistics
type StatsDBHandler struct {
	db *helper.Database
}

// NewStatsDBHandler creates a new method-statistics database handler.
// It initializes the database connection and loads stats-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewStatsDBHandler(db *helper.Database, force bool) (*StatsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	statsDbHandler := &StatsDBHandler{
		db: db,
	}

	err := loadSql.LoadStatsSql(statsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load stats sql", err)
	}

	err = statsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized StatsDBHandler")

	return statsDbHandler, nil
}

// CreateTable creates the 'method_stats' table in the database.
// If the table already exists, it does not create it again.
func (h *StatsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_stats();`)
	if err != nil {
		log.Panicf("error initializing method_stats table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table method_stats")

	return nil
}

// UpdateMethodStat folds one observation into the (query type, method)
// statistic atomically. Averages move by exponential smoothing with the
// given alpha, counters increment.
func (h *StatsDBHandler) UpdateMethodStat(queryType model.QueryType, method model.RetrievalMethod, success bool, confidence float64, execTime time.Duration, alpha float64) (*model.MethodStat, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_method_stat($1, $2, $3, $4, $5, $6)`,
		queryType,
		method,
		success,
		confidence,
		float64(execTime)/float64(time.Millisecond),
		alpha,
	)

	stat := &model.MethodStat{}
	err := scanMethodStat(row, stat)
	if err != nil {
		return nil, err
	}

	return stat, nil
}

// SelectMethodStats retrieves all tracked statistics
func (h *StatsDBHandler) SelectMethodStats() ([]*model.MethodStat, error) {
	return h.selectStats(`SELECT * FROM select_method_stats()`)
}

// SelectMethodStatsByQueryType retrieves the statistics for one query type
func (h *StatsDBHandler) SelectMethodStatsByQueryType(queryType model.QueryType) ([]*model.MethodStat, error) {
	return h.selectStats(`SELECT * FROM select_method_stats_by_query_type($1)`, queryType)
}

func (h *StatsDBHandler) selectStats(query string, args ...interface{}) ([]*model.MethodStat, error) {
	rows, err := h.db.Instance.Query(query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var stats []*model.MethodStat
	for rows.Next() {
		stat := &model.MethodStat{}
		err := scanMethodStat(rows, stat)
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return stats, nil
}

func scanMethodStat(s scanner, stat *model.MethodStat) error {
	var avgExecMs float64

	err := s.Scan(
		&stat.QueryType,
		&stat.Method,
		&stat.Attempts,
		&stat.Successes,
		&stat.AvgConfidence,
		&avgExecMs,
		&stat.Weight,
		&stat.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	stat.AvgExecTime = time.Duration(avgExecMs * float64(time.Millisecond))

	return nil
}
