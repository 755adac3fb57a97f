package model

import "time"

// GroupBy selects the grouping dimension of a performance summary
type GroupBy string

const (
	GroupByMethod    GroupBy = "method"
	GroupByQueryType GroupBy = "query_type"
)

// SummaryRow aggregates outcomes for one group within a time window
type SummaryRow struct {
	Group         string        `json:"group"`
	Count         int           `json:"count"`
	SuccessRate   float64       `json:"success_rate"`
	AvgConfidence float64       `json:"avg_confidence"`
	AvgExecTime   time.Duration `json:"avg_exec_time"`
}

// PerformanceSummary aggregates outcomes over [Since, now)
type PerformanceSummary struct {
	Since         time.Time    `json:"since"`
	GroupBy       GroupBy      `json:"group_by"`
	TotalOutcomes int          `json:"total_outcomes"`
	Rows          []SummaryRow `json:"rows"`
}
