package model

import "time"

// MethodStat tracks the rolling effectiveness of one retrieval method for
// one query type. Average confidence and execution time are exponential
// moving averages so recent outcomes dominate.
type MethodStat struct {
	QueryType     QueryType       `json:"query_type"`
	Method        RetrievalMethod `json:"method"`
	Attempts      int             `json:"attempts"`
	Successes     int             `json:"successes"`
	AvgConfidence float64         `json:"avg_confidence"`
	AvgExecTime   time.Duration   `json:"avg_exec_time"`
	Weight        float64         `json:"weight"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SuccessRate is the observed success share for this pair
func (s *MethodStat) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// ReliabilityConfidence grows with sample size toward 1
func (s *MethodStat) ReliabilityConfidence() float64 {
	return 1.0 - 1.0/(1.0+float64(s.Attempts)*0.1)
}

// Reliable reports whether this pair has enough history to trust
func (s *MethodStat) Reliable(minAttempts int) bool {
	return s.Attempts >= minAttempts && s.ReliabilityConfidence() > 0.5
}

// RoutingDecision is the router's answer for one query type: either a
// single best method or a normalized ensemble over the base methods.
type RoutingDecision struct {
	QueryType   QueryType                   `json:"query_type"`
	Exploratory bool                        `json:"exploratory"`
	Single      bool                        `json:"single"`
	Method      RetrievalMethod             `json:"method"`
	Weights     map[RetrievalMethod]float64 `json:"weights"`
}

// Recommendation is one entry of the router's recommendation report
type Recommendation struct {
	QueryType   QueryType       `json:"query_type"`
	Method      RetrievalMethod `json:"method"`
	SuccessRate float64         `json:"success_rate"`
	AvgExecTime time.Duration   `json:"avg_exec_time"`
	Confidence  float64         `json:"confidence"`
	Reliable    bool            `json:"reliable"`
}
