package model

import (
	"time"

	"github.com/google/uuid"
)

// PathEdge is one traversed edge in a retrieval path
type PathEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	RelationType string `json:"relation_type"`
}

// RetrievalOutcome is the immutable record of a single retrieval attempt.
// It is appended to the outcome store and never mutated afterwards.
type RetrievalOutcome struct {
	ID                 uuid.UUID       `json:"id"`
	QueryID            uuid.UUID       `json:"query_id"`
	QueryText          string          `json:"query_text"`
	QueryType          QueryType       `json:"query_type"`
	Method             RetrievalMethod `json:"method"`
	Success            bool            `json:"success"`
	Confidence         float64         `json:"confidence"`
	ReasoningValidity  float64         `json:"reasoning_validity"`
	EmbeddingCoherence float64         `json:"embedding_coherence"`
	ExecutionTime      time.Duration   `json:"execution_time"`
	RetrievedNodes     []string        `json:"retrieved_nodes,omitempty"`
	Path               []PathEdge      `json:"path,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// CompositeSuccessScore blends the boolean success flag with the graded
// quality signals into a single [0,1] score
func (o *RetrievalOutcome) CompositeSuccessScore() float64 {
	success := 0.0
	if o.Success {
		success = 1.0
	}

	score := success*0.4 +
		o.Confidence*0.3 +
		o.ReasoningValidity*0.2 +
		o.EmbeddingCoherence*0.1

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Hops returns the path length in edge traversal steps
func (o *RetrievalOutcome) Hops() int {
	return len(o.Path)
}
