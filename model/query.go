package model

import (
	"time"

	"github.com/google/uuid"
)

// QuerySignature is the immutable classification record of an incoming
// query. Reclassifying a query creates a new signature, never mutates one.
type QuerySignature struct {
	ID        uuid.UUID `json:"id"`
	QueryText string    `json:"query_text"`
	Embedding []float32 `json:"embedding,omitempty"`
	QueryType QueryType `json:"query_type"`
	CreatedAt time.Time `json:"created_at"`
}

// NewQuerySignature creates a signature for a classified query
func NewQuerySignature(queryText string, embedding []float32, queryType QueryType) *QuerySignature {
	return &QuerySignature{
		ID:        uuid.New(),
		QueryText: queryText,
		Embedding: embedding,
		QueryType: queryType,
		CreatedAt: time.Now(),
	}
}
