package graph

import (
	"context"

	"github.com/adaptive-rag/metagraph/model"
)

// Node is a graph store node
type Node struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Meta  model.Metadata `json:"metadata,omitempty"`
}

// Neighbor is a node reachable from a start entity within a hop limit
type Neighbor struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Distance int    `json:"distance"`
}

// WeightedPath is one traversal result ordered by accumulated edge weight
type WeightedPath struct {
	Nodes         []string `json:"nodes"`
	RelationTypes []string `json:"relation_types"`
	TotalWeight   float64  `json:"total_weight"`
	Hops          int      `json:"hops"`
}

// Store is the external graph store collaborator. The reweighting and
// discovery engines call it synchronously per edge; each call fails
// independently.
type Store interface {
	CreateNode(ctx context.Context, node *Node) error
	CreateRelationship(ctx context.Context, source, target, relationType string, initialWeight float64) error
	UpdateEdgeWeight(ctx context.Context, source, target, relationType string, newWeight float64) error
	Traverse(ctx context.Context, startEntity string, maxHops int) ([]*WeightedPath, error)
	Neighbors(ctx context.Context, entity string, hops int) ([]*Neighbor, error)
}
