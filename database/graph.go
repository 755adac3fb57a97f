package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/adaptive-rag/metagraph/core/graph"
	"github.com/adaptive-rag/metagraph/helper"
	loadSql "github.com/adaptive-rag/metagraph/sql"
)

// GraphDBHandler is the Postgres-backed graph store. It satisfies
// graph.Store and carries the nodes and edges the weighted traversal
// strategies walk over.
type GraphDBHandler struct {
	db *helper.Database

	// TraversalLimit caps the number of paths returned per traversal
	TraversalLimit int
}

// NewGraphDBHandler creates a new graph database handler.
// It initializes the database connection and loads graph-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewGraphDBHandler(db *helper.Database, force bool) (*GraphDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	graphDbHandler := &GraphDBHandler{
		db:             db,
		TraversalLimit: 50,
	}

	err := loadSql.LoadGraphSql(graphDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load graph sql", err)
	}

	err = graphDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized GraphDBHandler")

	return graphDbHandler, nil
}

// CreateTable creates the 'graph_nodes' and 'graph_edges' tables in the database.
// If the tables already exist, it does not create them again.
func (h *GraphDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_graph();`)
	if err != nil {
		log.Panicf("error initializing graph tables: %#v", err)
	}

	h.db.Logger.Info("Checked/created tables graph_nodes and graph_edges")

	return nil
}

// CreateNode upserts a node by ID
func (h *GraphDBHandler) CreateNode(ctx context.Context, node *graph.Node) error {
	metaJSON, err := node.Meta.Marshal()
	if err != nil {
		return helper.NewError("marshal metadata", err)
	}

	_, err = h.db.Instance.ExecContext(
		ctx,
		`SELECT * FROM create_graph_node($1, $2, $3)`,
		node.ID,
		node.Label,
		metaJSON,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}

	return nil
}

// CreateRelationship upserts a weighted edge. Endpoint nodes are created
// implicitly when missing.
func (h *GraphDBHandler) CreateRelationship(ctx context.Context, source, target, relationType string, initialWeight float64) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT * FROM create_graph_relationship($1, $2, $3, $4)`,
		source,
		target,
		relationType,
		initialWeight,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}

	return nil
}

// UpdateEdgeWeight sets the stored weight of an existing edge
func (h *GraphDBHandler) UpdateEdgeWeight(ctx context.Context, source, target, relationType string, newWeight float64) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT * FROM update_graph_edge_weight($1, $2, $3, $4)`,
		source,
		target,
		relationType,
		newWeight,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}

	return nil
}

// Traverse walks outward from the start entity up to maxHops and returns
// paths ordered by accumulated edge weight, heaviest first
func (h *GraphDBHandler) Traverse(ctx context.Context, startEntity string, maxHops int) ([]*graph.WeightedPath, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM traverse_weighted($1, $2, $3)`,
		startEntity,
		maxHops,
		h.TraversalLimit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var paths []*graph.WeightedPath
	for rows.Next() {
		path := &graph.WeightedPath{}
		err := rows.Scan(
			pq.Array(&path.Nodes),
			pq.Array(&path.RelationTypes),
			&path.TotalWeight,
			&path.Hops,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		paths = append(paths, path)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return paths, nil
}

// Neighbors returns the nodes reachable from the entity within the hop
// limit, each with its shortest observed distance
func (h *GraphDBHandler) Neighbors(ctx context.Context, entity string, hops int) ([]*graph.Neighbor, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_graph_neighbors($1, $2)`,
		entity,
		hops,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var neighbors []*graph.Neighbor
	for rows.Next() {
		neighbor := &graph.Neighbor{}
		err := rows.Scan(&neighbor.ID, &neighbor.Label, &neighbor.Distance)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		neighbors = append(neighbors, neighbor)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return neighbors, nil
}
