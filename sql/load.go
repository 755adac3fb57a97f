package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed outcomes.sql
var outcomesSQL string

//go:embed weights.sql
var weightsSQL string

//go:embed relationships.sql
var relationshipsSQL string

//go:embed stats.sql
var statsSQL string

//go:embed graph.sql
var graphSQL string

// Function lists for verification
var OutcomesFunctions = []string{
	"init_outcomes",
	"insert_outcome",
	"select_outcome",
	"select_outcomes_since",
	"summarize_outcomes_by_method",
	"summarize_outcomes_by_query_type",
	"prune_outcomes",
}

var WeightsFunctions = []string{
	"init_weights",
	"adjust_edge_weight",
	"select_edge_weight",
	"select_top_edge_weights",
	"apply_recency_decay",
	"count_edge_weights",
}

var RelationshipsFunctions = []string{
	"init_relationships",
	"insert_relationship",
	"select_relationship",
	"select_relationships_by_status",
	"transition_relationship_status",
	"count_relationships_by_status",
}

var StatsFunctions = []string{
	"init_stats",
	"update_method_stat",
	"select_method_stats",
	"select_method_stats_by_query_type",
}

var GraphFunctions = []string{
	"init_graph",
	"create_graph_node",
	"select_graph_node",
	"create_graph_relationship",
	"update_graph_edge_weight",
	"select_graph_neighbors",
	"traverse_weighted",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadOutcomesSql loads outcome-related SQL functions
func LoadOutcomesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, force, outcomesSQL, OutcomesFunctions, "outcomes")
}

// LoadWeightsSql loads edge-weight-related SQL functions
func LoadWeightsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, force, weightsSQL, WeightsFunctions, "weights")
}

// LoadRelationshipsSql loads latent-relationship-related SQL functions
func LoadRelationshipsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, force, relationshipsSQL, RelationshipsFunctions, "relationships")
}

// LoadStatsSql loads method-stat-related SQL functions
func LoadStatsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, force, statsSQL, StatsFunctions, "stats")
}

// LoadGraphSql loads graph-store-related SQL functions
func LoadGraphSql(db *sql.DB, force bool) error {
	return loadFunctions(db, force, graphSQL, GraphFunctions, "graph")
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadOutcomesSql(db, force); err != nil {
		return err
	}

	if err := LoadWeightsSql(db, force); err != nil {
		return err
	}

	if err := LoadRelationshipsSql(db, force); err != nil {
		return err
	}

	if err := LoadStatsSql(db, force); err != nil {
		return err
	}

	if err := LoadGraphSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadFunctions executes a SQL file and verifies all expected functions exist
func loadFunctions(db *sql.DB, force bool, sqlText string, functions []string, name string) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(sqlText)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
