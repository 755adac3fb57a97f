package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adaptive-rag/metagraph"
	"github.com/adaptive-rag/metagraph/core/graph"
	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
)

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	m, err := metagraph.New(dbConfig, model.DefaultAdaptiveConfig())
	if err != nil {
		log.Fatalf("Failed to create metagraph: %v", err)
	}
	defer m.Close()

	ctx := context.Background()

	// Seed a small knowledge graph
	fmt.Println("Seeding knowledge graph...")
	entities := []string{"Engine", "Car", "Radiator", "Coolant"}
	for _, entity := range entities {
		if err := m.Graph.CreateNode(ctx, &graph.Node{ID: entity, Label: entity}); err != nil {
			log.Fatalf("Failed to create node: %v", err)
		}
	}
	if err := m.Graph.CreateRelationship(ctx, "Engine", "Car", "part_of", 1.0); err != nil {
		log.Fatalf("Failed to create relationship: %v", err)
	}
	if err := m.Graph.CreateRelationship(ctx, "Radiator", "Engine", "depends_on", 1.0); err != nil {
		log.Fatalf("Failed to create relationship: %v", err)
	}

	// Record a few retrieval outcomes, the layer learns from every one
	fmt.Println("Recording retrieval outcomes...")
	for i := 0; i < 6; i++ {
		outcome := &model.RetrievalOutcome{
			QueryText:     "why does the engine overheat",
			QueryType:     model.QueryTypeMultiHop,
			Method:        model.MethodGraphTraversal,
			Success:       true,
			Confidence:    0.8,
			ExecutionTime: 45 * time.Millisecond,
			Path: []model.PathEdge{
				{Source: "Radiator", Target: "Engine", RelationType: "depends_on"},
				{Source: "Engine", Target: "Car", RelationType: "part_of"},
			},
		}

		chain := "It follows that Coolant is part of Radiator."
		if err := m.RecordOutcome(ctx, outcome, chain); err != nil {
			log.Fatalf("Failed to record outcome: %v", err)
		}
	}

	// Successful traversals pushed these edge weights up
	edges, err := m.TopEdges(5)
	if err != nil {
		log.Fatalf("Failed to read top edges: %v", err)
	}
	fmt.Println("\nTop edges after learning:")
	for _, edge := range edges {
		fmt.Printf("  %s -[%s]-> %s  weight=%.2f\n", edge.Source, edge.RelationType, edge.Target, edge.Weight)
	}

	// The reasoning chains surfaced a latent relationship
	pending, err := m.PendingRelationships()
	if err != nil {
		log.Fatalf("Failed to read pending relationships: %v", err)
	}
	fmt.Println("\nDiscovered relationships awaiting review:")
	for _, relationship := range pending {
		fmt.Printf("  %s -[%s]-> %s  confidence=%.2f\n",
			relationship.SourceEntity, relationship.RelationType, relationship.TargetEntity, relationship.Confidence)
	}
	if len(pending) > 0 {
		approved, err := m.ApproveRelationship(ctx, pending[0].ID)
		if err != nil {
			log.Fatalf("Failed to approve relationship: %v", err)
		}
		fmt.Printf("Approved %s -[%s]-> %s, now in the graph\n",
			approved.SourceEntity, approved.RelationType, approved.TargetEntity)
	}

	// Routing now knows graph traversal works well for multi-hop queries
	decision, err := m.Route("how does the radiator relate to the car")
	if err != nil {
		log.Fatalf("Failed to route query: %v", err)
	}
	fmt.Printf("\nRouting decision: type=%s method=%s single=%v exploratory=%v\n",
		decision.QueryType, decision.Method, decision.Single, decision.Exploratory)

	recommendations, err := m.Recommendations()
	if err != nil {
		log.Fatalf("Failed to read recommendations: %v", err)
	}
	fmt.Println("\nMethod recommendations:")
	for _, recommendation := range recommendations {
		fmt.Printf("  %s -> %s (success rate %.2f, reliable=%v)\n",
			recommendation.QueryType, recommendation.Method, recommendation.SuccessRate, recommendation.Reliable)
	}

	// Aggregate view over everything recorded above
	summary, err := m.Summary(time.Now().Add(-time.Hour), model.GroupByMethod)
	if err != nil {
		log.Fatalf("Failed to summarize outcomes: %v", err)
	}
	fmt.Printf("\nRecorded %d outcomes in the last hour\n", summary.TotalOutcomes)
}
