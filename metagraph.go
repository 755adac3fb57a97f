// Package metagraph is an adaptive meta-learning layer over a knowledge
// graph and vector index. It records every retrieval outcome, reweights
// graph edges from observed success, discovers latent relationships in
// reasoning chains and routes queries to the historically best method.
package metagraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/adaptive-rag/metagraph/core/discovery"
	"github.com/adaptive-rag/metagraph/core/orchestrator"
	"github.com/adaptive-rag/metagraph/core/outcomes"
	"github.com/adaptive-rag/metagraph/core/pipeline"
	"github.com/adaptive-rag/metagraph/core/reweight"
	"github.com/adaptive-rag/metagraph/core/router"
	"github.com/adaptive-rag/metagraph/database"
	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/metrics"
	"github.com/adaptive-rag/metagraph/model"
	"github.com/adaptive-rag/metagraph/scheduler"
	loadSql "github.com/adaptive-rag/metagraph/sql"
)

// embeddingDim matches the all-MiniLM-L6-v2 model of the default embedder
const embeddingDim = 384

// Metagraph provides a unified interface to the adaptive layer
type Metagraph struct {
	DB            *helper.Database
	Outcomes      *database.OutcomesDBHandler
	Weights       *database.WeightsDBHandler
	Relationships *database.RelationshipsDBHandler
	Stats         *database.StatsDBHandler
	Graph         *database.GraphDBHandler

	Tracker    *outcomes.Tracker
	Reweighter *reweight.Engine
	Discoverer *discovery.Engine
	Router     *router.Router

	Orchestrator *orchestrator.Orchestrator // Set by AttachRetrievers
	Embedder     pipeline.EmbedFunc         // Optional query embedder
	Metrics      *metrics.Metrics
	Scheduler    *scheduler.Scheduler
	// Logging
	log *slog.Logger
}

// New creates a Metagraph instance with all handlers and engines
// initialized against the given database
func New(dbConfig *helper.DatabaseConfiguration, config model.AdaptiveConfig) (*Metagraph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("metagraph", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers, force=false to not reload existing functions
	outcomesHandler, err := database.NewOutcomesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create outcomes handler", err)
	}

	weightsHandler, err := database.NewWeightsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create weights handler", err)
	}

	relationshipsHandler, err := database.NewRelationshipsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relationships handler", err)
	}

	statsHandler, err := database.NewStatsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create stats handler", err)
	}

	graphHandler, err := database.NewGraphDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create graph handler", err)
	}

	// Create the adaptive engines on top of the handlers
	tracker, err := outcomes.NewTracker(outcomesHandler, config, logger)
	if err != nil {
		return nil, helper.NewError("create outcome tracker", err)
	}

	reweighter, err := reweight.NewEngine(weightsHandler, graphHandler, config, logger)
	if err != nil {
		return nil, helper.NewError("create reweighting engine", err)
	}

	discoverer, err := discovery.NewEngine(relationshipsHandler, graphHandler, config, logger)
	if err != nil {
		return nil, helper.NewError("create discovery engine", err)
	}

	queryRouter, err := router.NewRouter(statsHandler, config, logger)
	if err != nil {
		return nil, helper.NewError("create query router", err)
	}

	m := metrics.New()

	maintenance, err := scheduler.NewScheduler(reweighter, tracker, discoverer, config, m, logger)
	if err != nil {
		return nil, helper.NewError("create maintenance scheduler", err)
	}

	return &Metagraph{
		DB:            db,
		Outcomes:      outcomesHandler,
		Weights:       weightsHandler,
		Relationships: relationshipsHandler,
		Stats:         statsHandler,
		Graph:         graphHandler,
		Tracker:       tracker,
		Reweighter:    reweighter,
		Discoverer:    discoverer,
		Router:        queryRouter,
		Metrics:       m,
		Scheduler:     maintenance,
		log:           logger,
	}, nil
}

// Close closes the database connection
func (m *Metagraph) Close() error {
	if m.DB != nil && m.DB.Instance != nil {
		return m.DB.Instance.Close()
	}
	return nil
}

// UseDefaultEmbedder sets up the default query embedder with the
// all-MiniLM-L6-v2 model (384 dimensions)
func (m *Metagraph) UseDefaultEmbedder() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	m.Embedder = embedder
	return nil
}

// AttachRetrievers wires the given retrievers into an orchestrator. At
// least one retriever is required; queries can be processed afterwards.
func (m *Metagraph) AttachRetrievers(retrievers ...orchestrator.Retriever) error {
	o, err := orchestrator.NewOrchestrator(
		m.Tracker, m.Reweighter, m.Discoverer, m.Router,
		retrievers, m.Embedder, m.Metrics, m.log,
	)
	if err != nil {
		return helper.NewError("create orchestrator", err)
	}

	m.Orchestrator = o
	return nil
}

// Process runs one query end to end through the attached retrievers
func (m *Metagraph) Process(ctx context.Context, queryText string) (*orchestrator.Response, error) {
	if m.Orchestrator == nil {
		return nil, helper.NewError("process query", fmt.Errorf("no retrievers attached, use AttachRetrievers() first"))
	}
	return m.Orchestrator.Process(ctx, queryText)
}

// RecordOutcome records an externally observed retrieval outcome and
// applies the learning updates
func (m *Metagraph) RecordOutcome(ctx context.Context, outcome *model.RetrievalOutcome, reasoningChain string) error {
	var embedding []float32
	if m.Embedder != nil {
		var err error
		embedding, err = m.Embedder(outcome.QueryText)
		if err != nil {
			m.log.Warn("Failed to embed query", slog.Any("error", err))
			embedding = nil
		}
	}

	err := m.Tracker.Record(outcome, embedding)
	if err != nil {
		return err
	}

	err = m.Reweighter.UpdateFromOutcome(ctx, outcome)
	if err != nil {
		m.log.Warn("Reweighting update failed", slog.Any("error", err))
	}
	err = m.Router.UpdateEffectiveness(outcome)
	if err != nil {
		m.log.Warn("Effectiveness update failed", slog.Any("error", err))
	}

	if reasoningChain != "" {
		_, err = m.Discoverer.DiscoverFromReasoningChain(ctx, reasoningChain, outcome.QueryText)
		if err != nil {
			m.log.Warn("Relationship discovery failed", slog.Any("error", err))
		}
	}

	return nil
}

// Summary aggregates outcomes since the given time grouped by method or
// query type
func (m *Metagraph) Summary(since time.Time, groupBy model.GroupBy) (*model.PerformanceSummary, error) {
	return m.Tracker.Summary(since, groupBy)
}

// ExportOutcomes writes all outcomes recorded since the given time to the
// writer as JSON
func (m *Metagraph) ExportOutcomes(w io.Writer, since time.Time) error {
	return m.Tracker.Export(w, since)
}

// Route returns the routing decision for a raw query text
func (m *Metagraph) Route(queryText string) (*model.RoutingDecision, error) {
	return m.Router.Route(router.Classify(queryText))
}

// Recommendations reports the historically best method per query type
func (m *Metagraph) Recommendations() ([]*model.Recommendation, error) {
	return m.Router.Recommendations()
}

// Discover mines one reasoning chain for latent relationships. The
// sourceQuery names the query that produced the chain and is stored with
// each discovery; it may be empty.
func (m *Metagraph) Discover(ctx context.Context, reasoningChain string, sourceQuery string) ([]*model.LatentRelationship, error) {
	return m.Discoverer.DiscoverFromReasoningChain(ctx, reasoningChain, sourceQuery)
}

// AutoActivateRelationships resolves pending relationships at or above
// the threshold; a threshold <= 0 uses the configured default
func (m *Metagraph) AutoActivateRelationships(ctx context.Context, threshold float64) ([]*model.LatentRelationship, error) {
	return m.Discoverer.AutoActivateHighConfidence(ctx, threshold)
}

// PendingRelationships returns all unresolved discovered relationships
func (m *Metagraph) PendingRelationships() ([]*model.LatentRelationship, error) {
	return m.Discoverer.Pending()
}

// ApproveRelationship approves a pending relationship and materializes it
// into the graph
func (m *Metagraph) ApproveRelationship(ctx context.Context, id uuid.UUID) (*model.LatentRelationship, error) {
	return m.Discoverer.Approve(ctx, id)
}

// RejectRelationship rejects a pending relationship
func (m *Metagraph) RejectRelationship(ctx context.Context, id uuid.UUID) (*model.LatentRelationship, error) {
	return m.Discoverer.Reject(ctx, id)
}

// TopEdges returns the highest-weighted edges
func (m *Metagraph) TopEdges(limit int) ([]*model.EdgeWeight, error) {
	return m.Reweighter.TopEdges(limit)
}

// StartScheduler starts the periodic maintenance jobs (recency decay,
// outcome pruning, auto-activation)
func (m *Metagraph) StartScheduler() error {
	return m.Scheduler.Start()
}

// StopScheduler stops the periodic maintenance jobs
func (m *Metagraph) StopScheduler() {
	m.Scheduler.Stop()
}
