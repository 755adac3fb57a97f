package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/adaptive-rag/metagraph/core/discovery"
	"github.com/adaptive-rag/metagraph/core/outcomes"
	"github.com/adaptive-rag/metagraph/core/pipeline"
	"github.com/adaptive-rag/metagraph/core/reweight"
	"github.com/adaptive-rag/metagraph/core/router"
	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/metrics"
	"github.com/adaptive-rag/metagraph/model"
)

// RetrievedNode is one scored node returned by a retriever
type RetrievedNode struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Result is one retriever's answer for a query
type Result struct {
	Method         model.RetrievalMethod `json:"method"`
	Nodes          []RetrievedNode       `json:"nodes"`
	Path           []model.PathEdge      `json:"path,omitempty"`
	Confidence     float64               `json:"confidence"`
	ReasoningChain string                `json:"reasoning_chain,omitempty"`
}

// Retriever executes one retrieval method against the knowledge base
type Retriever interface {
	Method() model.RetrievalMethod
	Retrieve(ctx context.Context, query *model.QuerySignature) (*Result, error)
}

// Response is the orchestrator's answer for one processed query
type Response struct {
	Query    *model.QuerySignature   `json:"query"`
	Decision *model.RoutingDecision  `json:"decision"`
	Result   *Result                 `json:"result"`
	Outcome  *model.RetrievalOutcome `json:"outcome"`
}

// ensembleCutoff drops methods whose routing weight contributes nothing
const ensembleCutoff = 0.05

// Orchestrator is the thin coordination layer: classify, route, retrieve,
// record and learn. The learning updates run in the background after the
// response is formed; their failures never fail the query.
type Orchestrator struct {
	tracker    *outcomes.Tracker
	reweighter *reweight.Engine
	discoverer *discovery.Engine
	router     *router.Router
	retrievers map[model.RetrievalMethod]Retriever
	embed      pipeline.EmbedFunc
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewOrchestrator wires the adaptive components together. The embedder is
// optional; without one, outcomes are stored without query embeddings.
func NewOrchestrator(
	tracker *outcomes.Tracker,
	reweighter *reweight.Engine,
	discoverer *discovery.Engine,
	queryRouter *router.Router,
	retrievers []Retriever,
	embed pipeline.EmbedFunc,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if tracker == nil || reweighter == nil || discoverer == nil || queryRouter == nil {
		return nil, helper.NewError("orchestrator validation", fmt.Errorf("all adaptive components are required"))
	}
	if len(retrievers) == 0 {
		return nil, helper.NewError("orchestrator validation", fmt.Errorf("at least one retriever is required"))
	}

	byMethod := map[model.RetrievalMethod]Retriever{}
	for _, retriever := range retrievers {
		byMethod[retriever.Method()] = retriever
	}

	return &Orchestrator{
		tracker:    tracker,
		reweighter: reweighter,
		discoverer: discoverer,
		router:     queryRouter,
		retrievers: byMethod,
		embed:      embed,
		metrics:    m,
		logger:     logger,
	}, nil
}

// Process runs one query end to end: classify it, route it, execute the
// chosen retrievers, record the outcome and kick off the adaptive updates.
func (o *Orchestrator) Process(ctx context.Context, queryText string) (*Response, error) {
	if len(queryText) == 0 {
		return nil, fmt.Errorf("%w: query text is empty", model.ErrValidation)
	}

	queryType := router.Classify(queryText)
	o.metrics.QueriesProcessed.WithLabelValues(string(queryType)).Inc()

	var embedding []float32
	if o.embed != nil {
		var err error
		embedding, err = o.embed(queryText)
		if err != nil {
			o.logger.Warn("Failed to embed query", slog.Any("error", err))
			embedding = nil
		}
	}

	query := model.NewQuerySignature(queryText, embedding, queryType)

	decision, err := o.router.Route(queryType)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, members, err := o.execute(ctx, query, decision)
	executionTime := time.Since(start)
	if err != nil {
		return nil, err
	}

	o.metrics.RetrievalDuration.WithLabelValues(string(result.Method)).Observe(executionTime.Seconds())

	outcome := o.buildOutcome(query, result, executionTime)
	err = o.tracker.Record(outcome, embedding)
	if err != nil {
		return nil, err
	}
	o.metrics.OutcomesRecorded.WithLabelValues(string(outcome.Method), strconv.FormatBool(outcome.Success)).Inc()

	go o.adapt(outcome, members, result.ReasoningChain)

	return &Response{
		Query:    query,
		Decision: decision,
		Result:   result,
		Outcome:  outcome,
	}, nil
}

// execute runs either the single routed method or the weighted ensemble.
// For an ensemble it also returns one outcome per participating method so
// the base methods keep accumulating effectiveness history while the
// merged result is recorded under hybrid.
func (o *Orchestrator) execute(ctx context.Context, query *model.QuerySignature, decision *model.RoutingDecision) (*Result, []*model.RetrievalOutcome, error) {
	if decision.Single {
		retriever, ok := o.retrievers[decision.Method]
		if !ok {
			return nil, nil, fmt.Errorf("%w: no retriever for method %v", model.ErrValidation, decision.Method)
		}
		result, err := retriever.Retrieve(ctx, query)
		return result, nil, err
	}

	return o.executeEnsemble(ctx, query, decision.Weights)
}

// executeEnsemble invokes every weighted method, scales its node scores by
// the routing weight and merges by node ID keeping the best score. A
// single failing method degrades the ensemble instead of failing it; only
// all methods failing is an error.
func (o *Orchestrator) executeEnsemble(ctx context.Context, query *model.QuerySignature, weights map[model.RetrievalMethod]float64) (*Result, []*model.RetrievalOutcome, error) {
	merged := &Result{Method: model.MethodHybrid}
	bestByID := map[string]float64{}
	var members []*model.RetrievalOutcome
	var lastErr error

	for _, method := range model.BaseMethods {
		weight := weights[method]
		if weight < ensembleCutoff {
			continue
		}

		retriever, ok := o.retrievers[method]
		if !ok {
			continue
		}

		memberStart := time.Now()
		result, err := retriever.Retrieve(ctx, query)
		memberTime := time.Since(memberStart)
		if err != nil {
			o.logger.Warn(
				"Ensemble method failed",
				slog.String("method", string(method)),
				slog.Any("error", err),
			)
			lastErr = err
			continue
		}
		members = append(members, o.buildOutcome(query, result, memberTime))

		for _, node := range result.Nodes {
			score := node.Score * weight
			if score > bestByID[node.ID] {
				bestByID[node.ID] = score
			}
		}

		merged.Confidence += result.Confidence * weight
		if len(result.Path) > len(merged.Path) {
			merged.Path = result.Path
		}
		if len(result.ReasoningChain) > len(merged.ReasoningChain) {
			merged.ReasoningChain = result.ReasoningChain
		}
	}

	if len(members) == 0 {
		if lastErr != nil {
			return nil, nil, helper.NewError("ensemble retrieval", lastErr)
		}
		return nil, nil, fmt.Errorf("%w: no retriever available for ensemble", model.ErrValidation)
	}

	for id, score := range bestByID {
		merged.Nodes = append(merged.Nodes, RetrievedNode{ID: id, Score: score})
	}
	sort.Slice(merged.Nodes, func(i, j int) bool {
		if merged.Nodes[i].Score != merged.Nodes[j].Score {
			return merged.Nodes[i].Score > merged.Nodes[j].Score
		}
		return merged.Nodes[i].ID < merged.Nodes[j].ID
	})

	if merged.Confidence > 1 {
		merged.Confidence = 1
	}

	return merged, members, nil
}

// buildOutcome derives the immutable outcome record from one retrieval
func (o *Orchestrator) buildOutcome(query *model.QuerySignature, result *Result, executionTime time.Duration) *model.RetrievalOutcome {
	nodes := make([]string, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		nodes = append(nodes, node.ID)
	}

	coherence := 0.0
	if len(query.Embedding) > 0 {
		coherence = result.Confidence * 0.8
	}

	return &model.RetrievalOutcome{
		QueryID:            query.ID,
		QueryText:          query.QueryText,
		QueryType:          query.QueryType,
		Method:             result.Method,
		Success:            len(result.Nodes) > 0 && result.Confidence >= 0.5,
		Confidence:         result.Confidence,
		ReasoningValidity:  result.Confidence,
		EmbeddingCoherence: coherence,
		ExecutionTime:      executionTime,
		RetrievedNodes:     nodes,
		Path:               result.Path,
	}
}

// adapt runs the learning updates after a query has been answered. Each
// stage fails independently; failures are counted and logged. Ensemble
// member outcomes feed the effectiveness statistics alongside the merged
// hybrid outcome, so each base method's history grows with every query
// it participated in.
func (o *Orchestrator) adapt(outcome *model.RetrievalOutcome, members []*model.RetrievalOutcome, reasoningChain string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := o.reweighter.UpdateFromOutcome(ctx, outcome)
	if err != nil {
		o.metrics.AdaptiveUpdateFailures.WithLabelValues("reweight").Inc()
		o.logger.Warn("Reweighting update failed", slog.Any("error", err))
	}

	for _, memberOutcome := range append([]*model.RetrievalOutcome{outcome}, members...) {
		err = o.router.UpdateEffectiveness(memberOutcome)
		if err != nil {
			o.metrics.AdaptiveUpdateFailures.WithLabelValues("effectiveness").Inc()
			o.logger.Warn("Effectiveness update failed", slog.Any("error", err))
		}
	}

	if len(reasoningChain) > 0 {
		discovered, err := o.discoverer.DiscoverFromReasoningChain(ctx, reasoningChain, outcome.QueryText)
		if err != nil {
			o.metrics.AdaptiveUpdateFailures.WithLabelValues("discovery").Inc()
			o.logger.Warn("Relationship discovery failed", slog.Any("error", err))
		}
		if len(discovered) > 0 {
			o.metrics.RelationshipsByEvent.WithLabelValues("discovered").Add(float64(len(discovered)))
		}
	}
}
