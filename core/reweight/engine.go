package reweight

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/adaptive-rag/metagraph/core/graph"
	"github.com/adaptive-rag/metagraph/database"
	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
)

// Engine adjusts edge weights from observed retrieval outcomes. All edge
// mutations are single atomic statements in the weight store, the graph
// store mirror is updated best-effort per edge afterwards.
type Engine struct {
	weights database.WeightsDBHandlerFunctions
	store   graph.Store
	config  model.AdaptiveConfig
	logger  *slog.Logger
}

// NewEngine creates a new reweighting engine. The graph store may be nil,
// in which case weights are only tracked in the weight store.
func NewEngine(weights database.WeightsDBHandlerFunctions, store graph.Store, config model.AdaptiveConfig, logger *slog.Logger) (*Engine, error) {
	if weights == nil {
		return nil, helper.NewError("weights handler validation", fmt.Errorf("weights handler is nil"))
	}

	return &Engine{
		weights: weights,
		store:   store,
		config:  config,
		logger:  logger,
	}, nil
}

// Delta returns the signed weight adjustment for one outcome. Successful
// multi-hop paths earn a logarithmic bonus on top of the base delta;
// failed multi-hop paths are penalized harder by half that bonus.
func (e *Engine) Delta(outcome *model.RetrievalOutcome) float64 {
	bonus := 0.0
	if hops := outcome.Hops(); hops > 1 {
		bonus = math.Log10(float64(hops)+1) * e.config.HopBonusFactor
	}

	if outcome.Success {
		return e.config.PositiveDelta + bonus
	}
	return -(e.config.NegativeDelta + bonus/2)
}

// UpdateFromOutcome applies the outcome's delta to every edge on its
// retrieval path. An outcome without a path is a no-op. Each edge is
// adjusted independently; a failing edge does not block the others.
func (e *Engine) UpdateFromOutcome(ctx context.Context, outcome *model.RetrievalOutcome) error {
	if outcome == nil {
		return fmt.Errorf("%w: outcome is nil", model.ErrValidation)
	}
	if len(outcome.Path) == 0 {
		return nil
	}

	delta := e.Delta(outcome)

	var firstErr error
	for _, edge := range outcome.Path {
		if edge.Source == "" || edge.Target == "" {
			continue
		}

		weight, err := e.weights.AdjustEdgeWeight(
			edge.Source,
			edge.Target,
			edge.RelationType,
			delta,
			outcome.Success,
			e.config.InitialEdgeWeight,
			e.config.WeightFloor,
		)
		if err != nil {
			e.logger.Warn(
				"Failed to adjust edge weight",
				slog.String("source", edge.Source),
				slog.String("target", edge.Target),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %v", model.ErrTransientStore, err)
			}
			continue
		}

		e.mirrorToGraph(ctx, edge, weight.Weight)
	}

	e.logger.Debug(
		"Updated edge weights from outcome",
		slog.String("outcomeId", outcome.ID.String()),
		slog.Int("edges", len(outcome.Path)),
		slog.Float64("delta", delta),
	)

	return firstErr
}

// mirrorToGraph pushes the new weight into the graph store so traversal
// strategies rank by learned weights. Failures are logged, not propagated.
func (e *Engine) mirrorToGraph(ctx context.Context, edge model.PathEdge, weight float64) {
	if e.store == nil {
		return
	}

	err := e.store.UpdateEdgeWeight(ctx, edge.Source, edge.Target, edge.RelationType, weight)
	if err != nil {
		e.logger.Warn(
			"Failed to mirror edge weight to graph store",
			slog.String("source", edge.Source),
			slog.String("target", edge.Target),
			slog.Any("error", err),
		)
	}
}

// ApplyRecencyDecay decays every edge not reinforced within the decay
// window. The cycle start buckets the run: re-running within the same
// cycle decays nothing a second time.
func (e *Engine) ApplyRecencyDecay(cycleStart time.Time) (int64, error) {
	olderThan := time.Now().Add(-e.config.DecayAfter)

	decayed, err := e.weights.ApplyRecencyDecay(olderThan, e.config.RecencyDecayFactor, e.config.WeightFloor, cycleStart)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrTransientStore, err)
	}

	if decayed > 0 {
		e.logger.Info(
			"Applied recency decay",
			slog.Int64("edges", decayed),
			slog.Float64("factor", e.config.RecencyDecayFactor),
		)
	}

	return decayed, nil
}

// TopEdges returns the highest-weighted edges
func (e *Engine) TopEdges(limit int) ([]*model.EdgeWeight, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.weights.SelectTopEdgeWeights(limit)
}

// EdgeWeight returns the tracked weight of one edge
func (e *Engine) EdgeWeight(source, target, relationType string) (*model.EdgeWeight, error) {
	return e.weights.SelectEdgeWeight(source, target, relationType)
}
