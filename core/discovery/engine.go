package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adaptive-rag/metagraph/core/graph"
	"github.com/adaptive-rag/metagraph/database"
	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
)

// Engine mines reasoning chains for relationships the graph does not know
// yet. Discovered candidates wait as PENDING until a reviewer or the
// auto-activation sweep resolves them; resolving a relationship as
// approved or auto-activated materializes it into the graph store.
type Engine struct {
	relationships database.RelationshipsDBHandlerFunctions
	store         graph.Store
	config        model.AdaptiveConfig
	logger        *slog.Logger
}

// NewEngine creates a new discovery engine. The graph store may be nil,
// in which case resolved relationships are not materialized.
func NewEngine(relationships database.RelationshipsDBHandlerFunctions, store graph.Store, config model.AdaptiveConfig, logger *slog.Logger) (*Engine, error) {
	if relationships == nil {
		return nil, helper.NewError("relationships handler validation", fmt.Errorf("relationships handler is nil"))
	}

	return &Engine{
		relationships: relationships,
		store:         store,
		config:        config,
		logger:        logger,
	}, nil
}

// DiscoverFromReasoningChain extracts candidate relationships from one
// reasoning chain and stores those above the confidence threshold as
// PENDING. The sourceQuery is the query whose answer produced the chain;
// it is stored with each relationship so reviewers can trace a discovery
// back to the query that caused it. The same pair discovered twice in one
// chain keeps its highest confidence. Candidates whose pair was already
// resolved are skipped.
func (e *Engine) DiscoverFromReasoningChain(ctx context.Context, reasoningChain string, sourceQuery string) ([]*model.LatentRelationship, error) {
	if len(reasoningChain) == 0 {
		return nil, nil
	}

	matches := findMatches(reasoningChain)
	if len(matches) == 0 {
		return nil, nil
	}

	// Repetition of a pair across the chain strengthens the signal
	pairHits := map[string]int{}
	for _, m := range matches {
		pairHits[pairKey(m.source, m.target, m.relationType)]++
	}

	best := map[string]*model.LatentRelationship{}
	for _, m := range matches {
		key := pairKey(m.source, m.target, m.relationType)
		score := confidence(m, pairHits[key])
		if score < e.config.LatentConfidenceThreshold {
			continue
		}

		if existing, ok := best[key]; ok && existing.Confidence >= score {
			continue
		}

		best[key] = &model.LatentRelationship{
			SourceEntity: m.source,
			TargetEntity: m.target,
			RelationType: m.relationType,
			Confidence:   score,
			Provenance:   model.ProvenanceImplicit,
			Evidence:     m.evidence,
			SourceQuery:  sourceQuery,
		}
	}

	var discovered []*model.LatentRelationship
	for _, relationship := range best {
		err := e.relationships.InsertRelationship(relationship)
		if errors.Is(err, model.ErrAlreadyResolved) {
			continue
		}
		if err != nil {
			return discovered, fmt.Errorf("%w: %v", model.ErrTransientStore, err)
		}
		discovered = append(discovered, relationship)
	}

	if len(discovered) > 0 {
		e.logger.Info(
			"Discovered latent relationships",
			slog.Int("count", len(discovered)),
			slog.Int("matches", len(matches)),
		)
	}

	return discovered, nil
}

// Pending returns all unresolved relationships, highest confidence first
func (e *Engine) Pending() ([]*model.LatentRelationship, error) {
	return e.relationships.SelectRelationshipsByStatus(model.StatusPending)
}

// Approve resolves a pending relationship as reviewer-approved and
// materializes it into the graph store
func (e *Engine) Approve(ctx context.Context, id uuid.UUID) (*model.LatentRelationship, error) {
	return e.resolve(ctx, id, model.StatusApproved)
}

// Reject resolves a pending relationship as reviewer-rejected. Rejected
// relationships never enter the graph.
func (e *Engine) Reject(ctx context.Context, id uuid.UUID) (*model.LatentRelationship, error) {
	return e.resolve(ctx, id, model.StatusRejected)
}

// AutoActivateHighConfidence resolves every pending relationship at or
// above the given threshold and materializes it. A threshold <= 0 falls
// back to the configured default. Returns the relationships activated by
// this sweep; races lost to a concurrent reviewer are skipped silently.
func (e *Engine) AutoActivateHighConfidence(ctx context.Context, threshold float64) ([]*model.LatentRelationship, error) {
	if threshold <= 0 {
		threshold = e.config.AutoActivateThreshold
	}

	pending, err := e.relationships.SelectRelationshipsByStatus(model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransientStore, err)
	}

	var activated []*model.LatentRelationship
	for _, relationship := range pending {
		if relationship.Confidence < threshold {
			continue
		}

		resolved, err := e.resolve(ctx, relationship.ID, model.StatusAutoActivated)
		if errors.Is(err, model.ErrAlreadyResolved) {
			continue
		}
		if err != nil {
			return activated, err
		}
		activated = append(activated, resolved)
	}

	if len(activated) > 0 {
		e.logger.Info("Auto-activated relationships", slog.Int("count", len(activated)))
	}

	return activated, nil
}

// Statistics returns the relationship counts per workflow state
func (e *Engine) Statistics() (map[model.RelationshipStatus]int, error) {
	return e.relationships.CountByStatus()
}

func (e *Engine) resolve(ctx context.Context, id uuid.UUID, status model.RelationshipStatus) (*model.LatentRelationship, error) {
	relationship, err := e.relationships.TransitionStatus(id, status)
	if err != nil {
		return nil, err
	}

	if status.Materializes() {
		e.materialize(ctx, relationship)
	}

	e.logger.Info(
		"Resolved relationship",
		slog.String("id", relationship.ID.String()),
		slog.String("status", string(status)),
		slog.String("source", relationship.SourceEntity),
		slog.String("target", relationship.TargetEntity),
	)

	return relationship, nil
}

// materialize writes the relationship into the graph store at the initial
// edge weight so the reweighting engine can take over from there.
// Failures are logged; the status transition already happened and stands.
func (e *Engine) materialize(ctx context.Context, relationship *model.LatentRelationship) {
	if e.store == nil {
		return
	}

	err := e.store.CreateRelationship(
		ctx,
		relationship.SourceEntity,
		relationship.TargetEntity,
		relationship.RelationType,
		e.config.InitialEdgeWeight,
	)
	if err != nil {
		e.logger.Warn(
			"Failed to materialize relationship",
			slog.String("id", relationship.ID.String()),
			slog.Any("error", err),
		)
	}
}

func pairKey(source, target, relationType string) string {
	return source + "|" + target + "|" + relationType
}
