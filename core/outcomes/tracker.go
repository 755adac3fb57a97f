package outcomes

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adaptive-rag/metagraph/database"
	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
)

// Tracker is the append-only outcome store. Every retrieval attempt is
// recorded exactly once and never mutated afterwards; summaries and
// exports read over the recorded window.
type Tracker struct {
	outcomes database.OutcomesDBHandlerFunctions
	config   model.AdaptiveConfig
	logger   *slog.Logger
}

// NewTracker creates a new outcome tracker on top of the outcome store handler
func NewTracker(outcomes database.OutcomesDBHandlerFunctions, config model.AdaptiveConfig, logger *slog.Logger) (*Tracker, error) {
	if outcomes == nil {
		return nil, helper.NewError("outcomes handler validation", fmt.Errorf("outcomes handler is nil"))
	}

	return &Tracker{
		outcomes: outcomes,
		config:   config,
		logger:   logger,
	}, nil
}

// Record validates and appends one retrieval outcome. The query embedding
// is optional; a missing one is stored as NULL and excluded from
// similarity-based routing later.
func (t *Tracker) Record(outcome *model.RetrievalOutcome, queryEmbedding []float32) error {
	err := validateOutcome(outcome)
	if err != nil {
		return err
	}

	err = t.outcomes.InsertOutcome(outcome, queryEmbedding)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransientStore, err)
	}

	t.logger.Debug(
		"Recorded retrieval outcome",
		slog.String("outcomeId", outcome.ID.String()),
		slog.String("method", string(outcome.Method)),
		slog.Bool("success", outcome.Success),
		slog.Float64("score", outcome.CompositeSuccessScore()),
	)

	return nil
}

// Outcome retrieves a single outcome by ID
func (t *Tracker) Outcome(id uuid.UUID) (*model.RetrievalOutcome, error) {
	return t.outcomes.SelectOutcome(id)
}

// Outcomes retrieves all outcomes recorded in [since, now)
func (t *Tracker) Outcomes(since time.Time) ([]*model.RetrievalOutcome, error) {
	return t.outcomes.SelectOutcomesSince(since)
}

// Summary aggregates outcomes in [since, now) grouped by method or query type
func (t *Tracker) Summary(since time.Time, groupBy model.GroupBy) (*model.PerformanceSummary, error) {
	if groupBy != model.GroupByMethod && groupBy != model.GroupByQueryType {
		return nil, fmt.Errorf("%w: unknown group by %v", model.ErrValidation, groupBy)
	}
	return t.outcomes.Summarize(since, groupBy)
}

// Export writes all outcomes in [since, now) to the writer as JSON
func (t *Tracker) Export(w io.Writer, since time.Time) error {
	outcomes, err := t.outcomes.SelectOutcomesSince(since)
	if err != nil {
		return helper.NewError("select outcomes", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(outcomes)
	if err != nil {
		return helper.NewError("encode outcomes", err)
	}

	t.logger.Info("Exported outcomes", slog.Int("count", len(outcomes)))

	return nil
}

// Prune deletes outcomes older than the retention window and returns the
// number of deleted rows
func (t *Tracker) Prune() (int64, error) {
	cutoff := time.Now().Add(-t.config.RetentionWindow)

	pruned, err := t.outcomes.PruneBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrTransientStore, err)
	}

	if pruned > 0 {
		t.logger.Info("Pruned outcomes", slog.Int64("count", pruned), slog.Time("cutoff", cutoff))
	}

	return pruned, nil
}

func validateOutcome(outcome *model.RetrievalOutcome) error {
	if outcome == nil {
		return fmt.Errorf("%w: outcome is nil", model.ErrValidation)
	}
	if len(outcome.QueryText) == 0 {
		return fmt.Errorf("%w: query text is empty", model.ErrValidation)
	}
	if outcome.Method == "" {
		return fmt.Errorf("%w: retrieval method is empty", model.ErrValidation)
	}
	if outcome.QueryType == "" {
		return fmt.Errorf("%w: query type is empty", model.ErrValidation)
	}
	if outcome.Confidence < 0 || outcome.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of [0,1]", model.ErrValidation, outcome.Confidence)
	}
	if outcome.ReasoningValidity < 0 || outcome.ReasoningValidity > 1 {
		return fmt.Errorf("%w: reasoning validity %v out of [0,1]", model.ErrValidation, outcome.ReasoningValidity)
	}
	if outcome.EmbeddingCoherence < 0 || outcome.EmbeddingCoherence > 1 {
		return fmt.Errorf("%w: embedding coherence %v out of [0,1]", model.ErrValidation, outcome.EmbeddingCoherence)
	}
	if outcome.ExecutionTime < 0 {
		return fmt.Errorf("%w: execution time is negative", model.ErrValidation)
	}
	return nil
}
