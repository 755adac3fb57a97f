package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adaptive-rag/metagraph/core/discovery"
	"github.com/adaptive-rag/metagraph/core/orchestrator"
	"github.com/adaptive-rag/metagraph/core/outcomes"
	"github.com/adaptive-rag/metagraph/core/reweight"
	"github.com/adaptive-rag/metagraph/core/router"
	"github.com/adaptive-rag/metagraph/metrics"
	"github.com/adaptive-rag/metagraph/model"
)

// Handlers contains the HTTP handlers of the adaptive layer
type Handlers struct {
	orchestrator *orchestrator.Orchestrator
	tracker      *outcomes.Tracker
	reweighter   *reweight.Engine
	discoverer   *discovery.Engine
	router       *router.Router
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewHandlers creates the handler set. The orchestrator may be nil when
// the service runs without attached retrievers; the query endpoint then
// answers 503.
func NewHandlers(
	o *orchestrator.Orchestrator,
	tracker *outcomes.Tracker,
	reweighter *reweight.Engine,
	discoverer *discovery.Engine,
	queryRouter *router.Router,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		orchestrator: o,
		tracker:      tracker,
		reweighter:   reweighter,
		discoverer:   discoverer,
		router:       queryRouter,
		metrics:      m,
		logger:       logger,
	}
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

// HandleQuery handles POST /v1/query
func (h *Handlers) HandleQuery(c *gin.Context) {
	if h.orchestrator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no retrievers attached"})
		return
	}

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.orchestrator.Process(c.Request.Context(), req.Query)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

type recordOutcomeRequest struct {
	QueryID            string           `json:"query_id"`
	QueryText          string           `json:"query_text" binding:"required"`
	QueryType          string           `json:"query_type" binding:"required"`
	Method             string           `json:"method" binding:"required"`
	Success            bool             `json:"success"`
	Confidence         float64          `json:"confidence"`
	ReasoningValidity  float64          `json:"reasoning_validity"`
	EmbeddingCoherence float64          `json:"embedding_coherence"`
	ExecutionTimeMs    float64          `json:"execution_time_ms"`
	RetrievedNodes     []string         `json:"retrieved_nodes"`
	Path               []model.PathEdge `json:"path"`
	ReasoningChain     string           `json:"reasoning_chain"`
}

// HandleRecordOutcome handles POST /v1/outcomes. It records an externally
// observed outcome and applies the learning updates inline.
func (h *Handlers) HandleRecordOutcome(c *gin.Context) {
	var req recordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queryID := uuid.New()
	if req.QueryID != "" {
		parsed, err := uuid.Parse(req.QueryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query_id"})
			return
		}
		queryID = parsed
	}

	outcome := &model.RetrievalOutcome{
		QueryID:            queryID,
		QueryText:          req.QueryText,
		QueryType:          model.QueryType(req.QueryType),
		Method:             model.RetrievalMethod(req.Method),
		Success:            req.Success,
		Confidence:         req.Confidence,
		ReasoningValidity:  req.ReasoningValidity,
		EmbeddingCoherence: req.EmbeddingCoherence,
		ExecutionTime:      time.Duration(req.ExecutionTimeMs * float64(time.Millisecond)),
		RetrievedNodes:     req.RetrievedNodes,
		Path:               req.Path,
	}

	if err := h.tracker.Record(outcome, nil); err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.OutcomesRecorded.WithLabelValues(string(outcome.Method), boolLabel(outcome.Success)).Inc()

	if err := h.reweighter.UpdateFromOutcome(c.Request.Context(), outcome); err != nil {
		h.metrics.AdaptiveUpdateFailures.WithLabelValues("reweight").Inc()
		h.logger.Warn("Reweighting update failed", slog.Any("error", err))
	}
	if err := h.router.UpdateEffectiveness(outcome); err != nil {
		h.metrics.AdaptiveUpdateFailures.WithLabelValues("effectiveness").Inc()
		h.logger.Warn("Effectiveness update failed", slog.Any("error", err))
	}

	if req.ReasoningChain != "" {
		discovered, err := h.discoverer.DiscoverFromReasoningChain(c.Request.Context(), req.ReasoningChain, req.QueryText)
		if err != nil {
			h.metrics.AdaptiveUpdateFailures.WithLabelValues("discovery").Inc()
			h.logger.Warn("Relationship discovery failed", slog.Any("error", err))
		}
		if len(discovered) > 0 {
			h.metrics.RelationshipsByEvent.WithLabelValues("discovered").Add(float64(len(discovered)))
		}
	}

	c.JSON(http.StatusCreated, outcome)
}

// HandleSummary handles GET /v1/outcomes/summary
func (h *Handlers) HandleSummary(c *gin.Context) {
	groupBy := model.GroupBy(c.DefaultQuery("group_by", string(model.GroupByMethod)))

	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		since = parsed
	}

	summary, err := h.tracker.Summary(since, groupBy)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// HandleRecommendations handles GET /v1/routing/recommendations
func (h *Handlers) HandleRecommendations(c *gin.Context) {
	recommendations, err := h.router.Recommendations()
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}

// HandleRoute handles GET /v1/routing/decision
func (h *Handlers) HandleRoute(c *gin.Context) {
	queryType := model.QueryType(c.Query("query_type"))
	if queryType == "" {
		query := c.Query("query")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query_type or query is required"})
			return
		}
		queryType = router.Classify(query)
	}

	decision, err := h.router.Route(queryType)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

type discoverRequest struct {
	ReasoningChain string `json:"reasoning_chain" binding:"required"`
	SourceQuery    string `json:"source_query"`
}

// HandleDiscover handles POST /v1/relationships/discover
func (h *Handlers) HandleDiscover(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	discovered, err := h.discoverer.DiscoverFromReasoningChain(c.Request.Context(), req.ReasoningChain, req.SourceQuery)
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(discovered) > 0 {
		h.metrics.RelationshipsByEvent.WithLabelValues("discovered").Add(float64(len(discovered)))
	}

	c.JSON(http.StatusOK, gin.H{"discovered": discovered})
}

// HandlePendingRelationships handles GET /v1/relationships/pending
func (h *Handlers) HandlePendingRelationships(c *gin.Context) {
	pending, err := h.discoverer.Pending()
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// HandleApproveRelationship handles POST /v1/relationships/:id/approve
func (h *Handlers) HandleApproveRelationship(c *gin.Context) {
	h.resolveRelationship(c, model.StatusApproved)
}

// HandleRejectRelationship handles POST /v1/relationships/:id/reject
func (h *Handlers) HandleRejectRelationship(c *gin.Context) {
	h.resolveRelationship(c, model.StatusRejected)
}

func (h *Handlers) resolveRelationship(c *gin.Context, status model.RelationshipStatus) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid relationship id"})
		return
	}

	var relationship *model.LatentRelationship
	if status == model.StatusApproved {
		relationship, err = h.discoverer.Approve(c.Request.Context(), id)
	} else {
		relationship, err = h.discoverer.Reject(c.Request.Context(), id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.RelationshipsByEvent.WithLabelValues(string(status)).Inc()

	c.JSON(http.StatusOK, relationship)
}

// HandleAutoActivate handles POST /v1/relationships/auto-activate. An
// optional threshold query parameter overrides the configured default
// for this sweep.
func (h *Handlers) HandleAutoActivate(c *gin.Context) {
	threshold := 0.0
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be in (0, 1]"})
			return
		}
		threshold = parsed
	}

	activated, err := h.discoverer.AutoActivateHighConfidence(c.Request.Context(), threshold)
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(activated) > 0 {
		h.metrics.RelationshipsByEvent.WithLabelValues("auto_activated").Add(float64(len(activated)))
	}

	c.JSON(http.StatusOK, gin.H{"activated": activated})
}

// HandleTopWeights handles GET /v1/weights/top
func (h *Handlers) HandleTopWeights(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	edges, err := h.reweighter.TopEdges(limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"edges": edges})
}

// HandleStatus handles GET /v1/status
func (h *Handlers) HandleStatus(c *gin.Context) {
	statistics, err := h.discoverer.Statistics()
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"relationships": statistics,
		"time":          time.Now().UTC(),
	})
}

// HandleHealth handles GET /health
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail maps domain errors onto HTTP status codes
func (h *Handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrTransientStore):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
