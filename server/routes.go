package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewEngine builds the gin engine with all routes registered
func NewEngine(handlers *Handlers) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	RegisterRoutes(engine, handlers)

	return engine
}

// RegisterRoutes registers all routes with the given engine.
//
// Endpoints:
//
//	POST /v1/query - Process a query end to end
//	POST /v1/outcomes - Record an externally observed outcome
//	GET  /v1/outcomes/summary - Aggregate performance over a window
//	GET  /v1/routing/decision - Routing decision for one query or type
//	GET  /v1/routing/recommendations - Best-known method per query type
//	POST /v1/relationships/discover - Mine a reasoning chain
//	GET  /v1/relationships/pending - Unresolved discovered relationships
//	POST /v1/relationships/:id/approve - Approve a pending relationship
//	POST /v1/relationships/:id/reject - Reject a pending relationship
//	POST /v1/relationships/auto-activate - Activate high-confidence pending
//	GET  /v1/weights/top - Highest-weighted edges
//	GET  /v1/status - Component statistics
//	GET  /health - Liveness
//	GET  /metrics - Prometheus metrics
func RegisterRoutes(engine *gin.Engine, handlers *Handlers) {
	v1 := engine.Group("/v1")
	{
		v1.POST("/query", handlers.HandleQuery)

		v1.POST("/outcomes", handlers.HandleRecordOutcome)
		v1.GET("/outcomes/summary", handlers.HandleSummary)

		v1.GET("/routing/decision", handlers.HandleRoute)
		v1.GET("/routing/recommendations", handlers.HandleRecommendations)

		v1.POST("/relationships/discover", handlers.HandleDiscover)
		v1.GET("/relationships/pending", handlers.HandlePendingRelationships)
		v1.POST("/relationships/:id/approve", handlers.HandleApproveRelationship)
		v1.POST("/relationships/:id/reject", handlers.HandleRejectRelationship)
		v1.POST("/relationships/auto-activate", handlers.HandleAutoActivate)

		v1.GET("/weights/top", handlers.HandleTopWeights)
		v1.GET("/status", handlers.HandleStatus)
	}

	engine.GET("/health", handlers.HandleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(handlers.metrics.Registry, promhttp.HandlerOpts{})))
}
