package router

import (
	"fmt"
	"log/slog"

	"github.com/adaptive-rag/metagraph/database"
	"github.com/adaptive-rag/metagraph/helper"
	"github.com/adaptive-rag/metagraph/model"
)

// Router selects retrieval methods from learned per-method effectiveness.
// Below the minimum history it explores with near-uniform weights; with
// enough history it exploits the best method or an ensemble when no
// method dominates.
type Router struct {
	stats  database.StatsDBHandlerFunctions
	config model.AdaptiveConfig
	logger *slog.Logger
}

// NewRouter creates a new query router on top of the method statistics store
func NewRouter(stats database.StatsDBHandlerFunctions, config model.AdaptiveConfig, logger *slog.Logger) (*Router, error) {
	if stats == nil {
		return nil, helper.NewError("stats handler validation", fmt.Errorf("stats handler is nil"))
	}

	return &Router{
		stats:  stats,
		config: config,
		logger: logger,
	}, nil
}

// Route decides how to retrieve for one query type
func (r *Router) Route(queryType model.QueryType) (*model.RoutingDecision, error) {
	stats, err := r.stats.SelectMethodStatsByQueryType(queryType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransientStore, err)
	}

	return r.decide(queryType, stats), nil
}

// decide is the pure decision over the loaded statistics. Every recorded
// attempt counts toward the exploration minimum, hybrid included:
// exploratory queries execute as ensembles recorded under hybrid, so
// excluding them would keep a query type exploring forever.
func (r *Router) decide(queryType model.QueryType, stats []*model.MethodStat) *model.RoutingDecision {
	byMethod := map[model.RetrievalMethod]*model.MethodStat{}
	totalAttempts := 0
	for _, stat := range stats {
		byMethod[stat.Method] = stat
		totalAttempts += stat.Attempts
	}

	if totalAttempts < r.config.MinHistoricalQueries {
		return r.exploratoryDecision(queryType)
	}

	best := r.bestMethod(byMethod)
	bestScore := r.score(byMethod[best])

	// A clear margin over every competitor means a single method
	single := true
	for _, method := range model.BaseMethods {
		if method == best {
			continue
		}
		if bestScore-r.score(byMethod[method]) < r.config.SingleMethodMargin {
			single = false
			break
		}
	}

	if single {
		return &model.RoutingDecision{
			QueryType: queryType,
			Single:    true,
			Method:    best,
			Weights:   map[model.RetrievalMethod]float64{best: 1.0},
		}
	}

	return r.ensembleDecision(queryType, byMethod)
}

// exploratoryDecision spreads retrieval across all base methods while
// history is too thin to trust
func (r *Router) exploratoryDecision(queryType model.QueryType) *model.RoutingDecision {
	return &model.RoutingDecision{
		QueryType:   queryType,
		Exploratory: true,
		Method:      model.MethodHybrid,
		Weights: map[model.RetrievalMethod]float64{
			model.MethodVectorSearch:     0.33,
			model.MethodGraphTraversal:   0.33,
			model.MethodLogicalFiltering: 0.34,
		},
	}
}

// ensembleDecision weights the base methods proportionally to their
// effectiveness scores
func (r *Router) ensembleDecision(queryType model.QueryType, byMethod map[model.RetrievalMethod]*model.MethodStat) *model.RoutingDecision {
	weights := map[model.RetrievalMethod]float64{}
	total := 0.0
	for _, method := range model.BaseMethods {
		score := r.score(byMethod[method])
		weights[method] = score
		total += score
	}

	if total <= 0 {
		return r.exploratoryDecision(queryType)
	}

	for method := range weights {
		weights[method] /= total
	}

	return &model.RoutingDecision{
		QueryType: queryType,
		Method:    model.MethodHybrid,
		Weights:   weights,
	}
}

// bestMethod picks the highest-scoring base method. Scores within the
// tie-break epsilon fall back to lower average execution time, then to
// the fixed method priority.
func (r *Router) bestMethod(byMethod map[model.RetrievalMethod]*model.MethodStat) model.RetrievalMethod {
	best := model.BaseMethods[0]
	for _, method := range model.BaseMethods[1:] {
		bestScore := r.score(byMethod[best])
		score := r.score(byMethod[method])

		if score > bestScore+r.config.TieBreakEpsilon {
			best = method
			continue
		}
		if bestScore-score > r.config.TieBreakEpsilon {
			continue
		}

		// Within epsilon: faster method wins, priority order settles the rest
		bestStat, candidateStat := byMethod[best], byMethod[method]
		if bestStat != nil && candidateStat != nil && candidateStat.AvgExecTime < bestStat.AvgExecTime {
			best = method
		}
	}
	return best
}

// score blends success rate with average confidence. A method without
// history scores zero.
func (r *Router) score(stat *model.MethodStat) float64 {
	if stat == nil || stat.Attempts == 0 {
		return 0
	}
	return stat.SuccessRate()*0.7 + stat.AvgConfidence*0.3
}

// UpdateEffectiveness folds one outcome into the method statistics
func (r *Router) UpdateEffectiveness(outcome *model.RetrievalOutcome) error {
	if outcome == nil {
		return fmt.Errorf("%w: outcome is nil", model.ErrValidation)
	}

	stat, err := r.stats.UpdateMethodStat(
		outcome.QueryType,
		outcome.Method,
		outcome.Success,
		outcome.Confidence,
		outcome.ExecutionTime,
		r.config.StatSmoothing,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransientStore, err)
	}

	r.logger.Debug(
		"Updated method effectiveness",
		slog.String("queryType", string(outcome.QueryType)),
		slog.String("method", string(outcome.Method)),
		slog.Int("attempts", stat.Attempts),
		slog.Float64("successRate", stat.SuccessRate()),
	)

	return nil
}

// Recommendations reports the best-known method per query type with its
// supporting statistics
func (r *Router) Recommendations() ([]*model.Recommendation, error) {
	stats, err := r.stats.SelectMethodStats()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransientStore, err)
	}

	byType := map[model.QueryType]map[model.RetrievalMethod]*model.MethodStat{}
	for _, stat := range stats {
		if byType[stat.QueryType] == nil {
			byType[stat.QueryType] = map[model.RetrievalMethod]*model.MethodStat{}
		}
		byType[stat.QueryType][stat.Method] = stat
	}

	var recommendations []*model.Recommendation
	for _, queryType := range model.QueryTypes {
		byMethod, ok := byType[queryType]
		if !ok {
			continue
		}

		best := r.bestMethod(byMethod)
		stat := byMethod[best]
		if stat == nil {
			continue
		}

		recommendations = append(recommendations, &model.Recommendation{
			QueryType:   queryType,
			Method:      best,
			SuccessRate: stat.SuccessRate(),
			AvgExecTime: stat.AvgExecTime,
			Confidence:  stat.ReliabilityConfidence(),
			Reliable:    stat.Reliable(r.config.MinHistoricalQueries),
		})
	}

	return recommendations, nil
}
