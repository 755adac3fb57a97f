// Package scheduler runs the periodic maintenance of the adaptive layer:
// recency decay sweeps over edge weights, retention pruning of old
// outcomes and auto-activation of high-confidence latent relationships.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/adaptive-rag/metagraph/core/discovery"
	"github.com/adaptive-rag/metagraph/core/outcomes"
	"github.com/adaptive-rag/metagraph/core/reweight"
	"github.com/adaptive-rag/metagraph/metrics"
	"github.com/adaptive-rag/metagraph/model"
)

const (
	decaySchedule        = "@every 1h"
	pruneSchedule        = "@daily"
	autoActivateSchedule = "@every 15m"

	jobTimeout = 5 * time.Minute
)

// Scheduler owns the cron runner for the maintenance jobs
type Scheduler struct {
	reweighter *reweight.Engine
	tracker    *outcomes.Tracker
	discoverer *discovery.Engine
	config     model.AdaptiveConfig
	metrics    *metrics.Metrics
	cron       *cron.Cron
	logger     *slog.Logger
}

// NewScheduler creates a scheduler over the given engines
func NewScheduler(
	reweighter *reweight.Engine,
	tracker *outcomes.Tracker,
	discoverer *discovery.Engine,
	config model.AdaptiveConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*Scheduler, error) {
	if reweighter == nil {
		return nil, fmt.Errorf("reweight engine is nil")
	}
	if tracker == nil {
		return nil, fmt.Errorf("outcome tracker is nil")
	}
	if discoverer == nil {
		return nil, fmt.Errorf("discovery engine is nil")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics is nil")
	}

	return &Scheduler{
		reweighter: reweighter,
		tracker:    tracker,
		discoverer: discoverer,
		config:     config,
		metrics:    m,
		cron:       cron.New(),
		logger:     logger,
	}, nil
}

// Start registers the maintenance jobs and starts the cron runner
func (s *Scheduler) Start() error {
	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"recency decay", decaySchedule, s.runDecay},
		{"outcome pruning", pruneSchedule, s.runPrune},
		{"auto activation", autoActivateSchedule, s.runAutoActivate},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.schedule, job.run); err != nil {
			return fmt.Errorf("error scheduling %s: %v", job.name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("Maintenance scheduler started", slog.Int("jobs", len(jobs)))
	return nil
}

// Stop stops the cron runner and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Maintenance scheduler stopped")
}

func (s *Scheduler) runDecay() {
	// Truncating to the cycle makes repeated sweeps within one cycle
	// idempotent, so an hourly trigger decays each edge at most once
	// per cycle.
	cycleStart := time.Now().UTC().Truncate(s.config.DecayCycle)

	decayed, err := s.reweighter.ApplyRecencyDecay(cycleStart)
	if err != nil {
		s.logger.Error("Recency decay sweep failed", slog.Any("error", err))
		return
	}
	if decayed > 0 {
		s.metrics.EdgesDecayed.Add(float64(decayed))
		s.logger.Info("Recency decay applied", slog.Int64("edges", decayed))
	}
}

func (s *Scheduler) runPrune() {
	pruned, err := s.tracker.Prune()
	if err != nil {
		s.logger.Error("Outcome pruning failed", slog.Any("error", err))
		return
	}
	if pruned > 0 {
		s.metrics.OutcomesPruned.Add(float64(pruned))
		s.logger.Info("Outcomes pruned", slog.Int64("outcomes", pruned))
	}
}

func (s *Scheduler) runAutoActivate() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	activated, err := s.discoverer.AutoActivateHighConfidence(ctx, s.config.AutoActivateThreshold)
	if err != nil {
		s.logger.Error("Auto activation sweep failed", slog.Any("error", err))
		return
	}
	if len(activated) > 0 {
		s.metrics.RelationshipsByEvent.WithLabelValues("auto_activated").Add(float64(len(activated)))
		s.logger.Info("Relationships auto activated", slog.Int("relationships", len(activated)))
	}
}
