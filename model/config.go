package model

import "time"

// AdaptiveConfig holds the tunables of the adaptive meta-graph layer
type AdaptiveConfig struct {
	// Edge reweighting
	PositiveDelta     float64 `json:"positive_delta"`
	NegativeDelta     float64 `json:"negative_delta"`
	InitialEdgeWeight float64 `json:"initial_edge_weight"`
	WeightFloor       float64 `json:"weight_floor"`
	HopBonusFactor    float64 `json:"hop_bonus_factor"`

	// Recency decay
	RecencyDecayFactor float64       `json:"recency_decay_factor"`
	DecayAfter         time.Duration `json:"decay_after"`
	DecayCycle         time.Duration `json:"decay_cycle"`

	// Outcome retention
	RetentionWindow time.Duration `json:"retention_window"`

	// Relationship discovery
	LatentConfidenceThreshold float64 `json:"latent_confidence_threshold"`
	AutoActivateThreshold     float64 `json:"auto_activate_threshold"`

	// Routing
	MinHistoricalQueries int     `json:"min_historical_queries"`
	SingleMethodMargin   float64 `json:"single_method_margin"`
	TieBreakEpsilon      float64 `json:"tie_break_epsilon"`
	StatSmoothing        float64 `json:"stat_smoothing"`
}

// DefaultAdaptiveConfig returns the standard tuning
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		PositiveDelta:             0.15,
		NegativeDelta:             0.10,
		InitialEdgeWeight:         1.0,
		WeightFloor:               0.01,
		HopBonusFactor:            0.05,
		RecencyDecayFactor:        0.95,
		DecayAfter:                7 * 24 * time.Hour,
		DecayCycle:                24 * time.Hour,
		RetentionWindow:           30 * 24 * time.Hour,
		LatentConfidenceThreshold: 0.7,
		AutoActivateThreshold:     0.9,
		MinHistoricalQueries:      5,
		SingleMethodMargin:        0.2,
		TieBreakEpsilon:           0.02,
		StatSmoothing:             0.2,
	}
}
