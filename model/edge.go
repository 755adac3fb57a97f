package model

import "time"

// EdgeWeight is the learned weight record for one distinct graph edge,
// keyed by (source, target, relation type). Created lazily on first touch
// with the default weight, never deleted (it decays toward the floor).
type EdgeWeight struct {
	Source        string    `json:"source"`
	Target        string    `json:"target"`
	RelationType  string    `json:"relation_type"`
	Weight        float64   `json:"weight"`
	Successes     int       `json:"successes"`
	Failures      int       `json:"failures"`
	LastUpdated   time.Time `json:"last_updated"`
	LastDecayedAt time.Time `json:"last_decayed_at,omitempty"`
}

// EffectivenessRatio is the success share of all touches on this edge.
// An untouched edge reports the neutral 0.5.
func (e *EdgeWeight) EffectivenessRatio() float64 {
	total := e.Successes + e.Failures
	if total == 0 {
		return 0.5
	}
	return float64(e.Successes) / float64(total)
}
