package model

import (
	"time"

	"github.com/google/uuid"
)

// LatentRelationship is a relationship proposed by the discovery engine.
// Only its workflow status ever changes, and only via the atomic
// transition in the relationships handler.
type LatentRelationship struct {
	ID           uuid.UUID              `json:"id"`
	SourceEntity string                 `json:"source_entity"`
	TargetEntity string                 `json:"target_entity"`
	RelationType string                 `json:"relation_type"`
	Confidence   float64                `json:"confidence"`
	Provenance   RelationshipProvenance `json:"provenance"`
	Status       RelationshipStatus     `json:"status"`
	Evidence     string                 `json:"evidence,omitempty"`
	SourceQuery  string                 `json:"source_query,omitempty"`
	DiscoveredAt time.Time              `json:"discovered_at"`
	ResolvedAt   *time.Time             `json:"resolved_at,omitempty"`
}
