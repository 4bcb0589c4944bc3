package entities

import (
	"github.com/google/uuid"

	"fabula-backend/domain/core/valueobjects"
)

// ConsistencySuggestion is a proposed edit to one node's body produced by
// reconciliation after another node's edit. Suggestions are transient: they
// live in a queue until accepted or rejected, and are never auto-applied.
type ConsistencySuggestion struct {
	ID            string              `json:"id"`
	SourceNodeID  valueobjects.NodeID `json:"source_node_id"`
	TargetNodeID  valueobjects.NodeID `json:"target_node_id"`
	OriginalText  string              `json:"original_text"`
	SuggestedText string              `json:"suggested_text"`
	Reason        string              `json:"reason"`
}

// NewConsistencySuggestion creates a suggestion with a fresh identity
func NewConsistencySuggestion(source, target valueobjects.NodeID, original, suggested, reason string) *ConsistencySuggestion {
	return &ConsistencySuggestion{
		ID:            uuid.New().String(),
		SourceNodeID:  source,
		TargetNodeID:  target,
		OriginalText:  original,
		SuggestedText: suggested,
		Reason:        reason,
	}
}
