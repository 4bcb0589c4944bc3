package entities

import (
	"fmt"

	"fabula-backend/domain/core/valueobjects"
)

// RelationshipType is the semantic kind of an annotation edge between nodes.
type RelationshipType string

const (
	// RelationshipCausal marks "this causes that".
	RelationshipCausal RelationshipType = "causal"
	// RelationshipConvergence marks arcs intersecting at a point; carries arc ids.
	RelationshipConvergence RelationshipType = "convergence"
	// RelationshipEntityDrives marks an entity driving a node; carries the entity id.
	RelationshipEntityDrives RelationshipType = "entity_drives"
	// RelationshipThematic is a user-defined thematic or structural link.
	RelationshipThematic RelationshipType = "thematic"
)

// ParseRelationshipType converts a wire string into a RelationshipType
func ParseRelationshipType(s string) (RelationshipType, error) {
	switch RelationshipType(s) {
	case RelationshipCausal, RelationshipConvergence, RelationshipEntityDrives, RelationshipThematic:
		return RelationshipType(s), nil
	default:
		return "", fmt.Errorf("unknown relationship type %q", s)
	}
}

// Relationship is a typed, directed annotation drawn between two nodes.
// Relationships are additive metadata: they never constrain scheduling,
// and cycles are permitted.
type Relationship struct {
	ID   valueobjects.RelationshipID `json:"id"`
	From valueobjects.NodeID         `json:"from_node"`
	To   valueobjects.NodeID         `json:"to_node"`
	Type RelationshipType            `json:"type"`
	// ArcIDs is populated for Convergence relationships.
	ArcIDs []valueobjects.EntityID `json:"arc_ids,omitempty"`
	// EntityID is populated for EntityDrives relationships.
	EntityID valueobjects.EntityID `json:"entity_id,omitempty"`
	Color    string                `json:"color,omitempty"`
}

// NewRelationship creates a relationship between two nodes. Convergence
// relationships carry the intersecting arc IDs; EntityDrives carries the
// driving entity.
func NewRelationship(from, to valueobjects.NodeID, relType RelationshipType, arcIDs []valueobjects.EntityID, entityID valueobjects.EntityID, color string) (*Relationship, error) {
	if _, err := ParseRelationshipType(string(relType)); err != nil {
		return nil, err
	}
	return &Relationship{
		ID:       valueobjects.NewRelationshipID(),
		From:     from,
		To:       to,
		Type:     relType,
		ArcIDs:   append([]valueobjects.EntityID(nil), arcIDs...),
		EntityID: entityID,
		Color:    color,
	}, nil
}

// Touches reports whether the relationship is incident to the given node
func (r *Relationship) Touches(id valueobjects.NodeID) bool {
	return r.From.Equals(id) || r.To.Equals(id)
}

// RemoveArcID drops a deleted entity from the arc list
func (r *Relationship) RemoveArcID(id valueobjects.EntityID) {
	filtered := r.ArcIDs[:0]
	for _, arcID := range r.ArcIDs {
		if !arcID.Equals(id) {
			filtered = append(filtered, arcID)
		}
	}
	r.ArcIDs = filtered
}

// Clone returns a deep copy of the relationship
func (r *Relationship) Clone() *Relationship {
	dup := *r
	dup.ArcIDs = append([]valueobjects.EntityID(nil), r.ArcIDs...)
	return &dup
}
