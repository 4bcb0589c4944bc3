package entities

import (
	"fabula-backend/domain/core/valueobjects"
)

// StoryNode is a narrative unit at one level of the hierarchy. All levels
// share the same shape; they differ by Level and ParentID. Parent/child is
// a narrative relation, not strict temporal containment; a node's range
// need not nest inside its parent's span.
type StoryNode struct {
	ID        valueobjects.NodeID        `json:"id"`
	ParentID  valueobjects.NodeID        `json:"parent_id,omitempty"`
	Level     valueobjects.StoryLevel    `json:"level"`
	TimeRange valueobjects.TimeRange     `json:"time_range"`
	Name      string                     `json:"name"`
	BeatType  valueobjects.BeatType      `json:"beat_type,omitempty"`
	Content   valueobjects.NodeContent   `json:"content"`
	// Locked blocks AI generation; the user has taken ownership of the text.
	Locked bool `json:"locked"`
}

// NewStoryNode creates a root-level node
func NewStoryNode(name string, level valueobjects.StoryLevel, timeRange valueobjects.TimeRange) *StoryNode {
	return &StoryNode{
		ID:        valueobjects.NewNodeID(),
		Level:     level,
		TimeRange: timeRange,
		Name:      name,
		Content:   valueobjects.EmptyContent(),
	}
}

// NewChildNode creates a node under a parent
func NewChildNode(name string, level valueobjects.StoryLevel, timeRange valueobjects.TimeRange, parentID valueobjects.NodeID) *StoryNode {
	n := NewStoryNode(name, level, timeRange)
	n.ParentID = parentID
	return n
}

// IsRoot reports whether the node has no parent
func (n *StoryNode) IsRoot() bool {
	return n.ParentID.IsZero()
}

// BestText returns the most authoritative text available (body over notes)
func (n *StoryNode) BestText() string {
	if n.Content.Body != "" {
		return n.Content.Body
	}
	return n.Content.Notes
}

// Clone returns a deep copy of the node
func (n *StoryNode) Clone() *StoryNode {
	dup := *n
	return &dup
}
