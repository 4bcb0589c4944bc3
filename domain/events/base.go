package events

import (
	"time"

	"fabula-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all engine events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string   { return e.AggregateID }
func (e BaseEvent) GetEventType() string     { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

func newBase(aggregateID, eventType string) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   time.Now(),
	}
}

// Structural events

// StructuralChanged is raised whenever the node tree or the relationship
// graph mutates. Scene and gap projections must be re-derived after it.
type StructuralChanged struct {
	BaseEvent
	ProjectID string `json:"project_id"`
}

// NewStructuralChanged creates a StructuralChanged event
func NewStructuralChanged(projectID string) StructuralChanged {
	return StructuralChanged{
		BaseEvent: newBase(projectID, "timeline.structural_changed"),
		ProjectID: projectID,
	}
}

// NodeUpdated is raised when a single node's attributes change
type NodeUpdated struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(nodeID valueobjects.NodeID) NodeUpdated {
	return NodeUpdated{
		BaseEvent: newBase(nodeID.String(), "node.updated"),
		NodeID:    nodeID,
	}
}

// Content events

// ContentUpdated is raised when a node's notes, body, or status change
type ContentUpdated struct {
	BaseEvent
	NodeID valueobjects.NodeID        `json:"node_id"`
	Status valueobjects.ContentStatus `json:"status"`
}

// NewContentUpdated creates a ContentUpdated event
func NewContentUpdated(nodeID valueobjects.NodeID, status valueobjects.ContentStatus) ContentUpdated {
	return ContentUpdated{
		BaseEvent: newBase(nodeID.String(), "node.content_updated"),
		NodeID:    nodeID,
		Status:    status,
	}
}

// Generation events

// GenerationProgress carries one streamed token and the running count
type GenerationProgress struct {
	BaseEvent
	NodeID          valueobjects.NodeID `json:"node_id"`
	Token           string              `json:"token"`
	TokensGenerated int                 `json:"tokens_generated"`
}

// NewGenerationProgress creates a GenerationProgress event
func NewGenerationProgress(nodeID valueobjects.NodeID, token string, count int) GenerationProgress {
	return GenerationProgress{
		BaseEvent:       newBase(nodeID.String(), "generation.progress"),
		NodeID:          nodeID,
		Token:           token,
		TokensGenerated: count,
	}
}

// GenerationComplete is raised when a stream finishes and the body is committed
type GenerationComplete struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
}

// NewGenerationComplete creates a GenerationComplete event
func NewGenerationComplete(nodeID valueobjects.NodeID) GenerationComplete {
	return GenerationComplete{
		BaseEvent: newBase(nodeID.String(), "generation.complete"),
		NodeID:    nodeID,
	}
}

// GenerationError is raised when a stream fails; status has been rolled back
type GenerationError struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	Reason string              `json:"reason"`
}

// NewGenerationError creates a GenerationError event
func NewGenerationError(nodeID valueobjects.NodeID, reason string) GenerationError {
	return GenerationError{
		BaseEvent: newBase(nodeID.String(), "generation.error"),
		NodeID:    nodeID,
		Reason:    reason,
	}
}

// BatchProgress reports sequential child generation inside a batch run
type BatchProgress struct {
	BaseEvent
	ParentID  valueobjects.NodeID `json:"parent_id"`
	Total     int                 `json:"total"`
	Completed int                 `json:"completed"`
}

// NewBatchProgress creates a BatchProgress event
func NewBatchProgress(parentID valueobjects.NodeID, total, completed int) BatchProgress {
	return BatchProgress{
		BaseEvent: newBase(parentID.String(), "generation.batch_progress"),
		ParentID:  parentID,
		Total:     total,
		Completed: completed,
	}
}

// Consistency events

// ConsistencySuggestionRaised announces one suggested edit to another node
type ConsistencySuggestionRaised struct {
	BaseEvent
	SuggestionID  string              `json:"suggestion_id"`
	SourceNodeID  valueobjects.NodeID `json:"source_node_id"`
	TargetNodeID  valueobjects.NodeID `json:"target_node_id"`
	OriginalText  string              `json:"original_text"`
	SuggestedText string              `json:"suggested_text"`
	Reason        string              `json:"reason"`
}

// NewConsistencySuggestionRaised creates a ConsistencySuggestionRaised event
func NewConsistencySuggestionRaised(suggestionID string, source, target valueobjects.NodeID, original, suggested, reason string) ConsistencySuggestionRaised {
	return ConsistencySuggestionRaised{
		BaseEvent:     newBase(source.String(), "consistency.suggestion"),
		SuggestionID:  suggestionID,
		SourceNodeID:  source,
		TargetNodeID:  target,
		OriginalText:  original,
		SuggestedText: suggested,
		Reason:        reason,
	}
}

// ConsistencyComplete closes a reconciliation pass with its suggestion count
type ConsistencyComplete struct {
	BaseEvent
	SourceNodeID    valueobjects.NodeID `json:"source_node_id"`
	SuggestionCount int                 `json:"suggestion_count"`
}

// NewConsistencyComplete creates a ConsistencyComplete event
func NewConsistencyComplete(source valueobjects.NodeID, count int) ConsistencyComplete {
	return ConsistencyComplete{
		BaseEvent:       newBase(source.String(), "consistency.complete"),
		SourceNodeID:    source,
		SuggestionCount: count,
	}
}

// History events

// UndoRedoChanged is raised after every history push/pop
type UndoRedoChanged struct {
	BaseEvent
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

// NewUndoRedoChanged creates an UndoRedoChanged event
func NewUndoRedoChanged(projectID string, canUndo, canRedo bool) UndoRedoChanged {
	return UndoRedoChanged{
		BaseEvent: newBase(projectID, "history.changed"),
		CanUndo:   canUndo,
		CanRedo:   canRedo,
	}
}

// Bible events

// BibleChanged is raised when story-bible entities mutate
type BibleChanged struct {
	BaseEvent
	ProjectID string `json:"project_id"`
}

// NewBibleChanged creates a BibleChanged event
func NewBibleChanged(projectID string) BibleChanged {
	return BibleChanged{
		BaseEvent: newBase(projectID, "bible.changed"),
		ProjectID: projectID,
	}
}
