// Package queries defines the read side of the engine: query types, their
// result views, and the handler that serves them from in-memory state.
package queries

import (
	pkgerrors "fabula-backend/pkg/errors"
)

// GetTimelineQuery fetches the full editing state of a project
type GetTimelineQuery struct {
	ProjectID string `json:"project_id"`
}

func (q *GetTimelineQuery) Validate() error {
	if q.ProjectID == "" {
		return pkgerrors.NewValidationError("project_id is required")
	}
	return nil
}

// GetNodeQuery fetches one node with its subtree and annotations
type GetNodeQuery struct {
	ProjectID string `json:"project_id"`
	NodeID    string `json:"node_id"`
}

func (q *GetNodeQuery) Validate() error {
	if q.ProjectID == "" || q.NodeID == "" {
		return pkgerrors.NewValidationError("project_id and node_id are required")
	}
	return nil
}

// GetScenesQuery derives the current scene list
type GetScenesQuery struct {
	ProjectID string `json:"project_id"`
}

func (q *GetScenesQuery) Validate() error {
	if q.ProjectID == "" {
		return pkgerrors.NewValidationError("project_id is required")
	}
	return nil
}

// GetGapsQuery finds uncovered spans among one parent's children. An
// empty ParentID scans the root level.
type GetGapsQuery struct {
	ProjectID string `json:"project_id"`
	ParentID  string `json:"parent_id"`
}

func (q *GetGapsQuery) Validate() error {
	if q.ProjectID == "" {
		return pkgerrors.NewValidationError("project_id is required")
	}
	return nil
}

// GetSuggestionsQuery lists pending consistency suggestions
type GetSuggestionsQuery struct {
	ProjectID string `json:"project_id"`
}

func (q *GetSuggestionsQuery) Validate() error {
	if q.ProjectID == "" {
		return pkgerrors.NewValidationError("project_id is required")
	}
	return nil
}

// GetHistoryStatusQuery reports undo/redo availability
type GetHistoryStatusQuery struct {
	ProjectID string `json:"project_id"`
}

func (q *GetHistoryStatusQuery) Validate() error {
	if q.ProjectID == "" {
		return pkgerrors.NewValidationError("project_id is required")
	}
	return nil
}

// GetEntitiesQuery lists the story bible
type GetEntitiesQuery struct {
	ProjectID string `json:"project_id"`
}

func (q *GetEntitiesQuery) Validate() error {
	if q.ProjectID == "" {
		return pkgerrors.NewValidationError("project_id is required")
	}
	return nil
}

// ListProjectsQuery enumerates persisted projects
type ListProjectsQuery struct{}

func (q *ListProjectsQuery) Validate() error { return nil }

// GetGenerationStatusQuery lists nodes with a live stream
type GetGenerationStatusQuery struct {
	ProjectID string `json:"project_id"`
}

func (q *GetGenerationStatusQuery) Validate() error {
	if q.ProjectID == "" {
		return pkgerrors.NewValidationError("project_id is required")
	}
	return nil
}
