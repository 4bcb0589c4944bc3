package queries

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fabula-backend/application/ports"
	"fabula-backend/application/services"
	"fabula-backend/domain/core/entities"
	domainservices "fabula-backend/domain/core/services"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"
)

// TimelineView is the full editing state a client needs to render
type TimelineView struct {
	ProjectID       string                   `json:"project_id"`
	Name            string                   `json:"name"`
	TotalDurationMS int64                    `json:"total_duration_ms"`
	Nodes           []*entities.StoryNode    `json:"nodes"`
	Relationships   []*entities.Relationship `json:"relationships"`
	Generating      []valueobjects.NodeID    `json:"generating"`
	UpdatedAt       time.Time                `json:"updated_at"`
	Version         int                      `json:"version"`
}

// NodeView is one node with its subtree and annotations
type NodeView struct {
	Node          *entities.StoryNode      `json:"node"`
	Subtree       []*entities.StoryNode    `json:"subtree"`
	Relationships []*entities.Relationship `json:"relationships"`
	Entities      []*entities.Entity       `json:"entities"`
}

// HistoryStatusView reports undo/redo availability
type HistoryStatusView struct {
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

// GenerationStatusView lists live streams and the backend serving them
type GenerationStatusView struct {
	Backend    string                `json:"backend"`
	Generating []valueobjects.NodeID `json:"generating"`
}

// QueryHandler serves every read query from in-memory project state,
// taking the project lock for the duration of each read.
type QueryHandler struct {
	registry     *services.ProjectRegistry
	orchestrator *services.GenerationOrchestrator
	scenes       *services.SceneService
	gaps         *domainservices.GapDetector
	backend      ports.AiBackend
	logger       *zap.Logger
}

// NewQueryHandler creates the handler
func NewQueryHandler(registry *services.ProjectRegistry, orchestrator *services.GenerationOrchestrator, scenes *services.SceneService, gaps *domainservices.GapDetector, backend ports.AiBackend, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		registry:     registry,
		orchestrator: orchestrator,
		scenes:       scenes,
		gaps:         gaps,
		backend:      backend,
		logger:       logger,
	}
}

// HandleGetTimeline serves GetTimelineQuery
func (h *QueryHandler) HandleGetTimeline(ctx context.Context, q *GetTimelineQuery) (*TimelineView, error) {
	h.registry.LockProject(q.ProjectID)
	defer h.registry.UnlockProject(q.ProjectID)

	managed, err := h.registry.Get(q.ProjectID)
	if err != nil {
		return nil, err
	}
	project := managed.Project
	return &TimelineView{
		ProjectID:       project.ID,
		Name:            project.Name,
		TotalDurationMS: project.Timeline.TotalDurationMS(),
		Nodes:           project.Timeline.Nodes(),
		Relationships:   project.Timeline.Relationships(),
		Generating:      h.orchestrator.GeneratingNodes(q.ProjectID),
		UpdatedAt:       project.UpdatedAt,
		Version:         project.Version,
	}, nil
}

// HandleGetNode serves GetNodeQuery
func (h *QueryHandler) HandleGetNode(ctx context.Context, q *GetNodeQuery) (*NodeView, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(q.NodeID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	h.registry.LockProject(q.ProjectID)
	defer h.registry.UnlockProject(q.ProjectID)

	managed, err := h.registry.Get(q.ProjectID)
	if err != nil {
		return nil, err
	}
	node, err := managed.Project.Timeline.Node(nodeID)
	if err != nil {
		return nil, err
	}
	subtree, err := managed.Project.Timeline.Subtree(nodeID)
	if err != nil {
		return nil, err
	}
	return &NodeView{
		Node:          node,
		Subtree:       subtree,
		Relationships: managed.Project.Timeline.RelationshipsFor(nodeID),
		Entities:      managed.Project.EntitiesForNode(nodeID),
	}, nil
}

// HandleGetScenes serves GetScenesQuery
func (h *QueryHandler) HandleGetScenes(ctx context.Context, q *GetScenesQuery) ([]domainservices.Scene, error) {
	h.registry.LockProject(q.ProjectID)
	defer h.registry.UnlockProject(q.ProjectID)
	return h.scenes.Scenes(q.ProjectID)
}

// HandleGetGaps serves GetGapsQuery. The cover is the parent's range, or
// the whole project for root nodes, widened if children spill past it.
func (h *QueryHandler) HandleGetGaps(ctx context.Context, q *GetGapsQuery) ([]domainservices.Gap, error) {
	h.registry.LockProject(q.ProjectID)
	defer h.registry.UnlockProject(q.ProjectID)

	managed, err := h.registry.Get(q.ProjectID)
	if err != nil {
		return nil, err
	}
	timeline := managed.Project.Timeline

	var parentID valueobjects.NodeID
	cover := valueobjects.TimeRange{StartMS: 0, EndMS: timeline.TotalDurationMS()}
	if q.ParentID != "" {
		parentID, err = valueobjects.NewNodeIDFromString(q.ParentID)
		if err != nil {
			return nil, pkgerrors.NewValidationError(err.Error())
		}
		parent, err := timeline.Node(parentID)
		if err != nil {
			return nil, err
		}
		cover = parent.TimeRange
	}

	siblings := timeline.ChildrenOf(parentID)
	for _, sib := range siblings {
		if sib.TimeRange.StartMS < cover.StartMS {
			cover.StartMS = sib.TimeRange.StartMS
		}
		if sib.TimeRange.EndMS > cover.EndMS {
			cover.EndMS = sib.TimeRange.EndMS
		}
	}
	return h.gaps.DetectGaps(siblings, cover), nil
}

// HandleGetSuggestions serves GetSuggestionsQuery
func (h *QueryHandler) HandleGetSuggestions(ctx context.Context, q *GetSuggestionsQuery) ([]*entities.ConsistencySuggestion, error) {
	managed, err := h.registry.Get(q.ProjectID)
	if err != nil {
		return nil, err
	}
	return managed.Suggestions.All(), nil
}

// HandleGetHistoryStatus serves GetHistoryStatusQuery
func (h *QueryHandler) HandleGetHistoryStatus(ctx context.Context, q *GetHistoryStatusQuery) (*HistoryStatusView, error) {
	h.registry.LockProject(q.ProjectID)
	defer h.registry.UnlockProject(q.ProjectID)

	managed, err := h.registry.Get(q.ProjectID)
	if err != nil {
		return nil, err
	}
	return &HistoryStatusView{
		CanUndo: managed.History.CanUndo(),
		CanRedo: managed.History.CanRedo(),
	}, nil
}

// HandleGetEntities serves GetEntitiesQuery
func (h *QueryHandler) HandleGetEntities(ctx context.Context, q *GetEntitiesQuery) ([]*entities.Entity, error) {
	h.registry.LockProject(q.ProjectID)
	defer h.registry.UnlockProject(q.ProjectID)

	managed, err := h.registry.Get(q.ProjectID)
	if err != nil {
		return nil, err
	}
	return managed.Project.EntityList(), nil
}

// HandleListProjects serves ListProjectsQuery
func (h *QueryHandler) HandleListProjects(ctx context.Context, q *ListProjectsQuery) ([]ports.SnapshotInfo, error) {
	return h.registry.List(ctx)
}

// HandleGetGenerationStatus serves GetGenerationStatusQuery
func (h *QueryHandler) HandleGetGenerationStatus(ctx context.Context, q *GetGenerationStatusQuery) (*GenerationStatusView, error) {
	return &GenerationStatusView{
		Backend:    h.backend.Name(),
		Generating: h.orchestrator.GeneratingNodes(q.ProjectID),
	}, nil
}
