// Package commands defines the write operations of the engine and their
// handlers. Every command names its target project; the bus serializes
// commands per project and validates them before dispatch.
package commands

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"fabula-backend/application/ports"
	"fabula-backend/application/services"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	"fabula-backend/domain/events"
	pkgerrors "fabula-backend/pkg/errors"
)

var validate = validator.New()

// CreateNodeCommand creates a node on the timeline
type CreateNodeCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	ParentID  string `json:"parent_id" validate:"omitempty,uuid4"`
	Level     string `json:"level" validate:"required"`
	StartMS   int64  `json:"start_ms" validate:"min=0"`
	EndMS     int64  `json:"end_ms" validate:"required,gtfield=StartMS"`
	Name      string `json:"name" validate:"required,max=200"`
	BeatType  string `json:"beat_type"`

	// Created is set by the handler.
	Created *entities.StoryNode `json:"-"`
}

func (c *CreateNodeCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *CreateNodeCommand) Project() string { return c.ProjectID }

// MoveNodeCommand shifts a node to a new range
type MoveNodeCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	NodeID    string `json:"node_id" validate:"required,uuid4"`
	StartMS   int64  `json:"start_ms" validate:"min=0"`
	EndMS     int64  `json:"end_ms" validate:"required,gtfield=StartMS"`

	Moved *entities.StoryNode `json:"-"`
}

func (c *MoveNodeCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *MoveNodeCommand) Project() string { return c.ProjectID }

// ResizeNodeCommand adjusts one edge of a node's range
type ResizeNodeCommand struct {
	ProjectID  string `json:"project_id" validate:"required,uuid4"`
	NodeID     string `json:"node_id" validate:"required,uuid4"`
	Edge       string `json:"edge" validate:"required,oneof=start end"`
	BoundaryMS int64  `json:"boundary_ms" validate:"min=0"`

	Resized *entities.StoryNode `json:"-"`
}

func (c *ResizeNodeCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *ResizeNodeCommand) Project() string { return c.ProjectID }

// SplitNodeCommand divides a node at a point in time
type SplitNodeCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	NodeID    string `json:"node_id" validate:"required,uuid4"`
	AtMS      int64  `json:"at_ms" validate:"min=0"`

	Left  *entities.StoryNode `json:"-"`
	Right *entities.StoryNode `json:"-"`
}

func (c *SplitNodeCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *SplitNodeCommand) Project() string { return c.ProjectID }

// DeleteNodeCommand removes a node and its subtree
type DeleteNodeCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	NodeID    string `json:"node_id" validate:"required,uuid4"`

	RemovedIDs []valueobjects.NodeID `json:"-"`
}

func (c *DeleteNodeCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *DeleteNodeCommand) Project() string { return c.ProjectID }

// UpdateNodeCommand renames a node and/or changes its beat type
type UpdateNodeCommand struct {
	ProjectID string  `json:"project_id" validate:"required,uuid4"`
	NodeID    string  `json:"node_id" validate:"required,uuid4"`
	Name      *string `json:"name" validate:"omitempty,min=1,max=200"`
	BeatType  *string `json:"beat_type"`

	Updated *entities.StoryNode `json:"-"`
}

func (c *UpdateNodeCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	if c.Name == nil && c.BeatType == nil {
		return pkgerrors.NewValidationError("nothing to update")
	}
	return nil
}

func (c *UpdateNodeCommand) Project() string { return c.ProjectID }

// SetNodeLockedCommand toggles a node's lock
type SetNodeLockedCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	NodeID    string `json:"node_id" validate:"required,uuid4"`
	Locked    bool   `json:"locked"`

	Updated *entities.StoryNode `json:"-"`
}

func (c *SetNodeLockedCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *SetNodeLockedCommand) Project() string { return c.ProjectID }

// NodeCommandHandler executes structural node commands. The bus holds the
// project lock while a handler runs.
type NodeCommandHandler struct {
	registry     *services.ProjectRegistry
	orchestrator *services.GenerationOrchestrator
	publisher    ports.EventPublisher
	logger       *zap.Logger
}

// NewNodeCommandHandler creates the handler
func NewNodeCommandHandler(registry *services.ProjectRegistry, orchestrator *services.GenerationOrchestrator, publisher ports.EventPublisher, logger *zap.Logger) *NodeCommandHandler {
	return &NodeCommandHandler{
		registry:     registry,
		orchestrator: orchestrator,
		publisher:    publisher,
		logger:       logger,
	}
}

// structural wraps the common choreography of a structural mutation:
// snapshot for undo, run the mutation, then announce the change.
func (h *NodeCommandHandler) structural(projectID string, mutate func(managed *services.ManagedProject) error) error {
	managed, err := h.registry.Get(projectID)
	if err != nil {
		return err
	}
	before := managed.Project.Clone()
	if err := mutate(managed); err != nil {
		// Rejected commands change nothing, so the snapshot is dropped.
		return err
	}
	managed.History.PushState(before)
	managed.Project.Touch()
	managed.MarkDirty()
	h.publisher.Publish(projectID, events.NewStructuralChanged(projectID))
	h.publisher.Publish(projectID, events.NewUndoRedoChanged(projectID, managed.History.CanUndo(), managed.History.CanRedo()))
	return nil
}

// HandleCreate executes CreateNodeCommand
func (h *NodeCommandHandler) HandleCreate(ctx context.Context, cmd *CreateNodeCommand) error {
	level, err := valueobjects.ParseStoryLevel(cmd.Level)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	rng, err := valueobjects.NewTimeRange(cmd.StartMS, cmd.EndMS)
	if err != nil {
		return err
	}
	var parentID valueobjects.NodeID
	if cmd.ParentID != "" {
		parentID, err = valueobjects.NewNodeIDFromString(cmd.ParentID)
		if err != nil {
			return pkgerrors.NewValidationError(err.Error())
		}
	}
	return h.structural(cmd.ProjectID, func(managed *services.ManagedProject) error {
		node, err := managed.Project.Timeline.CreateNode(parentID, level, rng, cmd.Name)
		if err != nil {
			return err
		}
		if cmd.BeatType != "" {
			node.BeatType = valueobjects.ParseBeatType(cmd.BeatType)
		}
		cmd.Created = node
		return nil
	})
}

// HandleMove executes MoveNodeCommand
func (h *NodeCommandHandler) HandleMove(ctx context.Context, cmd *MoveNodeCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	rng, err := valueobjects.NewTimeRange(cmd.StartMS, cmd.EndMS)
	if err != nil {
		return err
	}
	return h.structural(cmd.ProjectID, func(managed *services.ManagedProject) error {
		node, err := managed.Project.Timeline.MoveNode(nodeID, rng)
		if err != nil {
			return err
		}
		cmd.Moved = node
		return nil
	})
}

// HandleResize executes ResizeNodeCommand
func (h *NodeCommandHandler) HandleResize(ctx context.Context, cmd *ResizeNodeCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.structural(cmd.ProjectID, func(managed *services.ManagedProject) error {
		node, err := managed.Project.Timeline.ResizeNode(nodeID, cmd.Edge, cmd.BoundaryMS)
		if err != nil {
			return err
		}
		cmd.Resized = node
		return nil
	})
}

// HandleSplit executes SplitNodeCommand
func (h *NodeCommandHandler) HandleSplit(ctx context.Context, cmd *SplitNodeCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.structural(cmd.ProjectID, func(managed *services.ManagedProject) error {
		left, right, err := managed.Project.Timeline.SplitNode(nodeID, cmd.AtMS)
		if err != nil {
			return err
		}
		cmd.Left, cmd.Right = left, right
		return nil
	})
}

// HandleDelete executes DeleteNodeCommand. Live generation streams for
// removed nodes are cancelled and their pending suggestions dropped.
func (h *NodeCommandHandler) HandleDelete(ctx context.Context, cmd *DeleteNodeCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.structural(cmd.ProjectID, func(managed *services.ManagedProject) error {
		removed, err := managed.Project.DeleteNode(nodeID)
		if err != nil {
			return err
		}
		for _, id := range removed {
			h.orchestrator.Cancel(cmd.ProjectID, id) //nolint:errcheck // no stream is fine
			managed.Suggestions.DropForNode(id)
		}
		cmd.RemovedIDs = removed
		return nil
	})
}

// HandleUpdate executes UpdateNodeCommand
func (h *NodeCommandHandler) HandleUpdate(ctx context.Context, cmd *UpdateNodeCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	var beatType *valueobjects.BeatType
	if cmd.BeatType != nil {
		parsed := valueobjects.ParseBeatType(*cmd.BeatType)
		beatType = &parsed
	}
	return h.structural(cmd.ProjectID, func(managed *services.ManagedProject) error {
		node, err := managed.Project.Timeline.UpdateNodeMeta(nodeID, cmd.Name, beatType)
		if err != nil {
			return err
		}
		cmd.Updated = node
		return nil
	})
}

// HandleSetLocked executes SetNodeLockedCommand
func (h *NodeCommandHandler) HandleSetLocked(ctx context.Context, cmd *SetNodeLockedCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	node, err := managed.Project.Timeline.SetLocked(nodeID, cmd.Locked)
	if err != nil {
		return err
	}
	managed.Project.Touch()
	managed.MarkDirty()
	cmd.Updated = node
	h.publisher.Publish(cmd.ProjectID, events.NewNodeUpdated(nodeID))
	return nil
}
