package commands

import (
	"context"

	"go.uber.org/zap"

	"fabula-backend/application/services"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"
)

// GenerateNodeCommand starts a streaming draft for one node
type GenerateNodeCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	NodeID    string `json:"node_id" validate:"required,uuid4"`
}

func (c *GenerateNodeCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *GenerateNodeCommand) Project() string { return c.ProjectID }

// CancelGenerationCommand stops a live stream
type CancelGenerationCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	NodeID    string `json:"node_id" validate:"required,uuid4"`
}

func (c *CancelGenerationCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *CancelGenerationCommand) Project() string { return c.ProjectID }

// GenerateChildrenCommand drafts a parent's eligible children sequentially
type GenerateChildrenCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	ParentID  string `json:"parent_id" validate:"required,uuid4"`

	// Queued is the number of children the batch will draft.
	Queued int `json:"-"`
}

func (c *GenerateChildrenCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *GenerateChildrenCommand) Project() string { return c.ProjectID }

// FillGapCommand creates a bridge node over a gap and drafts it
type FillGapCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	ParentID  string `json:"parent_id" validate:"omitempty,uuid4"`
	Level     string `json:"level" validate:"required"`
	StartMS   int64  `json:"start_ms" validate:"min=0"`
	EndMS     int64  `json:"end_ms" validate:"required,gtfield=StartMS"`

	Created *entities.StoryNode `json:"-"`
}

func (c *FillGapCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *FillGapCommand) Project() string { return c.ProjectID }

// GenerationCommandHandler delegates drafting commands to the orchestrator
type GenerationCommandHandler struct {
	orchestrator *services.GenerationOrchestrator
	logger       *zap.Logger
}

// NewGenerationCommandHandler creates the handler
func NewGenerationCommandHandler(orchestrator *services.GenerationOrchestrator, logger *zap.Logger) *GenerationCommandHandler {
	return &GenerationCommandHandler{orchestrator: orchestrator, logger: logger}
}

// HandleGenerate executes GenerateNodeCommand
func (h *GenerationCommandHandler) HandleGenerate(ctx context.Context, cmd *GenerateNodeCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.orchestrator.Start(cmd.ProjectID, nodeID)
}

// HandleCancel executes CancelGenerationCommand
func (h *GenerationCommandHandler) HandleCancel(ctx context.Context, cmd *CancelGenerationCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.orchestrator.Cancel(cmd.ProjectID, nodeID)
}

// HandleGenerateChildren executes GenerateChildrenCommand
func (h *GenerationCommandHandler) HandleGenerateChildren(ctx context.Context, cmd *GenerateChildrenCommand) error {
	parentID, err := valueobjects.NewNodeIDFromString(cmd.ParentID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	queued, err := h.orchestrator.GenerateChildren(cmd.ProjectID, parentID)
	if err != nil {
		return err
	}
	cmd.Queued = queued
	return nil
}

// HandleFillGap executes FillGapCommand
func (h *GenerationCommandHandler) HandleFillGap(ctx context.Context, cmd *FillGapCommand) error {
	level, err := valueobjects.ParseStoryLevel(cmd.Level)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	var parentID valueobjects.NodeID
	if cmd.ParentID != "" {
		parentID, err = valueobjects.NewNodeIDFromString(cmd.ParentID)
		if err != nil {
			return pkgerrors.NewValidationError(err.Error())
		}
	}
	gap, err := valueobjects.NewTimeRange(cmd.StartMS, cmd.EndMS)
	if err != nil {
		return err
	}
	node, err := h.orchestrator.FillGap(cmd.ProjectID, parentID, level, gap)
	if err != nil {
		return err
	}
	cmd.Created = node
	return nil
}
