package commands

import (
	"context"

	"go.uber.org/zap"

	"fabula-backend/application/ports"
	"fabula-backend/application/services"
	"fabula-backend/domain/core/aggregates"
	pkgerrors "fabula-backend/pkg/errors"
)

// CreateProjectCommand starts a new screenplay project
type CreateProjectCommand struct {
	Name            string `json:"name" validate:"required,max=200"`
	TotalDurationMS int64  `json:"total_duration_ms" validate:"min=0"`

	Created *aggregates.Project `json:"-"`
}

func (c *CreateProjectCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

// Project returns ""; creation targets no existing project
func (c *CreateProjectCommand) Project() string { return "" }

// OpenProjectCommand loads a persisted project into memory
type OpenProjectCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`

	Opened *aggregates.Project `json:"-"`
}

func (c *OpenProjectCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *OpenProjectCommand) Project() string { return c.ProjectID }

// RenameProjectCommand changes a project's name
type RenameProjectCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	Name      string `json:"name" validate:"required,max=200"`

	Renamed *aggregates.Project `json:"-"`
}

func (c *RenameProjectCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *RenameProjectCommand) Project() string { return c.ProjectID }

// SaveProjectCommand persists a project snapshot immediately
type SaveProjectCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
}

func (c *SaveProjectCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *SaveProjectCommand) Project() string { return c.ProjectID }

// CloseProjectCommand unloads a project, flushing unsaved changes
type CloseProjectCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
}

func (c *CloseProjectCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *CloseProjectCommand) Project() string { return c.ProjectID }

// DeleteProjectCommand removes a project and its stored snapshot
type DeleteProjectCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
}

func (c *DeleteProjectCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *DeleteProjectCommand) Project() string { return c.ProjectID }

// ProjectCommandHandler executes project lifecycle commands
type ProjectCommandHandler struct {
	registry     *services.ProjectRegistry
	orchestrator *services.GenerationOrchestrator
	scenes       *services.SceneService
	publisher    ports.EventPublisher
	logger       *zap.Logger
}

// NewProjectCommandHandler creates the handler
func NewProjectCommandHandler(registry *services.ProjectRegistry, orchestrator *services.GenerationOrchestrator, scenes *services.SceneService, publisher ports.EventPublisher, logger *zap.Logger) *ProjectCommandHandler {
	return &ProjectCommandHandler{
		registry:     registry,
		orchestrator: orchestrator,
		scenes:       scenes,
		publisher:    publisher,
		logger:       logger,
	}
}

// HandleCreate executes CreateProjectCommand
func (h *ProjectCommandHandler) HandleCreate(ctx context.Context, cmd *CreateProjectCommand) error {
	project, err := h.registry.Create(ctx, cmd.Name, cmd.TotalDurationMS)
	if err != nil {
		return err
	}
	cmd.Created = project
	return nil
}

// HandleOpen executes OpenProjectCommand
func (h *ProjectCommandHandler) HandleOpen(ctx context.Context, cmd *OpenProjectCommand) error {
	project, err := h.registry.Open(ctx, cmd.ProjectID)
	if err != nil {
		return err
	}
	cmd.Opened = project
	return nil
}

// HandleRename executes RenameProjectCommand
func (h *ProjectCommandHandler) HandleRename(ctx context.Context, cmd *RenameProjectCommand) error {
	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	managed.Project.Name = cmd.Name
	managed.Project.Touch()
	managed.MarkDirty()
	cmd.Renamed = managed.Project
	return nil
}

// HandleSave executes SaveProjectCommand
func (h *ProjectCommandHandler) HandleSave(ctx context.Context, cmd *SaveProjectCommand) error {
	return h.registry.Save(ctx, cmd.ProjectID)
}

// HandleClose executes CloseProjectCommand. Live streams die with the
// session; the snapshot keeps only durable state.
func (h *ProjectCommandHandler) HandleClose(ctx context.Context, cmd *CloseProjectCommand) error {
	h.orchestrator.CancelProject(cmd.ProjectID)
	h.scenes.DropProject(cmd.ProjectID)
	return h.registry.Close(ctx, cmd.ProjectID)
}

// HandleDelete executes DeleteProjectCommand
func (h *ProjectCommandHandler) HandleDelete(ctx context.Context, cmd *DeleteProjectCommand) error {
	h.orchestrator.CancelProject(cmd.ProjectID)
	h.scenes.DropProject(cmd.ProjectID)
	return h.registry.Delete(ctx, cmd.ProjectID)
}
