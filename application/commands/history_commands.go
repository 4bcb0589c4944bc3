package commands

import (
	"context"

	"go.uber.org/zap"

	"fabula-backend/application/ports"
	"fabula-backend/application/services"
	"fabula-backend/domain/core/aggregates"
	"fabula-backend/domain/events"
	pkgerrors "fabula-backend/pkg/errors"
)

// UndoCommand restores the previous project snapshot
type UndoCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
}

func (c *UndoCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *UndoCommand) Project() string { return c.ProjectID }

// RedoCommand re-applies the next project snapshot
type RedoCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
}

func (c *RedoCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *RedoCommand) Project() string { return c.ProjectID }

// HistoryCommandHandler executes undo and redo. Restoring a snapshot
// cancels every live generation stream and clears pending suggestions;
// both reference state that no longer exists.
type HistoryCommandHandler struct {
	registry     *services.ProjectRegistry
	orchestrator *services.GenerationOrchestrator
	publisher    ports.EventPublisher
	logger       *zap.Logger
}

// NewHistoryCommandHandler creates the handler
func NewHistoryCommandHandler(registry *services.ProjectRegistry, orchestrator *services.GenerationOrchestrator, publisher ports.EventPublisher, logger *zap.Logger) *HistoryCommandHandler {
	return &HistoryCommandHandler{
		registry:     registry,
		orchestrator: orchestrator,
		publisher:    publisher,
		logger:       logger,
	}
}

// HandleUndo executes UndoCommand
func (h *HistoryCommandHandler) HandleUndo(ctx context.Context, cmd *UndoCommand) error {
	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	restored, err := managed.History.Undo(managed.Project)
	if err != nil {
		return err
	}
	return h.restore(cmd.ProjectID, managed, restored)
}

// HandleRedo executes RedoCommand
func (h *HistoryCommandHandler) HandleRedo(ctx context.Context, cmd *RedoCommand) error {
	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	restored, err := managed.History.Redo(managed.Project)
	if err != nil {
		return err
	}
	return h.restore(cmd.ProjectID, managed, restored)
}

func (h *HistoryCommandHandler) restore(projectID string, managed *services.ManagedProject, restored *aggregates.Project) error {
	h.orchestrator.CancelProject(projectID)
	managed.Suggestions.Clear()

	managed.Project = restored
	managed.Project.Touch()
	managed.MarkDirty()

	h.publisher.Publish(projectID, events.NewStructuralChanged(projectID))
	h.publisher.Publish(projectID, events.NewBibleChanged(projectID))
	h.publisher.Publish(projectID, events.NewUndoRedoChanged(projectID, managed.History.CanUndo(), managed.History.CanRedo()))
	return nil
}
