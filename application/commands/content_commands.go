package commands

import (
	"context"

	"go.uber.org/zap"

	"fabula-backend/application/ports"
	"fabula-backend/application/services"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	"fabula-backend/domain/events"
	pkgerrors "fabula-backend/pkg/errors"
)

// WriteNotesCommand updates a node's authoring brief
type WriteNotesCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	NodeID    string `json:"node_id" validate:"required,uuid4"`
	Notes     string `json:"notes" validate:"max=20000"`

	Updated *entities.StoryNode `json:"-"`
}

func (c *WriteNotesCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *WriteNotesCommand) Project() string { return c.ProjectID }

// EditBodyCommand applies a user edit to a node's body text
type EditBodyCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	NodeID    string `json:"node_id" validate:"required,uuid4"`
	Body      string `json:"body" validate:"max=200000"`

	Updated *entities.StoryNode `json:"-"`
}

func (c *EditBodyCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *EditBodyCommand) Project() string { return c.ProjectID }

// ApplySuggestionCommand accepts a pending consistency suggestion
type ApplySuggestionCommand struct {
	ProjectID    string `json:"project_id" validate:"required,uuid4"`
	SuggestionID string `json:"suggestion_id" validate:"required,uuid4"`

	Updated *entities.StoryNode `json:"-"`
}

func (c *ApplySuggestionCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *ApplySuggestionCommand) Project() string { return c.ProjectID }

// DismissSuggestionCommand discards a pending consistency suggestion
type DismissSuggestionCommand struct {
	ProjectID    string `json:"project_id" validate:"required,uuid4"`
	SuggestionID string `json:"suggestion_id" validate:"required,uuid4"`
}

func (c *DismissSuggestionCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *DismissSuggestionCommand) Project() string { return c.ProjectID }

// ContentCommandHandler executes content commands. Body edits feed the
// consistency reconciler; notes edits do not.
type ContentCommandHandler struct {
	registry   *services.ProjectRegistry
	reconciler *services.ConsistencyReconciler
	publisher  ports.EventPublisher
	logger     *zap.Logger
}

// NewContentCommandHandler creates the handler
func NewContentCommandHandler(registry *services.ProjectRegistry, reconciler *services.ConsistencyReconciler, publisher ports.EventPublisher, logger *zap.Logger) *ContentCommandHandler {
	return &ContentCommandHandler{
		registry:   registry,
		reconciler: reconciler,
		publisher:  publisher,
		logger:     logger,
	}
}

// HandleWriteNotes executes WriteNotesCommand
func (h *ContentCommandHandler) HandleWriteNotes(ctx context.Context, cmd *WriteNotesCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	node, err := managed.Project.Timeline.Node(nodeID)
	if err != nil {
		return err
	}

	before := managed.Project.Clone()
	node.Content = node.Content.WriteNotes(cmd.Notes)
	managed.History.PushState(before)
	managed.Project.Touch()
	managed.MarkDirty()
	cmd.Updated = node
	h.publisher.Publish(cmd.ProjectID, events.NewContentUpdated(nodeID, node.Content.Status))
	h.publisher.Publish(cmd.ProjectID, events.NewUndoRedoChanged(cmd.ProjectID, managed.History.CanUndo(), managed.History.CanRedo()))
	return nil
}

// HandleEditBody executes EditBodyCommand and schedules a consistency pass
func (h *ContentCommandHandler) HandleEditBody(ctx context.Context, cmd *EditBodyCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	node, err := managed.Project.Timeline.Node(nodeID)
	if err != nil {
		return err
	}

	beforeText := node.Content.Body
	before := managed.Project.Clone()
	next, err := node.Content.EditBody(cmd.Body)
	if err != nil {
		return err
	}
	node.Content = next
	managed.History.PushState(before)
	managed.Project.Touch()
	managed.MarkDirty()
	cmd.Updated = node
	h.publisher.Publish(cmd.ProjectID, events.NewContentUpdated(nodeID, node.Content.Status))
	h.publisher.Publish(cmd.ProjectID, events.NewUndoRedoChanged(cmd.ProjectID, managed.History.CanUndo(), managed.History.CanRedo()))

	if beforeText != cmd.Body {
		h.reconciler.Trigger(cmd.ProjectID, nodeID, beforeText, cmd.Body)
	}
	return nil
}

// HandleApplySuggestion executes ApplySuggestionCommand. The suggestion's
// target gets the proposed text through the normal edit transition; a
// locked or vanished target rejects the apply and the suggestion stays.
func (h *ContentCommandHandler) HandleApplySuggestion(ctx context.Context, cmd *ApplySuggestionCommand) error {
	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	suggestion, err := managed.Suggestions.Get(cmd.SuggestionID)
	if err != nil {
		return err
	}
	node, err := managed.Project.Timeline.Node(suggestion.TargetNodeID)
	if err != nil {
		return err
	}
	if node.Locked {
		return pkgerrors.NewConflictError("suggestion target is locked")
	}

	before := managed.Project.Clone()
	next, err := node.Content.EditBody(suggestion.SuggestedText)
	if err != nil {
		return err
	}
	node.Content = next
	managed.Suggestions.Take(cmd.SuggestionID) //nolint:errcheck // present, just fetched
	managed.History.PushState(before)
	managed.Project.Touch()
	managed.MarkDirty()
	cmd.Updated = node
	h.publisher.Publish(cmd.ProjectID, events.NewContentUpdated(node.ID, node.Content.Status))
	h.publisher.Publish(cmd.ProjectID, events.NewUndoRedoChanged(cmd.ProjectID, managed.History.CanUndo(), managed.History.CanRedo()))
	return nil
}

// HandleDismissSuggestion executes DismissSuggestionCommand
func (h *ContentCommandHandler) HandleDismissSuggestion(ctx context.Context, cmd *DismissSuggestionCommand) error {
	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	_, err = managed.Suggestions.Take(cmd.SuggestionID)
	return err
}
