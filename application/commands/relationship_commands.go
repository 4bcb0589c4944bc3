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

// AddRelationshipCommand draws a typed edge between two nodes
type AddRelationshipCommand struct {
	ProjectID string   `json:"project_id" validate:"required,uuid4"`
	From      string   `json:"from" validate:"required,uuid4"`
	To        string   `json:"to" validate:"required,uuid4"`
	Type      string   `json:"type" validate:"required"`
	ArcIDs    []string `json:"arc_ids" validate:"dive,uuid4"`
	EntityID  string   `json:"entity_id" validate:"omitempty,uuid4"`
	Color     string   `json:"color" validate:"max=32"`

	Created *entities.Relationship `json:"-"`
}

func (c *AddRelationshipCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *AddRelationshipCommand) Project() string { return c.ProjectID }

// RemoveRelationshipCommand deletes a relationship
type RemoveRelationshipCommand struct {
	ProjectID      string `json:"project_id" validate:"required,uuid4"`
	RelationshipID string `json:"relationship_id" validate:"required,uuid4"`

	Removed *entities.Relationship `json:"-"`
}

func (c *RemoveRelationshipCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *RemoveRelationshipCommand) Project() string { return c.ProjectID }

// RelationshipCommandHandler executes relationship commands
type RelationshipCommandHandler struct {
	registry  *services.ProjectRegistry
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewRelationshipCommandHandler creates the handler
func NewRelationshipCommandHandler(registry *services.ProjectRegistry, publisher ports.EventPublisher, logger *zap.Logger) *RelationshipCommandHandler {
	return &RelationshipCommandHandler{registry: registry, publisher: publisher, logger: logger}
}

// HandleAdd executes AddRelationshipCommand
func (h *RelationshipCommandHandler) HandleAdd(ctx context.Context, cmd *AddRelationshipCommand) error {
	from, err := valueobjects.NewNodeIDFromString(cmd.From)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	to, err := valueobjects.NewNodeIDFromString(cmd.To)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	relType, err := entities.ParseRelationshipType(cmd.Type)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	var arcIDs []valueobjects.EntityID
	for _, raw := range cmd.ArcIDs {
		arcID, err := valueobjects.NewEntityIDFromString(raw)
		if err != nil {
			return pkgerrors.NewValidationError(err.Error())
		}
		arcIDs = append(arcIDs, arcID)
	}
	var entityID valueobjects.EntityID
	if cmd.EntityID != "" {
		entityID, err = valueobjects.NewEntityIDFromString(cmd.EntityID)
		if err != nil {
			return pkgerrors.NewValidationError(err.Error())
		}
	}

	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	before := managed.Project.Clone()
	rel, err := managed.Project.Timeline.AddRelationship(from, to, relType, arcIDs, entityID, cmd.Color)
	if err != nil {
		return err
	}
	managed.History.PushState(before)
	managed.Project.Touch()
	managed.MarkDirty()
	cmd.Created = rel
	h.publisher.Publish(cmd.ProjectID, events.NewStructuralChanged(cmd.ProjectID))
	h.publisher.Publish(cmd.ProjectID, events.NewUndoRedoChanged(cmd.ProjectID, managed.History.CanUndo(), managed.History.CanRedo()))
	return nil
}

// HandleRemove executes RemoveRelationshipCommand
func (h *RelationshipCommandHandler) HandleRemove(ctx context.Context, cmd *RemoveRelationshipCommand) error {
	relID, err := valueobjects.NewRelationshipIDFromString(cmd.RelationshipID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	managed, err := h.registry.Get(cmd.ProjectID)
	if err != nil {
		return err
	}
	before := managed.Project.Clone()
	rel, err := managed.Project.Timeline.RemoveRelationship(relID)
	if err != nil {
		return err
	}
	managed.History.PushState(before)
	managed.Project.Touch()
	managed.MarkDirty()
	cmd.Removed = rel
	h.publisher.Publish(cmd.ProjectID, events.NewStructuralChanged(cmd.ProjectID))
	h.publisher.Publish(cmd.ProjectID, events.NewUndoRedoChanged(cmd.ProjectID, managed.History.CanUndo(), managed.History.CanRedo()))
	return nil
}
