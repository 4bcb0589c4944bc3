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

// CreateEntityCommand adds a story-bible entity
type CreateEntityCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	Name      string `json:"name" validate:"required,max=200"`
	Category  string `json:"category" validate:"required,oneof=character location prop theme event"`
	Color     string `json:"color" validate:"max=32"`

	Created *entities.Entity `json:"-"`
}

func (c *CreateEntityCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *CreateEntityCommand) Project() string { return c.ProjectID }

// UpdateEntityCommand edits an entity's name, color, or profile fields
type UpdateEntityCommand struct {
	ProjectID string            `json:"project_id" validate:"required,uuid4"`
	EntityID  string            `json:"entity_id" validate:"required,uuid4"`
	Name      *string           `json:"name" validate:"omitempty,min=1,max=200"`
	Color     *string           `json:"color" validate:"omitempty,max=32"`
	Profile   map[string]string `json:"profile"`

	Updated *entities.Entity `json:"-"`
}

func (c *UpdateEntityCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *UpdateEntityCommand) Project() string { return c.ProjectID }

// DeleteEntityCommand removes an entity and scrubs it from relationships
type DeleteEntityCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	EntityID  string `json:"entity_id" validate:"required,uuid4"`
}

func (c *DeleteEntityCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *DeleteEntityCommand) Project() string { return c.ProjectID }

// AddEntitySnapshotCommand records a development point for an entity
type AddEntitySnapshotCommand struct {
	ProjectID   string `json:"project_id" validate:"required,uuid4"`
	EntityID    string `json:"entity_id" validate:"required,uuid4"`
	TimeMS      int64  `json:"time_ms" validate:"min=0"`
	Description string `json:"description" validate:"required,max=2000"`

	Updated *entities.Entity `json:"-"`
}

func (c *AddEntitySnapshotCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *AddEntitySnapshotCommand) Project() string { return c.ProjectID }

// LinkEntityCommand connects or disconnects an entity and a node
type LinkEntityCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	EntityID  string `json:"entity_id" validate:"required,uuid4"`
	NodeID    string `json:"node_id" validate:"required,uuid4"`
	Unlink    bool   `json:"unlink"`

	Updated *entities.Entity `json:"-"`
}

func (c *LinkEntityCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func (c *LinkEntityCommand) Project() string { return c.ProjectID }

// EntityCommandHandler executes story-bible commands
type EntityCommandHandler struct {
	registry  *services.ProjectRegistry
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewEntityCommandHandler creates the handler
func NewEntityCommandHandler(registry *services.ProjectRegistry, publisher ports.EventPublisher, logger *zap.Logger) *EntityCommandHandler {
	return &EntityCommandHandler{registry: registry, publisher: publisher, logger: logger}
}

// bible wraps the common choreography of a story-bible mutation
func (h *EntityCommandHandler) bible(projectID string, mutate func(managed *services.ManagedProject) error) error {
	managed, err := h.registry.Get(projectID)
	if err != nil {
		return err
	}
	before := managed.Project.Clone()
	if err := mutate(managed); err != nil {
		return err
	}
	managed.History.PushState(before)
	managed.Project.Touch()
	managed.MarkDirty()
	h.publisher.Publish(projectID, events.NewBibleChanged(projectID))
	h.publisher.Publish(projectID, events.NewUndoRedoChanged(projectID, managed.History.CanUndo(), managed.History.CanRedo()))
	return nil
}

// HandleCreate executes CreateEntityCommand
func (h *EntityCommandHandler) HandleCreate(ctx context.Context, cmd *CreateEntityCommand) error {
	return h.bible(cmd.ProjectID, func(managed *services.ManagedProject) error {
		entity, err := managed.Project.AddEntity(cmd.Name, entities.EntityCategory(cmd.Category), cmd.Color)
		if err != nil {
			return err
		}
		cmd.Created = entity
		return nil
	})
}

// HandleUpdate executes UpdateEntityCommand. Profile fields merge; an
// empty value removes the field.
func (h *EntityCommandHandler) HandleUpdate(ctx context.Context, cmd *UpdateEntityCommand) error {
	entityID, err := valueobjects.NewEntityIDFromString(cmd.EntityID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.bible(cmd.ProjectID, func(managed *services.ManagedProject) error {
		entity, err := managed.Project.Entity(entityID)
		if err != nil {
			return err
		}
		if cmd.Name != nil {
			entity.Name = *cmd.Name
		}
		if cmd.Color != nil {
			entity.Color = *cmd.Color
		}
		for field, value := range cmd.Profile {
			if value == "" {
				delete(entity.Profile, field)
				continue
			}
			entity.Profile[field] = value
		}
		cmd.Updated = entity
		return nil
	})
}

// HandleDelete executes DeleteEntityCommand
func (h *EntityCommandHandler) HandleDelete(ctx context.Context, cmd *DeleteEntityCommand) error {
	entityID, err := valueobjects.NewEntityIDFromString(cmd.EntityID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.bible(cmd.ProjectID, func(managed *services.ManagedProject) error {
		return managed.Project.RemoveEntity(entityID)
	})
}

// HandleAddSnapshot executes AddEntitySnapshotCommand
func (h *EntityCommandHandler) HandleAddSnapshot(ctx context.Context, cmd *AddEntitySnapshotCommand) error {
	entityID, err := valueobjects.NewEntityIDFromString(cmd.EntityID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.bible(cmd.ProjectID, func(managed *services.ManagedProject) error {
		entity, err := managed.Project.Entity(entityID)
		if err != nil {
			return err
		}
		entity.AddSnapshot(cmd.TimeMS, cmd.Description)
		cmd.Updated = entity
		return nil
	})
}

// HandleLink executes LinkEntityCommand
func (h *EntityCommandHandler) HandleLink(ctx context.Context, cmd *LinkEntityCommand) error {
	entityID, err := valueobjects.NewEntityIDFromString(cmd.EntityID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.bible(cmd.ProjectID, func(managed *services.ManagedProject) error {
		entity, err := managed.Project.Entity(entityID)
		if err != nil {
			return err
		}
		if !managed.Project.Timeline.HasNode(nodeID) {
			return pkgerrors.NewNotFoundError("node " + cmd.NodeID)
		}
		if cmd.Unlink {
			entity.RemoveNodeRef(nodeID)
		} else {
			entity.AddNodeRef(nodeID)
		}
		cmd.Updated = entity
		return nil
	})
}
