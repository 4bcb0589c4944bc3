package aggregates

import (
	"fmt"
	"sort"
	"time"

	"fabula-backend/domain/config"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"
)

// Project is the aggregate root for one screenplay: a timeline of nodes
// and relationships plus the story bible of entities. Deleting nodes keeps
// entity node references consistent.
type Project struct {
	ID        string
	Name      string
	Timeline  *Timeline
	Entities  map[valueobjects.EntityID]*entities.Entity
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// NewProject creates an empty project with the configured default duration
func NewProject(id, name string, totalDurationMS int64, cfg config.DomainConfig) (*Project, error) {
	if name == "" {
		return nil, pkgerrors.NewValidationError("project name cannot be empty")
	}
	if totalDurationMS <= 0 {
		totalDurationMS = cfg.DefaultTotalDurationMS
	}
	timeline, err := NewTimeline(totalDurationMS, cfg)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Project{
		ID:        id,
		Name:      name,
		Timeline:  timeline,
		Entities:  make(map[valueobjects.EntityID]*entities.Entity),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   0,
	}, nil
}

// Touch bumps the version and update timestamp after a mutation
func (p *Project) Touch() {
	p.Version++
	p.UpdatedAt = time.Now()
}

// DeleteNode removes a subtree from the timeline and scrubs the removed
// node IDs from every entity's references.
func (p *Project) DeleteNode(id valueobjects.NodeID) ([]valueobjects.NodeID, error) {
	removed, err := p.Timeline.DeleteNode(id)
	if err != nil {
		return nil, err
	}
	for _, entity := range p.Entities {
		for _, nodeID := range removed {
			entity.RemoveNodeRef(nodeID)
		}
	}
	return removed, nil
}

// Entity returns a story-bible entity by ID
func (p *Project) Entity(id valueobjects.EntityID) (*entities.Entity, error) {
	entity, ok := p.Entities[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("entity %s", id))
	}
	return entity, nil
}

// AddEntity creates a story-bible entity
func (p *Project) AddEntity(name string, category entities.EntityCategory, color string) (*entities.Entity, error) {
	entity, err := entities.NewEntity(name, category, color)
	if err != nil {
		return nil, err
	}
	p.Entities[entity.ID] = entity
	return entity, nil
}

// RemoveEntity deletes an entity and every relationship that carries it
func (p *Project) RemoveEntity(id valueobjects.EntityID) error {
	if _, ok := p.Entities[id]; !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("entity %s", id))
	}
	delete(p.Entities, id)
	for _, rel := range p.Timeline.Relationships() {
		if rel.EntityID.Equals(id) {
			p.Timeline.RemoveRelationship(rel.ID) //nolint:errcheck // listed, so present
			continue
		}
		rel.RemoveArcID(id)
	}
	return nil
}

// EntityList returns entities ordered by name for stable listings
func (p *Project) EntityList() []*entities.Entity {
	out := make([]*entities.Entity, 0, len(p.Entities))
	for _, e := range p.Entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// EntitiesForNode returns the entities that reference a node
func (p *Project) EntitiesForNode(id valueobjects.NodeID) []*entities.Entity {
	var out []*entities.Entity
	for _, e := range p.Entities {
		for _, ref := range e.NodeRefs {
			if ref.Equals(id) {
				out = append(out, e)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Clone deep-copies the project for history snapshots
func (p *Project) Clone() *Project {
	clone := &Project{
		ID:        p.ID,
		Name:      p.Name,
		Timeline:  p.Timeline.Clone(),
		Entities:  make(map[valueobjects.EntityID]*entities.Entity, len(p.Entities)),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Version:   p.Version,
	}
	for id, e := range p.Entities {
		clone.Entities[id] = e.Clone()
	}
	return clone
}
