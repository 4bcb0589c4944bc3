package entities

import (
	"fmt"
	"strings"

	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"
)

// EntityCategory classifies a story-bible entity.
type EntityCategory string

const (
	CategoryCharacter EntityCategory = "character"
	CategoryLocation  EntityCategory = "location"
	CategoryProp      EntityCategory = "prop"
	CategoryTheme     EntityCategory = "theme"
	CategoryEvent     EntityCategory = "event"
)

// IsValid reports whether the category is a member of the closed set
func (c EntityCategory) IsValid() bool {
	switch c {
	case CategoryCharacter, CategoryLocation, CategoryProp, CategoryTheme, CategoryEvent:
		return true
	}
	return false
}

// EntitySnapshot is a time-stamped development point on the timeline:
// what the entity is like at that moment of the story.
type EntitySnapshot struct {
	TimeMS      int64  `json:"time_ms"`
	Description string `json:"description"`
}

// Entity is a persistent story element (character, location, prop, theme,
// event). Entities are referenced by nodes, never owned by them.
type Entity struct {
	ID       valueobjects.EntityID `json:"id"`
	Name     string                `json:"name"`
	Category EntityCategory        `json:"category"`
	// Profile holds free-text descriptive fields keyed by field name.
	Profile   map[string]string     `json:"profile,omitempty"`
	Color     string                `json:"color,omitempty"`
	Snapshots []EntitySnapshot      `json:"snapshots,omitempty"`
	// NodeRefs are back-references to nodes that mention this entity.
	NodeRefs []valueobjects.NodeID `json:"node_refs,omitempty"`
}

// NewEntity creates a story-bible entity
func NewEntity(name string, category EntityCategory, color string) (*Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("entity name cannot be empty")
	}
	if !category.IsValid() {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown entity category %q", category))
	}
	return &Entity{
		ID:       valueobjects.NewEntityID(),
		Name:     name,
		Category: category,
		Color:    color,
		Profile:  make(map[string]string),
	}, nil
}

// AddNodeRef records that a node mentions this entity (idempotent)
func (e *Entity) AddNodeRef(id valueobjects.NodeID) {
	for _, ref := range e.NodeRefs {
		if ref.Equals(id) {
			return
		}
	}
	e.NodeRefs = append(e.NodeRefs, id)
}

// RemoveNodeRef drops a back-reference when a node is deleted
func (e *Entity) RemoveNodeRef(id valueobjects.NodeID) {
	kept := e.NodeRefs[:0]
	for _, ref := range e.NodeRefs {
		if !ref.Equals(id) {
			kept = append(kept, ref)
		}
	}
	e.NodeRefs = kept
}

// AddSnapshot appends a development point, keeping snapshots ordered by time
func (e *Entity) AddSnapshot(timeMS int64, description string) {
	snap := EntitySnapshot{TimeMS: timeMS, Description: description}
	idx := len(e.Snapshots)
	for i, s := range e.Snapshots {
		if s.TimeMS > timeMS {
			idx = i
			break
		}
	}
	e.Snapshots = append(e.Snapshots, EntitySnapshot{})
	copy(e.Snapshots[idx+1:], e.Snapshots[idx:])
	e.Snapshots[idx] = snap
}

// Clone returns a deep copy of the entity
func (e *Entity) Clone() *Entity {
	dup := *e
	dup.Profile = make(map[string]string, len(e.Profile))
	for k, v := range e.Profile {
		dup.Profile[k] = v
	}
	dup.Snapshots = append([]EntitySnapshot(nil), e.Snapshots...)
	dup.NodeRefs = append([]valueobjects.NodeID(nil), e.NodeRefs...)
	return &dup
}
