package aggregates

import (
	"encoding/json"
	"fmt"
	"time"

	"fabula-backend/domain/config"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"
)

// projectSnapshot is the persisted form of a project. Snapshot stores treat
// it as opaque bytes; the format is versioned so later migrations can read
// older saves.
type projectSnapshot struct {
	FormatVersion   int                      `json:"format_version"`
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	TotalDurationMS int64                    `json:"total_duration_ms"`
	Nodes           []*entities.StoryNode    `json:"nodes"`
	Relationships   []*entities.Relationship `json:"relationships"`
	Entities        []*entities.Entity       `json:"entities"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	Version         int                      `json:"version"`
}

const snapshotFormatVersion = 1

// MarshalSnapshot serializes the project for a snapshot store
func (p *Project) MarshalSnapshot() ([]byte, error) {
	snap := projectSnapshot{
		FormatVersion:   snapshotFormatVersion,
		ID:              p.ID,
		Name:            p.Name,
		TotalDurationMS: p.Timeline.TotalDurationMS(),
		Nodes:           p.Timeline.Nodes(),
		Relationships:   p.Timeline.Relationships(),
		Entities:        p.EntityList(),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Version:         p.Version,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, pkgerrors.NewStorageError("encode snapshot", err)
	}
	return data, nil
}

// UnmarshalSnapshot rebuilds a project from stored bytes. The child index
// is re-derived rather than persisted.
func UnmarshalSnapshot(data []byte, cfg config.DomainConfig) (*Project, error) {
	var snap projectSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, pkgerrors.NewStorageError("decode snapshot", err)
	}
	if snap.FormatVersion != snapshotFormatVersion {
		return nil, pkgerrors.NewStorageError("decode snapshot", fmt.Errorf("unsupported format version %d", snap.FormatVersion))
	}

	timeline, err := NewTimeline(snap.TotalDurationMS, cfg)
	if err != nil {
		return nil, err
	}
	parents := make(map[valueobjects.NodeID]struct{})
	for _, node := range snap.Nodes {
		timeline.nodes[node.ID] = node
		parents[node.ParentID] = struct{}{}
	}
	for parentID := range parents {
		timeline.reindex(parentID)
	}
	for _, rel := range snap.Relationships {
		timeline.relationships[rel.ID] = rel
	}

	project := &Project{
		ID:        snap.ID,
		Name:      snap.Name,
		Timeline:  timeline,
		Entities:  make(map[valueobjects.EntityID]*entities.Entity, len(snap.Entities)),
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
		Version:   snap.Version,
	}
	for _, entity := range snap.Entities {
		project.Entities[entity.ID] = entity
	}
	return project, nil
}
