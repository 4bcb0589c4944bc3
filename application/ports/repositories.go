// Package ports defines the interfaces between the application layer and
// infrastructure. The application depends on these abstractions; adapters
// under infrastructure/ implement them.
package ports

import (
	"context"
	"time"

	"fabula-backend/domain/events"
)

// SnapshotInfo describes one persisted project without loading its body
type SnapshotInfo struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotStore persists opaque project snapshots. Implementations must be
// safe for concurrent use; the autosaver and explicit saves share them.
type SnapshotStore interface {
	// Save writes or replaces the snapshot for a project.
	Save(ctx context.Context, projectID, name string, data []byte) error

	// Load returns the stored snapshot bytes.
	Load(ctx context.Context, projectID string) ([]byte, error)

	// List enumerates stored projects, most recently updated first.
	List(ctx context.Context) ([]SnapshotInfo, error)

	// Delete removes a stored project.
	Delete(ctx context.Context, projectID string) error
}

// EventPublisher fans engine events out to connected clients. Publish must
// not block command execution; implementations buffer or drop.
type EventPublisher interface {
	Publish(projectID string, event events.DomainEvent)
}
