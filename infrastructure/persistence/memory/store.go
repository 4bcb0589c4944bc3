// Package memory provides an in-memory snapshot store for tests and for
// running the engine without persistence.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fabula-backend/application/ports"
	pkgerrors "fabula-backend/pkg/errors"
)

type record struct {
	name      string
	data      []byte
	updatedAt time.Time
}

// Store is a thread-safe in-memory ports.SnapshotStore
type Store struct {
	mu      sync.RWMutex
	records map[string]record
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{records: make(map[string]record)}
}

// Save implements ports.SnapshotStore
func (s *Store) Save(ctx context.Context, projectID, name string, data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)
	s.mu.Lock()
	s.records[projectID] = record{name: name, data: copied, updatedAt: time.Now()}
	s.mu.Unlock()
	return nil
}

// Load implements ports.SnapshotStore
func (s *Store) Load(ctx context.Context, projectID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[projectID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("project " + projectID)
	}
	copied := make([]byte, len(rec.data))
	copy(copied, rec.data)
	return copied, nil
}

// List implements ports.SnapshotStore
func (s *Store) List(ctx context.Context) ([]ports.SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.SnapshotInfo, 0, len(s.records))
	for id, rec := range s.records {
		out = append(out, ports.SnapshotInfo{
			ProjectID: id,
			Name:      rec.name,
			SizeBytes: int64(len(rec.data)),
			UpdatedAt: rec.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Delete implements ports.SnapshotStore
func (s *Store) Delete(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[projectID]; !ok {
		return pkgerrors.NewNotFoundError("project " + projectID)
	}
	delete(s.records, projectID)
	return nil
}
