package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fabula-backend/application/ports"
	"fabula-backend/domain/config"
	"fabula-backend/domain/core/aggregates"
	pkgerrors "fabula-backend/pkg/errors"
)

// ManagedProject is a project held in memory together with its session
// state: undo history, pending consistency suggestions, and the dirty
// flag the autosaver watches. Session state is deliberately outside the
// aggregate so snapshots and persistence never capture it.
type ManagedProject struct {
	Project     *aggregates.Project
	History     *History
	Suggestions *SuggestionQueue
	dirty       bool
}

// MarkDirty flags the project for the next autosave pass
func (m *ManagedProject) MarkDirty() { m.dirty = true }

// ProjectRegistry owns every open project. All mutation goes through the
// per-project lock taken by the command bus, so handlers can treat the
// managed project as single-threaded.
type ProjectRegistry struct {
	mu       sync.RWMutex
	projects map[string]*ManagedProject
	locks    map[string]*sync.Mutex

	store  ports.SnapshotStore
	cfg    config.DomainConfig
	logger *zap.Logger
}

// NewProjectRegistry creates a registry backed by the given snapshot store
func NewProjectRegistry(store ports.SnapshotStore, cfg config.DomainConfig, logger *zap.Logger) *ProjectRegistry {
	return &ProjectRegistry{
		projects: make(map[string]*ManagedProject),
		locks:    make(map[string]*sync.Mutex),
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// LockProject implements bus.ProjectLocker
func (r *ProjectRegistry) LockProject(projectID string) {
	r.mu.Lock()
	lock, ok := r.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[projectID] = lock
	}
	r.mu.Unlock()
	lock.Lock()
}

// UnlockProject implements bus.ProjectLocker
func (r *ProjectRegistry) UnlockProject(projectID string) {
	r.mu.RLock()
	lock, ok := r.locks[projectID]
	r.mu.RUnlock()
	if ok {
		lock.Unlock()
	}
}

// Create makes a new empty project, registers it, and persists the first
// snapshot.
func (r *ProjectRegistry) Create(ctx context.Context, name string, totalDurationMS int64) (*aggregates.Project, error) {
	project, err := aggregates.NewProject(uuid.New().String(), name, totalDurationMS, r.cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.projects[project.ID] = &ManagedProject{
		Project:     project,
		History:     NewHistory(r.cfg.UndoStackDepth),
		Suggestions: NewSuggestionQueue(),
	}
	r.mu.Unlock()

	if err := r.persist(ctx, project); err != nil {
		return nil, err
	}
	r.logger.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("name", name),
	)
	return project, nil
}

// Open returns an already-loaded project or loads it from the snapshot
// store. Opening resets history: undo never crosses a load boundary.
func (r *ProjectRegistry) Open(ctx context.Context, projectID string) (*aggregates.Project, error) {
	r.mu.RLock()
	managed, ok := r.projects[projectID]
	r.mu.RUnlock()
	if ok {
		return managed.Project, nil
	}

	data, err := r.store.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	project, err := aggregates.UnmarshalSnapshot(data, r.cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.projects[projectID]; ok {
		return existing.Project, nil
	}
	r.projects[projectID] = &ManagedProject{
		Project:     project,
		History:     NewHistory(r.cfg.UndoStackDepth),
		Suggestions: NewSuggestionQueue(),
	}
	r.logger.Info("project opened", zap.String("project_id", projectID))
	return project, nil
}

// Get returns a managed project that is already in memory
func (r *ProjectRegistry) Get(projectID string) (*ManagedProject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	managed, ok := r.projects[projectID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("project %s", projectID))
	}
	return managed, nil
}

// Replace swaps the live project state, used by undo/redo restore
func (r *ProjectRegistry) Replace(projectID string, project *aggregates.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	managed, ok := r.projects[projectID]
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("project %s", projectID))
	}
	managed.Project = project
	managed.dirty = true
	return nil
}

// Save persists the current snapshot of an open project
func (r *ProjectRegistry) Save(ctx context.Context, projectID string) error {
	managed, err := r.Get(projectID)
	if err != nil {
		return err
	}
	if err := r.persist(ctx, managed.Project); err != nil {
		return err
	}
	managed.dirty = false
	return nil
}

// SaveDirty persists every project flagged since the last pass. Called by
// the autosaver; failures are logged and retried next tick.
func (r *ProjectRegistry) SaveDirty(ctx context.Context) {
	r.mu.RLock()
	var dirtyIDs []string
	for id, managed := range r.projects {
		if managed.dirty {
			dirtyIDs = append(dirtyIDs, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range dirtyIDs {
		r.LockProject(id)
		err := r.Save(ctx, id)
		r.UnlockProject(id)
		if err != nil {
			r.logger.Warn("autosave failed",
				zap.String("project_id", id),
				zap.Error(err),
			)
		}
	}
}

// List enumerates persisted projects
func (r *ProjectRegistry) List(ctx context.Context) ([]ports.SnapshotInfo, error) {
	return r.store.List(ctx)
}

// Delete removes a project from memory and from the store
func (r *ProjectRegistry) Delete(ctx context.Context, projectID string) error {
	if err := r.store.Delete(ctx, projectID); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.projects, projectID)
	r.mu.Unlock()
	r.logger.Info("project deleted", zap.String("project_id", projectID))
	return nil
}

// Close drops a project from memory without deleting its snapshot
func (r *ProjectRegistry) Close(ctx context.Context, projectID string) error {
	managed, err := r.Get(projectID)
	if err != nil {
		return err
	}
	if managed.dirty {
		if err := r.persist(ctx, managed.Project); err != nil {
			return err
		}
	}
	r.mu.Lock()
	delete(r.projects, projectID)
	r.mu.Unlock()
	return nil
}

func (r *ProjectRegistry) persist(ctx context.Context, project *aggregates.Project) error {
	data, err := project.MarshalSnapshot()
	if err != nil {
		return err
	}
	return r.store.Save(ctx, project.ID, project.Name, data)
}
