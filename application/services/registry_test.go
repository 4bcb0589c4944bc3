package services_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"fabula-backend/application/services"
	"fabula-backend/domain/config"
	"fabula-backend/infrastructure/persistence/memory"
	pkgerrors "fabula-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *services.ProjectRegistry {
	return services.NewProjectRegistry(memory.NewStore(), config.DefaultDomainConfig(), zap.NewNop())
}

func TestRegistry_CreatePersistsImmediately(t *testing.T) {
	// Arrange
	registry := newTestRegistry()
	ctx := context.Background()

	// Act
	project, err := registry.Create(ctx, "New Screenplay", 0)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, project.ID)
	// Zero duration falls back to the configured default.
	assert.Equal(t, config.DefaultDomainConfig().DefaultTotalDurationMS, project.Timeline.TotalDurationMS())

	infos, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, project.ID, infos[0].ProjectID)
	assert.Equal(t, "New Screenplay", infos[0].Name)
}

func TestRegistry_CreateRejectsEmptyName(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.Create(context.Background(), "", 0)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestRegistry_OpenLoadsFromStoreAfterClose(t *testing.T) {
	// Arrange
	registry := newTestRegistry()
	ctx := context.Background()
	project, err := registry.Create(ctx, "Reopened", 0)
	require.NoError(t, err)
	require.NoError(t, registry.Close(ctx, project.ID))

	_, err = registry.Get(project.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	// Act
	reopened, err := registry.Open(ctx, project.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, project.ID, reopened.ID)
	assert.Equal(t, "Reopened", reopened.Name)

	managed, err := registry.Get(project.ID)
	require.NoError(t, err)
	// Undo never crosses a load boundary.
	assert.False(t, managed.History.CanUndo())
}

func TestRegistry_OpenUnknownProjectIsNotFound(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.Open(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestRegistry_SaveClearsDirtyFlag(t *testing.T) {
	// Arrange
	registry := newTestRegistry()
	ctx := context.Background()
	project, err := registry.Create(ctx, "Dirty", 0)
	require.NoError(t, err)
	managed, err := registry.Get(project.ID)
	require.NoError(t, err)
	managed.MarkDirty()

	// Act
	err = registry.Save(ctx, project.ID)

	// Assert
	require.NoError(t, err)
	// A SaveDirty pass now has nothing to do; closing also skips the flush.
	registry.SaveDirty(ctx)
	require.NoError(t, registry.Close(ctx, project.ID))
}

func TestRegistry_ReplaceSwapsLiveState(t *testing.T) {
	// Arrange
	registry := newTestRegistry()
	ctx := context.Background()
	project, err := registry.Create(ctx, "Original", 0)
	require.NoError(t, err)
	swapped := project.Clone()
	swapped.Name = "Restored"

	// Act
	err = registry.Replace(project.ID, swapped)

	// Assert
	require.NoError(t, err)
	managed, err := registry.Get(project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Restored", managed.Project.Name)

	err = registry.Replace("missing", swapped)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestRegistry_DeleteRemovesEverywhere(t *testing.T) {
	// Arrange
	registry := newTestRegistry()
	ctx := context.Background()
	project, err := registry.Create(ctx, "Doomed", 0)
	require.NoError(t, err)

	// Act
	err = registry.Delete(ctx, project.ID)

	// Assert
	require.NoError(t, err)
	_, err = registry.Get(project.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
	infos, err := registry.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestRegistry_LockUnlockIsReentrantAcrossProjects(t *testing.T) {
	// Locks are per project; holding one must not block another.
	registry := newTestRegistry()

	registry.LockProject("a")
	registry.LockProject("b")
	registry.UnlockProject("b")
	registry.UnlockProject("a")
}
