package services_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"fabula-backend/application/services"
	"fabula-backend/domain/config"
	"fabula-backend/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutosaver_FlushesDirtyProjects(t *testing.T) {
	// Arrange
	store := memory.NewStore()
	registry := services.NewProjectRegistry(store, config.DefaultDomainConfig(), zap.NewNop())
	ctx := context.Background()
	project, err := registry.Create(ctx, "Autosaved", 0)
	require.NoError(t, err)

	managed, err := registry.Get(project.ID)
	require.NoError(t, err)
	project.Name = "Autosaved v2"
	managed.MarkDirty()

	saver := services.NewAutosaver(registry, 10*time.Millisecond, zap.NewNop())

	// Act
	saver.Start()
	require.Eventually(t, func() bool {
		infos, err := registry.List(ctx)
		require.NoError(t, err)
		return len(infos) == 1 && infos[0].Name == "Autosaved v2"
	}, 2*time.Second, 5*time.Millisecond)
	saver.Stop(ctx)
}

func TestAutosaver_StopRunsFinalFlush(t *testing.T) {
	// Arrange
	store := memory.NewStore()
	registry := services.NewProjectRegistry(store, config.DefaultDomainConfig(), zap.NewNop())
	ctx := context.Background()
	project, err := registry.Create(ctx, "Final Flush", 0)
	require.NoError(t, err)

	// An interval far longer than the test, so only Stop can flush.
	saver := services.NewAutosaver(registry, time.Hour, zap.NewNop())
	saver.Start()

	managed, err := registry.Get(project.ID)
	require.NoError(t, err)
	project.Name = "Final Flush v2"
	managed.MarkDirty()

	// Act
	saver.Stop(ctx)

	// Assert
	infos, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Final Flush v2", infos[0].Name)
}
