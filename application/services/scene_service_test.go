package services_test

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"fabula-backend/application/services"
	"fabula-backend/domain/config"
	domainservices "fabula-backend/domain/core/services"
	"fabula-backend/domain/core/valueobjects"
	"fabula-backend/infrastructure/persistence/memory"
	pkgerrors "fabula-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// summarizingBackend counts Summarize calls to expose recap cache hits.
type summarizingBackend struct {
	fakeBackend
	mu    sync.Mutex
	calls int
}

func (b *summarizingBackend) Summarize(ctx context.Context, text string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return "recap of: " + text, nil
}

func (b *summarizingBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type sceneFixture struct {
	registry  *services.ProjectRegistry
	scenes    *services.SceneService
	backend   *summarizingBackend
	projectID string
}

func newSceneFixture(t *testing.T) *sceneFixture {
	t.Helper()
	backend := &summarizingBackend{}
	registry := services.NewProjectRegistry(memory.NewStore(), config.DefaultDomainConfig(), zap.NewNop())
	project, err := registry.Create(context.Background(), "Scened", 1_000_000)
	require.NoError(t, err)
	return &sceneFixture{
		registry:  registry,
		scenes:    services.NewSceneService(registry, domainservices.NewSceneInferrer(), backend, zap.NewNop()),
		backend:   backend,
		projectID: project.ID,
	}
}

func (f *sceneFixture) addBeat(t *testing.T, name, body string, startMS, endMS int64) valueobjects.NodeID {
	t.Helper()
	managed, err := f.registry.Get(f.projectID)
	require.NoError(t, err)
	rng, err := valueobjects.NewTimeRange(startMS, endMS)
	require.NoError(t, err)
	node, err := managed.Project.Timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelBeat, rng, name)
	require.NoError(t, err)
	if body != "" {
		node.Content, err = node.Content.EditBody(body)
		require.NoError(t, err)
	}
	return node.ID
}

func TestSceneService_ScenesFollowBeatLayout(t *testing.T) {
	// Arrange
	fx := newSceneFixture(t)
	fx.addBeat(t, "one", "", 0, 100_000)
	fx.addBeat(t, "two", "", 100_000, 200_000)

	// Act
	fx.registry.LockProject(fx.projectID)
	scenes, err := fx.scenes.Scenes(fx.projectID)
	fx.registry.UnlockProject(fx.projectID)

	// Assert
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Empty(t, scenes[0].Recap)
}

func TestSceneService_RecapIsCachedByKey(t *testing.T) {
	// Arrange
	fx := newSceneFixture(t)
	fx.addBeat(t, "one", "The crew argues over the plan.", 0, 100_000)

	// Act
	scene, err := fx.scenes.Recap(context.Background(), fx.projectID, 0)
	require.NoError(t, err)
	again, err := fx.scenes.Recap(context.Background(), fx.projectID, 0)
	require.NoError(t, err)

	// Assert: the cached recap shows up on subsequent Scenes listings.
	assert.Contains(t, scene.Recap, "The crew argues")
	assert.Equal(t, scene.Recap, again.Recap)

	fx.registry.LockProject(fx.projectID)
	scenes, err := fx.scenes.Scenes(fx.projectID)
	fx.registry.UnlockProject(fx.projectID)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, scene.Recap, scenes[0].Recap)
}

func TestSceneService_RecapSurvivesMoveThatKeepsMembership(t *testing.T) {
	// Arrange
	fx := newSceneFixture(t)
	beatID := fx.addBeat(t, "one", "A chase through the rain.", 0, 100_000)
	_, err := fx.scenes.Recap(context.Background(), fx.projectID, 0)
	require.NoError(t, err)

	// Act: moving the beat changes the scene's span but not its members.
	managed, err := fx.registry.Get(fx.projectID)
	require.NoError(t, err)
	rng, err := valueobjects.NewTimeRange(200_000, 300_000)
	require.NoError(t, err)
	_, err = managed.Project.Timeline.MoveNode(beatID, rng)
	require.NoError(t, err)

	fx.registry.LockProject(fx.projectID)
	scenes, err := fx.scenes.Scenes(fx.projectID)
	fx.registry.UnlockProject(fx.projectID)

	// Assert
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.NotEmpty(t, scenes[0].Recap)
	assert.Equal(t, int64(200_000), scenes[0].TimeRange.StartMS)
}

func TestSceneService_RecapRejectsOutOfRangeIndex(t *testing.T) {
	fx := newSceneFixture(t)
	fx.addBeat(t, "one", "text", 0, 100_000)

	_, err := fx.scenes.Recap(context.Background(), fx.projectID, 5)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSceneService_RecapNeedsText(t *testing.T) {
	fx := newSceneFixture(t)
	fx.addBeat(t, "one", "", 0, 100_000)

	_, err := fx.scenes.Recap(context.Background(), fx.projectID, 0)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Zero(t, fx.backend.callCount())
}

func TestSceneService_DropProjectClearsCache(t *testing.T) {
	// Arrange
	fx := newSceneFixture(t)
	fx.addBeat(t, "one", "text", 0, 100_000)
	_, err := fx.scenes.Recap(context.Background(), fx.projectID, 0)
	require.NoError(t, err)

	// Act
	fx.scenes.DropProject(fx.projectID)

	// Assert
	fx.registry.LockProject(fx.projectID)
	scenes, err := fx.scenes.Scenes(fx.projectID)
	fx.registry.UnlockProject(fx.projectID)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Empty(t, scenes[0].Recap)
}
