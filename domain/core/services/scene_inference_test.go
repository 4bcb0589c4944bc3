package services_test

import (
	"testing"

	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneInferrer_NoBeatsNoScenes(t *testing.T) {
	inferrer := services.NewSceneInferrer()

	assert.Nil(t, inferrer.InferScenes(nil))
}

func TestSceneInferrer_OverlappingBeatsCutScenes(t *testing.T) {
	// Arrange: two beats overlapping in the middle produce three scenes.
	inferrer := services.NewSceneInferrer()
	a := beatAt(t, "a", 0, 100_000)
	b := beatAt(t, "b", 60_000, 160_000)

	// Act
	scenes := inferrer.InferScenes([]*entities.StoryNode{a, b})

	// Assert
	require.Len(t, scenes, 3)

	assert.Equal(t, int64(0), scenes[0].TimeRange.StartMS)
	assert.Equal(t, int64(60_000), scenes[0].TimeRange.EndMS)
	require.Len(t, scenes[0].BeatIDs, 1)
	assert.True(t, scenes[0].BeatIDs[0].Equals(a.ID))

	assert.Equal(t, int64(60_000), scenes[1].TimeRange.StartMS)
	assert.Equal(t, int64(100_000), scenes[1].TimeRange.EndMS)
	assert.Len(t, scenes[1].BeatIDs, 2)

	assert.Equal(t, int64(100_000), scenes[2].TimeRange.StartMS)
	assert.Equal(t, int64(160_000), scenes[2].TimeRange.EndMS)
	require.Len(t, scenes[2].BeatIDs, 1)
	assert.True(t, scenes[2].BeatIDs[0].Equals(b.ID))

	for i, scene := range scenes {
		assert.Equal(t, i, scene.Index)
		assert.NotEmpty(t, scene.Key)
	}
}

func TestSceneInferrer_EmptyIntervalsProduceNoScene(t *testing.T) {
	// Arrange: a dead span between the two beats.
	inferrer := services.NewSceneInferrer()
	a := beatAt(t, "a", 0, 60_000)
	b := beatAt(t, "b", 120_000, 180_000)

	// Act
	scenes := inferrer.InferScenes([]*entities.StoryNode{a, b})

	// Assert
	require.Len(t, scenes, 2)
	assert.Equal(t, int64(60_000), scenes[0].TimeRange.EndMS)
	assert.Equal(t, int64(120_000), scenes[1].TimeRange.StartMS)
}

func TestSceneInferrer_AdjacentEqualSetsMerge(t *testing.T) {
	// Arrange: b starts and ends inside a, so a's boundaries cut intervals
	// that still share the same lone active beat before and after b.
	inferrer := services.NewSceneInferrer()
	a := beatAt(t, "a", 0, 300_000)
	b := beatAt(t, "b", 100_000, 200_000)

	// Act
	scenes := inferrer.InferScenes([]*entities.StoryNode{a, b})

	// Assert
	require.Len(t, scenes, 3)
	assert.Equal(t, scenes[0].Key, scenes[2].Key)
	assert.NotEqual(t, scenes[0].Key, scenes[1].Key)
}

func TestSceneInferrer_DeterministicAcrossInputOrder(t *testing.T) {
	// Arrange
	inferrer := services.NewSceneInferrer()
	a := beatAt(t, "a", 0, 100_000)
	b := beatAt(t, "b", 60_000, 160_000)
	c := beatAt(t, "c", 150_000, 250_000)

	// Act
	forward := inferrer.InferScenes([]*entities.StoryNode{a, b, c})
	reversed := inferrer.InferScenes([]*entities.StoryNode{c, b, a})

	// Assert
	require.Equal(t, len(forward), len(reversed))
	for i := range forward {
		assert.Equal(t, forward[i].Key, reversed[i].Key)
		assert.Equal(t, forward[i].TimeRange, reversed[i].TimeRange)
	}
}

func TestSceneInferrer_KeyStableWhileMembersUnchanged(t *testing.T) {
	// Arrange
	inferrer := services.NewSceneInferrer()
	a := beatAt(t, "a", 0, 100_000)
	before := inferrer.InferScenes([]*entities.StoryNode{a})
	require.Len(t, before, 1)

	// Act: moving the beat keeps its identity, so the key survives.
	moved := a.Clone()
	rng := moved.TimeRange
	rng.StartMS += 50_000
	rng.EndMS += 50_000
	moved.TimeRange = rng
	after := inferrer.InferScenes([]*entities.StoryNode{moved})

	// Assert
	require.Len(t, after, 1)
	assert.Equal(t, before[0].Key, after[0].Key)
	assert.NotEqual(t, before[0].TimeRange, after[0].TimeRange)
}
