package valueobjects_test

import (
	"testing"

	"fabula-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryLevel_HierarchyOrder(t *testing.T) {
	levels := valueobjects.AllLevels()
	require.Len(t, levels, 5)

	for i, level := range levels {
		assert.Equal(t, i, level.Depth())
	}
}

func TestStoryLevel_ChildAndParent(t *testing.T) {
	child, ok := valueobjects.LevelScene.ChildLevel()
	require.True(t, ok)
	assert.Equal(t, valueobjects.LevelBeat, child)

	_, ok = valueobjects.LevelBeat.ChildLevel()
	assert.False(t, ok)

	parent, ok := valueobjects.LevelAct.ParentLevel()
	require.True(t, ok)
	assert.Equal(t, valueobjects.LevelPremise, parent)

	_, ok = valueobjects.LevelPremise.ParentLevel()
	assert.False(t, ok)
}

func TestParseStoryLevel(t *testing.T) {
	level, err := valueobjects.ParseStoryLevel("sequence")
	require.NoError(t, err)
	assert.Equal(t, valueobjects.LevelSequence, level)

	_, err = valueobjects.ParseStoryLevel("chapter")
	assert.Error(t, err)
}

func TestStoryLevel_IsLeaf(t *testing.T) {
	assert.True(t, valueobjects.LevelBeat.IsLeaf())
	assert.False(t, valueobjects.LevelScene.IsLeaf())
}
