package aggregates_test

import (
	"testing"

	"fabula-backend/domain/config"
	"fabula-backend/domain/core/aggregates"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_SnapshotRoundTrip(t *testing.T) {
	// Arrange
	cfg := config.DefaultDomainConfig()
	project, err := aggregates.NewProject("proj-1", "Heist Movie", 1_000_000, cfg)
	require.NoError(t, err)

	act, err := project.Timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 600_000), "Act One")
	require.NoError(t, err)
	seq, err := project.Timeline.CreateNode(act.ID, valueobjects.LevelSequence, mustRange(t, 0, 200_000), "The Setup")
	require.NoError(t, err)
	seq.Content = seq.Content.WriteNotes("introduce the crew")

	rel, err := project.Timeline.AddRelationship(act.ID, seq.ID, entities.RelationshipThematic, nil, valueobjects.EntityID{}, "#ff0000")
	require.NoError(t, err)

	character, err := project.AddEntity("Marlowe", entities.CategoryCharacter, "#00ff00")
	require.NoError(t, err)
	character.AddSnapshot(100_000, "broke and desperate")
	character.AddNodeRef(seq.ID)
	project.Touch()

	// Act
	data, err := project.MarshalSnapshot()
	require.NoError(t, err)
	restored, err := aggregates.UnmarshalSnapshot(data, cfg)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, project.ID, restored.ID)
	assert.Equal(t, project.Name, restored.Name)
	assert.Equal(t, project.Version, restored.Version)
	assert.Equal(t, int64(1_000_000), restored.Timeline.TotalDurationMS())

	restoredSeq, err := restored.Timeline.Node(seq.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Setup", restoredSeq.Name)
	assert.Equal(t, "introduce the crew", restoredSeq.Content.Notes)
	assert.Equal(t, valueobjects.StatusNotesOnly, restoredSeq.Content.Status)
	assert.True(t, restoredSeq.ParentID.Equals(act.ID))

	// The child index is re-derived, not persisted.
	children := restored.Timeline.ChildrenOf(act.ID)
	require.Len(t, children, 1)
	assert.True(t, children[0].ID.Equals(seq.ID))

	rels := restored.Timeline.Relationships()
	require.Len(t, rels, 1)
	assert.True(t, rels[0].ID.Equals(rel.ID))
	assert.Equal(t, "#ff0000", rels[0].Color)

	restoredChar, err := restored.Entity(character.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marlowe", restoredChar.Name)
	require.Len(t, restoredChar.Snapshots, 1)
	assert.Equal(t, "broke and desperate", restoredChar.Snapshots[0].Description)
	require.Len(t, restoredChar.NodeRefs, 1)
	assert.True(t, restoredChar.NodeRefs[0].Equals(seq.ID))
}

func TestUnmarshalSnapshot_RejectsUnknownFormatVersion(t *testing.T) {
	// Arrange
	data := []byte(`{"format_version":99,"id":"p","name":"n","total_duration_ms":1000}`)

	// Act
	_, err := aggregates.UnmarshalSnapshot(data, config.DefaultDomainConfig())

	// Assert
	assert.Error(t, err)
}

func TestUnmarshalSnapshot_RejectsGarbage(t *testing.T) {
	_, err := aggregates.UnmarshalSnapshot([]byte("not json"), config.DefaultDomainConfig())
	assert.Error(t, err)
}

func TestProject_DeleteNodeScrubsEntityRefs(t *testing.T) {
	// Arrange
	cfg := config.DefaultDomainConfig()
	project, err := aggregates.NewProject("proj-2", "Drama", 1_000_000, cfg)
	require.NoError(t, err)
	node, err := project.Timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)
	character, err := project.AddEntity("Vera", entities.CategoryCharacter, "")
	require.NoError(t, err)
	character.AddNodeRef(node.ID)

	// Act
	removed, err := project.DeleteNode(node.ID)

	// Assert
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	assert.Empty(t, character.NodeRefs)
}

func TestProject_RemoveEntityCleansRelationships(t *testing.T) {
	// Arrange
	cfg := config.DefaultDomainConfig()
	project, err := aggregates.NewProject("proj-3", "Thriller", 1_000_000, cfg)
	require.NoError(t, err)
	a, err := project.Timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelScene, mustRange(t, 0, 60_000), "A")
	require.NoError(t, err)
	b, err := project.Timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelScene, mustRange(t, 60_000, 120_000), "B")
	require.NoError(t, err)
	driver, err := project.AddEntity("The Detective", entities.CategoryCharacter, "")
	require.NoError(t, err)
	_, err = project.Timeline.AddRelationship(a.ID, b.ID, entities.RelationshipEntityDrives, nil, driver.ID, "")
	require.NoError(t, err)

	// Act
	err = project.RemoveEntity(driver.ID)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, project.Timeline.Relationships())
	_, err = project.Entity(driver.ID)
	assert.Error(t, err)
}
