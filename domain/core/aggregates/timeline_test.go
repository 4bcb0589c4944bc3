package aggregates_test

import (
	"testing"

	"fabula-backend/domain/config"
	"fabula-backend/domain/core/aggregates"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTimeline(t *testing.T) *aggregates.Timeline {
	t.Helper()
	timeline, err := aggregates.NewTimeline(1_000_000, config.DefaultDomainConfig())
	require.NoError(t, err)
	return timeline
}

func mustRange(t *testing.T, startMS, endMS int64) valueobjects.TimeRange {
	t.Helper()
	rng, err := valueobjects.NewTimeRange(startMS, endMS)
	require.NoError(t, err)
	return rng
}

func TestTimeline_RejectsNonPositiveDuration(t *testing.T) {
	_, err := aggregates.NewTimeline(0, config.DefaultDomainConfig())
	assert.Error(t, err)
}

func TestTimeline_CreateRootNode(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)

	// Act
	node, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")

	// Assert
	require.NoError(t, err)
	assert.True(t, node.IsRoot())
	assert.Equal(t, valueobjects.StatusEmpty, node.Content.Status)
	assert.True(t, timeline.HasNode(node.ID))
	roots := timeline.ChildrenOf(valueobjects.NodeID{})
	require.Len(t, roots, 1)
	assert.True(t, roots[0].ID.Equals(node.ID))
}

func TestTimeline_CreateNodeRejectsSiblingOverlap(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	_, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)

	// Act
	_, err = timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 200_000, 400_000), "Act Two")

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestTimeline_CreateNodeValidatesParentLevel(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	act, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)

	// A beat cannot sit directly under an act.
	_, err = timeline.CreateNode(act.ID, valueobjects.LevelBeat, mustRange(t, 0, 60_000), "Stray Beat")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	// The proper child level works.
	seq, err := timeline.CreateNode(act.ID, valueobjects.LevelSequence, mustRange(t, 0, 100_000), "Opening")
	require.NoError(t, err)
	assert.True(t, seq.ParentID.Equals(act.ID))
}

func TestTimeline_CreateNodeRejectsRangeOutsideProject(t *testing.T) {
	timeline := newTestTimeline(t)

	_, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 900_000, 1_100_000), "Overhang")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestTimeline_ChildRangeNeedNotNestInParent(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	act, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)

	// Act: the sequence extends past its parent's span.
	seq, err := timeline.CreateNode(act.ID, valueobjects.LevelSequence, mustRange(t, 250_000, 500_000), "Spillover")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), seq.TimeRange.EndMS)
}

func TestTimeline_MoveNodeClampsAgainstSiblings(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	first, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)
	second, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 400_000, 700_000), "Act Two")
	require.NoError(t, err)

	// Act: push the second act into the first; it should clamp to the edge.
	moved, err := timeline.MoveNode(second.ID, mustRange(t, 200_000, 500_000))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, first.TimeRange.EndMS, moved.TimeRange.StartMS)
	assert.Equal(t, int64(500_000), moved.TimeRange.EndMS)
}

func TestTimeline_MoveNodeRejectsWhenClampedTooSmall(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	_, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)
	_, err = timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 302_000, 600_000), "Act Two")
	require.NoError(t, err)
	third, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 700_000, 900_000), "Act Three")
	require.NoError(t, err)

	// Act: only 2 seconds fit between the first two acts.
	_, err = timeline.MoveNode(third.ID, mustRange(t, 300_000, 302_000))

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	node, err := timeline.Node(third.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700_000), node.TimeRange.StartMS)
}

func TestTimeline_ResizeNodeEnd(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	node, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)

	// Act
	resized, err := timeline.ResizeNode(node.ID, "end", 250_000)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), resized.TimeRange.EndMS)
}

func TestTimeline_ResizeNodeRejectsBelowMinimum(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	node, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)

	// Act
	_, err = timeline.ResizeNode(node.ID, "end", 2_000)

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestTimeline_ResizeNodeUnknownEdge(t *testing.T) {
	timeline := newTestTimeline(t)
	node, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)

	_, err = timeline.ResizeNode(node.ID, "middle", 100_000)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestTimeline_SplitNodeLeftKeepsIdentity(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	node, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelScene, mustRange(t, 0, 120_000), "Confrontation")
	require.NoError(t, err)
	node.Content = node.Content.WriteNotes("they finally talk")
	_, err = timeline.SetLocked(node.ID, true)
	require.NoError(t, err)

	// Act
	left, right, err := timeline.SplitNode(node.ID, 60_000)

	// Assert
	require.NoError(t, err)
	assert.True(t, left.ID.Equals(node.ID))
	assert.Equal(t, int64(60_000), left.TimeRange.EndMS)
	assert.Equal(t, valueobjects.StatusNotesOnly, left.Content.Status)
	assert.True(t, left.Locked)

	assert.Equal(t, "Confrontation (2)", right.Name)
	assert.Equal(t, int64(60_000), right.TimeRange.StartMS)
	assert.Equal(t, int64(120_000), right.TimeRange.EndMS)
	assert.Equal(t, valueobjects.StatusEmpty, right.Content.Status)
	assert.False(t, right.Locked)
	assert.Equal(t, left.Level, right.Level)
}

func TestTimeline_SplitNodeRejectsUndersizedHalf(t *testing.T) {
	timeline := newTestTimeline(t)
	node, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelScene, mustRange(t, 0, 120_000), "Scene")
	require.NoError(t, err)

	// Either half below the minimum duration fails.
	_, _, err = timeline.SplitNode(node.ID, 2_000)
	assert.Error(t, err)
	_, _, err = timeline.SplitNode(node.ID, 118_000)
	assert.Error(t, err)
}

func TestTimeline_DeleteNodeCascades(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	act, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)
	seq, err := timeline.CreateNode(act.ID, valueobjects.LevelSequence, mustRange(t, 0, 150_000), "Opening")
	require.NoError(t, err)
	scene, err := timeline.CreateNode(seq.ID, valueobjects.LevelScene, mustRange(t, 0, 60_000), "Arrival")
	require.NoError(t, err)
	other, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 400_000, 700_000), "Act Two")
	require.NoError(t, err)
	rel, err := timeline.AddRelationship(scene.ID, other.ID, entities.RelationshipCausal, nil, valueobjects.EntityID{}, "")
	require.NoError(t, err)

	// Act
	removed, err := timeline.DeleteNode(act.ID)

	// Assert
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	assert.False(t, timeline.HasNode(act.ID))
	assert.False(t, timeline.HasNode(seq.ID))
	assert.False(t, timeline.HasNode(scene.ID))
	assert.True(t, timeline.HasNode(other.ID))

	// The relationship touching the deleted scene went with it.
	_, err = timeline.RemoveRelationship(rel.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTimeline_AddRelationshipRejectsSelfLoop(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	node, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)

	// Act
	_, err = timeline.AddRelationship(node.ID, node.ID, entities.RelationshipThematic, nil, valueobjects.EntityID{}, "")

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestTimeline_AddRelationshipRequiresBothEndpoints(t *testing.T) {
	timeline := newTestTimeline(t)
	node, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)

	_, err = timeline.AddRelationship(node.ID, valueobjects.NewNodeID(), entities.RelationshipCausal, nil, valueobjects.EntityID{}, "")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTimeline_CausalTargets(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	a, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelScene, mustRange(t, 0, 60_000), "Cause")
	require.NoError(t, err)
	b, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelScene, mustRange(t, 60_000, 120_000), "Effect")
	require.NoError(t, err)
	_, err = timeline.AddRelationship(a.ID, b.ID, entities.RelationshipCausal, nil, valueobjects.EntityID{}, "")
	require.NoError(t, err)
	_, err = timeline.AddRelationship(b.ID, a.ID, entities.RelationshipThematic, nil, valueobjects.EntityID{}, "")
	require.NoError(t, err)

	// Act
	targets := timeline.CausalTargets(a.ID)

	// Assert
	require.Len(t, targets, 1)
	assert.True(t, targets[0].Equals(b.ID))
	assert.Empty(t, timeline.CausalTargets(b.ID))
}

func TestTimeline_CloneIsIndependent(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	node, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 300_000), "Act One")
	require.NoError(t, err)

	// Act
	clone := timeline.Clone()
	_, err = timeline.MoveNode(node.ID, mustRange(t, 500_000, 800_000))
	require.NoError(t, err)

	// Assert
	original, err := clone.Node(node.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), original.TimeRange.StartMS)
}

func TestTimeline_ChildrenOrderedByStart(t *testing.T) {
	// Arrange
	timeline := newTestTimeline(t)
	act, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelAct, mustRange(t, 0, 600_000), "Act One")
	require.NoError(t, err)
	late, err := timeline.CreateNode(act.ID, valueobjects.LevelSequence, mustRange(t, 400_000, 500_000), "Late")
	require.NoError(t, err)
	early, err := timeline.CreateNode(act.ID, valueobjects.LevelSequence, mustRange(t, 0, 100_000), "Early")
	require.NoError(t, err)

	// Act
	children := timeline.ChildrenOf(act.ID)

	// Assert
	require.Len(t, children, 2)
	assert.True(t, children[0].ID.Equals(early.ID))
	assert.True(t, children[1].ID.Equals(late.ID))
}
