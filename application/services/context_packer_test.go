package services_test

import (
	"strings"
	"testing"

	"fabula-backend/application/services"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextPacker_SectionsInPriorityOrder(t *testing.T) {
	// Arrange
	project := newTestProject(t, "packer")
	timeline := project.Timeline

	premise, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelPremise, mustPackRange(t, 0, 1_000_000), "A heist gone wrong")
	require.NoError(t, err)
	premise.Content = premise.Content.WriteNotes("one last job")

	act, err := timeline.CreateNode(premise.ID, valueobjects.LevelAct, mustPackRange(t, 0, 500_000), "Act One")
	require.NoError(t, err)

	earlier, err := timeline.CreateNode(act.ID, valueobjects.LevelSequence, mustPackRange(t, 0, 100_000), "The Crew Assembles")
	require.NoError(t, err)
	earlierDone, err := earlier.Content.WriteNotes("recruiting").BeginGeneration()
	require.NoError(t, err)
	earlierDone, err = earlierDone.CompleteGeneration("They gather at the docks.")
	require.NoError(t, err)
	earlier.Content = earlierDone

	target, err := timeline.CreateNode(act.ID, valueobjects.LevelSequence, mustPackRange(t, 100_000, 200_000), "The Plan")
	require.NoError(t, err)
	target.Content = target.Content.WriteNotes("blueprints on the table")

	character, err := project.AddEntity("Marlowe", entities.CategoryCharacter, "")
	require.NoError(t, err)
	character.Profile["want"] = "to get out clean"
	character.AddSnapshot(50_000, "already doubting the job")
	character.AddNodeRef(target.ID)

	_, err = timeline.AddRelationship(earlier.ID, target.ID, entities.RelationshipCausal, nil, valueobjects.EntityID{}, "")
	require.NoError(t, err)

	// Act
	packer := services.NewContextPacker(6_000)
	req := packer.Pack(project, target)

	// Assert
	assert.NotEmpty(t, req.System)
	assert.Contains(t, req.Prompt, "PREMISE:")
	assert.Contains(t, req.Prompt, "A heist gone wrong")
	assert.Contains(t, req.Prompt, "CONTAINING UNITS")
	assert.Contains(t, req.Prompt, "Act One")
	assert.Contains(t, req.Prompt, "STORY BIBLE:")
	assert.Contains(t, req.Prompt, "Marlowe")
	assert.Contains(t, req.Prompt, "already doubting the job")
	assert.Contains(t, req.Prompt, "STRUCTURAL LINKS:")
	assert.Contains(t, req.Prompt, "The Crew Assembles")
	assert.Contains(t, req.Prompt, "WHAT CAME BEFORE:")
	assert.Contains(t, req.Prompt, "They gather at the docks.")
	assert.Contains(t, req.Prompt, "WRITE THIS SEQUENCE: The Plan")
	assert.Contains(t, req.Prompt, "blueprints on the table")

	// The node's own section always comes last.
	selfIdx := strings.Index(req.Prompt, "WRITE THIS")
	for _, header := range []string{"PREMISE:", "CONTAINING UNITS", "STORY BIBLE:", "WHAT CAME BEFORE:"} {
		assert.Less(t, strings.Index(req.Prompt, header), selfIdx)
	}
}

func TestContextPacker_ProfileFieldsInStableOrder(t *testing.T) {
	// Arrange
	project := newTestProject(t, "profile")
	timeline := project.Timeline
	target, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelScene, mustPackRange(t, 0, 100_000), "Scene")
	require.NoError(t, err)
	target.Content = target.Content.WriteNotes("notes")

	character, err := project.AddEntity("Marlowe", entities.CategoryCharacter, "")
	require.NoError(t, err)
	character.Profile["want"] = "out clean"
	character.Profile["alias"] = "the ghost"
	character.Profile["fear"] = "small rooms"
	character.AddNodeRef(target.ID)

	packer := services.NewContextPacker(6_000)

	// Act
	first := packer.Pack(project, target).Prompt
	second := packer.Pack(project, target).Prompt

	// Assert: profile fields come out sorted by name, so identical
	// state always packs the identical prompt.
	assert.Equal(t, first, second)
	aliasIdx := strings.Index(first, "alias: the ghost")
	fearIdx := strings.Index(first, "fear: small rooms")
	wantIdx := strings.Index(first, "want: out clean")
	require.NotEqual(t, -1, aliasIdx)
	require.NotEqual(t, -1, fearIdx)
	require.NotEqual(t, -1, wantIdx)
	assert.Less(t, aliasIdx, fearIdx)
	assert.Less(t, fearIdx, wantIdx)
}

func TestContextPacker_BudgetDropsLowPrioritySections(t *testing.T) {
	// Arrange: a premise body far larger than the budget.
	project := newTestProject(t, "budget")
	timeline := project.Timeline
	premise, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelPremise, mustPackRange(t, 0, 1_000_000), "Premise")
	require.NoError(t, err)
	premise.Content = premise.Content.WriteNotes(strings.Repeat("sprawling backstory ", 500))

	act, err := timeline.CreateNode(premise.ID, valueobjects.LevelAct, mustPackRange(t, 0, 500_000), "Act One")
	require.NoError(t, err)
	act.Content = act.Content.WriteNotes("the act brief")

	// Act: budget fits the node's own section plus a truncated remainder.
	packer := services.NewContextPacker(100)
	req := packer.Pack(project, act)

	// Assert
	assert.LessOrEqual(t, len(req.Prompt), 100*4+len("\n[...]")+1)
	assert.Contains(t, req.Prompt, "WRITE THIS ACT: Act One")
	assert.Contains(t, req.Prompt, "the act brief")
}

func TestContextPacker_LeafAndSummaryPromptsDiffer(t *testing.T) {
	// Arrange
	project := newTestProject(t, "prompts")
	timeline := project.Timeline
	scene, err := timeline.CreateNode(valueobjects.NodeID{}, valueobjects.LevelScene, mustPackRange(t, 0, 60_000), "Scene")
	require.NoError(t, err)
	beat, err := timeline.CreateNode(scene.ID, valueobjects.LevelBeat, mustPackRange(t, 0, 30_000), "Beat")
	require.NoError(t, err)

	packer := services.NewContextPacker(6_000)

	// Act
	sceneReq := packer.Pack(project, scene)
	beatReq := packer.Pack(project, beat)

	// Assert
	assert.Contains(t, beatReq.System, "prose")
	assert.Contains(t, sceneReq.System, "summary")
	assert.NotEqual(t, sceneReq.System, beatReq.System)
}

func mustPackRange(t *testing.T, startMS, endMS int64) valueobjects.TimeRange {
	t.Helper()
	rng, err := valueobjects.NewTimeRange(startMS, endMS)
	require.NoError(t, err)
	return rng
}
