package valueobjects_test

import (
	"testing"

	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeContent_WriteNotesPromotesEmpty(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent()

	// Act
	content = content.WriteNotes("A stranger arrives at midnight.")

	// Assert
	assert.Equal(t, valueobjects.StatusNotesOnly, content.Status)
	assert.Equal(t, "A stranger arrives at midnight.", content.Notes)
}

func TestNodeContent_WriteNotesKeepsBodyStatus(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent().WriteNotes("notes")
	content, err := content.BeginGeneration()
	require.NoError(t, err)
	content, err = content.CompleteGeneration("generated body")
	require.NoError(t, err)

	// Act
	content = content.WriteNotes("revised notes")

	// Assert
	assert.Equal(t, valueobjects.StatusGenerated, content.Status)
	assert.Equal(t, "generated body", content.Body)
	assert.Equal(t, "revised notes", content.Notes)
}

func TestNodeContent_BeginGenerationRequiresNotes(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent()

	// Act
	_, err := content.BeginGeneration()

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestNodeContent_BeginGenerationRefusesUserWritten(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent()
	content, err := content.EditBody("hand-written scene")
	require.NoError(t, err)
	require.Equal(t, valueobjects.StatusUserWritten, content.Status)

	// Act
	_, err = content.BeginGeneration()

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestNodeContent_BeginGenerationWhileGeneratingConflicts(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent().WriteNotes("notes")
	content, err := content.BeginGeneration()
	require.NoError(t, err)

	// Act
	_, err = content.BeginGeneration()

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestNodeContent_RegenerateOverGeneratedBody(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent().WriteNotes("notes")
	content, err := content.BeginGeneration()
	require.NoError(t, err)
	content, err = content.CompleteGeneration("first draft")
	require.NoError(t, err)

	// Act
	content, err = content.BeginGeneration()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, valueobjects.StatusGenerating, content.Status)
}

func TestNodeContent_CompleteGenerationOnlyFromGenerating(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent().WriteNotes("notes")

	// Act
	_, err := content.CompleteGeneration("body")

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestNodeContent_FailGenerationRollsBackToNotes(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent().WriteNotes("notes")
	content, err := content.BeginGeneration()
	require.NoError(t, err)

	// Act
	content = content.FailGeneration()

	// Assert
	assert.Equal(t, valueobjects.StatusNotesOnly, content.Status)
	assert.Empty(t, content.Body)
}

func TestNodeContent_FailGenerationIsNoOpOtherwise(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent()
	content, err := content.EditBody("user text")
	require.NoError(t, err)

	// Act
	content = content.FailGeneration()

	// Assert
	assert.Equal(t, valueobjects.StatusUserWritten, content.Status)
	assert.Equal(t, "user text", content.Body)
}

func TestNodeContent_EditBodyRefinesGeneratedText(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent().WriteNotes("notes")
	content, err := content.BeginGeneration()
	require.NoError(t, err)
	content, err = content.CompleteGeneration("generated body")
	require.NoError(t, err)

	// Act
	content, err = content.EditBody("polished body")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, valueobjects.StatusUserRefined, content.Status)
	assert.Equal(t, "polished body", content.Body)
}

func TestNodeContent_EditBodyKeepsAttributionOnRepeatEdits(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent().WriteNotes("notes")
	content, err := content.BeginGeneration()
	require.NoError(t, err)
	content, err = content.CompleteGeneration("generated body")
	require.NoError(t, err)
	content, err = content.EditBody("first edit")
	require.NoError(t, err)

	// Act
	content, err = content.EditBody("second edit")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, valueobjects.StatusUserRefined, content.Status)
}

func TestNodeContent_EditBodyWhileGeneratingConflicts(t *testing.T) {
	// Arrange
	content := valueobjects.EmptyContent().WriteNotes("notes")
	content, err := content.BeginGeneration()
	require.NoError(t, err)

	// Act
	_, err = content.EditBody("body")

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestContentStatus_CanBeginGeneration(t *testing.T) {
	assert.True(t, valueobjects.StatusNotesOnly.CanBeginGeneration())
	assert.True(t, valueobjects.StatusGenerated.CanBeginGeneration())
	assert.True(t, valueobjects.StatusUserRefined.CanBeginGeneration())
	assert.False(t, valueobjects.StatusEmpty.CanBeginGeneration())
	assert.False(t, valueobjects.StatusGenerating.CanBeginGeneration())
	assert.False(t, valueobjects.StatusUserWritten.CanBeginGeneration())
}

func TestNodeContent_HasNotesIgnoresWhitespace(t *testing.T) {
	content := valueobjects.EmptyContent()
	assert.False(t, content.HasNotes())

	content.Notes = "  \t\n"
	assert.False(t, content.HasNotes())

	content.Notes = "  a beat  "
	assert.True(t, content.HasNotes())
}
