package services_test

import (
	"testing"

	"fabula-backend/application/services"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestionQueue_ReplaceForSourceSwapsWholesale(t *testing.T) {
	// Arrange
	queue := services.NewSuggestionQueue()
	source := valueobjects.NewNodeID()
	target := valueobjects.NewNodeID()
	old := entities.NewConsistencySuggestion(source, target, "old", "older", "stale pass")
	queue.ReplaceForSource(source, []*entities.ConsistencySuggestion{old})

	// Act
	fresh := entities.NewConsistencySuggestion(source, target, "old", "new", "fresh pass")
	queue.ReplaceForSource(source, []*entities.ConsistencySuggestion{fresh})

	// Assert
	_, err := queue.Get(old.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	got, err := queue.Get(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.SuggestedText)
	assert.Len(t, queue.All(), 1)
}

func TestSuggestionQueue_ReplaceForSourceKeepsOtherSources(t *testing.T) {
	// Arrange
	queue := services.NewSuggestionQueue()
	sourceA := valueobjects.NewNodeID()
	sourceB := valueobjects.NewNodeID()
	target := valueobjects.NewNodeID()
	fromA := entities.NewConsistencySuggestion(sourceA, target, "a", "a2", "")
	fromB := entities.NewConsistencySuggestion(sourceB, target, "b", "b2", "")
	queue.ReplaceForSource(sourceA, []*entities.ConsistencySuggestion{fromA})
	queue.ReplaceForSource(sourceB, []*entities.ConsistencySuggestion{fromB})

	// Act
	queue.ReplaceForSource(sourceA, nil)

	// Assert
	_, err := queue.Get(fromA.ID)
	assert.Error(t, err)
	_, err = queue.Get(fromB.ID)
	assert.NoError(t, err)
}

func TestSuggestionQueue_TakeRemoves(t *testing.T) {
	// Arrange
	queue := services.NewSuggestionQueue()
	source := valueobjects.NewNodeID()
	suggestion := entities.NewConsistencySuggestion(source, valueobjects.NewNodeID(), "x", "y", "")
	queue.ReplaceForSource(source, []*entities.ConsistencySuggestion{suggestion})

	// Act
	taken, err := queue.Take(suggestion.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, suggestion.ID, taken.ID)
	_, err = queue.Take(suggestion.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Empty(t, queue.All())
}

func TestSuggestionQueue_DropForNodeCoversBothDirections(t *testing.T) {
	// Arrange
	queue := services.NewSuggestionQueue()
	edited := valueobjects.NewNodeID()
	downstream := valueobjects.NewNodeID()
	unrelated := valueobjects.NewNodeID()

	sourced := entities.NewConsistencySuggestion(edited, unrelated, "", "s", "")
	targeting := entities.NewConsistencySuggestion(unrelated, edited, "", "t", "")
	bystander := entities.NewConsistencySuggestion(unrelated, downstream, "", "u", "")
	queue.ReplaceForSource(edited, []*entities.ConsistencySuggestion{sourced})
	queue.ReplaceForSource(unrelated, []*entities.ConsistencySuggestion{targeting, bystander})

	// Act: the edited node is deleted.
	queue.DropForNode(edited)

	// Assert
	_, err := queue.Get(sourced.ID)
	assert.Error(t, err)
	_, err = queue.Get(targeting.ID)
	assert.Error(t, err)
	_, err = queue.Get(bystander.ID)
	assert.NoError(t, err)
}

func TestSuggestionQueue_AllIsOrderedByID(t *testing.T) {
	// Arrange
	queue := services.NewSuggestionQueue()
	source := valueobjects.NewNodeID()
	var suggestions []*entities.ConsistencySuggestion
	for i := 0; i < 5; i++ {
		suggestions = append(suggestions, entities.NewConsistencySuggestion(source, valueobjects.NewNodeID(), "", "s", ""))
	}
	queue.ReplaceForSource(source, suggestions)

	// Act
	all := queue.All()

	// Assert
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestSuggestionQueue_Clear(t *testing.T) {
	queue := services.NewSuggestionQueue()
	source := valueobjects.NewNodeID()
	queue.ReplaceForSource(source, []*entities.ConsistencySuggestion{
		entities.NewConsistencySuggestion(source, valueobjects.NewNodeID(), "", "s", ""),
	})

	queue.Clear()

	assert.Empty(t, queue.All())
}
