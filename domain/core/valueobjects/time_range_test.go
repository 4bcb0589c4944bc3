package valueobjects_test

import (
	"testing"

	"fabula-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeRange_Validation(t *testing.T) {
	// Act
	_, err := valueobjects.NewTimeRange(10_000, 10_000)

	// Assert
	assert.Error(t, err)

	_, err = valueobjects.NewTimeRange(-1, 10_000)
	assert.Error(t, err)

	rng, err := valueobjects.NewTimeRange(0, 10_000)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), rng.DurationMS())
}

func TestTimeRange_ContainsIsHalfOpen(t *testing.T) {
	// Arrange
	rng, err := valueobjects.NewTimeRange(5_000, 10_000)
	require.NoError(t, err)

	// Assert
	assert.True(t, rng.Contains(5_000))
	assert.True(t, rng.Contains(9_999))
	assert.False(t, rng.Contains(10_000))
	assert.False(t, rng.Contains(4_999))
}

func TestTimeRange_Overlaps(t *testing.T) {
	a, err := valueobjects.NewTimeRange(0, 10_000)
	require.NoError(t, err)
	b, err := valueobjects.NewTimeRange(10_000, 20_000)
	require.NoError(t, err)
	c, err := valueobjects.NewTimeRange(9_999, 15_000)
	require.NoError(t, err)

	// Adjacent ranges share no time.
	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(b))
}

func TestTimeRange_Display(t *testing.T) {
	rng, err := valueobjects.NewTimeRange(0, 90_000)
	require.NoError(t, err)

	assert.Equal(t, int64(45_000), rng.Midpoint())
	assert.InDelta(t, 1.5, rng.EstimatedPages(), 0.0001)
	assert.Equal(t, "1:30", valueobjects.FormatTime(90_000))
	assert.Equal(t, "0:05", valueobjects.FormatTime(5_200))
}
