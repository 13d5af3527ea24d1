package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpilot/models"
)

func stepsWithOffsets(offsets ...int) []models.StrategyStep {
	steps := make([]models.StrategyStep, 0, len(offsets))
	for i, off := range offsets {
		steps = append(steps, models.StrategyStep{
			Position:  i,
			DayOffset: off,
			Action:    models.ActionSendDM,
		})
	}
	return steps
}

func TestGroupByDayOrdering(t *testing.T) {
	groups := GroupByDay(stepsWithOffsets(5, 0, 3, 0))

	require.Len(t, groups, 3)
	assert.Equal(t, 0, groups[0].DayOffset)
	assert.Equal(t, 3, groups[1].DayOffset)
	assert.Equal(t, 5, groups[2].DayOffset)

	// Same-day steps keep their original indices, in order of entry.
	require.Len(t, groups[0].Steps, 2)
	assert.Equal(t, 1, groups[0].Steps[0].Index)
	assert.Equal(t, 3, groups[0].Steps[1].Index)

	assert.Equal(t, 2, groups[1].Steps[0].Index)
	assert.Equal(t, 0, groups[2].Steps[0].Index)
}

func TestGroupByDayEmpty(t *testing.T) {
	groups := GroupByDay(nil)
	require.NotNil(t, groups)
	assert.Len(t, groups, 0)

	groups = GroupByDay([]models.StrategyStep{})
	require.NotNil(t, groups)
	assert.Len(t, groups, 0)
}

func TestGroupByDaySingleDay(t *testing.T) {
	groups := GroupByDay(stepsWithOffsets(2, 2, 2))
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].DayOffset)
	require.Len(t, groups[0].Steps, 3)
	for i, is := range groups[0].Steps {
		assert.Equal(t, i, is.Index)
	}
}

func TestGroupByDayDoesNotMutateInput(t *testing.T) {
	steps := stepsWithOffsets(7, 0, 2, 2)
	GroupByDay(steps)

	assert.Equal(t, 7, steps[0].DayOffset)
	assert.Equal(t, 0, steps[1].DayOffset)
	assert.Equal(t, 2, steps[2].DayOffset)
	assert.Equal(t, 2, steps[3].DayOffset)
}
