package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpilot/models"
)

func TestAdvanceMidSequence(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	strategy := testStrategy(1, 0, 3)
	lead := testLead(42, ptrUint(1), 0, ptrTime(now), models.StatusInProgress)

	result, err := Advance(FixedClock(now), *lead, *strategy, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Lead.CurrentStepIndex)
	assert.Equal(t, models.StatusInProgress, result.Lead.Status)
	require.NotNil(t, result.Lead.NextTaskDate)
	assert.Equal(t, now.AddDate(0, 0, 3), *result.Lead.NextTaskDate)
	assert.False(t, result.SequenceDone)

	assert.Equal(t, uint(42), result.Activity.LeadID)
	assert.Equal(t, models.ActionSendDM, result.Activity.Action)
	assert.True(t, result.Activity.IsFirstOutreach)
	assert.Equal(t, now, result.Activity.ActivityAt)
}

func TestAdvanceSameDayMultiTouch(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	strategy := testStrategy(1, 0, 0, 2)
	lead := testLead(1, ptrUint(1), 0, ptrTime(now), models.StatusInProgress)

	result, err := Advance(FixedClock(now), *lead, *strategy, 0)
	require.NoError(t, err)
	require.NotNil(t, result.Lead.NextTaskDate)
	assert.Equal(t, now, *result.Lead.NextTaskDate)
}

func TestAdvanceLastStepFinishesSequence(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	strategy := testStrategy(1, 0, 3)
	lead := testLead(1, ptrUint(1), 1, ptrTime(now), models.StatusInProgress)

	result, err := Advance(FixedClock(now), *lead, *strategy, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Lead.CurrentStepIndex)
	assert.Nil(t, result.Lead.NextTaskDate)
	assert.Equal(t, models.StatusReplied, result.Lead.Status)
	assert.True(t, result.Lead.SequenceCompleted)
	assert.True(t, result.SequenceDone)
	assert.False(t, result.Activity.IsFirstOutreach)
	assert.Equal(t, models.ActionSendDM, result.Activity.Action)
}

func TestAdvanceDriftsFromCompletionMoment(t *testing.T) {
	// A late completion pushes subsequent dates later by the same delay;
	// scheduling is relative to the moment the step was actually done.
	scheduled := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	completedAt := scheduled.AddDate(0, 0, 4) // four days late
	strategy := testStrategy(1, 0, 5)
	lead := testLead(1, ptrUint(1), 0, ptrTime(scheduled), models.StatusInProgress)

	result, err := Advance(FixedClock(completedAt), *lead, *strategy, 0)
	require.NoError(t, err)
	require.NotNil(t, result.Lead.NextTaskDate)
	assert.Equal(t, completedAt.AddDate(0, 0, 5), *result.Lead.NextTaskDate)
}

func TestAdvancePreconditions(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	strategy := testStrategy(1, 0, 3)

	// Wrong step index.
	lead := testLead(1, ptrUint(1), 1, ptrTime(now), models.StatusInProgress)
	_, err := Advance(FixedClock(now), *lead, *strategy, 0)
	assert.ErrorIs(t, err, ErrStepMismatch)

	// Wrong strategy.
	other := testStrategy(2, 0, 3)
	lead = testLead(1, ptrUint(1), 0, ptrTime(now), models.StatusInProgress)
	_, err = Advance(FixedClock(now), *lead, *other, 0)
	assert.ErrorIs(t, err, ErrStrategyMismatch)

	// No strategy assigned at all.
	lead = testLead(1, nil, 0, ptrTime(now), models.StatusInProgress)
	_, err = Advance(FixedClock(now), *lead, *strategy, 0)
	assert.ErrorIs(t, err, ErrStrategyMismatch)
}

func TestAdvanceEmptyStrategyIsTerminalNotError(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	strategy := testStrategy(1) // malformed: no steps
	lead := testLead(1, ptrUint(1), 0, nil, models.StatusInProgress)

	result, err := Advance(FixedClock(now), *lead, *strategy, 0)
	require.NoError(t, err)
	assert.True(t, result.SequenceDone)
	assert.Nil(t, result.Lead.NextTaskDate)
	assert.Equal(t, models.StatusReplied, result.Lead.Status)
}

func TestAdvanceExhaustedCursorCarriesNoActivity(t *testing.T) {
	// A strategy edit can shrink the step list under an enrolled lead. The
	// stranded cursor finishes the sequence without running a step, so the
	// result carries no activity for callers to record.
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	strategy := testStrategy(1, 0, 3)
	lead := testLead(1, ptrUint(1), 2, ptrTime(now), models.StatusInProgress)

	result, err := Advance(FixedClock(now), *lead, *strategy, 2)
	require.NoError(t, err)
	assert.True(t, result.SequenceDone)
	assert.Empty(t, result.Activity.Action)
	assert.True(t, result.Activity.ActivityAt.IsZero())
	assert.Nil(t, result.Lead.NextTaskDate)
	assert.True(t, result.Lead.SequenceCompleted)
}

func TestAdvanceClampsOutOfOrderOffsets(t *testing.T) {
	// Steps stored out of day order never schedule into the past.
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	strategy := testStrategy(1, 5, 2)
	lead := testLead(1, ptrUint(1), 0, ptrTime(now), models.StatusInProgress)

	result, err := Advance(FixedClock(now), *lead, *strategy, 0)
	require.NoError(t, err)
	require.NotNil(t, result.Lead.NextTaskDate)
	assert.Equal(t, now, *result.Lead.NextTaskDate)
}

func TestAdvanceFirstOutreachFlagOnlyOnStepZero(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	strategy := testStrategy(1, 0, 1, 2)

	lead := testLead(1, ptrUint(1), 1, ptrTime(now), models.StatusInProgress)
	result, err := Advance(FixedClock(now), *lead, *strategy, 1)
	require.NoError(t, err)
	assert.False(t, result.Activity.IsFirstOutreach)
}
