package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpilot/models"
)

func dueWorklist(now time.Time) []WorklistEntry {
	return []WorklistEntry{
		{LeadID: 1, CompanyName: "A", NextTaskDate: ptrTime(now.AddDate(0, 0, -2)), Bucket: BucketOverdue},
		{LeadID: 2, CompanyName: "B", NextTaskDate: ptrTime(now.AddDate(0, 0, -1)), Bucket: BucketOverdue},
		{LeadID: 3, CompanyName: "C", NextTaskDate: ptrTime(now), Bucket: BucketDueToday},
	}
}

func TestBuildWorklistFiltersAndSorts(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	strategy := testStrategy(1, 0, 3)
	strategies := map[uint]*models.Strategy{1: strategy}

	leads := []models.Lead{
		*testLead(1, ptrUint(1), 0, ptrTime(now), models.StatusInProgress),                   // due today
		*testLead(2, ptrUint(1), 0, ptrTime(now.AddDate(0, 0, -3)), models.StatusInProgress), // most overdue
		*testLead(3, ptrUint(1), 0, ptrTime(now.AddDate(0, 0, 2)), models.StatusInProgress),  // upcoming, excluded
		*testLead(4, ptrUint(1), 0, ptrTime(now.AddDate(0, 0, -1)), models.StatusInProgress), // overdue
		*testLead(5, ptrUint(1), 0, ptrTime(now.AddDate(0, 0, -9)), models.StatusClosedWon),  // terminal, excluded
		*testLead(6, nil, 0, nil, models.StatusNotContacted),                                 // no strategy, excluded
	}

	worklist := BuildWorklist(now, leads, strategies)
	require.Len(t, worklist, 3)
	assert.Equal(t, uint(2), worklist[0].LeadID)
	assert.Equal(t, uint(4), worklist[1].LeadID)
	assert.Equal(t, uint(1), worklist[2].LeadID)
	assert.Equal(t, BucketOverdue, worklist[0].Bucket)
	assert.Equal(t, BucketDueToday, worklist[2].Bucket)
}

func TestSortWorklistNilDatesLastStable(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	entries := []WorklistEntry{
		{LeadID: 1, NextTaskDate: nil},
		{LeadID: 2, NextTaskDate: ptrTime(now)},
		{LeadID: 3, NextTaskDate: nil},
		{LeadID: 4, NextTaskDate: ptrTime(now.AddDate(0, 0, -1))},
		{LeadID: 5, NextTaskDate: ptrTime(now)},
	}
	sortWorklist(entries)

	assert.Equal(t, uint(4), entries[0].LeadID)
	assert.Equal(t, uint(2), entries[1].LeadID)
	assert.Equal(t, uint(5), entries[2].LeadID) // tie keeps input order
	assert.Equal(t, uint(1), entries[3].LeadID) // nil dates last, stable
	assert.Equal(t, uint(3), entries[4].LeadID)
}

func TestSessionCompleteWalksInOrder(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	runner := NewRunner(dueWorklist(now))

	first, ok := runner.StartSession(now)
	require.True(t, ok)
	assert.Equal(t, uint(1), first.LeadID)
	assert.Equal(t, StateSession, runner.State())

	next, ok := runner.Complete(first.LeadID)
	require.True(t, ok)
	assert.Equal(t, uint(2), next.LeadID)

	current, ok := runner.Current()
	require.True(t, ok)
	assert.Equal(t, uint(2), current.LeadID)
}

func TestSessionSkipIsSymmetricToComplete(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	runner := NewRunner(dueWorklist(now))

	first, _ := runner.StartSession(now)
	next, ok := runner.Skip(first.LeadID)
	require.True(t, ok)
	assert.Equal(t, uint(2), next.LeadID)

	summary := runner.Summary()
	assert.Equal(t, 0, summary.Completed)
	assert.Equal(t, 1, summary.Skipped)
}

func TestSessionExhaustionGoesToDone(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	runner := NewRunner(dueWorklist(now))

	entry, _ := runner.StartSession(now)
	entry, ok := runner.Complete(entry.LeadID)
	require.True(t, ok)
	entry, ok = runner.Skip(entry.LeadID)
	require.True(t, ok)

	last, ok := runner.Complete(entry.LeadID)
	assert.False(t, ok)
	assert.Nil(t, last)
	assert.Equal(t, StateDone, runner.State())

	summary := runner.Summary()
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, now, summary.StartedAt)
}

func TestSessionEmptyWorklistIsImmediatelyDone(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	runner := NewRunner(nil)

	entry, ok := runner.StartSession(now)
	assert.False(t, ok)
	assert.Nil(t, entry)
	assert.Equal(t, StateDone, runner.State())
}

func TestSessionStaleLeadFallsBackToPosition(t *testing.T) {
	// Advancing past an id that is no longer on the worklist must treat the
	// lead as already resolved and keep walking, never crash the session.
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	runner := NewRunner(dueWorklist(now))

	runner.StartSession(now)
	next, ok := runner.Complete(999)
	require.True(t, ok)
	assert.Equal(t, uint(2), next.LeadID)
}

func TestSessionVanishedLeadCountsAsSkipped(t *testing.T) {
	// A lead deleted between snapshot and completion never had its step
	// run, so resolving it must land in the skipped column, not completed.
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	runner := NewRunner(dueWorklist(now))

	runner.StartSession(now)
	next, ok := runner.Skip(1)
	require.True(t, ok)
	assert.Equal(t, uint(2), next.LeadID)

	summary := runner.Summary()
	assert.Equal(t, 0, summary.Completed)
	assert.Equal(t, 1, summary.Skipped)
}

func TestSessionAbortDiscardsWorklist(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	runner := NewRunner(dueWorklist(now))

	runner.StartSession(now)
	runner.Abort()
	assert.Equal(t, StateIdle, runner.State())

	_, ok := runner.Current()
	assert.False(t, ok)
}

func TestSingleModeDoesNotTouchWorklist(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	runner := NewRunner(dueWorklist(now))

	runner.OpenSingle()
	assert.Equal(t, StateSingle, runner.State())

	runner.FinishSingle()
	assert.Equal(t, StateIdle, runner.State())

	// The worklist snapshot is untouched by single mode.
	assert.Len(t, runner.Worklist(), 3)
}
