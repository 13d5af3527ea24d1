package engine

import (
	"time"

	"leadpilot/models"
)

// Classify buckets a lead's pending task relative to now. It is total:
// every (now, lead, strategy) pair maps to exactly one bucket.
//
// Comparison is by calendar day in now's location, never by raw timestamp.
// Leads in a terminal status (replied, closed_won, closed_lost) classify as
// no_task so stale next-task dates can never surface them as overdue or due
// today.
func Classify(now time.Time, lead *models.Lead, strategy *models.Strategy) TaskBucket {
	if lead == nil || lead.StrategyID == nil || strategy == nil {
		return BucketNoTask
	}
	if lead.CurrentStepIndex >= len(strategy.Steps) {
		return BucketCompleted
	}
	if models.IsTerminalStatus(lead.Status) {
		return BucketNoTask
	}
	if lead.NextTaskDate == nil {
		// Task exists but is unscheduled; distinct from "no task".
		return BucketUpcoming
	}

	loc := now.Location()
	today := StartOfDay(now, loc)
	taskDay := StartOfDay(*lead.NextTaskDate, loc)

	switch {
	case taskDay.Before(today):
		return BucketOverdue
	case taskDay.After(today):
		return BucketUpcoming
	default:
		return BucketDueToday
	}
}

// IsDue reports whether the lead belongs on a session worklist.
func IsDue(now time.Time, lead *models.Lead, strategy *models.Strategy) bool {
	switch Classify(now, lead, strategy) {
	case BucketOverdue, BucketDueToday:
		return true
	}
	return false
}

// BucketCounts aggregates classifications over a set of leads. strategies
// maps strategy ID to the loaded strategy; leads whose strategy is missing
// from the map count as no_task.
func BucketCounts(now time.Time, leads []models.Lead, strategies map[uint]*models.Strategy) map[TaskBucket]int {
	counts := map[TaskBucket]int{
		BucketNoTask:    0,
		BucketCompleted: 0,
		BucketOverdue:   0,
		BucketDueToday:  0,
		BucketUpcoming:  0,
	}
	for i := range leads {
		counts[Classify(now, &leads[i], strategyFor(&leads[i], strategies))]++
	}
	return counts
}

func strategyFor(lead *models.Lead, strategies map[uint]*models.Strategy) *models.Strategy {
	if lead.StrategyID == nil {
		return nil
	}
	return strategies[*lead.StrategyID]
}
