// Package engine implements the outreach sequence engine: classifying leads
// into urgency buckets, projecting a strategy's steps into a day timeline,
// advancing a lead through its strategy, and walking a worklist of due leads
// in single or session mode.
//
// All functions here are pure computations over in-memory snapshots. The
// engine performs no I/O; fetching and saving leads, strategies and
// activities belongs to the caller.
package engine

import (
	"errors"
	"time"

	"leadpilot/models"
)

// TaskBucket is the urgency classification of a lead's pending task.
type TaskBucket string

const (
	BucketNoTask    TaskBucket = "no_task"
	BucketCompleted TaskBucket = "completed"
	BucketOverdue   TaskBucket = "overdue"
	BucketDueToday  TaskBucket = "due_today"
	BucketUpcoming  TaskBucket = "upcoming"
)

// Precondition violations surfaced by Advance. These are programmer errors
// on the calling side and must abort the operation, never be coerced.
var (
	ErrStepMismatch     = errors.New("engine: completed step is not the lead's current step")
	ErrStrategyMismatch = errors.New("engine: strategy does not match the lead's assigned strategy")
)

// ActivityRecord describes the activity the caller should append after a
// completed step. The engine produces it; writing it is delegated.
type ActivityRecord struct {
	LeadID          uint
	Action          string
	Platform        string
	Note            string
	IsFirstOutreach bool
	ActivityAt      time.Time
}

// StepResult is the outcome of advancing a lead one step.
type StepResult struct {
	Lead         models.Lead // updated copy; caller persists it
	Activity     ActivityRecord
	SequenceDone bool
}
