package engine

import (
	"time"

	"leadpilot/models"
)

// Advance completes the step at completedStepIndex for lead and returns the
// lead's next state plus the activity record to append.
//
// Preconditions: completedStepIndex must equal the lead's current step index
// and strategy must be the lead's assigned strategy. Violations return an
// error and leave the input untouched; they are never coerced.
//
// The next task date is computed from now (the actual completion moment),
// not from the enrollment date, so a late completion pushes every later
// step out by the same delay. The clock is read exactly once per call so a
// day boundary cannot race a single advancement.
func Advance(clock Clock, lead models.Lead, strategy models.Strategy, completedStepIndex int) (StepResult, error) {
	if lead.StrategyID == nil || *lead.StrategyID != strategy.ID {
		return StepResult{}, ErrStrategyMismatch
	}
	if completedStepIndex != lead.CurrentStepIndex {
		return StepResult{}, ErrStepMismatch
	}

	now := clock.Now()

	// Empty or already-exhausted strategies are treated as terminal
	// structures so read paths stay resilient (they should have been
	// rejected at save time).
	if len(strategy.Steps) == 0 || completedStepIndex >= len(strategy.Steps) {
		return finishSequence(lead, now), nil
	}

	completedStep := strategy.Steps[completedStepIndex]
	activity := ActivityRecord{
		LeadID:          lead.ID,
		Action:          completedStep.Action,
		Platform:        models.PlatformForAction(completedStep.Action),
		IsFirstOutreach: completedStepIndex == 0,
		ActivityAt:      now,
	}

	nextIndex := completedStepIndex + 1
	if nextIndex >= len(strategy.Steps) {
		result := finishSequence(lead, now)
		result.Activity = activity
		return result, nil
	}

	nextStep := strategy.Steps[nextIndex]
	deltaDays := nextStep.DayOffset - completedStep.DayOffset
	if deltaDays < 0 {
		// Steps stored out of day order; never schedule into the past.
		deltaDays = 0
	}
	nextDate := now.AddDate(0, 0, deltaDays)

	lead.CurrentStepIndex = nextIndex
	lead.NextTaskDate = &nextDate
	lead.Status = models.StatusInProgress

	return StepResult{Lead: lead, Activity: activity}, nil
}

// finishSequence marks the lead's sequence exhausted. Status becomes
// replied for store compatibility; SequenceCompleted distinguishes
// exhaustion from a genuine reply.
func finishSequence(lead models.Lead, now time.Time) StepResult {
	lead.CurrentStepIndex = lead.CurrentStepIndex + 1
	lead.NextTaskDate = nil
	lead.Status = models.StatusReplied
	lead.SequenceCompleted = true
	return StepResult{Lead: lead, SequenceDone: true}
}
