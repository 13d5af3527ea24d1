package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"leadpilot/models"
)

func testStrategy(id uint, offsets ...int) *models.Strategy {
	s := &models.Strategy{Model: gorm.Model{ID: id}, Name: "test"}
	for i, off := range offsets {
		s.Steps = append(s.Steps, models.StrategyStep{
			StrategyID: id,
			Position:   i,
			DayOffset:  off,
			Action:     models.ActionSendDM,
		})
	}
	return s
}

func testLead(id uint, strategyID *uint, stepIndex int, next *time.Time, status string) *models.Lead {
	return &models.Lead{
		Model:            gorm.Model{ID: id},
		CompanyName:      "Acme Plumbing",
		StrategyID:       strategyID,
		CurrentStepIndex: stepIndex,
		NextTaskDate:     next,
		Status:           status,
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrUint(v uint) *uint { return &v }

func TestClassifyBuckets(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	strategy := testStrategy(1, 0, 3, 7)

	tests := []struct {
		name string
		lead *models.Lead
		want TaskBucket
	}{
		{
			name: "no strategy assigned",
			lead: testLead(1, nil, 0, nil, models.StatusNotContacted),
			want: BucketNoTask,
		},
		{
			name: "cursor past last step",
			lead: testLead(2, ptrUint(1), 3, nil, models.StatusInProgress),
			want: BucketCompleted,
		},
		{
			name: "yesterday is overdue",
			lead: testLead(3, ptrUint(1), 1, ptrTime(now.AddDate(0, 0, -1)), models.StatusInProgress),
			want: BucketOverdue,
		},
		{
			name: "same day is due today",
			lead: testLead(4, ptrUint(1), 1, ptrTime(now.Add(5*time.Hour)), models.StatusInProgress),
			want: BucketDueToday,
		},
		{
			name: "tomorrow is upcoming",
			lead: testLead(5, ptrUint(1), 1, ptrTime(now.AddDate(0, 0, 1)), models.StatusInProgress),
			want: BucketUpcoming,
		},
		{
			name: "unscheduled but sequence not complete",
			lead: testLead(6, ptrUint(1), 1, nil, models.StatusInProgress),
			want: BucketUpcoming,
		},
		{
			name: "terminal status hides stale overdue date",
			lead: testLead(7, ptrUint(1), 1, ptrTime(now.AddDate(0, 0, -10)), models.StatusClosedWon),
			want: BucketNoTask,
		},
		{
			name: "replied lead is out of the queue",
			lead: testLead(8, ptrUint(1), 1, ptrTime(now), models.StatusReplied),
			want: BucketNoTask,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(now, tt.lead, strategy))
		})
	}
}

func TestClassifyDayBoundary(t *testing.T) {
	// A task at 23:59 must read as due_today all day and flip to overdue
	// only when the calendar day rolls over, regardless of clock distance.
	task := ptrTime(time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC))
	strategy := testStrategy(1, 0, 3)
	lead := testLead(1, ptrUint(1), 0, task, models.StatusInProgress)

	sameDay := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, BucketDueToday, Classify(sameDay, lead, strategy))

	nextDay := time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, BucketOverdue, Classify(nextDay, lead, strategy))
}

func TestClassifyNilInputs(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, BucketNoTask, Classify(now, nil, nil))

	// Assigned strategy id but strategy record missing: read path must not
	// panic and the lead has nothing actionable.
	lead := testLead(1, ptrUint(9), 0, ptrTime(now), models.StatusInProgress)
	assert.Equal(t, BucketNoTask, Classify(now, lead, nil))
}

func TestClassifyEmptyStrategyIsTerminal(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	strategy := testStrategy(1) // no steps
	lead := testLead(1, ptrUint(1), 0, ptrTime(now), models.StatusInProgress)
	assert.Equal(t, BucketCompleted, Classify(now, lead, strategy))
}

func TestBucketCounts(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	strategy := testStrategy(1, 0, 3)
	strategies := map[uint]*models.Strategy{1: strategy}

	leads := []models.Lead{
		*testLead(1, ptrUint(1), 0, ptrTime(now.AddDate(0, 0, -2)), models.StatusInProgress),
		*testLead(2, ptrUint(1), 0, ptrTime(now), models.StatusInProgress),
		*testLead(3, ptrUint(1), 0, ptrTime(now.AddDate(0, 0, 4)), models.StatusInProgress),
		*testLead(4, nil, 0, nil, models.StatusNotContacted),
		*testLead(5, ptrUint(1), 2, nil, models.StatusInProgress),
		*testLead(6, ptrUint(1), 0, ptrTime(now.AddDate(0, 0, -5)), models.StatusClosedLost),
	}

	counts := BucketCounts(now, leads, strategies)
	assert.Equal(t, 1, counts[BucketOverdue])
	assert.Equal(t, 1, counts[BucketDueToday])
	assert.Equal(t, 1, counts[BucketUpcoming])
	assert.Equal(t, 2, counts[BucketNoTask])
	assert.Equal(t, 1, counts[BucketCompleted])
}
