package engine

import (
	"sort"

	"leadpilot/models"
)

// IndexedStep pairs a step with its original index in the strategy's step
// slice. The index is what edit screens use to address a step, so it must
// survive the grouping.
type IndexedStep struct {
	Index int                 `json:"index"`
	Step  models.StrategyStep `json:"step"`
}

// DayGroup is all steps sharing one day offset, in original relative order.
type DayGroup struct {
	DayOffset int           `json:"day_offset"`
	Steps     []IndexedStep `json:"steps"`
}

// GroupByDay projects steps into day groups ordered by ascending day
// offset. Within a group, steps keep their original relative order. The
// input is never mutated; empty input yields an empty (non-nil) grouping.
func GroupByDay(steps []models.StrategyStep) []DayGroup {
	groups := make([]DayGroup, 0)
	byOffset := make(map[int]int) // day offset -> index in groups

	for i, step := range steps {
		gi, ok := byOffset[step.DayOffset]
		if !ok {
			gi = len(groups)
			byOffset[step.DayOffset] = gi
			groups = append(groups, DayGroup{DayOffset: step.DayOffset})
		}
		groups[gi].Steps = append(groups[gi].Steps, IndexedStep{Index: i, Step: step})
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].DayOffset < groups[b].DayOffset
	})
	return groups
}
