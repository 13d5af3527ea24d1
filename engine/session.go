package engine

import (
	"sort"
	"time"

	"leadpilot/models"
)

// RunnerState is the traversal state of a Runner.
type RunnerState string

const (
	StateIdle    RunnerState = "idle"
	StateSingle  RunnerState = "single"
	StateSession RunnerState = "session"
	StateDone    RunnerState = "done"
)

// WorklistEntry is one due lead on a session worklist, captured at session
// start. The worklist is a snapshot; it is not reactive to concurrent
// changes while the session runs.
type WorklistEntry struct {
	LeadID       uint       `json:"lead_id"`
	CompanyName  string     `json:"company_name"`
	NextTaskDate *time.Time `json:"next_task_date,omitempty"`
	Bucket       TaskBucket `json:"bucket"`
}

// Summary describes a finished or aborted session.
type Summary struct {
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Skipped   int       `json:"skipped"`
	StartedAt time.Time `json:"started_at"`
}

// BuildWorklist snapshots every overdue or due-today lead, sorted ascending
// by next task date. Entries without a date sort last; ties keep input
// order.
func BuildWorklist(now time.Time, leads []models.Lead, strategies map[uint]*models.Strategy) []WorklistEntry {
	entries := make([]WorklistEntry, 0)
	for i := range leads {
		lead := &leads[i]
		bucket := Classify(now, lead, strategyFor(lead, strategies))
		if bucket != BucketOverdue && bucket != BucketDueToday {
			continue
		}
		entries = append(entries, WorklistEntry{
			LeadID:       lead.ID,
			CompanyName:  lead.CompanyName,
			NextTaskDate: lead.NextTaskDate,
			Bucket:       bucket,
		})
	}
	sortWorklist(entries)
	return entries
}

// sortWorklist orders entries ascending by next task date, nil dates last,
// keeping input order for ties.
func sortWorklist(entries []WorklistEntry) {
	sort.SliceStable(entries, func(a, b int) bool {
		da, db := entries[a].NextTaskDate, entries[b].NextTaskDate
		if da == nil {
			return false
		}
		if db == nil {
			return true
		}
		return da.Before(*db)
	})
}

// Runner walks a worklist of due leads. A Runner is owned by exactly one
// session; it is not safe for concurrent use and is never shared between
// operators.
type Runner struct {
	state    RunnerState
	worklist []WorklistEntry
	position int

	completed int
	skipped   int
	startedAt time.Time
}

// NewRunner creates an idle Runner over a snapshot worklist.
func NewRunner(worklist []WorklistEntry) *Runner {
	return &Runner{state: StateIdle, worklist: worklist}
}

// State returns the runner's current traversal state.
func (r *Runner) State() RunnerState { return r.state }

// Worklist returns the snapshot fixed at construction.
func (r *Runner) Worklist() []WorklistEntry { return r.worklist }

// OpenSingle opens exactly one lead outside of session order. Completing or
// skipping it returns the runner to idle without touching any other lead.
func (r *Runner) OpenSingle() {
	r.state = StateSingle
}

// FinishSingle closes single mode.
func (r *Runner) FinishSingle() {
	if r.state == StateSingle {
		r.state = StateIdle
	}
}

// StartSession begins a session walk at the first worklist entry. An empty
// worklist goes straight to done.
func (r *Runner) StartSession(now time.Time) (*WorklistEntry, bool) {
	r.startedAt = now
	r.position = 0
	if len(r.worklist) == 0 {
		r.state = StateDone
		return nil, false
	}
	r.state = StateSession
	entry := r.worklist[0]
	return &entry, true
}

// Current returns the entry the session is positioned on.
func (r *Runner) Current() (*WorklistEntry, bool) {
	if r.state != StateSession || r.position >= len(r.worklist) {
		return nil, false
	}
	entry := r.worklist[r.position]
	return &entry, true
}

// Complete records the lead as processed and advances to the next entry.
// Running the actual step advancement and persisting it is the caller's
// job; the runner only owns traversal.
func (r *Runner) Complete(leadID uint) (*WorklistEntry, bool) {
	r.completed++
	return r.advancePast(leadID)
}

// Skip advances past the lead without processing it. Skip and Complete are
// symmetric position moves; they differ only in whether step completion ran.
func (r *Runner) Skip(leadID uint) (*WorklistEntry, bool) {
	r.skipped++
	return r.advancePast(leadID)
}

// advancePast finds leadID on the worklist and moves to the entry after it.
// Position is recovered by id lookup, not by trusting the stored index, so
// the walk survives leads changing underneath it. If the id is gone the
// lead is treated as already resolved and the walk continues from the
// stored position.
func (r *Runner) advancePast(leadID uint) (*WorklistEntry, bool) {
	if r.state != StateSession {
		return nil, false
	}

	next := r.position + 1
	for i := range r.worklist {
		if r.worklist[i].LeadID == leadID {
			next = i + 1
			break
		}
	}

	if next >= len(r.worklist) {
		r.state = StateDone
		return nil, false
	}
	r.position = next
	entry := r.worklist[next]
	return &entry, true
}

// Abort exits the session immediately, discarding the remaining worklist.
// There is no partial-session resumption.
func (r *Runner) Abort() {
	if r.state == StateSession || r.state == StateSingle {
		r.state = StateIdle
	}
}

// Summary reports what the session walk did so far.
func (r *Runner) Summary() Summary {
	return Summary{
		Total:     len(r.worklist),
		Completed: r.completed,
		Skipped:   r.skipped,
		StartedAt: r.startedAt,
	}
}
