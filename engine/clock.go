package engine

import "time"

// Clock supplies the engine's notion of "now". It is injected everywhere
// instead of reading the system time so callers can freeze it in tests and
// so one logical operation never reads the wall clock twice.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production wall clock.
var SystemClock Clock = systemClock{}

// FixedClock returns a Clock frozen at t.
func FixedClock(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// StartOfDay normalizes t to midnight in loc. All urgency comparisons are
// done at day granularity so a task scheduled 23:59 is not overdue at 00:00
// the next minute of the same day.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
