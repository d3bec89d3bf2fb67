package agenda

import "time"

// Clock returns the current instant. Tests inject a fixed one.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time { return time.Now() }

// ClockIn reads the wall clock in loc, so day boundaries follow loc
// rather than the host zone. A nil loc means time.Local.
func ClockIn(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

// StartOfDay returns local midnight of t's calendar date in t's location.
// Every same-day comparison in this package goes through it.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar date.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// AddDays moves t by n calendar days, keeping wall-clock time across DST shifts.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// SameDay reports whether a and b fall on the same calendar date in a's location.
func SameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return StartOfDay(a).Equal(StartOfDay(b.In(a.Location())))
}

// StartOfMonth returns midnight on day 1 of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last instant of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	// Monday = 0 ... Sunday = 6
	offset := (int(t.Weekday()) + 6) % 7
	return StartOfDay(AddDays(t, -offset))
}

// EndOfWeek returns the last instant of the Sunday on or after t.
func EndOfWeek(t time.Time) time.Time {
	return EndOfDay(AddDays(StartOfWeek(t), 6))
}

// SameMonth reports whether a and b share year and month.
func SameMonth(a, b time.Time) bool {
	ay, am, _ := a.Date()
	by, bm, _ := b.In(a.Location()).Date()
	return ay == by && am == bm
}
