package agenda

import "time"

// Mode selects how the visible days are derived.
type Mode int

const (
	// ModeMonthly shows a Monday-start grid covering one month.
	ModeMonthly Mode = iota
	// ModeRolling shows N consecutive days starting today.
	ModeRolling
)

func (m Mode) String() string {
	if m == ModeRolling {
		return "rolling"
	}
	return "monthly"
}

// ModeFor returns ModeRolling for a positive day count, ModeMonthly otherwise.
func ModeFor(rollingDays int) Mode {
	if rollingDays > 0 {
		return ModeRolling
	}
	return ModeMonthly
}

// Window is the ordered set of days currently on screen.
type Window struct {
	Mode Mode
	// Days are local midnights in ascending order.
	Days []time.Time
	// Start is midnight of the first day, End the last instant of the last day.
	Start time.Time
	End   time.Time
	// Month is day 1 of the month cursor. Zero in rolling mode.
	Month time.Time
}

// Len returns the number of visible days.
func (w Window) Len() int { return len(w.Days) }

// Contains reports whether t lies within [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// InMonth reports whether day belongs to the window's month. Always true in rolling mode.
func (w Window) InMonth(day time.Time) bool {
	if w.Mode == ModeRolling {
		return true
	}
	return SameMonth(day, w.Month)
}

// Weeks splits a monthly window into rows of seven days.
func (w Window) Weeks() [][]time.Time {
	var rows [][]time.Time
	for i := 0; i < len(w.Days); i += 7 {
		end := min(i+7, len(w.Days))
		rows = append(rows, w.Days[i:end])
	}
	return rows
}

// RollingWindow returns max(1, days) consecutive days starting at now's date.
func RollingWindow(now time.Time, days int) Window {
	n := max(1, days)
	start := StartOfDay(now)
	list := make([]time.Time, n)
	for i := range list {
		list[i] = AddDays(start, i)
	}
	return Window{
		Mode:  ModeRolling,
		Days:  list,
		Start: start,
		End:   EndOfDay(list[n-1]),
	}
}

// MonthGrid returns every day from the Monday on or before the first of
// cursor's month through the Sunday on or after its last day.
func MonthGrid(cursor time.Time) Window {
	month := StartOfMonth(cursor)
	first := StartOfWeek(month)
	last := StartOfDay(EndOfWeek(EndOfMonth(month)))

	var list []time.Time
	for d := first; !d.After(last); d = AddDays(d, 1) {
		list = append(list, d)
	}
	return Window{
		Mode:  ModeMonthly,
		Days:  list,
		Start: first,
		End:   EndOfDay(last),
		Month: month,
	}
}

// ComputeWindow derives the visible window for the given mode.
// rollingDays is ignored in monthly mode and monthCursor in rolling mode.
func ComputeWindow(mode Mode, now time.Time, rollingDays int, monthCursor time.Time) Window {
	if mode == ModeRolling {
		return RollingWindow(now, rollingDays)
	}
	if monthCursor.IsZero() {
		monthCursor = now
	}
	return MonthGrid(monthCursor)
}

// PrevMonth returns day 1 of the month before cursor.
func PrevMonth(cursor time.Time) time.Time {
	return StartOfMonth(AddDays(StartOfMonth(cursor), -1))
}

// NextMonth returns day 1 of the month after cursor.
func NextMonth(cursor time.Time) time.Time {
	return AddDays(StartOfDay(EndOfMonth(cursor)), 1)
}
