package agenda

import (
	"fmt"
	"time"

	"github.com/pulsedash/dashcal/internal/core"
)

// Options configures a Calendar.
type Options struct {
	// RollingDays > 0 selects rolling mode with that many days; otherwise monthly.
	RollingDays int
	// InitialMonth seeds the month cursor. Zero means the current month.
	InitialMonth time.Time
	// Selection is nil for an owned selection defaulting to today.
	Selection Selection
	Events    []core.Event
	// AgendaLimit <= 0 means DefaultLimit.
	AgendaLimit int
	Clock       Clock
	// Location is the display zone for day boundaries. Nil means time.Local.
	Location *time.Location
}

// DayCell is everything a renderer needs for one visible day.
type DayCell struct {
	Day        time.Time
	InMonth    bool
	Selected   bool
	Today      bool
	Indicators Indicators
}

// DayRenderer draws a single day cell.
type DayRenderer interface {
	RenderDay(cell DayCell) string
}

// AgendaRenderer draws a single agenda entry.
type AgendaRenderer interface {
	RenderEvent(e core.Event) string
}

// Calendar derives the visible window, per-day indicators and the agenda
// from a set of events. It is not safe for concurrent use; derived values
// are recomputed on every call.
type Calendar struct {
	mode        Mode
	rollingDays int
	limit       int
	loc         *time.Location
	clock       Clock

	now         time.Time
	monthCursor time.Time
	selection   Selection
	events      []core.Event
}

// New builds a Calendar. The selection variant is fixed here.
func New(opts Options) *Calendar {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	c := &Calendar{
		mode:        ModeFor(opts.RollingDays),
		rollingDays: opts.RollingDays,
		limit:       opts.AgendaLimit,
		loc:         loc,
		clock:       clock,
		events:      opts.Events,
	}
	c.now = clock().In(loc)

	cursor := opts.InitialMonth
	if cursor.IsZero() {
		cursor = c.now
	}
	c.monthCursor = StartOfMonth(cursor.In(loc))

	c.selection = opts.Selection
	if c.selection == nil {
		c.selection = Owned(c.now)
	}
	return c
}

func (c *Calendar) Mode() Mode             { return c.mode }
func (c *Calendar) Now() time.Time         { return c.now }
func (c *Calendar) Today() time.Time       { return StartOfDay(c.now) }
func (c *Calendar) MonthCursor() time.Time { return c.monthCursor }
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// RollingLen is the effective rolling window length.
func (c *Calendar) RollingLen() int { return max(1, c.rollingDays) }

// Limit is the effective agenda length.
func (c *Calendar) Limit() int {
	if c.limit <= 0 {
		return DefaultLimit
	}
	return c.limit
}

// SetNow replaces the current instant, typically from a midnight rollover.
func (c *Calendar) SetNow(now time.Time) {
	c.now = now.In(c.loc)
}

// Refresh reads the clock again.
func (c *Calendar) Refresh() {
	c.SetNow(c.clock())
}

// SetEvents replaces the event set.
func (c *Calendar) SetEvents(events []core.Event) {
	c.events = events
}

// Events returns the current event set.
func (c *Calendar) Events() []core.Event { return c.events }

// Window returns the visible days for the current mode.
func (c *Calendar) Window() Window {
	return ComputeWindow(c.mode, c.now, c.rollingDays, c.monthCursor)
}

// Selected returns the effective selected day: the selection's value, or
// today when nothing is selected.
func (c *Calendar) Selected() time.Time {
	sel := c.selection.Selected()
	if sel.IsZero() {
		return c.Today()
	}
	return StartOfDay(sel.In(c.loc))
}

// Select records a click on day. An owned selection updates immediately; a
// delegated one only notifies its owner. The month cursor never moves.
func (c *Calendar) Select(day time.Time) {
	c.selection.Select(StartOfDay(day.In(c.loc)))
}

// PrevMonth moves the month cursor back one month. Selection is untouched.
func (c *Calendar) PrevMonth() {
	c.monthCursor = PrevMonth(c.monthCursor)
}

// NextMonth moves the month cursor forward one month. Selection is untouched.
func (c *Calendar) NextMonth() {
	c.monthCursor = NextMonth(c.monthCursor)
}

// GotoMonth points the month cursor at t's month.
func (c *Calendar) GotoMonth(t time.Time) {
	c.monthCursor = StartOfMonth(t.In(c.loc))
}

// Cells returns one DayCell per visible day.
func (c *Calendar) Cells() []DayCell {
	w := c.Window()
	groups := GroupByDay(c.events, w.Days)
	selected := c.Selected()
	today := c.Today()

	cells := make([]DayCell, len(w.Days))
	for i, d := range w.Days {
		cells[i] = DayCell{
			Day:        d,
			InMonth:    w.InMonth(d),
			Selected:   SameDay(d, selected),
			Today:      SameDay(d, today),
			Indicators: IndicatorsFor(groups[i]),
		}
	}
	return cells
}

// EventsOn returns the events starting on day.
func (c *Calendar) EventsOn(day time.Time) []core.Event {
	return EventsOnDay(c.events, day.In(c.loc))
}

// Upcoming returns the agenda list for the current state.
func (c *Calendar) Upcoming() []core.Event {
	return Upcoming(c.events, c.mode, c.Window(), c.Selected(), c.limit)
}

// RenderCells draws every visible cell with r.
func (c *Calendar) RenderCells(r DayRenderer) []string {
	cells := c.Cells()
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = r.RenderDay(cell)
	}
	return out
}

// RenderAgenda draws every agenda entry with r.
func (c *Calendar) RenderAgenda(r AgendaRenderer) []string {
	up := c.Upcoming()
	out := make([]string, len(up))
	for i, e := range up {
		out[i] = r.RenderEvent(e)
	}
	return out
}

// FetchRange is the [start, end) interval a provider must cover for the
// current state. Monthly agendas run past the grid, so end extends to
// horizonDays after the selected day; a selection before the grid pulls
// start back with it.
func (c *Calendar) FetchRange(horizonDays int) (time.Time, time.Time) {
	w := c.Window()
	start := w.Start
	end := AddDays(StartOfDay(w.End), 1)
	if c.mode == ModeRolling {
		return start, end
	}
	sel := c.Selected()
	if sel.Before(start) {
		start = sel
	}
	if horizon := AddDays(sel, max(0, horizonDays)+1); horizon.After(end) {
		end = horizon
	}
	return start, end
}

// Heading is the title above the grid: "Next N days" or "January 2006".
func (c *Calendar) Heading() string {
	if c.mode == ModeRolling {
		return fmt.Sprintf("Next %d days", c.RollingLen())
	}
	return c.monthCursor.Format("January 2006")
}

// AgendaHeading returns the agenda title and, in monthly mode, a subtitle
// naming the day the list starts from.
func (c *Calendar) AgendaHeading() (title, subtitle string) {
	if c.mode == ModeRolling {
		return "Events until " + c.Window().End.Format("Jan 2, 2006"), ""
	}
	return "Upcoming events", "From " + c.Selected().Format("Jan 2, 2006")
}
