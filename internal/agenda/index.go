package agenda

import (
	"time"

	"github.com/pulsedash/dashcal/internal/core"
)

// MaxIndicators is how many event dots a day cell shows before "+N".
const MaxIndicators = 4

// Indicators is the compact per-day summary drawn inside a cell.
type Indicators struct {
	// Events holds at most MaxIndicators events, in input order.
	Events []core.Event
	// Overflow is Total - MaxIndicators when positive, otherwise 0.
	Overflow int
	Total    int
}

// EventsOnDay returns the events whose start falls on day's local date,
// preserving input order. Events without a start never match.
func EventsOnDay(events []core.Event, day time.Time) []core.Event {
	var out []core.Event
	for _, e := range events {
		if e.HasStart() && SameDay(day, e.Start) {
			out = append(out, e)
		}
	}
	return out
}

// IndicatorsFor truncates a day's events to the visible dots and overflow count.
func IndicatorsFor(dayEvents []core.Event) Indicators {
	ind := Indicators{Total: len(dayEvents)}
	if len(dayEvents) > MaxIndicators {
		ind.Events = dayEvents[:MaxIndicators]
		ind.Overflow = len(dayEvents) - MaxIndicators
	} else {
		ind.Events = dayEvents
	}
	return ind
}

// GroupByDay buckets events by the visible day they start on.
// The result has one entry per day, in the same order as days.
func GroupByDay(events []core.Event, days []time.Time) [][]core.Event {
	out := make([][]core.Event, len(days))
	if len(days) == 0 {
		return out
	}

	loc := days[0].Location()
	pos := make(map[time.Time]int, len(days))
	for i, d := range days {
		pos[StartOfDay(d.In(loc))] = i
	}

	for _, e := range events {
		if !e.HasStart() {
			continue
		}
		if i, ok := pos[StartOfDay(e.Start.In(loc))]; ok {
			out[i] = append(out[i], e)
		}
	}
	return out
}
