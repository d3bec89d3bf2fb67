package agenda

import (
	"slices"
	"time"

	"github.com/pulsedash/dashcal/internal/core"
)

// DefaultLimit is the agenda length when none is configured.
const DefaultLimit = 6

// Upcoming selects the agenda list.
//
// In rolling mode it keeps events starting inside the window, both ends
// inclusive. In monthly mode it keeps everything starting on or after the
// selected day, with no upper bound. The result is sorted by start (stable
// for ties) and cut to limit; limit <= 0 means DefaultLimit.
func Upcoming(events []core.Event, mode Mode, w Window, selected time.Time, limit int) []core.Event {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var keep func(core.Event) bool
	if mode == ModeRolling {
		keep = func(e core.Event) bool { return w.Contains(e.Start) }
	} else {
		lower := StartOfDay(selected)
		keep = func(e core.Event) bool { return !e.Start.Before(lower) }
	}

	out := make([]core.Event, 0, min(len(events), limit))
	for _, e := range events {
		if e.HasStart() && keep(e) {
			out = append(out, e)
		}
	}

	slices.SortStableFunc(out, func(a, b core.Event) int {
		return a.Start.Compare(b.Start)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
