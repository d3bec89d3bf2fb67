package core

import (
	"context"
	"time"
)

// FetchOptions configures which events to retrieve.
type FetchOptions struct {
	Start time.Time
	End   time.Time

	// Filter by calendar ID. Empty means all calendars.
	CalendarIDs []string

	// ExcludeAllDay filters out all-day events when true.
	ExcludeAllDay bool
}

// Keep reports whether an event passes the non-range filters in opts.
// Providers apply the time range themselves.
func (o FetchOptions) Keep(e Event) bool {
	if o.ExcludeAllDay && e.IsAllDay {
		return false
	}
	if len(o.CalendarIDs) == 0 {
		return true
	}
	for _, id := range o.CalendarIDs {
		if id == e.Calendar.ID {
			return true
		}
	}
	return false
}

// InRange reports whether t falls in [Start, End). A zero bound is open.
func (o FetchOptions) InRange(t time.Time) bool {
	if !o.Start.IsZero() && t.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && !t.Before(o.End) {
		return false
	}
	return true
}

// Provider represents a calendar source (Google, Outlook, an .ics feed, a local file).
type Provider interface {
	// ID returns the unique identifier from the config (e.g. "work_calendar")
	ID() string
	// Name returns a human-readable label (e.g. "Work Account")
	Name() string
	// FetchEvents retrieves events matching the given options.
	// This should block until done or context is cancelled.
	FetchEvents(ctx context.Context, opts FetchOptions) ([]Event, error)
}

// CalendarSource is a Provider that can also authenticate and list calendars.
type CalendarSource interface {
	Provider
	Login(ctx context.Context) error
	// Calendars returns the available calendars (ID -> Name).
	Calendars() map[string]string
}
