package core

import (
	"slices"
	"time"
)

// DefaultColor is used for event dots and accents when a source has no color.
const DefaultColor = "#10B981"

// Calendar represents the calendar an event belongs to.
type Calendar struct {
	// Calendar ID (e.g., "primary", "team@example.com", feed URL)
	ID string
	// Human-readable name (e.g., "Work", "Company Holidays")
	Name string
}

// All providers (Google, Outlook, ICS, file) must convert their data to this format.
type Event struct {
	// Unique ID (provided by the source). Numeric ids are stored as their decimal text.
	ID string
	// The ID of the provider source (e.g., "google")
	ProviderID string
	// Which calendar this event belongs to
	Calendar Calendar
	// Details
	Title       string
	Description string
	Location    string
	// Hex color for dots and the agenda accent bar
	Color string
	// Avatar images of the people involved, display only
	AvatarURLs []string
	// Calendar event page URL
	URL string
	// Timing. A zero Start marks a malformed event.
	Start    time.Time
	End      time.Time
	IsAllDay bool
}

// HasStart reports whether the event carries a usable start instant.
func (e Event) HasStart() bool {
	return !e.Start.IsZero()
}

// DisplayColor returns the event color, falling back to DefaultColor.
func (e Event) DisplayColor() string {
	if e.Color == "" {
		return DefaultColor
	}
	return e.Color
}

// Duration returns the length of the event, or zero when it has no end.
func (e Event) Duration() time.Duration {
	if e.End.IsZero() {
		return 0
	}
	return e.End.Sub(e.Start)
}

// InProgress checks if the event is happening right now.
func (e Event) InProgress(now time.Time) bool {
	return now.After(e.Start) && now.Before(e.End)
}

// SortByStart orders events by start time in place, keeping ties in input order.
func SortByStart(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return a.Start.Compare(b.Start)
	})
}
