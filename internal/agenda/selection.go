package agenda

import "time"

// Selection holds the highlighted day. A zero time means nothing is selected.
type Selection interface {
	Selected() time.Time
	Select(day time.Time)
}

// owned keeps the selection in the calendar itself.
type owned struct {
	day time.Time
}

// Owned returns a selection held by the calendar, starting at initial.
func Owned(initial time.Time) Selection {
	return &owned{day: initial}
}

func (o *owned) Selected() time.Time { return o.day }
func (o *owned) Select(day time.Time) { o.day = day }

// delegated forwards every read and write to an outside owner.
type delegated struct {
	value    func() time.Time
	onSelect func(time.Time)
}

// Delegated returns a selection owned by the caller. value is read on every
// render and onSelect is notified on clicks; no copy is kept, so the display
// only changes once the owner updates what value returns.
func Delegated(value func() time.Time, onSelect func(time.Time)) Selection {
	return &delegated{value: value, onSelect: onSelect}
}

func (d *delegated) Selected() time.Time {
	if d.value == nil {
		return time.Time{}
	}
	return d.value()
}

func (d *delegated) Select(day time.Time) {
	if d.onSelect != nil {
		d.onSelect(day)
	}
}

// IsDelegated reports whether s forwards to an outside owner.
func IsDelegated(s Selection) bool {
	_, ok := s.(*delegated)
	return ok
}
