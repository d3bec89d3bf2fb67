// Package ics reads events from an iCalendar feed, either a local .ics file
// or an http(s) URL. Recurrence rules are not expanded; only the first
// occurrence of a recurring event is shown.
package ics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/charmbracelet/log"

	"github.com/pulsedash/dashcal/internal/core"
)

// Adapter is a single-calendar provider backed by one .ics source.
type Adapter struct {
	id     string
	name   string
	source string
	client *http.Client

	calName string
}

// NewAdapter creates an adapter for source, which is a file path or URL.
func NewAdapter(id, name, source string) *Adapter {
	return &Adapter{
		id:     id,
		name:   name,
		source: source,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) ID() string   { return a.id }
func (a *Adapter) Name() string { return a.name }

// Login fetches the feed once to confirm it is reachable and learn its name.
func (a *Adapter) Login(ctx context.Context) error {
	if a.source == "" {
		return fmt.Errorf("no ics source configured")
	}
	cal, err := a.load(ctx)
	if err != nil {
		return err
	}
	a.calName = calendarName(cal, a.name)
	return nil
}

// Calendars returns the single calendar this feed represents.
func (a *Adapter) Calendars() map[string]string {
	name := a.calName
	if name == "" {
		name = a.name
	}
	return map[string]string{a.source: name}
}

// FetchEvents re-reads the feed and returns events starting inside opts' range.
func (a *Adapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	cal, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	if a.calName == "" {
		a.calName = calendarName(cal, a.name)
	}
	c := core.Calendar{ID: a.source, Name: a.calName}

	var results []core.Event
	for _, ve := range cal.Events() {
		e, err := parseVEvent(ve, a.id, c)
		if err != nil {
			log.Warn("skipping ics event", "source", a.source, "err", err)
			continue
		}
		if !e.HasStart() {
			log.Warn("ics event without start", "source", a.source, "id", e.ID)
			continue
		}
		if !opts.InRange(e.Start) || !opts.Keep(e) {
			continue
		}
		results = append(results, e)
	}

	core.SortByStart(results)
	log.Debug("ics fetch completed", "source", a.source, "events", len(results))
	return results, nil
}

func (a *Adapter) load(ctx context.Context) (*ical.Calendar, error) {
	body, err := a.read(ctx)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty ics body from %s", a.source)
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}
	return cal, nil
}

func (a *Adapter) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(a.source, "http://") && !strings.HasPrefix(a.source, "https://") {
		b, err := os.ReadFile(a.source)
		if err != nil {
			return nil, fmt.Errorf("read ics file: %w", err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ics: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func calendarName(cal *ical.Calendar, fallback string) string {
	for _, p := range cal.CalendarProperties {
		if p.IANAToken == "X-WR-CALNAME" && p.Value != "" {
			return p.Value
		}
	}
	return fallback
}

func parseVEvent(ve *ical.VEvent, providerID string, cal core.Calendar) (core.Event, error) {
	e := core.Event{ProviderID: providerID, Calendar: cal}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return e, fmt.Errorf("missing UID")
	}
	e.ID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		e.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		e.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		e.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil {
		e.URL = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyColor); p != nil {
		e.Color = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		log.Debug("recurrence not expanded", "uid", e.ID, "rrule", p.Value)
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		e.IsAllDay = isDateValue(p)
	}

	// a malformed DTSTART leaves Start zero; callers drop such events
	if e.IsAllDay {
		start, _ := ve.GetAllDayStartAt()
		end, _ := ve.GetAllDayEndAt()
		e.Start = localDate(start)
		e.End = localDate(end)
	} else {
		e.Start, _ = ve.GetStartAt()
		e.End, _ = ve.GetEndAt()
	}

	return e, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return p.Value != "" && !strings.Contains(p.Value, "T")
}

func localDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
