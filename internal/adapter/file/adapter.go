// Package file serves events from a local YAML file, for dashboards fed by
// scripts or kept by hand.
//
//	calendar: Team
//	events:
//	  - id: 42
//	    title: Sprint planning
//	    start: 2025-06-10 09:00
//	    end: 2025-06-10 10:00
//	    location: Room 2
//	    color: "#e67c73"
//	    avatars: [https://example.com/a.png]
//	  - title: Offsite
//	    start: 2025-06-12
package file

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gopkg.in/yaml.v3"

	"github.com/pulsedash/dashcal/internal/core"
)

const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 10
)

// accepted start/end layouts, tried in order
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

type document struct {
	Calendar string   `yaml:"calendar"`
	Events   []record `yaml:"events"`
}

type record struct {
	// string or integer in the file
	ID          any      `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Start       string   `yaml:"start"`
	End         string   `yaml:"end"`
	Location    string   `yaml:"location"`
	Color       string   `yaml:"color"`
	Avatars     []string `yaml:"avatars"`
	URL         string   `yaml:"url"`
	AllDay      *bool    `yaml:"all_day"`
}

// Adapter reads the whole file on every fetch.
type Adapter struct {
	id   string
	name string
	path string
	loc  *time.Location

	mu      sync.Mutex
	calName string
	// generated ids for records without one, keyed by title and start
	generated map[string]string
}

// NewAdapter creates a file-backed provider. Times without a zone are read in loc.
func NewAdapter(id, name, path string, loc *time.Location) *Adapter {
	if loc == nil {
		loc = time.Local
	}
	return &Adapter{
		id:        id,
		name:      name,
		path:      path,
		loc:       loc,
		generated: make(map[string]string),
	}
}

func (a *Adapter) ID() string   { return a.id }
func (a *Adapter) Name() string { return a.name }

// Login checks that the file parses.
func (a *Adapter) Login(ctx context.Context) error {
	doc, err := a.load()
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.calName = doc.Calendar
	a.mu.Unlock()
	return nil
}

// Calendars returns the single calendar described by the file.
func (a *Adapter) Calendars() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	name := a.calName
	if name == "" {
		name = a.name
	}
	return map[string]string{a.path: name}
}

func (a *Adapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	doc, err := a.load()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if doc.Calendar != "" {
		a.calName = doc.Calendar
	}
	cal := core.Calendar{ID: a.path, Name: a.calName}
	if cal.Name == "" {
		cal.Name = a.name
	}

	var results []core.Event
	for i, r := range doc.Events {
		e, err := a.toEvent(r, cal)
		if err != nil {
			log.Warn("event has no usable start", "file", a.path, "index", i, "title", r.Title, "err", err)
			continue
		}
		if !opts.InRange(e.Start) || !opts.Keep(e) {
			continue
		}
		results = append(results, e)
	}

	core.SortByStart(results)
	return results, nil
}

func (a *Adapter) load() (*document, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse events file: %w", err)
	}
	return &doc, nil
}

// toEvent converts a record. Caller holds a.mu.
func (a *Adapter) toEvent(r record, cal core.Calendar) (core.Event, error) {
	start, dateOnly, err := parseTime(r.Start, a.loc)
	if err != nil {
		return core.Event{}, err
	}
	var end time.Time
	if r.End != "" {
		if end, _, err = parseTime(r.End, a.loc); err != nil {
			log.Warn("ignoring malformed end", "file", a.path, "title", r.Title, "end", r.End)
		}
	}

	allDay := dateOnly
	if r.AllDay != nil {
		allDay = *r.AllDay
	}

	id, err := a.recordID(r)
	if err != nil {
		return core.Event{}, err
	}

	return core.Event{
		ID:          id,
		ProviderID:  a.id,
		Calendar:    cal,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Color:       r.Color,
		AvatarURLs:  r.Avatars,
		URL:         r.URL,
		Start:       start,
		End:         end,
		IsAllDay:    allDay,
	}, nil
}

func (a *Adapter) recordID(r record) (string, error) {
	if r.ID != nil {
		if s := strings.TrimSpace(fmt.Sprint(r.ID)); s != "" {
			return s, nil
		}
	}
	key := r.Title + "\x00" + r.Start
	if id, ok := a.generated[key]; ok {
		return id, nil
	}
	id, err := gonanoid.Generate(idAlphabet, idLength)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	a.generated[key] = id
	return id, nil
}

// parseTime reads s in one of the accepted layouts. dateOnly is true for YYYY-MM-DD.
func parseTime(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("missing start")
	}
	for i, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, i == len(layouts)-1, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized time %q", s)
}
