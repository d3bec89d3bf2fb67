package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pulsedash/dashcal/internal/core"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// eventColors maps Google's event colorId palette to hex.
var eventColors = map[string]string{
	"1":  "#7986cb",
	"2":  "#33b679",
	"3":  "#8e24aa",
	"4":  "#e67c73",
	"5":  "#f6bf26",
	"6":  "#f4511e",
	"7":  "#039be5",
	"8":  "#616161",
	"9":  "#3f51b5",
	"10": "#0b8043",
	"11": "#d50000",
}

type GoogleAdapter struct {
	id        string
	name      string
	client    *http.Client
	service   *calendar.Service
	config    *oauth2.Config
	credsFile string
	tokenFile string
	calendars map[string]string
	// calendar ID -> background color, used when an event has no colorId
	colors map[string]string
}

func NewGoogleAdapter(id, name, credsFile, tokenFile string) *GoogleAdapter {
	return &GoogleAdapter{
		id:        id,
		name:      name,
		credsFile: credsFile,
		tokenFile: tokenFile,
		calendars: make(map[string]string),
		colors:    make(map[string]string),
	}
}

func (g *GoogleAdapter) ID() string   { return g.id }
func (g *GoogleAdapter) Name() string { return g.name }

// Login loads credentials and token, then initializes the Calendar service.
// Run `dashcal auth` first to generate the token file.
func (g *GoogleAdapter) Login(ctx context.Context) error {
	b, err := os.ReadFile(g.credsFile)
	if err != nil {
		return fmt.Errorf("read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}
	g.config = config

	tok, err := tokenFromFile(g.tokenFile)
	if err != nil {
		return fmt.Errorf("read token file (run 'dashcal auth' first): %w", err)
	}

	g.client = g.config.Client(ctx, tok)
	g.service, err = calendar.NewService(ctx, option.WithHTTPClient(g.client))
	if err != nil {
		return err
	}

	if err := g.loadCalendarList(ctx); err != nil {
		return fmt.Errorf("load calendar list: %w", err)
	}

	return nil
}

// loadCalendarList fetches all calendars the user has access to.
func (g *GoogleAdapter) loadCalendarList(ctx context.Context) error {
	calList, err := g.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return err
	}

	for _, cal := range calList.Items {
		g.calendars[cal.Id] = cal.Summary
		if cal.BackgroundColor != "" {
			g.colors[cal.Id] = cal.BackgroundColor
		}
	}
	log.Debug("loaded google calendars", "count", len(g.calendars))
	return nil
}

// Calendars returns a list of available calendars (ID -> Name).
func (g *GoogleAdapter) Calendars() map[string]string {
	return g.calendars
}

// tokenFromFile reads an OAuth token from a JSON file.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func (g *GoogleAdapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	var results []core.Event

	calendarIDs := opts.CalendarIDs
	if len(calendarIDs) == 0 {
		for calID := range g.calendars {
			calendarIDs = append(calendarIDs, calID)
		}
	}

	seen := make(map[string]bool)
	for _, calID := range calendarIDs {
		if _, exists := g.calendars[calID]; !exists {
			continue
		}
		events, err := g.fetchEventsFromCalendar(ctx, calID, opts)
		if err != nil {
			log.Warn("skipping calendar", "provider", g.id, "calendar", calID, "err", err)
			continue
		}
		for _, e := range events {
			// the same invite shows up once per calendar it was sent to
			if e.uid != "" {
				if seen[e.uid] {
					continue
				}
				seen[e.uid] = true
			}
			results = append(results, e.Event)
		}
	}

	core.SortByStart(results)
	return results, nil
}

type fetched struct {
	core.Event
	uid string
}

func (g *GoogleAdapter) fetchEventsFromCalendar(ctx context.Context, calendarID string, opts core.FetchOptions) ([]fetched, error) {
	// Google API requires RFC3339 format
	tMin := opts.Start.Format(time.RFC3339)
	tMax := opts.End.Format(time.RFC3339)

	var results []fetched
	pageToken := ""

	calendarName := g.calendars[calendarID]

	for {
		req := g.service.Events.List(calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(tMin).
			TimeMax(tMax).
			OrderBy("startTime").
			Context(ctx)

		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		eventsResult, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("api call failed for calendar %s: %w", calendarID, err)
		}

		for _, item := range eventsResult.Items {
			if item.Status == "cancelled" {
				continue
			}
			event := g.parseEvent(item, calendarID, calendarName)
			if !event.HasStart() {
				log.Warn("event without start", "provider", g.id, "id", item.Id)
			}
			if !opts.Keep(event) {
				continue
			}
			results = append(results, fetched{Event: event, uid: item.ICalUID})
		}

		pageToken = eventsResult.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return results, nil
}

// parseEvent converts a Google Calendar event to our unified Event type.
func (g *GoogleAdapter) parseEvent(item *calendar.Event, calendarID, calendarName string) core.Event {
	var startTime, endTime time.Time
	isAllDay := false

	if item.Start != nil && item.Start.DateTime != "" {
		startTime, _ = time.Parse(time.RFC3339, item.Start.DateTime)
		if item.End != nil {
			endTime, _ = time.Parse(time.RFC3339, item.End.DateTime)
		}
	} else if item.Start != nil {
		// All-day dates belong to the viewer's calendar day, not UTC
		startTime, _ = time.ParseInLocation("2006-01-02", item.Start.Date, time.Local)
		if item.End != nil {
			endTime, _ = time.ParseInLocation("2006-01-02", item.End.Date, time.Local)
		}
		isAllDay = true
	}

	return core.Event{
		ID:         item.Id,
		ProviderID: g.ID(),
		Calendar: core.Calendar{
			ID:   calendarID,
			Name: calendarName,
		},
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Color:       g.eventColor(item.ColorId, calendarID),
		URL:         item.HtmlLink,
		Start:       startTime,
		End:         endTime,
		IsAllDay:    isAllDay,
	}
}

// eventColor resolves an event's colorId, falling back to its calendar's color.
func (g *GoogleAdapter) eventColor(colorID, calendarID string) string {
	if c, ok := eventColors[colorID]; ok {
		return c
	}
	return g.colors[calendarID]
}
